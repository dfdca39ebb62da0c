package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ims-core-api/internal/service"
	appErrors "github.com/noah-isme/ims-core-api/pkg/errors"
	"github.com/noah-isme/ims-core-api/pkg/response"
)

type attendanceService interface {
	Mark(ctx context.Context, req service.MarkRequest) (*service.MarkResult, error)
	MarkByIdentity(ctx context.Context, req service.ScanRequest) (*service.ScanResult, error)
	Delete(ctx context.Context, id string) error
}

// AttendanceHandler exposes the attendance marking endpoints.
type AttendanceHandler struct {
	attendance attendanceService
}

// NewAttendanceHandler constructs handler.
func NewAttendanceHandler(attendance attendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance}
}

// Mark godoc
// @Summary Mark attendance for one or many students
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.MarkRequest true "Mark payload"
// @Success 200 {object} response.Envelope
// @Router /attendance/mark [post]
func (h *AttendanceHandler) Mark(c *gin.Context) {
	var req service.MarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	result, err := h.attendance.Mark(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Scan godoc
// @Summary Check a student in by barcode or student code
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.ScanRequest true "Scan payload"
// @Success 200 {object} response.Envelope
// @Router /attendance/scan [post]
func (h *AttendanceHandler) Scan(c *gin.Context) {
	var req service.ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	result, err := h.attendance.MarkByIdentity(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Delete godoc
// @Summary Delete an attendance record
// @Tags Attendance
// @Param id path string true "Attendance ID"
// @Success 204
// @Router /attendance/{id} [delete]
func (h *AttendanceHandler) Delete(c *gin.Context) {
	if err := h.attendance.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
