package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ims-core-api/internal/models"
	appErrors "github.com/noah-isme/ims-core-api/pkg/errors"
	"github.com/noah-isme/ims-core-api/pkg/response"
)

type reportService interface {
	BuildFinancial(ctx context.Context, rng models.ReportRange) (*models.FinancialReport, error)
	BuildAttendance(ctx context.Context, rng models.ReportRange) (*models.AttendanceReport, error)
	BuildAcademic(ctx context.Context, rng models.ReportRange) (*models.AcademicReport, error)
}

// ReportHandler exposes the reporting endpoints.
type ReportHandler struct {
	reports reportService
}

// NewReportHandler constructs handler.
func NewReportHandler(reports reportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// parseRange reads the optional from/to query parameters. Both bounds are
// calendar days; a missing bound stays open.
func parseRange(c *gin.Context) (models.ReportRange, error) {
	var rng models.ReportRange
	if raw := c.Query("from"); raw != "" {
		from, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return rng, appErrors.Clone(appErrors.ErrValidation, "invalid from date, expected YYYY-MM-DD")
		}
		rng.From = &from
	}
	if raw := c.Query("to"); raw != "" {
		to, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return rng, appErrors.Clone(appErrors.ErrValidation, "invalid to date, expected YYYY-MM-DD")
		}
		rng.To = &to
	}
	if rng.From != nil && rng.To != nil && rng.To.Before(*rng.From) {
		return rng, appErrors.Clone(appErrors.ErrValidation, "to must not precede from")
	}
	return rng, nil
}

// Financial godoc
// @Summary Financial report
// @Tags Reports
// @Produce json
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /reports/financial [get]
func (h *ReportHandler) Financial(c *gin.Context) {
	rng, err := parseRange(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	report, err := h.reports.BuildFinancial(c.Request.Context(), rng)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Attendance godoc
// @Summary Attendance report
// @Tags Reports
// @Produce json
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /reports/attendance [get]
func (h *ReportHandler) Attendance(c *gin.Context) {
	rng, err := parseRange(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	report, err := h.reports.BuildAttendance(c.Request.Context(), rng)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Academic godoc
// @Summary Academic report
// @Tags Reports
// @Produce json
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /reports/academic [get]
func (h *ReportHandler) Academic(c *gin.Context) {
	rng, err := parseRange(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	report, err := h.reports.BuildAcademic(c.Request.Context(), rng)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}
