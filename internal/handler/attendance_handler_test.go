package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ims-core-api/internal/service"
	appErrors "github.com/noah-isme/ims-core-api/pkg/errors"
)

type attendanceServiceMock struct {
	markResp  *service.MarkResult
	markErr   error
	scanResp  *service.ScanResult
	scanErr   error
	deleteErr error
}

func (m *attendanceServiceMock) Mark(_ context.Context, _ service.MarkRequest) (*service.MarkResult, error) {
	return m.markResp, m.markErr
}

func (m *attendanceServiceMock) MarkByIdentity(_ context.Context, _ service.ScanRequest) (*service.ScanResult, error) {
	return m.scanResp, m.scanErr
}

func (m *attendanceServiceMock) Delete(_ context.Context, _ string) error {
	return m.deleteErr
}

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func TestAttendanceHandlerMark(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAttendanceHandler(&attendanceServiceMock{markResp: &service.MarkResult{Written: 2}})

	payload, _ := json.Marshal(service.MarkRequest{
		ClassID: "class-1", Date: "2026-05-04", ActorID: "teacher-1",
		Items: []service.MarkItem{
			{StudentID: "stu-1", Status: "present"},
			{StudentID: "stu-2", Status: "absent"},
		},
	})
	c, w := newGinContext(http.MethodPost, "/attendance/mark", payload)

	handler.Mark(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"written":2`)
}

func TestAttendanceHandlerMarkValidationError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAttendanceHandler(&attendanceServiceMock{
		markErr: appErrors.Clone(appErrors.ErrValidation, "invalid payload"),
	})

	payload, _ := json.Marshal(service.MarkRequest{ClassID: "class-1"})
	c, w := newGinContext(http.MethodPost, "/attendance/mark", payload)

	handler.Mark(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAttendanceHandlerMarkBadJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAttendanceHandler(&attendanceServiceMock{})

	c, w := newGinContext(http.MethodPost, "/attendance/mark", []byte("{not json"))

	handler.Mark(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAttendanceHandlerScan(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAttendanceHandler(&attendanceServiceMock{
		scanResp: &service.ScanResult{Status: service.ScanStatusSuccess, StudentName: "Ada Lovelace"},
	})

	payload, _ := json.Marshal(service.ScanRequest{
		ClassID: "class-1", Date: "2026-05-04", Token: "BC-001", ActorID: "kiosk-1",
	})
	c, w := newGinContext(http.MethodPost, "/attendance/scan", payload)

	handler.Scan(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"status":"success"`)
}

func TestAttendanceHandlerDelete(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAttendanceHandler(&attendanceServiceMock{})

	c, w := newGinContext(http.MethodDelete, "/attendance/att-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "att-1"}}

	handler.Delete(c)
	c.Writer.WriteHeaderNow()
	require.Equal(t, http.StatusNoContent, w.Code)
}

func TestAttendanceHandlerDeleteNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAttendanceHandler(&attendanceServiceMock{
		deleteErr: appErrors.Clone(appErrors.ErrNotFound, "attendance record not found"),
	})

	c, w := newGinContext(http.MethodDelete, "/attendance/missing", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	handler.Delete(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}
