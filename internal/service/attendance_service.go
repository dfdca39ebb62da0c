package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/ims-core-api/internal/models"
	appErrors "github.com/noah-isme/ims-core-api/pkg/errors"
)

type attendanceWriteRepository interface {
	Upsert(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error)
	BulkUpsert(ctx context.Context, records []models.AttendanceRecord) error
	DeleteByID(ctx context.Context, id string) error
}

type identityResolver interface {
	Resolve(ctx context.Context, token string) (*models.Student, error)
	VerifyEnrollment(ctx context.Context, studentID, classID string) (*models.Enrollment, error)
}

// AttendanceService applies attendance upserts under the idempotent
// natural-key contract and runs the scan-station check-in protocol.
type AttendanceService struct {
	repo      attendanceWriteRepository
	identity  identityResolver
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAttendanceService constructs the attendance service.
func NewAttendanceService(repo attendanceWriteRepository, identity identityResolver, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &AttendanceService{repo: repo, identity: identity, cache: cache, validator: validate, logger: logger}
	svc.validator.RegisterValidation("attendance_status", func(fl validator.FieldLevel) bool {
		return models.AttendanceStatus(strings.ToLower(fl.Field().String())).Valid()
	})
	return svc
}

// MarkItem is one student's status within a bulk mark.
type MarkItem struct {
	StudentID string  `json:"student_id" validate:"required"`
	Status    string  `json:"status" validate:"required,attendance_status"`
	Notes     *string `json:"notes"`
}

// MarkRequest describes a single or bulk attendance mark for one class/date.
type MarkRequest struct {
	ClassID string     `json:"class_id" validate:"required"`
	Date    string     `json:"date" validate:"required"`
	ActorID string     `json:"actor_id" validate:"required"`
	Items   []MarkItem `json:"items" validate:"required,min=1,dive"`
}

// MarkResult summarises a successful mark.
type MarkResult struct {
	Written int `json:"written"`
}

// Mark upserts one attendance record per item by the (class, student, date)
// natural key. Callers are expected to have restricted the student list to
// enrolled students; no enrollment check happens here. Items later in the
// payload win over earlier ones sharing a key, matching call order.
func (s *AttendanceService) Mark(ctx context.Context, req MarkRequest) (*MarkResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD")
	}

	records := make([]models.AttendanceRecord, len(req.Items))
	for i, item := range req.Items {
		records[i] = models.AttendanceRecord{
			ClassID:   req.ClassID,
			StudentID: item.StudentID,
			Date:      date,
			Status:    models.AttendanceStatus(strings.ToLower(item.Status)),
			MarkedBy:  req.ActorID,
			Notes:     item.Notes,
		}
	}
	if err := s.repo.BulkUpsert(ctx, records); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark attendance")
	}

	s.invalidateReports(ctx)
	return &MarkResult{Written: len(records)}, nil
}

// ScanStatus identifies which stage of the check-in protocol concluded.
type ScanStatus string

const (
	ScanStatusSuccess     ScanStatus = "success"
	ScanStatusNotFound    ScanStatus = "not_found"
	ScanStatusNotEnrolled ScanStatus = "not_enrolled"
	ScanStatusWriteFailed ScanStatus = "write_failed"
)

// ScanRequest describes a barcode/kiosk check-in.
type ScanRequest struct {
	ClassID string `json:"class_id" validate:"required"`
	Date    string `json:"date" validate:"required"`
	Token   string `json:"token" validate:"required"`
	ActorID string `json:"actor_id" validate:"required"`
}

// ScanResult reports the stage outcome. A rejected scan still names the
// resolved student when identity resolution succeeded, so the station can
// show who was rejected and why.
type ScanResult struct {
	Status      ScanStatus `json:"status"`
	Message     string     `json:"message"`
	StudentName string     `json:"student_name,omitempty"`
}

// MarkByIdentity runs the scan-station protocol: resolve the token, verify
// active enrollment, then mark present. Each stage short-circuits into a
// typed result; a bad scan never silently no-ops.
func (s *AttendanceService) MarkByIdentity(ctx context.Context, req ScanRequest) (*ScanResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD")
	}

	student, err := s.identity.Resolve(ctx, req.Token)
	if err != nil {
		appErr := appErrors.FromError(err)
		if appErr.Code == appErrors.ErrNotFound.Code {
			return &ScanResult{Status: ScanStatusNotFound, Message: "no student matches the scanned token"}, nil
		}
		return nil, err
	}

	if _, err := s.identity.VerifyEnrollment(ctx, student.ID, req.ClassID); err != nil {
		appErr := appErrors.FromError(err)
		if appErr.Code == appErrors.ErrNotEnrolled.Code {
			return &ScanResult{
				Status:      ScanStatusNotEnrolled,
				Message:     "student is not enrolled in this class",
				StudentName: student.FullName,
			}, nil
		}
		return nil, err
	}

	// Scan check-in always marks present; there is no barcode path for
	// absent, late or excused.
	record := &models.AttendanceRecord{
		ClassID:   req.ClassID,
		StudentID: student.ID,
		Date:      date,
		Status:    models.AttendanceStatusPresent,
		MarkedBy:  req.ActorID,
	}
	if _, err := s.repo.Upsert(ctx, record); err != nil {
		s.logger.Error("scan check-in write failed",
			zap.String("class_id", req.ClassID),
			zap.String("student_id", student.ID),
			zap.Error(err))
		return &ScanResult{
			Status:      ScanStatusWriteFailed,
			Message:     "failed to record attendance",
			StudentName: student.FullName,
		}, nil
	}

	s.invalidateReports(ctx)
	return &ScanResult{Status: ScanStatusSuccess, Message: "attendance recorded", StudentName: student.FullName}, nil
}

// Delete removes an attendance record by id.
func (s *AttendanceService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return appErrors.Clone(appErrors.ErrValidation, "attendance id is required")
	}
	if err := s.repo.DeleteByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete attendance")
	}
	s.invalidateReports(ctx)
	return nil
}

func (s *AttendanceService) invalidateReports(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, "reports:attendance:*"); err != nil {
		s.logger.Warn("attendance report cache invalidation failed", zap.Error(err))
	}
}
