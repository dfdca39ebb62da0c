package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/ims-core-api/internal/models"
	appErrors "github.com/noah-isme/ims-core-api/pkg/errors"
)

type studentLookupRepository interface {
	FindByBarcode(ctx context.Context, barcode string) (*models.Student, error)
	FindByCode(ctx context.Context, code string) (*models.Student, error)
}

type enrollmentLookupRepository interface {
	FindActive(ctx context.Context, studentID, classID string) (*models.Enrollment, error)
}

// IdentityService resolves scanned tokens to students and gates attendance
// writes on active enrollment.
type IdentityService struct {
	students    studentLookupRepository
	enrollments enrollmentLookupRepository
	logger      *zap.Logger
}

// NewIdentityService constructs the identity service.
func NewIdentityService(students studentLookupRepository, enrollments enrollmentLookupRepository, logger *zap.Logger) *IdentityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdentityService{students: students, enrollments: enrollments, logger: logger}
}

// Resolve maps a scanned token to a student. Barcodes are tried first, then
// human-assigned student codes, so generated barcodes and manually typed
// codes share one input field. Unmatched tokens yield ErrNotFound.
func (s *IdentityService) Resolve(ctx context.Context, token string) (*models.Student, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "token is required")
	}

	student, err := s.students.FindByBarcode(ctx, token)
	if err == nil {
		return student, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up barcode")
	}

	student, err = s.students.FindByCode(ctx, token)
	if err == nil {
		return student, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no student matches the scanned token")
	}
	return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up student code")
}

// VerifyEnrollment requires an ACTIVE enrollment for the student in the
// target class. Any other state is ErrNotEnrolled; unenrolled students must
// never accumulate attendance rows.
func (s *IdentityService) VerifyEnrollment(ctx context.Context, studentID, classID string) (*models.Enrollment, error) {
	if studentID == "" || classID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id and class id are required")
	}

	enrollment, err := s.enrollments.FindActive(ctx, studentID, classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotEnrolled, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify enrollment")
	}
	return enrollment, nil
}
