package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/ims-core-api/internal/models"
	appErrors "github.com/noah-isme/ims-core-api/pkg/errors"
)

// fakeAttendanceRepo stores records keyed by the natural key, mirroring the
// ON CONFLICT behaviour of the real repository.
type fakeAttendanceRepo struct {
	rows      map[string]models.AttendanceRecord
	upserts   int
	failWrite bool
}

func newFakeAttendanceRepo() *fakeAttendanceRepo {
	return &fakeAttendanceRepo{rows: make(map[string]models.AttendanceRecord)}
}

func naturalKey(r models.AttendanceRecord) string {
	return fmt.Sprintf("%s|%s|%s", r.ClassID, r.StudentID, r.Date.Format("2006-01-02"))
}

func (f *fakeAttendanceRepo) Upsert(_ context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error) {
	if f.failWrite {
		return nil, errors.New("connection reset")
	}
	f.upserts++
	stored := *record
	key := naturalKey(stored)
	if existing, ok := f.rows[key]; ok {
		stored.ID = existing.ID
	} else {
		stored.ID = fmt.Sprintf("att-%d", len(f.rows)+1)
	}
	f.rows[key] = stored
	return &stored, nil
}

func (f *fakeAttendanceRepo) BulkUpsert(ctx context.Context, records []models.AttendanceRecord) error {
	for i := range records {
		if _, err := f.Upsert(ctx, &records[i]); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeAttendanceRepo) DeleteByID(_ context.Context, id string) error {
	for key, row := range f.rows {
		if row.ID == id {
			delete(f.rows, key)
			return nil
		}
	}
	return sql.ErrNoRows
}

type fakeIdentity struct {
	students    map[string]*models.Student // keyed by token
	enrollments map[string]bool            // keyed studentID|classID
}

func (f *fakeIdentity) Resolve(_ context.Context, token string) (*models.Student, error) {
	if s, ok := f.students[token]; ok {
		return s, nil
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
}

func (f *fakeIdentity) VerifyEnrollment(_ context.Context, studentID, classID string) (*models.Enrollment, error) {
	if f.enrollments[studentID+"|"+classID] {
		return &models.Enrollment{StudentID: studentID, ClassID: classID, Status: models.EnrollmentStatusActive}, nil
	}
	return nil, appErrors.Clone(appErrors.ErrNotEnrolled, "student is not enrolled in this class")
}

func newAttendanceService(repo *fakeAttendanceRepo, identity *fakeIdentity) *AttendanceService {
	return NewAttendanceService(repo, identity, nil, nil, zap.NewNop())
}

func TestAttendanceServiceMarkWritesAllItems(t *testing.T) {
	repo := newFakeAttendanceRepo()
	svc := newAttendanceService(repo, &fakeIdentity{})

	result, err := svc.Mark(context.Background(), MarkRequest{
		ClassID: "class-1",
		Date:    "2026-05-04",
		ActorID: "teacher-1",
		Items: []MarkItem{
			{StudentID: "stu-1", Status: "present"},
			{StudentID: "stu-2", Status: "ABSENT"},
			{StudentID: "stu-3", Status: "late"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Written)
	require.Len(t, repo.rows, 3)

	stored := repo.rows["class-1|stu-2|2026-05-04"]
	assert.Equal(t, models.AttendanceStatusAbsent, stored.Status)
	assert.Equal(t, "teacher-1", stored.MarkedBy)
}

func TestAttendanceServiceMarkIsIdempotentPerNaturalKey(t *testing.T) {
	repo := newFakeAttendanceRepo()
	svc := newAttendanceService(repo, &fakeIdentity{})

	mark := func(status string) {
		_, err := svc.Mark(context.Background(), MarkRequest{
			ClassID: "class-1",
			Date:    "2026-05-04",
			ActorID: "teacher-1",
			Items:   []MarkItem{{StudentID: "stu-1", Status: status}},
		})
		require.NoError(t, err)
	}

	mark("present")
	mark("absent")

	require.Len(t, repo.rows, 1)
	stored := repo.rows["class-1|stu-1|2026-05-04"]
	assert.Equal(t, models.AttendanceStatusAbsent, stored.Status)
	assert.Equal(t, "att-1", stored.ID)
}

func TestAttendanceServiceMarkDuplicateItemsLastWins(t *testing.T) {
	repo := newFakeAttendanceRepo()
	svc := newAttendanceService(repo, &fakeIdentity{})

	result, err := svc.Mark(context.Background(), MarkRequest{
		ClassID: "class-1",
		Date:    "2026-05-04",
		ActorID: "teacher-1",
		Items: []MarkItem{
			{StudentID: "stu-1", Status: "present"},
			{StudentID: "stu-1", Status: "excused"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Written)
	require.Len(t, repo.rows, 1)
	assert.Equal(t, models.AttendanceStatusExcused, repo.rows["class-1|stu-1|2026-05-04"].Status)
}

func TestAttendanceServiceMarkRejectsUnknownStatus(t *testing.T) {
	repo := newFakeAttendanceRepo()
	svc := newAttendanceService(repo, &fakeIdentity{})

	_, err := svc.Mark(context.Background(), MarkRequest{
		ClassID: "class-1",
		Date:    "2026-05-04",
		ActorID: "teacher-1",
		Items:   []MarkItem{{StudentID: "stu-1", Status: "vacation"}},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.rows)
}

func TestAttendanceServiceMarkRejectsBadDate(t *testing.T) {
	repo := newFakeAttendanceRepo()
	svc := newAttendanceService(repo, &fakeIdentity{})

	_, err := svc.Mark(context.Background(), MarkRequest{
		ClassID: "class-1",
		Date:    "04/05/2026",
		ActorID: "teacher-1",
		Items:   []MarkItem{{StudentID: "stu-1", Status: "present"}},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAttendanceServiceScanSuccessMarksPresent(t *testing.T) {
	repo := newFakeAttendanceRepo()
	identity := &fakeIdentity{
		students:    map[string]*models.Student{"BC-001": {ID: "stu-1", FullName: "Ada Lovelace"}},
		enrollments: map[string]bool{"stu-1|class-1": true},
	}
	svc := newAttendanceService(repo, identity)

	result, err := svc.MarkByIdentity(context.Background(), ScanRequest{
		ClassID: "class-1", Date: "2026-05-04", Token: "BC-001", ActorID: "kiosk-1",
	})
	require.NoError(t, err)
	assert.Equal(t, ScanStatusSuccess, result.Status)
	assert.Equal(t, "Ada Lovelace", result.StudentName)

	stored := repo.rows["class-1|stu-1|2026-05-04"]
	assert.Equal(t, models.AttendanceStatusPresent, stored.Status)
	assert.Equal(t, "kiosk-1", stored.MarkedBy)
}

func TestAttendanceServiceScanIsIdempotent(t *testing.T) {
	repo := newFakeAttendanceRepo()
	identity := &fakeIdentity{
		students:    map[string]*models.Student{"BC-001": {ID: "stu-1", FullName: "Ada Lovelace"}},
		enrollments: map[string]bool{"stu-1|class-1": true},
	}
	svc := newAttendanceService(repo, identity)

	req := ScanRequest{ClassID: "class-1", Date: "2026-05-04", Token: "BC-001", ActorID: "kiosk-1"}
	for i := 0; i < 3; i++ {
		result, err := svc.MarkByIdentity(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, ScanStatusSuccess, result.Status)
	}
	assert.Len(t, repo.rows, 1)
}

func TestAttendanceServiceScanUnknownToken(t *testing.T) {
	repo := newFakeAttendanceRepo()
	svc := newAttendanceService(repo, &fakeIdentity{})

	result, err := svc.MarkByIdentity(context.Background(), ScanRequest{
		ClassID: "class-1", Date: "2026-05-04", Token: "GHOST", ActorID: "kiosk-1",
	})
	require.NoError(t, err)
	assert.Equal(t, ScanStatusNotFound, result.Status)
	assert.Empty(t, result.StudentName)
	assert.Zero(t, repo.upserts)
}

func TestAttendanceServiceScanNotEnrolledWritesNothing(t *testing.T) {
	repo := newFakeAttendanceRepo()
	identity := &fakeIdentity{
		students: map[string]*models.Student{"BC-001": {ID: "stu-1", FullName: "Ada Lovelace"}},
	}
	svc := newAttendanceService(repo, identity)

	result, err := svc.MarkByIdentity(context.Background(), ScanRequest{
		ClassID: "class-1", Date: "2026-05-04", Token: "BC-001", ActorID: "kiosk-1",
	})
	require.NoError(t, err)
	assert.Equal(t, ScanStatusNotEnrolled, result.Status)
	assert.Equal(t, "Ada Lovelace", result.StudentName)
	assert.Zero(t, repo.upserts)
	assert.Empty(t, repo.rows)
}

func TestAttendanceServiceScanWriteFailure(t *testing.T) {
	repo := newFakeAttendanceRepo()
	repo.failWrite = true
	identity := &fakeIdentity{
		students:    map[string]*models.Student{"BC-001": {ID: "stu-1", FullName: "Ada Lovelace"}},
		enrollments: map[string]bool{"stu-1|class-1": true},
	}
	svc := newAttendanceService(repo, identity)

	result, err := svc.MarkByIdentity(context.Background(), ScanRequest{
		ClassID: "class-1", Date: "2026-05-04", Token: "BC-001", ActorID: "kiosk-1",
	})
	require.NoError(t, err)
	assert.Equal(t, ScanStatusWriteFailed, result.Status)
	assert.Equal(t, "Ada Lovelace", result.StudentName)
}

func TestAttendanceServiceDelete(t *testing.T) {
	repo := newFakeAttendanceRepo()
	svc := newAttendanceService(repo, &fakeIdentity{})

	date := time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC)
	record, err := repo.Upsert(context.Background(), &models.AttendanceRecord{
		ClassID: "class-1", StudentID: "stu-1", Date: date, Status: models.AttendanceStatusPresent,
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), record.ID))
	assert.Empty(t, repo.rows)

	err = svc.Delete(context.Background(), record.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
