package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ims-core-api/internal/models"
)

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// FindActive returns the active enrollment for a student/class pair, or
// sql.ErrNoRows when none exists. Inactive rows do not count.
func (r *EnrollmentRepository) FindActive(ctx context.Context, studentID, classID string) (*models.Enrollment, error) {
	const query = `SELECT id, student_id, class_id, status, joined_at, left_at
        FROM enrollments WHERE student_id = $1 AND class_id = $2 AND status = $3 LIMIT 1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, studentID, classID, models.EnrollmentStatusActive); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// Create inserts a new active enrollment.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) (*models.Enrollment, error) {
	const query = `INSERT INTO enrollments (id, student_id, class_id, status, joined_at)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, student_id, class_id, status, joined_at, left_at`
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentStatusActive
	}
	joinedAt := enrollment.JoinedAt
	if joinedAt.IsZero() {
		joinedAt = time.Now().UTC()
	}
	var created models.Enrollment
	if err := r.db.GetContext(ctx, &created, query,
		enrollment.ID, enrollment.StudentID, enrollment.ClassID, enrollment.Status, joinedAt); err != nil {
		return nil, fmt.Errorf("create enrollment: %w", err)
	}
	return &created, nil
}

// Deactivate marks an enrollment INACTIVE, recording when the student left.
// Enrollments are never hard-deleted; attendance history must keep its
// foreign keys. Returns sql.ErrNoRows when no active row matched.
func (r *EnrollmentRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE enrollments SET status = $1, left_at = $2
        WHERE id = $3 AND status = $4`
	result, err := r.db.ExecContext(ctx, query,
		models.EnrollmentStatusInactive, time.Now().UTC(), id, models.EnrollmentStatusActive)
	if err != nil {
		return fmt.Errorf("deactivate enrollment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("deactivate enrollment rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListActiveByClass returns active enrollments for a class.
func (r *EnrollmentRepository) ListActiveByClass(ctx context.Context, classID string) ([]models.Enrollment, error) {
	const query = `SELECT id, student_id, class_id, status, joined_at, left_at
        FROM enrollments WHERE class_id = $1 AND status = $2`
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, classID, models.EnrollmentStatusActive); err != nil {
		return nil, fmt.Errorf("list class enrollments: %w", err)
	}
	return enrollments, nil
}

// ListActiveByStudents returns one row per (student, active class) pair for
// the given students, with the class name resolved. Queries are chunked to
// keep the IN list bounded.
func (r *EnrollmentRepository) ListActiveByStudents(ctx context.Context, studentIDs []string) ([]models.ActiveEnrollmentRow, error) {
	if len(studentIDs) == 0 {
		return nil, nil
	}
	const chunkSize = 100
	var rows []models.ActiveEnrollmentRow
	for start := 0; start < len(studentIDs); start += chunkSize {
		end := start + chunkSize
		if end > len(studentIDs) {
			end = len(studentIDs)
		}
		chunk := studentIDs[start:end]
		placeholders := make([]string, len(chunk))
		args := make([]interface{}, 0, len(chunk)+1)
		for i, id := range chunk {
			placeholders[i] = fmt.Sprintf("$%d", i+1)
			args = append(args, id)
		}
		args = append(args, models.EnrollmentStatusActive)
		query := fmt.Sprintf(`SELECT e.student_id, e.class_id, c.name AS class_name
            FROM enrollments e
            JOIN classes c ON c.id = e.class_id
            WHERE e.student_id IN (%s) AND e.status = $%d`,
			strings.Join(placeholders, ","), len(chunk)+1)
		var chunkRows []models.ActiveEnrollmentRow
		if err := r.db.SelectContext(ctx, &chunkRows, query, args...); err != nil {
			if err == sql.ErrNoRows {
				continue
			}
			return nil, fmt.Errorf("list active enrollments: %w", err)
		}
		rows = append(rows, chunkRows...)
	}
	return rows, nil
}
