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

// AttendanceRepository handles persistence for attendance records. The
// (class_id, student_id, date) natural key is unique at the store level;
// concurrent upserts to the same key resolve last-write-wins there, so no
// locking happens here.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

const attendanceUpsertQuery = `INSERT INTO attendance_records (id, class_id, student_id, date, status, marked_by, notes, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (class_id, student_id, date)
DO UPDATE SET status = EXCLUDED.status, notes = EXCLUDED.notes, marked_by = EXCLUDED.marked_by, updated_at = EXCLUDED.updated_at
RETURNING id, class_id, student_id, date, status, marked_by, notes, created_at, updated_at`

// Upsert inserts or overwrites the attendance record for its natural key.
func (r *AttendanceRepository) Upsert(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error) {
	now := time.Now().UTC()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	var stored models.AttendanceRecord
	err := r.db.GetContext(ctx, &stored, attendanceUpsertQuery,
		record.ID, record.ClassID, record.StudentID, record.Date, record.Status,
		record.MarkedBy, record.Notes, record.CreatedAt, record.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert attendance: %w", err)
	}
	return &stored, nil
}

// BulkUpsert writes all records in a single transaction. Items later in the
// slice win over earlier ones sharing a natural key, matching call order.
func (r *AttendanceRepository) BulkUpsert(ctx context.Context, records []models.AttendanceRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bulk upsert: %w", err)
	}
	now := time.Now().UTC()
	for i := range records {
		record := &records[i]
		if record.ID == "" {
			record.ID = uuid.NewString()
		}
		if record.CreatedAt.IsZero() {
			record.CreatedAt = now
		}
		record.UpdatedAt = now
		if _, err := tx.ExecContext(ctx, attendanceBulkUpsertQuery,
			record.ID, record.ClassID, record.StudentID, record.Date, record.Status,
			record.MarkedBy, record.Notes, record.CreatedAt, record.UpdatedAt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("bulk upsert attendance: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit bulk upsert: %w", err)
	}
	return nil
}

const attendanceBulkUpsertQuery = `INSERT INTO attendance_records (id, class_id, student_id, date, status, marked_by, notes, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (class_id, student_id, date)
DO UPDATE SET status = EXCLUDED.status, notes = EXCLUDED.notes, marked_by = EXCLUDED.marked_by, updated_at = EXCLUDED.updated_at`

// ListRange returns attendance rows with student/class context matching the
// filter, ordered by date ascending.
func (r *AttendanceRepository) ListRange(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceDetail, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.ClassID != "" {
		where = append(where, fmt.Sprintf("ar.class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.StudentID != "" {
		where = append(where, fmt.Sprintf("ar.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.DateFrom != nil {
		where = append(where, fmt.Sprintf("ar.date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		where = append(where, fmt.Sprintf("ar.date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}

	query := fmt.Sprintf(`SELECT ar.id, ar.class_id, ar.student_id, ar.date, ar.status, ar.marked_by, ar.notes, ar.created_at, ar.updated_at,
        s.full_name AS student_name, s.student_code, c.name AS class_name
        FROM attendance_records ar
        JOIN students s ON s.id = ar.student_id
        JOIN classes c ON c.id = ar.class_id
        WHERE %s
        ORDER BY ar.date ASC`, strings.Join(where, " AND "))

	var rows []models.AttendanceDetail
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	return rows, nil
}

// DeleteByID removes a record by surrogate id. The only delete path the
// core owns; everything else overwrites in place.
func (r *AttendanceRepository) DeleteByID(ctx context.Context, id string) error {
	const query = `DELETE FROM attendance_records WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete attendance: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete attendance: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
