package models

import "time"

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Enrollments are soft-deactivated, never hard-deleted.
const (
	EnrollmentStatusActive   EnrollmentStatus = "ACTIVE"
	EnrollmentStatusInactive EnrollmentStatus = "INACTIVE"
)

// Enrollment relates a student to a class. Only ACTIVE rows make the student
// eligible for attendance and fees in that class.
type Enrollment struct {
	ID        string           `db:"id" json:"id"`
	StudentID string           `db:"student_id" json:"student_id"`
	ClassID   string           `db:"class_id" json:"class_id"`
	Status    EnrollmentStatus `db:"status" json:"status"`
	JoinedAt  time.Time        `db:"joined_at" json:"joined_at"`
	LeftAt    *time.Time       `db:"left_at" json:"left_at,omitempty"`
}

// ActiveEnrollmentRow is the flat row used for revenue fan-out: one row per
// (student, active class) pair.
type ActiveEnrollmentRow struct {
	StudentID string `db:"student_id" json:"student_id"`
	ClassID   string `db:"class_id" json:"class_id"`
	ClassName string `db:"class_name" json:"class_name"`
}
