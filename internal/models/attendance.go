package models

import "time"

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "present"
	AttendanceStatusAbsent  AttendanceStatus = "absent"
	AttendanceStatusLate    AttendanceStatus = "late"
	AttendanceStatusExcused AttendanceStatus = "excused"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusAbsent, AttendanceStatusLate, AttendanceStatusExcused:
		return true
	default:
		return false
	}
}

// AttendanceRecord is one attendance fact, unique per natural key
// (class_id, student_id, date). Date is a calendar day; writes with an
// existing key overwrite status, notes and marked_by in place.
type AttendanceRecord struct {
	ID        string           `db:"id" json:"id"`
	ClassID   string           `db:"class_id" json:"class_id"`
	StudentID string           `db:"student_id" json:"student_id"`
	Date      time.Time        `db:"date" json:"date"`
	Status    AttendanceStatus `db:"status" json:"status"`
	MarkedBy  string           `db:"marked_by" json:"marked_by"`
	Notes     *string          `db:"notes" json:"notes,omitempty"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// AttendanceDetail extends the record with student and class metadata for
// report builders.
type AttendanceDetail struct {
	AttendanceRecord
	StudentName string `db:"student_name" json:"student_name"`
	StudentCode string `db:"student_code" json:"student_code"`
	ClassName   string `db:"class_name" json:"class_name"`
}

// AttendanceFilter scopes range queries over attendance records.
type AttendanceFilter struct {
	ClassID   string
	StudentID string
	DateFrom  *time.Time
	DateTo    *time.Time
}
