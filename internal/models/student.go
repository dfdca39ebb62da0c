package models

import "time"

// Student represents a learner registered in the institute. StudentCode is
// the human-assigned unique code; Barcode is generated later and may be
// absent until then.
type Student struct {
	ID          string    `db:"id" json:"id"`
	StudentCode string    `db:"student_code" json:"student_code"`
	Barcode     *string   `db:"barcode" json:"barcode,omitempty"`
	FullName    string    `db:"full_name" json:"full_name"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
