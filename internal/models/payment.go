package models

import "time"

// PaymentStatus represents the state of a fee payment.
type PaymentStatus string

const (
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusUnpaid  PaymentStatus = "unpaid"
	PaymentStatusOverdue PaymentStatus = "overdue"
	PaymentStatusPartial PaymentStatus = "partial"
)

// FeePayment records an amount billed to a student and the amount collected
// to date. amount_paid <= amount is expected but not enforced; the report
// builders keep the raw remainder (see Pending).
type FeePayment struct {
	ID           string        `db:"id" json:"id"`
	StudentID    string        `db:"student_id" json:"student_id"`
	EnrollmentID *string       `db:"enrollment_id" json:"enrollment_id,omitempty"`
	ClassID      *string       `db:"class_id" json:"class_id,omitempty"`
	Amount       float64       `db:"amount" json:"amount"`
	AmountPaid   float64       `db:"amount_paid" json:"amount_paid"`
	Status       PaymentStatus `db:"status" json:"status"`
	PaymentDate  *time.Time    `db:"payment_date" json:"payment_date,omitempty"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
}

// Pending returns the uncollected remainder. Deliberately unclamped: an
// over-collected payment yields a negative remainder that nets against the
// student's other pending amounts.
func (p FeePayment) Pending() float64 {
	return p.Amount - p.AmountPaid
}

// PaymentDetail extends the payment with the payer's name for defaulter rows.
type PaymentDetail struct {
	FeePayment
	StudentName string `db:"student_name" json:"student_name"`
}
