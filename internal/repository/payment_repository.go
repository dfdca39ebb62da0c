package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ims-core-api/internal/models"
)

// PaymentRepository handles read access to fee payments for reporting.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository constructs the repository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// ListRange returns payments created within the optional [from, to] range,
// with the payer's name joined in, ordered by created_at ascending.
func (r *PaymentRepository) ListRange(ctx context.Context, from, to *time.Time) ([]models.PaymentDetail, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if from != nil {
		where = append(where, fmt.Sprintf("p.created_at >= $%d", len(args)+1))
		args = append(args, *from)
	}
	if to != nil {
		where = append(where, fmt.Sprintf("p.created_at <= $%d", len(args)+1))
		args = append(args, *to)
	}

	query := fmt.Sprintf(`SELECT p.id, p.student_id, p.enrollment_id, p.class_id, p.amount, p.amount_paid, p.status, p.payment_date, p.created_at,
        s.full_name AS student_name
        FROM fee_payments p
        JOIN students s ON s.id = p.student_id
        WHERE %s
        ORDER BY p.created_at ASC`, strings.Join(where, " AND "))

	var rows []models.PaymentDetail
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return rows, nil
}
