package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ims-core-api/internal/models"
)

// GradeRepository handles read access to graded assessment rows for
// reporting. Ungraded rows (NULL score) never leave the store.
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository constructs the repository.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

// ListGradedRange returns graded rows joined with their assessment's max
// score and class context, filtered by the assessment date.
func (r *GradeRepository) ListGradedRange(ctx context.Context, from, to *time.Time) ([]models.GradedScore, error) {
	where := []string{"g.score IS NOT NULL"}
	args := []interface{}{}
	if from != nil {
		where = append(where, fmt.Sprintf("a.date >= $%d", len(args)+1))
		args = append(args, *from)
	}
	if to != nil {
		where = append(where, fmt.Sprintf("a.date <= $%d", len(args)+1))
		args = append(args, *to)
	}

	query := fmt.Sprintf(`SELECT g.id AS grade_id, g.assessment_id, g.student_id, s.full_name AS student_name,
        a.class_id, c.name AS class_name, g.score, a.max_score, a.date
        FROM grades g
        JOIN assessments a ON a.id = g.assessment_id
        JOIN students s ON s.id = g.student_id
        JOIN classes c ON c.id = a.class_id
        WHERE %s
        ORDER BY a.date ASC`, strings.Join(where, " AND "))

	var rows []models.GradedScore
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list graded scores: %w", err)
	}
	return rows, nil
}
