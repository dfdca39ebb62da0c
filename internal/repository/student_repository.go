package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ims-core-api/internal/models"
)

// StudentRepository handles persistence of students.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentColumns = `id, student_code, barcode, full_name, active, created_at, updated_at`

// FindByID returns a student by its ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	const query = `SELECT ` + studentColumns + ` FROM students WHERE id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByBarcode returns the student owning the given barcode.
func (r *StudentRepository) FindByBarcode(ctx context.Context, barcode string) (*models.Student, error) {
	const query = `SELECT ` + studentColumns + ` FROM students WHERE barcode = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, barcode); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByCode returns the student with the given human-assigned code.
func (r *StudentRepository) FindByCode(ctx context.Context, code string) (*models.Student, error) {
	const query = `SELECT ` + studentColumns + ` FROM students WHERE student_code = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, code); err != nil {
		return nil, err
	}
	return &student, nil
}
