package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-results-api/internal/models"
)

const studentColumns = `id, full_name, admission_no, class_id, school_id`

// StudentRepository reads the student roster.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository instantiates the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindByID fetches a student within a school. Students of other schools surface as sql.ErrNoRows.
func (r *StudentRepository) FindByID(ctx context.Context, schoolID, id string) (*models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE id = $1 AND school_id = $2`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id, schoolID); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByIDs fetches the students of a school matching ids. Unknown ids are simply absent.
func (r *StudentRepository) FindByIDs(ctx context.Context, schoolID string, ids []string) ([]models.Student, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT `+studentColumns+` FROM students WHERE school_id = ? AND id IN (?)`, schoolID, ids)
	if err != nil {
		return nil, fmt.Errorf("build student lookup: %w", err)
	}
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("find students: %w", err)
	}
	return students, nil
}

// ListByClass returns the class roster ordered by name.
func (r *StudentRepository) ListByClass(ctx context.Context, schoolID, classID string) ([]models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE school_id = $1 AND class_id = $2 ORDER BY full_name ASC`
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, schoolID, classID); err != nil {
		return nil, fmt.Errorf("list class students: %w", err)
	}
	return students, nil
}
