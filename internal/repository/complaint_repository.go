package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-results-api/internal/models"
)

const complaintDetailSelect = `
SELECT rc.id, rc.result_id, rc.complaint_text, rc.status, rc.teacher_response, rc.created_at, rc.resolved_at,
       r.student_id, st.full_name AS student_name, st.class_id, r.subject_id, sb.name AS subject_name,
       r.school_id, r.term
FROM result_complaints rc
JOIN results r ON r.id = rc.result_id
JOIN students st ON st.id = r.student_id
JOIN subjects sb ON sb.id = r.subject_id`

// ComplaintRepository persists result complaints.
type ComplaintRepository struct {
	db *sqlx.DB
}

// NewComplaintRepository constructs the repository.
func NewComplaintRepository(db *sqlx.DB) *ComplaintRepository {
	return &ComplaintRepository{db: db}
}

// FindDetail loads a complaint with its result scope. Complaints on other schools' results
// are reported as sql.ErrNoRows.
func (r *ComplaintRepository) FindDetail(ctx context.Context, schoolID, id string) (*models.ComplaintDetail, error) {
	query := complaintDetailSelect + `
WHERE rc.id = $1 AND r.school_id = $2`
	var detail models.ComplaintDetail
	if err := r.db.GetContext(ctx, &detail, query, id, schoolID); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Resolve closes an open complaint. A complaint no longer open yields sql.ErrNoRows, so two
// concurrent resolutions cannot both succeed.
func (r *ComplaintRepository) Resolve(ctx context.Context, id, response string, resolvedAt time.Time) error {
	const query = `UPDATE result_complaints SET status = $2, teacher_response = $3, resolved_at = $4
        WHERE id = $1 AND status = $5`
	res, err := r.db.ExecContext(ctx, query, id, models.ComplaintResolved, response, resolvedAt, models.ComplaintOpen)
	if err != nil {
		return fmt.Errorf("resolve complaint: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check resolved complaint rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// List returns complaints for a class, newest first.
func (r *ComplaintRepository) List(ctx context.Context, filter models.ComplaintFilter) ([]models.ComplaintDetail, error) {
	query := complaintDetailSelect + `
WHERE r.school_id = $1 AND st.class_id = $2`
	args := []interface{}{filter.SchoolID, filter.ClassID}
	if filter.Status != "" {
		query += ` AND rc.status = $3`
		args = append(args, filter.Status)
	}
	query += ` ORDER BY rc.created_at DESC`
	var complaints []models.ComplaintDetail
	if err := r.db.SelectContext(ctx, &complaints, query, args...); err != nil {
		return nil, fmt.Errorf("list complaints: %w", err)
	}
	return complaints, nil
}
