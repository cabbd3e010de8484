package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-results-api/internal/models"
)

// upsertResultQuery writes a result atomically keyed by the four-part scope.
// xmax is zero only for freshly inserted tuples, which tells inserts from updates.
const upsertResultQuery = `INSERT INTO results (id, school_id, student_id, subject_id, term, academic_session, first_ca, second_ca, exam, total_ca, created_at)
        VALUES (:id, :school_id, :student_id, :subject_id, :term, :academic_session, :first_ca, :second_ca, :exam, :total_ca, :created_at)
        ON CONFLICT (student_id, subject_id, term, school_id)
        DO UPDATE SET first_ca = EXCLUDED.first_ca, second_ca = EXCLUDED.second_ca, exam = EXCLUDED.exam,
            total_ca = EXCLUDED.total_ca, academic_session = EXCLUDED.academic_session, updated_at = EXCLUDED.created_at
        RETURNING id, created_at, updated_at, (xmax = 0) AS inserted`

const resultColumns = `r.id, r.school_id, r.student_id, r.subject_id, r.term, r.academic_session,
        r.first_ca, r.second_ca, r.exam, r.total_ca, r.created_at, r.updated_at`

// ResultRepository persists per-subject results.
type ResultRepository struct {
	db *sqlx.DB
}

// NewResultRepository creates a new result repository.
func NewResultRepository(db *sqlx.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

// Upsert inserts the result or overwrites the scores of the row sharing its key.
func (r *ResultRepository) Upsert(ctx context.Context, result *models.Result) (models.UpsertOutcome, error) {
	outcome, err := upsertResult(ctx, r.db, result)
	if err != nil {
		return "", fmt.Errorf("upsert result: %w", err)
	}
	return outcome, nil
}

// UpsertBatch upserts every result inside one transaction. Any failure rolls back the whole batch.
func (r *ResultRepository) UpsertBatch(ctx context.Context, results []models.Result) (models.UpsertSummary, error) {
	var summary models.UpsertSummary
	if len(results) == 0 {
		return summary, nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return summary, fmt.Errorf("begin result batch: %w", err)
	}
	for i := range results {
		outcome, err := upsertResult(ctx, tx, &results[i])
		if err != nil {
			tx.Rollback() //nolint:errcheck
			return models.UpsertSummary{}, fmt.Errorf("batch upsert result: %w", err)
		}
		summary.Add(outcome)
	}
	if err := tx.Commit(); err != nil {
		return models.UpsertSummary{}, fmt.Errorf("commit results: %w", err)
	}
	return summary, nil
}

func upsertResult(ctx context.Context, ext sqlx.ExtContext, result *models.Result) (models.UpsertOutcome, error) {
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now().UTC()
	}
	rows, err := sqlx.NamedQueryContext(ctx, ext, upsertResultQuery, result)
	if err != nil {
		return "", err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return "", err
		}
		return "", sql.ErrNoRows
	}
	var (
		updatedAt sql.NullTime
		inserted  bool
	)
	if err := rows.Scan(&result.ID, &result.CreatedAt, &updatedAt, &inserted); err != nil {
		return "", err
	}
	result.UpdatedAt = nil
	if updatedAt.Valid {
		ts := updatedAt.Time
		result.UpdatedAt = &ts
	}
	if inserted {
		return models.UpsertCreated, nil
	}
	return models.UpsertUpdated, nil
}

// FindByID loads a result within a school.
func (r *ResultRepository) FindByID(ctx context.Context, schoolID, id string) (*models.Result, error) {
	query := `SELECT ` + resultColumns + ` FROM results r WHERE r.id = $1 AND r.school_id = $2`
	var result models.Result
	if err := r.db.GetContext(ctx, &result, query, id, schoolID); err != nil {
		return nil, err
	}
	return &result, nil
}

// DeleteByID deletes one result provided its student belongs to classID within the school.
func (r *ResultRepository) DeleteByID(ctx context.Context, schoolID, classID, id string) error {
	const query = `DELETE FROM results r USING students st
        WHERE r.id = $1 AND r.school_id = $2 AND st.id = r.student_id AND st.school_id = r.school_id AND st.class_id = $3`
	res, err := r.db.ExecContext(ctx, query, id, schoolID, classID)
	if err != nil {
		return fmt.Errorf("delete result: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deleted result rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteByStudentAndTerm removes every result of a student for a term within the school.
func (r *ResultRepository) DeleteByStudentAndTerm(ctx context.Context, schoolID, studentID, term string) (int64, error) {
	const query = `DELETE FROM results WHERE student_id = $1 AND term = $2 AND school_id = $3`
	res, err := r.db.ExecContext(ctx, query, studentID, term, schoolID)
	if err != nil {
		return 0, fmt.Errorf("delete student term results: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check deleted student term rows: %w", err)
	}
	return affected, nil
}

// ListByClassAndTerm returns the class results for a term joined with display names,
// ordered by student name then subject name.
func (r *ResultRepository) ListByClassAndTerm(ctx context.Context, schoolID, classID, term string) ([]models.ResultDetail, error) {
	query := `SELECT ` + resultColumns + `,
        st.full_name AS student_name, st.admission_no, sb.name AS subject_name
        FROM results r
        JOIN students st ON st.id = r.student_id AND st.school_id = r.school_id
        JOIN subjects sb ON sb.id = r.subject_id
        WHERE r.school_id = $1 AND st.class_id = $2 AND r.term = $3
        ORDER BY st.full_name ASC, st.id ASC, sb.name ASC`
	var results []models.ResultDetail
	if err := r.db.SelectContext(ctx, &results, query, schoolID, classID, term); err != nil {
		return nil, fmt.Errorf("list class results: %w", err)
	}
	return results, nil
}
