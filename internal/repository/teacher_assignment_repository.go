package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-results-api/internal/models"
)

// TeacherAssignmentRepository answers which subjects and classes a teacher may touch.
type TeacherAssignmentRepository struct {
	db *sqlx.DB
}

// NewTeacherAssignmentRepository constructs the repository.
func NewTeacherAssignmentRepository(db *sqlx.DB) *TeacherAssignmentRepository {
	return &TeacherAssignmentRepository{db: db}
}

// ListSubjectsForClass returns the active subjects the teacher covers in a class, ordered by
// subject name. The class teacher sees every subject assigned to the class.
func (r *TeacherAssignmentRepository) ListSubjectsForClass(ctx context.Context, schoolID, teacherID, classID string) ([]models.Subject, error) {
	const query = `
SELECT DISTINCT s.id, s.name, s.code, s.school_id
FROM subject_assignments sa
JOIN subjects s ON s.id = sa.subject_id
JOIN classes c ON c.id = sa.class_id
WHERE sa.school_id = $1 AND sa.class_id = $2 AND sa.active
  AND (sa.teacher_id = $3 OR c.class_teacher_id = $3)
ORDER BY s.name ASC, s.id ASC`
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, schoolID, classID, teacherID); err != nil {
		return nil, fmt.Errorf("list teacher subjects: %w", err)
	}
	return subjects, nil
}

// ListClassSubjects returns every subject with an active assignment in the class.
func (r *TeacherAssignmentRepository) ListClassSubjects(ctx context.Context, schoolID, classID string) ([]models.Subject, error) {
	const query = `
SELECT DISTINCT s.id, s.name, s.code, s.school_id
FROM subject_assignments sa
JOIN subjects s ON s.id = sa.subject_id
WHERE sa.school_id = $1 AND sa.class_id = $2 AND sa.active
ORDER BY s.name ASC, s.id ASC`
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, schoolID, classID); err != nil {
		return nil, fmt.Errorf("list class subjects: %w", err)
	}
	return subjects, nil
}

// HasClassAccess reports whether the teacher is the class teacher or holds an active
// subject assignment for the class.
func (r *TeacherAssignmentRepository) HasClassAccess(ctx context.Context, schoolID, teacherID, classID string) (bool, error) {
	const query = `
SELECT EXISTS (
    SELECT 1 FROM classes c WHERE c.id = $2 AND c.school_id = $1 AND c.class_teacher_id = $3
    UNION ALL
    SELECT 1 FROM subject_assignments sa
    WHERE sa.school_id = $1 AND sa.class_id = $2 AND sa.teacher_id = $3 AND sa.active
)`
	var ok bool
	if err := r.db.GetContext(ctx, &ok, query, schoolID, classID, teacherID); err != nil {
		return false, fmt.Errorf("check class access: %w", err)
	}
	return ok, nil
}

// HasSubjectAccess reports whether the teacher may record the subject for the class,
// either through an active assignment or as its class teacher.
func (r *TeacherAssignmentRepository) HasSubjectAccess(ctx context.Context, schoolID, teacherID, classID, subjectID string) (bool, error) {
	const query = `
SELECT EXISTS (
    SELECT 1 FROM subject_assignments sa
    WHERE sa.school_id = $1 AND sa.class_id = $2 AND sa.subject_id = $4 AND sa.teacher_id = $3 AND sa.active
    UNION ALL
    SELECT 1 FROM classes c
    JOIN subject_assignments sa ON sa.class_id = c.id AND sa.subject_id = $4 AND sa.active
    WHERE c.id = $2 AND c.school_id = $1 AND c.class_teacher_id = $3
)`
	var ok bool
	if err := r.db.GetContext(ctx, &ok, query, schoolID, classID, teacherID, subjectID); err != nil {
		return false, fmt.Errorf("check subject access: %w", err)
	}
	return ok, nil
}
