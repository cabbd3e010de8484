package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-results-api/internal/dto"
	"github.com/noah-isme/sma-results-api/internal/models"
	appErrors "github.com/noah-isme/sma-results-api/pkg/errors"
)

type resultStore interface {
	Upsert(ctx context.Context, result *models.Result) (models.UpsertOutcome, error)
	UpsertBatch(ctx context.Context, results []models.Result) (models.UpsertSummary, error)
	DeleteByID(ctx context.Context, schoolID, classID, id string) error
	DeleteByStudentAndTerm(ctx context.Context, schoolID, studentID, term string) (int64, error)
}

type studentLookup interface {
	FindByID(ctx context.Context, schoolID, id string) (*models.Student, error)
	FindByIDs(ctx context.Context, schoolID string, ids []string) ([]models.Student, error)
}

type rosterAccess interface {
	AssignedSubjects(ctx context.Context, rc models.RequestContext, classID string) ([]models.Subject, error)
	CanAccessClass(ctx context.Context, rc models.RequestContext, classID string) (bool, error)
	CanRecordSubject(ctx context.Context, rc models.RequestContext, classID, subjectID string) (bool, error)
}

// ResultService records, overwrites and removes per-subject results.
type ResultService struct {
	results   resultStore
	students  studentLookup
	roster    rosterAccess
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewResultService constructs ResultService.
func NewResultService(results resultStore, students studentLookup, roster rosterAccess, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ResultService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResultService{
		results:   results,
		students:  students,
		roster:    roster,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// SaveSingle upserts one (student, subject) result.
func (s *ResultService) SaveSingle(ctx context.Context, rc models.RequestContext, req dto.SingleResultRequest) (*dto.SubmissionResult, error) {
	if !rc.Valid() {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, s.reject(dto.ActionSaveSingleResult, validationError(err, "invalid result payload"))
	}

	student, err := s.loadStudent(ctx, rc, req.StudentID)
	if err != nil {
		return nil, s.reject(dto.ActionSaveSingleResult, err)
	}
	allowed, err := s.roster.CanRecordSubject(ctx, rc, student.ClassID, req.SubjectID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, s.reject(dto.ActionSaveSingleResult, appErrors.Clone(appErrors.ErrForbidden, "subject is not assigned to you for this student's class"))
	}

	result := models.NewResult(models.ResultKey{
		StudentID: student.ID,
		SubjectID: req.SubjectID,
		Term:      NormalizeTerm(req.Term),
		SchoolID:  rc.SchoolID,
	}, strings.TrimSpace(req.AcademicSession), NormalizeScores(req.FirstCA, req.SecondCA, req.Exam))

	outcome, err := s.results.Upsert(ctx, &result)
	if err != nil {
		s.logger.Error("failed to save result",
			zap.String("student_id", result.StudentID),
			zap.String("subject_id", result.SubjectID),
			zap.String("term", result.Term),
			zap.Error(err))
		return nil, appErrors.Internal(err, "failed to save result")
	}

	var summary models.UpsertSummary
	summary.Add(outcome)
	s.metrics.RecordResultsWritten(summary)

	message := "Result saved"
	if outcome == models.UpsertUpdated {
		message = "Result updated"
	}
	return submission(dto.ActionSaveSingleResult, message, summary), nil
}

// SaveBatch upserts scores for the selected students across every subject the teacher is
// assigned for the class. A student outside the class or school rejects the whole submission.
func (s *ResultService) SaveBatch(ctx context.Context, rc models.RequestContext, req dto.BatchResultRequest) (*dto.SubmissionResult, error) {
	if !rc.Valid() {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, s.reject(dto.ActionSaveBatchResults, validationError(err, "invalid batch payload"))
	}
	studentIDs := uniqueIDs(req.StudentIDs)
	if len(studentIDs) == 0 {
		return nil, s.reject(dto.ActionSaveBatchResults, appErrors.WithDetails(appErrors.ErrValidation, "invalid batch payload", []string{"student_ids is required"}))
	}

	subjects, err := s.roster.AssignedSubjects(ctx, rc, req.ClassID)
	if err != nil {
		return nil, err
	}
	if len(subjects) == 0 {
		return nil, s.reject(dto.ActionSaveBatchResults, appErrors.Clone(appErrors.ErrForbidden, "no subjects are assigned to you for this class"))
	}

	found, err := s.students.FindByIDs(ctx, rc.SchoolID, studentIDs)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load students")
	}
	byID := make(map[string]models.Student, len(found))
	for _, st := range found {
		byID[st.ID] = st
	}
	var details []string
	for _, id := range studentIDs {
		st, ok := byID[id]
		switch {
		case !ok:
			details = append(details, fmt.Sprintf("student %s does not belong to this school", id))
		case st.ClassID != req.ClassID:
			details = append(details, fmt.Sprintf("student %s does not belong to this class", id))
		}
	}
	if len(details) > 0 {
		return nil, s.reject(dto.ActionSaveBatchResults, appErrors.WithDetails(appErrors.ErrForbidden, "submission includes students outside your class", details))
	}

	term := NormalizeTerm(req.Term)
	session := strings.TrimSpace(req.AcademicSession)
	results := make([]models.Result, 0, len(studentIDs)*len(subjects))
	for _, studentID := range studentIDs {
		for _, subject := range subjects {
			raw := req.Scores[dto.PairKey{StudentID: studentID, SubjectID: subject.ID}]
			results = append(results, models.NewResult(models.ResultKey{
				StudentID: studentID,
				SubjectID: subject.ID,
				Term:      term,
				SchoolID:  rc.SchoolID,
			}, session, NormalizeScores(raw.FirstCA, raw.SecondCA, raw.Exam)))
		}
	}

	summary, err := s.results.UpsertBatch(ctx, results)
	if err != nil {
		s.logger.Error("failed to save batch results",
			zap.String("class_id", req.ClassID),
			zap.String("term", term),
			zap.Int("rows", len(results)),
			zap.Error(err))
		return nil, appErrors.Internal(err, "failed to save results")
	}
	s.metrics.RecordResultsWritten(summary)

	return submission(dto.ActionSaveBatchResults, fmt.Sprintf("%d new, %d updated", summary.Created, summary.Updated), summary), nil
}

// SaveMultiSubject upserts one student's scores across the teacher's subjects for the
// student's class. Unattempted subjects are left untouched.
func (s *ResultService) SaveMultiSubject(ctx context.Context, rc models.RequestContext, req dto.MultiSubjectRequest) (*dto.SubmissionResult, error) {
	if !rc.Valid() {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, s.reject(dto.ActionSaveMultipleSubjects, validationError(err, "invalid multi-subject payload"))
	}

	student, err := s.loadStudent(ctx, rc, req.StudentID)
	if err != nil {
		return nil, s.reject(dto.ActionSaveMultipleSubjects, err)
	}
	subjects, err := s.roster.AssignedSubjects(ctx, rc, student.ClassID)
	if err != nil {
		return nil, err
	}
	if len(subjects) == 0 {
		return nil, s.reject(dto.ActionSaveMultipleSubjects, appErrors.Clone(appErrors.ErrForbidden, "no subjects are assigned to you for this student's class"))
	}

	assigned := make(map[string]struct{}, len(subjects))
	for _, subject := range subjects {
		assigned[subject.ID] = struct{}{}
	}
	var details []string
	for subjectID := range req.Subjects {
		if _, ok := assigned[subjectID]; !ok {
			details = append(details, fmt.Sprintf("subject %s is not assigned to you for this class", subjectID))
		}
	}
	if len(details) > 0 {
		return nil, s.reject(dto.ActionSaveMultipleSubjects, appErrors.WithDetails(appErrors.ErrForbidden, "submission includes subjects outside your assignment", sortedCopy(details)))
	}

	term := NormalizeTerm(req.Term)
	session := strings.TrimSpace(req.AcademicSession)
	skipped := 0
	results := make([]models.Result, 0, len(subjects))
	for _, subject := range subjects {
		entry := req.Subjects[subject.ID]
		scores := NormalizeScores(entry.FirstCA, entry.SecondCA, entry.Exam)
		if !attempted(entry, scores) {
			skipped++
			continue
		}
		results = append(results, models.NewResult(models.ResultKey{
			StudentID: student.ID,
			SubjectID: subject.ID,
			Term:      term,
			SchoolID:  rc.SchoolID,
		}, session, scores))
	}

	summary, err := s.results.UpsertBatch(ctx, results)
	if err != nil {
		s.logger.Error("failed to save multi-subject results",
			zap.String("student_id", student.ID),
			zap.String("term", term),
			zap.Error(err))
		return nil, appErrors.Internal(err, "failed to save results")
	}
	summary.Skipped = skipped
	s.metrics.RecordResultsWritten(summary)

	message := fmt.Sprintf("%d new, %d updated, %d skipped", summary.Created, summary.Updated, summary.Skipped)
	return submission(dto.ActionSaveMultipleSubjects, message, summary), nil
}

// attempted applies the explicit flag when present and otherwise treats an all-zero
// entry as not entered.
func attempted(entry dto.MultiSubjectEntry, scores models.ScoreSet) bool {
	if entry.Attempted != nil {
		return *entry.Attempted
	}
	return !scores.IsZero()
}

// DeleteResult removes one result inside a class the actor can manage.
func (s *ResultService) DeleteResult(ctx context.Context, rc models.RequestContext, req dto.DeleteResultRequest) (*dto.SubmissionResult, error) {
	if !rc.Valid() {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, s.reject(dto.ActionDeleteResult, validationError(err, "invalid delete payload"))
	}
	allowed, err := s.roster.CanAccessClass(ctx, rc, req.ClassID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, s.reject(dto.ActionDeleteResult, appErrors.Clone(appErrors.ErrForbidden, "you do not manage this class"))
	}
	if err := s.results.DeleteByID(ctx, rc.SchoolID, req.ClassID, req.ResultID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "result not found")
		}
		s.logger.Error("failed to delete result", zap.String("result_id", req.ResultID), zap.Error(err))
		return nil, appErrors.Internal(err, "failed to delete result")
	}
	return &dto.SubmissionResult{Action: dto.ActionDeleteResult, Message: "Result deleted", Deleted: 1}, nil
}

// DeleteStudentTerm resets every result of a student for a term within the acting school.
// School administrators and teachers with access to the student's class may do this.
func (s *ResultService) DeleteStudentTerm(ctx context.Context, rc models.RequestContext, req dto.DeleteStudentResultsRequest) (*dto.SubmissionResult, error) {
	if !rc.Valid() {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, s.reject(dto.ActionDeleteStudentResults, validationError(err, "invalid reset payload"))
	}
	student, err := s.students.FindByID(ctx, rc.SchoolID, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Internal(err, "failed to load student")
	}
	if !rc.IsAdmin() {
		allowed, err := s.roster.CanAccessClass(ctx, rc, student.ClassID)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, s.reject(dto.ActionDeleteStudentResults, appErrors.Clone(appErrors.ErrForbidden, "you do not manage this student's class"))
		}
	}

	term := NormalizeTerm(req.Term)
	deleted, err := s.results.DeleteByStudentAndTerm(ctx, rc.SchoolID, student.ID, term)
	if err != nil {
		s.logger.Error("failed to reset student term",
			zap.String("student_id", student.ID),
			zap.String("term", term),
			zap.Error(err))
		return nil, appErrors.Internal(err, "failed to delete results")
	}
	return &dto.SubmissionResult{
		Action:  dto.ActionDeleteStudentResults,
		Message: fmt.Sprintf("%d results removed", deleted),
		Deleted: deleted,
	}, nil
}

// loadStudent fetches a student of the acting school. A student of another school is
// reported as forbidden, never as found.
func (s *ResultService) loadStudent(ctx context.Context, rc models.RequestContext, studentID string) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, rc.SchoolID, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "student does not belong to your school")
		}
		return nil, appErrors.Internal(err, "failed to load student")
	}
	return student, nil
}

func (s *ResultService) reject(action string, err error) error {
	appErr := appErrors.FromError(err)
	if appErr.Status < 500 {
		s.metrics.RecordRejectedSubmission(action, appErr.Code)
	}
	return err
}

func submission(action, message string, summary models.UpsertSummary) *dto.SubmissionResult {
	return &dto.SubmissionResult{
		Action:  action,
		Message: message,
		Created: summary.Created,
		Updated: summary.Updated,
		Skipped: summary.Skipped,
	}
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func sortedCopy(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}
