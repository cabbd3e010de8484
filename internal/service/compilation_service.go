package service

import (
	"context"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-results-api/internal/dto"
	"github.com/noah-isme/sma-results-api/internal/models"
	appErrors "github.com/noah-isme/sma-results-api/pkg/errors"
)

type classResultReader interface {
	ListByClassAndTerm(ctx context.Context, schoolID, classID, term string) ([]models.ResultDetail, error)
}

type classRoster interface {
	ListByClass(ctx context.Context, schoolID, classID string) ([]models.Student, error)
}

type compilationRoster interface {
	CompilationSubjects(ctx context.Context, rc models.RequestContext, classID string) ([]models.Subject, error)
	CanAccessClass(ctx context.Context, rc models.RequestContext, classID string) (bool, error)
}

// CompilationService builds the class result sheet and the compiled-student view. Nothing
// it produces is stored or cached.
type CompilationService struct {
	results   classResultReader
	students  classRoster
	roster    compilationRoster
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCompilationService constructs CompilationService.
func NewCompilationService(results classResultReader, students classRoster, roster compilationRoster, validate *validator.Validate, logger *zap.Logger) *CompilationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CompilationService{results: results, students: students, roster: roster, validator: validate, logger: logger}
}

// ListResults returns every result of the class for the term, joined with display names.
func (s *CompilationService) ListResults(ctx context.Context, rc models.RequestContext, query dto.ResultListQuery) ([]models.ResultDetail, error) {
	term, err := s.authorize(ctx, rc, query)
	if err != nil {
		return nil, err
	}
	rows, err := s.results.ListByClassAndTerm(ctx, rc.SchoolID, query.ClassID, term)
	if err != nil {
		s.logger.Error("failed to list class results", zap.String("class_id", query.ClassID), zap.String("term", term), zap.Error(err))
		return nil, appErrors.Internal(err, "failed to list results")
	}
	return rows, nil
}

// Compile evaluates which students have a result for every subject measured for the class.
// Students of the class without any result are listed as pending.
func (s *CompilationService) Compile(ctx context.Context, rc models.RequestContext, query dto.ResultListQuery) (*models.ClassCompilation, error) {
	term, err := s.authorize(ctx, rc, query)
	if err != nil {
		return nil, err
	}
	subjects, err := s.roster.CompilationSubjects(ctx, rc, query.ClassID)
	if err != nil {
		return nil, err
	}
	rows, err := s.results.ListByClassAndTerm(ctx, rc.SchoolID, query.ClassID, term)
	if err != nil {
		s.logger.Error("failed to load results for compilation", zap.String("class_id", query.ClassID), zap.String("term", term), zap.Error(err))
		return nil, appErrors.Internal(err, "failed to compile results")
	}

	students, err := s.students.ListByClass(ctx, rc.SchoolID, query.ClassID)
	if err != nil {
		s.logger.Error("failed to load class roster for compilation", zap.String("class_id", query.ClassID), zap.Error(err))
		return nil, appErrors.Internal(err, "failed to compile results")
	}

	measured := make(map[string]struct{}, len(subjects))
	for _, subject := range subjects {
		measured[subject.ID] = struct{}{}
	}
	relevant := make([]models.ResultDetail, 0, len(rows))
	for _, row := range rows {
		if _, ok := measured[row.SubjectID]; ok {
			relevant = append(relevant, row)
		}
	}

	compilation := &models.ClassCompilation{
		ClassID:              query.ClassID,
		Term:                 term,
		AssignedSubjectCount: len(subjects),
		Compiled:             []models.CompiledRecord{},
		Pending:              []models.CompiledRecord{},
	}
	for _, record := range withRoster(EvaluateCompilation(relevant, len(subjects)), students) {
		if record.IsCompiled {
			compilation.Compiled = append(compilation.Compiled, record)
		} else {
			compilation.Pending = append(compilation.Pending, record)
		}
	}
	return compilation, nil
}

func (s *CompilationService) authorize(ctx context.Context, rc models.RequestContext, query dto.ResultListQuery) (string, error) {
	if !rc.Valid() {
		return "", appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(query); err != nil {
		return "", validationError(err, "class and term are required")
	}
	if !rc.IsAdmin() {
		allowed, err := s.roster.CanAccessClass(ctx, rc, query.ClassID)
		if err != nil {
			return "", err
		}
		if !allowed {
			return "", appErrors.Clone(appErrors.ErrForbidden, "you do not manage this class")
		}
	}
	return NormalizeTerm(strings.TrimSpace(query.Term)), nil
}

// withRoster orders records by the class roster and adds an empty record for every student
// without results. Records of students no longer on the roster keep their place at the end.
func withRoster(records []models.CompiledRecord, students []models.Student) []models.CompiledRecord {
	byStudent := make(map[string]int, len(records))
	for i, rec := range records {
		byStudent[rec.StudentID] = i
	}
	out := make([]models.CompiledRecord, 0, len(records)+len(students))
	placed := make(map[string]struct{}, len(students))
	for _, st := range students {
		if _, dup := placed[st.ID]; dup {
			continue
		}
		placed[st.ID] = struct{}{}
		if i, ok := byStudent[st.ID]; ok {
			out = append(out, records[i])
			continue
		}
		out = append(out, models.CompiledRecord{
			StudentID:   st.ID,
			StudentName: st.FullName,
			AdmissionNo: st.AdmissionNo,
			Results:     []models.ResultDetail{},
		})
	}
	for _, rec := range records {
		if _, ok := placed[rec.StudentID]; !ok {
			out = append(out, rec)
		}
	}
	return out
}

// EvaluateCompilation groups rows by student in order of first appearance. A student is
// compiled when the number of recorded rows equals assignedCount; only compiled records
// carry a grade. GrandTotal is the mean subject total rounded for display; the grade is
// taken from the mean before rounding.
func EvaluateCompilation(rows []models.ResultDetail, assignedCount int) []models.CompiledRecord {
	index := make(map[string]int)
	records := make([]models.CompiledRecord, 0)
	sums := make([]float64, 0)
	for _, row := range rows {
		i, ok := index[row.StudentID]
		if !ok {
			i = len(records)
			index[row.StudentID] = i
			records = append(records, models.CompiledRecord{
				StudentID:   row.StudentID,
				StudentName: row.StudentName,
				AdmissionNo: row.AdmissionNo,
			})
			sums = append(sums, 0)
		}
		rec := &records[i]
		rec.Results = append(rec.Results, row)
		rec.SubjectsRecorded++
		sums[i] += row.Scores().Total()
	}

	for i := range records {
		rec := &records[i]
		mean := sums[i] / float64(rec.SubjectsRecorded)
		rec.TotalScore = round2(sums[i])
		rec.GrandTotal = round2(mean)
		rec.IsCompiled = assignedCount > 0 && rec.SubjectsRecorded == assignedCount
		if rec.IsCompiled {
			// graded on the unrounded mean; only float noise is absorbed
			band := GradeFor(math.Round(mean*1e6) / 1e6)
			rec.Grade = band.Grade
			rec.Remark = band.Remark
		}
	}
	return records
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
