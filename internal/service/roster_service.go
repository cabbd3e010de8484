package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-results-api/internal/models"
	appErrors "github.com/noah-isme/sma-results-api/pkg/errors"
)

type assignmentReader interface {
	ListSubjectsForClass(ctx context.Context, schoolID, teacherID, classID string) ([]models.Subject, error)
	ListClassSubjects(ctx context.Context, schoolID, classID string) ([]models.Subject, error)
	HasClassAccess(ctx context.Context, schoolID, teacherID, classID string) (bool, error)
	HasSubjectAccess(ctx context.Context, schoolID, teacherID, classID, subjectID string) (bool, error)
}

// RosterService answers teacher/class/subject relationship questions, caching subject lists.
type RosterService struct {
	assignments assignmentReader
	cache       *CacheService
	ttl         time.Duration
	logger      *zap.Logger
}

// NewRosterService constructs the roster service. cache may be nil.
func NewRosterService(assignments assignmentReader, cache *CacheService, ttl time.Duration, logger *zap.Logger) *RosterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RosterService{assignments: assignments, cache: cache, ttl: ttl, logger: logger}
}

// AssignedSubjects returns the subjects the acting teacher covers in the class, ordered by name.
func (s *RosterService) AssignedSubjects(ctx context.Context, rc models.RequestContext, classID string) ([]models.Subject, error) {
	key := fmt.Sprintf("subjects:%s:%s:%s", rc.SchoolID, rc.TeacherID, classID)
	return s.cachedSubjects(ctx, key, func() ([]models.Subject, error) {
		return s.assignments.ListSubjectsForClass(ctx, rc.SchoolID, rc.TeacherID, classID)
	})
}

// CompilationSubjects returns the subject set a compiled view is measured against: the acting
// teacher's subjects, or every class subject for school administrators.
func (s *RosterService) CompilationSubjects(ctx context.Context, rc models.RequestContext, classID string) ([]models.Subject, error) {
	if !rc.IsAdmin() {
		return s.AssignedSubjects(ctx, rc, classID)
	}
	key := fmt.Sprintf("subjects:%s:class:%s", rc.SchoolID, classID)
	return s.cachedSubjects(ctx, key, func() ([]models.Subject, error) {
		return s.assignments.ListClassSubjects(ctx, rc.SchoolID, classID)
	})
}

func (s *RosterService) cachedSubjects(ctx context.Context, key string, load func() ([]models.Subject, error)) ([]models.Subject, error) {
	var cached []models.Subject
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}
	subjects, err := load()
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load assigned subjects")
	}
	_ = s.cache.Set(ctx, key, subjects, s.ttl)
	return subjects, nil
}

// CanAccessClass reports whether the actor may read or manage the class.
func (s *RosterService) CanAccessClass(ctx context.Context, rc models.RequestContext, classID string) (bool, error) {
	ok, err := s.assignments.HasClassAccess(ctx, rc.SchoolID, rc.TeacherID, classID)
	if err != nil {
		return false, appErrors.Internal(err, "failed to verify class access")
	}
	return ok, nil
}

// CanRecordSubject reports whether the teacher may write results of subjectID for classID.
func (s *RosterService) CanRecordSubject(ctx context.Context, rc models.RequestContext, classID, subjectID string) (bool, error) {
	ok, err := s.assignments.HasSubjectAccess(ctx, rc.SchoolID, rc.TeacherID, classID, subjectID)
	if err != nil {
		return false, appErrors.Internal(err, "failed to verify subject access")
	}
	return ok, nil
}

// InvalidateSchool drops every cached subject list of a school.
func (s *RosterService) InvalidateSchool(ctx context.Context, schoolID string) error {
	return s.cache.Invalidate(ctx, fmt.Sprintf("subjects:%s:*", schoolID))
}
