package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-results-api/internal/models"
	appErrors "github.com/noah-isme/sma-results-api/pkg/errors"
)

type memoryCache struct {
	entries map[string][]byte
	ttls    map[string]time.Duration
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string][]byte), ttls: make(map[string]time.Duration)}
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = raw
	m.ttls[key] = ttl
	return nil
}

func (m *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	prefix := pattern
	if n := len(prefix); n > 0 && prefix[n-1] == '*' {
		prefix = prefix[:n-1]
	}
	for key := range m.entries {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(m.entries, key)
		}
	}
	return nil
}

type countingAssignments struct {
	subjects      []models.Subject
	teacherCalls  int
	classCalls    int
	classAccess   bool
	subjectAccess bool
	err           error
}

func (c *countingAssignments) ListSubjectsForClass(ctx context.Context, schoolID, teacherID, classID string) ([]models.Subject, error) {
	c.teacherCalls++
	return c.subjects, c.err
}

func (c *countingAssignments) ListClassSubjects(ctx context.Context, schoolID, classID string) ([]models.Subject, error) {
	c.classCalls++
	return c.subjects, c.err
}

func (c *countingAssignments) HasClassAccess(ctx context.Context, schoolID, teacherID, classID string) (bool, error) {
	return c.classAccess, c.err
}

func (c *countingAssignments) HasSubjectAccess(ctx context.Context, schoolID, teacherID, classID, subjectID string) (bool, error) {
	return c.subjectAccess, c.err
}

func TestRosterServiceCachesAssignedSubjects(t *testing.T) {
	assignments := &countingAssignments{subjects: []models.Subject{newSubject("bio", "Biology")}}
	cache := newMemoryCache()
	svc := NewRosterService(assignments, NewCacheService(cache, NewMetricsService(), time.Minute, nil, true), 2*time.Minute, nil)

	for i := 0; i < 3; i++ {
		subjects, err := svc.AssignedSubjects(context.Background(), teacherContext(), "class-1")
		require.NoError(t, err)
		require.Len(t, subjects, 1)
		assert.Equal(t, "Biology", subjects[0].Name)
	}
	assert.Equal(t, 1, assignments.teacherCalls)
	assert.Equal(t, 2*time.Minute, cache.ttls["subjects:school-a:teacher-1:class-1"])

	require.NoError(t, svc.InvalidateSchool(context.Background(), "school-a"))
	_, err := svc.AssignedSubjects(context.Background(), teacherContext(), "class-1")
	require.NoError(t, err)
	assert.Equal(t, 2, assignments.teacherCalls)
}

func TestRosterServiceWithoutCache(t *testing.T) {
	assignments := &countingAssignments{subjects: []models.Subject{newSubject("bio", "Biology")}}
	svc := NewRosterService(assignments, nil, time.Minute, nil)

	_, err := svc.AssignedSubjects(context.Background(), teacherContext(), "class-1")
	require.NoError(t, err)
	_, err = svc.AssignedSubjects(context.Background(), teacherContext(), "class-1")
	require.NoError(t, err)
	assert.Equal(t, 2, assignments.teacherCalls)
	assert.NoError(t, svc.InvalidateSchool(context.Background(), "school-a"))
}

func TestRosterServiceAdminCompilationSubjects(t *testing.T) {
	assignments := &countingAssignments{subjects: []models.Subject{newSubject("bio", "Biology"), newSubject("chm", "Chemistry")}}
	svc := NewRosterService(assignments, nil, time.Minute, nil)

	admin := models.RequestContext{TeacherID: "admin-1", SchoolID: "school-a", Role: models.RoleAdmin}
	subjects, err := svc.CompilationSubjects(context.Background(), admin, "class-1")
	require.NoError(t, err)
	assert.Len(t, subjects, 2)
	assert.Equal(t, 1, assignments.classCalls)
	assert.Zero(t, assignments.teacherCalls)
}

func TestRosterServiceWrapsStorageErrors(t *testing.T) {
	svc := NewRosterService(&countingAssignments{err: errStorage}, nil, time.Minute, nil)

	_, err := svc.CanAccessClass(context.Background(), teacherContext(), "class-1")
	assert.ErrorIs(t, err, appErrors.ErrInternal)
	_, err = svc.AssignedSubjects(context.Background(), teacherContext(), "class-1")
	assert.ErrorIs(t, err, appErrors.ErrInternal)
}
