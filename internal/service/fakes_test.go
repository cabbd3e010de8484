package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/noah-isme/sma-results-api/internal/models"
)

type fakeResultStore struct {
	rows     map[models.ResultKey]models.Result
	students map[string]models.Student
	subjects map[string]string
	nextID   int
	failWith error
	batches  int
}

func newFakeResultStore() *fakeResultStore {
	return &fakeResultStore{
		rows:     make(map[models.ResultKey]models.Result),
		students: make(map[string]models.Student),
		subjects: make(map[string]string),
	}
}

func (f *fakeResultStore) Upsert(ctx context.Context, result *models.Result) (models.UpsertOutcome, error) {
	if f.failWith != nil {
		return "", f.failWith
	}
	key := result.Key()
	if existing, ok := f.rows[key]; ok {
		now := time.Now().UTC()
		existing.FirstCA, existing.SecondCA, existing.Exam, existing.TotalCA = result.FirstCA, result.SecondCA, result.Exam, result.TotalCA
		existing.AcademicSession = result.AcademicSession
		existing.UpdatedAt = &now
		f.rows[key] = existing
		*result = existing
		return models.UpsertUpdated, nil
	}
	f.nextID++
	result.ID = fmt.Sprintf("result-%d", f.nextID)
	result.CreatedAt = time.Now().UTC()
	f.rows[key] = *result
	return models.UpsertCreated, nil
}

func (f *fakeResultStore) UpsertBatch(ctx context.Context, results []models.Result) (models.UpsertSummary, error) {
	f.batches++
	var summary models.UpsertSummary
	if f.failWith != nil {
		return summary, f.failWith
	}
	for i := range results {
		outcome, err := f.Upsert(ctx, &results[i])
		if err != nil {
			return models.UpsertSummary{}, err
		}
		summary.Add(outcome)
	}
	return summary, nil
}

func (f *fakeResultStore) DeleteByID(ctx context.Context, schoolID, classID, id string) error {
	for key, row := range f.rows {
		if row.ID == id && row.SchoolID == schoolID && f.students[row.StudentID].ClassID == classID {
			delete(f.rows, key)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (f *fakeResultStore) DeleteByStudentAndTerm(ctx context.Context, schoolID, studentID, term string) (int64, error) {
	if f.failWith != nil {
		return 0, f.failWith
	}
	var deleted int64
	for key := range f.rows {
		if key.SchoolID == schoolID && key.StudentID == studentID && key.Term == term {
			delete(f.rows, key)
			deleted++
		}
	}
	return deleted, nil
}

func (f *fakeResultStore) ListByClassAndTerm(ctx context.Context, schoolID, classID, term string) ([]models.ResultDetail, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	var out []models.ResultDetail
	for key, row := range f.rows {
		student := f.students[key.StudentID]
		if key.SchoolID != schoolID || key.Term != term || student.ClassID != classID {
			continue
		}
		out = append(out, models.ResultDetail{
			Result:      row,
			StudentName: student.FullName,
			AdmissionNo: student.AdmissionNo,
			SubjectName: f.subjects[key.SubjectID],
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StudentName != out[j].StudentName {
			return out[i].StudentName < out[j].StudentName
		}
		return out[i].SubjectName < out[j].SubjectName
	})
	return out, nil
}

func (f *fakeResultStore) seed(key models.ResultKey, scores models.ScoreSet) {
	result := models.NewResult(key, "2023/2024", scores)
	_, _ = f.Upsert(context.Background(), &result)
}

type fakeStudents struct {
	byID map[string]models.Student
}

func newFakeStudents(students ...models.Student) *fakeStudents {
	f := &fakeStudents{byID: make(map[string]models.Student)}
	for _, st := range students {
		f.byID[st.ID] = st
	}
	return f
}

func (f *fakeStudents) FindByID(ctx context.Context, schoolID, id string) (*models.Student, error) {
	st, ok := f.byID[id]
	if !ok || st.SchoolID != schoolID {
		return nil, sql.ErrNoRows
	}
	return &st, nil
}

func (f *fakeStudents) FindByIDs(ctx context.Context, schoolID string, ids []string) ([]models.Student, error) {
	var out []models.Student
	for _, id := range ids {
		if st, ok := f.byID[id]; ok && st.SchoolID == schoolID {
			out = append(out, st)
		}
	}
	return out, nil
}

func (f *fakeStudents) ListByClass(ctx context.Context, schoolID, classID string) ([]models.Student, error) {
	out := make([]models.Student, 0)
	for _, st := range f.byID {
		if st.SchoolID == schoolID && st.ClassID == classID {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, nil
}

type fakeRoster struct {
	subjects      map[string][]models.Subject
	classSubjects map[string][]models.Subject
	classAccess   map[string]bool
	subjectAccess map[string]bool
	err           error
}

func newFakeRoster() *fakeRoster {
	return &fakeRoster{
		subjects:      make(map[string][]models.Subject),
		classSubjects: make(map[string][]models.Subject),
		classAccess:   make(map[string]bool),
		subjectAccess: make(map[string]bool),
	}
}

// assign grants the teacher the subjects in classID.
func (f *fakeRoster) assign(classID string, subjects ...models.Subject) {
	f.subjects[classID] = append(f.subjects[classID], subjects...)
	f.classSubjects[classID] = append(f.classSubjects[classID], subjects...)
	f.classAccess[classID] = true
	for _, subject := range subjects {
		f.subjectAccess[classID+"/"+subject.ID] = true
	}
}

func (f *fakeRoster) AssignedSubjects(ctx context.Context, rc models.RequestContext, classID string) ([]models.Subject, error) {
	return f.subjects[classID], f.err
}

func (f *fakeRoster) CompilationSubjects(ctx context.Context, rc models.RequestContext, classID string) ([]models.Subject, error) {
	if rc.IsAdmin() {
		return f.classSubjects[classID], f.err
	}
	return f.subjects[classID], f.err
}

func (f *fakeRoster) CanAccessClass(ctx context.Context, rc models.RequestContext, classID string) (bool, error) {
	return f.classAccess[classID], f.err
}

func (f *fakeRoster) CanRecordSubject(ctx context.Context, rc models.RequestContext, classID, subjectID string) (bool, error) {
	return f.subjectAccess[classID+"/"+subjectID], f.err
}

var errStorage = errors.New("connection refused")

func teacherContext() models.RequestContext {
	return models.RequestContext{TeacherID: "teacher-1", SchoolID: "school-a", Role: models.RoleTeacher}
}

func newSubject(id, name string) models.Subject {
	return models.Subject{ID: id, Name: name, SchoolID: "school-a"}
}

func newStudent(id, name, classID, schoolID string) models.Student {
	return models.Student{ID: id, FullName: name, AdmissionNo: "ADM-" + id, ClassID: classID, SchoolID: schoolID}
}
