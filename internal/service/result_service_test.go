package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-results-api/internal/dto"
	"github.com/noah-isme/sma-results-api/internal/models"
	appErrors "github.com/noah-isme/sma-results-api/pkg/errors"
)

type resultFixture struct {
	store    *fakeResultStore
	students *fakeStudents
	roster   *fakeRoster
	svc      *ResultService
}

func newResultFixture() *resultFixture {
	store := newFakeResultStore()
	students := newFakeStudents(
		newStudent("s-1", "Ada Obi", "class-1", "school-a"),
		newStudent("s-2", "Bola Ade", "class-1", "school-a"),
		newStudent("s-3", "Chidi Eze", "class-2", "school-a"),
		newStudent("s-b", "Dayo Ige", "class-1", "school-b"),
	)
	for id, st := range students.byID {
		store.students[id] = st
	}
	roster := newFakeRoster()
	roster.assign("class-1", newSubject("bio", "Biology"), newSubject("chm", "Chemistry"), newSubject("eng", "English"))
	svc := NewResultService(store, students, roster, NewMetricsService(), validator.New(), zap.NewNop())
	return &resultFixture{store: store, students: students, roster: roster, svc: svc}
}

func singleRequest(first, second, exam string) dto.SingleResultRequest {
	return dto.SingleResultRequest{
		StudentID:       "s-1",
		SubjectID:       "bio",
		Term:            "first term",
		AcademicSession: "2024/2025",
		RawScores:       dto.RawScores{FirstCA: first, SecondCA: second, Exam: exam},
	}
}

func TestSaveSingleIsIdempotent(t *testing.T) {
	f := newResultFixture()
	ctx := context.Background()

	res, err := f.svc.SaveSingle(ctx, teacherContext(), singleRequest("10", "12", "50"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)

	res, err = f.svc.SaveSingle(ctx, teacherContext(), singleRequest("10", "12", "50"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, "Result updated", res.Message)

	require.Len(t, f.store.rows, 1)
	row := f.store.rows[models.ResultKey{StudentID: "s-1", SubjectID: "bio", Term: TermFirst, SchoolID: "school-a"}]
	assert.Equal(t, models.ScoreSet{FirstCA: 10, SecondCA: 12, Exam: 50, TotalCA: 22}, row.Scores())
}

func TestSaveSingleOverwritesScoresAndClamps(t *testing.T) {
	f := newResultFixture()
	ctx := context.Background()

	_, err := f.svc.SaveSingle(ctx, teacherContext(), singleRequest("10", "12", "50"))
	require.NoError(t, err)
	req := singleRequest("-4", "150", "61.5")
	req.AcademicSession = "2025/2026"
	_, err = f.svc.SaveSingle(ctx, teacherContext(), req)
	require.NoError(t, err)

	require.Len(t, f.store.rows, 1)
	for _, row := range f.store.rows {
		assert.Equal(t, 0.0, row.FirstCA)
		assert.Equal(t, 100.0, row.SecondCA)
		assert.Equal(t, 61.5, row.Exam)
		assert.Equal(t, row.FirstCA+row.SecondCA, row.TotalCA)
		assert.Equal(t, "2025/2026", row.AcademicSession)
		assert.NotNil(t, row.UpdatedAt)
	}
}

func TestSaveSingleValidationListsMissingFields(t *testing.T) {
	f := newResultFixture()

	_, err := f.svc.SaveSingle(context.Background(), teacherContext(), dto.SingleResultRequest{Term: "1st Term"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.ElementsMatch(t, []string{"student_id is required", "subject_id is required", "academic_session is required"}, appErr.Details)
	assert.Empty(t, f.store.rows)
}

func TestSaveSingleRejectsCrossSchoolStudent(t *testing.T) {
	f := newResultFixture()
	req := singleRequest("10", "10", "10")
	req.StudentID = "s-b"

	_, err := f.svc.SaveSingle(context.Background(), teacherContext(), req)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
	assert.Empty(t, f.store.rows)
}

func TestSaveSingleRejectsUnassignedSubject(t *testing.T) {
	f := newResultFixture()
	req := singleRequest("10", "10", "10")
	req.SubjectID = "math"

	_, err := f.svc.SaveSingle(context.Background(), teacherContext(), req)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestSaveSingleRequiresRequestContext(t *testing.T) {
	f := newResultFixture()

	_, err := f.svc.SaveSingle(context.Background(), models.RequestContext{TeacherID: "teacher-1"}, singleRequest("1", "1", "1"))
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestSaveSingleStorageFailureIsGeneric(t *testing.T) {
	f := newResultFixture()
	f.store.failWith = errStorage

	_, err := f.svc.SaveSingle(context.Background(), teacherContext(), singleRequest("1", "1", "1"))
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErr.Code)
	assert.NotContains(t, appErr.Message, "connection refused")
}

func TestSaveBatchReportsNewAndUpdated(t *testing.T) {
	f := newResultFixture()
	key := func(studentID, subjectID string) models.ResultKey {
		return models.ResultKey{StudentID: studentID, SubjectID: subjectID, Term: TermFirst, SchoolID: "school-a"}
	}
	f.store.seed(key("s-1", "bio"), models.ScoreSet{FirstCA: 1})
	f.store.seed(key("s-1", "chm"), models.ScoreSet{FirstCA: 1})
	f.store.seed(key("s-1", "eng"), models.ScoreSet{FirstCA: 1})
	f.store.seed(key("s-2", "bio"), models.ScoreSet{FirstCA: 1})

	req := dto.BatchResultRequest{
		ClassID:         "class-1",
		Term:            "1st",
		AcademicSession: "2024/2025",
		StudentIDs:      []string{"s-1", "s-2", "s-1"},
		Scores: map[dto.PairKey]dto.RawScores{
			{StudentID: "s-1", SubjectID: "bio"}: {FirstCA: "18", SecondCA: "17", Exam: "55"},
			{StudentID: "s-2", SubjectID: "eng"}: {FirstCA: "9", SecondCA: "8", Exam: "40"},
		},
	}
	res, err := f.svc.SaveBatch(context.Background(), teacherContext(), req)
	require.NoError(t, err)
	assert.Equal(t, "2 new, 4 updated", res.Message)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, 4, res.Updated)
	assert.Len(t, f.store.rows, 6)
	assert.Equal(t, 35.0, f.store.rows[key("s-1", "bio")].TotalCA)
	assert.Equal(t, models.ScoreSet{}, f.store.rows[key("s-2", "chm")].Scores())
}

func TestSaveBatchRejectsWholeSubmissionForForeignStudents(t *testing.T) {
	f := newResultFixture()
	req := dto.BatchResultRequest{
		ClassID:         "class-1",
		Term:            "1st Term",
		AcademicSession: "2024/2025",
		StudentIDs:      []string{"s-1", "s-3", "s-b"},
	}

	_, err := f.svc.SaveBatch(context.Background(), teacherContext(), req)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
	assert.Equal(t, []string{
		"student s-3 does not belong to this class",
		"student s-b does not belong to this school",
	}, appErr.Details)
	assert.Empty(t, f.store.rows)
	assert.Zero(t, f.store.batches)
}

func TestSaveBatchWithoutAssignedSubjects(t *testing.T) {
	f := newResultFixture()
	req := dto.BatchResultRequest{ClassID: "class-2", Term: "1st Term", AcademicSession: "2024/2025", StudentIDs: []string{"s-3"}}

	_, err := f.svc.SaveBatch(context.Background(), teacherContext(), req)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestSaveBatchValidation(t *testing.T) {
	f := newResultFixture()

	_, err := f.svc.SaveBatch(context.Background(), teacherContext(), dto.BatchResultRequest{ClassID: "class-1", Term: "1st Term"})
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Contains(t, appErr.Details, "academic_session is required")
}

func TestSaveBatchRejectsBlankStudentIDs(t *testing.T) {
	f := newResultFixture()
	req := dto.BatchResultRequest{ClassID: "class-1", Term: "1st Term", AcademicSession: "2024/2025", StudentIDs: []string{" ", "  "}}

	_, err := f.svc.SaveBatch(context.Background(), teacherContext(), req)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Equal(t, []string{"student_ids is required"}, appErr.Details)
	assert.Empty(t, f.store.rows)
	assert.Zero(t, f.store.batches)
}

func TestSaveMultiSubjectSkipsUnattemptedSubjects(t *testing.T) {
	f := newResultFixture()
	f.roster.assign("class-1", newSubject("geo", "Geography"), newSubject("phy", "Physics"))

	req := dto.MultiSubjectRequest{
		StudentID:       "s-1",
		Term:            "Term 1",
		AcademicSession: "2024/2025",
		Subjects: map[string]dto.MultiSubjectEntry{
			"bio": {RawScores: dto.RawScores{FirstCA: "10", SecondCA: "10", Exam: "50"}},
			"chm": {RawScores: dto.RawScores{FirstCA: "0", SecondCA: "0", Exam: "0"}},
			"eng": {RawScores: dto.RawScores{FirstCA: "5"}},
			"geo": {RawScores: dto.RawScores{FirstCA: "", SecondCA: "", Exam: ""}},
			"phy": {RawScores: dto.RawScores{Exam: "70"}},
		},
	}
	res, err := f.svc.SaveMultiSubject(context.Background(), teacherContext(), req)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Created)
	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, "3 new, 0 updated, 2 skipped", res.Message)
	assert.Len(t, f.store.rows, 3)
	_, written := f.store.rows[models.ResultKey{StudentID: "s-1", SubjectID: "chm", Term: TermFirst, SchoolID: "school-a"}]
	assert.False(t, written)
}

func TestSaveMultiSubjectAttemptedFlagOverridesZeroRule(t *testing.T) {
	f := newResultFixture()
	yes, no := true, false

	req := dto.MultiSubjectRequest{
		StudentID:       "s-1",
		Term:            "1st Term",
		AcademicSession: "2024/2025",
		Subjects: map[string]dto.MultiSubjectEntry{
			"bio": {Attempted: &yes},
			"chm": {RawScores: dto.RawScores{Exam: "80"}, Attempted: &no},
		},
	}
	res, err := f.svc.SaveMultiSubject(context.Background(), teacherContext(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 2, res.Skipped)
	row := f.store.rows[models.ResultKey{StudentID: "s-1", SubjectID: "bio", Term: TermFirst, SchoolID: "school-a"}]
	assert.True(t, row.Scores().IsZero())
}

func TestSaveMultiSubjectRejectsUnassignedSubject(t *testing.T) {
	f := newResultFixture()
	req := dto.MultiSubjectRequest{
		StudentID:       "s-1",
		Term:            "1st Term",
		AcademicSession: "2024/2025",
		Subjects:        map[string]dto.MultiSubjectEntry{"art": {RawScores: dto.RawScores{Exam: "50"}}},
	}

	_, err := f.svc.SaveMultiSubject(context.Background(), teacherContext(), req)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
	assert.Equal(t, []string{"subject art is not assigned to you for this class"}, appErr.Details)
	assert.Empty(t, f.store.rows)
}

func TestDeleteResult(t *testing.T) {
	f := newResultFixture()
	_, err := f.svc.SaveSingle(context.Background(), teacherContext(), singleRequest("1", "2", "3"))
	require.NoError(t, err)
	var id string
	for _, row := range f.store.rows {
		id = row.ID
	}

	_, err = f.svc.DeleteResult(context.Background(), teacherContext(), dto.DeleteResultRequest{ResultID: "missing", ClassID: "class-1"})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = f.svc.DeleteResult(context.Background(), teacherContext(), dto.DeleteResultRequest{ResultID: id, ClassID: "class-2"})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	res, err := f.svc.DeleteResult(context.Background(), teacherContext(), dto.DeleteResultRequest{ResultID: id, ClassID: "class-1"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.Deleted)
	assert.Empty(t, f.store.rows)
}

func TestDeleteStudentTermIsSchoolScoped(t *testing.T) {
	f := newResultFixture()
	f.store.seed(models.ResultKey{StudentID: "s-1", SubjectID: "bio", Term: TermFirst, SchoolID: "school-a"}, models.ScoreSet{Exam: 40})
	f.store.seed(models.ResultKey{StudentID: "s-1", SubjectID: "chm", Term: TermFirst, SchoolID: "school-a"}, models.ScoreSet{Exam: 40})
	f.store.seed(models.ResultKey{StudentID: "s-1", SubjectID: "bio", Term: TermSecond, SchoolID: "school-a"}, models.ScoreSet{Exam: 40})

	res, err := f.svc.DeleteStudentTerm(context.Background(), teacherContext(), dto.DeleteStudentResultsRequest{StudentID: "s-1", Term: "first"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.Deleted)
	assert.Len(t, f.store.rows, 1)

	otherSchool := models.RequestContext{TeacherID: "admin-b", SchoolID: "school-b", Role: models.RoleAdmin}
	_, err = f.svc.DeleteStudentTerm(context.Background(), otherSchool, dto.DeleteStudentResultsRequest{StudentID: "s-1", Term: "2nd Term"})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.Len(t, f.store.rows, 1)
}

func TestDeleteStudentTermRequiresClassAccessForTeachers(t *testing.T) {
	f := newResultFixture()

	_, err := f.svc.DeleteStudentTerm(context.Background(), teacherContext(), dto.DeleteStudentResultsRequest{StudentID: "s-3", Term: "1st Term"})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	admin := models.RequestContext{TeacherID: "admin-1", SchoolID: "school-a", Role: models.RoleAdmin}
	res, err := f.svc.DeleteStudentTerm(context.Background(), admin, dto.DeleteStudentResultsRequest{StudentID: "s-3", Term: "1st Term"})
	require.NoError(t, err)
	assert.EqualValues(t, 0, res.Deleted)
}
