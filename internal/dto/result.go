package dto

// Submission actions accepted by the form-style results endpoint.
const (
	ActionSaveBatchResults     = "save_batch_results"
	ActionSaveSingleResult     = "save_single_result"
	ActionSaveMultipleSubjects = "save_multiple_subjects"
	ActionDeleteResult         = "delete_result"
	ActionDeleteStudentResults = "delete_student_results"
	ActionResolveComplaint     = "resolve_complaint"
)

// RawScores carries the unparsed score inputs of one subject as submitted.
type RawScores struct {
	FirstCA  string `json:"first_ca" form:"first_ca"`
	SecondCA string `json:"second_ca" form:"second_ca"`
	Exam     string `json:"exam" form:"exam"`
}

// PairKey identifies a (student, subject) cell of a batch submission.
type PairKey struct {
	StudentID string
	SubjectID string
}

// SingleResultRequest saves one (student, subject) result.
type SingleResultRequest struct {
	StudentID       string `json:"student_id" form:"student_id" validate:"required"`
	SubjectID       string `json:"subject_id" form:"subject_id" validate:"required"`
	Term            string `json:"term" form:"term" validate:"required"`
	AcademicSession string `json:"academic_session" form:"academic_session" validate:"required"`
	RawScores
}

// BatchResultRequest saves scores for selected students across every subject the
// teacher is assigned for the class.
type BatchResultRequest struct {
	ClassID         string                `json:"class_id" validate:"required"`
	Term            string                `json:"term" validate:"required"`
	AcademicSession string                `json:"academic_session" validate:"required"`
	StudentIDs      []string              `json:"student_ids" validate:"required,min=1,dive,required"`
	Scores          map[PairKey]RawScores `json:"-"`
}

// MultiSubjectEntry is the raw input for one subject of a multi-subject submission.
// Attempted, when set, overrides the all-zero skip rule.
type MultiSubjectEntry struct {
	RawScores
	Attempted *bool `json:"attempted,omitempty"`
}

// MultiSubjectRequest saves one student's scores across the teacher's assigned subjects.
type MultiSubjectRequest struct {
	StudentID       string                       `json:"student_id" validate:"required"`
	Term            string                       `json:"term" validate:"required"`
	AcademicSession string                       `json:"academic_session" validate:"required"`
	Subjects        map[string]MultiSubjectEntry `json:"subjects"`
}

// DeleteResultRequest removes one result inside a class scope.
type DeleteResultRequest struct {
	ResultID string `json:"result_id" form:"result_id" validate:"required"`
	ClassID  string `json:"class_id" form:"class_id" validate:"required"`
}

// DeleteStudentResultsRequest resets a student's results for a term.
type DeleteStudentResultsRequest struct {
	StudentID string `json:"student_id" form:"student_id" validate:"required"`
	Term      string `json:"term" form:"term" validate:"required"`
}

// ResolveComplaintRequest answers and closes a complaint.
type ResolveComplaintRequest struct {
	ComplaintID string `json:"complaint_id" form:"complaint_id" validate:"required"`
	Response    string `json:"response" form:"response" validate:"required"`
}

// SubmissionResult is returned by every mutating action.
type SubmissionResult struct {
	Action  string `json:"action"`
	Message string `json:"message"`
	Created int    `json:"created"`
	Updated int    `json:"updated"`
	Skipped int    `json:"skipped"`
	Deleted int64  `json:"deleted"`
}

// ResultListQuery scopes read endpoints.
type ResultListQuery struct {
	ClassID string `form:"classId" validate:"required"`
	Term    string `form:"term" validate:"required"`
}
