package models

import "time"

// MaxScore is the upper bound of every score component.
const MaxScore = 100.0

// ScoreSet holds the normalised score components of one result.
type ScoreSet struct {
	FirstCA  float64 `json:"first_ca"`
	SecondCA float64 `json:"second_ca"`
	Exam     float64 `json:"exam"`
	TotalCA  float64 `json:"total_ca"`
}

// Total is the subject total used when aggregating a compiled report.
func (s ScoreSet) Total() float64 {
	return s.TotalCA + s.Exam
}

// IsZero reports whether every component is exactly zero.
func (s ScoreSet) IsZero() bool {
	return s.FirstCA == 0 && s.SecondCA == 0 && s.Exam == 0
}

// ResultKey is the identity of a result row. Academic session is deliberately
// not part of it: a new session for the same term overwrites the row.
type ResultKey struct {
	StudentID string `db:"student_id" json:"student_id"`
	SubjectID string `db:"subject_id" json:"subject_id"`
	Term      string `db:"term" json:"term"`
	SchoolID  string `db:"school_id" json:"school_id"`
}

// Result is a per-(student, subject, term, school) score record.
type Result struct {
	ID              string     `db:"id" json:"id"`
	StudentID       string     `db:"student_id" json:"student_id"`
	SubjectID       string     `db:"subject_id" json:"subject_id"`
	Term            string     `db:"term" json:"term"`
	SchoolID        string     `db:"school_id" json:"school_id"`
	AcademicSession string     `db:"academic_session" json:"academic_session"`
	FirstCA         float64    `db:"first_ca" json:"first_ca"`
	SecondCA        float64    `db:"second_ca" json:"second_ca"`
	Exam            float64    `db:"exam" json:"exam"`
	TotalCA         float64    `db:"total_ca" json:"total_ca"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}

// NewResult builds a result for key from already normalised scores. TotalCA is
// always derived from the two CA components.
func NewResult(key ResultKey, session string, scores ScoreSet) Result {
	return Result{
		StudentID:       key.StudentID,
		SubjectID:       key.SubjectID,
		Term:            key.Term,
		SchoolID:        key.SchoolID,
		AcademicSession: session,
		FirstCA:         scores.FirstCA,
		SecondCA:        scores.SecondCA,
		Exam:            scores.Exam,
		TotalCA:         scores.FirstCA + scores.SecondCA,
	}
}

// Key returns the uniqueness tuple of the result.
func (r Result) Key() ResultKey {
	return ResultKey{StudentID: r.StudentID, SubjectID: r.SubjectID, Term: r.Term, SchoolID: r.SchoolID}
}

// Scores returns the score components of the result.
func (r Result) Scores() ScoreSet {
	return ScoreSet{FirstCA: r.FirstCA, SecondCA: r.SecondCA, Exam: r.Exam, TotalCA: r.TotalCA}
}

// ResultDetail is a result joined with student and subject display names.
type ResultDetail struct {
	Result
	StudentName string `db:"student_name" json:"student_name"`
	AdmissionNo string `db:"admission_no" json:"admission_no"`
	SubjectName string `db:"subject_name" json:"subject_name"`
}

// UpsertOutcome tells whether an upsert inserted or overwrote a row.
type UpsertOutcome string

const (
	UpsertCreated UpsertOutcome = "created"
	UpsertUpdated UpsertOutcome = "updated"
)

// UpsertSummary aggregates outcomes of a submission.
type UpsertSummary struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// Add records one upsert outcome.
func (s *UpsertSummary) Add(outcome UpsertOutcome) {
	switch outcome {
	case UpsertCreated:
		s.Created++
	case UpsertUpdated:
		s.Updated++
	}
}

// GradeBand is a derived letter grade and remark.
type GradeBand struct {
	Grade  string `json:"grade"`
	Remark string `json:"remark"`
}

// CompiledRecord is the derived per-student view for a term. It is never persisted.
type CompiledRecord struct {
	StudentID        string         `json:"student_id"`
	StudentName      string         `json:"student_name"`
	AdmissionNo      string         `json:"admission_no"`
	Results          []ResultDetail `json:"results"`
	SubjectsRecorded int            `json:"subjects_recorded"`
	IsCompiled       bool           `json:"is_compiled"`
	TotalScore       float64        `json:"total_score"`
	GrandTotal       float64        `json:"grand_total"`
	Grade            string         `json:"grade,omitempty"`
	Remark           string         `json:"remark,omitempty"`
}

// ClassCompilation is the compiled-results view for a class and term.
type ClassCompilation struct {
	ClassID              string           `json:"class_id"`
	Term                 string           `json:"term"`
	AssignedSubjectCount int              `json:"assigned_subject_count"`
	Compiled             []CompiledRecord `json:"compiled"`
	Pending              []CompiledRecord `json:"pending"`
}
