package models

// Student is the roster view of a learner needed for ownership checks.
type Student struct {
	ID          string `db:"id" json:"id"`
	FullName    string `db:"full_name" json:"full_name"`
	AdmissionNo string `db:"admission_no" json:"admission_no"`
	ClassID     string `db:"class_id" json:"class_id"`
	SchoolID    string `db:"school_id" json:"school_id"`
}
