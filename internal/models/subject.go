package models

// Subject represents an academic subject offered by a school.
type Subject struct {
	ID       string `db:"id" json:"id"`
	Name     string `db:"name" json:"name"`
	Code     string `db:"code" json:"code"`
	SchoolID string `db:"school_id" json:"school_id"`
}
