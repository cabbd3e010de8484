package models

import (
	"errors"
	"strings"
	"time"
)

// ComplaintStatus enumerates complaint states.
type ComplaintStatus string

const (
	ComplaintOpen     ComplaintStatus = "open"
	ComplaintResolved ComplaintStatus = "resolved"
)

var (
	// ErrEmptyResponse is returned when resolving without a teacher response.
	ErrEmptyResponse = errors.New("teacher response is required")
	// ErrAlreadyResolved is returned when a resolved complaint is resolved again.
	ErrAlreadyResolved = errors.New("complaint already resolved")
)

// Complaint is a student-raised objection attached to a result.
type Complaint struct {
	ID              string          `db:"id" json:"id"`
	ResultID        string          `db:"result_id" json:"result_id"`
	ComplaintText   string          `db:"complaint_text" json:"complaint_text"`
	Status          ComplaintStatus `db:"status" json:"status"`
	TeacherResponse *string         `db:"teacher_response" json:"teacher_response,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	ResolvedAt      *time.Time      `db:"resolved_at" json:"resolved_at,omitempty"`
}

// Resolve applies the single open -> resolved transition.
func (c *Complaint) Resolve(response string, now time.Time) error {
	if c.Status == ComplaintResolved {
		return ErrAlreadyResolved
	}
	response = strings.TrimSpace(response)
	if response == "" {
		return ErrEmptyResponse
	}
	c.Status = ComplaintResolved
	c.TeacherResponse = &response
	c.ResolvedAt = &now
	return nil
}

// ComplaintDetail joins a complaint with the scope of its result.
type ComplaintDetail struct {
	Complaint
	StudentID   string `db:"student_id" json:"student_id"`
	StudentName string `db:"student_name" json:"student_name"`
	ClassID     string `db:"class_id" json:"class_id"`
	SubjectID   string `db:"subject_id" json:"subject_id"`
	SubjectName string `db:"subject_name" json:"subject_name"`
	SchoolID    string `db:"school_id" json:"school_id"`
	Term        string `db:"term" json:"term"`
}

// ComplaintFilter scopes complaint listings.
type ComplaintFilter struct {
	SchoolID string
	ClassID  string
	Status   ComplaintStatus
}
