package models

import "time"

// Audit actions recorded for result mutations.
const (
	AuditActionResultSave       = "RESULT_SAVE"
	AuditActionResultDelete     = "RESULT_DELETE"
	AuditActionStudentTermReset = "STUDENT_TERM_RESET"
	AuditActionComplaintResolve = "COMPLAINT_RESOLVE"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	SchoolID   string    `db:"school_id" json:"school_id"`
	ActorID    *string   `db:"actor_id" json:"actor_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	Payload    []byte    `db:"payload" json:"payload,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
