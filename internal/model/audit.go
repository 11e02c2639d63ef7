package model

import "time"

// AuditAction names the kind of state mutation an audit entry records.
type AuditAction string

// Audit action constants.
const (
	AuditCreate AuditAction = "create"
	AuditUpdate AuditAction = "update"
	AuditLink   AuditAction = "link"
)

// AuditEntry is one line of the append-only audit log. Every state-mutating
// operation in the engine writes one; entries are never updated or deleted.
type AuditEntry struct {
	Timestamp time.Time
	ID        string
	Entity    string
	EntityID  string
	Before    string
	After     string
	Notes     string
	Action    AuditAction
	Source    RecordSource
}
