// Package audit implements the change-audit engine: computing minimal sanitized
// diffs of entity mutations and durably persisting them as immutable records.
// Records are written on a connection independent of the business transaction
// being audited, so neither side can roll the other back. Audit failures are
// logged and swallowed; they never surface to the operation that triggered
// them.
package audit

import "time"

// Actions recorded for a mutation. Soft deletes and hard deletes both map to
// ActionDelete; they are distinguished by the presence of new values.
const (
	ActionInsert = "INSERT"
	ActionUpdate = "UPDATE"
	ActionDelete = "DELETE"
)

// Table is the audit store's own table name. Mutations of this table are
// never audited; the recursion guard in the recorder and the lifecycle
// interceptor both key off it.
const Table = "audit_logs"

// Record is one immutable audit entry. Rows in the audit store are append-only:
// nothing in the system ever updates or deletes them.
type Record struct {
	ID            string
	TableName     string
	RecordID      string
	Action        string // INSERT, UPDATE, or DELETE
	OldValues     map[string]any
	NewValues     map[string]any
	ChangedFields []string
	ActorID       *string // nil for system-initiated mutations
	IPAddress     *string
	UserAgent     *string
	CreatedAt     time.Time
}
