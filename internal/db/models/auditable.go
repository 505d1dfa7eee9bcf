// Package models defines the persisted business entities. Every auditable
// entity embeds Auditable, which carries the soft-delete marker and the actor
// attribution columns stamped by the store's attribution injector.
package models

import "time"

// Auditable holds the lifecycle and attribution columns shared by all
// auditable entities.
//
// CreatedBy is set exactly once at insert time and never changed again.
// UpdatedBy is set on every subsequent mutation. DeactivatedBy is set on the
// active→inactive transition and cleared on reactivation. All three stay nil
// for system-initiated writes.
type Auditable struct {
	IsActive      bool
	DeactivatedAt *time.Time
	CreatedBy     *string
	UpdatedBy     *string
	DeactivatedBy *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Deactivated reports whether the entity is currently soft-deleted.
func (a *Auditable) Deactivated() bool {
	return !a.IsActive
}
