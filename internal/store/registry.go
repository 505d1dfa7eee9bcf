// Package store is the single mutation path for auditable business records.
// Every insert, update, soft-delete, and hard-delete flows through the
// Interceptor, which captures true pre-images, re-reads committed post-states
// by primary key, stamps attribution columns, and hands snapshots to the audit
// recorder. Repositories never commit a business mutation outside this
// package; raw/bulk SQL that must bypass it is required to call the manual
// audit helper instead.
package store

import "github.com/agrocore/agrocore/internal/audit"

// TableSpec declares one auditable table. Registration is explicit so audit
// coverage is statically verifiable: the interceptor rejects mutations against
// tables that are not listed here.
type TableSpec struct {
	// Name is the SQL table name. Only registry values ever reach query text,
	// never request input.
	Name string
	// PrimaryKey is the primary key column used for pre-image and post-commit
	// snapshot reads.
	PrimaryKey string
	// Attributed marks tables carrying created_by/updated_by/deactivated_by
	// columns for the attribution injector.
	Attributed bool
	// SoftDelete marks tables carrying is_active/deactivated_at.
	SoftDelete bool
}

// Registry holds the set of auditable tables.
type Registry struct {
	tables map[string]TableSpec
}

// NewRegistry builds a registry from the given specs. The audit store's own
// table is never registrable.
func NewRegistry(specs ...TableSpec) *Registry {
	r := &Registry{tables: make(map[string]TableSpec, len(specs))}
	for _, spec := range specs {
		if spec.Name == audit.Table {
			continue
		}
		r.tables[spec.Name] = spec
	}
	return r
}

// Lookup returns the spec for a table name.
func (r *Registry) Lookup(name string) (TableSpec, bool) {
	spec, ok := r.tables[name]
	return spec, ok
}

// DefaultTables lists every auditable business table. Adding a new entity
// means adding a row here; there is no framework-wide "listen to everything"
// default to silently miss.
func DefaultTables() []TableSpec {
	return []TableSpec{
		{Name: "companies", PrimaryKey: "id", Attributed: true, SoftDelete: true},
		{Name: "plants", PrimaryKey: "id", Attributed: true, SoftDelete: true},
		{Name: "partners", PrimaryKey: "id", Attributed: true, SoftDelete: true},
		{Name: "leads", PrimaryKey: "id", Attributed: true, SoftDelete: true},
		{Name: "users", PrimaryKey: "id", Attributed: true, SoftDelete: true},
	}
}
