// interceptor.go wraps every business mutation in its own transaction and
// surrounds it with the audit lifecycle:
//
//	pre-image read (committed state, by PK)
//	→ business SQL inside a fresh transaction
//	→ attribution stamping inside the same transaction
//	→ commit
//	→ post-state re-read (committed state, by PK, never the in-memory entity)
//	→ diff, sanitize, durable audit write on an independent connection
//
// The post-commit re-read is what keeps diffs correct for bulk and
// query-builder updates, where in-memory values go stale. Snapshot or audit
// failures after commit are logged and swallowed; the business mutation's
// outcome is already decided and is never affected.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/agrocore/agrocore/internal/audit"
)

// ErrUnregisteredTable is returned when a mutation targets a table missing
// from the registry. This is a programming error surfaced loudly so audit
// coverage gaps cannot creep in silently.
var ErrUnregisteredTable = errors.New("store: table is not registered for auditing")

// Interceptor is the lifecycle hook around all auditable mutations.
type Interceptor struct {
	db       *sqlx.DB
	registry *Registry
	recorder *audit.Recorder
}

// NewInterceptor creates an Interceptor. Attach it once and route every
// repository mutation through it.
func NewInterceptor(db *sqlx.DB, registry *Registry, recorder *audit.Recorder) *Interceptor {
	return &Interceptor{db: db, registry: registry, recorder: recorder}
}

// Insert runs fn inside a new transaction; fn performs the INSERT and returns
// the new row's primary key. After commit the committed row is re-read and an
// INSERT audit record is written.
func (it *Interceptor) Insert(ctx context.Context, table string, fn func(tx *sqlx.Tx) (string, error)) (string, error) {
	spec, ok := it.registry.Lookup(table)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnregisteredTable, table)
	}

	var id string
	err := it.inTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		id, err = fn(tx)
		if err != nil {
			return err
		}
		return it.stampInsert(ctx, tx, spec, id)
	})
	if err != nil {
		return "", err
	}

	newValues := it.snapshot(ctx, spec, id)
	it.recorder.Record(ctx, table, id, audit.ActionInsert, nil, newValues)
	return id, nil
}

// Update captures the committed pre-image, runs fn inside a new transaction,
// stamps updated_by, commits, re-reads the committed row, and records an
// UPDATE. If the re-read finds no row (a concurrent hard delete won the race)
// a DELETE record with no new values is written instead.
func (it *Interceptor) Update(ctx context.Context, table, id string, fn func(tx *sqlx.Tx) error) error {
	return it.mutate(ctx, table, id, fn, func(tx *sqlx.Tx, spec TableSpec) error {
		return it.stampUpdate(ctx, tx, spec, id)
	}, audit.ActionUpdate)
}

// Deactivate performs a soft delete: fn marks the row inactive, the injector
// stamps deactivated_by, and the mutation is recorded as DELETE with both old
// and new snapshots (the deletion marker distinguishes it from a hard delete).
func (it *Interceptor) Deactivate(ctx context.Context, table, id string, fn func(tx *sqlx.Tx) error) error {
	return it.mutate(ctx, table, id, fn, func(tx *sqlx.Tx, spec TableSpec) error {
		return it.stampDeactivate(ctx, tx, spec, id)
	}, audit.ActionDelete)
}

// Reactivate reverses a soft delete: fn clears the deletion marker and the
// injector clears deactivated_by. Recorded as an UPDATE whose changed fields
// show the is_active transition.
func (it *Interceptor) Reactivate(ctx context.Context, table, id string, fn func(tx *sqlx.Tx) error) error {
	return it.mutate(ctx, table, id, fn, func(tx *sqlx.Tx, spec TableSpec) error {
		return it.stampReactivate(ctx, tx, spec, id)
	}, audit.ActionUpdate)
}

// Delete performs a hard delete. The pre-image is captured before fn removes
// the row; the record carries old values only. deactivated_by is stamped
// before fn runs, while the row still exists, so soft and hard deletes carry
// the same attribution.
func (it *Interceptor) Delete(ctx context.Context, table, id string, fn func(tx *sqlx.Tx) error) error {
	spec, ok := it.registry.Lookup(table)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnregisteredTable, table)
	}

	oldValues := it.snapshot(ctx, spec, id)

	err := it.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := it.stampDeactivate(ctx, tx, spec, id); err != nil {
			return err
		}
		return fn(tx)
	})
	if err != nil {
		return err
	}

	it.recorder.Record(ctx, table, id, audit.ActionDelete, oldValues, nil)
	return nil
}

// mutate is the shared pre-read / tx / stamp / post-read / record sequence for
// update-shaped operations.
func (it *Interceptor) mutate(ctx context.Context, table, id string, fn func(tx *sqlx.Tx) error, stamp func(tx *sqlx.Tx, spec TableSpec) error, action string) error {
	spec, ok := it.registry.Lookup(table)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnregisteredTable, table)
	}

	oldValues := it.snapshot(ctx, spec, id)

	err := it.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := fn(tx); err != nil {
			return err
		}
		return stamp(tx, spec)
	})
	if err != nil {
		return err
	}

	newValues := it.snapshot(ctx, spec, id)
	if newValues == nil {
		// Row vanished between commit and re-read: a concurrent hard delete
		// raced this mutation. Record the terminal state rather than failing.
		it.recorder.Record(ctx, table, id, audit.ActionDelete, oldValues, nil)
		return nil
	}

	it.recorder.Record(ctx, table, id, action, oldValues, newValues)
	return nil
}

func (it *Interceptor) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := it.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			slog.Warn("transaction rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// snapshot reads the committed row by primary key as a generic field map.
// Read failures are an audit concern, not a business one: they are logged and
// reported as an absent snapshot.
func (it *Interceptor) snapshot(ctx context.Context, spec TableSpec, id string) map[string]any {
	// Identifiers come from the static registry, never from request input.
	query := fmt.Sprintf(`SELECT * FROM %s WHERE %s = $1`, spec.Name, spec.PrimaryKey)

	row := it.db.QueryRowxContext(ctx, query, id)
	values := map[string]any{}
	if err := row.MapScan(values); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			slog.Error("audit snapshot read failed", "table", spec.Name, "record_id", id, "error", err)
		}
		return nil
	}
	return values
}
