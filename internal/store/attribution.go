// attribution.go is the attribution injector: inside the business transaction,
// after the repository's own SQL and before commit, it stamps the acting
// user's id onto the entity's attribution columns. Because stamping happens
// before the interceptor's post-commit re-read, the stamped fields are
// themselves visible inside the audit diff.
//
// created_by is written exactly once at insert and never changed again;
// updated_by on every mutation; deactivated_by on the active→inactive
// transition, and cleared again on reactivation. When no actor is bound
// (system jobs, seeds, migrations) every stamp is a no-op and the columns stay
// unset.
package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/agrocore/agrocore/internal/actor"
)

func (it *Interceptor) stampInsert(ctx context.Context, tx *sqlx.Tx, spec TableSpec, id string) error {
	actorID, ok := attributable(ctx, spec)
	if !ok {
		return nil
	}
	query := fmt.Sprintf(`UPDATE %s SET created_by = $1, updated_by = $1 WHERE %s = $2`, spec.Name, spec.PrimaryKey)
	if _, err := tx.ExecContext(ctx, query, actorID, id); err != nil {
		return fmt.Errorf("stamp attribution on insert: %w", err)
	}
	return nil
}

func (it *Interceptor) stampUpdate(ctx context.Context, tx *sqlx.Tx, spec TableSpec, id string) error {
	actorID, ok := attributable(ctx, spec)
	if !ok {
		return nil
	}
	query := fmt.Sprintf(`UPDATE %s SET updated_by = $1 WHERE %s = $2`, spec.Name, spec.PrimaryKey)
	if _, err := tx.ExecContext(ctx, query, actorID, id); err != nil {
		return fmt.Errorf("stamp attribution on update: %w", err)
	}
	return nil
}

func (it *Interceptor) stampDeactivate(ctx context.Context, tx *sqlx.Tx, spec TableSpec, id string) error {
	actorID, ok := attributable(ctx, spec)
	if !ok {
		return nil
	}
	query := fmt.Sprintf(`UPDATE %s SET deactivated_by = $1, updated_by = $1 WHERE %s = $2`, spec.Name, spec.PrimaryKey)
	if _, err := tx.ExecContext(ctx, query, actorID, id); err != nil {
		return fmt.Errorf("stamp attribution on deactivate: %w", err)
	}
	return nil
}

func (it *Interceptor) stampReactivate(ctx context.Context, tx *sqlx.Tx, spec TableSpec, id string) error {
	if !spec.Attributed {
		return nil
	}
	// deactivated_by is cleared unconditionally on reactivation; updated_by is
	// stamped only when an actor is bound.
	actorID, ok := actor.FromContext(ctx)
	if !ok {
		query := fmt.Sprintf(`UPDATE %s SET deactivated_by = NULL WHERE %s = $1`, spec.Name, spec.PrimaryKey)
		if _, err := tx.ExecContext(ctx, query, id); err != nil {
			return fmt.Errorf("clear attribution on reactivate: %w", err)
		}
		return nil
	}
	query := fmt.Sprintf(`UPDATE %s SET deactivated_by = NULL, updated_by = $1 WHERE %s = $2`, spec.Name, spec.PrimaryKey)
	if _, err := tx.ExecContext(ctx, query, actorID, id); err != nil {
		return fmt.Errorf("clear attribution on reactivate: %w", err)
	}
	return nil
}

// attributable reports whether the table carries attribution columns and an
// actor is bound to the context.
func attributable(ctx context.Context, spec TableSpec) (string, bool) {
	if !spec.Attributed {
		return "", false
	}
	return actor.FromContext(ctx)
}
