// Package repositories implements the data access layer (repository pattern).
// Each repository type encapsulates all database queries for a domain entity.
// Handlers never issue SQL directly, and repositories never commit a mutation
// of an auditable table outside the store.Interceptor; that single choke
// point is what guarantees every create/update/delete produces an audit record
// and carries actor attribution.
package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/agrocore/agrocore/internal/db/models"
	"github.com/agrocore/agrocore/internal/store"
)

// ErrNotFound is returned by mutations whose target row does not exist (or is
// already in the requested state, e.g. deactivating an inactive record).
var ErrNotFound = errors.New("repositories: record not found")

const companiesTable = "companies"

// CompanyRepository handles company database operations.
type CompanyRepository struct {
	db    *sqlx.DB
	store *store.Interceptor
}

// NewCompanyRepository creates a new CompanyRepository.
func NewCompanyRepository(db *sqlx.DB, st *store.Interceptor) *CompanyRepository {
	return &CompanyRepository{db: db, store: st}
}

// Create inserts a new company.
func (r *CompanyRepository) Create(ctx context.Context, company *models.Company) error {
	company.ID = uuid.New().String()
	now := time.Now().UTC()
	company.CreatedAt = now
	company.UpdatedAt = now
	company.IsActive = true

	_, err := r.store.Insert(ctx, companiesTable, func(tx *sqlx.Tx) (string, error) {
		query := `
			INSERT INTO companies (id, code, name, tax_id, city, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`
		_, err := tx.ExecContext(ctx, query,
			company.ID,
			company.Code,
			company.Name,
			company.TaxID,
			company.City,
			company.IsActive,
			company.CreatedAt,
			company.UpdatedAt,
		)
		return company.ID, err
	})
	return err
}

const companyColumns = `id, code, name, tax_id, city, is_active, deactivated_at, created_by, updated_by, deactivated_by, created_at, updated_at`

// GetByID retrieves a company by ID. Returns nil when no row exists.
func (r *CompanyRepository) GetByID(ctx context.Context, id string) (*models.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies WHERE id = $1`

	company := &models.Company{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&company.ID,
		&company.Code,
		&company.Name,
		&company.TaxID,
		&company.City,
		&company.IsActive,
		&company.DeactivatedAt,
		&company.CreatedBy,
		&company.UpdatedBy,
		&company.DeactivatedBy,
		&company.CreatedAt,
		&company.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return company, nil
}

// List retrieves companies, active only unless includeInactive is set.
func (r *CompanyRepository) List(ctx context.Context, includeInactive bool) ([]*models.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies`
	if !includeInactive {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	companies := make([]*models.Company, 0)
	for rows.Next() {
		company := &models.Company{}
		err := rows.Scan(
			&company.ID,
			&company.Code,
			&company.Name,
			&company.TaxID,
			&company.City,
			&company.IsActive,
			&company.DeactivatedAt,
			&company.CreatedBy,
			&company.UpdatedBy,
			&company.DeactivatedBy,
			&company.CreatedAt,
			&company.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		companies = append(companies, company)
	}

	return companies, rows.Err()
}

// Update modifies a company's domain fields.
func (r *CompanyRepository) Update(ctx context.Context, company *models.Company) error {
	return r.store.Update(ctx, companiesTable, company.ID, func(tx *sqlx.Tx) error {
		query := `
			UPDATE companies
			SET code = $1, name = $2, tax_id = $3, city = $4, updated_at = NOW()
			WHERE id = $5
		`
		res, err := tx.ExecContext(ctx, query,
			company.Code,
			company.Name,
			company.TaxID,
			company.City,
			company.ID,
		)
		if err != nil {
			return err
		}
		return requireRow(res)
	})
}

// Deactivate soft-deletes a company.
func (r *CompanyRepository) Deactivate(ctx context.Context, id string) error {
	return r.store.Deactivate(ctx, companiesTable, id, func(tx *sqlx.Tx) error {
		query := `
			UPDATE companies
			SET is_active = FALSE, deactivated_at = NOW(), updated_at = NOW()
			WHERE id = $1 AND is_active
		`
		res, err := tx.ExecContext(ctx, query, id)
		if err != nil {
			return err
		}
		return requireRow(res)
	})
}

// Reactivate reverses a soft delete.
func (r *CompanyRepository) Reactivate(ctx context.Context, id string) error {
	return r.store.Reactivate(ctx, companiesTable, id, func(tx *sqlx.Tx) error {
		query := `
			UPDATE companies
			SET is_active = TRUE, deactivated_at = NULL, updated_at = NOW()
			WHERE id = $1 AND NOT is_active
		`
		res, err := tx.ExecContext(ctx, query, id)
		if err != nil {
			return err
		}
		return requireRow(res)
	})
}

// Delete removes a company row permanently.
func (r *CompanyRepository) Delete(ctx context.Context, id string) error {
	return r.store.Delete(ctx, companiesTable, id, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM companies WHERE id = $1`, id)
		if err != nil {
			return err
		}
		return requireRow(res)
	})
}

// requireRow maps "zero rows affected" to ErrNotFound so mutation fns abort
// the transaction before any audit record is produced for a no-op.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
