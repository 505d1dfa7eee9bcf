package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/agrocore/agrocore/internal/db/models"
	"github.com/agrocore/agrocore/internal/store"
)

const partnersTable = "partners"

// PartnerRepository handles partner database operations.
type PartnerRepository struct {
	db    *sqlx.DB
	store *store.Interceptor
}

// NewPartnerRepository creates a new PartnerRepository.
func NewPartnerRepository(db *sqlx.DB, st *store.Interceptor) *PartnerRepository {
	return &PartnerRepository{db: db, store: st}
}

// Create inserts a new partner.
func (r *PartnerRepository) Create(ctx context.Context, partner *models.Partner) error {
	partner.ID = uuid.New().String()
	now := time.Now().UTC()
	partner.CreatedAt = now
	partner.UpdatedAt = now
	partner.IsActive = true

	_, err := r.store.Insert(ctx, partnersTable, func(tx *sqlx.Tx) (string, error) {
		query := `
			INSERT INTO partners (id, name, contact_email, phone, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`
		_, err := tx.ExecContext(ctx, query,
			partner.ID,
			partner.Name,
			partner.ContactEmail,
			partner.Phone,
			partner.IsActive,
			partner.CreatedAt,
			partner.UpdatedAt,
		)
		return partner.ID, err
	})
	return err
}

const partnerColumns = `id, name, contact_email, phone, is_active, deactivated_at, created_by, updated_by, deactivated_by, created_at, updated_at`

// GetByID retrieves a partner by ID. Returns nil when no row exists.
func (r *PartnerRepository) GetByID(ctx context.Context, id string) (*models.Partner, error) {
	query := `SELECT ` + partnerColumns + ` FROM partners WHERE id = $1`

	partner := &models.Partner{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&partner.ID,
		&partner.Name,
		&partner.ContactEmail,
		&partner.Phone,
		&partner.IsActive,
		&partner.DeactivatedAt,
		&partner.CreatedBy,
		&partner.UpdatedBy,
		&partner.DeactivatedBy,
		&partner.CreatedAt,
		&partner.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return partner, nil
}

// Update modifies a partner's domain fields.
func (r *PartnerRepository) Update(ctx context.Context, partner *models.Partner) error {
	return r.store.Update(ctx, partnersTable, partner.ID, func(tx *sqlx.Tx) error {
		query := `
			UPDATE partners
			SET name = $1, contact_email = $2, phone = $3, updated_at = NOW()
			WHERE id = $4
		`
		res, err := tx.ExecContext(ctx, query, partner.Name, partner.ContactEmail, partner.Phone, partner.ID)
		if err != nil {
			return err
		}
		return requireRow(res)
	})
}

// Deactivate soft-deletes a partner.
func (r *PartnerRepository) Deactivate(ctx context.Context, id string) error {
	return r.store.Deactivate(ctx, partnersTable, id, func(tx *sqlx.Tx) error {
		query := `
			UPDATE partners
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
func (r *PartnerRepository) Reactivate(ctx context.Context, id string) error {
	return r.store.Reactivate(ctx, partnersTable, id, func(tx *sqlx.Tx) error {
		query := `
			UPDATE partners
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
