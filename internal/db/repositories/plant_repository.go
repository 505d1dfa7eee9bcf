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

const plantsTable = "plants"

// PlantRepository handles plant database operations.
type PlantRepository struct {
	db    *sqlx.DB
	store *store.Interceptor
}

// NewPlantRepository creates a new PlantRepository.
func NewPlantRepository(db *sqlx.DB, st *store.Interceptor) *PlantRepository {
	return &PlantRepository{db: db, store: st}
}

// Create inserts a new plant.
func (r *PlantRepository) Create(ctx context.Context, plant *models.Plant) error {
	plant.ID = uuid.New().String()
	now := time.Now().UTC()
	plant.CreatedAt = now
	plant.UpdatedAt = now
	plant.IsActive = true

	_, err := r.store.Insert(ctx, plantsTable, func(tx *sqlx.Tx) (string, error) {
		query := `
			INSERT INTO plants (id, company_id, name, capacity_kw, location, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`
		_, err := tx.ExecContext(ctx, query,
			plant.ID,
			plant.CompanyID,
			plant.Name,
			plant.CapacityKW,
			plant.Location,
			plant.IsActive,
			plant.CreatedAt,
			plant.UpdatedAt,
		)
		return plant.ID, err
	})
	return err
}

const plantColumns = `id, company_id, name, capacity_kw, location, is_active, deactivated_at, created_by, updated_by, deactivated_by, created_at, updated_at`

// GetByID retrieves a plant by ID. Returns nil when no row exists.
func (r *PlantRepository) GetByID(ctx context.Context, id string) (*models.Plant, error) {
	query := `SELECT ` + plantColumns + ` FROM plants WHERE id = $1`

	plant := &models.Plant{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&plant.ID,
		&plant.CompanyID,
		&plant.Name,
		&plant.CapacityKW,
		&plant.Location,
		&plant.IsActive,
		&plant.DeactivatedAt,
		&plant.CreatedBy,
		&plant.UpdatedBy,
		&plant.DeactivatedBy,
		&plant.CreatedAt,
		&plant.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return plant, nil
}

// ListByCompany retrieves the active plants of one company.
func (r *PlantRepository) ListByCompany(ctx context.Context, companyID string) ([]*models.Plant, error) {
	query := `SELECT ` + plantColumns + ` FROM plants WHERE company_id = $1 AND is_active ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	plants := make([]*models.Plant, 0)
	for rows.Next() {
		plant := &models.Plant{}
		err := rows.Scan(
			&plant.ID,
			&plant.CompanyID,
			&plant.Name,
			&plant.CapacityKW,
			&plant.Location,
			&plant.IsActive,
			&plant.DeactivatedAt,
			&plant.CreatedBy,
			&plant.UpdatedBy,
			&plant.DeactivatedBy,
			&plant.CreatedAt,
			&plant.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		plants = append(plants, plant)
	}

	return plants, rows.Err()
}

// Update modifies a plant's domain fields.
func (r *PlantRepository) Update(ctx context.Context, plant *models.Plant) error {
	return r.store.Update(ctx, plantsTable, plant.ID, func(tx *sqlx.Tx) error {
		query := `
			UPDATE plants
			SET name = $1, capacity_kw = $2, location = $3, updated_at = NOW()
			WHERE id = $4
		`
		res, err := tx.ExecContext(ctx, query, plant.Name, plant.CapacityKW, plant.Location, plant.ID)
		if err != nil {
			return err
		}
		return requireRow(res)
	})
}

// Deactivate soft-deletes a plant.
func (r *PlantRepository) Deactivate(ctx context.Context, id string) error {
	return r.store.Deactivate(ctx, plantsTable, id, func(tx *sqlx.Tx) error {
		query := `
			UPDATE plants
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
func (r *PlantRepository) Reactivate(ctx context.Context, id string) error {
	return r.store.Reactivate(ctx, plantsTable, id, func(tx *sqlx.Tx) error {
		query := `
			UPDATE plants
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
