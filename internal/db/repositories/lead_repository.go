// lead_repository.go handles the sales-lead funnel. CloseStale is the one
// deliberate bulk/raw path in the codebase: it mutates many rows in a single
// statement, which bypasses the lifecycle interceptor, so it captures per-row
// snapshots itself and reports each mutation through the recorder's manual
// helper, the contract every raw-SQL path must honour.
package repositories

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/agrocore/agrocore/internal/audit"
	"github.com/agrocore/agrocore/internal/db/models"
	"github.com/agrocore/agrocore/internal/store"
)

const leadsTable = "leads"

// LeadRepository handles lead database operations.
type LeadRepository struct {
	db       *sqlx.DB
	store    *store.Interceptor
	recorder *audit.Recorder
}

// NewLeadRepository creates a new LeadRepository.
func NewLeadRepository(db *sqlx.DB, st *store.Interceptor, recorder *audit.Recorder) *LeadRepository {
	return &LeadRepository{db: db, store: st, recorder: recorder}
}

// Create inserts a new lead.
func (r *LeadRepository) Create(ctx context.Context, lead *models.Lead) error {
	lead.ID = uuid.New().String()
	now := time.Now().UTC()
	lead.CreatedAt = now
	lead.UpdatedAt = now
	lead.IsActive = true
	if lead.Status == "" {
		lead.Status = models.LeadStatusNew
	}

	_, err := r.store.Insert(ctx, leadsTable, func(tx *sqlx.Tx) (string, error) {
		query := `
			INSERT INTO leads (id, company_name, contact_name, email, status, notes, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`
		_, err := tx.ExecContext(ctx, query,
			lead.ID,
			lead.CompanyName,
			lead.ContactName,
			lead.Email,
			lead.Status,
			lead.Notes,
			lead.IsActive,
			lead.CreatedAt,
			lead.UpdatedAt,
		)
		return lead.ID, err
	})
	return err
}

const leadColumns = `id, company_name, contact_name, email, status, notes, is_active, deactivated_at, created_by, updated_by, deactivated_by, created_at, updated_at`

// GetByID retrieves a lead by ID. Returns nil when no row exists.
func (r *LeadRepository) GetByID(ctx context.Context, id string) (*models.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id = $1`

	lead := &models.Lead{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&lead.ID,
		&lead.CompanyName,
		&lead.ContactName,
		&lead.Email,
		&lead.Status,
		&lead.Notes,
		&lead.IsActive,
		&lead.DeactivatedAt,
		&lead.CreatedBy,
		&lead.UpdatedBy,
		&lead.DeactivatedBy,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return lead, nil
}

// UpdateStatus advances a lead through the funnel.
func (r *LeadRepository) UpdateStatus(ctx context.Context, id, status string) error {
	return r.store.Update(ctx, leadsTable, id, func(tx *sqlx.Tx) error {
		query := `UPDATE leads SET status = $1, updated_at = NOW() WHERE id = $2`
		res, err := tx.ExecContext(ctx, query, status, id)
		if err != nil {
			return err
		}
		return requireRow(res)
	})
}

// Deactivate soft-deletes a lead.
func (r *LeadRepository) Deactivate(ctx context.Context, id string) error {
	return r.store.Deactivate(ctx, leadsTable, id, func(tx *sqlx.Tx) error {
		query := `
			UPDATE leads
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

// CloseStale marks every open lead untouched since the cutoff as lost, in one
// bulk statement, and manually audits each affected row. Returns the number of
// leads closed.
func (r *LeadRepository) CloseStale(ctx context.Context, cutoff time.Time) (int, error) {
	// Capture pre-images of the rows the bulk update will hit.
	preQuery := `SELECT ` + leadColumns + ` FROM leads WHERE is_active AND status IN ($1, $2, $3) AND updated_at < $4`
	rows, err := r.db.QueryxContext(ctx, preQuery,
		models.LeadStatusNew, models.LeadStatusContacted, models.LeadStatusQualified, cutoff)
	if err != nil {
		return 0, err
	}
	preImages := make(map[string]map[string]any)
	for rows.Next() {
		values := map[string]any{}
		if err := rows.MapScan(values); err != nil {
			rows.Close()
			return 0, err
		}
		// lib/pq scans uuid columns as []byte.
		switch id := values["id"].(type) {
		case string:
			preImages[id] = values
		case []byte:
			preImages[string(id)] = values
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}
	if len(preImages) == 0 {
		return 0, nil
	}

	bulk := `
		UPDATE leads
		SET status = $1, updated_at = NOW()
		WHERE is_active AND status IN ($2, $3, $4) AND updated_at < $5
	`
	if _, err := r.db.ExecContext(ctx, bulk, models.LeadStatusLost,
		models.LeadStatusNew, models.LeadStatusContacted, models.LeadStatusQualified, cutoff); err != nil {
		return 0, err
	}

	// Re-read each affected row and report the mutation manually; the bulk
	// statement never went through the interceptor.
	for id, old := range preImages {
		values := map[string]any{}
		row := r.db.QueryRowxContext(ctx, `SELECT * FROM leads WHERE id = $1`, id)
		if err := row.MapScan(values); err != nil {
			if !errors.Is(err, sql.ErrNoRows) {
				slog.Error("stale lead re-read failed", "record_id", id, "error", err)
			}
			// Missing post-image maps to a DELETE record with no new values,
			// matching the interceptor's re-read-miss handling.
			r.recorder.RecordManual(ctx, leadsTable, id, audit.ActionDelete, old, nil)
			continue
		}
		r.recorder.RecordManual(ctx, leadsTable, id, audit.ActionUpdate, old, values)
	}

	return len(preImages), nil
}
