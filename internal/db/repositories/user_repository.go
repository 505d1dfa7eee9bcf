// user_repository.go handles account storage. The stored Password column is a
// bcrypt hash produced by the auth package; it still travels through the audit
// engine's snapshot reads, which is exactly why the sanitizer redacts it
// before any audit payload is persisted.
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

const usersTable = "users"

// UserRepository handles user database operations.
type UserRepository struct {
	db    *sqlx.DB
	store *store.Interceptor
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *sqlx.DB, st *store.Interceptor) *UserRepository {
	return &UserRepository{db: db, store: st}
}

// Create inserts a new user. Password must already be hashed.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	user.ID = uuid.New().String()
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	user.IsActive = true
	if user.Role == "" {
		user.Role = models.RoleMember
	}

	_, err := r.store.Insert(ctx, usersTable, func(tx *sqlx.Tx) (string, error) {
		query := `
			INSERT INTO users (id, email, name, password, role, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`
		_, err := tx.ExecContext(ctx, query,
			user.ID,
			user.Email,
			user.Name,
			user.Password,
			user.Role,
			user.IsActive,
			user.CreatedAt,
			user.UpdatedAt,
		)
		return user.ID, err
	})
	return err
}

const userColumns = `id, email, name, password, role, is_active, deactivated_at, created_by, updated_by, deactivated_by, created_at, updated_at`

func scanUser(row interface{ Scan(...interface{}) error }) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.Password,
		&user.Role,
		&user.IsActive,
		&user.DeactivatedAt,
		&user.CreatedBy,
		&user.UpdatedBy,
		&user.DeactivatedBy,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetByID retrieves a user by ID. Returns nil when no row exists.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

// GetByEmail retrieves a user by email. Returns nil when no row exists.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

// Update modifies a user's profile fields.
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	return r.store.Update(ctx, usersTable, user.ID, func(tx *sqlx.Tx) error {
		query := `
			UPDATE users
			SET email = $1, name = $2, role = $3, updated_at = NOW()
			WHERE id = $4
		`
		res, err := tx.ExecContext(ctx, query, user.Email, user.Name, user.Role, user.ID)
		if err != nil {
			return err
		}
		return requireRow(res)
	})
}

// SetPassword replaces a user's password hash. Audited like any other update;
// the sanitizer guarantees the hash never appears in the stored diff.
func (r *UserRepository) SetPassword(ctx context.Context, id, passwordHash string) error {
	return r.store.Update(ctx, usersTable, id, func(tx *sqlx.Tx) error {
		query := `UPDATE users SET password = $1, updated_at = NOW() WHERE id = $2`
		res, err := tx.ExecContext(ctx, query, passwordHash, id)
		if err != nil {
			return err
		}
		return requireRow(res)
	})
}

// Deactivate soft-deletes a user.
func (r *UserRepository) Deactivate(ctx context.Context, id string) error {
	return r.store.Deactivate(ctx, usersTable, id, func(tx *sqlx.Tx) error {
		query := `
			UPDATE users
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
func (r *UserRepository) Reactivate(ctx context.Context, id string) error {
	return r.store.Reactivate(ctx, usersTable, id, func(tx *sqlx.Tx) error {
		query := `
			UPDATE users
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
