// audit_repository.go is the read side of the append-only audit store:
// filtered listing, per-record history, and per-actor history, all newest
// first. Writes go exclusively through the audit.Writer on its own connection;
// this repository deliberately exposes no insert, update, or delete.
package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/agrocore/agrocore/internal/audit"
)

// MaxAuditPageSize caps list responses so response size stays bounded
// regardless of store growth.
const MaxAuditPageSize = 100

// AuditRepository handles audit trail queries.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// AuditFilters contains optional filters for querying the audit trail.
type AuditFilters struct {
	TableName *string
	Action    *string
	ActorID   *string
	RecordID  *string
}

const auditColumns = `id, table_name, record_id, action, old_values, new_values, changed_fields, actor_id, ip_address, user_agent, created_at`

// ListAuditLogs retrieves audit records matching the filters, newest first,
// capped at MaxAuditPageSize.
func (r *AuditRepository) ListAuditLogs(ctx context.Context, filters AuditFilters, limit int) ([]*audit.Record, error) {
	if limit <= 0 || limit > MaxAuditPageSize {
		limit = MaxAuditPageSize
	}

	query := `SELECT ` + auditColumns + ` FROM audit_logs WHERE 1=1`
	args := make([]interface{}, 0, 5)
	paramIndex := 1

	if filters.TableName != nil {
		query += fmt.Sprintf(` AND table_name = $%d`, paramIndex)
		args = append(args, *filters.TableName)
		paramIndex++
	}
	if filters.Action != nil {
		query += fmt.Sprintf(` AND action = $%d`, paramIndex)
		args = append(args, *filters.Action)
		paramIndex++
	}
	if filters.ActorID != nil {
		query += fmt.Sprintf(` AND actor_id = $%d`, paramIndex)
		args = append(args, *filters.ActorID)
		paramIndex++
	}
	if filters.RecordID != nil {
		query += fmt.Sprintf(` AND record_id = $%d`, paramIndex)
		args = append(args, *filters.RecordID)
		paramIndex++
	}

	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, paramIndex)
	args = append(args, limit)

	return r.queryRecords(ctx, query, args...)
}

// History retrieves the full change history of one record, newest first.
// Unbounded within the key: a single record's history is assumed to stay
// reviewable in one response.
func (r *AuditRepository) History(ctx context.Context, tableName, recordID string) ([]*audit.Record, error) {
	query := `SELECT ` + auditColumns + ` FROM audit_logs WHERE table_name = $1 AND record_id = $2 ORDER BY created_at DESC`
	return r.queryRecords(ctx, query, tableName, recordID)
}

// HistoryByActor retrieves the most recent mutations attributed to one actor,
// newest first, capped at MaxAuditPageSize.
func (r *AuditRepository) HistoryByActor(ctx context.Context, actorID string) ([]*audit.Record, error) {
	query := `SELECT ` + auditColumns + ` FROM audit_logs WHERE actor_id = $1 ORDER BY created_at DESC LIMIT $2`
	return r.queryRecords(ctx, query, actorID, MaxAuditPageSize)
}

func (r *AuditRepository) queryRecords(ctx context.Context, query string, args ...interface{}) ([]*audit.Record, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]*audit.Record, 0)
	for rows.Next() {
		rec := &audit.Record{}
		var oldJSON, newJSON, changedJSON []byte

		err := rows.Scan(
			&rec.ID,
			&rec.TableName,
			&rec.RecordID,
			&rec.Action,
			&oldJSON,
			&newJSON,
			&changedJSON,
			&rec.ActorID,
			&rec.IPAddress,
			&rec.UserAgent,
			&rec.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		if oldJSON != nil {
			if err := json.Unmarshal(oldJSON, &rec.OldValues); err != nil {
				return nil, err
			}
		}
		if newJSON != nil {
			if err := json.Unmarshal(newJSON, &rec.NewValues); err != nil {
				return nil, err
			}
		}
		if changedJSON != nil {
			if err := json.Unmarshal(changedJSON, &rec.ChangedFields); err != nil {
				return nil, err
			}
		}

		records = append(records, rec)
	}

	return records, rows.Err()
}
