// writer.go durably persists audit records. Each write runs on a dedicated
// connection checked out from the pool for just that write, so the record
// commits independently of the business transaction being audited: a rollback
// of the business operation cannot erase the trail, and a failed audit insert
// cannot abort the business operation.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Writer persists audit records to the append-only audit_logs table.
type Writer struct {
	db *sqlx.DB
}

// NewWriter creates a Writer on the given pool. The pool is shared with the
// rest of the application; isolation comes from checking out a dedicated
// connection per write, not from a separate pool.
func NewWriter(db *sqlx.DB) *Writer {
	return &Writer{db: db}
}

// Persist inserts the record on its own connection and releases the connection
// on all exit paths. Synchronous: when Persist returns nil the record is
// committed and visible. There is no retry; the caller's failure policy is to
// log and drop.
func (w *Writer) Persist(ctx context.Context, rec *Record) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	oldJSON, err := marshalValues(rec.OldValues)
	if err != nil {
		return fmt.Errorf("marshal old values: %w", err)
	}
	newJSON, err := marshalValues(rec.NewValues)
	if err != nil {
		return fmt.Errorf("marshal new values: %w", err)
	}
	changedJSON, err := json.Marshal(rec.ChangedFields)
	if err != nil {
		return fmt.Errorf("marshal changed fields: %w", err)
	}

	conn, err := w.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire audit connection: %w", err)
	}
	defer conn.Close()

	query := `
		INSERT INTO audit_logs (id, table_name, record_id, action, old_values, new_values, changed_fields, actor_id, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err = conn.ExecContext(ctx, query,
		rec.ID,
		rec.TableName,
		rec.RecordID,
		rec.Action,
		oldJSON,
		newJSON,
		changedJSON,
		rec.ActorID,
		rec.IPAddress,
		rec.UserAgent,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}

	return nil
}

// marshalValues serialises a value map to JSONB, keeping nil maps as SQL NULL
// so absent snapshots stay absent.
func marshalValues(values map[string]any) ([]byte, error) {
	if values == nil {
		return nil, nil
	}
	return json.Marshal(values)
}
