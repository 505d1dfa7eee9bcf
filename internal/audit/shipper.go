// shipper.go mirrors committed audit records to external destinations. The
// database remains the authoritative trail; shipping is a best-effort side
// channel for SIEM ingestion or offline archival, running after the durable
// write and under the same failure policy: ship errors are logged and counted,
// never surfaced to the business operation.
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"
)

// Shipper forwards one committed audit record to a destination.
type Shipper interface {
	Ship(ctx context.Context, rec *Record) error
	Close() error
}

// shippedRecord is the wire form of a Record. Pointers collapse to omitted
// fields so consumers never see explicit nulls for absent attribution.
type shippedRecord struct {
	ID            string         `json:"id"`
	TableName     string         `json:"table_name"`
	RecordID      string         `json:"record_id"`
	Action        string         `json:"action"`
	OldValues     map[string]any `json:"old_values,omitempty"`
	NewValues     map[string]any `json:"new_values,omitempty"`
	ChangedFields []string       `json:"changed_fields"`
	ActorID       *string        `json:"actor_id,omitempty"`
	IPAddress     *string        `json:"ip_address,omitempty"`
	UserAgent     *string        `json:"user_agent,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

func marshalRecord(rec *Record) ([]byte, error) {
	return json.Marshal(shippedRecord{
		ID:            rec.ID,
		TableName:     rec.TableName,
		RecordID:      rec.RecordID,
		Action:        rec.Action,
		OldValues:     rec.OldValues,
		NewValues:     rec.NewValues,
		ChangedFields: rec.ChangedFields,
		ActorID:       rec.ActorID,
		IPAddress:     rec.IPAddress,
		UserAgent:     rec.UserAgent,
		CreatedAt:     rec.CreatedAt,
	})
}

// WebhookShipper POSTs each record as JSON to a configured endpoint.
type WebhookShipper struct {
	url     string
	headers map[string]string
	client  *http.Client
}

// NewWebhookShipper creates a webhook shipper. A zero timeout defaults to 10s.
func NewWebhookShipper(url string, headers map[string]string, timeout time.Duration) *WebhookShipper {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookShipper{
		url:     url,
		headers: headers,
		client:  &http.Client{Timeout: timeout},
	}
}

// Ship POSTs the record. Any status >= 400 counts as failure.
func (ws *WebhookShipper) Ship(ctx context.Context, rec *Record) error {
	data, err := marshalRecord(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ws.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range ws.headers {
		req.Header.Set(k, v)
	}

	resp, err := ws.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// Close is a no-op; the HTTP client holds no resources worth waiting on.
func (ws *WebhookShipper) Close() error { return nil }

// FileShipper appends records as JSON lines to a local file, one record per
// line. Rotation is left to logrotate or the container runtime.
type FileShipper struct {
	mu   sync.Mutex
	file *os.File
}

// NewFileShipper opens (or creates) the file in append mode.
func NewFileShipper(path string) (*FileShipper, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("open audit record file: %w", err)
	}
	return &FileShipper{file: file}, nil
}

// Ship appends one JSON line.
func (fs *FileShipper) Ship(_ context.Context, rec *Record) error {
	data, err := marshalRecord(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()
	if _, err := fs.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}

// Close closes the underlying file.
func (fs *FileShipper) Close() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.file.Close()
}
