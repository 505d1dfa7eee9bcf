// recorder.go assembles audit records from row snapshots and hands them to the
// durable writer. The recorder is the failure boundary of the audit engine:
// nothing that goes wrong while computing or persisting a record, including a
// panic, may propagate to the business mutation that triggered it.
package audit

import (
	"context"
	"log/slog"

	"github.com/agrocore/agrocore/internal/actor"
	"github.com/agrocore/agrocore/internal/telemetry"
)

// Recorder builds sanitized audit records and persists them via a Writer.
// Optional shippers mirror each committed record to external destinations.
type Recorder struct {
	writer   *Writer
	shippers []Shipper
}

// NewRecorder creates a Recorder backed by the given writer. Shippers, if
// any, receive a copy of every record after its durable write succeeds.
func NewRecorder(w *Writer, shippers ...Shipper) *Recorder {
	return &Recorder{writer: w, shippers: shippers}
}

// Record computes the diff between the old and new snapshots of one row,
// sanitizes both, and durably persists the resulting record. Actor identity
// and request metadata are read from ctx.
//
// Record never fails from the caller's perspective: errors are logged with
// table/record context and counted, then dropped. A missing audit record is
// preferable to a broken business operation.
func (r *Recorder) Record(ctx context.Context, table, recordID, action string, oldValues, newValues map[string]any) {
	if table == Table {
		// The audit store never audits itself.
		return
	}

	defer func() {
		if p := recover(); p != nil {
			telemetry.AuditWriteFailuresTotal.Inc()
			slog.Error("panic while recording audit entry",
				"table", table, "record_id", recordID, "action", action, "panic", p)
		}
	}()

	rec := r.build(ctx, table, recordID, action, oldValues, newValues)

	if err := r.writer.Persist(ctx, rec); err != nil {
		telemetry.AuditWriteFailuresTotal.Inc()
		slog.Error("failed to persist audit record",
			"table", table, "record_id", recordID, "action", action, "error", err)
		return
	}
	telemetry.AuditRecordsTotal.WithLabelValues(action, table).Inc()

	for _, s := range r.shippers {
		if err := s.Ship(ctx, rec); err != nil {
			telemetry.AuditShipFailuresTotal.Inc()
			slog.Error("failed to ship audit record",
				"table", table, "record_id", recordID, "action", action, "error", err)
		}
	}
}

// RecordManual is the helper for code paths that mutate rows with raw or bulk
// SQL, bypassing the lifecycle interceptor. Callers supply explicit old/new
// snapshots; the same sanitize and diff contract applies.
func (r *Recorder) RecordManual(ctx context.Context, table, recordID, action string, oldValues, newValues map[string]any) {
	r.Record(ctx, table, recordID, action, oldValues, newValues)
}

// build assembles the record. Changed fields are computed on the raw values
// (so a changed password still lists "password") but keyed through the same
// normalisation as the sanitized maps, keeping changedFields a subset of the
// stored keys; fields dropped by sanitization (relations) are dropped from
// the changed list too.
func (r *Recorder) build(ctx context.Context, table, recordID, action string, oldValues, newValues map[string]any) *Record {
	oldSan := Sanitize(oldValues)
	newSan := Sanitize(newValues)

	changed := ChangedFields(normalizeKeys(oldValues), normalizeKeys(newValues))
	changed = retainStored(changed, oldSan, newSan)

	rec := &Record{
		TableName:     table,
		RecordID:      recordID,
		Action:        action,
		OldValues:     oldSan,
		NewValues:     newSan,
		ChangedFields: changed,
		ActorID:       actor.IDPtr(ctx),
	}

	if info, ok := actor.RequestInfoFromContext(ctx); ok {
		if info.IPAddress != "" {
			ip := info.IPAddress
			rec.IPAddress = &ip
		}
		if info.UserAgent != "" {
			ua := info.UserAgent
			rec.UserAgent = &ua
		}
	}

	return rec
}

func normalizeKeys(values map[string]any) map[string]any {
	if values == nil {
		return nil
	}
	out := make(map[string]any, len(values))
	for k, v := range values {
		out[NormalizeKey(k)] = v
	}
	return out
}

// retainStored keeps only changed fields that survived sanitization in at
// least one snapshot.
func retainStored(changed []string, oldSan, newSan map[string]any) []string {
	out := changed[:0]
	for _, k := range changed {
		_, inOld := oldSan[k]
		_, inNew := newSan[k]
		if inOld || inNew {
			out = append(out, k)
		}
	}
	return out
}
