// sanitize.go redacts sensitive values and strips loaded relation objects from
// row snapshots before they are stored. Sanitization happens before storage,
// never after: a secret that reaches the audit store in plaintext cannot be
// un-leaked.
package audit

// Redacted replaces the value of any sensitive field.
const Redacted = "[REDACTED]"

// sensitiveFields, keyed by normalised (snake_case) name.
var sensitiveFields = map[string]struct{}{
	"password":      {},
	"token":         {},
	"secret":        {},
	"access_token":  {},
	"refresh_token": {},
}

// Sanitize returns a copy of values safe for storage: keys normalised to
// snake_case, values canonicalised to plain JSON types, sensitive values
// replaced with the redaction marker, and relation-shaped values dropped
// entirely. Only scalar and foreign-key columns are recorded; nested object
// graphs would be unbounded, possibly circular, and stale the moment the
// relation changes. Returns nil for nil input so absent snapshots stay absent.
//
// Canonicalisation matters for storage, not just comparison: row snapshots
// come from the driver, and lib/pq scans text, uuid, and jsonb columns as
// []byte, which encoding/json would otherwise store as base64.
func Sanitize(values map[string]any) map[string]any {
	if values == nil {
		return nil
	}
	out := make(map[string]any, len(values))
	for k, v := range values {
		key := NormalizeKey(k)
		if _, sensitive := sensitiveFields[key]; sensitive {
			out[key] = Redacted
			continue
		}
		cv := canonicalize(v)
		if isRelation(cv) {
			continue
		}
		out[key] = cv
	}
	return out
}

// isRelation reports whether v looks like a loaded relation object: a
// structured value carrying its own identifier plus at least one more
// property. v is already canonical, so dates arrive as strings and jsonb
// blobs as maps.
func isRelation(v any) bool {
	m, ok := v.(map[string]any)
	if !ok || len(m) < 2 {
		return false
	}
	for k := range m {
		if NormalizeKey(k) == "id" {
			return true
		}
	}
	return false
}
