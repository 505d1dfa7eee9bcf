// diff.go computes the minimal set of fields whose values differ between two
// row snapshots. Comparison is canonical and order-independent: values are
// reduced to plain JSON types before deep equality, so two semantically equal
// structured values never count as changed just because their serialization
// order differs.
package audit

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"
	"unicode"
)

// ignoredFields are bookkeeping columns excluded from change detection. An
// update touching only these produces an empty changed-field list.
var ignoredFields = map[string]struct{}{
	"updated_at": {},
	"updated_by": {},
}

// ChangedFields returns the keys whose values differ between old and new,
// excluding bookkeeping fields. Keys are matched case-convention-insensitively
// (updatedAt and updated_at are the same field) and the result is sorted for
// stable storage. Pure: no I/O, no shared state.
func ChangedFields(old, new map[string]any) []string {
	keys := make(map[string]struct{}, len(old)+len(new))
	for k := range old {
		keys[k] = struct{}{}
	}
	for k := range new {
		keys[k] = struct{}{}
	}

	changed := make([]string, 0, len(keys))
	for k := range keys {
		if _, skip := ignoredFields[NormalizeKey(k)]; skip {
			continue
		}
		if !canonicalEqual(old[k], new[k]) {
			changed = append(changed, k)
		}
	}
	sort.Strings(changed)
	return changed
}

// canonicalEqual reports whether a and b are structurally equal after
// canonicalisation. map iteration order and field serialization order never
// influence the result.
func canonicalEqual(a, b any) bool {
	return reflect.DeepEqual(canonicalize(a), canonicalize(b))
}

// canonicalize reduces v to plain JSON types: map[string]any, []any, float64,
// string, bool, nil. time.Time values are normalised to UTC so the same
// instant in different zones compares equal. []byte is parsed as JSON when
// possible (JSONB columns scan as raw bytes).
func canonicalize(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	case []byte:
		var parsed any
		if err := json.Unmarshal(t, &parsed); err == nil {
			return canonicalize(parsed)
		}
		return string(t)
	}

	raw, err := json.Marshal(v)
	if err != nil {
		// Non-serializable value; fall back to its printed form.
		return fmt.Sprintf("%v", v)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return string(raw)
	}
	return out
}

// NormalizeKey converts a field name to snake_case so history is queryable
// uniformly regardless of which code path produced the mutation (ORM-style
// camelCase structs and SQL snake_case columns name the same field).
func NormalizeKey(key string) string {
	var b strings.Builder
	b.Grow(len(key) + 4)
	prevLower := false
	for _, r := range key {
		if unicode.IsUpper(r) {
			if prevLower {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			prevLower = false
			continue
		}
		b.WriteRune(r)
		prevLower = unicode.IsLower(r) || unicode.IsDigit(r)
	}
	return b.String()
}
