package audit

import "time"

// Change records one field's old and new value.
type Change struct {
	From any `json:"from"`
	To   any `json:"to"`
}

// Diff compares two entity snapshots field by field and returns only the
// fields whose value changed. It is a pure function: no I/O, no side
// effects. Lists compare order-sensitively; maps compare by key count and
// per-key values; time values are normalised to RFC3339 strings.
func Diff(oldDoc, newDoc map[string]any) map[string]Change {
	changes := map[string]Change{}

	for field, oldVal := range oldDoc {
		newVal, ok := newDoc[field]
		if !ok {
			changes[field] = Change{From: serialize(oldVal), To: nil}
			continue
		}
		if !valuesEqual(oldVal, newVal) {
			changes[field] = Change{From: serialize(oldVal), To: serialize(newVal)}
		}
	}
	for field, newVal := range newDoc {
		if _, ok := oldDoc[field]; !ok {
			changes[field] = Change{From: nil, To: serialize(newVal)}
		}
	}

	return changes
}

func valuesEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	switch av := a.(type) {
	case []string:
		bv, ok := b.([]string)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if av[i] != bv[i] {
				return false
			}
		}
		return true
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !valuesEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			bVal, present := bv[k]
			if !present || !valuesEqual(v, bVal) {
				return false
			}
		}
		return true
	case time.Time:
		bv, ok := b.(time.Time)
		return ok && av.Equal(bv)
	default:
		return a == b
	}
}

// serialize converts values to their stored representation. Dates become
// RFC3339 strings; everything else passes through.
func serialize(v any) any {
	if t, ok := v.(time.Time); ok {
		return t.UTC().Format(time.RFC3339)
	}
	return v
}
