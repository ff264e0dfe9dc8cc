package delta

import "strconv"

// slot is an addressable location inside a value tree: get reads the
// current value, set replaces it, and del removes it from its parent
// (nil when the location has no concept of removal, e.g. the root or a
// sequence index — deletion only applies to object attributes).
type slot struct {
	get func() any
	set func(any)
	del func()
}

// splitLast splits a dotted path into its parent path and final segment.
// splitLast("") is never called by resolveSlot directly for attribute
// writes; splitLast("foo") returns ("", "foo").
func splitLast(path string) (parent, key string) {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '.' {
			return path[:i], path[i+1:]
		}
	}

	return "", path
}

// resolveSlot addresses the container *at* path (push/append/prepend/pop/
// splice semantics — operate on the container itself, not on an attribute
// named by the last path segment). Pass "" for the root. When create is
// true, absent intermediate objects are materialized as empty
// map[string]any, matching $set's "creates intermediates" rule; sequence
// indices are never auto-created (an absent array index is simply
// unaddressable).
func resolveSlot(root *any, path string, create bool) (slot, bool) {
	if path == "" {
		return slot{
			get: func() any { return *root },
			set: func(v any) { *root = v },
			del: nil,
		}, true
	}

	parentPath, key := splitLast(path)

	parentSlot, ok := resolveSlot(root, parentPath, create)
	if !ok {
		return slot{}, false
	}

	parentVal := parentSlot.get()

	switch p := parentVal.(type) {
	case map[string]any:
		return slot{
			get: func() any { return p[key] },
			set: func(v any) { p[key] = v },
			del: func() { delete(p, key) },
		}, true

	case []any:
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 0 || idx >= len(p) {
			return slot{}, false
		}

		return slot{
			get: func() any { return p[idx] },
			set: func(v any) { p[idx] = v },
			del: nil,
		}, true

	case nil:
		if !create {
			return slot{}, false
		}

		nv := map[string]any{}
		parentSlot.set(nv)

		return slot{
			get: func() any { return nv[key] },
			set: func(v any) { nv[key] = v },
			del: func() { delete(nv, key) },
		}, true

	default:
		return slot{}, false
	}
}

// DeepClone recursively copies map[string]any and []any nodes so Apply
// never mutates its input. Every other value — including the data model's
// opaque leaves (time.Time, *regexp.Regexp, *big.Int) and already-replaced
// container snapshots (sets, ordered maps) — is copied by reference/value
// as-is; the algebra never recurses into them (§3 "opaque leaves").
//
// Exported so callers outside this package that hold the same
// map[string]any/[]any record trees (the collection coordinator's item
// registry) can get real isolation between copies instead of a shallow
// top-level-only copy.
func DeepClone(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = DeepClone(vv)
		}

		return out

	case []any:
		out := make([]any, len(t))
		for i, vv := range t {
			out[i] = DeepClone(vv)
		}

		return out

	default:
		return v
	}
}

// toInt coerces a splice argument (start/deleteCount) to an int. Splice
// arguments are always constructed by the tracker as Go ints, but a
// hand-built delta might pass any integer type.
func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
