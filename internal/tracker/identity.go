package tracker

import "reflect"

// identity returns a stable address for a compound value, for use as a
// cache key in the per-root wrapper cache. Two wraps of the same
// underlying map/slice/Set/OrderedMap must yield the same *Node so that
// cyclic record graphs terminate instead of re-wrapping forever, and so
// that two reads of the same nested attribute return the same wrapper
// (the proxy-identity guarantee the spec assumes — §4.2, "wrapping is
// idempotent per root").
//
// ok is false for anything identity doesn't apply to (nil, scalars),
// in which case the caller skips memoization and returns the raw value.
func identity(v any) (uintptr, bool) {
	rv := reflect.ValueOf(v)

	switch rv.Kind() {
	case reflect.Map, reflect.Slice:
		if rv.IsNil() {
			return 0, false
		}

		return rv.Pointer(), true

	case reflect.Ptr:
		if rv.IsNil() {
			return 0, false
		}

		return rv.Pointer(), true

	default:
		return 0, false
	}
}

// sameValue implements the data model's is(prev, v) equality (§4.2): a
// write that would not observably change the tree is a no-op. Comparable
// scalars compare by value (JS Object.is on primitives); everything else
// — maps, slices, Sets, OrderedMaps — compares by identity (JS reference
// equality on objects), since Go map/slice values aren't comparable with
// ==.
func sameValue(a, b any) (same bool) {
	defer func() {
		if recover() != nil {
			same = referenceEqual(a, b)
		}
	}()

	return a == b
}

func referenceEqual(a, b any) bool {
	pa, oka := identity(a)
	pb, okb := identity(b)

	return oka && okb && pa == pb
}
