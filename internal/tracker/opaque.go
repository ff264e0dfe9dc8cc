package tracker

import (
	"math/big"
	"regexp"
	"time"
)

// isOpaqueLeaf reports whether v is one of the data model's opaque leaf
// types (§3): values that are never wrapped or recursed into even though
// they are not Go primitives. A write that replaces one wholesale is a
// plain $set; there is no notion of reaching inside a time.Time.
func isOpaqueLeaf(v any) bool {
	switch v.(type) {
	case time.Time, *regexp.Regexp, *big.Int:
		return true
	default:
		return false
	}
}

// isCompound reports whether v is a container the tracker knows how to
// wrap: a record/object, a sequence, or one of the tracked set/map types.
func isCompound(v any) bool {
	switch v.(type) {
	case map[string]any, []any, *Set, *OrderedMap:
		return true
	default:
		return false
	}
}
