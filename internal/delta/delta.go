// Package delta implements the normalized operation algebra the mutation
// tracker records into and the collection coordinator replays: nine
// path-addressed tags, their merge rule, and their apply semantics.
package delta

// Delta is a partial mapping over the nine operation tags. Empty tag maps
// are the zero value; NewEmpty allocates all nine so callers can write into
// any tag without a nil check.
type Delta struct {
	Set      map[string]any   // path -> value
	Unset    map[string]bool  // path -> true
	Push     map[string]any   // path -> single element
	Append   map[string][]any // path -> elements appended at the tail
	Prepend  map[string][]any // path -> elements unshifted at the front
	Pop      map[string]int   // path -> 1 (last) or -1 (first)
	Pull     map[string]any   // path -> value to remove first match of
	AddToSet map[string]any   // path -> value to insert if absent
	Splice   map[string][]any // path -> [start, deleteCount, ...items]
}

// NewEmpty returns a Delta with all nine tag maps allocated and empty.
func NewEmpty() Delta {
	return Delta{
		Set:      make(map[string]any),
		Unset:    make(map[string]bool),
		Push:     make(map[string]any),
		Append:   make(map[string][]any),
		Prepend:  make(map[string][]any),
		Pop:      make(map[string]int),
		Pull:     make(map[string]any),
		AddToSet: make(map[string]any),
		Splice:   make(map[string][]any),
	}
}

// IsEmpty reports whether every tag's map is empty.
func IsEmpty(d Delta) bool {
	return len(d.Set) == 0 &&
		len(d.Unset) == 0 &&
		len(d.Push) == 0 &&
		len(d.Append) == 0 &&
		len(d.Prepend) == 0 &&
		len(d.Pop) == 0 &&
		len(d.Pull) == 0 &&
		len(d.AddToSet) == 0 &&
		len(d.Splice) == 0
}

// Clone returns a shallow copy of d: new tag maps, same leaf values. Leaf
// values (including compound $set replacements) are never deep-copied —
// they are opaque as far as the algebra is concerned.
func Clone(d Delta) Delta {
	out := NewEmpty()

	for k, v := range d.Set {
		out.Set[k] = v
	}

	for k, v := range d.Unset {
		out.Unset[k] = v
	}

	for k, v := range d.Push {
		out.Push[k] = v
	}

	for k, v := range d.Append {
		out.Append[k] = append([]any(nil), v...)
	}

	for k, v := range d.Prepend {
		out.Prepend[k] = append([]any(nil), v...)
	}

	for k, v := range d.Pop {
		out.Pop[k] = v
	}

	for k, v := range d.Pull {
		out.Pull[k] = v
	}

	for k, v := range d.AddToSet {
		out.AddToSet[k] = v
	}

	for k, v := range d.Splice {
		out.Splice[k] = append([]any(nil), v...)
	}

	return out
}
