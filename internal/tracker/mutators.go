package tracker

import "github.com/rivergrove/mutengine/internal/delta"

// Push appends one or more elements, recording $push for a single
// argument and $append for two or more (§4.2 contract table). Each tag
// holds one entry per path, so a later single-element push at the same
// path replaces the earlier $push entry, and a later multi-element push
// replaces the earlier $append entry.
func (n *Node) Push(items ...any) {
	if len(items) == 0 {
		return
	}

	seq, _ := n.value.([]any)

	out := make([]any, 0, len(seq)+len(items))
	out = append(out, seq...)
	out = append(out, items...)
	n.commitSeq(out)

	if len(items) == 1 {
		n.record(func(d *delta.Delta) { d.Push[n.path] = items[0] })
	} else {
		n.record(func(d *delta.Delta) { d.Append[n.path] = append([]any(nil), items...) })
	}
}

// Unshift prepends one or more elements, always recording $prepend
// regardless of argument count — unlike push, the contract table gives
// single- and multi-element unshift the same tag.
func (n *Node) Unshift(items ...any) {
	if len(items) == 0 {
		return
	}

	seq, _ := n.value.([]any)

	out := make([]any, 0, len(seq)+len(items))
	out = append(out, items...)
	out = append(out, seq...)
	n.commitSeq(out)

	n.record(func(d *delta.Delta) { d.Prepend[n.path] = append([]any(nil), items...) })
}

// Pop removes and returns the last element, recording $pop=1. A node
// whose value is not a sequence, or an empty sequence, is a no-op that
// returns nil, matching the
// algebra's "pop on empty sequence" boundary behavior.
func (n *Node) Pop() any {
	seq, _ := n.value.([]any)
	if len(seq) == 0 {
		return nil
	}

	last := seq[len(seq)-1]
	n.commitSeq(seq[:len(seq)-1])
	n.record(func(d *delta.Delta) { d.Pop[n.path] = 1 })

	return last
}

// Shift removes and returns the first element, recording $pop=-1.
func (n *Node) Shift() any {
	seq, _ := n.value.([]any)
	if len(seq) == 0 {
		return nil
	}

	first := seq[0]
	n.commitSeq(seq[1:])
	n.record(func(d *delta.Delta) { d.Pop[n.path] = -1 })

	return first
}

// Splice removes deleteCount elements starting at start and inserts
// items in their place, recording $splice=[start, deleteCount, ...items]
// (§4.1). start and deleteCount are clamped to the sequence's bounds.
func (n *Node) Splice(start, deleteCount int, items ...any) []any {
	seq, _ := n.value.([]any)

	start = clampInt(start, 0, len(seq))
	deleteCount = clampInt(deleteCount, 0, len(seq)-start)

	removed := append([]any(nil), seq[start:start+deleteCount]...)

	out := make([]any, 0, len(seq)-deleteCount+len(items))
	out = append(out, seq[:start]...)
	out = append(out, items...)
	out = append(out, seq[start+deleteCount:]...)
	n.commitSeq(out)

	args := make([]any, 0, 2+len(items))
	args = append(args, start, deleteCount)
	args = append(args, items...)
	n.record(func(d *delta.Delta) { d.Splice[n.path] = args })

	return removed
}

// Sort reorders the sequence in place using less, collapsing to a whole
// -snapshot $set (§4.2: sort/reverse aren't path-addressed operations,
// so there is no dedicated tag for them).
func (n *Node) Sort(less func(a, b any) bool) {
	seq, _ := n.value.([]any)

	out := append([]any(nil), seq...)
	insertionSort(out, less)
	n.commitSeq(out)
	n.record(func(d *delta.Delta) { d.Set[n.path] = append([]any(nil), out...) })
}

// Reverse reverses the sequence in place, also collapsing to $set.
func (n *Node) Reverse() {
	seq, _ := n.value.([]any)

	out := make([]any, len(seq))
	for i, v := range seq {
		out[len(seq)-1-i] = v
	}

	n.commitSeq(out)
	n.record(func(d *delta.Delta) { d.Set[n.path] = append([]any(nil), out...) })
}

func insertionSort(s []any, less func(a, b any) bool) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && less(s[j], s[j-1]); j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}

func clampInt(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}

	if v < lo {
		return lo
	}

	if v > hi {
		return hi
	}

	return v
}
