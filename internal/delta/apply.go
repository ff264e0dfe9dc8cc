package delta

import "reflect"

// Apply produces a new value by executing a Delta's tags against value in
// the fixed order the spec pins: $set, $unset, $push, $append, $prepend,
// $pop, $splice. $pull and $addToSet are reserved by the algebra (never
// emitted by the mutation tracker) but an applier must still tolerate a
// hand-built delta carrying them, so they run last. Per-path order within
// one tag is unspecified; map iteration order is used as-is.
//
// value is never mutated — Apply clones the compound portions of the tree
// before writing into it.
func Apply(value any, d Delta) any {
	root := DeepClone(value)

	applySet(&root, d.Set)
	applyUnset(&root, d.Unset)
	applyPush(&root, d.Push)
	applyAppend(&root, d.Append)
	applyPrepend(&root, d.Prepend)
	applyPop(&root, d.Pop)
	applySplice(&root, d.Splice)
	applyPull(&root, d.Pull)
	applyAddToSet(&root, d.AddToSet)

	return root
}

func applySet(root *any, m map[string]any) {
	for path, v := range m {
		if s, ok := resolveSlot(root, path, true); ok {
			s.set(v)
		}
	}
}

// applyUnset deletes the attribute at path. Absent paths (no resolvable
// slot, or a slot with no delete capability — root/sequence index) are a
// no-op, matching §4.1.
func applyUnset(root *any, m map[string]bool) {
	for path := range m {
		s, ok := resolveSlot(root, path, false)
		if !ok || s.del == nil {
			continue
		}

		s.del()
	}
}

func asSeq(v any) []any {
	seq, _ := v.([]any)
	return seq
}

func applyPush(root *any, m map[string]any) {
	for path, v := range m {
		s, ok := resolveSlot(root, path, true)
		if !ok {
			continue
		}

		seq := append(asSeq(s.get()), v)
		s.set(seq)
	}
}

func applyAppend(root *any, m map[string][]any) {
	for path, vs := range m {
		s, ok := resolveSlot(root, path, true)
		if !ok {
			continue
		}

		seq := append(asSeq(s.get()), vs...)
		s.set(seq)
	}
}

func applyPrepend(root *any, m map[string][]any) {
	for path, vs := range m {
		s, ok := resolveSlot(root, path, true)
		if !ok {
			continue
		}

		seq := make([]any, 0, len(vs)+len(asSeq(s.get())))
		seq = append(seq, vs...)
		seq = append(seq, asSeq(s.get())...)
		s.set(seq)
	}
}

// applyPop removes the last (1) or first (-1) element. A missing or empty
// sequence is a no-op, matching §4.1.
func applyPop(root *any, m map[string]int) {
	for path, dir := range m {
		s, ok := resolveSlot(root, path, false)
		if !ok {
			continue
		}

		seq := asSeq(s.get())
		if len(seq) == 0 {
			continue
		}

		switch dir {
		case 1:
			s.set(seq[:len(seq)-1])
		case -1:
			s.set(seq[1:])
		}
	}
}

// applySplice implements [start, deleteCount, ...items] against the
// sequence at path, clamping start/deleteCount to the sequence bounds.
func applySplice(root *any, m map[string][]any) {
	for path, args := range m {
		if len(args) < 2 {
			continue
		}

		s, ok := resolveSlot(root, path, true)
		if !ok {
			continue
		}

		seq := asSeq(s.get())

		start := clamp(toInt(args[0]), 0, len(seq))
		deleteCount := clamp(toInt(args[1]), 0, len(seq)-start)
		items := args[2:]

		out := make([]any, 0, len(seq)-deleteCount+len(items))
		out = append(out, seq[:start]...)
		out = append(out, items...)
		out = append(out, seq[start+deleteCount:]...)

		s.set(out)
	}
}

// applyPull removes the first element deep-equal to value. Reserved tag
// (§9 open question 2): the tracker never emits it, but a downstream
// applier might, so Apply tolerates it.
func applyPull(root *any, m map[string]any) {
	for path, v := range m {
		s, ok := resolveSlot(root, path, false)
		if !ok {
			continue
		}

		seq := asSeq(s.get())

		for i, elem := range seq {
			if reflect.DeepEqual(elem, v) {
				out := make([]any, 0, len(seq)-1)
				out = append(out, seq[:i]...)
				out = append(out, seq[i+1:]...)
				s.set(out)

				break
			}
		}
	}
}

// applyAddToSet inserts value if no deep-equal element is already present.
// Reserved tag (§9 open question 2): never emitted by the tracker.
func applyAddToSet(root *any, m map[string]any) {
	for path, v := range m {
		s, ok := resolveSlot(root, path, true)
		if !ok {
			continue
		}

		seq := asSeq(s.get())

		present := false

		for _, elem := range seq {
			if reflect.DeepEqual(elem, v) {
				present = true
				break
			}
		}

		if !present {
			s.set(append(seq, v))
		}
	}
}

func clamp(v, lo, hi int) int {
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
