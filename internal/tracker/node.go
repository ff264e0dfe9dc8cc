// Package tracker implements the mutation tracker (§4.2): a wrapper over
// an arbitrary record tree that applies every write to the tree and also
// records it as a path-addressed Delta, so the accumulated changes can be
// reported as a unit when a transaction settles.
//
// Go has no transparent proxy; the wrapper is a builder instead:
//
//	tracker.Wrap(record).At("profile").Set("name", "Ada")
//
// Wrap returns the root *Node. At navigates to a nested attribute,
// returning a child *Node; Set/Delete/Push/... record a delta entry and
// mutate the underlying tree in place so subsequent reads through the
// same wrapper see the new value (§4.2, "reads reflect prior writes in
// the same transaction").
package tracker

import (
	"sync"
	"weak"

	"github.com/rivergrove/mutengine/internal/delta"
)

// rootState is shared by every Node wrapping the same record tree: the
// accumulating Delta, and a cache mapping each compound value's identity
// to the Node that wraps it. The cache is weak so that a Node no longer
// referenced by the caller doesn't keep its underlying map/slice (and
// everything reachable from it) artificially alive.
type rootState struct {
	mu    sync.Mutex
	delta delta.Delta
	cache map[uintptr]weak.Pointer[Node]
}

// Node is a wrapped location inside a record tree: value is the
// container currently at that location, path is its dotted address from
// the root, and writeBack (nil for the root) replaces this location's
// value in its parent when a sequence/set/map mutator produces a new
// container (e.g. append growing a slice into fresh backing storage).
type Node struct {
	root      *rootState
	path      string
	value     any
	writeBack func(any)
}

// Wrap begins tracking record: it returns the root wrapper with a fresh,
// empty Delta. record must be a compound value (map[string]any, []any,
// *Set, or *OrderedMap) — the data model's record trees are always
// rooted at an object in practice, but Wrap does not require it.
func Wrap(record any) *Node {
	rs := &rootState{
		delta: delta.NewEmpty(),
		cache: make(map[uintptr]weak.Pointer[Node]),
	}

	return rs.nodeFor("", record, nil)
}

// nodeFor returns the memoized Node for value at path, creating one if
// the cache has no live entry. Non-compound values (identity returns
// false) are never memoized — there's nothing to wrap.
func (rs *rootState) nodeFor(path string, value any, writeBack func(any)) *Node {
	ptr, ok := identity(value)
	if !ok {
		return &Node{root: rs, path: path, value: value, writeBack: writeBack}
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	if wp, cached := rs.cache[ptr]; cached {
		if n := wp.Value(); n != nil {
			n.value = value
			n.writeBack = writeBack

			return n
		}
	}

	n := &Node{root: rs, path: path, value: value, writeBack: writeBack}
	rs.cache[ptr] = weak.Make(n)

	return n
}

// GetDelta returns the accumulated Delta for the wrapped transaction.
// Meaningful only on the root wrapper returned by Wrap — the spec scopes
// one Delta per transaction, not per nested Node (§4.2).
func (n *Node) GetDelta() delta.Delta {
	n.root.mu.Lock()
	defer n.root.mu.Unlock()

	return delta.Clone(n.root.delta)
}

// Path returns this node's dotted address from the root ("" for the
// root itself).
func (n *Node) Path() string {
	return n.path
}

// wrapValue returns v as-is for a leaf (opaque or scalar), or the
// memoized child *Node for a compound value.
func (n *Node) wrapValue(childPath string, v any, writeBack func(any)) any {
	if isOpaqueLeaf(v) || !isCompound(v) {
		return v
	}

	return n.root.nodeFor(childPath, v, writeBack)
}

// Get reads the attribute/element key without distinguishing leaf from
// compound — scalars and opaque leaves come back raw, compound values
// come back as a *Node. Use At when you know the result is compound and
// want to chain further navigation.
func (n *Node) Get(key string) any {
	childPath := join(n.path, key)

	switch c := n.value.(type) {
	case map[string]any:
		v, ok := c[key]
		if !ok {
			return nil
		}

		return n.wrapValue(childPath, v, n.objectWriteBack(c, key))

	case []any:
		idx, ok := parseIndex(key, len(c))
		if !ok {
			return nil
		}

		return n.wrapValue(childPath, c[idx], n.sliceWriteBack(idx))

	default:
		return nil
	}
}

// At is Get, asserted to a *Node — the ergonomic form for chained
// navigation (mutator(record).At("a").At("b").Set("c", v)). Returns nil
// if key is absent or its value is a leaf.
func (n *Node) At(key string) *Node {
	child, _ := n.Get(key).(*Node)
	return child
}

func (n *Node) objectWriteBack(c map[string]any, key string) func(any) {
	return func(newV any) { c[key] = newV }
}

func (n *Node) sliceWriteBack(idx int) func(any) {
	return func(newV any) {
		seq := n.value.([]any)
		seq[idx] = newV
	}
}

func parseIndex(key string, length int) (int, bool) {
	idx, ok := indexOf(key)
	if !ok || idx < 0 || idx >= length {
		return 0, false
	}

	return idx, true
}

func indexOf(key string) (int, bool) {
	n := 0

	if key == "" {
		return 0, false
	}

	for _, r := range key {
		if r < '0' || r > '9' {
			return 0, false
		}

		n = n*10 + int(r-'0')
	}

	return n, true
}

// Set writes v at key, recording a $set entry unless the write is a
// no-op under the data model's is(prev, v) equality (§4.2 contract
// table, invariant 2). Only valid when the node wraps an object; a call
// against a sequence, Set, or OrderedMap node is ignored.
func (n *Node) Set(key string, v any) {
	c, ok := n.value.(map[string]any)
	if !ok {
		return
	}

	if prev, existed := c[key]; existed && sameValue(prev, v) {
		return
	}

	c[key] = v
	n.record(func(d *delta.Delta) { d.Set[join(n.path, key)] = v })
}

// Delete removes the attribute at key and records a $unset entry.
// Recorded unconditionally, matching the contract table's "delete
// attribute k at path P" row — unlike Set, there is no equality check
// to skip: a delete of an absent key still marks the path unset for a
// downstream applier reconciling against a different base snapshot.
func (n *Node) Delete(key string) {
	c, ok := n.value.(map[string]any)
	if !ok {
		return
	}

	delete(c, key)
	n.record(func(d *delta.Delta) { d.Unset[join(n.path, key)] = true })
}

func (n *Node) record(f func(d *delta.Delta)) {
	n.root.mu.Lock()
	defer n.root.mu.Unlock()

	f(&n.root.delta)
}

// commitSeq replaces the sequence this node wraps, propagating the new
// backing slice to the parent container via writeBack (append/splice
// may reallocate).
func (n *Node) commitSeq(newSeq []any) {
	n.value = newSeq

	if n.writeBack != nil {
		n.writeBack(newSeq)
	}
}
