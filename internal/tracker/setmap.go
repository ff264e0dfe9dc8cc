package tracker

import "github.com/rivergrove/mutengine/internal/delta"

// Add inserts a value into the Set this node wraps, collapsing to a
// whole-snapshot $set (§4.2: tracked Set/OrderedMap mutations are never
// path-addressed past the container itself). A no-op, including the
// delta record, if v is already present.
func (n *Node) Add(v any) {
	s, ok := n.value.(*Set)
	if !ok || s.has(v) {
		return
	}

	next := s.clone()
	next.addRaw(v)
	n.commitSet(next)
}

// RemoveValue removes v from the Set this node wraps.
func (n *Node) RemoveValue(v any) {
	s, ok := n.value.(*Set)
	if !ok || !s.has(v) {
		return
	}

	next := NewSet()

	for _, existing := range s.values {
		if !sameValue(existing, v) {
			next.addRaw(existing)
		}
	}

	n.commitSet(next)
}

// ClearSet empties the Set this node wraps.
func (n *Node) ClearSet() {
	s, ok := n.value.(*Set)
	if !ok || len(s.values) == 0 {
		return
	}

	n.commitSet(NewSet())
}

func (n *Node) commitSet(next *Set) {
	n.value = next

	if n.writeBack != nil {
		n.writeBack(next)
	}

	n.record(func(d *delta.Delta) { d.Set[n.path] = next })
}

// SetKey writes key=v into the OrderedMap this node wraps, collapsing to
// a whole-snapshot $set.
func (n *Node) SetKey(key string, v any) {
	m, ok := n.value.(*OrderedMap)
	if !ok {
		return
	}

	if prev, existed := m.Get(key); existed && sameValue(prev, v) {
		return
	}

	next := m.clone()
	next.setRaw(key, v)
	n.commitMap(next)
}

// DeleteKey removes key from the OrderedMap this node wraps.
func (n *Node) DeleteKey(key string) {
	m, ok := n.value.(*OrderedMap)
	if !ok {
		return
	}

	if _, existed := m.Get(key); !existed {
		return
	}

	next := m.clone()
	next.deleteRaw(key)
	n.commitMap(next)
}

// ClearMap empties the OrderedMap this node wraps.
func (n *Node) ClearMap() {
	m, ok := n.value.(*OrderedMap)
	if !ok || len(m.keys) == 0 {
		return
	}

	n.commitMap(NewOrderedMap())
}

func (n *Node) commitMap(next *OrderedMap) {
	n.value = next

	if n.writeBack != nil {
		n.writeBack(next)
	}

	n.record(func(d *delta.Delta) { d.Set[n.path] = next })
}
