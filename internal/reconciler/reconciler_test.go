package reconciler

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rivergrove/mutengine/internal/transport"
)

type fakeCoordinator struct {
	mu          sync.Mutex
	canDrain    bool
	inserts     []string
	updates     []string
	deletes     []string
	updateFails map[string]bool
	probe       func()
}

func newFakeCoordinator() *fakeCoordinator {
	return &fakeCoordinator{
		canDrain:    true,
		updateFails: make(map[string]bool),
	}
}

func (f *fakeCoordinator) CanDrain() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.canDrain
}

func (f *fakeCoordinator) SyncApplyInsert(trackingID string, value map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.inserts = append(f.inserts, trackingID)
}

func (f *fakeCoordinator) SyncApplyUpdate(trackingID string, fields map[string]any) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.updateFails[trackingID] {
		return false
	}

	f.updates = append(f.updates, trackingID)

	return true
}

func (f *fakeCoordinator) SyncApplyDelete(trackingID string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.deletes = append(f.deletes, trackingID)
}

func (f *fakeCoordinator) SetDrainProbe(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.probe = fn
}

func idSequence(prefix string) func() string {
	n := 0

	return func() string {
		n++
		return prefix + "-" + string(rune('0'+n))
	}
}

func TestDrainDoesNotRunBeforeUpToDate(t *testing.T) {
	engine := transport.NewMemory()
	coord := newFakeCoordinator()

	New(engine, coord, WithIDGenerator(idSequence("t")))

	engine.Publish(transport.Message{Key: "a", Operation: transport.OpInsert, Offset: 1})

	assert.Empty(t, coord.inserts, "buffered changes must not apply before up-to-date")
}

func TestDrainAppliesInOffsetOrderAfterUpToDate(t *testing.T) {
	engine := transport.NewMemory()
	coord := newFakeCoordinator()

	r := New(engine, coord, WithIDGenerator(idSequence("t")))

	engine.Publish(transport.Message{Key: "b", Operation: transport.OpInsert, Offset: 2})
	engine.Publish(transport.Message{Key: "a", Operation: transport.OpInsert, Offset: 1})
	engine.Publish(transport.Message{Control: "up-to-date"})

	require.Len(t, coord.inserts, 2)
	assert.Equal(t, []string{"t-1", "t-2"}, coord.inserts)
	assert.Equal(t, map[string]string{"a": "t-1", "b": "t-2"}, r.syncToTID,
		"drain must process offset 1 (key a) before offset 2 (key b)")
}

func TestDrainDefersWhileLocksHeld(t *testing.T) {
	engine := transport.NewMemory()
	coord := newFakeCoordinator()
	coord.canDrain = false

	New(engine, coord, WithIDGenerator(idSequence("t")))

	engine.Publish(transport.Message{Key: "a", Operation: transport.OpInsert, Offset: 1})
	engine.Publish(transport.Message{Control: "up-to-date"})

	assert.Empty(t, coord.inserts)

	coord.mu.Lock()
	coord.canDrain = true
	probe := coord.probe
	coord.mu.Unlock()

	probe()

	assert.Len(t, coord.inserts, 1, "the collection's drain probe must re-trigger the deferred drain")
}

func TestUpdateForUnmappedKeyIsDropped(t *testing.T) {
	engine := transport.NewMemory()
	coord := newFakeCoordinator()

	New(engine, coord, WithIDGenerator(idSequence("t")))

	engine.Publish(transport.Message{Key: "unknown", Operation: transport.OpUpdate, Offset: 1, Value: map[string]any{"name": "x"}})
	engine.Publish(transport.Message{Control: "up-to-date"})

	assert.Empty(t, coord.updates)
}

func TestUpdateUsesTrackingIDMappedByEarlierInsert(t *testing.T) {
	engine := transport.NewMemory()
	coord := newFakeCoordinator()

	New(engine, coord, WithIDGenerator(idSequence("t")))

	engine.Publish(transport.Message{Key: "a", Operation: transport.OpInsert, Offset: 1})
	engine.Publish(transport.Message{Control: "up-to-date"})
	engine.Publish(transport.Message{Key: "a", Operation: transport.OpUpdate, Offset: 2, Value: map[string]any{"name": "y"}})
	engine.Publish(transport.Message{Control: "up-to-date"})

	require.Len(t, coord.inserts, 1)
	require.Len(t, coord.updates, 1)
	assert.Equal(t, coord.inserts[0], coord.updates[0])
}

func TestDeleteRemovesMapping(t *testing.T) {
	engine := transport.NewMemory()
	coord := newFakeCoordinator()

	New(engine, coord, WithIDGenerator(idSequence("t")))

	engine.Publish(transport.Message{Key: "a", Operation: transport.OpInsert, Offset: 1})
	engine.Publish(transport.Message{Control: "up-to-date"})
	engine.Publish(transport.Message{Key: "a", Operation: transport.OpDelete, Offset: 2})
	engine.Publish(transport.Message{Control: "up-to-date"})

	require.Len(t, coord.deletes, 1)
	assert.Equal(t, coord.inserts[0], coord.deletes[0])
}
