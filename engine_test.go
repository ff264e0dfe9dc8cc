package mutengine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rivergrove/mutengine/internal/collection"
	"github.com/rivergrove/mutengine/internal/tracker"
	"github.com/rivergrove/mutengine/internal/transport"
)

func TestOpenWithoutEngineSkipsReconciler(t *testing.T) {
	e := Open(Options{})
	defer e.Close()

	node, err := e.Insert(map[string]any{"name": "Ada"})
	require.NoError(t, err)
	require.NotNil(t, node)
}

func TestInsertThenUpdateSettlesThroughBatch(t *testing.T) {
	e := Open(Options{})
	defer e.Close()

	node, err := e.Insert(map[string]any{"name": "Ada", "credits": 3})
	require.NoError(t, err)
	trackingID, _ := node.Get("__tracking_id").(string)
	require.NotEmpty(t, trackingID)

	_, err = e.Update(map[string]any{"__tracking_id": trackingID}, func(n *tracker.Node) {
		n.Set("credits", 4)
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		for _, item := range e.GetItems() {
			rec, ok := item.(map[string]any)
			if ok && rec["__tracking_id"] == trackingID {
				return rec["credits"] == 4
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)
}

func TestRemoveDeletesCommittedItem(t *testing.T) {
	e := Open(Options{})
	defer e.Close()

	node, err := e.Insert(map[string]any{"name": "Grace"})
	require.NoError(t, err)
	trackingID, _ := node.Get("__tracking_id").(string)

	require.Eventually(t, func() bool {
		return len(e.GetItems()) == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, e.Remove(trackingID))

	require.Eventually(t, func() bool {
		return len(e.GetItems()) == 0
	}, time.Second, 5*time.Millisecond)
}

func TestOpenWithTransportWiresReconciler(t *testing.T) {
	mem := transport.NewMemory()
	e := Open(Options{Engine: mem})
	defer e.Close()

	mem.Publish(transport.Message{Control: "up-to-date"})

	assert.Eventually(t, func() bool {
		return e.Collection().CanDrain()
	}, time.Second, 5*time.Millisecond)
}

// TestSyncDrainsOnlyAfterLocalLockReleases exercises S6: remote inserts
// buffered while a local transaction holds a lock must not apply until
// that transaction settles, and then must apply in offset order with
// freshly allocated tracking ids.
func TestSyncDrainsOnlyAfterLocalLockReleases(t *testing.T) {
	mem := transport.NewMemory()
	e := Open(Options{Engine: mem})
	defer e.Close()

	tx := e.Begin("holder")
	_, err := e.Insert(map[string]any{"name": "local-only"})
	require.NoError(t, err)
	_, err = e.Collection().Insert(map[string]any{"name": "held"}, collection.InsertOptions{Transaction: tx})
	require.NoError(t, err)

	mem.Publish(transport.Message{Key: "remote-1", Operation: transport.OpInsert,
		Value: map[string]any{"name": "Ada"}, Offset: 1})
	mem.Publish(transport.Message{Key: "remote-2", Operation: transport.OpInsert,
		Value: map[string]any{"name": "Grace"}, Offset: 2})
	mem.Publish(transport.Message{Control: "up-to-date"})

	time.Sleep(20 * time.Millisecond)

	names := func() []string {
		out := make([]string, 0)
		for _, item := range e.GetItems() {
			rec, ok := item.(map[string]any)
			if ok {
				out = append(out, rec["name"].(string))
			}
		}
		return out
	}

	assert.NotContains(t, names(), "Ada")
	assert.NotContains(t, names(), "Grace")

	require.NoError(t, tx.Commit())

	require.Eventually(t, func() bool {
		n := names()
		hasAda, hasGrace := false, false
		for _, v := range n {
			if v == "Ada" {
				hasAda = true
			}
			if v == "Grace" {
				hasGrace = true
			}
		}
		return hasAda && hasGrace
	}, time.Second, 5*time.Millisecond)
}
