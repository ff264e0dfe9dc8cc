package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/rivergrove/mutengine"
	"github.com/rivergrove/mutengine/internal/collection"
	"github.com/rivergrove/mutengine/internal/tracker"
	"github.com/rivergrove/mutengine/internal/transport"
)

func newDemoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run a scripted scenario against an in-memory collection",
		Long: `Runs a fixed scenario — insert, three batched updates, a
lock-contention case, and a sync drain — against an in-memory Collection
wired to an in-memory sync transport, then prints a summary.`,
		RunE: runDemo,
	}
}

// demoCounters tallies what the scenario did, for the closing summary.
type demoCounters struct {
	inserts      int
	updates      int
	lockRejected int
	drained      int
}

func runDemo(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	logger := cc.Logger

	mem := transport.NewMemory()
	counters := &demoCounters{}

	engine := mutengine.Open(mutengine.Options{
		Config: cc.Cfg,
		Engine: mem,
		Logger: logger,
		OnMutation: func(events []collection.MutationEvent) error {
			for range events {
				counters.updates++
			}
			return nil
		},
	})
	defer engine.Close()

	node, err := engine.Insert(map[string]any{"name": "Ada Lovelace", "credits": 0})
	if err != nil {
		return fmt.Errorf("demo: insert failed: %w", err)
	}
	counters.inserts++

	trackingID, _ := node.Get("__tracking_id").(string)

	for i := 1; i <= 3; i++ {
		credits := i
		_, err := engine.Update(map[string]any{"__tracking_id": trackingID}, func(n *tracker.Node) {
			n.Set("credits", credits)
		})
		if err != nil {
			return fmt.Errorf("demo: batched update %d failed: %w", i, err)
		}
	}

	waitForCredits(engine, trackingID, 3)

	tx1 := engine.Begin("demo-tx-1")
	_, err = engine.Collection().Update(
		map[string]any{"__tracking_id": trackingID},
		func(n *tracker.Node) { n.Set("name", "Ada, Countess of Lovelace") },
		collection.UpdateOptions{Transaction: tx1},
	)
	if err != nil {
		return fmt.Errorf("demo: tx1 update failed: %w", err)
	}

	_, err = engine.Collection().Update(
		map[string]any{"__tracking_id": trackingID},
		func(n *tracker.Node) { n.Set("name", "conflicting write") },
		collection.UpdateOptions{},
	)

	var locked *collection.LockedError
	if errors.As(err, &locked) {
		counters.lockRejected++
	}

	if err := tx1.Commit(); err != nil {
		return fmt.Errorf("demo: tx1 commit failed: %w", err)
	}

	mem.Publish(transport.Message{Key: "remote-1", Operation: transport.OpInsert,
		Value: map[string]any{"name": "Grace Hopper"}, Offset: 1})
	mem.Publish(transport.Message{Control: "up-to-date"})
	counters.drained++

	time.Sleep(50 * time.Millisecond)

	printSummary(counters, engine.GetItems(), isatty.IsTerminal(os.Stdout.Fd()))

	return nil
}

// waitForCredits blocks until trackingID's committed record shows the
// target credits value or the timeout elapses — the batch transaction
// settles on the next turn of the scheduler, not synchronously.
func waitForCredits(engine *mutengine.Engine, trackingID string, target int) {
	deadline := time.Now().Add(time.Second)

	for time.Now().Before(deadline) {
		for _, item := range engine.GetItems() {
			rec, ok := item.(map[string]any)
			if !ok || rec["__tracking_id"] != trackingID {
				continue
			}

			if credits, ok := rec["credits"].(int); ok && credits == target &&
				!engine.Collection().BatchActive() {
				return
			}
		}

		time.Sleep(5 * time.Millisecond)
	}
}

func printSummary(c *demoCounters, items []any, color bool) {
	bold := func(s string) string { return s }
	if color {
		bold = func(s string) string { return "\033[1m" + s + "\033[0m" }
	}

	fmt.Println(bold("mutengine demo summary"))
	fmt.Printf("  inserts:        %s\n", humanize.Comma(int64(c.inserts)))
	fmt.Printf("  updates:        %s\n", humanize.Comma(int64(c.updates)))
	fmt.Printf("  lock rejected:  %s\n", humanize.Comma(int64(c.lockRejected)))
	fmt.Printf("  sync drains:    %s\n", humanize.Comma(int64(c.drained)))
	fmt.Printf("  final items:    %s\n", humanize.Comma(int64(len(items))))
}
