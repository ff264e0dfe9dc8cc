// Package reconciler implements the sync reconciler (§4.5): it consumes
// a transport.Engine subscription, buffers change messages in offset
// order, and drains them into the collection coordinator once the
// stream reports up-to-date and the coordinator reports no locks, no
// open batch, and no open transactions.
package reconciler

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/rivergrove/mutengine/internal/idgen"
	"github.com/rivergrove/mutengine/internal/transport"
)

// coordinator is the subset of *collection.Collection the reconciler
// needs — a consumer-defined interface so this package's tests can use
// a lightweight fake instead of a real Collection.
type coordinator interface {
	CanDrain() bool
	SyncApplyInsert(trackingID string, value map[string]any)
	SyncApplyUpdate(trackingID string, fields map[string]any) bool
	SyncApplyDelete(trackingID string)
	SetDrainProbe(f func())
}

// Reconciler is the sync reconciler.
type Reconciler struct {
	mu sync.Mutex

	engine    transport.Engine
	coord     coordinator
	logger    *slog.Logger
	newID     func() string
	unsub     transport.Unsubscribe
	buffer    []transport.Message
	upToDate  bool
	syncToTID map[string]string
}

// Option configures a Reconciler at construction.
type Option func(*Reconciler)

// WithLogger installs a *slog.Logger. The zero value uses slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconciler) { r.logger = logger }
}

// WithIDGenerator overrides tracking-id generation for sync-originated
// inserts, mainly for deterministic tests.
func WithIDGenerator(f func() string) Option {
	return func(r *Reconciler) { r.newID = f }
}

// New returns a Reconciler wired to engine and coord. It subscribes
// immediately and registers itself as coord's drain probe, so every
// settlement re-attempts a drain (§4.4.2 step 5). coord is ordinarily a
// *collection.Collection; the narrower interface lets tests substitute
// a fake.
func New(engine transport.Engine, coord coordinator, opts ...Option) *Reconciler {
	r := &Reconciler{
		engine:    engine,
		coord:     coord,
		logger:    slog.Default(),
		newID:     idgen.New,
		syncToTID: make(map[string]string),
	}

	for _, opt := range opts {
		opt(r)
	}

	coord.SetDrainProbe(r.attemptDrain)
	r.unsub = engine.Subscribe(r.handle)

	return r
}

// Close unsubscribes from the sync engine.
func (r *Reconciler) Close() {
	r.mu.Lock()
	unsub := r.unsub
	r.mu.Unlock()

	if unsub != nil {
		unsub()
	}
}

func (r *Reconciler) handle(msg transport.Message) {
	r.mu.Lock()

	if msg.Control == "up-to-date" {
		r.upToDate = true
	} else {
		r.buffer = append(r.buffer, msg)
	}

	r.mu.Unlock()

	r.attemptDrain()
}

// attemptDrain runs the three-gate check and, if it passes, drains the
// buffer in offset order (§4.5). Safe to call from any goroutine —
// invoked both from handle (on every message) and as the collection's
// drain probe (after every settlement).
func (r *Reconciler) attemptDrain() {
	r.mu.Lock()

	if !r.upToDate || !r.coord.CanDrain() || len(r.buffer) == 0 {
		r.mu.Unlock()
		return
	}

	pending := r.buffer
	r.buffer = nil

	sort.Slice(pending, func(i, j int) bool { return pending[i].Offset < pending[j].Offset })

	r.logger.Info("sync drain started", slog.Int("messages", len(pending)))

	r.mu.Unlock()

	for _, msg := range pending {
		r.applyOne(msg)
	}

	r.logger.Info("sync drain completed", slog.Int("messages", len(pending)))
}

func (r *Reconciler) applyOne(msg transport.Message) {
	switch msg.Operation {
	case transport.OpInsert:
		r.applyInsert(msg)
	case transport.OpUpdate:
		r.applyUpdate(msg)
	case transport.OpDelete:
		r.applyDelete(msg)
	}
}

func (r *Reconciler) applyInsert(msg transport.Message) {
	r.mu.Lock()
	trackingID, known := r.syncToTID[msg.Key]

	if !known {
		trackingID = r.newID()
		r.syncToTID[msg.Key] = trackingID
	}

	r.mu.Unlock()

	r.coord.SyncApplyInsert(trackingID, msg.Value)
}

func (r *Reconciler) applyUpdate(msg transport.Message) {
	r.mu.Lock()
	trackingID, known := r.syncToTID[msg.Key]
	r.mu.Unlock()

	if !known {
		r.logger.Warn("dropped sync update for unmapped key", slog.String("key", msg.Key))
		return
	}

	if !r.coord.SyncApplyUpdate(trackingID, msg.Value) {
		r.logger.Warn("dropped sync update: no authoritative record", slog.String("tracking_id", trackingID))
	}
}

func (r *Reconciler) applyDelete(msg transport.Message) {
	r.mu.Lock()
	trackingID, known := r.syncToTID[msg.Key]
	if known {
		delete(r.syncToTID, msg.Key)
	}
	r.mu.Unlock()

	if !known {
		return
	}

	r.coord.SyncApplyDelete(trackingID)
}
