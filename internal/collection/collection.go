// Package collection implements the collection coordinator (§4.4): the
// item registry, the lock table, the implicit batch transaction, and
// settlement — the component every insert/update/remove call and every
// transaction settlement passes through.
package collection

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/semaphore"

	"github.com/rivergrove/mutengine/internal/delta"
	"github.com/rivergrove/mutengine/internal/idgen"
	"github.com/rivergrove/mutengine/internal/schema"
	"github.com/rivergrove/mutengine/internal/tracker"
	"github.com/rivergrove/mutengine/internal/txn"
)

// ReservedAttribute is the attribute name the coordinator uses to carry
// a record's tracking id (§6). It is stripped from every record surfaced
// through onMutation.
const ReservedAttribute = "__tracking_id"

// MutationEvent is one entry of the outward mutation list the
// coordinator hands to onMutation after a commit (§4.4.2 step 4).
type MutationEvent struct {
	TrackingID string
	Operation  txn.Kind
	Item       any
	Delta      delta.Delta
}

// MutationHandler is the external onMutation callback (§6). The
// coordinator does not await it; failures are logged and swallowed
// (§7).
type MutationHandler func(events []MutationEvent) error

// logEntry is what the coordinator stashes as a txn.Operation's Item: a
// settlement only needs the tracking id and the wrapper that recorded
// the mutation (nil for a delete, since there's nothing left to read a
// delta from).
type logEntry struct {
	trackingID string
	wrapper    *tracker.Node
}

// Collection is the collection coordinator. Zero value is not usable;
// construct with New.
type Collection struct {
	mu sync.Mutex

	items          map[string]map[string]any
	pendingItems   map[string]*tracker.Node
	pendingRecords map[string]map[string]any
	locks          map[string]string
	transactions   map[string]*txn.Transaction
	batch          *txn.Transaction
	batchScheduled bool

	validator   schema.Validator
	onMutation  MutationHandler
	dispatchSem *semaphore.Weighted
	logger      *slog.Logger
	drainProbe  func()
	newID       func() string
}

// Option configures a Collection at construction.
type Option func(*Collection)

// WithValidator installs a schema.Validator; insert/update run it
// synchronously. The zero value uses schema.Passthrough.
func WithValidator(v schema.Validator) Option {
	return func(c *Collection) { c.validator = v }
}

// WithMutationHandler installs the outward onMutation callback.
func WithMutationHandler(h MutationHandler) Option {
	return func(c *Collection) { c.onMutation = h }
}

// WithDispatchLimit bounds the number of concurrently in-flight
// onMutation dispatch goroutines.
func WithDispatchLimit(n int64) Option {
	return func(c *Collection) { c.dispatchSem = semaphore.NewWeighted(n) }
}

// WithLogger installs a *slog.Logger. The zero value uses slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Collection) { c.logger = logger }
}

// WithIDGenerator overrides tracking-id generation, mainly for
// deterministic tests. The zero value uses idgen.New.
func WithIDGenerator(f func() string) Option {
	return func(c *Collection) { c.newID = f }
}

// New returns an empty Collection.
func New(opts ...Option) *Collection {
	c := &Collection{
		items:          make(map[string]map[string]any),
		pendingItems:   make(map[string]*tracker.Node),
		pendingRecords: make(map[string]map[string]any),
		locks:          make(map[string]string),
		transactions:   make(map[string]*txn.Transaction),
		validator:      schema.Passthrough{},
		dispatchSem:    semaphore.NewWeighted(4),
		logger:         slog.Default(),
		newID:          idgen.New,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// SetDrainProbe installs the callback invoked after every settlement
// (§4.4.2 step 5, "probe the sync reconciler"). The sync reconciler
// calls this during its own construction to wire itself in without
// internal/collection importing internal/reconciler.
func (c *Collection) SetDrainProbe(f func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.drainProbe = f
}

// InsertOptions configures a single Insert call.
type InsertOptions struct {
	Transaction *txn.Transaction
}

// Insert validates, wraps, and registers item as a new tracked record,
// returning its wrapper (§4.4 "insert").
func (c *Collection) Insert(item map[string]any, opts InsertOptions) (*tracker.Node, error) {
	if issues := c.validator.Validate(item); len(issues) > 0 {
		return nil, &SchemaError{Issues: issues}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	trackingID := c.newID()

	record := cloneRecord(item)
	record[ReservedAttribute] = trackingID

	owner := c.ownerFor(opts.Transaction)
	if err := c.acquireLock(trackingID, owner); err != nil {
		return nil, err
	}

	wrapper := tracker.Wrap(record)
	c.pendingItems[trackingID] = wrapper
	c.pendingRecords[trackingID] = record

	tx := c.resolveTransaction(opts.Transaction)

	if err := tx.Insert(logEntry{trackingID: trackingID, wrapper: wrapper}); err != nil {
		return nil, err
	}

	c.logger.Debug("item inserted",
		slog.String("tracking_id", trackingID),
		slog.String("transaction_id", tx.ID()))

	return wrapper, nil
}

// UpdateOptions configures a single Update call.
type UpdateOptions struct {
	Transaction *txn.Transaction
}

// Update resolves item's tracking id, re-validates (if configured) a
// scratch copy, then runs updater against the real wrapper and forwards
// the event (§4.4 "update").
func (c *Collection) Update(item map[string]any, updater func(*tracker.Node), opts UpdateOptions) (*tracker.Node, error) {
	trackingID, ok := item[ReservedAttribute].(string)
	if !ok || trackingID == "" {
		return nil, &NotFoundError{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.known(trackingID) {
		return nil, &NotFoundError{TrackingID: trackingID}
	}

	owner := c.ownerFor(opts.Transaction)
	if existing, held := c.locks[trackingID]; held && existing != owner {
		return nil, &LockedError{TrackingID: trackingID, Owner: existing}
	}

	if _, isPassthrough := c.validator.(schema.Passthrough); !isPassthrough {
		current, pending := c.pendingRecords[trackingID]
		if !pending {
			current = c.items[trackingID]
		}

		scratch := cloneRecord(current)
		updater(tracker.Wrap(scratch))

		if issues := c.validator.Validate(scratch); len(issues) > 0 {
			return nil, &SchemaError{Issues: issues}
		}
	}

	if err := c.acquireLock(trackingID, owner); err != nil {
		return nil, err
	}

	wrapper, _ := c.resolveWrapper(trackingID)

	updater(wrapper)

	tx := c.resolveTransaction(opts.Transaction)

	if err := tx.Update(logEntry{trackingID: trackingID, wrapper: wrapper}); err != nil {
		return nil, err
	}

	c.logger.Debug("item updated",
		slog.String("tracking_id", trackingID),
		slog.String("transaction_id", tx.ID()))

	return wrapper, nil
}

// RemoveOptions configures a single Remove call.
type RemoveOptions struct {
	Transaction *txn.Transaction
}

// Remove locates trackingID (accepting either the id directly or a
// record carrying the reserved attribute) and forwards a delete event.
// The lock is held through settlement (§4.4 "remove").
func (c *Collection) Remove(item any, opts RemoveOptions) error {
	trackingID, ok := resolveTrackingID(item)
	if !ok {
		return &NotFoundError{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.known(trackingID) {
		return &NotFoundError{TrackingID: trackingID}
	}

	owner := c.ownerFor(opts.Transaction)
	if err := c.acquireLock(trackingID, owner); err != nil {
		return err
	}

	wrapper := c.pendingItems[trackingID]

	tx := c.resolveTransaction(opts.Transaction)

	if err := tx.Delete(logEntry{trackingID: trackingID, wrapper: wrapper}); err != nil {
		return err
	}

	c.logger.Debug("item delete requested",
		slog.String("tracking_id", trackingID),
		slog.String("transaction_id", tx.ID()))

	return nil
}

// GetItems returns the union of authoritative and pending records,
// preferring the pending copy on key collision, sorted by tracking id
// for deterministic iteration.
func (c *Collection) GetItems() []any {
	c.mu.Lock()
	defer c.mu.Unlock()

	merged := make(map[string]map[string]any, len(c.items)+len(c.pendingRecords))

	for id, rec := range c.items {
		merged[id] = rec
	}

	for id, rec := range c.pendingRecords {
		merged[id] = rec
	}

	ids := make([]string, 0, len(merged))
	for id := range merged {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	out := make([]any, 0, len(ids))
	for _, id := range ids {
		out = append(out, merged[id])
	}

	return out
}

func (c *Collection) known(trackingID string) bool {
	if _, ok := c.items[trackingID]; ok {
		return true
	}

	_, ok := c.pendingRecords[trackingID]

	return ok
}

// resolveWrapper returns the wrapper to mutate for trackingID, building
// one around the authoritative record if none is pending (§4.4 "prefer
// pending_items, else build a new one").
func (c *Collection) resolveWrapper(trackingID string) (*tracker.Node, map[string]any) {
	if wrapper, ok := c.pendingItems[trackingID]; ok {
		return wrapper, c.pendingRecords[trackingID]
	}

	record := cloneRecord(c.items[trackingID])
	wrapper := tracker.Wrap(record)
	c.pendingItems[trackingID] = wrapper
	c.pendingRecords[trackingID] = record

	return wrapper, record
}

func (c *Collection) acquireLock(trackingID, owner string) error {
	if existing, ok := c.locks[trackingID]; ok {
		if existing == owner {
			return nil
		}

		return &LockedError{TrackingID: trackingID, Owner: existing}
	}

	c.locks[trackingID] = owner

	return nil
}

func (c *Collection) ownerFor(explicit *txn.Transaction) string {
	if explicit != nil {
		return explicit.ID()
	}

	return "batch"
}

// resolveTransaction returns explicit if given, else the (possibly
// lazily-created) batch transaction, scheduling its commit if this is
// the first mutation to queue onto it (§4.4.1).
func (c *Collection) resolveTransaction(explicit *txn.Transaction) *txn.Transaction {
	if explicit != nil {
		return explicit
	}

	if c.batch == nil {
		c.batch = txn.New("batch", c, c.logger)
	}

	if !c.batchScheduled {
		c.batchScheduled = true

		time.AfterFunc(0, c.commitBatch)
	}

	return c.batch
}

func (c *Collection) commitBatch() {
	c.mu.Lock()
	b := c.batch
	c.mu.Unlock()

	if b == nil {
		return
	}

	if err := b.Commit(); err != nil {
		c.logger.Error("batch transaction commit failed", slog.String("error", err.Error()))
	}
}

// Begin starts an explicit transaction registered with this collection
// as its parent, for callers that want to group several mutations
// together instead of relying on the implicit batch.
func (c *Collection) Begin(id string) *txn.Transaction {
	c.mu.Lock()
	defer c.mu.Unlock()

	tx := txn.New(id, c, c.logger)
	c.transactions[id] = tx

	return tx
}

// Notify implements txn.Parent: it is called once per transaction, on
// commit or rollback (§4.4.2).
func (c *Collection) Notify(s txn.Settlement) {
	c.mu.Lock()

	isBatch := c.batch != nil && c.batch.ID() == s.ID

	var events []MutationEvent

	var errs error

	if s.Status == txn.StatusCommitted {
		events, errs = c.applyCommitted(s)
	} else {
		c.flushPending(s)
	}

	for trackingID, owner := range c.locks {
		if owner == s.ID || (isBatch && owner == "batch") {
			delete(c.locks, trackingID)
		}
	}

	delete(c.transactions, s.ID)

	if isBatch {
		c.batch = nil
		c.batchScheduled = false
	}

	probe := c.drainProbe

	c.logger.Info("transaction settled",
		slog.String("transaction_id", s.ID),
		slog.String("status", s.Status.String()),
		slog.Int("operations", len(s.Operations)))

	c.mu.Unlock()

	if errs != nil {
		c.logger.Error("settlement encountered malformed operations", slog.String("error", errs.Error()))
	}

	if s.Status == txn.StatusCommitted && len(events) > 0 && c.onMutation != nil {
		c.dispatch(events)
	}

	if probe != nil {
		probe()
	}
}

// applyCommitted writes every distinct touched item into the
// authoritative map and builds the outward mutation list, deduplicated
// by tracking id keeping the first occurrence's kind (§4.4.2 step 1,4).
// Must be called with c.mu held.
func (c *Collection) applyCommitted(s txn.Settlement) ([]MutationEvent, error) {
	seen := make(map[string]bool, len(s.Operations))

	var events []MutationEvent

	var errs error

	for _, op := range s.Operations {
		entry, ok := op.Item.(logEntry)
		if !ok {
			errs = multierr.Append(errs, errMalformedOperation)
			continue
		}

		if seen[entry.trackingID] {
			continue
		}

		seen[entry.trackingID] = true

		if op.Kind == txn.Delete {
			delete(c.items, entry.trackingID)
			delete(c.pendingItems, entry.trackingID)
			delete(c.pendingRecords, entry.trackingID)

			events = append(events, MutationEvent{
				TrackingID: entry.trackingID,
				Operation:  txn.Delete,
				Delta:      delta.NewEmpty(),
			})

			continue
		}

		record := c.pendingRecords[entry.trackingID]
		c.items[entry.trackingID] = cloneRecord(record)

		d := delta.NewEmpty()
		if entry.wrapper != nil {
			d = entry.wrapper.GetDelta()
		}

		delete(c.pendingItems, entry.trackingID)
		delete(c.pendingRecords, entry.trackingID)

		events = append(events, MutationEvent{
			TrackingID: entry.trackingID,
			Operation:  op.Kind,
			Item:       stripReserved(record),
			Delta:      d,
		})
	}

	return events, errs
}

// flushPending drops the rolled-back transaction's touched ids from
// pendingItems/pendingRecords (DESIGN.md open question 3) so a later
// read rebuilds a clean wrapper from the untouched authoritative
// record. Must be called with c.mu held.
func (c *Collection) flushPending(s txn.Settlement) {
	for _, op := range s.Operations {
		entry, ok := op.Item.(logEntry)
		if !ok {
			continue
		}

		delete(c.pendingItems, entry.trackingID)
		delete(c.pendingRecords, entry.trackingID)
	}
}

func (c *Collection) dispatch(events []MutationEvent) {
	if err := c.dispatchSem.Acquire(context.Background(), 1); err != nil {
		c.logger.Error("onMutation dispatch semaphore acquire failed", slog.String("error", err.Error()))
		return
	}

	go func() {
		defer c.dispatchSem.Release(1)

		if err := c.onMutation(events); err != nil {
			c.logger.Error("onMutation handler failed", slog.String("error", err.Error()))
		}
	}()
}

// Locked reports whether any item is currently locked.
func (c *Collection) Locked() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.locks) > 0
}

// BatchActive reports whether the implicit batch transaction currently
// has an actor (§4.5 drain condition "batch_tx.actor = nil").
func (c *Collection) BatchActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.batch != nil
}

// TransactionsActive reports whether any explicit transaction is open.
func (c *Collection) TransactionsActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.transactions) > 0
}

// CanDrain evaluates the three non-offset gates of the sync reconciler's
// drain condition (§4.5) atomically.
func (c *Collection) CanDrain() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.locks) == 0 && c.batch == nil && len(c.transactions) == 0
}

// HasPendingWrapper reports whether trackingID currently has a pending
// wrapper. The reconciler does not call it; SyncApplyUpdate checks for a
// pending record itself.
func (c *Collection) HasPendingWrapper(trackingID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.pendingItems[trackingID]

	return ok
}

// SyncApplyInsert writes value as the authoritative record for
// trackingID (§4.5 "insert").
func (c *Collection) SyncApplyInsert(trackingID string, value map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	record := cloneRecord(value)
	record[ReservedAttribute] = trackingID
	c.items[trackingID] = record
}

// SyncApplyUpdate shallow-merges fields over the existing authoritative
// record and, if a pending wrapper exists, mirrors the same writes onto
// it (§4.5 "update"). Returns false if trackingID has no authoritative
// record, signaling the caller to drop the update.
func (c *Collection) SyncApplyUpdate(trackingID string, fields map[string]any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	existing, ok := c.items[trackingID]
	if !ok {
		return false
	}

	merged := cloneRecord(existing)

	for k, v := range fields {
		if k == ReservedAttribute {
			continue
		}

		merged[k] = v
	}

	c.items[trackingID] = merged

	if pending, ok := c.pendingRecords[trackingID]; ok {
		for k, v := range fields {
			if k == ReservedAttribute {
				continue
			}

			pending[k] = v
		}
	}

	return true
}

// SyncApplyDelete removes trackingID's authoritative record and pending
// wrapper if any (§4.5 "delete"). The sync-key mapping lives in the
// reconciler, which removes it before calling this.
func (c *Collection) SyncApplyDelete(trackingID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, trackingID)
	delete(c.pendingItems, trackingID)
	delete(c.pendingRecords, trackingID)
}

func resolveTrackingID(item any) (string, bool) {
	switch v := item.(type) {
	case string:
		return v, v != ""
	case map[string]any:
		id, ok := v[ReservedAttribute].(string)
		return id, ok && id != ""
	default:
		return "", false
	}
}

// cloneRecord deep-clones rec so the copy shares no nested map/slice with
// the original — callers mutate the clone (via the tracker, which writes
// into nested containers in place) without corrupting whatever the
// original still addresses (an authoritative items entry, another
// transaction's pending record).
func cloneRecord(rec map[string]any) map[string]any {
	cloned, _ := delta.DeepClone(rec).(map[string]any)
	if cloned == nil {
		return make(map[string]any, len(rec))
	}

	return cloned
}

func stripReserved(rec map[string]any) map[string]any {
	out := cloneRecord(rec)
	delete(out, ReservedAttribute)

	return out
}
