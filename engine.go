// Package mutengine assembles the delta algebra, mutation tracker,
// transaction FSM, collection coordinator, and sync reconciler into a
// single entry point: a synchronized collection that accepts ordinary
// optimistic mutations and reconciles them against an external sync
// source.
package mutengine

import (
	"log/slog"

	"github.com/rivergrove/mutengine/internal/collection"
	"github.com/rivergrove/mutengine/internal/config"
	"github.com/rivergrove/mutengine/internal/reconciler"
	"github.com/rivergrove/mutengine/internal/schema"
	"github.com/rivergrove/mutengine/internal/transport"
	"github.com/rivergrove/mutengine/internal/tracker"
	"github.com/rivergrove/mutengine/internal/txn"
)

// Options holds the collaborators and tuning knobs for Open. Uses a
// struct because Engine, Validator, OnMutation, and Config are too many
// fields for positional parameters.
type Options struct {
	// Config supplies the onMutation dispatch concurrency limit; Open
	// reads no other field of it. A nil Config falls back to
	// config.DefaultConfig().
	Config *config.Config

	// Engine is the external sync source the reconciler drains against.
	// A nil Engine means the collection never reconciles remote change
	// (useful for library consumers that only need local mutation
	// tracking).
	Engine transport.Engine

	// Validator runs on every Insert/Update before the mutation is
	// admitted. A nil Validator defaults to schema.Passthrough.
	Validator schema.Validator

	// OnMutation is invoked with the deduplicated outward mutation list
	// after each transaction settles. May be nil.
	OnMutation collection.MutationHandler

	Logger *slog.Logger
}

// Engine is the top-level assembled collection: mutate records through
// Insert/Update/Remove, inspect them with GetItems, and let the
// reconciler keep them current with the external sync source in the
// background.
type Engine struct {
	collection *collection.Collection
	reconciler *reconciler.Reconciler
	logger     *slog.Logger
}

// Open wires a Collection to its Reconciler and returns the assembled
// Engine. If opts.Engine is nil, no reconciler is started and Close is a
// no-op.
func Open(opts Options) *Engine {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	validator := opts.Validator
	if validator == nil {
		validator = schema.Passthrough{}
	}

	coll := collection.New(
		collection.WithValidator(validator),
		collection.WithMutationHandler(opts.OnMutation),
		collection.WithDispatchLimit(cfg.DispatchLimit),
		collection.WithLogger(logger),
	)

	e := &Engine{collection: coll, logger: logger}

	if opts.Engine != nil {
		e.reconciler = reconciler.New(opts.Engine, coll, reconciler.WithLogger(logger))
	}

	logger.Info("mutengine: engine opened",
		slog.Int64("dispatch_limit", cfg.DispatchLimit),
		slog.Bool("reconciling", opts.Engine != nil))

	return e
}

// Close stops the reconciler's subscription, if one was started.
func (e *Engine) Close() {
	if e.reconciler != nil {
		e.reconciler.Close()
	}
}

// Insert admits a new record into the collection, returning its
// tracking-id wrapper.
func (e *Engine) Insert(item map[string]any) (*tracker.Node, error) {
	return e.collection.Insert(item, collection.InsertOptions{})
}

// Update applies updater's mutations to the named item's wrapper inside
// the implicit batch transaction. To update under an explicit
// transaction, use Collection().Update with UpdateOptions.Transaction.
func (e *Engine) Update(item map[string]any, updater func(*tracker.Node)) (*tracker.Node, error) {
	return e.collection.Update(item, updater, collection.UpdateOptions{})
}

// Remove deletes the named item from the collection.
func (e *Engine) Remove(item any) error {
	return e.collection.Remove(item, collection.RemoveOptions{})
}

// Begin opens an explicit transaction that Collection().Insert/Update/
// Remove can join via their options' Transaction field. The Engine's own
// Insert/Update/Remove always use the implicit batch transaction.
func (e *Engine) Begin(id string) *txn.Transaction {
	return e.collection.Begin(id)
}

// GetItems returns every current record, including pending (uncommitted)
// versions, sorted by tracking id.
func (e *Engine) GetItems() []any {
	return e.collection.GetItems()
}

// Collection exposes the underlying coordinator for callers that need
// the full Insert/Update/Remove option surface (explicit transactions).
func (e *Engine) Collection() *collection.Collection {
	return e.collection
}
