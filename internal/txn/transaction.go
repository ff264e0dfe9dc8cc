package txn

import (
	"log/slog"
	"sync"
)

// Transaction is a log of insert/update/delete operations plus a
// one-way lifecycle: began -> committing or began -> rollingBack. It
// never touches the records it logs — Commit/Rollback only notify
// parent with the accumulated operations.
type Transaction struct {
	mu     sync.Mutex
	id     string
	state  State
	ops    []Operation
	parent Parent
	logger *slog.Logger
}

// New returns a transaction in the began state. parent must not be nil
// — §4.3: "a transaction must have a parent reference."
func New(id string, parent Parent, logger *slog.Logger) *Transaction {
	if logger == nil {
		logger = slog.Default()
	}

	return &Transaction{
		id:     id,
		state:  Began,
		parent: parent,
		logger: logger,
	}
}

// ID returns the transaction's identifier.
func (t *Transaction) ID() string {
	return t.id
}

// State returns the transaction's current lifecycle state.
func (t *Transaction) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.state
}

// Insert logs an insert event against item.
func (t *Transaction) Insert(item any) error {
	return t.log(Insert, item)
}

// Update logs an update event against item.
func (t *Transaction) Update(item any) error {
	return t.log(Update, item)
}

// Delete logs a delete event against item.
func (t *Transaction) Delete(item any) error {
	return t.log(Delete, item)
}

func (t *Transaction) log(kind Kind, item any) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != Began {
		return &StateError{ID: t.id, State: t.state}
	}

	t.ops = append(t.ops, Operation{Kind: kind, Item: item})
	t.logger.Debug("transaction operation logged",
		slog.String("transaction_id", t.id),
		slog.String("kind", kind.String()))

	return nil
}

// Commit transitions began -> committing and notifies parent with the
// full operation log. Calling Commit outside began is a transaction
// -state error.
func (t *Transaction) Commit() error {
	return t.settle(Committing, StatusCommitted)
}

// Rollback transitions began -> rollingBack and notifies parent. The
// logged operations are still attached to the settlement so the
// coordinator can decide what, if anything, to flush (§9 open question
// 3 — DESIGN.md).
func (t *Transaction) Rollback() error {
	return t.settle(RollingBack, StatusRolledBack)
}

func (t *Transaction) settle(next State, status Status) error {
	t.mu.Lock()

	if t.state != Began {
		err := &StateError{ID: t.id, State: t.state}
		t.mu.Unlock()

		return err
	}

	t.state = next
	ops := append([]Operation(nil), t.ops...)
	t.mu.Unlock()

	t.logger.Info("transaction settled",
		slog.String("transaction_id", t.id),
		slog.String("status", status.String()),
		slog.Int("operations", len(ops)))

	t.parent.Notify(Settlement{ID: t.id, Status: status, Operations: ops})

	return nil
}
