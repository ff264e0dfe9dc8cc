package txn

import "fmt"

// StateError is raised when insert/update/delete is called outside the
// began state (§4.3: "any insert/update/delete outside began fails with
// a transaction-state error carrying the current state name").
type StateError struct {
	ID    string
	State State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("transaction %s: operation not allowed in state %s", e.ID, e.State)
}
