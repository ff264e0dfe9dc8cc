package collection

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rivergrove/mutengine/internal/schema"
)

// errMalformedOperation guards against a settlement carrying an
// Operation.Item that isn't the logEntry the coordinator itself put
// there — defensive, since txn.Transaction treats Item as opaque.
var errMalformedOperation = errors.New("collection: settlement operation missing tracking metadata")

// SchemaError is raised when a configured schema.Validator returns issues
// on insert or update (§7). No state changes — the lock is never
// acquired, and for update the real wrapper is never touched.
type SchemaError struct {
	Issues []schema.Issue
}

func (e *SchemaError) Error() string {
	msgs := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		if issue.Path != "" {
			msgs[i] = fmt.Sprintf("%s: %s", issue.Path, issue.Message)
		} else {
			msgs[i] = issue.Message
		}
	}

	return fmt.Sprintf("schema validation failed: %s", strings.Join(msgs, "; "))
}

// LockedError is raised when lock acquisition loses to a different owner
// (§4.4.3, §7).
type LockedError struct {
	TrackingID string
	Owner      string
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("item %s is locked by transaction %s", e.TrackingID, e.Owner)
}

// NotFoundError is raised when update/remove targets a tracking id the
// collection does not know (§7).
type NotFoundError struct {
	TrackingID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("item %s not found", e.TrackingID)
}
