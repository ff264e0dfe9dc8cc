// Package schema defines the validator contract the collection
// coordinator invokes synchronously on insert and update (§6).
package schema

// Issue is one validation failure, optionally anchored to a path within
// the record.
type Issue struct {
	Message string
	Path    string
}

// Validator validates a candidate record. A non-empty issues slice fails
// validation; insert/update raise a schema error and leave no state
// changed.
type Validator interface {
	Validate(value any) []Issue
}

// Passthrough is the default validator: every record passes. Used when
// the caller configures no schema.
type Passthrough struct{}

func (Passthrough) Validate(any) []Issue {
	return nil
}
