// Package idgen generates the opaque identifiers the collection
// coordinator assigns on insert (tracking ids) and the sync reconciler
// assigns when mapping an unseen sync key.
package idgen

import "github.com/google/uuid"

// New returns a fresh random identifier. The data model treats tracking
// ids as opaque strings (§3); callers must never parse or compare their
// structure beyond equality.
func New() string {
	return uuid.NewString()
}
