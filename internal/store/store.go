// Package store implements the record store adapter: whole-collection JSON
// documents loaded and saved atomically per call. The clearance core performs
// read-modify-write cycles against these collections; Save is the single
// commit point for every mutation.
package store

import "context"

// Collection identifiers.
const (
	// CollectionApplications holds the array of active and terminal cases.
	CollectionApplications = "applications"

	// CollectionHistory holds the append-only archive of terminal cases.
	CollectionHistory = "history"
)

// RecordStore loads and saves whole collections as JSON documents.
//
// Load tolerates a missing collection by leaving out at its zero value
// (an empty default), never returning an error for "no data yet". Save
// replaces the entire collection document.
//
// WithLock serializes read-modify-write cycles per collection within this
// process. Writers in other processes remain unserialized; last write wins
// on the whole document. That is an accepted property of whole-collection
// storage, not something the core works around.
type RecordStore interface {
	Load(ctx context.Context, collection string, out any) error
	Save(ctx context.Context, collection string, doc any) error
	WithLock(collection string, fn func() error) error
}
