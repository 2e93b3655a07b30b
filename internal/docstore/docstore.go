// Package docstore defines the document store gateway used by every
// repository: point reads and writes, merge patches with field transforms,
// live queries that re-deliver full result sets, and atomic increments.
package docstore

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound     = errors.New("document not found")
	ErrInvalidQuery = errors.New("invalid query")
	ErrUnavailable  = errors.New("document store unavailable")
)

// Snapshot is a document as read from the store.
type Snapshot struct {
	ID   string `json:"id"`
	Data Doc    `json:"data"`
}

// QueryCallback receives the complete current result set of a live query,
// or the error that prevented reading it.
type QueryCallback func(rows []Snapshot, err error)

// DocCallback receives the current state of a single document; snap is nil
// when the document does not exist.
type DocCallback func(snap *Snapshot, err error)

// Unsubscribe stops a live query. It is safe to call more than once.
type Unsubscribe func()

type Gateway interface {
	Get(ctx context.Context, collection, id string) (*Snapshot, error)
	Create(ctx context.Context, collection string, data Doc) (string, error)
	// Set creates or replaces the document with a caller chosen id.
	Set(ctx context.Context, collection, id string, data Doc) error
	// Update merges patch into an existing document. Keys are dotted field
	// paths; values may be transforms. Untouched fields are preserved.
	Update(ctx context.Context, collection, id string, patch Doc) error
	// UpdateWhere applies patch only when the document currently satisfies
	// every predicate, atomically with the check. It reports whether the
	// patch was applied.
	UpdateWhere(ctx context.Context, collection, id string, where []Predicate, patch Doc) (bool, error)
	Delete(ctx context.Context, collection, id string) error
	Query(ctx context.Context, q Query) ([]Snapshot, error)
	Subscribe(ctx context.Context, q Query, fn QueryCallback) (Unsubscribe, error)
	SubscribeDoc(ctx context.Context, collection, id string, fn DocCallback) (Unsubscribe, error)
	Increment(ctx context.Context, collection, id, field string, delta int64) error
}

func NewID() string {
	return uuid.New().String()
}
