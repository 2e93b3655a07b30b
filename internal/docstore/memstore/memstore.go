// Package memstore is an in-process docstore.Gateway. It backs development
// servers and every service test; live queries fan out through a hub.
package memstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dimitrije/teamboard/internal/docstore"
	"github.com/dimitrije/teamboard/internal/hub"
)

type Operation string

const (
	OpGet       Operation = "get"
	OpCreate    Operation = "create"
	OpSet       Operation = "set"
	OpUpdate    Operation = "update"
	OpDelete    Operation = "delete"
	OpQuery     Operation = "query"
	OpIncrement Operation = "increment"
)

// FaultFunc may return an error to make the matching call fail before it
// touches any data. id is empty for creates and queries.
type FaultFunc func(op Operation, collection, id string) error

type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string]docstore.Doc
	hub         *hub.Hub
	cancel      context.CancelFunc
	now         func() time.Time
	fault       FaultFunc
}

var _ docstore.Gateway = (*Store)(nil)

func New() *Store {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		collections: make(map[string]map[string]docstore.Doc),
		hub:         hub.NewHub(),
		cancel:      cancel,
		now:         func() time.Time { return time.Now().UTC() },
	}
	go s.hub.Run(ctx)
	return s
}

// Close stops the hub; open subscriptions end.
func (s *Store) Close() {
	s.cancel()
}

// SetClock replaces the clock used for server timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// InjectFault installs f for all subsequent calls; nil removes it.
func (s *Store) InjectFault(f FaultFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fault = f
}

func (s *Store) checkFault(op Operation, collection, id string) error {
	s.mu.RLock()
	f := s.fault
	s.mu.RUnlock()
	if f == nil {
		return nil
	}
	if err := f(op, collection, id); err != nil {
		return fmt.Errorf("%s %s/%s: %w", op, collection, id, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, collection, id string) (*docstore.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.checkFault(OpGet, collection, id); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.collections[collection][id]
	if !ok {
		return nil, docstore.ErrNotFound
	}
	return &docstore.Snapshot{ID: id, Data: doc.Clone()}, nil
}

func (s *Store) Create(ctx context.Context, collection string, data docstore.Doc) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := s.checkFault(OpCreate, collection, ""); err != nil {
		return "", err
	}
	id := docstore.NewID()

	s.mu.Lock()
	resolved, err := docstore.Resolve(data, s.now())
	if err != nil {
		s.mu.Unlock()
		return "", err
	}
	s.put(collection, id, resolved)
	s.mu.Unlock()

	s.hub.Publish(collection, id)
	return id, nil
}

func (s *Store) Set(ctx context.Context, collection, id string, data docstore.Doc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.checkFault(OpSet, collection, id); err != nil {
		return err
	}

	s.mu.Lock()
	resolved, err := docstore.Resolve(data, s.now())
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.put(collection, id, resolved)
	s.mu.Unlock()

	s.hub.Publish(collection, id)
	return nil
}

func (s *Store) Update(ctx context.Context, collection, id string, patch docstore.Doc) error {
	applied, err := s.update(ctx, OpUpdate, collection, id, nil, patch)
	if err != nil {
		return err
	}
	if !applied {
		return docstore.ErrNotFound
	}
	return nil
}

func (s *Store) UpdateWhere(ctx context.Context, collection, id string, where []docstore.Predicate, patch docstore.Doc) (bool, error) {
	return s.update(ctx, OpUpdate, collection, id, where, patch)
}

func (s *Store) Increment(ctx context.Context, collection, id, field string, delta int64) error {
	applied, err := s.update(ctx, OpIncrement, collection, id, nil, docstore.Doc{field: docstore.Increment(delta)})
	if err != nil {
		return err
	}
	if !applied {
		return docstore.ErrNotFound
	}
	return nil
}

// update applies patch under the write lock. It returns false without error
// when the document is missing or fails the predicates.
func (s *Store) update(ctx context.Context, op Operation, collection, id string, where []docstore.Predicate, patch docstore.Doc) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := s.checkFault(op, collection, id); err != nil {
		return false, err
	}

	s.mu.Lock()
	current, ok := s.collections[collection][id]
	if !ok || !docstore.Match(current, where) {
		s.mu.Unlock()
		return false, nil
	}
	next, err := docstore.ApplyPatch(current, patch, s.now())
	if err != nil {
		s.mu.Unlock()
		return false, err
	}
	s.put(collection, id, next)
	s.mu.Unlock()

	s.hub.Publish(collection, id)
	return true, nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.checkFault(OpDelete, collection, id); err != nil {
		return err
	}

	s.mu.Lock()
	_, existed := s.collections[collection][id]
	delete(s.collections[collection], id)
	s.mu.Unlock()

	if existed {
		s.hub.Publish(collection, id)
	}
	return nil
}

func (s *Store) Query(ctx context.Context, q docstore.Query) ([]docstore.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkFault(OpQuery, q.Collection, ""); err != nil {
		return nil, err
	}

	s.mu.RLock()
	rows := make([]docstore.Snapshot, 0, len(s.collections[q.Collection]))
	for id, doc := range s.collections[q.Collection] {
		rows = append(rows, docstore.Snapshot{ID: id, Data: doc.Clone()})
	}
	s.mu.RUnlock()

	return docstore.Apply(rows, q), nil
}

func (s *Store) Subscribe(ctx context.Context, q docstore.Query, fn docstore.QueryCallback) (docstore.Unsubscribe, error) {
	return docstore.SubscribeQuery(ctx, s.hub, s.Query, q, fn)
}

func (s *Store) SubscribeDoc(ctx context.Context, collection, id string, fn docstore.DocCallback) (docstore.Unsubscribe, error) {
	return docstore.SubscribeDocument(ctx, s.hub, s.Get, collection, id, fn)
}

// Count returns the number of documents in collection.
func (s *Store) Count(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[collection])
}

func (s *Store) put(collection, id string, doc docstore.Doc) {
	docs, ok := s.collections[collection]
	if !ok {
		docs = make(map[string]docstore.Doc)
		s.collections[collection] = docs
	}
	docs[id] = doc
}
