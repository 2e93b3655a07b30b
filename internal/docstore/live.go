package docstore

import (
	"context"
	"errors"
	"reflect"
	"sync"

	"github.com/dimitrije/teamboard/internal/hub"
)

// Listen registers a hub client for collection and calls refresh once
// immediately and again after every change signal, from a single goroutine,
// until the returned Unsubscribe is called or ctx ends.
func Listen(ctx context.Context, h *hub.Hub, collection string, refresh func(ctx context.Context)) Unsubscribe {
	ctx, cancel := context.WithCancel(ctx)
	client := hub.NewClient(collection)
	h.Register(client)

	go func() {
		defer h.Unregister(client)
		refresh(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-client.Send:
				if !ok {
					return
				}
				if ctx.Err() != nil {
					return
				}
				refresh(ctx)
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(cancel) }
}

// SubscribeQuery runs q through query on every change to its collection and
// delivers the full result set whenever it differs from the last delivery.
func SubscribeQuery(ctx context.Context, h *hub.Hub, query func(context.Context, Query) ([]Snapshot, error), q Query, fn QueryCallback) (Unsubscribe, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	var last []Snapshot
	delivered := false
	return Listen(ctx, h, q.Collection, func(ctx context.Context) {
		rows, err := query(ctx, q)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			delivered = false
			fn(nil, err)
			return
		}
		if rows == nil {
			rows = []Snapshot{}
		}
		if delivered && reflect.DeepEqual(rows, last) {
			return
		}
		last, delivered = rows, true
		fn(rows, nil)
	}), nil
}

// SubscribeDocument is SubscribeQuery for a single document id.
func SubscribeDocument(ctx context.Context, h *hub.Hub, get func(context.Context, string, string) (*Snapshot, error), collection, id string, fn DocCallback) (Unsubscribe, error) {
	if !ValidField(collection) {
		return nil, ErrInvalidQuery
	}
	var last *Snapshot
	delivered := false
	return Listen(ctx, h, collection, func(ctx context.Context) {
		snap, err := get(ctx, collection, id)
		if ctx.Err() != nil {
			return
		}
		if err != nil && !errors.Is(err, ErrNotFound) {
			delivered = false
			fn(nil, err)
			return
		}
		if err != nil {
			snap = nil
		}
		if delivered && reflect.DeepEqual(snap, last) {
			return
		}
		last, delivered = snap, true
		fn(snap, nil)
	}), nil
}
