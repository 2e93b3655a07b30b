package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
)

type BreakerConfig struct {
	Name        string
	MaxFailures uint32
	Timeout     time.Duration
	// OnStateChange is optional.
	OnStateChange func(name string, from, to gobreaker.State)
}

type breakerGateway struct {
	next Gateway
	cb   *gobreaker.CircuitBreaker
}

// WithBreaker wraps next so that consecutive store failures open a circuit
// and further calls fail fast with ErrUnavailable until the timeout elapses.
// Missing documents, bad queries and cancelled contexts do not count as
// failures. Live queries are passed through unwrapped.
func WithBreaker(next Gateway, cfg BreakerConfig) Gateway {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	return &breakerGateway{
		next: next,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        cfg.Name,
			MaxRequests: 1,
			Timeout:     cfg.Timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= maxFailures
			},
			OnStateChange: cfg.OnStateChange,
			IsSuccessful: func(err error) bool {
				return err == nil ||
					errors.Is(err, ErrNotFound) ||
					errors.Is(err, ErrInvalidQuery) ||
					errors.Is(err, context.Canceled)
			},
		}),
	}
}

func (b *breakerGateway) execute(fn func() (any, error)) (any, error) {
	result, err := b.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return result, err
}

func (b *breakerGateway) Get(ctx context.Context, collection, id string) (*Snapshot, error) {
	result, err := b.execute(func() (any, error) {
		return b.next.Get(ctx, collection, id)
	})
	if err != nil {
		return nil, err
	}
	return result.(*Snapshot), nil
}

func (b *breakerGateway) Create(ctx context.Context, collection string, data Doc) (string, error) {
	result, err := b.execute(func() (any, error) {
		return b.next.Create(ctx, collection, data)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (b *breakerGateway) Set(ctx context.Context, collection, id string, data Doc) error {
	_, err := b.execute(func() (any, error) {
		return nil, b.next.Set(ctx, collection, id, data)
	})
	return err
}

func (b *breakerGateway) Update(ctx context.Context, collection, id string, patch Doc) error {
	_, err := b.execute(func() (any, error) {
		return nil, b.next.Update(ctx, collection, id, patch)
	})
	return err
}

func (b *breakerGateway) UpdateWhere(ctx context.Context, collection, id string, where []Predicate, patch Doc) (bool, error) {
	result, err := b.execute(func() (any, error) {
		return b.next.UpdateWhere(ctx, collection, id, where, patch)
	})
	if err != nil {
		return false, err
	}
	return result.(bool), nil
}

func (b *breakerGateway) Delete(ctx context.Context, collection, id string) error {
	_, err := b.execute(func() (any, error) {
		return nil, b.next.Delete(ctx, collection, id)
	})
	return err
}

func (b *breakerGateway) Query(ctx context.Context, q Query) ([]Snapshot, error) {
	result, err := b.execute(func() (any, error) {
		return b.next.Query(ctx, q)
	})
	if err != nil {
		return nil, err
	}
	return result.([]Snapshot), nil
}

func (b *breakerGateway) Subscribe(ctx context.Context, q Query, fn QueryCallback) (Unsubscribe, error) {
	return b.next.Subscribe(ctx, q, fn)
}

func (b *breakerGateway) SubscribeDoc(ctx context.Context, collection, id string, fn DocCallback) (Unsubscribe, error) {
	return b.next.SubscribeDoc(ctx, collection, id, fn)
}

func (b *breakerGateway) Increment(ctx context.Context, collection, id, field string, delta int64) error {
	_, err := b.execute(func() (any, error) {
		return nil, b.next.Increment(ctx, collection, id, field, delta)
	})
	return err
}
