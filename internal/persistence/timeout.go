package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// WithTimeout decorates store so every call runs under its own deadline.
// Expired calls return an error matching ErrTimeout. A non-positive timeout
// returns store unchanged.
func WithTimeout(store Store, timeout time.Duration) Store {
	if store == nil || timeout <= 0 {
		return store
	}
	return &timeoutStore{inner: store, timeout: timeout}
}

type timeoutStore struct {
	inner   Store
	timeout time.Duration
}

func (s *timeoutStore) Get(ctx context.Context, collection, key string) (Document, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	doc, err := s.inner.Get(ctx, collection, key)
	return doc, deadlineError(ctx, err)
}

func (s *timeoutStore) Put(ctx context.Context, collection, key string, doc Document) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return deadlineError(ctx, s.inner.Put(ctx, collection, key, doc))
}

func (s *timeoutStore) Merge(ctx context.Context, collection, key string, fields Document) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return deadlineError(ctx, s.inner.Merge(ctx, collection, key, fields))
}

func (s *timeoutStore) Append(ctx context.Context, collection, key, field string, value any) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return deadlineError(ctx, s.inner.Append(ctx, collection, key, field, value))
}

func (s *timeoutStore) Delete(ctx context.Context, collection, key string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return deadlineError(ctx, s.inner.Delete(ctx, collection, key))
}

func (s *timeoutStore) List(ctx context.Context, collection string) ([]Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	snapshots, err := s.inner.List(ctx, collection)
	return snapshots, deadlineError(ctx, err)
}

func (s *timeoutStore) Close() error {
	return s.inner.Close()
}

func deadlineError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrTimeout) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return err
}
