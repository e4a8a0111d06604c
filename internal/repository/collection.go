package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/headless-cms-admin/internal/kvstore"
	"github.com/rs/zerolog"
)

// Entity is implemented by every record kept in a Collection
type Entity[T any] interface {
	GetID() string
	Clone() T
}

// collectionState is the persisted shape of a collection
type collectionState[T any] struct {
	Items []T `json:"items"`
}

// Collection is an ordered set of records persisted as one versioned blob.
// Callers always receive clones; stored records are never shared.
type Collection[T Entity[T]] struct {
	mu     sync.RWMutex
	store  kvstore.Store
	key    string
	items  []T
	notify func(Change)
	log    zerolog.Logger
}

func newCollection[T Entity[T]](store kvstore.Store, key string, notify func(Change), log zerolog.Logger) *Collection[T] {
	return &Collection[T]{
		store:  store,
		key:    key,
		notify: notify,
		log:    log.With().Str("collection", key).Logger(),
	}
}

// Key returns the storage key the collection persists under
func (c *Collection[T]) Key() string {
	return c.key
}

// Load replaces the in-memory state with what the store holds
func (c *Collection[T]) Load(ctx context.Context) error {
	var state collectionState[T]
	found, err := kvstore.LoadVersioned(ctx, c.store, c.key, &state)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.items = state.Items
	c.mu.Unlock()

	c.log.Debug().Bool("found", found).Int("count", len(state.Items)).Msg("Collection loaded")
	return nil
}

// List returns every record in insertion order
func (c *Collection[T]) List() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]T, len(c.items))
	for i, item := range c.items {
		out[i] = item.Clone()
	}
	return out
}

// Count returns the number of records
func (c *Collection[T]) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Get returns the record with the given id
func (c *Collection[T]) Get(id string) (T, bool) {
	return c.Find(func(item T) bool { return item.GetID() == id })
}

// Find returns the first record matching pred
func (c *Collection[T]) Find(pred func(T) bool) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, item := range c.items {
		if pred(item) {
			return item.Clone(), true
		}
	}
	var zero T
	return zero, false
}

// Filter returns every record matching pred, in order
func (c *Collection[T]) Filter(pred func(T) bool) []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []T
	for _, item := range c.items {
		if pred(item) {
			out = append(out, item.Clone())
		}
	}
	return out
}

// Insert appends a record and persists the collection
func (c *Collection[T]) Insert(ctx context.Context, item T) error {
	return c.mutate(ctx, OpInsert, item.GetID(), func(items []T) ([]T, error) {
		for _, existing := range items {
			if existing.GetID() == item.GetID() {
				return nil, fmt.Errorf("%s: duplicate id %s", c.key, item.GetID())
			}
		}
		return append(items, item.Clone()), nil
	})
}

// Update replaces the record with the same id and persists the collection
func (c *Collection[T]) Update(ctx context.Context, item T) error {
	return c.mutate(ctx, OpUpdate, item.GetID(), func(items []T) ([]T, error) {
		for i, existing := range items {
			if existing.GetID() == item.GetID() {
				items[i] = item.Clone()
				return items, nil
			}
		}
		return nil, fmt.Errorf("%s: %w: %s", c.key, ErrRecordNotFound, item.GetID())
	})
}

// Delete removes the record with the given id and persists the collection
func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	return c.mutate(ctx, OpDelete, id, func(items []T) ([]T, error) {
		for i, existing := range items {
			if existing.GetID() == id {
				return append(items[:i], items[i+1:]...), nil
			}
		}
		return nil, fmt.Errorf("%s: %w: %s", c.key, ErrRecordNotFound, id)
	})
}

// DeleteWhere removes every record matching pred and returns how many went
func (c *Collection[T]) DeleteWhere(ctx context.Context, pred func(T) bool) (int, error) {
	removed := 0
	err := c.mutate(ctx, OpDelete, "", func(items []T) ([]T, error) {
		kept := items[:0]
		for _, item := range items {
			if pred(item) {
				removed++
				continue
			}
			kept = append(kept, item)
		}
		return kept, nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// ReplaceAll swaps the whole collection for items
func (c *Collection[T]) ReplaceAll(ctx context.Context, items []T) error {
	return c.mutate(ctx, OpReplace, "", func([]T) ([]T, error) {
		out := make([]T, len(items))
		for i, item := range items {
			out[i] = item.Clone()
		}
		return out, nil
	})
}

// mutate applies fn to a private copy of the records, persists the result and
// only then makes it visible. A persist failure leaves the collection untouched.
func (c *Collection[T]) mutate(ctx context.Context, op Op, id string, fn func([]T) ([]T, error)) error {
	c.mu.Lock()
	working := make([]T, len(c.items))
	copy(working, c.items)

	next, err := fn(working)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	if err := kvstore.SaveVersioned(ctx, c.store, c.key, collectionState[T]{Items: next}); err != nil {
		c.mu.Unlock()
		c.log.Error().Err(err).Str("op", string(op)).Str("id", id).Msg("Persist failed")
		return err
	}
	c.items = next
	c.mu.Unlock()

	if c.notify != nil {
		c.notify(Change{Collection: c.key, Op: op, ID: id})
	}
	return nil
}

// Snapshot captures the current records. The returned function puts them back
// in memory unconditionally, then persists them.
func (c *Collection[T]) Snapshot() Restorer {
	c.mu.RLock()
	saved := make([]T, len(c.items))
	copy(saved, c.items)
	c.mu.RUnlock()

	return func(ctx context.Context) error {
		c.mu.Lock()
		c.items = saved
		c.mu.Unlock()

		if err := kvstore.SaveVersioned(ctx, c.store, c.key, collectionState[T]{Items: saved}); err != nil {
			return err
		}
		if c.notify != nil {
			c.notify(Change{Collection: c.key, Op: OpReplace})
		}
		return nil
	}
}
