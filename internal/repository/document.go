package repository

import (
	"context"
	"sync"

	"github.com/headless-cms-admin/internal/kvstore"
	"github.com/rs/zerolog"
)

// Cloner is implemented by single-value documents
type Cloner[T any] interface {
	Clone() T
}

// Document is a single persisted value with a default
type Document[T Cloner[T]] struct {
	mu       sync.RWMutex
	store    kvstore.Store
	key      string
	value    T
	defaults func() T
	notify   func(Change)
	log      zerolog.Logger
}

func newDocument[T Cloner[T]](store kvstore.Store, key string, defaults func() T, notify func(Change), log zerolog.Logger) *Document[T] {
	return &Document[T]{
		store:    store,
		key:      key,
		value:    defaults(),
		defaults: defaults,
		notify:   notify,
		log:      log.With().Str("document", key).Logger(),
	}
}

// Key returns the storage key the document persists under
func (d *Document[T]) Key() string {
	return d.key
}

// Load reads the stored value, falling back to the defaults
func (d *Document[T]) Load(ctx context.Context) error {
	value := d.defaults()
	found, err := kvstore.LoadVersioned(ctx, d.store, d.key, &value)
	if err != nil {
		return err
	}

	d.mu.Lock()
	d.value = value
	d.mu.Unlock()

	d.log.Debug().Bool("found", found).Msg("Document loaded")
	return nil
}

// Get returns a copy of the current value
func (d *Document[T]) Get() T {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.value.Clone()
}

// Set persists value and makes it current
func (d *Document[T]) Set(ctx context.Context, value T) error {
	d.mu.Lock()
	if err := kvstore.SaveVersioned(ctx, d.store, d.key, value); err != nil {
		d.mu.Unlock()
		d.log.Error().Err(err).Msg("Persist failed")
		return err
	}
	d.value = value.Clone()
	d.mu.Unlock()

	if d.notify != nil {
		d.notify(Change{Collection: d.key, Op: OpUpdate})
	}
	return nil
}

// Reset restores and persists the defaults
func (d *Document[T]) Reset(ctx context.Context) error {
	return d.Set(ctx, d.defaults())
}

// Snapshot captures the current value for a later restore
func (d *Document[T]) Snapshot() Restorer {
	saved := d.Get()
	return func(ctx context.Context) error {
		d.mu.Lock()
		d.value = saved
		d.mu.Unlock()
		return kvstore.SaveVersioned(ctx, d.store, d.key, saved)
	}
}
