package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/headless-cms-admin/internal/kvstore"
	"github.com/headless-cms-admin/internal/models"
	"github.com/rs/zerolog"
)

// ErrRecordNotFound is returned by Update and Delete for unknown ids
var ErrRecordNotFound = errors.New("record not found")

// Op names the kind of change made to a collection
type Op string

const (
	OpInsert  Op = "insert"
	OpUpdate  Op = "update"
	OpDelete  Op = "delete"
	OpReplace Op = "replace"
)

// Change is delivered to subscribers after every successful persist
type Change struct {
	Collection string `json:"collection"`
	Op         Op     `json:"op"`
	ID         string `json:"id,omitempty"`
}

// Restorer puts a collection back to a captured state
type Restorer func(ctx context.Context) error

// Snapshotter is implemented by Collection and Document
type Snapshotter interface {
	Snapshot() Restorer
}

// Repositories holds every persisted store
type Repositories struct {
	Components   *Collection[models.Component]
	ContentTypes *Collection[models.ContentType]
	Entries      *Collection[models.Entry]
	Media        *Collection[models.MediaFile]
	Users        *Collection[models.User]
	APITokens    *Collection[models.APIToken]
	Webhooks     *Collection[models.Webhook]
	Settings     *Document[models.Settings]
	UIConfig     *Document[models.UIConfig]

	store kvstore.Store
	log   zerolog.Logger

	subMu       sync.RWMutex
	subscribers map[int]func(Change)
	nextSubID   int
}

// New creates all repositories over the given store. Call Load before use.
func New(store kvstore.Store, log zerolog.Logger) *Repositories {
	r := &Repositories{
		store:       store,
		log:         log.With().Str("component", "repository").Logger(),
		subscribers: make(map[int]func(Change)),
	}
	r.Components = newCollection[models.Component](store, kvstore.KeyComponents, r.publish, r.log)
	r.ContentTypes = newCollection[models.ContentType](store, kvstore.KeyContentTypes, r.publish, r.log)
	r.Entries = newCollection[models.Entry](store, kvstore.KeyEntries, r.publish, r.log)
	r.Media = newCollection[models.MediaFile](store, kvstore.KeyMediaFiles, r.publish, r.log)
	r.Users = newCollection[models.User](store, kvstore.KeyUsers, r.publish, r.log)
	r.APITokens = newCollection[models.APIToken](store, kvstore.KeyAPITokens, r.publish, r.log)
	r.Webhooks = newCollection[models.Webhook](store, kvstore.KeyWebhooks, r.publish, r.log)
	r.Settings = newDocument[models.Settings](store, kvstore.KeySettings, models.DefaultSettings, r.publish, r.log)
	r.UIConfig = newDocument[models.UIConfig](store, kvstore.KeyUIConfig, models.DefaultUIConfig, r.publish, r.log)
	return r
}

type loader interface {
	Load(ctx context.Context) error
	Key() string
}

func (r *Repositories) loaders() []loader {
	return []loader{
		r.Components, r.ContentTypes, r.Entries, r.Media, r.Users,
		r.APITokens, r.Webhooks, r.Settings, r.UIConfig,
	}
}

// Load reads every collection from the store
func (r *Repositories) Load(ctx context.Context) error {
	for _, l := range r.loaders() {
		if err := l.Load(ctx); err != nil {
			return fmt.Errorf("failed to load %s: %w", l.Key(), err)
		}
	}
	r.log.Info().
		Int("components", r.Components.Count()).
		Int("content_types", r.ContentTypes.Count()).
		Int("entries", r.Entries.Count()).
		Int("media_files", r.Media.Count()).
		Msg("Repositories loaded")
	return nil
}

// Clear wipes the store and reloads empty state
func (r *Repositories) Clear(ctx context.Context) error {
	if err := r.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear store: %w", err)
	}
	return r.Load(ctx)
}

// Subscribe registers fn for change notifications and returns its cancel func
func (r *Repositories) Subscribe(fn func(Change)) func() {
	r.subMu.Lock()
	id := r.nextSubID
	r.nextSubID++
	r.subscribers[id] = fn
	r.subMu.Unlock()

	return func() {
		r.subMu.Lock()
		delete(r.subscribers, id)
		r.subMu.Unlock()
	}
}

func (r *Repositories) publish(c Change) {
	r.subMu.RLock()
	subs := make([]func(Change), 0, len(r.subscribers))
	for _, fn := range r.subscribers {
		subs = append(subs, fn)
	}
	r.subMu.RUnlock()

	for _, fn := range subs {
		fn(c)
	}
}

// Atomically runs fn after snapshotting parts. If fn fails, every part is
// restored in reverse order so writes that already landed are undone.
func (r *Repositories) Atomically(ctx context.Context, fn func() error, parts ...Snapshotter) error {
	restores := make([]Restorer, len(parts))
	for i, p := range parts {
		restores[i] = p.Snapshot()
	}

	err := fn()
	if err == nil {
		return nil
	}

	// the restore must run even if the caller's context is already done
	rctx := context.WithoutCancel(ctx)
	for i := len(restores) - 1; i >= 0; i-- {
		if rerr := restores[i](rctx); rerr != nil {
			r.log.Error().Err(rerr).Msg("Rollback failed; run reconcile to repair counters")
		}
	}
	return err
}
