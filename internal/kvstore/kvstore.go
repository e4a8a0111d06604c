// Package kvstore provides the durable key-value store the repositories persist to.
package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Storage keys, one per persisted collection
const (
	KeyContentTypes = "cms_content_types"
	KeyComponents   = "cms_components"
	KeyEntries      = "cms_entries"
	KeyMediaFiles   = "cms_media_files"
	KeySettings     = "cms_settings"
	KeyUsers        = "cms_users"
	KeyAPITokens    = "cms_api_tokens"
	KeyWebhooks     = "cms_webhooks"
	KeyUIConfig     = "cms_ui_config"
)

// AllKeys lists every key the application writes
var AllKeys = []string{
	KeyContentTypes,
	KeyComponents,
	KeyEntries,
	KeyMediaFiles,
	KeySettings,
	KeyUsers,
	KeyAPITokens,
	KeyWebhooks,
	KeyUIConfig,
}

// CurrentVersion is the envelope version written by this build
const CurrentVersion = 1

var (
	ErrKeyNotFound        = errors.New("key not found")
	ErrUnsupportedVersion = errors.New("unsupported state version")
)

// Store is an opaque durable key-value store
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Keys(ctx context.Context) ([]string, error)
	Close() error
}

// envelope is the versioned blob written under each key
type envelope struct {
	Version int             `json:"version"`
	State   json.RawMessage `json:"state"`
}

// SaveVersioned encodes state into a versioned envelope under key
func SaveVersioned(ctx context.Context, s Store, key string, state interface{}) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	data, err := json.Marshal(envelope{Version: CurrentVersion, State: raw})
	if err != nil {
		return fmt.Errorf("failed to encode %s envelope: %w", key, err)
	}
	if err := s.Set(ctx, key, data); err != nil {
		return fmt.Errorf("failed to persist %s: %w", key, err)
	}
	return nil
}

// LoadVersioned decodes the envelope under key into dst.
// It reports false when the key has never been written.
func LoadVersioned(ctx context.Context, s Store, key string, dst interface{}) (bool, error) {
	data, err := s.Get(ctx, key)
	if errors.Is(err, ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", key, err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return false, fmt.Errorf("failed to decode %s envelope: %w", key, err)
	}
	if env.Version > CurrentVersion {
		return false, fmt.Errorf("%s has version %d: %w", key, env.Version, ErrUnsupportedVersion)
	}
	if len(env.State) == 0 || string(env.State) == "null" {
		return true, nil
	}
	if err := json.Unmarshal(env.State, dst); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}
