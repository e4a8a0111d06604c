package kvstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/headless-cms-admin/internal/database"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseStore runs the behavior every backend must share
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, s.Clear(ctx))

	_, err := s.Get(ctx, KeyEntries)
	assert.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, s.Set(ctx, KeyEntries, []byte(`{"a":1}`)))
	require.NoError(t, s.Set(ctx, KeyComponents, []byte(`[]`)))

	got, err := s.Get(ctx, KeyEntries)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(got))

	// overwrite
	require.NoError(t, s.Set(ctx, KeyEntries, []byte(`{"a":2}`)))
	got, err = s.Get(ctx, KeyEntries)
	require.NoError(t, err)
	assert.Equal(t, `{"a":2}`, string(got))

	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{KeyComponents, KeyEntries}, keys)

	require.NoError(t, s.Remove(ctx, KeyComponents))
	_, err = s.Get(ctx, KeyComponents)
	assert.ErrorIs(t, err, ErrKeyNotFound)

	// removing a missing key is not an error
	require.NoError(t, s.Remove(ctx, KeyComponents))

	require.NoError(t, s.Clear(ctx))
	keys, err = s.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	buf := []byte("abc")
	require.NoError(t, s.Set(ctx, "k", buf))
	buf[0] = 'x'

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cms.db")
	s, err := OpenSQLite(path, zerolog.Nop())
	require.NoError(t, err)
	defer s.Close()

	exerciseStore(t, s)
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cms.db")

	s, err := OpenSQLite(path, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, KeySettings, []byte(`{"appName":"x"}`)))
	require.NoError(t, s.Close())

	// migrations are idempotent and data persists
	s, err = OpenSQLite(path, zerolog.Nop())
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get(ctx, KeySettings)
	require.NoError(t, err)
	assert.Equal(t, `{"appName":"x"}`, string(got))
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}
	ctx := context.Background()

	db, err := database.NewFromDSN(ctx, dsn, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations("../../migrations"))

	s := NewPostgresStore(db, zerolog.Nop())
	defer s.Close()

	exerciseStore(t, s)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	s, err := OpenRedis(context.Background(), &redis.Options{Addr: addr}, "cms-test:", zerolog.Nop())
	require.NoError(t, err)
	defer s.Close()

	exerciseStore(t, s)
}

func TestVersionedRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	type state struct {
		Items []string `json:"items"`
	}

	var missing state
	found, err := LoadVersioned(ctx, s, KeyWebhooks, &missing)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, SaveVersioned(ctx, s, KeyWebhooks, state{Items: []string{"a", "b"}}))

	raw, err := s.Get(ctx, KeyWebhooks)
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":1,"state":{"items":["a","b"]}}`, string(raw))

	var got state
	found, err = LoadVersioned(ctx, s, KeyWebhooks, &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []string{"a", "b"}, got.Items)
}

func TestLoadVersionedRejectsNewerVersion(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Set(ctx, KeyEntries, []byte(`{"version":2,"state":{}}`)))

	var dst map[string]interface{}
	_, err := LoadVersioned(ctx, s, KeyEntries, &dst)
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestLoadVersionedCorruptBlob(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Set(ctx, KeyEntries, []byte(`not json`)))

	var dst map[string]interface{}
	_, err := LoadVersioned(ctx, s, KeyEntries, &dst)
	assert.Error(t, err)
}
