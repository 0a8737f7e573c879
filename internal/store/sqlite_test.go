// ABOUTME: Tests for the SQLite ledger
// ABOUTME: Covers append, filtered listing, stats, and observer recording

package store

import (
	"context"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/cookie-jar/internal/dispatch"
	"github.com/2389/cookie-jar/internal/jar"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// setupTestStore creates a new SQLite store in a temp directory.
func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "nested", "ledger.db")

	store, err := NewSQLiteStore(dbPath, testLogger())
	require.NoError(t, err)

	t.Cleanup(func() {
		store.Close()
	})

	return store
}

func TestSQLiteStore_Append(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	e := &Event{Operation: dispatch.ToolGiveCookie, Accepted: true, Collected: 1, Available: 4}
	require.NoError(t, store.Append(ctx, e))

	assert.NotEmpty(t, e.ID)
	assert.False(t, e.Timestamp.IsZero())

	events, err := store.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, e.ID, events[0].ID)
	assert.Equal(t, dispatch.ToolGiveCookie, events[0].Operation)
	assert.True(t, events[0].Accepted)
	assert.Empty(t, events[0].Quality)
	assert.Empty(t, events[0].ErrorKind)
	assert.Equal(t, 1, events[0].Collected)
	assert.Equal(t, 4, events[0].Available)
}

func TestSQLiteStore_ListNewestFirst(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for _, op := range []string{dispatch.ToolCheckCookies, dispatch.ToolGiveCookie, dispatch.ToolJarStatus} {
		require.NoError(t, store.Append(ctx, &Event{Operation: op}))
	}

	events, err := store.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, dispatch.ToolJarStatus, events[0].Operation)
	assert.Equal(t, dispatch.ToolCheckCookies, events[2].Operation)
}

func TestSQLiteStore_ListFilters(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	old := time.Now().UTC().Add(-2 * time.Hour)
	require.NoError(t, store.Append(ctx, &Event{Operation: dispatch.ToolGiveCookie, Timestamp: old}))
	for i := 0; i < 3; i++ {
		require.NoError(t, store.Append(ctx, &Event{Operation: dispatch.ToolGiveCookie}))
	}
	require.NoError(t, store.Append(ctx, &Event{Operation: dispatch.ToolResetCookies}))

	t.Run("by operation", func(t *testing.T) {
		events, err := store.List(ctx, Filter{Operation: dispatch.ToolResetCookies})
		require.NoError(t, err)
		assert.Len(t, events, 1)
	})

	t.Run("since", func(t *testing.T) {
		since := time.Now().UTC().Add(-time.Hour)
		events, err := store.List(ctx, Filter{Since: &since})
		require.NoError(t, err)
		assert.Len(t, events, 4)
	})

	t.Run("limit", func(t *testing.T) {
		events, err := store.List(ctx, Filter{Limit: 2})
		require.NoError(t, err)
		assert.Len(t, events, 2)
		assert.Equal(t, dispatch.ToolResetCookies, events[0].Operation)
	})
}

func TestSQLiteStore_EmptyList(t *testing.T) {
	store := setupTestStore(t)

	events, err := store.List(context.Background(), Filter{})
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)
}

func TestSQLiteStore_ObserveDispatcher(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	d, err := dispatch.New(dispatch.Config{Jar: jar.New(1), Observers: []dispatch.Observer{store}})
	require.NoError(t, err)

	_, err = d.Call(ctx, dispatch.ToolReflectAndReward,
		[]byte(`{"response_quality":"excellent","reasoning":"r","deserves_cookie":true}`))
	require.NoError(t, err)
	_, err = d.Call(ctx, dispatch.ToolGiveCookie, nil)
	require.NoError(t, err)
	_, err = d.Call(ctx, dispatch.ToolAddCookiesToJar,
		[]byte(`{"count":3,"user_authorization":"nope"}`))
	require.NoError(t, err)

	events, err := store.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, events, 3)

	assert.Equal(t, dispatch.ToolAddCookiesToJar, events[0].Operation)
	assert.Equal(t, dispatch.KindUnauthorized, events[0].ErrorKind)

	assert.Equal(t, dispatch.KindEmptyJar, events[1].ErrorKind)
	assert.False(t, events[1].Accepted)

	assert.Equal(t, "excellent", events[2].Quality)
	assert.True(t, events[2].Accepted)
	assert.Equal(t, 1, events[2].Collected)
	assert.Equal(t, 0, events[2].Available)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Events: 3, Awarded: 1, Denied: 2}, stats)
}

func TestSQLiteStore_Reopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ledger.db")
	ctx := context.Background()

	first, err := NewSQLiteStore(dbPath, testLogger())
	require.NoError(t, err)
	require.NoError(t, first.Append(ctx, &Event{Operation: dispatch.ToolCheckCookies}))
	require.NoError(t, first.Close())

	second, err := NewSQLiteStore(dbPath, testLogger())
	require.NoError(t, err)
	defer second.Close()

	events, err := second.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestOpenSQLiteReadOnly(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ledger.db")
	ctx := context.Background()

	_, err := OpenSQLiteReadOnly(dbPath, testLogger())
	require.ErrorIs(t, err, fs.ErrNotExist)
	_, statErr := os.Stat(dbPath)
	require.ErrorIs(t, statErr, fs.ErrNotExist, "read-only open must not create the ledger")

	writer, err := NewSQLiteStore(dbPath, testLogger())
	require.NoError(t, err)
	require.NoError(t, writer.Append(ctx, &Event{Operation: dispatch.ToolGiveCookie, Accepted: true, Collected: 1}))
	require.NoError(t, writer.Close())

	reader, err := OpenSQLiteReadOnly(dbPath, testLogger())
	require.NoError(t, err)
	defer reader.Close()

	events, err := reader.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, dispatch.ToolGiveCookie, events[0].Operation)

	require.Error(t, reader.Append(ctx, &Event{Operation: dispatch.ToolGiveCookie}))
}

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, 100, normalizeLimit(0))
	assert.Equal(t, 100, normalizeLimit(-5))
	assert.Equal(t, 50, normalizeLimit(50))
	assert.Equal(t, 1000, normalizeLimit(5000))
}
