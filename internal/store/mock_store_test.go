package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/cookie-jar/internal/dispatch"
)

var _ Ledger = (*MockStore)(nil)
var _ Ledger = (*SQLiteStore)(nil)
var _ dispatch.Observer = (*MockStore)(nil)
var _ dispatch.Observer = (*SQLiteStore)(nil)

func TestMockStore(t *testing.T) {
	m := NewMockStore()
	ctx := context.Background()

	require.NoError(t, m.Append(ctx, &Event{Operation: dispatch.ToolGiveCookie, Accepted: true}))
	require.NoError(t, m.Append(ctx, &Event{Operation: dispatch.ToolGiveCookie, ErrorKind: dispatch.KindEmptyJar}))
	require.NoError(t, m.Append(ctx, &Event{Operation: dispatch.ToolJarStatus, Accepted: true}))

	events, err := m.List(ctx, Filter{Operation: dispatch.ToolGiveCookie})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, dispatch.KindEmptyJar, events[0].ErrorKind)

	stats, err := m.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Events: 3, Awarded: 1, Denied: 1}, stats)

	require.NoError(t, m.Close())
	require.ErrorIs(t, m.Append(ctx, &Event{}), ErrClosed)
	_, err = m.List(ctx, Filter{})
	require.ErrorIs(t, err, ErrClosed)
}
