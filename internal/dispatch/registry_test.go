// ABOUTME: Tests for the dispatch table and inferred argument schemas

package dispatch

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nopHandler(context.Context, json.RawMessage) (*Outcome, error) {
	return &Outcome{}, nil
}

func TestNewTable_RejectsDuplicateNames(t *testing.T) {
	_, err := newTable(
		&Operation{Definition: Definition{Name: "a"}, Handler: nopHandler},
		&Operation{Definition: Definition{Name: "a"}, Handler: nopHandler},
	)
	require.ErrorIs(t, err, ErrToolCollision)
}

func TestNewTable_KeepsRegistrationOrder(t *testing.T) {
	tbl, err := newTable(
		&Operation{Definition: Definition{Name: "b"}, Handler: nopHandler},
		&Operation{Definition: Definition{Name: "a"}, Handler: nopHandler},
	)
	require.NoError(t, err)

	defs := tbl.definitions()
	require.Len(t, defs, 2)
	assert.Equal(t, "b", defs[0].Name)
	assert.Equal(t, "a", defs[1].Name)

	_, ok := tbl.lookup("missing")
	assert.False(t, ok)
}

func TestDefinitions_Schemas(t *testing.T) {
	d := newTestDispatcher(t, 10)

	byName := map[string]Definition{}
	for _, def := range d.Definitions() {
		byName[def.Name] = def
	}
	require.Len(t, byName, 6)

	reflect := byName[ToolReflectAndReward].InputSchema
	require.NotNil(t, reflect)
	assert.Equal(t, "object", reflect.Type)
	assert.ElementsMatch(t, []string{"response_quality", "reasoning", "deserves_cookie"}, reflect.Required)
	assert.Equal(t, []any{"excellent", "good", "adequate", "poor"}, reflect.Properties["response_quality"].Enum)

	restock := byName[ToolAddCookiesToJar].InputSchema
	require.NotNil(t, restock.Properties["count"].Minimum)
	assert.InDelta(t, 1.0, *restock.Properties["count"].Minimum, 0)
	assert.ElementsMatch(t, []string{"count", "user_authorization"}, restock.Required)

	assert.Empty(t, byName[ToolGiveCookie].InputSchema.Required)
	assert.True(t, byName[ToolCheckCookies].ReadOnly)
	assert.True(t, byName[ToolJarStatus].ReadOnly)
	assert.True(t, byName[ToolResetCookies].Destructive)
}
