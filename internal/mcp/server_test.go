// ABOUTME: Tests for the MCP server over in-memory and Streamable HTTP transports.
// ABOUTME: Drives tools and the guide resource through a real go-sdk client session.

package mcp

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/cookie-jar/internal/dispatch"
	"github.com/2389/cookie-jar/internal/jar"
)

func newTestServer(t *testing.T, initial int) *Server {
	t.Helper()
	d, err := dispatch.New(dispatch.Config{Jar: jar.New(initial)})
	require.NoError(t, err)
	s, err := NewServer(Config{Dispatcher: d, Version: "test"})
	require.NoError(t, err)
	return s
}

// connect starts s on an in-memory transport and returns a connected client session.
func connect(t *testing.T, s *Server) *sdk.ClientSession {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	serverTransport, clientTransport := sdk.NewInMemoryTransports()
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.Serve(ctx, serverTransport)
	}()

	client := sdk.NewClient(&sdk.Implementation{Name: "client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = cs.Close()
		cancel()
		select {
		case <-serveErr:
		case <-time.After(2 * time.Second):
			t.Error("server did not stop after cancel")
		}
	})
	return cs
}

func callTool(t *testing.T, cs *sdk.ClientSession, name string, args map[string]any) (*sdk.CallToolResult, string) {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &sdk.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*sdk.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return res, text.Text
}

func structured(t *testing.T, res *sdk.CallToolResult) map[string]any {
	t.Helper()
	m, ok := res.StructuredContent.(map[string]any)
	require.True(t, ok, "expected structured content object, got %T", res.StructuredContent)
	return m
}

func TestNewServer_RequiresDispatcher(t *testing.T) {
	_, err := NewServer(Config{})
	require.Error(t, err)
}

func TestListTools(t *testing.T) {
	cs := connect(t, newTestServer(t, 10))

	res, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)

	names := make([]string, 0, len(res.Tools))
	byName := map[string]*sdk.Tool{}
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
		byName[tool.Name] = tool
	}
	assert.ElementsMatch(t, []string{
		dispatch.ToolReflectAndReward,
		dispatch.ToolGiveCookie,
		dispatch.ToolCheckCookies,
		dispatch.ToolResetCookies,
		dispatch.ToolAddCookiesToJar,
		dispatch.ToolJarStatus,
	}, names)

	status := byName[dispatch.ToolJarStatus]
	require.NotNil(t, status.Annotations)
	assert.True(t, status.Annotations.ReadOnlyHint)

	reset := byName[dispatch.ToolResetCookies]
	require.NotNil(t, reset.Annotations)
	require.NotNil(t, reset.Annotations.DestructiveHint)
	assert.True(t, *reset.Annotations.DestructiveHint)
}

func TestCallTool_ReflectAndStatus(t *testing.T) {
	cs := connect(t, newTestServer(t, 3))

	res, text := callTool(t, cs, dispatch.ToolReflectAndReward, map[string]any{
		"response_quality": "good",
		"reasoning":        "answered precisely",
		"deserves_cookie":  true,
	})
	assert.False(t, res.IsError)
	assert.Contains(t, text, "Cookie awarded for good work")

	sc := structured(t, res)
	assert.Equal(t, true, sc["accepted"])
	assert.Equal(t, "good", sc["quality"])
	assert.InDelta(t, 1, sc["collected"], 0)
	assert.InDelta(t, 2, sc["available"], 0)
	assert.Equal(t, "LOW", sc["tier"])

	// The jar is now low, so good work is rationed.
	res, text = callTool(t, cs, dispatch.ToolReflectAndReward, map[string]any{
		"response_quality": "good",
		"reasoning":        "again",
		"deserves_cookie":  true,
	})
	assert.False(t, res.IsError)
	assert.Contains(t, text, "reserved for excellent work")
	assert.Equal(t, false, structured(t, res)["accepted"])

	_, text = callTool(t, cs, dispatch.ToolJarStatus, nil)
	assert.Contains(t, text, "**Available in Jar:** 2")
}

func TestCallTool_EmptyJarIsError(t *testing.T) {
	cs := connect(t, newTestServer(t, 0))

	res, text := callTool(t, cs, dispatch.ToolGiveCookie, map[string]any{"message": "thanks"})
	assert.True(t, res.IsError)
	assert.Contains(t, text, "empty")
	assert.Equal(t, dispatch.KindEmptyJar, structured(t, res)["error"])
}

func TestCallTool_Restock(t *testing.T) {
	cs := connect(t, newTestServer(t, 0))

	res, text := callTool(t, cs, dispatch.ToolAddCookiesToJar, map[string]any{
		"count":              5,
		"user_authorization": "I am the user",
	})
	assert.True(t, res.IsError)
	assert.Contains(t, text, "ACCESS DENIED")
	assert.Equal(t, dispatch.KindUnauthorized, structured(t, res)["error"])

	res, text = callTool(t, cs, dispatch.ToolAddCookiesToJar, map[string]any{
		"count":              5,
		"user_authorization": dispatch.RefillPhrase,
	})
	assert.False(t, res.IsError)
	assert.Contains(t, text, "Added 5 cookies")
	assert.InDelta(t, 5, structured(t, res)["available"], 0)
}

func TestCallTool_InvalidArguments(t *testing.T) {
	cs := connect(t, newTestServer(t, 5))

	res, text := callTool(t, cs, dispatch.ToolReflectAndReward, map[string]any{
		"response_quality": "stellar",
		"reasoning":        "x",
		"deserves_cookie":  true,
	})
	assert.True(t, res.IsError)
	assert.Contains(t, text, "invalid arguments")

	_, text = callTool(t, cs, dispatch.ToolCheckCookies, nil)
	assert.Contains(t, text, "You currently have 0 cookies")
}

func TestCallTool_UnknownTool(t *testing.T) {
	cs := connect(t, newTestServer(t, 5))

	res, err := cs.CallTool(context.Background(), &sdk.CallToolParams{Name: "eat_cookie"})
	if err == nil {
		require.NotNil(t, res)
		assert.True(t, res.IsError)
	}
}

func TestReadGuide(t *testing.T) {
	cs := connect(t, newTestServer(t, 5))
	ctx := context.Background()

	list, err := cs.ListResources(ctx, nil)
	require.NoError(t, err)
	require.Len(t, list.Resources, 1)
	assert.Equal(t, "cookie://usage-guide", list.Resources[0].URI)
	assert.Equal(t, "Cookie Server Usage Guide", list.Resources[0].Name)
	assert.Equal(t, "text/plain", list.Resources[0].MIMEType)

	res, err := cs.ReadResource(ctx, &sdk.ReadResourceParams{URI: "cookie://usage-guide"})
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)
	assert.Contains(t, res.Contents[0].Text, "self_reflect_and_reward")

	_, err = cs.ReadResource(ctx, &sdk.ReadResourceParams{URI: "cookie://missing"})
	require.Error(t, err)
}

func TestStreamableHTTP(t *testing.T) {
	s := newTestServer(t, 4)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client := sdk.NewClient(&sdk.Implementation{Name: "client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, &sdk.StreamableClientTransport{Endpoint: ts.URL}, nil)
	require.NoError(t, err)
	defer cs.Close()

	res, err := cs.CallTool(ctx, &sdk.CallToolParams{Name: dispatch.ToolGiveCookie})
	require.NoError(t, err)
	assert.False(t, res.IsError)

	assert.Equal(t, jar.Status{Collected: 1, Available: 3}, s.dispatcher.Status())
}
