// ABOUTME: MCP server exposing the cookie operations as tools plus the usage guide resource.
// ABOUTME: Runs over stdio or serves the Streamable HTTP transport via the official go-sdk.

package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/2389/cookie-jar/internal/assets"
	"github.com/2389/cookie-jar/internal/dispatch"
	"github.com/2389/cookie-jar/internal/jar"
)

const (
	// DefaultName is the implementation name reported during initialize.
	DefaultName = "cookie-jar"

	guideName        = "Cookie Server Usage Guide"
	guideDescription = "How to use the cookie server for self-reflection and rewards"
	guideMIMEType    = "text/plain"

	instructions = "After each response, call self_reflect_and_reward to assess your work honestly. " +
		"Cookies come from a limited jar that only the user can refill."
)

// Result is the structured content attached to every tool result.
type Result struct {
	Accepted  bool     `json:"accepted"`
	Quality   string   `json:"quality,omitempty"`
	Error     string   `json:"error,omitempty"`
	Collected int      `json:"collected"`
	Available int      `json:"available"`
	Tier      jar.Tier `json:"tier"`
}

// Config holds configuration for the MCP server.
type Config struct {
	Dispatcher *dispatch.Dispatcher
	Logger     *slog.Logger
	Name       string
	Version    string
}

// Server adapts a Dispatcher to the Model Context Protocol.
type Server struct {
	mcp        *sdk.Server
	dispatcher *dispatch.Dispatcher
	logger     *slog.Logger
}

// NewServer creates a new MCP server with the given configuration.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	name := cfg.Name
	if name == "" {
		name = DefaultName
	}
	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	s := &Server{
		mcp: sdk.NewServer(&sdk.Implementation{Name: name, Version: version}, &sdk.ServerOptions{
			Instructions: instructions,
		}),
		dispatcher: cfg.Dispatcher,
		logger:     logger,
	}

	for _, def := range cfg.Dispatcher.Definitions() {
		s.mcp.AddTool(toolFor(def), s.toolHandler(def.Name))
	}
	s.mcp.AddResource(&sdk.Resource{
		URI:         assets.GuideURI,
		Name:        guideName,
		Description: guideDescription,
		MIMEType:    guideMIMEType,
	}, s.readGuide)

	return s, nil
}

// Run serves a single client over stdin/stdout until ctx ends or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.Serve(ctx, &sdk.StdioTransport{})
}

// Serve runs the protocol over an arbitrary transport.
func (s *Server) Serve(ctx context.Context, t sdk.Transport) error {
	s.logger.Debug("mcp session starting")
	if err := s.mcp.Run(ctx, t); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}

// Handler returns the Streamable HTTP handler. Every session shares the same jar.
func (s *Server) Handler() http.Handler {
	return sdk.NewStreamableHTTPHandler(func(*http.Request) *sdk.Server {
		return s.mcp
	}, nil)
}

// RegisterRoutes registers the MCP endpoint on the given ServeMux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	h := s.Handler()
	mux.Handle("/mcp", h)
	mux.Handle("/mcp/", h)
}

func toolFor(def dispatch.Definition) *sdk.Tool {
	t := &sdk.Tool{
		Name:        def.Name,
		Title:       def.Title,
		Description: def.Description,
		InputSchema: def.InputSchema,
	}
	ann := &sdk.ToolAnnotations{
		Title:        def.Title,
		ReadOnlyHint: def.ReadOnly,
	}
	if !def.ReadOnly {
		destructive := def.Destructive
		ann.DestructiveHint = &destructive
	}
	closed := false
	ann.OpenWorldHint = &closed
	t.Annotations = ann
	return t
}

func (s *Server) toolHandler(name string) sdk.ToolHandler {
	return func(ctx context.Context, req *sdk.CallToolRequest) (*sdk.CallToolResult, error) {
		var args json.RawMessage
		if req.Params != nil {
			args = req.Params.Arguments
		}

		out, err := s.dispatcher.Call(ctx, name, args)
		if err != nil {
			// bad arguments and unknown tools are tool errors, not protocol errors
			s.logger.Warn("tool call rejected", "tool", name, "error", err)
			return &sdk.CallToolResult{
				IsError: true,
				Content: []sdk.Content{&sdk.TextContent{Text: err.Error()}},
			}, nil
		}

		return resultFor(out), nil
	}
}

func resultFor(out *dispatch.Outcome) *sdk.CallToolResult {
	return &sdk.CallToolResult{
		IsError: out.Err != nil,
		Content: []sdk.Content{&sdk.TextContent{Text: out.Narrative}},
		StructuredContent: Result{
			Accepted:  out.Accepted,
			Quality:   string(out.Quality),
			Error:     out.ErrorKind(),
			Collected: out.Snapshot.Collected,
			Available: out.Snapshot.Available,
			Tier:      out.Snapshot.Tier(),
		},
	}
}

func (s *Server) readGuide(_ context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	if req.Params == nil || req.Params.URI != assets.GuideURI {
		uri := ""
		if req.Params != nil {
			uri = req.Params.URI
		}
		return nil, sdk.ResourceNotFoundError(uri)
	}
	return &sdk.ReadResourceResult{
		Contents: []*sdk.ResourceContents{{
			URI:      assets.GuideURI,
			MIMEType: guideMIMEType,
			Text:     assets.Guide(),
		}},
	}, nil
}
