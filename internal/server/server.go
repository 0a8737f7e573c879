// ABOUTME: Server orchestrator wiring the jar, dispatcher, ledger, metrics, and MCP transports
// ABOUTME: Serves stdio directly or runs the HTTP listener (TCP or Tailscale) with graceful shutdown

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tailscale.com/ipn/ipnstate"
	"tailscale.com/tsnet"

	"github.com/2389/cookie-jar/internal/assets"
	"github.com/2389/cookie-jar/internal/auth"
	"github.com/2389/cookie-jar/internal/config"
	"github.com/2389/cookie-jar/internal/dispatch"
	"github.com/2389/cookie-jar/internal/jar"
	"github.com/2389/cookie-jar/internal/mcp"
	"github.com/2389/cookie-jar/internal/metrics"
	"github.com/2389/cookie-jar/internal/ratelimit"
	"github.com/2389/cookie-jar/internal/store"
)

const shutdownTimeout = 5 * time.Second

// Server owns one jar and exposes it over the configured transport.
type Server struct {
	config      *config.Config
	version     string
	jar         *jar.Jar
	dispatcher  *dispatch.Dispatcher
	ledger      store.RecordingLedger
	metrics     *metrics.Recorder
	mcpServer   *mcp.Server
	httpServer  *http.Server
	tsnetServer *tsnet.Server
	logger      *slog.Logger

	// endpoint is the URL clients use for the MCP endpoint, for logging
	endpoint string
}

// Option customizes a Server built by New.
type Option func(*Server)

// WithLedger records outcomes to l instead of opening ledger.path. The
// server takes ownership and closes l on shutdown.
func WithLedger(l store.RecordingLedger) Option {
	return func(s *Server) {
		s.ledger = l
	}
}

// New builds a Server from configuration. The ledger, when configured, is
// opened here and closed by Run or Shutdown.
func New(cfg *config.Config, version string, logger *slog.Logger, opts ...Option) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config:  cfg,
		version: version,
		jar:     jar.New(cfg.Jar.Initial),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	var observers []dispatch.Observer
	if cfg.Metrics.Enabled {
		s.metrics = metrics.NewRecorder()
		st := s.jar.Status()
		s.metrics.SetSupply(st.Collected, st.Available)
		observers = append(observers, s.metrics)
	}
	if s.ledger == nil && cfg.Ledger.Path != "" {
		ledger, err := store.NewSQLiteStore(cfg.Ledger.Path, logger.With("component", "store"))
		if err != nil {
			return nil, fmt.Errorf("opening ledger: %w", err)
		}
		s.ledger = ledger
	}
	if s.ledger != nil {
		observers = append(observers, s.ledger)
	}

	dispatcher, err := dispatch.New(dispatch.Config{
		Jar:       s.jar,
		Logger:    logger.With("component", "dispatch"),
		Observers: observers,
	})
	if err != nil {
		s.closeLedger()
		return nil, fmt.Errorf("creating dispatcher: %w", err)
	}
	s.dispatcher = dispatcher

	mcpServer, err := mcp.NewServer(mcp.Config{
		Dispatcher: dispatcher,
		Logger:     logger.With("component", "mcp"),
		Version:    version,
	})
	if err != nil {
		s.closeLedger()
		return nil, fmt.Errorf("creating MCP server: %w", err)
	}
	s.mcpServer = mcpServer

	handler, err := s.routes()
	if err != nil {
		s.closeLedger()
		return nil, err
	}
	s.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.endpoint = "http://" + cfg.Server.HTTPAddr + "/mcp"

	return s, nil
}

// routes assembles the HTTP mux: /mcp behind auth and rate limiting, plus
// health, guide, and optional metrics endpoints.
func (s *Server) routes() (http.Handler, error) {
	var verifier auth.TokenVerifier
	if secret := s.config.Auth.JWTSecret; secret != "" {
		v, err := auth.NewJWTVerifier([]byte(secret))
		if err != nil {
			return nil, fmt.Errorf("creating token verifier: %w", err)
		}
		verifier = v
	}

	limiter := ratelimit.New(s.config.RateLimit.RPS, s.config.RateLimit.Burst, s.config.RateLimit.IdleTTL)
	var onReject func()
	if s.metrics != nil {
		onReject = s.metrics.RateLimited
	}

	mcpHandler := auth.Middleware(verifier, s.logger.With("component", "auth"))(
		ratelimit.Middleware(limiter, onReject)(s.mcpServer.Handler()),
	)

	mux := http.NewServeMux()
	mux.Handle("/mcp", mcpHandler)
	mux.Handle("/mcp/", mcpHandler)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /guide", assets.GuideHandler())
	if s.metrics != nil {
		mux.Handle("GET "+s.config.Metrics.Path, s.metrics.Handler())
	}
	return mux, nil
}

// Handler returns the HTTP handler used by the http transport.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Dispatcher returns the dispatcher that owns the jar.
func (s *Server) Dispatcher() *dispatch.Dispatcher {
	return s.dispatcher
}

// Run serves the configured transport until ctx is canceled or the
// transport fails. It returns nil on graceful shutdown.
func (s *Server) Run(ctx context.Context) error {
	if s.config.Server.Transport == config.TransportHTTP {
		return s.runHTTP(ctx)
	}
	return s.runStdio(ctx)
}

func (s *Server) runStdio(ctx context.Context) error {
	s.logger.Info("serving MCP on stdio", "available", s.jar.Status().Available)
	err := s.mcpServer.Run(ctx)
	s.closeLedger()
	return err
}

func (s *Server) runHTTP(ctx context.Context) error {
	ln, err := s.setupListener(ctx)
	if err != nil {
		s.closeLedger()
		return err
	}

	errCh := s.startServer(ln)
	serverErr := s.waitForShutdownSignal(ctx, errCh)

	shutdownErr := s.gracefulShutdown()

	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// setupListener creates the HTTP listener based on configuration (Tailscale or TCP).
func (s *Server) setupListener(ctx context.Context) (net.Listener, error) {
	if s.config.Tailscale.Enabled {
		if s.config.Server.HTTPAddr != "" {
			s.logger.Warn("server.http_addr is ignored when tailscale is enabled", "http_addr", s.config.Server.HTTPAddr)
		}
		return s.setupTailscaleListener(ctx)
	}

	ln, err := net.Listen("tcp", s.config.Server.HTTPAddr)
	if err != nil {
		return nil, fmt.Errorf("listening on HTTP address: %w", err)
	}
	s.endpoint = "http://" + ln.Addr().String() + "/mcp"
	return ln, nil
}

// startServer starts the HTTP server in a goroutine, returning its error channel.
func (s *Server) startServer(ln net.Listener) chan error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP server listening", "addr", ln.Addr().String(), "mcp_endpoint", s.endpoint)
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	return errCh
}

// waitForShutdownSignal waits for context cancellation or server error.
func (s *Server) waitForShutdownSignal(ctx context.Context, errCh chan error) error {
	select {
	case <-ctx.Done():
		s.logger.Info("context canceled, initiating shutdown")
		return nil
	case err := <-errCh:
		s.logger.Error("server error", "error", err)
		return err
	}
}

// gracefulShutdown performs shutdown with a fresh context and timeout, since
// the run context is already canceled.
func (s *Server) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.Shutdown(ctx)
}

// appendCloseError appends an error with label if err is non-nil.
func appendCloseError(errs []error, label string, err error) []error {
	if err != nil {
		return append(errs, fmt.Errorf("%s: %w", label, err))
	}
	return errs
}

// Shutdown stops the HTTP server and releases the tailscale node and ledger.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down")

	var errs []error
	errs = appendCloseError(errs, "HTTP shutdown", s.httpServer.Shutdown(ctx))
	if s.tsnetServer != nil {
		errs = appendCloseError(errs, "tailscale shutdown", s.tsnetServer.Close())
	}
	if s.ledger != nil {
		errs = appendCloseError(errs, "ledger close", s.ledger.Close())
		s.ledger = nil
	}

	return errors.Join(errs...)
}

func (s *Server) closeLedger() {
	if s.ledger == nil {
		return
	}
	if err := s.ledger.Close(); err != nil {
		s.logger.Warn("closing ledger", "error", err)
	}
	s.ledger = nil
}

// handleHealth returns 200 OK if the server is alive.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// resolveTailscaleStateDir returns the state directory, using default if not configured.
func resolveTailscaleStateDir(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory for tailscale state (set tailscale.state_dir explicitly): %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "cookie-jar", "tailscale"), nil
}

// resolveTailscaleAuthKey returns the auth key from config or environment.
func resolveTailscaleAuthKey(configured string) (string, error) {
	authKey := configured
	if authKey == "" {
		authKey = os.Getenv("TS_AUTHKEY")
	}
	if authKey == "" {
		return "", errors.New("tailscale auth key required: set tailscale.auth_key in config or TS_AUTHKEY environment variable")
	}
	return authKey, nil
}

// setupTailscaleListener joins the tailnet and listens on :80, or on :443
// through Funnel when public access is enabled.
func (s *Server) setupTailscaleListener(ctx context.Context) (net.Listener, error) {
	tsCfg := s.config.Tailscale

	stateDir, err := resolveTailscaleStateDir(tsCfg.StateDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(stateDir, 0700); err != nil {
		return nil, fmt.Errorf("creating tailscale state dir: %w", err)
	}

	authKey, err := resolveTailscaleAuthKey(tsCfg.AuthKey)
	if err != nil {
		return nil, err
	}

	s.tsnetServer = &tsnet.Server{
		Hostname:  tsCfg.Hostname,
		Dir:       stateDir,
		Ephemeral: tsCfg.Ephemeral,
		AuthKey:   authKey,
		Logf:      func(string, ...any) {},
	}

	s.logger.Info("starting tailscale node", "hostname", tsCfg.Hostname, "state_dir", stateDir, "ephemeral", tsCfg.Ephemeral)
	status, err := s.tsnetServer.Up(ctx)
	if err != nil {
		_ = s.tsnetServer.Close()
		return nil, fmt.Errorf("starting tailscale: %w", err)
	}
	s.logTailscaleStatus(tsCfg.Hostname, status)

	var ln net.Listener
	if tsCfg.Funnel {
		s.logger.Info("enabling tailscale funnel (public HTTPS) on :443")
		ln, err = s.tsnetServer.ListenFunnel("tcp", ":443")
	} else {
		ln, err = s.tsnetServer.Listen("tcp", ":80")
	}
	if err != nil {
		_ = s.tsnetServer.Close()
		return nil, fmt.Errorf("listening on tailscale HTTP port: %w", err)
	}
	s.endpoint = endpointFromStatus(status, tsCfg.Funnel, s.endpoint)
	return ln, nil
}

// logTailscaleStatus logs info about the tailscale node status.
func (s *Server) logTailscaleStatus(hostname string, status *ipnstate.Status) {
	var tsAddr, dnsName string
	if len(status.TailscaleIPs) > 0 {
		tsAddr = status.TailscaleIPs[0].String()
	} else {
		s.logger.Warn("tailscale node has no IP addresses assigned")
	}
	if status.Self != nil {
		dnsName = status.Self.DNSName
	}
	s.logger.Info("tailscale node ready", "hostname", hostname, "tailscale_ip", tsAddr, "dns_name", dnsName)
}

// endpointFromStatus derives the MCP URL from the node's MagicDNS name.
func endpointFromStatus(status *ipnstate.Status, funnel bool, fallback string) string {
	if status == nil || status.Self == nil || status.Self.DNSName == "" {
		return fallback
	}
	scheme := "http://"
	if funnel {
		scheme = "https://"
	}
	return scheme + strings.TrimSuffix(status.Self.DNSName, ".") + "/mcp"
}
