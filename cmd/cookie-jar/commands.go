// ABOUTME: Auxiliary commands: init, token, history, health, guide
// ABOUTME: Each loads the same config as serve so paths and secrets agree

package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/2389/cookie-jar/internal/assets"
	"github.com/2389/cookie-jar/internal/auth"
	"github.com/2389/cookie-jar/internal/config"
	"github.com/2389/cookie-jar/internal/store"
)

const defaultTokenTTL = 30 * 24 * time.Hour

func loadConfig(flagPath string) (*config.Config, error) {
	path, explicit := config.ResolvePath(flagPath)
	cfg, err := config.LoadOrDefault(path, explicit)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// runInit writes a default config with a fresh JWT secret and the ledger
// under the user's data directory.
func runInit(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("init", stderr)
	configPath := fs.String("config", "", "where to write the config (.yaml or .toml)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	path, _ := config.ResolvePath(*configPath)

	secretBytes := make([]byte, 32)
	if _, err := rand.Read(secretBytes); err != nil {
		return fmt.Errorf("generating JWT secret: %w", err)
	}

	cfg := config.Default()
	cfg.Auth.JWTSecret = base64.StdEncoding.EncodeToString(secretBytes)
	cfg.Ledger.Path = config.DefaultLedgerPath()

	if err := config.Write(cfg, path); err != nil {
		return err
	}

	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	green.Fprintf(stdout, "  ✓ Created config: %s\n", path)
	green.Fprintf(stdout, "  ✓ Ledger:         %s\n", cfg.Ledger.Path)
	fmt.Fprintln(stdout)
	yellow.Fprintln(stdout, "  Ready to go:")
	fmt.Fprintln(stdout, "    cookie-jar serve                    # stdio, for MCP clients")
	fmt.Fprintln(stdout, "    cookie-jar serve --transport http   # Streamable HTTP on /mcp")
	fmt.Fprintln(stdout, "    cookie-jar token --subject me       # bearer token for HTTP")
	return nil
}

func runToken(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("token", stderr)
	configPath := fs.String("config", "", "path to config file")
	subject := fs.String("subject", "", "token subject (required)")
	ttl := fs.Duration("ttl", defaultTokenTTL, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *subject == "" {
		return errors.New("--subject is required")
	}
	if *ttl <= 0 {
		return errors.New("--ttl must be positive")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if cfg.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is not configured (run 'cookie-jar init')")
	}

	verifier, err := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
	if err != nil {
		return fmt.Errorf("creating JWT verifier: %w", err)
	}
	token, err := verifier.Generate(*subject, *ttl)
	if err != nil {
		return fmt.Errorf("generating token: %w", err)
	}

	fmt.Fprintln(stdout, token)
	return nil
}

func runHistory(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("history", stderr)
	configPath := fs.String("config", "", "path to config file")
	limit := fs.Int("limit", 20, "number of events to show")
	operation := fs.String("operation", "", "only show this tool")
	since := fs.String("since", "", "only show events newer than a duration (24h) or RFC3339 time")
	if err := fs.Parse(args); err != nil {
		return err
	}

	filter := store.Filter{Operation: *operation, Limit: *limit}
	if *since != "" {
		t, err := parseSince(*since, time.Now())
		if err != nil {
			return err
		}
		filter.Since = &t
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if cfg.Ledger.Path == "" {
		return errors.New("ledger.path is not configured")
	}

	ledger, err := store.OpenSQLiteReadOnly(cfg.Ledger.Path, setupLogger(cfg.Logging, stderr))
	if errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(stdout, "No events recorded yet.")
		fmt.Fprintf(stdout, "(no ledger at %s; serve creates it on first start)\n", cfg.Ledger.Path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("opening ledger: %w", err)
	}
	defer ledger.Close()

	return showHistory(ctx, ledger, filter, stdout)
}

// showHistory lists the events matching f along with whole-ledger totals.
func showHistory(ctx context.Context, ledger store.Ledger, f store.Filter, w io.Writer) error {
	events, err := ledger.List(ctx, f)
	if err != nil {
		return fmt.Errorf("listing events: %w", err)
	}
	stats, err := ledger.Stats(ctx)
	if err != nil {
		return fmt.Errorf("reading stats: %w", err)
	}

	printHistory(w, events, stats)
	return nil
}

// parseSince accepts a Go duration counted back from now, or an RFC3339 time.
func parseSince(v string, now time.Time) (time.Time, error) {
	if d, err := time.ParseDuration(v); err == nil {
		if d <= 0 {
			return time.Time{}, errors.New("--since duration must be positive")
		}
		return now.Add(-d), nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("--since %q is neither a duration nor an RFC3339 time", v)
	}
	return t, nil
}

func printHistory(w io.Writer, events []store.Event, stats store.Stats) {
	if len(events) == 0 {
		fmt.Fprintln(w, "No events recorded yet.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tOPERATION\tRESULT\tQUALITY\tCOLLECTED\tAVAILABLE")
	for _, e := range events {
		result := "ok"
		switch {
		case e.ErrorKind != "":
			result = e.ErrorKind
		case !e.Accepted:
			result = "declined"
		}
		quality := e.Quality
		if quality == "" {
			quality = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\n",
			e.Timestamp.Local().Format(time.DateTime), e.Operation, result, quality, e.Collected, e.Available)
	}
	tw.Flush()

	fmt.Fprintf(w, "\n%d events, %d cookies awarded, %d denied\n", stats.Events, stats.Awarded, stats.Denied)
}

func runHealth(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("health", stderr)
	configPath := fs.String("config", "", "path to config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	url := fmt.Sprintf("http://%s/health", cfg.Server.HTTPAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	fmt.Fprintln(stdout, "healthy")
	return nil
}

func runGuide(stdout io.Writer) error {
	_, err := io.WriteString(stdout, assets.Guide())
	return err
}
