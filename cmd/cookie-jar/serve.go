// ABOUTME: serve command: load config, apply flag overrides, run the server
// ABOUTME: The banner and startup summary go to stderr because stdout may carry the protocol

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"

	"github.com/2389/cookie-jar/internal/config"
	"github.com/2389/cookie-jar/internal/server"
)

type serveOptions struct {
	configPath string
	transport  string
	addr       string
	jar        *int // nil unless --jar was given
}

func parseServeFlags(args []string, stderr io.Writer) (*serveOptions, error) {
	opts := &serveOptions{}
	fs := newFlagSet("serve", stderr)
	fs.StringVar(&opts.configPath, "config", "", "path to config file (.yaml or .toml)")
	fs.StringVar(&opts.transport, "transport", "", "transport to serve: stdio or http")
	fs.StringVar(&opts.addr, "addr", "", "HTTP listen address, e.g. localhost:8080")
	jarFlag := fs.String("jar", "", "initial number of cookies in the jar")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}

	if *jarFlag != "" {
		n, err := strconv.Atoi(*jarFlag)
		if err != nil {
			return nil, fmt.Errorf("--jar must be a whole number, got %q", *jarFlag)
		}
		if n < 0 {
			return nil, errors.New("--jar cannot be negative")
		}
		opts.jar = &n
	}
	return opts, nil
}

// apply overrides cfg with any flags given, then revalidates.
func (o *serveOptions) apply(cfg *config.Config) error {
	if o.jar != nil {
		cfg.Jar.Initial = *o.jar
	}
	if o.transport != "" {
		cfg.Server.Transport = o.transport
	}
	if o.addr != "" {
		cfg.Server.HTTPAddr = o.addr
	}
	return cfg.Validate()
}

func loadServeConfig(opts *serveOptions) (*config.Config, string, error) {
	path, explicit := config.ResolvePath(opts.configPath)
	cfg, err := config.LoadOrDefault(path, explicit)
	if err != nil {
		return nil, path, fmt.Errorf("loading config: %w", err)
	}
	if err := opts.apply(cfg); err != nil {
		return nil, path, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, path, nil
}

func runServe(ctx context.Context, args []string, stderr io.Writer) error {
	opts, err := parseServeFlags(args, stderr)
	if err != nil {
		return err
	}
	cfg, configPath, err := loadServeConfig(opts)
	if err != nil {
		return err
	}

	printStartup(stderr, cfg, configPath)
	logger := setupLogger(cfg.Logging, stderr)

	logger.Info("starting cookie-jar",
		"version", version,
		"transport", cfg.Server.Transport,
		"initial", cfg.Jar.Initial,
	)

	srv, err := server.New(cfg, version, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	return srv.Run(ctx)
}

func printStartup(w io.Writer, cfg *config.Config, configPath string) {
	cyan := color.New(color.FgCyan)
	gray := color.New(color.FgHiBlack)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	cyan.Fprint(w, banner)
	gray.Fprintf(w, "    version: %s\n\n", version)

	green.Fprint(w, "    ▶ ")
	fmt.Fprintf(w, "Config:    %s\n", configPath)
	green.Fprint(w, "    ▶ ")
	fmt.Fprintf(w, "Jar:       %d cookies\n", cfg.Jar.Initial)
	green.Fprint(w, "    ▶ ")
	fmt.Fprintf(w, "Transport: %s\n", cfg.Server.Transport)

	if cfg.Server.Transport == config.TransportHTTP {
		if cfg.Tailscale.Enabled {
			green.Fprint(w, "    ▶ ")
			fmt.Fprint(w, "Tailscale: ")
			cyan.Fprint(w, cfg.Tailscale.Hostname)
			if cfg.Tailscale.Funnel {
				yellow.Fprint(w, " [funnel]")
			}
			if cfg.Tailscale.Ephemeral {
				gray.Fprint(w, " (ephemeral)")
			}
			fmt.Fprintln(w)
		} else {
			green.Fprint(w, "    ▶ ")
			fmt.Fprintf(w, "HTTP:      %s\n", cfg.Server.HTTPAddr)
		}
		if cfg.Auth.JWTSecret == "" {
			yellow.Fprintln(w, "    ! bearer auth disabled (no auth.jwt_secret)")
		}
	}
	if cfg.Ledger.Path != "" {
		green.Fprint(w, "    ▶ ")
		fmt.Fprintf(w, "Ledger:    %s\n", cfg.Ledger.Path)
	}

	fmt.Fprintln(w)
}
