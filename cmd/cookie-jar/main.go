// ABOUTME: Entry point for the cookie-jar MCP server
// ABOUTME: Dispatches subcommands; a bare invocation serves with defaults

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
                 _    _              _
  ___ ___   ___ | | _(_) ___        (_) __ _ _ __
 / __/ _ \ / _ \| |/ / |/ _ \_____  | |/ _' | '__|
| (_| (_) | (_) |   <| |  __/_____| | | (_| | |
 \___\___/ \___/|_|\_\_|\___|      _/ |\__,_|_|
                                  |__/
`

const usage = `Usage: cookie-jar <command> [flags]

Commands:
  serve      Start the MCP server (default)
  init       Write a default config file
  token      Mint a bearer token for the HTTP transport
  history    Show recent cookie ledger events
  health     Check the HTTP server's health endpoint
  guide      Print the usage guide
  help       Show this help

Run 'cookie-jar <command> -h' for command flags.
`

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

// run executes one command and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := "serve"
	if len(args) > 0 && !isServeFlag(args[0]) {
		cmd, args = args[0], args[1:]
	}

	var err error
	switch cmd {
	case "serve":
		err = runServe(ctx, args, stderr)
	case "init":
		err = runInit(args, stdout, stderr)
	case "token":
		err = runToken(args, stdout, stderr)
	case "history":
		err = runHistory(ctx, args, stdout, stderr)
	case "health":
		err = runHealth(ctx, args, stdout, stderr)
	case "guide":
		err = runGuide(stdout)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n\n%s", cmd, usage)
		return 1
	}

	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		color.New(color.FgRed).Fprint(stderr, "Error: ")
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}
	return 0
}

// isServeFlag reports whether arg is a serve flag given without the
// subcommand, e.g. "cookie-jar --jar 5".
func isServeFlag(arg string) bool {
	return strings.HasPrefix(arg, "-") && arg != "-h" && arg != "--help"
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}
