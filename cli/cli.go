// Package cli provides the command-line interface for the grid server.
// It exports Run() so wrapper projects can embed the server in their own
// binaries.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/drewnoakes/biggus-griddus/internal/config"
	"github.com/drewnoakes/biggus-griddus/internal/server"
)

// Run executes the CLI with the given arguments.
// Returns exit code (0 = success, non-zero = error).
func Run(args []string) int {
	if len(args) < 1 {
		return runServe(args)
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "serve":
		return runServe(cmdArgs)
	case "help", "-h", "--help":
		printHelp()
		return 0
	case "version", "--version":
		printVersion()
		return 0
	default:
		// Bare flags mean serve
		if len(command) > 0 && command[0] == '-' {
			return runServe(args)
		}
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printHelp()
		return 1
	}
}

// runServe starts the server and blocks until it stops or a signal arrives.
func runServe(args []string) int {
	cfg, err := config.Load(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return 1
	}

	s := server.New(cfg)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	errs := make(chan error, 1)
	go func() { errs <- s.Run() }()

	select {
	case err := <-errs:
		if err != nil {
			fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
			return 1
		}
		return 0
	case sig := <-sigs:
		cfg.Log(0, "Received %v, shutting down", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Shutdown(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Shutdown error: %v\n", err)
			return 1
		}
		return 0
	}
}

func printHelp() {
	fmt.Println(`Biggus Griddus - live grid server

Usage: griddus [command] [options]

Commands:
  serve           Start the grid server (default)
  version         Print version
  help            Show this help

Options:
  --config        TOML config file path (default: griddus.toml)
  --host          Listen address (default: 0.0.0.0)
  --port          Listen port (default: 8080)
  --instruments   Instruments TOML file (default: instruments.toml)
  --interval      Feed mutation interval (default: 250ms)
  --max-trades    Trade count the feed retires past (default: 500)
  --window-size   Initial window capacity per connection (default: 20)
  --no-filter     Reject Lua filter expressions
  -v, -vv, -vvv   Increase logging verbosity

Environment:
  GRIDDUS_HOST, GRIDDUS_PORT, GRIDDUS_INSTRUMENTS, GRIDDUS_INTERVAL,
  GRIDDUS_WINDOW_SIZE, GRIDDUS_FILTER, GRIDDUS_VERBOSITY

Examples:
  griddus serve --port 8080 -vv
  griddus --instruments universe.toml --interval 100ms`)
}

func printVersion() {
	fmt.Println("griddus v0.1.0")
}
