// Seoflowd serves the seoflow HTTP API.
//
// Configuration is loaded from ~/.config/seoflow/config.yaml and
// SEOFLOW_-prefixed environment variables. See internal/config for details.
//
// Usage:
//
//	# Start server with defaults
//	seoflowd
//
//	# Configure via environment
//	SEOFLOW_SERVER_HTTP_PORT=9090 SEOFLOW_STORE_BACKEND=sqlite SEOFLOW_STORE_DSN=seoflow.db seoflowd
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/fyrsmithlabs/seoflow/internal/app"
	"github.com/fyrsmithlabs/seoflow/internal/config"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	flag.Parse()
	args := flag.Args()

	if len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  seoflowd           Start the seoflow daemon\n")
			fmt.Fprintf(os.Stderr, "  seoflowd version   Show version information\n")
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server shutdown complete")
}

func printVersion() {
	fmt.Printf("seoflowd by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run wires the application and serves HTTP until ctx is cancelled.
func run(ctx context.Context) error {
	cfg, err := config.LoadWithFile("")
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	a, err := app.New(ctx, cfg, app.Options{Version: version})
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer func() {
		if err := a.Close(context.Background()); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	return a.ServeHTTP(ctx)
}
