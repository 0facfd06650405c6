// Package main implements the seoflow CLI.
//
// Usage:
//
//	# Run a predefined workflow in whichever mode the environment selects
//	seoflow run content_creation --input website_url=https://example.com
//
//	# Run a custom sequence of agents
//	seoflow run custom --steps keyword_research,technical_seo --input website_url=https://example.com
//
//	# Serve the HTTP API, the MCP tools, or a Temporal worker
//	seoflow serve
//	seoflow mcp
//	seoflow worker
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/seoflow/internal/app"
	"github.com/fyrsmithlabs/seoflow/internal/config"
	"github.com/fyrsmithlabs/seoflow/internal/orchestrator"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// rootOptions are the flags shared by every command.
type rootOptions struct {
	configPath string
	envFile    string
	getenv     func(string) string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "seoflow",
		Short: "Run multi-agent SEO workflows",
		Long: `seoflow runs SEO analysis workflows through a fixed set of specialized agents.

Agents call a live text generation provider when an API key is available
(ANTHROPIC_API_KEY, or the keys file) and produce deterministic mock output
otherwise. Set FORCE_MOCK_MODE=true to always use mock output.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadEnvFile(opts.envFile)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default ~/.config/seoflow/config.yaml)")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before configuration; missing files are ignored")

	cmd.AddCommand(
		newRunCmd(opts),
		newWorkflowsCmd(opts),
		newAgentsCmd(opts),
		newModeCmd(opts),
		newResultsCmd(opts),
		newServeCmd(opts),
		newWorkerCmd(opts),
		newMCPCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// loadEnvFile loads a dotenv file without overriding variables that are
// already set.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// newApp loads configuration and wires an App. Logs go to stderr so stdout
// only carries command output.
func newApp(cmd *cobra.Command, opts *rootOptions, progress orchestrator.ProgressCallback) (*app.App, error) {
	cfg, err := config.LoadWithFile(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return app.New(cmd.Context(), cfg, app.Options{
		Version:     version,
		LogToStderr: true,
		Getenv:      opts.getenv,
		Progress:    progress,
	})
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "seoflow by Fyrsmith Labs\n")
			fmt.Fprintf(out, "Version:    %s\n", version)
			fmt.Fprintf(out, "Commit:     %s\n", gitCommit)
			fmt.Fprintf(out, "Build Date: %s\n", buildDate)
		},
	}
}
