package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/seoflow/internal/mcp"
	"github.com/fyrsmithlabs/seoflow/internal/workflows"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Long: `Serve the HTTP API until interrupted.

Routes are served under /api/v1, with /health and /metrics at the root.
Host and port come from server.http_host and server.http_port.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, root, nil)
			if err != nil {
				return err
			}
			defer a.Close(cmd.Context())
			return a.ServeHTTP(cmd.Context())
		},
	}
}

func newMCPCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve workflow tools over MCP on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, root, nil)
			if err != nil {
				return err
			}
			defer a.Close(cmd.Context())

			srv, err := mcp.NewServer(&mcp.Config{
				Name:    "seoflow",
				Version: version,
				Logger:  a.Logger.Named("mcp"),
			}, a.Orchestrator, a.Store, a.Scrubber)
			if err != nil {
				return fmt.Errorf("failed to create MCP server: %w", err)
			}
			return srv.Run(cmd.Context())
		},
	}
}

func newWorkerCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run a Temporal worker that executes durable runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(cmd, root, nil)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			c, err := workflows.Dial(a.Config.Temporal)
			if err != nil {
				return err
			}
			defer c.Close()

			acts, err := workflows.NewActivities(a.Orchestrator, a.Logger.Named("workflows"), nil)
			if err != nil {
				return err
			}
			w := workflows.NewWorker(c, a.Config.Temporal.TaskQueue, acts)

			a.Logger.Info(ctx, "temporal worker starting",
				zap.String("host_port", a.Config.Temporal.HostPort),
				zap.String("task_queue", a.Config.Temporal.TaskQueue))

			workerErrors := make(chan error, 1)
			go func() {
				workerErrors <- w.Run(worker.InterruptCh())
			}()

			select {
			case <-ctx.Done():
				a.Logger.Info(ctx, "temporal worker stopping")
				w.Stop()
				return nil
			case err := <-workerErrors:
				if err != nil {
					return fmt.Errorf("worker failed: %w", err)
				}
				return nil
			}
		},
	}
}
