package main

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/seoflow/internal/store"
)

func newResultsCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "results",
		Short: "Inspect saved workflow results",
	}
	cmd.AddCommand(newResultsListCmd(root), newResultsShowCmd(root))
	return cmd
}

func newResultsListCmd(root *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the most recent results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return fmt.Errorf("--limit must be a positive integer")
			}
			a, err := newApp(cmd, root, nil)
			if err != nil {
				return err
			}
			defer a.Close(cmd.Context())

			summaries, err := a.Store.List(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("failed to list results: %w", err)
			}

			w := cmd.OutOrStdout()
			if len(summaries) == 0 {
				fmt.Fprintln(w, dimStyle.Render("no saved results"))
				return nil
			}
			fmt.Fprintln(w, headerStyle.Render("Recent results"))
			for _, s := range summaries {
				fmt.Fprintf(w, "%s  %-18s %s %s\n",
					valueStyle.Render(s.ID),
					s.WorkflowType,
					statusText(s.Status),
					dimStyle.Render(fmt.Sprintf("%d steps, %s", s.Steps, s.CreatedAt.Local().Format("2006-01-02 15:04:05"))))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", store.DefaultListLimit, "number of results to show")
	return cmd
}

func newResultsShowCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a saved result as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, root, nil)
			if err != nil {
				return err
			}
			defer a.Close(cmd.Context())

			rec, err := a.Store.Get(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to load result %s: %w", args[0], err)
			}

			var buf bytes.Buffer
			if err := json.Indent(&buf, rec.Payload, "", "  "); err != nil {
				return fmt.Errorf("result %s is not valid JSON: %w", rec.ID, err)
			}
			buf.WriteByte('\n')
			_, err = buf.WriteTo(cmd.OutOrStdout())
			return err
		},
	}
}
