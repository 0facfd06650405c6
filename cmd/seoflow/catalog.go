package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/seoflow/internal/agent"
)

func newWorkflowsCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "workflows",
		Short: "List predefined workflows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, root, nil)
			if err != nil {
				return err
			}
			defer a.Close(cmd.Context())

			w := cmd.OutOrStdout()
			fmt.Fprintln(w, headerStyle.Render("Workflows"))
			for _, wf := range a.Registry.Workflows() {
				steps := make([]string, len(wf.Steps))
				for i, s := range wf.Steps {
					steps[i] = string(s)
				}
				fmt.Fprintln(w, sectionStyle.Render(wf.Name))
				fmt.Fprintln(w, "  "+wf.Description)
				fmt.Fprintln(w, "  "+dimStyle.Render(strings.Join(steps, " → ")))
			}
			fmt.Fprintln(w, sectionStyle.Render("custom"))
			fmt.Fprintln(w, "  "+dimStyle.Render("any agents, in the order given with --steps"))
			return nil
		},
	}
}

func newAgentsCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "agents",
		Short: "List agents available to custom workflows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, headerStyle.Render("Agents"))
			for _, name := range agent.All() {
				fmt.Fprintln(w, field(string(name), "")+name.Description())
			}
			return nil
		},
	}
}

func newModeCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mode",
		Short: "Show which execution mode agents will use, and why",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, root, nil)
			if err != nil {
				return err
			}
			defer a.Close(cmd.Context())

			d := a.Decision
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, headerStyle.Render("Execution mode"))
			mode := okStyle.Render(string(d.Mode))
			if !d.IsLive() {
				mode = warnStyle.Render(string(d.Mode))
			}
			fmt.Fprintln(w, labelStyle.Render("Mode")+mode)
			fmt.Fprintln(w, field("Reason", d.Reason))
			fmt.Fprintln(w, field("Source", string(d.Source)))
			fmt.Fprintln(w, field("Provider", a.Model.Provider))
			fmt.Fprintln(w, field("Model", a.Model.Model))

			fmt.Fprintln(w, sectionStyle.Render("Keys file"))
			fmt.Fprintln(w, field("Path", d.Diagnostics.Path))
			fmt.Fprintln(w, field("Status", string(d.Diagnostics.Status)))
			fmt.Fprintln(w, field("Message", d.Diagnostics.Message))
			return nil
		},
	}
}
