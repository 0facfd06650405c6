package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/seoflow/internal/config"
	"github.com/fyrsmithlabs/seoflow/internal/orchestrator"
	"github.com/fyrsmithlabs/seoflow/internal/workflows"
)

type runOptions struct {
	inputs  []string
	steps   []string
	jsonOut bool
	durable bool
}

func newRunCmd(root *rootOptions) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run <workflow>",
		Short: "Run a workflow and save its result",
		Long: `Run a predefined workflow, or "custom" with --steps, to completion.

The result is saved to the configured store and its ID printed.

Examples:
  # Full analysis of a site
  seoflow run full_seo_analysis --input website_url=https://example.com --input industry=retail

  # Custom sequence
  seoflow run custom --steps keyword_research,content_brief --input target_keywords="running shoes"

  # Print the saved result document
  seoflow run technical_audit --input website_url=https://example.com --json

  # Hand the run to a Temporal worker and wait for it
  seoflow run content_creation --input website_url=https://example.com --durable`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := parseInputs(opts.inputs)
			if err != nil {
				return err
			}
			if opts.durable {
				return runDurable(cmd, root, args[0], input, opts.steps)
			}
			return runLocal(cmd, root, args[0], input, opts)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.inputs, "input", "i", nil, "input field as key=value (repeatable)")
	cmd.Flags().StringSliceVar(&opts.steps, "steps", nil, "comma-separated agents for the custom workflow")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "print the result document as JSON")
	cmd.Flags().BoolVar(&opts.durable, "durable", false, "run on a Temporal worker instead of in-process")
	return cmd
}

// parseInputs turns key=value pairs into workflow input. Later pairs win.
func parseInputs(pairs []string) (map[string]string, error) {
	input := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --input %q: expected key=value", pair)
		}
		input[key] = value
	}
	return input, nil
}

func runLocal(cmd *cobra.Command, root *rootOptions, workflowType string, input map[string]string, opts *runOptions) error {
	errOut := cmd.ErrOrStderr()
	a, err := newApp(cmd, root, func(p orchestrator.Progress) {
		fmt.Fprintf(errOut, "%s %s %s\n",
			dimStyle.Render(fmt.Sprintf("[%d/%d]", p.Index, p.Total)),
			string(p.Agent),
			statusText(string(p.Status)))
	})
	if err != nil {
		return err
	}
	defer a.Close(cmd.Context())

	data := make(map[string]any, len(input))
	for k, v := range input {
		data[k] = v
	}

	run, runErr := a.Orchestrator.Run(cmd.Context(), orchestrator.Request{
		WorkflowType: workflowType,
		Input:        data,
		Steps:        opts.steps,
	})
	if run == nil {
		return runErr
	}

	out := cmd.OutOrStdout()
	if opts.jsonOut {
		if err := writeJSON(out, run.Result); err != nil {
			return err
		}
	} else {
		printRun(out, run)
	}

	var re *orchestrator.RunError
	if errors.As(runErr, &re) {
		return errors.New(re.Error())
	}
	return runErr
}

func printRun(w io.Writer, run *orchestrator.Run) {
	res := run.Result
	fmt.Fprintln(w, headerStyle.Render("seoflow run"))
	fmt.Fprintln(w, field("Workflow", res.WorkflowType))
	fmt.Fprintln(w, field("Run ID", run.ID))
	fmt.Fprintln(w, labelStyle.Render("Status")+statusText(string(run.State)))
	fmt.Fprintln(w, field("Mode", res.APIMode)+" "+dimStyle.Render(res.APIModeReason))
	fmt.Fprintln(w, field("Steps", fmt.Sprintf("%d", res.Summary.TotalStepsExecuted)))
	fmt.Fprintln(w, field("Duration", (time.Duration(res.Summary.TotalExecutionTimeSeconds*float64(time.Second))).Round(time.Millisecond).String()))
	if run.ResultID != "" {
		fmt.Fprintln(w, field("Result ID", run.ResultID))
	} else {
		fmt.Fprintln(w, field("Result ID", "")+dimStyle.Render("not saved"))
	}
	if res.Error != "" {
		fmt.Fprintln(w, labelStyle.Render("Error")+errStyle.Render(res.Error))
	}

	fmt.Fprintln(w, sectionStyle.Render("Steps"))
	for i, e := range res.Summary.ExecutionLog {
		line := fmt.Sprintf("%d. %-20s %s %s", i+1, e.Agent, statusText(string(e.Status)),
			dimStyle.Render(fmt.Sprintf("%.2fs", e.ExecutionTimeSeconds)))
		fmt.Fprintln(w, line)
	}
}

func runDurable(cmd *cobra.Command, root *rootOptions, workflowType string, input map[string]string, steps []string) error {
	cfg, err := config.LoadWithFile(root.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	c, err := workflows.Dial(cfg.Temporal)
	if err != nil {
		return err
	}
	defer c.Close()

	wr, err := workflows.StartRun(cmd.Context(), c, cfg.Temporal, workflows.RunInput{
		WorkflowType: workflowType,
		Data:         input,
		Steps:        steps,
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.ErrOrStderr(), dimStyle.Render("started durable run "+wr.GetID()+", waiting for completion"))

	var out workflows.RunOutput
	if err := wr.Get(cmd.Context(), &out); err != nil {
		return fmt.Errorf("durable run %s: %w", wr.GetID(), err)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, headerStyle.Render("seoflow durable run"))
	fmt.Fprintln(w, field("Workflow ID", wr.GetID()))
	fmt.Fprintln(w, field("Run ID", out.RunID))
	fmt.Fprintln(w, labelStyle.Render("Status")+statusText(out.Status))
	fmt.Fprintln(w, field("Mode", out.APIMode))
	fmt.Fprintln(w, field("Steps", fmt.Sprintf("%d", out.TotalStepsExecuted)))
	fmt.Fprintln(w, field("Result ID", out.ResultID))
	if out.Error != "" {
		return errors.New(out.Error)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}
