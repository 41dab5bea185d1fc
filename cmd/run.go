package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/danielolaszy/jirabot/internal/config"
	"github.com/danielolaszy/jirabot/internal/engine"
	"github.com/danielolaszy/jirabot/internal/github"
	"github.com/danielolaszy/jirabot/internal/logging"
	"github.com/danielolaszy/jirabot/internal/registry"
	"github.com/danielolaszy/jirabot/internal/report"
	"github.com/danielolaszy/jirabot/internal/source"
	"github.com/danielolaszy/jirabot/internal/telemetry"
	"github.com/danielolaszy/jirabot/pkg/models"
)

// errNotApplied is returned with --strict when some command was not applied.
var errNotApplied = errors.New("some commands were not applied")

type runOptions struct {
	commands    []string
	githubIssue string
	reply       bool
	format      string
	strict      bool
}

func newRunCmd(root *options) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run [file|-]...",
		Short: "Apply commands to JIRA",
		Long: `Apply commands to JIRA and report one result per command.

Commands are taken, in order, from the given files ("-" reads stdin), then from
--command flags, then from the body and comments of --github-issue (lines that
start with the configured prefix, "/jira" by default).

Each command ends up Applied, Failed (the remote call failed after retries) or
Skipped (the command could not be parsed or refers to an unknown issue).

Example:
  jirabot run sprint.txt -c "close AIK-1"
  jirabot run --github-issue owner/repo#12 --reply --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, root, args)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.commands, "command", "c", nil, "command to apply (repeatable)")
	cmd.Flags().StringVar(&opts.githubIssue, "github-issue", "", "read commands from a GitHub issue (owner/repo#number)")
	cmd.Flags().BoolVar(&opts.reply, "reply", false, "post the results back to --github-issue as a comment")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "output format: text, json, yaml or markdown")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "exit with an error when any command is not applied")

	return cmd
}

func (o *runOptions) run(cmd *cobra.Command, root *options, args []string) error {
	ctx := cmd.Context()

	format, err := report.ParseFormat(o.format)
	if err != nil {
		return err
	}
	if o.reply && o.githubIssue == "" {
		return fmt.Errorf("--reply requires --github-issue")
	}

	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}

	lines, err := source.Collect(args, o.commands, cmd.InOrStdin())
	if err != nil {
		return err
	}

	var thread issueThread
	var ref github.IssueRef
	if o.githubIssue != "" {
		ref, err = github.ParseIssueRef(o.githubIssue)
		if err != nil {
			return err
		}
		thread, err = newIssueThread(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize github client: %w", err)
		}
		issueLines, err := thread.CommandLines(ctx, ref, cfg.GitHub.CommandPrefix)
		if err != nil {
			return err
		}
		lines = append(lines, issueLines...)
	}

	if len(lines) == 0 {
		return fmt.Errorf("no commands given: pass files, --command or --github-issue")
	}

	results, err := execute(ctx, cfg, lines)
	if err != nil {
		return err
	}

	if err := report.Write(cmd.OutOrStdout(), results, format); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if o.reply {
		var body bytes.Buffer
		if err := report.Write(&body, results, report.FormatMarkdown); err != nil {
			return err
		}
		if err := thread.PostComment(ctx, ref, body.String()); err != nil {
			return err
		}
	}

	if o.strict && engine.Failed(results) {
		return errNotApplied
	}
	return nil
}

// flushTelemetry exports pending metrics. It runs after an interrupt has
// cancelled the command context, so it gets a context of its own.
func flushTelemetry(shutdown func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := shutdown(ctx); err != nil {
		logging.Warn("failed to flush telemetry", "error", err)
	}
}

// execute connects to JIRA and applies lines. Only setup failures are
// returned as errors; per-command outcomes are in the results.
func execute(ctx context.Context, cfg *config.Config, lines []string) ([]models.Result, error) {
	shutdown, err := telemetry.Init(os.Stderr)
	if err != nil {
		return nil, err
	}
	defer flushTelemetry(shutdown)

	service, err := newTicketService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize jira client: %w", err)
	}

	logging.Info("applying commands", "count", len(lines))
	eng := engine.New(registry.New(), service, engine.OptionsFromConfig(cfg.Engine))
	results := eng.Execute(ctx, lines)

	summary := report.Summarize(results)
	logging.Info("run complete",
		"applied", summary.Applied,
		"failed", summary.Failed,
		"skipped", summary.Skipped)
	return results, nil
}
