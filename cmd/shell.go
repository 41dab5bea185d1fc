package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/danielolaszy/jirabot/internal/engine"
	"github.com/danielolaszy/jirabot/internal/registry"
	"github.com/danielolaszy/jirabot/internal/report"
	"github.com/danielolaszy/jirabot/internal/telemetry"
	"github.com/danielolaszy/jirabot/pkg/models"
)

const shellPrompt = "jirabot> "

func newShellCmd(root *options) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Apply commands interactively",
		Long: `Read commands one line at a time and apply each as soon as it is entered.

Issues created in the session can be referred to as "it" or "last".
Type "issues" to list the issues touched so far and "exit" or "quit" to leave.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}

			shutdown, err := telemetry.Init(os.Stderr)
			if err != nil {
				return err
			}
			defer flushTelemetry(shutdown)

			service, err := newTicketService(ctx, cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize jira client: %w", err)
			}
			eng := engine.New(registry.New(), service, engine.OptionsFromConfig(cfg.Engine))

			return runShell(cmd, eng)
		},
	}
}

func runShell(cmd *cobra.Command, eng *engine.Engine) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	scanner := bufio.NewScanner(cmd.InOrStdin())

	var session []models.Result
	defer func() {
		fmt.Fprintln(out, report.Summarize(session))
	}()

	for {
		fmt.Fprint(out, shellPrompt)
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "":
			continue
		case "exit", "quit":
			return nil
		case "issues":
			if err := listIssues(out, eng.Registry()); err != nil {
				return err
			}
			continue
		}

		r := eng.Execute(ctx, []string{line})[0]
		session = append(session, r)
		if r.Err != nil {
			fmt.Fprintf(out, "%s: %v\n", r.Status, r.Err)
		} else {
			fmt.Fprintf(out, "%s %s\n", r.Status, r.IssueKey)
		}

		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

func listIssues(w io.Writer, reg *registry.Registry) error {
	issues := reg.Issues()
	if len(issues) == 0 {
		_, err := fmt.Fprintln(w, "no issues yet")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tTYPE\tSTATUS\tASSIGNEE\tCOMMENTS\tSUMMARY")
	for _, issue := range issues {
		assignee := issue.Assignee
		if assignee == "" {
			assignee = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			issue.Key, issue.Type, issue.Status, assignee, len(issue.Comments), issue.Summary)
	}
	return tw.Flush()
}
