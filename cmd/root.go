// Package cmd provides the command-line interface for jirabot.
package cmd

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danielolaszy/jirabot/internal/config"
	"github.com/danielolaszy/jirabot/internal/github"
	"github.com/danielolaszy/jirabot/internal/jira"
	"github.com/danielolaszy/jirabot/internal/logging"
	"github.com/danielolaszy/jirabot/internal/ticket"
)

// issueThread is the part of the GitHub client the CLI uses.
type issueThread interface {
	CommandLines(ctx context.Context, ref github.IssueRef, prefix string) ([]string, error)
	PostComment(ctx context.Context, ref github.IssueRef, body string) error
}

// Client constructors, replaced in tests.
var (
	newTicketService = func(ctx context.Context, cfg *config.Config) (ticket.Service, error) {
		return jira.NewClient(ctx, cfg)
	}
	newIssueThread = func(ctx context.Context, cfg *config.Config) (issueThread, error) {
		return github.NewClient(ctx, cfg)
	}
)

// options holds the persistent flags.
type options struct {
	configFile string
	logDir     string
	logFile    io.Closer
}

// NewRootCmd builds the jirabot command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "jirabot",
		Short: "jirabot applies plain-text commands to JIRA",
		Long: `jirabot is a CLI tool that turns short plain-text commands into JIRA changes.

Commands such as

  create story 'User profile' in project AIK
  transition AIK-1 to Done
  assign AIK-1 to John Doe
  add comment 'This is important' to AIK-1

are read from files, stdin, flags or GitHub issue comments, applied in order,
and reported one result per command.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setupLogging()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if opts.logFile != nil {
				return opts.logFile.Close()
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (YAML, JSON or TOML)")
	rootCmd.PersistentFlags().StringVar(&opts.logDir, "log-dir", "", "also write logs to a dated file in this directory")

	rootCmd.AddCommand(newRunCmd(opts))
	rootCmd.AddCommand(newParseCmd())
	rootCmd.AddCommand(newShellCmd(opts))

	return rootCmd
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

func (o *options) setupLogging() error {
	if o.logDir == "" {
		return nil
	}

	f, err := logging.OpenLogFile(o.logDir, "jirabot")
	if err != nil {
		return err
	}
	o.logFile = f

	level := logging.LogLevel(strings.ToLower(os.Getenv("LOG_LEVEL")))
	format := logging.Format(strings.ToLower(os.Getenv("LOG_FORMAT")))
	logging.Setup(io.MultiWriter(os.Stderr, f), level, format)
	logging.Info("logging to file", "path", f.Name())
	return nil
}

// loadConfig loads configuration and logs where it came from.
func (o *options) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(o.configFile)
	if err != nil {
		return nil, err
	}
	logging.Debug("configuration loaded",
		"config_file", o.configFile,
		"pool_size", cfg.Engine.PoolSize,
		"max_attempts", cfg.Engine.MaxAttempts)
	return cfg, nil
}
