package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/danielolaszy/jirabot/internal/command"
	"github.com/danielolaszy/jirabot/internal/source"
)

func newParseCmd() *cobra.Command {
	var commands []string
	var strict bool

	cmd := &cobra.Command{
		Use:   "parse [file|-]...",
		Short: "Show how commands are understood without applying them",
		Long: `Parse commands and print the action each one maps to.

Nothing is sent to JIRA and no credentials are needed.

Example:
  jirabot parse -c "create a bug 'Payment gateway error' in PROJ"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			lines, err := source.Collect(args, commands, cmd.InOrStdin())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KIND\tACTION\tINPUT")

			failed := 0
			for _, line := range lines {
				action, err := command.Parse(line)
				if err != nil {
					failed++
					fmt.Fprintf(tw, "error\t%v\t%s\n", err, line)
					continue
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", action.Kind(), action, line)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			if strict && failed > 0 {
				return fmt.Errorf("%d of %d commands could not be parsed", failed, len(lines))
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&commands, "command", "c", nil, "command to parse (repeatable)")
	cmd.Flags().BoolVar(&strict, "strict", false, "exit with an error when any command cannot be parsed")

	return cmd
}
