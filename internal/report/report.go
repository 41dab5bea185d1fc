// Package report renders per-command results.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/danielolaszy/jirabot/internal/engine"
	"github.com/danielolaszy/jirabot/pkg/models"
)

// Format selects how results are rendered.
type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "markdown"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON, FormatYAML, FormatMarkdown:
		return f, nil
	case "":
		return FormatText, nil
	}
	return "", fmt.Errorf("unsupported output format %q (want text, json, yaml or markdown)", s)
}

// Summary counts results by status. Interrupted counts the skipped
// commands that were never looked at because the run was stopped.
type Summary struct {
	Applied     int `json:"applied" yaml:"applied"`
	Failed      int `json:"failed" yaml:"failed"`
	Skipped     int `json:"skipped" yaml:"skipped"`
	Interrupted int `json:"interrupted,omitempty" yaml:"interrupted,omitempty"`
}

func (s Summary) String() string {
	out := fmt.Sprintf("%d applied, %d failed, %d skipped", s.Applied, s.Failed, s.Skipped)
	if s.Interrupted > 0 {
		out += fmt.Sprintf(" (%d interrupted)", s.Interrupted)
	}
	return out
}

// Summarize counts results by status.
func Summarize(results []models.Result) Summary {
	var s Summary
	for _, r := range results {
		switch r.Status {
		case models.ResultApplied:
			s.Applied++
		case models.ResultFailed:
			s.Failed++
		default:
			s.Skipped++
			if r.Err != nil && !engine.IsLocalError(r.Err) {
				s.Interrupted++
			}
		}
	}
	return s
}

type record struct {
	Command  string              `json:"command" yaml:"command"`
	Status   models.ResultStatus `json:"status" yaml:"status"`
	IssueKey string              `json:"issue_key,omitempty" yaml:"issue_key,omitempty"`
	Error    string              `json:"error,omitempty" yaml:"error,omitempty"`
}

type document struct {
	Results []record `json:"results" yaml:"results"`
	Summary Summary  `json:"summary" yaml:"summary"`
}

func newDocument(results []models.Result) document {
	doc := document{
		Results: make([]record, len(results)),
		Summary: Summarize(results),
	}
	for i, r := range results {
		doc.Results[i] = record{
			Command:  r.Command,
			Status:   r.Status,
			IssueKey: r.IssueKey,
			Error:    r.ErrorMessage(),
		}
	}
	return doc
}

// Write renders results to w in the given format.
func Write(w io.Writer, results []models.Result, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(newDocument(results))
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(newDocument(results)); err != nil {
			return err
		}
		return enc.Close()
	case FormatMarkdown:
		return writeMarkdown(w, results)
	case FormatText, "":
		return writeText(w, results)
	}
	return fmt.Errorf("unsupported output format %q", format)
}

func writeText(w io.Writer, results []models.Result) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STATUS\tISSUE\tCOMMAND\tERROR")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Status, dash(r.IssueKey), r.Command, r.ErrorMessage())
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, Summarize(results))
	return err
}

func writeMarkdown(w io.Writer, results []models.Result) error {
	var b strings.Builder
	b.WriteString("| Status | Issue | Command | Error |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, r := range results {
		fmt.Fprintf(&b, "| %s | %s | `%s` | %s |\n",
			r.Status, dash(r.IssueKey), cell(r.Command), cell(r.ErrorMessage()))
	}
	fmt.Fprintf(&b, "\n%s\n", Summarize(results))
	_, err := io.WriteString(w, b.String())
	return err
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// cell keeps a value inside one markdown table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	s = strings.ReplaceAll(s, "`", "'")
	return strings.ReplaceAll(s, "\n", " ")
}
