package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/danielolaszy/jirabot/internal/command"
	"github.com/danielolaszy/jirabot/internal/registry"
	"github.com/danielolaszy/jirabot/pkg/models"
)

var sampleResults = []models.Result{
	{Command: "create story 'User profile' in AIK", Status: models.ResultApplied, IssueKey: "AIK-1"},
	{Command: "close AIK-1", Status: models.ResultFailed, IssueKey: "AIK-1", Err: errors.New("remote rejected: no transition")},
	{Command: "what is this", Status: models.ResultSkipped, Err: fmt.Errorf("%w %q", command.ErrUnparsableCommand, "what is this")},
}

func TestParseFormat(t *testing.T) {
	testCases := []struct {
		input    string
		expected Format
		wantErr  bool
	}{
		{input: "", expected: FormatText},
		{input: "text", expected: FormatText},
		{input: "JSON", expected: FormatJSON},
		{input: " yaml ", expected: FormatYAML},
		{input: "markdown", expected: FormatMarkdown},
		{input: "xml", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			f, err := ParseFormat(tc.input)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, f)
		})
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleResults)
	assert.Equal(t, Summary{Applied: 1, Failed: 1, Skipped: 1}, s)
	assert.Equal(t, "1 applied, 1 failed, 1 skipped", s.String())
}

func TestSummarizeSeparatesInterruptedCommands(t *testing.T) {
	results := []models.Result{
		{Command: "close AIK-9", Status: models.ResultSkipped, Err: fmt.Errorf("%w AIK-9", registry.ErrUnknownIssue)},
		{Command: "close AIK-1", Status: models.ResultSkipped, Err: fmt.Errorf("not processed: %w", context.Canceled)},
		{Command: "close AIK-2", Status: models.ResultSkipped, Err: fmt.Errorf("not processed: %w", context.Canceled)},
	}

	s := Summarize(results)
	assert.Equal(t, Summary{Skipped: 3, Interrupted: 2}, s)
	assert.Equal(t, "0 applied, 0 failed, 3 skipped (2 interrupted)", s.String())
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleResults, FormatText))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[0], "STATUS"))
	assert.Contains(t, lines[1], "Applied")
	assert.Contains(t, lines[1], "AIK-1")
	assert.Contains(t, lines[2], "remote rejected: no transition")
	assert.Contains(t, lines[3], "Skipped")
	assert.Contains(t, lines[3], " - ")
	assert.Equal(t, "1 applied, 1 failed, 1 skipped", lines[4])
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleResults, FormatJSON))

	var doc document
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	require.Len(t, doc.Results, 3)
	assert.Equal(t, "AIK-1", doc.Results[0].IssueKey)
	assert.Empty(t, doc.Results[0].Error)
	assert.Equal(t, models.ResultFailed, doc.Results[1].Status)
	assert.Equal(t, "remote rejected: no transition", doc.Results[1].Error)
	assert.Equal(t, Summary{Applied: 1, Failed: 1, Skipped: 1}, doc.Summary)
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleResults, FormatYAML))

	var doc document
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))
	require.Len(t, doc.Results, 3)
	assert.Equal(t, "what is this", doc.Results[2].Command)
	assert.Equal(t, models.ResultSkipped, doc.Results[2].Status)
	assert.Equal(t, 1, doc.Summary.Skipped)
}

func TestWriteMarkdown(t *testing.T) {
	results := []models.Result{
		{Command: "comment 'a | b' on AIK-1", Status: models.ResultApplied, IssueKey: "AIK-1"},
	}
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, results, FormatMarkdown))

	out := buf.String()
	assert.Contains(t, out, "| Applied | AIK-1 | `comment 'a \\| b' on AIK-1` |  |")
	assert.Contains(t, out, "1 applied, 0 failed, 0 skipped")
}

func TestWriteUnknownFormat(t *testing.T) {
	assert.Error(t, Write(&bytes.Buffer{}, sampleResults, Format("xml")))
}
