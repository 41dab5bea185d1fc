package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielolaszy/jirabot/internal/config"
	"github.com/danielolaszy/jirabot/internal/github"
	"github.com/danielolaszy/jirabot/internal/ticket"
	"github.com/danielolaszy/jirabot/pkg/models"
)

// recordingService accepts every call and records it.
type recordingService struct {
	mu    sync.Mutex
	calls []string
	next  map[string]int
}

func (s *recordingService) record(call string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
}

func (s *recordingService) CreateIssue(ctx context.Context, project string, issueType models.IssueType, summary, description string) (string, error) {
	s.record("create " + project)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next == nil {
		s.next = make(map[string]int)
	}
	s.next[project]++
	return fmt.Sprintf("%s-%d", project, s.next[project]), nil
}

func (s *recordingService) TransitionIssue(ctx context.Context, key string, status models.Status) error {
	s.record(fmt.Sprintf("transition %s %s", key, status))
	return nil
}

func (s *recordingService) UpdateField(ctx context.Context, key string, field models.Field, value string) error {
	s.record(fmt.Sprintf("update %s %s", key, field))
	return nil
}

func (s *recordingService) AssignIssue(ctx context.Context, key string, assignee string) error {
	s.record(fmt.Sprintf("assign %s %s", key, assignee))
	return nil
}

func (s *recordingService) AddComment(ctx context.Context, key string, text string) error {
	s.record(fmt.Sprintf("comment %s", key))
	return nil
}

// fakeThread is an issueThread with function fields.
type fakeThread struct {
	CommandLinesFunc func(ctx context.Context, ref github.IssueRef, prefix string) ([]string, error)
	PostCommentFunc  func(ctx context.Context, ref github.IssueRef, body string) error
}

func (f *fakeThread) CommandLines(ctx context.Context, ref github.IssueRef, prefix string) ([]string, error) {
	return f.CommandLinesFunc(ctx, ref, prefix)
}

func (f *fakeThread) PostComment(ctx context.Context, ref github.IssueRef, body string) error {
	return f.PostCommentFunc(ctx, ref, body)
}

// stubClients replaces the client constructors for one test.
func stubClients(t *testing.T, service ticket.Service, thread issueThread) {
	t.Helper()

	origService, origThread := newTicketService, newIssueThread
	t.Cleanup(func() {
		newTicketService, newIssueThread = origService, origThread
	})

	newTicketService = func(ctx context.Context, cfg *config.Config) (ticket.Service, error) {
		if service == nil {
			return nil, errors.New("jira unavailable")
		}
		return service, nil
	}
	newIssueThread = func(ctx context.Context, cfg *config.Config) (issueThread, error) {
		if thread == nil {
			return nil, errors.New("github unavailable")
		}
		return thread, nil
	}
}

func executeCmd(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRunAppliesCommandsFromFilesAndFlags(t *testing.T) {
	service := &recordingService{}
	stubClients(t, service, nil)

	path := filepath.Join(t.TempDir(), "sprint.txt")
	require.NoError(t, os.WriteFile(path, []byte("# sprint\ncreate story 'User profile' in project AIK\n"), 0o644))

	out, err := executeCmd(t, "", "run", path, "-c", "close AIK-1", "-c", "transition AIK-9 to Done", "--format", "json")
	require.NoError(t, err)

	var doc struct {
		Results []struct {
			Command  string `json:"command"`
			Status   string `json:"status"`
			IssueKey string `json:"issue_key"`
			Error    string `json:"error"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	require.Len(t, doc.Results, 3)
	assert.Equal(t, "Applied", doc.Results[0].Status)
	assert.Equal(t, "AIK-1", doc.Results[0].IssueKey)
	assert.Equal(t, "Applied", doc.Results[1].Status)
	assert.Equal(t, "Skipped", doc.Results[2].Status)
	assert.Contains(t, doc.Results[2].Error, "unknown issue")

	assert.Equal(t, []string{"create AIK", "transition AIK-1 Done"}, service.calls)
}

func TestRunStrictFailsWhenCommandsAreSkipped(t *testing.T) {
	stubClients(t, &recordingService{}, nil)

	_, err := executeCmd(t, "", "run", "-c", "what is this", "--strict")
	assert.ErrorIs(t, err, errNotApplied)

	_, err = executeCmd(t, "", "run", "-c", "what is this")
	assert.NoError(t, err)
}

func TestRunReadsStdin(t *testing.T) {
	service := &recordingService{}
	stubClients(t, service, nil)

	out, err := executeCmd(t, "create task 'DB setup' in AIK\n", "run", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "1 applied, 0 failed, 0 skipped")
}

func TestRunInitializationFailureAbortsBeforeAnyCommand(t *testing.T) {
	stubClients(t, nil, nil)

	_, err := executeCmd(t, "", "run", "-c", "close AIK-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to initialize jira client")
}

func TestRunRequiresCommands(t *testing.T) {
	stubClients(t, &recordingService{}, nil)

	_, err := executeCmd(t, "", "run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no commands given")

	_, err = executeCmd(t, "", "run", "-c", "close AIK-1", "--format", "xml")
	assert.Error(t, err)

	_, err = executeCmd(t, "", "run", "-c", "close AIK-1", "--reply")
	assert.Error(t, err)
}

func TestRunFromGitHubIssueWithReply(t *testing.T) {
	service := &recordingService{}
	var posted string
	thread := &fakeThread{
		CommandLinesFunc: func(ctx context.Context, ref github.IssueRef, prefix string) ([]string, error) {
			assert.Equal(t, github.IssueRef{Owner: "acme", Repo: "web", Number: 7}, ref)
			assert.Equal(t, "/jira", prefix)
			return []string{"create story 'Landing page' in WEB", "assign it to Jane"}, nil
		},
		PostCommentFunc: func(ctx context.Context, ref github.IssueRef, body string) error {
			posted = body
			return nil
		},
	}
	stubClients(t, service, thread)

	_, err := executeCmd(t, "", "run", "--github-issue", "acme/web#7", "--reply")
	require.NoError(t, err)

	assert.Equal(t, []string{"create WEB", "assign WEB-1 Jane"}, service.calls)
	assert.Contains(t, posted, "| Applied | WEB-1 |")
	assert.Contains(t, posted, "2 applied, 0 failed, 0 skipped")
}

func TestFlushTelemetryIgnoresCancelledCommandContext(t *testing.T) {
	var flushCtx context.Context
	flushTelemetry(func(ctx context.Context) error {
		flushCtx = ctx
		return nil
	})

	require.NotNil(t, flushCtx)
	assert.NoError(t, flushCtx.Err())
	_, hasDeadline := flushCtx.Deadline()
	assert.True(t, hasDeadline)
}

func TestParseCommand(t *testing.T) {
	out, err := executeCmd(t, "", "parse",
		"-c", "create a bug 'Payment gateway error' in PROJ",
		"-c", "what is this")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], "create"))
	assert.Contains(t, lines[1], `create Defect "Payment gateway error" in PROJ`)
	assert.True(t, strings.HasPrefix(lines[2], "error"))

	_, err = executeCmd(t, "", "parse", "-c", "what is this", "--strict")
	assert.Error(t, err)
}

func TestShell(t *testing.T) {
	service := &recordingService{}
	stubClients(t, service, nil)

	input := strings.Join([]string{
		"create task 'DB setup' in AIK",
		"",
		"transition it to in progress",
		"close AIK-7",
		"issues",
		"exit",
		"create task 'never' in AIK",
	}, "\n")

	out, err := executeCmd(t, input, "shell")
	require.NoError(t, err)

	assert.Contains(t, out, "Applied AIK-1")
	assert.Contains(t, out, "Skipped: unknown issue AIK-7")
	assert.Contains(t, out, "AIK-1  Task  In Progress")
	assert.Contains(t, out, "2 applied, 0 failed, 1 skipped")
	assert.Equal(t, []string{"create AIK", "transition AIK-1 In Progress"}, service.calls)
}
