package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielolaszy/jirabot/pkg/models"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name     string
		line     string
		expected Action
	}{
		{
			name: "Create story with description",
			line: "create story 'User profile' in project AIK with description 'Add a user profile page.'",
			expected: CreateIssue{
				Type:        models.TypeStory,
				Project:     "AIK",
				Summary:     "User profile",
				Description: "Add a user profile page.",
			},
		},
		{
			name:     "Create task without description",
			line:     "create task 'DB setup' in project AIK",
			expected: CreateIssue{Type: models.TypeTask, Project: "AIK", Summary: "DB setup"},
		},
		{
			name:     "Bug is a synonym for defect",
			line:     "create a bug 'Payment gateway error' in PROJ",
			expected: CreateIssue{Type: models.TypeDefect, Project: "PROJ", Summary: "Payment gateway error"},
		},
		{
			name:     "Defect keeps its type",
			line:     "new defect called 'Login button not responsive' for QA",
			expected: CreateIssue{Type: models.TypeDefect, Project: "QA", Summary: "Login button not responsive"},
		},
		{
			name: "Description before project",
			line: "create story 'NLU TESTING' with description 'test all cases' in AIK",
			expected: CreateIssue{
				Type:        models.TypeStory,
				Project:     "AIK",
				Summary:     "NLU TESTING",
				Description: "test all cases",
			},
		},
		{
			name:     "Summary containing keywords stays intact",
			line:     "create task 'Design UI in AJAX' in aik",
			expected: CreateIssue{Type: models.TypeTask, Project: "AIK", Summary: "Design UI in AJAX"},
		},
		{
			name:     "Missing type defaults to story",
			line:     "create 'Landing page' in project WEB",
			expected: CreateIssue{Type: models.TypeStory, Project: "WEB", Summary: "Landing page"},
		},
		{
			name:     "Transition to done",
			line:     "transition AIK-7 to Done",
			expected: Transition{IssueKey: "AIK-7", Target: models.StatusDone},
		},
		{
			name:     "Transition to multi-word status",
			line:     "transition qa-456 to in progress",
			expected: Transition{IssueKey: "QA-456", Target: models.StatusInProgress},
		},
		{
			name:     "Transition to quoted status",
			line:     "transition issue AIK-1 to 'Backlog'",
			expected: Transition{IssueKey: "AIK-1", Target: models.StatusBacklog},
		},
		{
			name:     "Close shortcut",
			line:     "close WEBAPP-789",
			expected: Transition{IssueKey: "WEBAPP-789", Target: models.StatusDone},
		},
		{
			name:     "Reopen shortcut",
			line:     "reopen AIK-3",
			expected: Transition{IssueKey: "AIK-3", Target: models.StatusInProgress},
		},
		{
			name:     "Modify summary",
			line:     "modify WEBAPP-789 summary to 'User Authentication Workflow'",
			expected: ModifyField{IssueKey: "WEBAPP-789", Field: models.FieldSummary, Value: "User Authentication Workflow"},
		},
		{
			name:     "Update description with 'as'",
			line:     "update TEST-101 description as 'Fixed the bug'",
			expected: ModifyField{IssueKey: "TEST-101", Field: models.FieldDescription, Value: "Fixed the bug"},
		},
		{
			name:     "Title is an alias for summary",
			line:     "modify AIK-1 title to 'Profile'",
			expected: ModifyField{IssueKey: "AIK-1", Field: models.FieldSummary, Value: "Profile"},
		},
		{
			name:     "Assign to a person",
			line:     "assign AIK-1 to John Doe",
			expected: Assign{IssueKey: "AIK-1", Assignee: "John Doe"},
		},
		{
			name:     "Assign to quoted person",
			line:     `assign AIK-1 to "jane.doe@example.com"`,
			expected: Assign{IssueKey: "AIK-1", Assignee: "jane.doe@example.com"},
		},
		{
			name:     "Assign to Unassigned",
			line:     "assign AIK-1 to unassigned",
			expected: Assign{IssueKey: "AIK-1", Assignee: models.Unassigned},
		},
		{
			name:     "Unassign shortcut",
			line:     "unassign AIK-2",
			expected: Assign{IssueKey: "AIK-2", Assignee: models.Unassigned},
		},
		{
			name:     "Add comment",
			line:     "add comment 'This is important' to AIK-1",
			expected: AddComment{IssueKey: "AIK-1", Text: "This is important"},
		},
		{
			name:     "Comment on",
			line:     "comment 'Hello' on AIK-2",
			expected: AddComment{IssueKey: "AIK-2", Text: "Hello"},
		},
		{
			name: "Single letter project",
			line: "create a story 'X' in project P with description 'D'",
			expected: CreateIssue{
				Type:        models.TypeStory,
				Project:     "P",
				Summary:     "X",
				Description: "D",
			},
		},
		{
			name:     "Transition in single letter project",
			line:     "transition P-1 to Done",
			expected: Transition{IssueKey: "P-1", Target: models.StatusDone},
		},
		{
			name:     "Reference to the last created issue",
			line:     "transition it to done",
			expected: Transition{IssueKey: LastIssue, Target: models.StatusDone},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			action, err := Parse(tc.line)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, action)
		})
	}
}

func TestParseErrors(t *testing.T) {
	testCases := []struct {
		name    string
		line    string
		wantErr error
	}{
		{name: "Unbalanced quotes", line: "create story 'Oops in project AIK", wantErr: ErrMalformedInput},
		{name: "Unknown verb", line: "what is the status of WEBAPP-100", wantErr: ErrUnparsableCommand},
		{name: "Empty line", line: "", wantErr: ErrUnparsableCommand},
		{name: "Create without summary", line: "create a story in project ABC", wantErr: ErrUnparsableCommand},
		{name: "Create without project", line: "create story 'Lonely'", wantErr: ErrUnparsableCommand},
		{name: "Bad project key", line: "create story 'X' in project 1X", wantErr: ErrUnparsableCommand},
		{name: "Unknown type", line: "create epic 'Platform' in project AIK", wantErr: ErrUnsupportedType},
		{name: "Unknown status", line: "transition AIK-1 to Abandoned", wantErr: ErrUnsupportedStatus},
		{name: "Transition without key", line: "close issue", wantErr: ErrUnparsableCommand},
		{name: "Transition without status", line: "transition AIK-1 to", wantErr: ErrUnparsableCommand},
		{name: "Modify without field", line: "modify MYPROJ-123 to 'New Value'", wantErr: ErrUnparsableCommand},
		{name: "Modify unknown field", line: "modify AIK-1 priority to 'High'", wantErr: ErrUnparsableCommand},
		{name: "Modify unquoted value", line: "modify AIK-1 summary to New", wantErr: ErrUnparsableCommand},
		{name: "Assign without assignee", line: "assign AIK-1 to", wantErr: ErrUnparsableCommand},
		{name: "Comment without text", line: "add comment to AIK-1", wantErr: ErrUnparsableCommand},
		{name: "Comment without key", line: "comment 'Hello' on", wantErr: ErrUnparsableCommand},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			action, err := Parse(tc.line)
			assert.Nil(t, action)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestParseNamesTheOffendingLine(t *testing.T) {
	_, err := Parse("frobnicate AIK-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "frobnicate AIK-1")
}

func TestParseIsDeterministic(t *testing.T) {
	lines := []string{
		"create story 'User profile' in project AIK with description 'Add a user profile page.'",
		"transition AIK-1 to In Progress",
		"assign AIK-1 to John Doe",
		"comment 'Twice' on AIK-1",
	}

	for _, line := range lines {
		first, err := Parse(line)
		require.NoError(t, err)
		second, err := Parse(line)
		require.NoError(t, err)
		assert.Equal(t, first, second, line)
	}
}

func TestParseStatusCoversAllStatuses(t *testing.T) {
	for _, s := range models.Statuses {
		got, err := ParseStatus(string(s))
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	got, err := ParseStatus("In-Progress")
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, got)

	_, err = ParseStatus("Abandoned")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Backlog, In Progress, Done")
}

func TestIssueRef(t *testing.T) {
	action := Transition{IssueKey: LastIssue, Target: models.StatusDone}
	assert.Equal(t, LastIssue, IssueRef(action))

	resolved := WithIssueRef(action, "AIK-4")
	assert.Equal(t, "AIK-4", IssueRef(resolved))
	assert.Equal(t, LastIssue, action.IssueKey)

	create := CreateIssue{Project: "AIK", Summary: "x"}
	assert.Equal(t, "", IssueRef(create))
	assert.Equal(t, create, WithIssueRef(create, "AIK-9"))
}
