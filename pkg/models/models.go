// Package models defines data structures shared across the application.
package models

import (
	"fmt"
	"strings"
)

// IssueType is the kind of work an issue tracks.
type IssueType string

const (
	// TypeStory is a user-facing unit of work.
	TypeStory IssueType = "Story"
	// TypeTask is an internal unit of work.
	TypeTask IssueType = "Task"
	// TypeDefect is a bug report. "bug" and "defect" both map here.
	TypeDefect IssueType = "Defect"
)

// Status is the workflow state of an issue.
type Status string

const (
	StatusBacklog    Status = "Backlog"
	StatusInProgress Status = "In Progress"
	StatusDone       Status = "Done"
)

// Statuses lists every status in workflow order.
var Statuses = []Status{StatusBacklog, StatusInProgress, StatusDone}

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusBacklog, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// Field names an issue attribute that can be modified by text.
type Field string

const (
	FieldSummary     Field = "summary"
	FieldDescription Field = "description"
)

// Unassigned is the assignee value that clears an issue's assignee.
const Unassigned = "Unassigned"

// IsUnassigned reports whether assignee means "no assignee".
func IsUnassigned(assignee string) bool {
	assignee = strings.TrimSpace(assignee)
	return assignee == "" || strings.EqualFold(assignee, Unassigned)
}

// BotAuthor is the author placeholder recorded on locally tracked comments.
// The remote author is whoever owns the credentials.
const BotAuthor = "jirabot"

// Project is a namespace of issues with its own key counter.
type Project struct {
	// Key is the short uppercase project code (e.g., "AIK")
	Key string

	// Counter is the number of issues allocated so far. It never decreases.
	Counter int
}

// NextKey returns the key the next allocated issue will receive.
func (p Project) NextKey() string {
	return fmt.Sprintf("%s-%d", p.Key, p.Counter+1)
}

// Comment is a single entry in an issue's comment thread.
type Comment struct {
	// Author is a placeholder for who wrote the comment
	Author string

	// Body is the comment text
	Body string
}

// Issue represents an issue as tracked locally during a session.
type Issue struct {
	// Key is the project-scoped identifier (e.g., "AIK-1"). Immutable once assigned.
	Key string

	// RemoteKey is the key the ticketing service returned on creation, if known
	RemoteKey string

	// Type is the kind of issue (Story, Task, Defect)
	Type IssueType

	// Summary is the issue's title. Never empty.
	Summary string

	// Description is the optional body text
	Description string

	// Status is the current workflow state
	Status Status

	// Assignee is the assigned identity; empty means unassigned
	Assignee string

	// Comments is the append-only comment thread in insertion order
	Comments []Comment
}

// ProjectOf returns the project part of an issue key such as "AIK-12".
func ProjectOf(issueKey string) string {
	if idx := strings.LastIndex(issueKey, "-"); idx > 0 {
		return issueKey[:idx]
	}
	return issueKey
}

// ResultStatus is the outcome of processing one command.
type ResultStatus string

const (
	// ResultApplied means the local mutation and the remote operation both succeeded.
	ResultApplied ResultStatus = "Applied"
	// ResultFailed means the local mutation was applied but the remote operation failed.
	ResultFailed ResultStatus = "Failed"
	// ResultSkipped means nothing was applied.
	ResultSkipped ResultStatus = "Skipped"
)

// Result is the per-command outcome reported upstream.
type Result struct {
	// Command is the raw command line
	Command string `json:"command" yaml:"command"`

	// Status is Applied, Failed or Skipped
	Status ResultStatus `json:"status" yaml:"status"`

	// IssueKey is the local key of the affected issue, if any
	IssueKey string `json:"issue_key,omitempty" yaml:"issue_key,omitempty"`

	// Err is the failure cause, if any
	Err error `json:"-" yaml:"-"`
}

// ErrorMessage returns the failure message or an empty string.
func (r Result) ErrorMessage() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}
