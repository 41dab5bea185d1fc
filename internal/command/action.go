// Package command turns raw command lines into typed actions.
package command

import (
	"fmt"

	"github.com/danielolaszy/jirabot/pkg/models"
)

// LastIssue is the issue reference used for "it" and "last". The engine
// resolves it to the most recently created issue at execution time.
const LastIssue = "@last"

// Kind identifies an Action variant.
type Kind string

const (
	KindCreate     Kind = "create"
	KindTransition Kind = "transition"
	KindModify     Kind = "modify"
	KindAssign     Kind = "assign"
	KindComment    Kind = "comment"
)

// Action is a parsed command. The set of implementations is closed.
type Action interface {
	Kind() Kind
	String() string
	action()
}

// CreateIssue creates a new issue in a project.
type CreateIssue struct {
	Type        models.IssueType
	Project     string
	Summary     string
	Description string
}

// Transition moves an issue to a target status.
type Transition struct {
	IssueKey string
	Target   models.Status
}

// ModifyField replaces the summary or description of an issue.
type ModifyField struct {
	IssueKey string
	Field    models.Field
	Value    string
}

// Assign sets or clears the assignee of an issue.
type Assign struct {
	IssueKey string
	Assignee string
}

// AddComment appends a comment to an issue.
type AddComment struct {
	IssueKey string
	Text     string
}

func (CreateIssue) Kind() Kind { return KindCreate }
func (Transition) Kind() Kind  { return KindTransition }
func (ModifyField) Kind() Kind { return KindModify }
func (Assign) Kind() Kind      { return KindAssign }
func (AddComment) Kind() Kind  { return KindComment }

func (CreateIssue) action() {}
func (Transition) action()  {}
func (ModifyField) action() {}
func (Assign) action()      {}
func (AddComment) action()  {}

func (a CreateIssue) String() string {
	if a.Description == "" {
		return fmt.Sprintf("create %s %q in %s", a.Type, a.Summary, a.Project)
	}
	return fmt.Sprintf("create %s %q in %s with description %q", a.Type, a.Summary, a.Project, a.Description)
}

func (a Transition) String() string {
	return fmt.Sprintf("transition %s to %s", a.IssueKey, a.Target)
}

func (a ModifyField) String() string {
	return fmt.Sprintf("modify %s %s to %q", a.IssueKey, a.Field, a.Value)
}

func (a Assign) String() string {
	return fmt.Sprintf("assign %s to %s", a.IssueKey, a.Assignee)
}

func (a AddComment) String() string {
	return fmt.Sprintf("comment %q on %s", a.Text, a.IssueKey)
}

// IssueRef returns the issue an action refers to, or "" for CreateIssue.
func IssueRef(a Action) string {
	switch act := a.(type) {
	case Transition:
		return act.IssueKey
	case ModifyField:
		return act.IssueKey
	case Assign:
		return act.IssueKey
	case AddComment:
		return act.IssueKey
	}
	return ""
}

// WithIssueRef returns a copy of a that refers to key instead.
// CreateIssue is returned unchanged.
func WithIssueRef(a Action, key string) Action {
	switch act := a.(type) {
	case Transition:
		act.IssueKey = key
		return act
	case ModifyField:
		act.IssueKey = key
		return act
	case Assign:
		act.IssueKey = key
		return act
	case AddComment:
		act.IssueKey = key
		return act
	}
	return a
}
