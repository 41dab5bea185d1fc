// Package registry tracks projects and issues locally for the duration of a
// session. It is the single source of issue keys: keys are allocated here in
// the order creations are applied.
package registry

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/danielolaszy/jirabot/pkg/models"
)

var (
	// ErrUnknownIssue is returned when an issue key has not been allocated.
	ErrUnknownIssue = errors.New("unknown issue")

	// ErrEmptySummary is returned when a summary is blank.
	ErrEmptySummary = errors.New("summary must not be empty")

	// ErrEmptyComment is returned when comment text is blank.
	ErrEmptyComment = errors.New("comment must not be empty")
)

// Registry holds every project and issue seen in a session.
type Registry struct {
	mu sync.RWMutex // Protects all fields

	projects map[string]*models.Project // Project key -> Project
	issues   map[string]*models.Issue   // Issue key -> Issue
	order    []string                   // Issue keys in creation order
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		projects: make(map[string]*models.Project),
		issues:   make(map[string]*models.Issue),
	}
}

// AllocateIssue creates the next issue of a project, creating the project on
// first use. The new issue starts in Backlog, unassigned, without comments.
func (r *Registry) AllocateIssue(projectKey string, issueType models.IssueType, summary, description string) (models.Issue, error) {
	if strings.TrimSpace(summary) == "" {
		return models.Issue{}, ErrEmptySummary
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	project, ok := r.projects[projectKey]
	if !ok {
		project = &models.Project{Key: projectKey}
		r.projects[projectKey] = project
	}

	key := project.NextKey()
	project.Counter++

	issue := &models.Issue{
		Key:         key,
		Type:        issueType,
		Summary:     summary,
		Description: description,
		Status:      models.StatusBacklog,
	}
	r.issues[key] = issue
	r.order = append(r.order, key)

	return copyIssue(issue), nil
}

// GetIssue returns a snapshot of the issue with the given key.
func (r *Registry) GetIssue(key string) (models.Issue, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	issue, ok := r.issues[key]
	if !ok {
		return models.Issue{}, fmt.Errorf("%w %s", ErrUnknownIssue, key)
	}
	return copyIssue(issue), nil
}

// Transition records the target status. Any status may follow any other;
// the ticketing service decides what is legal.
func (r *Registry) Transition(key string, target models.Status) error {
	if !target.IsValid() {
		return fmt.Errorf("invalid status %q", target)
	}
	return r.update(key, func(issue *models.Issue) error {
		issue.Status = target
		return nil
	})
}

// SetField replaces the summary or description of an issue.
func (r *Registry) SetField(key string, field models.Field, value string) error {
	return r.update(key, func(issue *models.Issue) error {
		switch field {
		case models.FieldSummary:
			if strings.TrimSpace(value) == "" {
				return ErrEmptySummary
			}
			issue.Summary = value
		case models.FieldDescription:
			issue.Description = value
		default:
			return fmt.Errorf("unsupported field %q", field)
		}
		return nil
	})
}

// Assign sets the assignee. "Unassigned" or a blank value clears it.
func (r *Registry) Assign(key, assignee string) error {
	return r.update(key, func(issue *models.Issue) error {
		if models.IsUnassigned(assignee) {
			issue.Assignee = ""
			return nil
		}
		issue.Assignee = strings.TrimSpace(assignee)
		return nil
	})
}

// AddComment appends a comment to the issue's thread.
func (r *Registry) AddComment(key, text string) (models.Comment, error) {
	comment := models.Comment{Author: models.BotAuthor, Body: text}
	err := r.update(key, func(issue *models.Issue) error {
		if strings.TrimSpace(text) == "" {
			return ErrEmptyComment
		}
		issue.Comments = append(issue.Comments, comment)
		return nil
	})
	if err != nil {
		return models.Comment{}, err
	}
	return comment, nil
}

// SetRemoteKey records the key the ticketing service assigned to an issue.
func (r *Registry) SetRemoteKey(key, remoteKey string) error {
	return r.update(key, func(issue *models.Issue) error {
		issue.RemoteKey = remoteKey
		return nil
	})
}

// RemoteKey returns the key to use when addressing the issue remotely: the
// recorded remote key, or the local key when none is known.
func (r *Registry) RemoteKey(key string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if issue, ok := r.issues[key]; ok && issue.RemoteKey != "" {
		return issue.RemoteKey
	}
	return key
}

// LastIssueKey returns the key of the most recently created issue.
func (r *Registry) LastIssueKey() (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.order) == 0 {
		return "", false
	}
	return r.order[len(r.order)-1], true
}

// Project returns a snapshot of a project.
func (r *Registry) Project(key string) (models.Project, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	project, ok := r.projects[key]
	if !ok {
		return models.Project{}, false
	}
	return *project, true
}

// Issues returns snapshots of all issues in creation order.
func (r *Registry) Issues() []models.Issue {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]models.Issue, 0, len(r.order))
	for _, key := range r.order {
		result = append(result, copyIssue(r.issues[key]))
	}
	return result
}

func (r *Registry) update(key string, mutate func(*models.Issue) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	issue, ok := r.issues[key]
	if !ok {
		return fmt.Errorf("%w %s", ErrUnknownIssue, key)
	}
	return mutate(issue)
}

func copyIssue(issue *models.Issue) models.Issue {
	c := *issue
	if issue.Comments != nil {
		c.Comments = make([]models.Comment, len(issue.Comments))
		copy(c.Comments, issue.Comments)
	}
	return c
}
