// Package ticket defines the contract between the execution engine and a
// remote ticketing service, including how remote failures are classified.
package ticket

import (
	"context"
	"errors"
	"fmt"

	"github.com/danielolaszy/jirabot/pkg/models"
)

// ErrRemoteRejected matches permanent remote failures: the service understood
// the request and refused it, so retrying cannot help.
var ErrRemoteRejected = errors.New("remote rejected")

// Service is the remote side of every action.
type Service interface {
	CreateIssue(ctx context.Context, project string, issueType models.IssueType, summary, description string) (string, error)
	TransitionIssue(ctx context.Context, key string, status models.Status) error
	UpdateField(ctx context.Context, key string, field models.Field, value string) error
	AssignIssue(ctx context.Context, key string, assignee string) error
	AddComment(ctx context.Context, key string, text string) error
}

// Error is a classified remote failure.
type Error struct {
	// Op is the remote operation, e.g. "create issue"
	Op string

	// StatusCode is the HTTP status, or 0 when no response was received
	StatusCode int

	// Transient marks failures worth retrying (timeouts, 5xx, 429)
	Transient bool

	// Err is the underlying cause
	Err error
}

func (e *Error) Error() string {
	kind := "rejected"
	if e.Transient {
		kind = "transient failure"
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (status %d): %v", e.Op, kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrRemoteRejected) true for permanent failures.
func (e *Error) Is(target error) bool {
	return target == ErrRemoteRejected && !e.Transient
}

// Transient wraps err as a retryable failure of op.
func Transient(op string, statusCode int, err error) error {
	return &Error{Op: op, StatusCode: statusCode, Transient: true, Err: err}
}

// Rejected wraps err as a permanent failure of op.
func Rejected(op string, statusCode int, err error) error {
	return &Error{Op: op, StatusCode: statusCode, Err: err}
}

// IsTransient reports whether err is a retryable remote failure.
func IsTransient(err error) bool {
	var te *Error
	return errors.As(err, &te) && te.Transient
}

// RetryableStatus reports whether an HTTP status code is worth retrying.
func RetryableStatus(statusCode int) bool {
	return statusCode == 429 || statusCode >= 500
}
