// Package engine executes parsed commands: it applies each action to the
// local registry in input order and then submits the matching remote
// operation, retrying transient failures.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/semaphore"

	"github.com/danielolaszy/jirabot/internal/command"
	"github.com/danielolaszy/jirabot/internal/config"
	"github.com/danielolaszy/jirabot/internal/logging"
	"github.com/danielolaszy/jirabot/internal/registry"
	"github.com/danielolaszy/jirabot/internal/telemetry"
	"github.com/danielolaszy/jirabot/internal/ticket"
	"github.com/danielolaszy/jirabot/pkg/models"
)

// Options tunes remote submission.
type Options struct {
	// MaxAttempts bounds remote attempts per action, including the first
	MaxAttempts int

	// InitialBackoff is the wait before the first retry
	InitialBackoff time.Duration

	// MaxBackoff caps the wait between retries
	MaxBackoff time.Duration

	// PoolSize bounds concurrent remote calls
	PoolSize int
}

// OptionsFromConfig converts engine configuration to Options.
func OptionsFromConfig(cfg config.EngineConfig) Options {
	return Options{
		MaxAttempts:    cfg.MaxAttempts,
		InitialBackoff: cfg.InitialBackoff,
		MaxBackoff:     cfg.MaxBackoff,
		PoolSize:       cfg.PoolSize,
	}
}

// remoteOp performs the remote half of an action.
type remoteOp func(ctx context.Context) error

// Engine executes actions against a registry and a ticket service.
type Engine struct {
	registry *registry.Registry
	service  ticket.Service
	opts     Options
	pool     *semaphore.Weighted

	results  metric.Int64Counter
	attempts metric.Int64Counter
}

// New creates an engine. Zero option values fall back to one attempt, a
// pool of one and a 500ms initial backoff.
func New(reg *registry.Registry, service ticket.Service, opts Options) *Engine {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.PoolSize < 1 {
		opts.PoolSize = 1
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = 500 * time.Millisecond
	}
	if opts.MaxBackoff < opts.InitialBackoff {
		opts.MaxBackoff = opts.InitialBackoff
	}

	return &Engine{
		registry: reg,
		service:  service,
		opts:     opts,
		pool:     semaphore.NewWeighted(int64(opts.PoolSize)),
		results:  telemetry.Counter("jirabot.commands", "Commands processed, by action and result status"),
		attempts: telemetry.Counter("jirabot.remote.attempts", "Remote ticket service calls, by action and outcome"),
	}
}

// Registry returns the registry the engine mutates.
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

// Execute parses and executes lines in order and returns one result per line.
func (e *Engine) Execute(ctx context.Context, lines []string) []models.Result {
	items := make([]item, len(lines))
	for i, line := range lines {
		items[i] = item{line: line}
	}
	return e.run(ctx, items)
}

// ExecuteActions executes already parsed actions in order.
func (e *Engine) ExecuteActions(ctx context.Context, actions []command.Action) []models.Result {
	items := make([]item, len(actions))
	for i, a := range actions {
		items[i] = item{line: a.String(), action: a}
	}
	return e.run(ctx, items)
}

// item is one unit of input: a raw line, or an action parsed elsewhere.
type item struct {
	line   string
	action command.Action
}

func (e *Engine) run(ctx context.Context, items []item) []models.Result {
	results := make([]models.Result, len(items))
	kinds := make([]string, len(items))
	lanes := newLanes(ctx)

	for i, it := range items {
		results[i] = models.Result{Command: it.line, Status: models.ResultSkipped}
		kinds[i] = "unknown"

		if err := ctx.Err(); err != nil {
			results[i].Err = fmt.Errorf("not processed: %w", err)
			continue
		}

		action := it.action
		if action == nil {
			parsed, err := command.Parse(it.line)
			if err != nil {
				logging.Warn("skipping command", "command", it.line, "error", err)
				results[i].Err = err
				continue
			}
			action = parsed
		}
		kinds[i] = string(action.Kind())

		key, op, err := e.apply(action)
		results[i].IssueKey = key
		if err != nil {
			logging.Warn("skipping command", "command", it.line, "issue", key, "error", err)
			results[i].Err = err
			continue
		}

		// Ops for one project run in input order on that project's lane.
		i, kind := i, action.Kind()
		lanes.submit(models.ProjectOf(key), func(ctx context.Context) {
			err := e.submit(ctx, kind, key, op)
			if err != nil {
				logging.Error("remote operation failed",
					"command", results[i].Command,
					"issue", key,
					"error", err)
				results[i].Status = models.ResultFailed
				results[i].Err = err
				return
			}
			logging.Info("command applied", "command", results[i].Command, "issue", key)
			results[i].Status = models.ResultApplied
		})
	}

	lanes.wait()

	for i, r := range results {
		e.results.Add(ctx, 1, metric.WithAttributes(
			attribute.String("action", kinds[i]),
			attribute.String("status", string(r.Status)),
		))
	}
	return results
}

// apply resolves the action's issue reference, mutates the registry, and
// returns the issue key together with the remote half of the action.
func (e *Engine) apply(action command.Action) (string, remoteOp, error) {
	if create, ok := action.(command.CreateIssue); ok {
		return e.applyCreate(create)
	}

	key, err := e.resolve(command.IssueRef(action))
	if err != nil {
		return "", nil, err
	}

	switch a := command.WithIssueRef(action, key).(type) {
	case command.Transition:
		if err := e.registry.Transition(key, a.Target); err != nil {
			return key, nil, err
		}
		return key, func(ctx context.Context) error {
			return e.service.TransitionIssue(ctx, e.registry.RemoteKey(key), a.Target)
		}, nil

	case command.ModifyField:
		if err := e.registry.SetField(key, a.Field, a.Value); err != nil {
			return key, nil, err
		}
		return key, func(ctx context.Context) error {
			return e.service.UpdateField(ctx, e.registry.RemoteKey(key), a.Field, a.Value)
		}, nil

	case command.Assign:
		if err := e.registry.Assign(key, a.Assignee); err != nil {
			return key, nil, err
		}
		return key, func(ctx context.Context) error {
			return e.service.AssignIssue(ctx, e.registry.RemoteKey(key), a.Assignee)
		}, nil

	case command.AddComment:
		// The local append happens exactly once; retries only repeat the remote call.
		if _, err := e.registry.AddComment(key, a.Text); err != nil {
			return key, nil, err
		}
		return key, func(ctx context.Context) error {
			return e.service.AddComment(ctx, e.registry.RemoteKey(key), a.Text)
		}, nil
	}

	return key, nil, fmt.Errorf("unsupported action %T", action)
}

func (e *Engine) applyCreate(a command.CreateIssue) (string, remoteOp, error) {
	issue, err := e.registry.AllocateIssue(a.Project, a.Type, a.Summary, a.Description)
	if err != nil {
		return "", nil, err
	}
	logging.Debug("allocated issue", "issue", issue.Key, "type", issue.Type)

	return issue.Key, func(ctx context.Context) error {
		remoteKey, err := e.service.CreateIssue(ctx, a.Project, a.Type, a.Summary, a.Description)
		if err != nil {
			return err
		}
		if remoteKey == "" {
			return nil
		}
		if remoteKey != issue.Key {
			logging.Warn("remote key differs from local key", "issue", issue.Key, "remote_key", remoteKey)
		}
		return e.registry.SetRemoteKey(issue.Key, remoteKey)
	}, nil
}

// resolve maps an issue reference to a registered key.
func (e *Engine) resolve(ref string) (string, error) {
	if ref == command.LastIssue {
		key, ok := e.registry.LastIssueKey()
		if !ok {
			return "", fmt.Errorf("%w: no issue has been created yet", registry.ErrUnknownIssue)
		}
		return key, nil
	}

	if _, err := e.registry.GetIssue(ref); err != nil {
		return ref, err
	}
	return ref, nil
}

// Failed reports whether any result failed or was skipped.
func Failed(results []models.Result) bool {
	for _, r := range results {
		if r.Status != models.ResultApplied {
			return true
		}
	}
	return false
}

// IsLocalError reports whether err was raised before anything was submitted
// remotely: parse, reference and validation errors.
func IsLocalError(err error) bool {
	for _, target := range []error{
		command.ErrMalformedInput,
		command.ErrUnparsableCommand,
		command.ErrUnsupportedType,
		command.ErrUnsupportedStatus,
		registry.ErrUnknownIssue,
		registry.ErrEmptySummary,
		registry.ErrEmptyComment,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
