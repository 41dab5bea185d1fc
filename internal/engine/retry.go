package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/danielolaszy/jirabot/internal/command"
	"github.com/danielolaszy/jirabot/internal/logging"
	"github.com/danielolaszy/jirabot/internal/ticket"
)

// submit runs op until it succeeds, fails permanently or runs out of
// attempts. Only transient ticket errors are retried. A pool slot is held
// for each attempt, not across the backoff wait.
func (e *Engine) submit(ctx context.Context, kind command.Kind, key string, op remoteOp) error {
	attempt := 0

	operation := func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		if err := e.pool.Acquire(ctx, 1); err != nil {
			return backoff.Permanent(err)
		}
		attempt++
		err := op(ctx)
		e.pool.Release(1)

		e.attempts.Add(ctx, 1, metric.WithAttributes(
			attribute.String("action", string(kind)),
			attribute.String("outcome", outcome(err)),
		))

		if err == nil {
			return nil
		}
		if ticket.IsTransient(err) {
			return err
		}
		return backoff.Permanent(err)
	}

	notify := func(err error, wait time.Duration) {
		logging.Warn("retrying remote operation",
			"action", kind,
			"issue", key,
			"attempt", attempt,
			"wait", wait,
			"error", err)
	}

	err := backoff.RetryNotify(operation, e.newBackOff(ctx), notify)
	if err != nil && ticket.IsTransient(err) {
		return fmt.Errorf("giving up after %d attempts: %w", attempt, err)
	}
	return err
}

// newBackOff builds the retry schedule for one remote operation.
func (e *Engine) newBackOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = e.opts.InitialBackoff
	exp.MaxInterval = e.opts.MaxBackoff
	exp.MaxElapsedTime = 0
	exp.Reset()

	retries := uint64(e.opts.MaxAttempts - 1)
	return backoff.WithContext(backoff.WithMaxRetries(exp, retries), ctx)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case ticket.IsTransient(err):
		return "transient"
	default:
		return "rejected"
	}
}
