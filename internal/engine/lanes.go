package engine

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// laneBuffer is how many pending ops a lane queues before the dispatcher waits.
const laneBuffer = 64

// lanes runs remote ops with one worker goroutine per project. Ops on the
// same project run in submission order; different projects run concurrently.
type lanes struct {
	ctx   context.Context
	group errgroup.Group
	queue map[string]chan func(context.Context)
}

func newLanes(ctx context.Context) *lanes {
	return &lanes{
		ctx:   ctx,
		queue: make(map[string]chan func(context.Context)),
	}
}

// submit queues fn on the project's lane, starting the lane on first use.
// It must only be called from the dispatching goroutine.
func (l *lanes) submit(project string, fn func(context.Context)) {
	ch, ok := l.queue[project]
	if !ok {
		ch = make(chan func(context.Context), laneBuffer)
		l.queue[project] = ch
		l.group.Go(func() error {
			for op := range ch {
				op(l.ctx)
			}
			return nil
		})
	}
	ch <- fn
}

// wait closes every lane and blocks until all queued ops have run.
func (l *lanes) wait() {
	for _, ch := range l.queue {
		close(ch)
	}
	_ = l.group.Wait()
}
