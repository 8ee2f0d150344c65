package coordinator

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// sideEffectTimeout bounds how long detached side-effect tasks may run
// after the primary mutation committed.
const sideEffectTimeout = 15 * time.Second

// taskGroup launches side-effect tasks concurrently and joins them.
// Task failures are logged with context and never propagated: by the time
// the group runs, the primary mutation has already committed.
//
// Tasks run under a background context with a timeout rather than the
// caller's context, so a cancelled caller does not abort audit writes or
// sink calls mid-flight.
type taskGroup struct {
	op  string
	log *slog.Logger
	wg  sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

func newTaskGroup(op string, log *slog.Logger) *taskGroup {
	ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
	return &taskGroup{op: op, log: log, ctx: ctx, cancel: cancel}
}

// Go launches one named side-effect task.
func (g *taskGroup) Go(name string, fn func(ctx context.Context) error) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		if err := fn(g.ctx); err != nil {
			g.log.Warn("side effect failed",
				"op", g.op,
				"task", name,
				"error", err,
			)
		}
	}()
}

// Wait joins all launched tasks.
func (g *taskGroup) Wait() {
	g.wg.Wait()
	g.cancel()
}
