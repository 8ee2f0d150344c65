package coordinator

import (
	"context"
	"fmt"
	"log/slog"
)

// sagaStep is one compensable write in a multi-document mutation. undo may
// be nil when the step has no meaningful inverse.
type sagaStep struct {
	name string
	run  func(ctx context.Context) error
	undo func(ctx context.Context) error
}

// saga executes an ordered list of steps. On the first failure it unwinds
// the already-completed steps in reverse order and returns the primary
// error. Unwinding is best effort: a failed inverse is logged and the
// unwind continues with the remaining steps.
type saga struct {
	name  string
	steps []sagaStep
	log   *slog.Logger
}

func (s *saga) then(name string, run, undo func(ctx context.Context) error) *saga {
	s.steps = append(s.steps, sagaStep{name: name, run: run, undo: undo})
	return s
}

func (s *saga) execute(ctx context.Context) error {
	for i, step := range s.steps {
		if err := step.run(ctx); err != nil {
			s.unwind(ctx, i-1)
			return fmt.Errorf("%s: %s: %w", s.name, step.name, err)
		}
	}
	return nil
}

// unwind runs the inverses of steps [0..last] in reverse order.
func (s *saga) unwind(ctx context.Context, last int) {
	for i := last; i >= 0; i-- {
		step := s.steps[i]
		if step.undo == nil {
			continue
		}
		if err := step.undo(ctx); err != nil {
			s.log.Error("saga unwind step failed",
				"saga", s.name,
				"step", step.name,
				"error", err,
			)
		}
	}
}
