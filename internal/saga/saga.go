// Package saga runs a short sequence of writes that must either all stick
// or all be undone.  Each step carries its own compensating action; when a
// step fails, the steps that already ran are undone in reverse order.
package saga

import (
	"context"
	"errors"
	"fmt"
)

// Step is one write and its compensation.  Undo may be nil for a step that
// has nothing to revert (a read or a final write).
type Step struct {
	Name string
	Do   func(ctx context.Context) error
	Undo func(ctx context.Context) error
}

// StepError reports the step that failed.  When compensation also failed,
// UndoErr holds the joined undo errors and the saga may have left partial
// writes behind.
type StepError struct {
	Step    string
	Err     error
	UndoErr error
}

func (e *StepError) Error() string {
	if e.UndoErr != nil {
		return fmt.Sprintf("step %s: %v (undo failed: %v)", e.Step, e.Err, e.UndoErr)
	}
	return fmt.Sprintf("step %s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Compensated reports whether every completed step was undone.
func (e *StepError) Compensated() bool { return e.UndoErr == nil }

// Saga is an ordered list of steps.
type Saga struct {
	steps []Step
}

// New returns a saga running steps in order.
func New(steps ...Step) *Saga { return &Saga{steps: steps} }

// Add appends a step.
func (s *Saga) Add(step Step) *Saga {
	s.steps = append(s.steps, step)
	return s
}

// Run executes the steps.  On the first failure it undoes the completed
// steps newest first and returns a *StepError.  Undo runs on a context
// detached from ctx's cancellation so a cancelled request still gets its
// compensation.
func (s *Saga) Run(ctx context.Context) error {
	done := make([]Step, 0, len(s.steps))
	for _, step := range s.steps {
		if err := step.Do(ctx); err != nil {
			return &StepError{Step: step.Name, Err: err, UndoErr: compensate(context.WithoutCancel(ctx), done)}
		}
		done = append(done, step)
	}
	return nil
}

func compensate(ctx context.Context, done []Step) error {
	var errs []error
	for i := len(done) - 1; i >= 0; i-- {
		if done[i].Undo == nil {
			continue
		}
		if err := done[i].Undo(ctx); err != nil {
			errs = append(errs, fmt.Errorf("undo %s: %w", done[i].Name, err))
		}
	}
	return errors.Join(errs...)
}
