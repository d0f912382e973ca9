package pandda

import (
	"context"
	"log/slog"
	"time"
)

// State is a provisioning workflow's position in its lifecycle:
//
//	Validating → Writing → Verifying → Committed
//	Writing | Verifying → Compensating → Compensated | FatalInconsistency
//
// A request rejected while Validating has written nothing and simply
// returns.
type State string

const (
	StateValidating         State = "validating"
	StateWriting            State = "writing"
	StateVerifying          State = "verifying"
	StateCommitted          State = "committed"
	StateCompensating       State = "compensating"
	StateCompensated        State = "compensated"
	StateFatalInconsistency State = "fatal_inconsistency"
)

// Terminal reports whether no further transition can follow s.
func (s State) Terminal() bool {
	return s == StateCommitted || s == StateCompensated || s == StateFatalInconsistency
}

var transitions = map[State][]State{
	StateValidating:   {StateWriting},
	StateWriting:      {StateVerifying, StateCompensating},
	StateVerifying:    {StateCommitted, StateCompensating},
	StateCompensating: {StateCompensated, StateFatalInconsistency},
}

// CanTransition reports whether from → to is a legal step.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// undoStep is the inverse of one completed write.
type undoStep struct {
	desc string
	fn   func(ctx context.Context) error
}

// undoStack holds the inverses of a workflow's writes, most recent last.
type undoStack struct {
	steps []undoStep
}

func (u *undoStack) push(desc string, fn func(ctx context.Context) error) {
	u.steps = append(u.steps, undoStep{desc: desc, fn: fn})
}

func (u *undoStack) len() int { return len(u.steps) }

// unwind runs every step in reverse order. A failing step does not stop
// the rest; all failures are returned, including a target that is
// already gone, since that means another writer touched the records.
func (u *undoStack) unwind(ctx context.Context) []error {
	var failures []error
	for i := len(u.steps) - 1; i >= 0; i-- {
		step := u.steps[i]
		if err := step.fn(ctx); err != nil {
			failures = append(failures, &PersistenceError{Op: "undo " + step.desc, Err: err})
		}
	}
	u.steps = nil
	return failures
}

// workflow tracks one run of a provisioning workflow.
type workflow struct {
	e      *Engine
	name   string
	state  State
	undo   undoStack
	logger *slog.Logger
}

func (e *Engine) newWorkflow(name string, attrs ...any) *workflow {
	return &workflow{
		e:      e,
		name:   name,
		state:  StateValidating,
		logger: e.logger.With(append([]any{"workflow", name}, attrs...)...),
	}
}

func (w *workflow) transition(to State) {
	if !CanTransition(w.state, to) {
		w.logger.Error("illegal workflow transition", "from", w.state, "to", to)
	}
	w.logger.Debug("workflow transition", "from", w.state, "to", to)
	w.state = to
}

// step runs one store call. The context is checked first so a cancelled
// request stops before its next write.
func (w *workflow) step(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := fn(ctx); err != nil {
		if IsNotFound(err) {
			return err
		}
		return &PersistenceError{Op: op, Err: err}
	}
	return nil
}

// fail unwinds every completed write and returns the error the caller
// sees: cause when compensation succeeds, a FatalInconsistencyError when
// it does not.
func (w *workflow) fail(ctx context.Context, cause error) error {
	w.transition(StateCompensating)
	w.logger.Warn("workflow failed, compensating",
		"error", cause,
		"undo_steps", w.undo.len(),
	)

	// Compensation must run even when the caller's context is done.
	undoCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.e.undoTimeout)
	defer cancel()

	started := time.Now()
	failures := w.undo.unwind(undoCtx)
	if len(failures) > 0 {
		w.transition(StateFatalInconsistency)
		fatal := &FatalInconsistencyError{Workflow: w.name, Cause: cause, Failures: failures}
		w.logger.Error("compensation failed, store is inconsistent",
			"error", fatal,
			"failures", len(failures),
		)
		w.e.plugins.EmitFatalInconsistency(undoCtx, w.name, fatal)
		return fatal
	}

	w.transition(StateCompensated)
	w.logger.Info("workflow compensated", "cause", cause, "elapsed", time.Since(started))
	w.e.plugins.EmitProvisioningCompensated(undoCtx, w.name, cause)
	return cause
}

func (w *workflow) commit() {
	w.transition(StateCommitted)
	w.logger.Debug("workflow committed")
}
