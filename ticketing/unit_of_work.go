package ticketing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/jacentio/ticketer/internal/metrics"
)

// undoFunc reverses one committed step.
type undoFunc func(ctx context.Context) error

// stepFunc commits one step. It returns the undo for what it actually
// changed, or nil when there is nothing to reverse.
type stepFunc func(ctx context.Context) (undoFunc, error)

type step struct {
	name string
	do   stepFunc
}

// unitOfWork is an ordered list of independent single-record commits.
// Steps run in order and stop at the first failure.
type unitOfWork struct {
	id     string
	logger *slog.Logger
	steps  []step
}

// outcome describes how a unit of work ended.
type outcome struct {
	// failedStep is the name of the step that failed, empty on success.
	failedStep string

	// rolledBack is set when every committed step was undone.
	rolledBack bool
}

func newUnitOfWork(logger *slog.Logger, op string, attrs ...any) *unitOfWork {
	id := uuid.NewString()
	return &unitOfWork{
		id:     id,
		logger: logger.With(append([]any{"unitID", id, "op", op}, attrs...)...),
	}
}

func (u *unitOfWork) add(name string, do stepFunc) {
	u.steps = append(u.steps, step{name: name, do: do})
}

// run executes the steps. On failure, when compensate is set, the undo of
// every committed step runs in reverse order. The returned error is the
// failing step's error, joined with any undo errors.
func (u *unitOfWork) run(ctx context.Context, compensate bool) (outcome, error) {
	var undos []namedUndo

	for _, s := range u.steps {
		u.logger.Debug("running step", "step", s.name)

		undo, err := s.do(ctx)
		if err == nil {
			if undo != nil {
				undos = append(undos, namedUndo{name: s.name, fn: undo})
			}
			continue
		}

		metrics.AssociationFailures.WithLabelValues(s.name).Inc()
		u.logger.Warn("step failed", "step", s.name, "committed", len(undos), "error", err)

		out := outcome{failedStep: s.name}
		if !compensate {
			return out, err
		}

		undoErr := u.compensate(ctx, undos)
		out.rolledBack = undoErr == nil
		if undoErr != nil {
			return out, errors.Join(err, undoErr)
		}
		return out, err
	}

	return outcome{}, nil
}

type namedUndo struct {
	name string
	fn   undoFunc
}

// compensate undoes committed steps last-first. It keeps going after an
// undo fails so as much as possible is reversed.
func (u *unitOfWork) compensate(ctx context.Context, undos []namedUndo) error {
	var errs []error
	for i := len(undos) - 1; i >= 0; i-- {
		if err := undos[i].fn(ctx); err != nil {
			u.logger.Error("undo failed", "step", undos[i].name, "error", err)
			errs = append(errs, fmt.Errorf("undo %s: %w", undos[i].name, err))
		}
	}

	if len(errs) > 0 {
		metrics.Compensations.WithLabelValues(metrics.OutcomeError).Inc()
		return errors.Join(errs...)
	}

	metrics.Compensations.WithLabelValues(metrics.OutcomeOK).Inc()
	u.logger.Info("unit of work rolled back", "undone", len(undos))
	return nil
}
