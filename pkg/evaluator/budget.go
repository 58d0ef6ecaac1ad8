package evaluator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/thomasrohde/rlux/pkg/diagnostics"
	"github.com/thomasrohde/rlux/pkg/token"
)

// Budget holds the resource limits for a program execution. Zero values
// mean unbounded.
type Budget struct {
	// MaxIterations caps the total number of loop iterations across a run.
	MaxIterations int64
	// Timeout caps the wall-clock duration of a run.
	Timeout time.Duration
}

// BudgetTracker tracks resource consumption during execution.
type BudgetTracker struct {
	Iterations int64
	Start      time.Time
}

func (ev *evaluator) checkIterationBudget(at token.Token) error {
	if ev.budget.MaxIterations > 0 && ev.tracker.Iterations >= ev.budget.MaxIterations {
		return &RuntimeError{
			Code:    diagnostics.EBudget,
			Message: fmt.Sprintf("iteration budget exceeded (max %d)", ev.budget.MaxIterations),
			Token:   at,
		}
	}
	return nil
}

// checkDeadline reports an expired time budget as E_BUDGET. Any other
// context error is returned unchanged.
func (ev *evaluator) checkDeadline(at token.Token) error {
	err := ev.ctx.Err()
	if err == nil {
		return nil
	}
	if ev.budget.Timeout > 0 && errors.Is(err, context.DeadlineExceeded) {
		return &RuntimeError{
			Code:    diagnostics.EBudget,
			Message: fmt.Sprintf("time budget exceeded (%dms)", ev.budget.Timeout.Milliseconds()),
			Token:   at,
		}
	}
	return err
}
