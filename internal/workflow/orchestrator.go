package workflow

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Entry is one completed sub-task.
type Entry[T, O any] struct {
	Task   T
	Output O
}

// Ledger is the append-only record of completed sub-tasks for one
// orchestrator run. Workers and the reviewer read it; only the orchestrator
// appends.
type Ledger[T, O any] struct {
	entries []Entry[T, O]
}

func (l *Ledger[T, O]) append(task T, output O) {
	l.entries = append(l.entries, Entry[T, O]{Task: task, Output: output})
}

// Entries returns the completed sub-tasks in completion order.
func (l *Ledger[T, O]) Entries() []Entry[T, O] {
	out := make([]Entry[T, O], len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of completed sub-tasks.
func (l *Ledger[T, O]) Len() int {
	return len(l.entries)
}

// Orchestrator plans a list of sub-tasks, runs a worker for each in order and
// reviews the combined output. Every worker sees the outputs of all earlier
// sub-tasks.
type Orchestrator[P, T, O, R any] struct {
	// Plan produces the plan and its ordered sub-tasks.
	Plan func(ctx context.Context) (P, []T, error)

	Work   func(ctx context.Context, plan P, task T, done *Ledger[T, O]) (O, error)
	Review func(ctx context.Context, plan P, done *Ledger[T, O]) (R, error)

	Logger *zap.Logger
}

// Result is a finished orchestrator run.
type Result[P, T, O, R any] struct {
	Plan   P
	Ledger *Ledger[T, O]
	Review R
}

// Run executes plan, workers and review. Any step error aborts the run.
func (o *Orchestrator[P, T, O, R]) Run(ctx context.Context) (*Result[P, T, O, R], error) {
	if o.Plan == nil || o.Work == nil || o.Review == nil {
		return nil, errors.New("orchestrator: plan, work and review are required")
	}
	logger := o.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	logger.Info("Planning")
	plan, tasks, err := o.Plan(ctx)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: plan: %w", err)
	}
	logger.Info("Plan processed", zap.Int("tasks", len(tasks)))

	ledger := &Ledger[T, O]{}
	for i, task := range tasks {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("orchestrator: task %d: %w", i+1, err)
		}
		logger.Info("Running worker", zap.Int("task", i+1), zap.Int("of", len(tasks)))

		out, err := o.Work(ctx, plan, task, ledger)
		if err != nil {
			return nil, fmt.Errorf("orchestrator: task %d: %w", i+1, err)
		}
		ledger.append(task, out)
	}

	logger.Info("Reviewing", zap.Int("outputs", ledger.Len()))
	review, err := o.Review(ctx, plan, ledger)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: review: %w", err)
	}

	logger.Info("Orchestration complete")
	return &Result[P, T, O, R]{Plan: plan, Ledger: ledger, Review: review}, nil
}
