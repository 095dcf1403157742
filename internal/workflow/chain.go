package workflow

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

type link[S any] struct {
	name string
	run  func(ctx context.Context, state *S) error
	gate func(state *S) Verdict
}

// Chain runs named steps in order over a shared state. Each step reads what
// earlier steps stored in the state and adds its own output. A gate between
// steps can stop the chain with a Rejected report.
type Chain[S any] struct {
	name   string
	links  []link[S]
	logger *zap.Logger
}

// NewChain creates an empty chain.
func NewChain[S any](name string, logger *zap.Logger) *Chain[S] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chain[S]{name: name, logger: logger}
}

// Then appends a processing step.
func (c *Chain[S]) Then(name string, run func(ctx context.Context, state *S) error) *Chain[S] {
	c.links = append(c.links, link[S]{name: name, run: run})
	return c
}

// Gate appends a checkpoint. A failing verdict halts the chain and no later
// step runs.
func (c *Chain[S]) Gate(name string, check func(state *S) Verdict) *Chain[S] {
	c.links = append(c.links, link[S]{name: name, gate: check})
	return c
}

// Run executes the chain over state. A step error aborts the run and is
// returned wrapped with the step name.
func (c *Chain[S]) Run(ctx context.Context, state *S) (Report, error) {
	logger := c.logger.With(zap.String("chain", c.name))
	logger.Info("Chain started", zap.Int("links", len(c.links)))

	for _, l := range c.links {
		if err := ctx.Err(); err != nil {
			return Report{}, fmt.Errorf("chain %s: before %s: %w", c.name, l.name, err)
		}

		if l.gate != nil {
			v := l.gate(state)
			if !v.Pass {
				logger.Warn("Gate check failed",
					zap.String("gate", l.name),
					zap.String("reason", v.Reason))
				return Report{Outcome: Rejected, Stage: l.name, Reason: v.Reason}, nil
			}
			logger.Info("Gate check passed", zap.String("gate", l.name))
			continue
		}

		logger.Debug("Running step", zap.String("step", l.name))
		if err := l.run(ctx, state); err != nil {
			return Report{}, fmt.Errorf("chain %s: step %s: %w", c.name, l.name, err)
		}
	}

	logger.Info("Chain completed")
	return Report{Outcome: Completed}, nil
}
