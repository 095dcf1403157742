package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Check is one independent predicate of a parallel validation.
type Check struct {
	Name string
	Run  func(ctx context.Context) (Verdict, error)
}

// CheckResult is the recorded result of one check.
type CheckResult struct {
	Name     string        `json:"name"`
	Pass     bool          `json:"pass"`
	Reason   string        `json:"reason,omitempty"`
	Err      error         `json:"-"`
	Duration time.Duration `json:"duration"`
}

// Validation is the joined result of all checks.
type Validation struct {
	Report
	Checks []CheckResult `json:"checks"`
}

// Valid reports whether every check passed.
func (v Validation) Valid() bool {
	return v.OK()
}

// Validate runs every check concurrently and waits for all of them, even
// when one fails early. The input is valid only if all checks pass. Check
// errors are joined and returned alongside the per-check results; a failed
// check never cancels its siblings.
func Validate(ctx context.Context, logger *zap.Logger, checks ...Check) (Validation, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(checks) == 0 {
		return Validation{}, errors.New("validate: no checks configured")
	}

	results := make([]CheckResult, len(checks))
	var g errgroup.Group
	for i, c := range checks {
		g.Go(func() error {
			start := time.Now()
			v, err := c.Run(ctx)
			results[i] = CheckResult{
				Name:     c.Name,
				Pass:     err == nil && v.Pass,
				Reason:   v.Reason,
				Err:      err,
				Duration: time.Since(start),
			}
			return nil
		})
	}
	_ = g.Wait()

	out := Validation{Report: Report{Outcome: Completed}, Checks: results}

	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("check %s: %w", r.Name, r.Err))
		}
		if !r.Pass && out.Outcome == Completed {
			out.Report = Report{Outcome: Rejected, Stage: r.Name, Reason: r.Reason}
		}
	}

	if err := errors.Join(errs...); err != nil {
		logger.Warn("Validation checks failed", zap.Error(err))
		return out, err
	}

	if !out.OK() {
		logger.Warn("Validation failed",
			zap.String("check", out.Stage),
			zap.String("reason", out.Reason))
	}
	return out, nil
}
