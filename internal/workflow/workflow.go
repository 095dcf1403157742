// Package workflow composes extraction steps into chains with gates, routers,
// parallel validations and orchestrator/worker/reviewer pipelines.
//
// Gate rejections and unhandled routes are reported as Outcome values, not
// errors. An error from a workflow always means something broke.
package workflow

import (
	"fmt"
	"math"
)

// DefaultThreshold is the minimum confidence used by gates and routers.
const DefaultThreshold = 0.7

// Outcome is how a workflow run ended.
type Outcome int

const (
	Completed Outcome = iota
	Rejected
	Unhandled
)

func (o Outcome) String() string {
	switch o {
	case Completed:
		return "completed"
	case Rejected:
		return "rejected"
	case Unhandled:
		return "unhandled"
	default:
		return "unknown"
	}
}

func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Report describes where and why a run stopped.
type Report struct {
	Outcome Outcome `json:"outcome"`

	// Stage is the gate, route label or check that decided the outcome.
	Stage  string `json:"stage,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// OK reports whether the run completed.
func (r Report) OK() bool {
	return r.Outcome == Completed
}

// Verdict is the result of a gate or validation predicate.
type Verdict struct {
	Pass   bool
	Reason string
}

// Pass returns a passing verdict.
func Pass() Verdict { return Verdict{Pass: true} }

// Fail returns a failing verdict with a formatted reason.
func Fail(format string, args ...any) Verdict {
	return Verdict{Reason: fmt.Sprintf(format, args...)}
}

// Confident checks a model-reported confidence against threshold. The score
// must lie in [0,1] and be at least threshold.
func Confident(confidence, threshold float64) Verdict {
	switch {
	case math.IsNaN(confidence) || confidence < 0 || confidence > 1:
		return Fail("confidence %.2f is outside [0,1]", confidence)
	case confidence < threshold:
		return Fail("confidence %.2f is below threshold %.2f", confidence, threshold)
	default:
		return Pass()
	}
}

// All returns the first failing verdict, or a pass.
func All(verdicts ...Verdict) Verdict {
	for _, v := range verdicts {
		if !v.Pass {
			return v
		}
	}
	return Pass()
}
