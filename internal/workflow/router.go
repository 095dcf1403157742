package workflow

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// Classification is the output of a routing step.
type Classification struct {
	Label      string
	Confidence float64

	// Input replaces the request text for the selected branch when set,
	// usually with a cleaned-up description.
	Input string
}

// Classifier picks a branch label for input.
type Classifier func(ctx context.Context, input string) (Classification, error)

// Handler processes a request routed to its label.
type Handler[R any] func(ctx context.Context, input string) (R, error)

// Router sends each request to exactly one branch, or to none when the label
// is unknown or the classification is not confident enough.
type Router[R any] struct {
	classify  Classifier
	branches  map[string]Handler[R]
	threshold float64
	logger    *zap.Logger
}

// NewRouter creates a router. A threshold of zero or less uses
// DefaultThreshold.
func NewRouter[R any](classify Classifier, threshold float64, logger *zap.Logger) *Router[R] {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router[R]{
		classify:  classify,
		branches:  make(map[string]Handler[R]),
		threshold: threshold,
		logger:    logger,
	}
}

// Handle registers the branch for label, replacing any earlier one.
func (r *Router[R]) Handle(label string, h Handler[R]) *Router[R] {
	r.branches[label] = h
	return r
}

// Labels returns the registered labels in sorted order.
func (r *Router[R]) Labels() []string {
	labels := make([]string, 0, len(r.branches))
	for l := range r.branches {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}

// Route classifies input and runs the selected branch. When no branch runs,
// the zero R is returned with an Unhandled report.
func (r *Router[R]) Route(ctx context.Context, input string) (R, Report, error) {
	var zero R

	class, err := r.classify(ctx, input)
	if err != nil {
		return zero, Report{}, fmt.Errorf("route: classify: %w", err)
	}

	r.logger.Info("Request classified",
		zap.String("label", class.Label),
		zap.Float64("confidence", class.Confidence))

	if v := Confident(class.Confidence, r.threshold); !v.Pass {
		r.logger.Info("Low confidence, not routing", zap.String("reason", v.Reason))
		return zero, Report{Outcome: Unhandled, Stage: class.Label, Reason: v.Reason}, nil
	}

	handler, ok := r.branches[class.Label]
	if !ok {
		reason := fmt.Sprintf("no branch for label %q", class.Label)
		r.logger.Info("Unknown route", zap.String("label", class.Label))
		return zero, Report{Outcome: Unhandled, Stage: class.Label, Reason: reason}, nil
	}

	if class.Input != "" {
		input = class.Input
	}
	out, err := handler(ctx, input)
	if err != nil {
		return zero, Report{}, fmt.Errorf("route %s: %w", class.Label, err)
	}
	return out, Report{Outcome: Completed, Stage: class.Label}, nil
}
