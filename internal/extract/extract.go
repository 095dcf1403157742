// Package extract implements the single-call structured extraction step used
// by chains, routers and orchestrators: one request, one response, validated
// once against a shape.
package extract

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ashutoshrp06/agentflow/internal/failure"
	"github.com/ashutoshrp06/agentflow/internal/llm"
	"github.com/ashutoshrp06/agentflow/internal/shape"
	"github.com/ashutoshrp06/agentflow/internal/types"
)

// Config holds the collaborators shared by every step of a workflow.
type Config struct {
	Gateway llm.Gateway

	// Timeout bounds each gateway call. Zero leaves it to the caller's context.
	Timeout time.Duration

	Logger *zap.Logger
}

func (c Config) validate(op string) error {
	if c.Gateway == nil {
		return failure.New(failure.KindConfiguration, op, "gateway is required")
	}
	return nil
}

func (c Config) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

// Step extracts a T from one model response. A Step holds no per-call state.
type Step[T any] struct {
	cfg   Config
	shape shape.Typed[T]
}

// NewStep creates a step producing values of out's type.
func NewStep[T any](cfg Config, out shape.Typed[T]) (*Step[T], error) {
	if err := cfg.validate("extract.new"); err != nil {
		return nil, err
	}
	if out.Shape == nil {
		return nil, failure.New(failure.KindConfiguration, "extract.new", "shape is required")
	}
	cfg.Logger = cfg.logger()
	return &Step[T]{cfg: cfg, shape: out}, nil
}

// MustStep is like NewStep but panics on error.
func MustStep[T any](cfg Config, out shape.Typed[T]) *Step[T] {
	s, err := NewStep(cfg, out)
	if err != nil {
		panic(err)
	}
	return s
}

// Name returns the name of the step's shape.
func (s *Step[T]) Name() string {
	return s.shape.Name()
}

// Extract sends system and user as a fresh conversation and decodes the
// answer. Either message may be empty, but not both. Numeric ranges are not
// checked here.
func (s *Step[T]) Extract(ctx context.Context, system, user string) (T, error) {
	var zero T
	op := "extract." + s.shape.Name()

	completion, err := complete(ctx, s.cfg, op, llm.Request{
		Messages: messages(system, user),
		Shape:    s.shape.Shape,
	})
	if err != nil {
		return zero, err
	}
	if !completion.IsFinal() {
		return zero, failure.Shape(op, "model requested tools during an extraction step", nil)
	}

	v, err := s.shape.Parse([]byte(completion.Text))
	if err != nil {
		return zero, err
	}

	s.cfg.Logger.Debug("Extraction complete", zap.String("shape", s.shape.Name()))
	return v, nil
}

// TextStep is an unshaped single call returning the model's text.
type TextStep struct {
	cfg  Config
	name string
}

// NewTextStep creates a plain-text step. name is used in logs and errors.
func NewTextStep(cfg Config, name string) (*TextStep, error) {
	if err := cfg.validate("extract.new"); err != nil {
		return nil, err
	}
	cfg.Logger = cfg.logger()
	return &TextStep{cfg: cfg, name: name}, nil
}

// Complete sends system and user and returns the final text.
func (s *TextStep) Complete(ctx context.Context, system, user string) (string, error) {
	op := "extract." + s.name

	completion, err := complete(ctx, s.cfg, op, llm.Request{Messages: messages(system, user)})
	if err != nil {
		return "", err
	}
	if !completion.IsFinal() {
		return "", failure.Shape(op, "model requested tools during a text step", nil)
	}
	if completion.Text == "" {
		return "", failure.Shape(op, "output is empty", nil)
	}
	return completion.Text, nil
}

func messages(system, user string) []types.Message {
	msgs := make([]types.Message, 0, 2)
	if system != "" {
		msgs = append(msgs, types.SystemMessage(system))
	}
	if user != "" {
		msgs = append(msgs, types.UserMessage(user))
	}
	return msgs
}

func complete(ctx context.Context, cfg Config, op string, req llm.Request) (llm.Completion, error) {
	if len(req.Messages) == 0 {
		return llm.Completion{}, failure.New(failure.KindInvalidInput, op, "nothing to send: system and user are both empty")
	}

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	completion, err := cfg.Gateway.Complete(ctx, req)
	if err != nil {
		var fe *failure.Error
		if !errors.As(err, &fe) {
			err = failure.Transport(op, err)
		}
		cfg.logger().Warn("Extraction failed", zap.String("op", op), zap.Error(err))
		return llm.Completion{}, err
	}
	return completion, nil
}
