// Package essay runs a draft, reflect and revise chain of plain-text steps.
package essay

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/ashutoshrp06/agentflow/internal/extract"
	"github.com/ashutoshrp06/agentflow/internal/failure"
	"github.com/ashutoshrp06/agentflow/internal/prompt"
	"github.com/ashutoshrp06/agentflow/internal/workflow"
)

// Essay holds the output of every stage.
type Essay struct {
	Topic      string `json:"topic"`
	Draft      string `json:"draft"`
	Reflection string `json:"reflection"`
	Revision   string `json:"revision"`
}

type Config struct {
	Steps   extract.Config
	Prompts *prompt.Catalogue
}

type Writer struct {
	prompts *prompt.Catalogue
	logger  *zap.Logger
	step    *extract.TextStep
}

func New(cfg Config) (*Writer, error) {
	if cfg.Prompts == nil {
		cfg.Prompts = prompt.Default()
	}
	if cfg.Steps.Logger == nil {
		cfg.Steps.Logger = zap.NewNop()
	}
	step, err := extract.NewTextStep(cfg.Steps, "essay")
	if err != nil {
		return nil, err
	}
	return &Writer{prompts: cfg.Prompts, logger: cfg.Steps.Logger, step: step}, nil
}

// Write drafts an essay on topic, critiques the draft and revises it.
func (w *Writer) Write(ctx context.Context, topic string) (*Essay, error) {
	if strings.TrimSpace(topic) == "" {
		return nil, failure.New(failure.KindInvalidInput, "essay.write", "topic is required")
	}

	chain := workflow.NewChain[Essay]("essay", w.logger).
		Then("draft", func(ctx context.Context, e *Essay) error {
			return w.ask(ctx, prompt.EssayDraft, prompt.Vars{"TOPIC": e.Topic}, &e.Draft)
		}).
		Then("reflect", func(ctx context.Context, e *Essay) error {
			return w.ask(ctx, prompt.EssayReflect, prompt.Vars{"DRAFT": e.Draft}, &e.Reflection)
		}).
		Then("revise", func(ctx context.Context, e *Essay) error {
			return w.ask(ctx, prompt.EssayRevise, prompt.Vars{"DRAFT": e.Draft, "REFLECTION": e.Reflection}, &e.Revision)
		})

	e := &Essay{Topic: topic}
	if _, err := chain.Run(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// ask sends the rendered template as the user message and stores the answer.
func (w *Writer) ask(ctx context.Context, name string, vars prompt.Vars, out *string) error {
	user, err := w.prompts.Render(name, vars)
	if err != nil {
		return failure.Wrap(failure.KindConfiguration, "essay.prompt", err)
	}
	text, err := w.step.Complete(ctx, "", user)
	if err != nil {
		return err
	}
	*out = text
	return nil
}
