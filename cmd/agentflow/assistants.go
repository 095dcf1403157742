package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ashutoshrp06/agentflow/internal/assistant"
)

var researchCmd = &cobra.Command{
	Use:   "research <question>",
	Short: "Answer a question with web search, arXiv, Wikipedia and page fetching",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer e.logger.Sync()

		researcher, err := assistant.NewResearcher(e.deps)
		if err != nil {
			return err
		}
		return e.runAgent(cmd.Context(), researcher, joinArgs(args))
	},
}

var weatherCmd = &cobra.Command{
	Use:   "weather <question>",
	Short: "Ask about the current weather somewhere",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer e.logger.Sync()
		return e.weather(cmd.Context(), joinArgs(args))
	},
}

var kbCmd = &cobra.Command{
	Use:   "kb <question>",
	Short: "Ask the store knowledge base",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer e.logger.Sync()
		return e.knowledge(cmd.Context(), joinArgs(args))
	},
}

func (e *env) weather(ctx context.Context, question string) error {
	w, err := assistant.NewWeather(e.deps)
	if err != nil {
		return err
	}
	ctx, cancel := e.context(ctx)
	defer cancel()

	report, res, err := w.Ask(ctx, question)
	if err != nil {
		return err
	}
	return e.emit(report, func() {
		e.printToolCalls(res.ToolCalls)
		e.field("Temperature", fmt.Sprintf("%.1f °C", report.Temperature))
		e.text(report.Response)
	})
}

func (e *env) knowledge(ctx context.Context, question string) error {
	kb, err := assistant.NewKnowledge(e.deps)
	if err != nil {
		return err
	}
	ctx, cancel := e.context(ctx)
	defer cancel()

	answer, res, err := kb.Ask(ctx, question)
	if err != nil {
		return err
	}
	return e.emit(answer, func() {
		e.printToolCalls(res.ToolCalls)
		e.text(answer.Answer)
		e.field("Source", fmt.Sprintf("record %d", answer.Source))
	})
}
