package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ashutoshrp06/agentflow/internal/assistant"
	"github.com/ashutoshrp06/agentflow/internal/workflow"
)

var calendarCmd = &cobra.Command{
	Use:   "calendar",
	Short: "Run the calendar workflows",
	Long: `Run one of the calendar workflows on a free-text request.

  chain     extract the event, gate on confidence, parse details, confirm
  route     classify as a new or modified event and handle it
  validate  check in parallel that the request is a calendar request and safe`,
}

var (
	blogLength int
	blogStyle  string
)

var blogCmd = &cobra.Command{
	Use:   "blog <topic>",
	Short: "Plan, write and review a blog post",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer e.logger.Sync()

		length := blogLength
		if !cmd.Flags().Changed("length") {
			length = e.cfg.Workflow.Blog.TargetLength
		}
		style := blogStyle
		if !cmd.Flags().Changed("style") {
			style = e.cfg.Workflow.Blog.Style
		}
		return e.blog(cmd.Context(), joinArgs(args), length, style)
	},
}

var essayCmd = &cobra.Command{
	Use:   "essay <topic>",
	Short: "Draft, reflect on and revise a short essay",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer e.logger.Sync()
		return e.essay(cmd.Context(), joinArgs(args))
	},
}

func init() {
	for _, c := range []struct {
		use, short string
		run        func(*env, context.Context, string) error
	}{
		{"chain <request>", "Extract, gate, parse and confirm an event", (*env).calendarChain},
		{"route <request>", "Route a request to the new or modify handler", (*env).calendarRoute},
		{"validate <request>", "Validate a request with parallel checks", (*env).calendarValidate},
	} {
		run := c.run
		calendarCmd.AddCommand(&cobra.Command{
			Use:   c.use,
			Short: c.short,
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				e, err := setup(cmd.Context())
				if err != nil {
					return err
				}
				defer e.logger.Sync()
				return run(e, cmd.Context(), joinArgs(args))
			},
		})
	}

	blogCmd.Flags().IntVar(&blogLength, "length", 1000, "Target length in words")
	blogCmd.Flags().StringVar(&blogStyle, "style", "informative", "Writing style")
}

func (e *env) report(r workflow.Report) {
	msg := r.Outcome.String()
	if r.Stage != "" {
		msg += " at " + r.Stage
	}
	if r.Reason != "" {
		msg += ": " + r.Reason
	}
	e.status(r.OK(), msg)
}

func (e *env) calendarChain(ctx context.Context, input string) error {
	svc, err := assistant.NewCalendar(e.deps)
	if err != nil {
		return err
	}
	ctx, cancel := e.context(ctx)
	defer cancel()

	res, err := svc.Chain(ctx, input)
	if err != nil {
		return err
	}
	return e.emit(res, func() {
		e.heading("Calendar chain")
		e.report(res.Report)
		e.field("Confidence", fmt.Sprintf("%.2f", res.Extraction.ConfidenceScore))
		if res.Details != nil {
			e.field("Event", res.Details.Name)
			e.field("When", res.Details.Date)
			e.field("Duration", fmt.Sprintf("%d min", res.Details.Duration))
			e.field("Participants", strings.Join(res.Details.Participants, ", "))
		}
		if res.Confirmation != nil {
			fmt.Fprintln(e.out)
			e.text(res.Confirmation.Message)
			if res.Confirmation.CalendarLink != nil {
				e.field("Link", *res.Confirmation.CalendarLink)
			}
		}
	})
}

func (e *env) calendarRoute(ctx context.Context, input string) error {
	svc, err := assistant.NewCalendar(e.deps)
	if err != nil {
		return err
	}
	ctx, cancel := e.context(ctx)
	defer cancel()

	res, err := svc.Route(ctx, input)
	if err != nil {
		return err
	}
	return e.emit(res, func() {
		e.heading("Calendar route")
		e.report(res.Report)
		e.field("Request type", res.Classification.RequestType)
		e.field("Confidence", fmt.Sprintf("%.2f", res.Classification.ConfidenceScore))
		if res.Response != nil {
			e.text(res.Response.Message)
			if res.Response.CalendarLink != "" {
				e.field("Link", res.Response.CalendarLink)
			}
		}
	})
}

func (e *env) calendarValidate(ctx context.Context, input string) error {
	svc, err := assistant.NewCalendar(e.deps)
	if err != nil {
		return err
	}
	ctx, cancel := e.context(ctx)
	defer cancel()

	res, err := svc.Validate(ctx, input)
	if err != nil {
		return err
	}
	return e.emit(res, func() {
		e.heading("Calendar validation")
		for _, c := range res.Checks {
			msg := c.Name
			if c.Reason != "" {
				msg += ": " + c.Reason
			}
			e.status(c.Pass, msg)
		}
		if len(res.RiskFlags) > 0 {
			e.field("Risk flags", strings.Join(res.RiskFlags, ", "))
		}
		if res.Valid() {
			e.text("The request is a valid calendar request.")
		} else {
			e.text("The request was rejected.")
		}
	})
}

func (e *env) blog(ctx context.Context, topic string, length int, style string) error {
	w, err := assistant.NewBlog(e.deps)
	if err != nil {
		return err
	}
	ctx, cancel := e.context(ctx)
	defer cancel()

	post, err := w.Write(ctx, topic, length, style)
	if err != nil {
		return err
	}
	return e.emit(post, func() {
		e.heading(post.Topic)
		e.field("Audience", post.Plan.TargetAudience)
		e.field("Cohesion", fmt.Sprintf("%.2f", post.Review.CohesionScore))
		for _, edit := range post.Review.SuggestedEdits {
			e.field("Edit "+edit.SectionName, edit.SuggestedEdit)
		}
		fmt.Fprintln(e.out)
		e.text(post.Review.FinalVersion)
	})
}

func (e *env) essay(ctx context.Context, topic string) error {
	w, err := assistant.NewEssay(e.deps)
	if err != nil {
		return err
	}
	ctx, cancel := e.context(ctx)
	defer cancel()

	essay, err := w.Write(ctx, topic)
	if err != nil {
		return err
	}
	return e.emit(essay, func() {
		e.heading(essay.Topic)
		e.text(essay.Revision)
		if verbose {
			fmt.Fprintln(e.out)
			e.field("Reflection", essay.Reflection)
		}
	})
}
