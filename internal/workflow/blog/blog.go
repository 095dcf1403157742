// Package blog writes a blog post with an orchestrator/workers/reviewer
// pipeline: a planner splits the topic into sections, a worker writes each
// section with the earlier ones as context, and a reviewer polishes the whole.
package blog

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ashutoshrp06/agentflow/internal/extract"
	"github.com/ashutoshrp06/agentflow/internal/failure"
	"github.com/ashutoshrp06/agentflow/internal/prompt"
	"github.com/ashutoshrp06/agentflow/internal/shape"
	"github.com/ashutoshrp06/agentflow/internal/workflow"
)

const (
	DefaultTargetLength = 1000
	DefaultStyle        = "informative"
)

type SubTask struct {
	SectionType  string `json:"section_type" jsonschema:"Type of blog section to write"`
	Description  string `json:"description" jsonschema:"Quick description of what the section should cover"`
	StyleGuide   string `json:"style_guide" jsonschema:"Writing style for the section"`
	TargetLength int    `json:"target_length" jsonschema:"Target word count for this section"`
}

type Plan struct {
	TopicAnalysis  string    `json:"topic_analysis" jsonschema:"Analysis of the blog topic"`
	TargetAudience string    `json:"target_audience" jsonschema:"Potential audience for the blog"`
	Sections       []SubTask `json:"sections" jsonschema:"List of sections to write"`
}

type SectionContent struct {
	Content   string   `json:"content" jsonschema:"Written content for the section"`
	KeyPoints []string `json:"key_points" jsonschema:"Main points covered by the section"`
}

type SuggestedEdit struct {
	SectionName   string `json:"section_name" jsonschema:"Name of the section"`
	SuggestedEdit string `json:"suggested_edit" jsonschema:"Suggested edit"`
}

type Review struct {
	CohesionScore  float64         `json:"cohesion_score" jsonschema:"How well sections flow together, between 0 and 1"`
	SuggestedEdits []SuggestedEdit `json:"suggested_edits" jsonschema:"Suggested edits by section"`
	FinalVersion   string          `json:"final_version" jsonschema:"Complete, polished blog post"`
}

// Section is one written section, in plan order.
type Section struct {
	Type    string         `json:"type"`
	Content SectionContent `json:"content"`
}

// Post is the finished blog post.
type Post struct {
	Topic    string    `json:"topic"`
	Plan     Plan      `json:"plan"`
	Sections []Section `json:"sections"`
	Review   Review    `json:"review"`
}

var (
	planShape    = shape.MustOf[Plan]("orchestrator_plan", "Plan for blog structure and sub-tasks")
	sectionShape = shape.MustOf[SectionContent]("section_content", "Section content for blog writing")
	reviewShape  = shape.MustOf[Review]("review_feedback", "Final review and suggestions")
)

// Config configures a Writer.
type Config struct {
	Steps   extract.Config
	Prompts *prompt.Catalogue
}

// Writer produces blog posts. It keeps no state between posts.
type Writer struct {
	prompts *prompt.Catalogue
	logger  *zap.Logger

	plan    *extract.Step[Plan]
	section *extract.Step[SectionContent]
	review  *extract.Step[Review]
}

// New creates a Writer.
func New(cfg Config) (*Writer, error) {
	if cfg.Prompts == nil {
		cfg.Prompts = prompt.Default()
	}
	if cfg.Steps.Logger == nil {
		cfg.Steps.Logger = zap.NewNop()
	}

	plan, err := extract.NewStep(cfg.Steps, planShape)
	if err != nil {
		return nil, err
	}
	return &Writer{
		prompts: cfg.Prompts,
		logger:  cfg.Steps.Logger,
		plan:    plan,
		section: extract.MustStep(cfg.Steps, sectionShape),
		review:  extract.MustStep(cfg.Steps, reviewShape),
	}, nil
}

// Write plans, writes and reviews a post on topic. Zero targetLength and empty
// style use the defaults.
func (w *Writer) Write(ctx context.Context, topic string, targetLength int, style string) (*Post, error) {
	if strings.TrimSpace(topic) == "" {
		return nil, failure.New(failure.KindInvalidInput, "blog.write", "topic is required")
	}
	if targetLength <= 0 {
		targetLength = DefaultTargetLength
	}
	if style == "" {
		style = DefaultStyle
	}

	w.logger.Info("Starting blog writing", zap.String("topic", topic))

	o := &workflow.Orchestrator[Plan, SubTask, SectionContent, Review]{
		Plan: func(ctx context.Context) (Plan, []SubTask, error) {
			system, err := w.render(prompt.BlogPlan, prompt.Vars{
				"TOPIC":         topic,
				"TARGET_LENGTH": strconv.Itoa(targetLength),
				"STYLE":         style,
			})
			if err != nil {
				return Plan{}, nil, err
			}
			plan, err := w.plan.Extract(ctx, system, "")
			if err != nil {
				return Plan{}, nil, err
			}
			if len(plan.Sections) == 0 {
				return Plan{}, nil, failure.Shape("blog.plan", "plan has no sections", nil)
			}
			return plan, plan.Sections, nil
		},
		Work: func(ctx context.Context, _ Plan, task SubTask, done *workflow.Ledger[SubTask, SectionContent]) (SectionContent, error) {
			w.logger.Info("Writing section", zap.String("section", task.SectionType))
			system, err := w.render(prompt.BlogSection, prompt.Vars{
				"TOPIC":             topic,
				"SECTION_TYPE":      task.SectionType,
				"DESCRIPTION":       task.Description,
				"STYLE_GUIDE":       task.StyleGuide,
				"PREVIOUS_SECTIONS": previousSections(done),
			})
			if err != nil {
				return SectionContent{}, err
			}
			return w.section.Extract(ctx, system, "")
		},
		Review: func(ctx context.Context, plan Plan, done *workflow.Ledger[SubTask, SectionContent]) (Review, error) {
			system, err := w.render(prompt.BlogReview, prompt.Vars{
				"TOPIC":    topic,
				"AUDIENCE": plan.TargetAudience,
				"SECTIONS": sectionsText(done),
			})
			if err != nil {
				return Review{}, err
			}
			return w.review.Extract(ctx, system, "")
		},
		Logger: w.logger,
	}

	res, err := o.Run(ctx)
	if err != nil {
		return nil, err
	}

	post := &Post{Topic: topic, Plan: res.Plan, Review: res.Review}
	for _, e := range res.Ledger.Entries() {
		post.Sections = append(post.Sections, Section{Type: e.Task.SectionType, Content: e.Output})
	}

	w.logger.Info("Blog post complete",
		zap.Int("sections", len(post.Sections)),
		zap.Float64("cohesion_score", post.Review.CohesionScore))
	return post, nil
}

func (w *Writer) render(name string, vars prompt.Vars) (string, error) {
	out, err := w.prompts.Render(name, vars)
	if err != nil {
		return "", failure.Wrap(failure.KindConfiguration, "blog.prompt", err)
	}
	return out, nil
}

// previousSections renders the context a worker sees.
func previousSections(done *workflow.Ledger[SubTask, SectionContent]) string {
	if done.Len() == 0 {
		return "This is the first section."
	}
	parts := make([]string, 0, done.Len())
	for _, e := range done.Entries() {
		parts = append(parts, fmt.Sprintf("=== %s ===\n%s", e.Task.SectionType, e.Output.Content))
	}
	return "Previous sections:\n" + strings.Join(parts, "\n")
}

func sectionsText(done *workflow.Ledger[SubTask, SectionContent]) string {
	parts := make([]string, 0, done.Len())
	for _, e := range done.Entries() {
		parts = append(parts, fmt.Sprintf("## %s\n%s", e.Task.SectionType, e.Output.Content))
	}
	return strings.Join(parts, "\n\n")
}
