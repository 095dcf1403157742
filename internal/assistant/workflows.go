package assistant

import (
	"github.com/ashutoshrp06/agentflow/internal/extract"
	"github.com/ashutoshrp06/agentflow/internal/workflow/blog"
	"github.com/ashutoshrp06/agentflow/internal/workflow/calendar"
	"github.com/ashutoshrp06/agentflow/internal/workflow/essay"
)

func (d Deps) steps() extract.Config {
	return extract.Config{
		Gateway: d.Gateway,
		Timeout: d.Config.LLMTimeout(),
		Logger:  d.Logger,
	}
}

// NewCalendar returns the calendar workflows configured from workflow.*.
func NewCalendar(d Deps) (*calendar.Service, error) {
	d = d.withDefaults()
	return calendar.New(calendar.Config{
		Steps:     d.steps(),
		Prompts:   d.Prompts,
		Threshold: d.Config.Workflow.ConfidenceThreshold,
		Signer:    d.Config.Workflow.Signer,
	})
}

// NewBlog returns the blog writer.
func NewBlog(d Deps) (*blog.Writer, error) {
	d = d.withDefaults()
	return blog.New(blog.Config{Steps: d.steps(), Prompts: d.Prompts})
}

// NewEssay returns the essay writer.
func NewEssay(d Deps) (*essay.Writer, error) {
	d = d.withDefaults()
	return essay.New(essay.Config{Steps: d.steps(), Prompts: d.Prompts})
}
