package blog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashutoshrp06/agentflow/internal/extract"
	"github.com/ashutoshrp06/agentflow/internal/failure"
	"github.com/ashutoshrp06/agentflow/internal/llm/llmtest"
)

const planJSON = `{
  "topic_analysis": "AI changes how code is written and reviewed.",
  "target_audience": "Working software engineers",
  "sections": [
    {"section_type": "Introduction", "description": "Set the scene", "style_guide": "Short", "target_length": 150},
    {"section_type": "Body", "description": "Tooling", "style_guide": "Concrete", "target_length": 400},
    {"section_type": "Body", "description": "Review practices", "style_guide": "Concrete", "target_length": 400}
  ]
}`

func newWriter(t *testing.T, gw *llmtest.Scripted) *Writer {
	t.Helper()
	w, err := New(Config{Steps: extract.Config{Gateway: gw}})
	require.NoError(t, err)
	return w
}

func TestWritePassesEarlierSectionsToWorkers(t *testing.T) {
	gw := llmtest.New(
		llmtest.Text(planJSON),
		llmtest.Text(`{"content":"Intro text.","key_points":["why now"]}`),
		llmtest.Text(`{"content":"Tooling text.","key_points":["copilots"]}`),
		llmtest.Text(`{"content":"Review text.","key_points":["humans in the loop"]}`),
		llmtest.Text(`{"cohesion_score":0.85,"suggested_edits":[{"section_name":"Body","suggested_edit":"Smoother transition"}],"final_version":"The post."}`),
	)

	post, err := newWriter(t, gw).Write(context.Background(), "The impact of AI on software development", 1200, "")
	require.NoError(t, err)

	requests := gw.Requests()
	require.Len(t, requests, 5)

	planPrompt := requests[0].Messages[0].Content
	assert.Contains(t, planPrompt, "Topic: The impact of AI on software development")
	assert.Contains(t, planPrompt, "Target Length: 1200 words")
	assert.Contains(t, planPrompt, "Style: informative")
	assert.Len(t, requests[0].Messages, 1)

	assert.Contains(t, requests[1].Messages[0].Content, "Note: This is the first section.")
	assert.Contains(t, requests[2].Messages[0].Content, "Previous sections:\n=== Introduction ===\nIntro text.")
	third := requests[3].Messages[0].Content
	assert.Contains(t, third, "=== Introduction ===\nIntro text.\n=== Body ===\nTooling text.")
	assert.Contains(t, third, "Section Goal: Review practices")

	review := requests[4].Messages[0].Content
	assert.Contains(t, review, "Target Audience: Working software engineers")
	assert.Contains(t, review, "## Introduction\nIntro text.\n\n## Body\nTooling text.\n\n## Body\nReview text.")

	require.Len(t, post.Sections, 3)
	assert.Equal(t, "Introduction", post.Sections[0].Type)
	assert.Equal(t, "Tooling text.", post.Sections[1].Content.Content)
	assert.Equal(t, "Review text.", post.Sections[2].Content.Content)
	assert.Equal(t, 0.85, post.Review.CohesionScore)
	assert.Equal(t, "The post.", post.Review.FinalVersion)
	assert.Len(t, post.Review.SuggestedEdits, 1)
}

func TestWriteEmptyPlanIsShapeViolation(t *testing.T) {
	gw := llmtest.New(llmtest.Text(`{"topic_analysis":"a","target_audience":"b","sections":[]}`))

	_, err := newWriter(t, gw).Write(context.Background(), "topic", 0, "")
	assert.Equal(t, failure.KindShape, failure.KindOf(err))
	assert.Equal(t, 1, gw.Calls())
}

func TestWriteWorkerFailureSkipsReview(t *testing.T) {
	gw := llmtest.New(
		llmtest.Text(planJSON),
		llmtest.Text(`{"content":"Intro text."}`),
	)

	_, err := newWriter(t, gw).Write(context.Background(), "topic", 0, "")
	assert.Equal(t, failure.KindShape, failure.KindOf(err))
	assert.Equal(t, 2, gw.Calls())
}

func TestWriteRequiresTopic(t *testing.T) {
	gw := llmtest.New()
	_, err := newWriter(t, gw).Write(context.Background(), "  ", 0, "")
	assert.Equal(t, failure.KindInvalidInput, failure.KindOf(err))
	assert.Equal(t, 0, gw.Calls())
}
