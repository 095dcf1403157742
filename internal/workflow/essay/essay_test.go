package essay

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashutoshrp06/agentflow/internal/extract"
	"github.com/ashutoshrp06/agentflow/internal/failure"
	"github.com/ashutoshrp06/agentflow/internal/llm/llmtest"
	"github.com/ashutoshrp06/agentflow/internal/types"
)

func TestWriteFeedsEachStageForward(t *testing.T) {
	gw := llmtest.New(
		llmtest.Text("DRAFT BODY"),
		llmtest.Text("NEEDS EXAMPLES"),
		llmtest.Text("FINAL ESSAY"),
	)
	w, err := New(Config{Steps: extract.Config{Gateway: gw}})
	require.NoError(t, err)

	e, err := w.Write(context.Background(), "Should social media platforms be regulated by the government?")
	require.NoError(t, err)
	assert.Equal(t, "DRAFT BODY", e.Draft)
	assert.Equal(t, "NEEDS EXAMPLES", e.Reflection)
	assert.Equal(t, "FINAL ESSAY", e.Revision)

	requests := gw.Requests()
	require.Len(t, requests, 3)
	for _, r := range requests {
		require.Len(t, r.Messages, 1)
		assert.Equal(t, types.RoleUser, r.Messages[0].Role)
		assert.Nil(t, r.Shape)
	}
	assert.Contains(t, requests[0].Messages[0].Content, "regulated by the government?")
	assert.Contains(t, requests[1].Messages[0].Content, "Draft:\nDRAFT BODY")
	assert.Contains(t, requests[2].Messages[0].Content, "Draft:\nDRAFT BODY")
	assert.Contains(t, requests[2].Messages[0].Content, "Reflection:\nNEEDS EXAMPLES")
}

func TestWriteStopsOnFailure(t *testing.T) {
	gw := llmtest.New(
		llmtest.Text("DRAFT"),
		llmtest.Fail(failure.Transport("llm", errors.New("timeout"))),
	)
	w, err := New(Config{Steps: extract.Config{Gateway: gw}})
	require.NoError(t, err)

	_, err = w.Write(context.Background(), "topic")
	assert.Equal(t, failure.KindTransport, failure.KindOf(err))
	assert.Equal(t, 2, gw.Calls())

	_, err = w.Write(context.Background(), "")
	assert.Equal(t, failure.KindInvalidInput, failure.KindOf(err))
}
