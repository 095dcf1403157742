package failure

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOfThroughWrapping(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("calendar chain: %w", Transport("chat.completions", cause))

	assert.Equal(t, KindTransport, KindOf(err))
	assert.True(t, Is(err, KindTransport))
	assert.False(t, Is(err, KindShape))
	assert.ErrorIs(t, err, cause)
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"with op", New(KindShape, "extract", "missing field"), "shape_violation: extract: missing field"},
		{"no op", New(KindInvalidInput, "", "empty"), "invalid_input: empty"},
		{"from cause", Wrap(KindTransport, "complete", errors.New("timeout")), "transport_failure: complete: timeout"},
		{"cycle limit", CycleLimit("agent.run", 3), "cycle_limit_exceeded: agent.run: exceeded maximum of 3 tool cycles"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestDescribe(t *testing.T) {
	kind, msg := Describe(Shape("extract", "not JSON", nil))
	require.Equal(t, KindShape, kind)
	assert.Contains(t, msg, "not JSON")

	kind, msg = Describe(errors.New("odd"))
	assert.Equal(t, KindUnknown, kind)
	assert.Equal(t, "odd", msg)
}
