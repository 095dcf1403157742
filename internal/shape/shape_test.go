package shape

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashutoshrp06/agentflow/internal/failure"
)

type eventInfo struct {
	Description string  `json:"description" jsonschema:"Raw description of the event"`
	IsEvent     bool    `json:"is_calendar_event"`
	Confidence  float64 `json:"confidence_score"`
	Minutes     int     `json:"duration"`
	Link        *string `json:"calendar_link"`
}

type searchArgs struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results,omitempty"`
}

func TestOfGeneratesStrictSchema(t *testing.T) {
	s, err := Of[eventInfo]("event_info", "event")
	require.NoError(t, err)

	schema := s.Schema()
	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, false, schema["additionalProperties"])
	assert.ElementsMatch(t,
		[]any{"calendar_link", "confidence_score", "description", "duration", "is_calendar_event"},
		schema["required"])

	props := schema["properties"].(map[string]any)
	desc := props["description"].(map[string]any)
	assert.Equal(t, "Raw description of the event", desc["description"])
}

func TestForArgsKeepsOptionalFields(t *testing.T) {
	s, err := ForArgs[searchArgs]("search", "")
	require.NoError(t, err)

	assert.Equal(t, []any{"query"}, s.Schema()["required"])

	_, err = s.Validate([]byte(`{"query":"agents"}`))
	assert.NoError(t, err)

	_, err = s.Validate([]byte(`{"max_results":3}`))
	assert.True(t, failure.Is(err, failure.KindShape))
}

func TestParse(t *testing.T) {
	s := MustOf[eventInfo]("event_info", "")

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid", `{"description":"standup","is_calendar_event":true,"confidence_score":0.9,"duration":15,"calendar_link":null}`, false},
		{"fenced", "```json\n{\"description\":\"x\",\"is_calendar_event\":false,\"confidence_score\":0.1,\"duration\":0,\"calendar_link\":\"calendar://x\"}\n```", false},
		{"integer for number", `{"description":"x","is_calendar_event":true,"confidence_score":1,"duration":30,"calendar_link":null}`, false},
		{"fractional integer", `{"description":"x","is_calendar_event":true,"confidence_score":1,"duration":30.5,"calendar_link":null}`, true},
		{"missing field", `{"description":"x","is_calendar_event":true,"duration":1,"calendar_link":null}`, true},
		{"wrong type", `{"description":"x","is_calendar_event":"yes","confidence_score":0.5,"duration":1,"calendar_link":null}`, true},
		{"unknown field", `{"description":"x","is_calendar_event":true,"confidence_score":0.5,"duration":1,"calendar_link":null,"extra":1}`, true},
		{"not json", `Sure! Here is the event.`, true},
		{"empty", "  ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Parse([]byte(tt.input))
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, failure.KindShape, failure.KindOf(err))
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestParseDoesNotClampRanges(t *testing.T) {
	s := MustOf[eventInfo]("event_info", "")
	got, err := s.Parse([]byte(`{"description":"x","is_calendar_event":true,"confidence_score":7.5,"duration":-3,"calendar_link":null}`))
	require.NoError(t, err)
	assert.Equal(t, 7.5, got.Confidence)
	assert.Equal(t, -3, got.Minutes)
}

func TestParseIsIdempotent(t *testing.T) {
	s := MustOf[eventInfo]("event_info", "")
	input := []byte(`{"description":"review","is_calendar_event":true,"confidence_score":0.8,"duration":60,"calendar_link":"calendar://new?event=review"}`)

	first, err := s.Parse(input)
	require.NoError(t, err)
	second, err := s.Parse(input)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	require.NotNil(t, first.Link)
	assert.Equal(t, "calendar://new?event=review", *first.Link)
}

func TestNewRejectsBadName(t *testing.T) {
	_, err := New("has space", "", nil)
	assert.Error(t, err)
}

func TestClean(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"  {\"a\":1}\n", `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}```", `{"a":1}`},
	}
	for _, tt := range tests {
		if got := string(Clean([]byte(tt.in))); got != tt.want {
			t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
