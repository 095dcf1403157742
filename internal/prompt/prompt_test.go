package prompt

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultHasEveryTemplate(t *testing.T) {
	c := Default()
	for _, name := range []string{
		Coder, Researcher, Weather, Knowledge,
		EventExtraction, EventDetails, EventConfirmation,
		RouteRequest, NewEvent, ModifyEvent, ValidateCalendar, SecurityCheck,
		BlogPlan, BlogSection, BlogReview,
		EssayDraft, EssayReflect, EssayRevise,
	} {
		assert.Contains(t, c.Names(), name)
	}
}

func TestRender(t *testing.T) {
	c := Default()

	got, err := c.Render(EventConfirmation, Vars{"SIGNER": "Koochi"})
	require.NoError(t, err)
	assert.Contains(t, got, "Sign off\nwith name; Koochi")

	got, err = c.Render(RouteRequest, nil)
	require.NoError(t, err)
	assert.NotContains(t, got, "{{")
}

func TestRenderMissingValue(t *testing.T) {
	_, err := Default().Render(EssayRevise, Vars{"DRAFT": "d"})
	assert.ErrorContains(t, err, "no value for REFLECTION")
}

func TestRenderUnknown(t *testing.T) {
	_, err := Default().Render("nope", nil)
	assert.True(t, errors.Is(err, ErrUnknownPrompt))
}

func TestLoadOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("weather: |\n  Report in Kelvin.\n"), 0o644))

	c, err := Load(path)
	require.NoError(t, err)

	got, err := c.Render(Weather, nil)
	require.NoError(t, err)
	assert.Equal(t, "Report in Kelvin.", got)

	got, err = c.Render(Knowledge, nil)
	require.NoError(t, err)
	assert.Contains(t, got, "e-commerce store")
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read prompts")

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- a\n- b\n"), 0o644))
	_, err = Load(path)
	assert.ErrorContains(t, err, "failed to parse prompts")
}
