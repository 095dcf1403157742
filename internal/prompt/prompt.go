// Package prompt holds the prompt templates used by the assistants and
// workflows. Templates ship embedded and can be overridden from a YAML file.
package prompt

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Template names.
const (
	Coder      = "coder"
	Researcher = "researcher"
	Weather    = "weather"
	Knowledge  = "knowledge"

	EventExtraction   = "event_extraction"
	EventDetails      = "event_details"
	EventConfirmation = "event_confirmation"
	RouteRequest      = "route_request"
	NewEvent          = "new_event"
	ModifyEvent       = "modify_event"
	ValidateCalendar  = "validate_calendar"
	SecurityCheck     = "security_check"

	BlogPlan    = "blog_plan"
	BlogSection = "blog_section"
	BlogReview  = "blog_review"

	EssayDraft   = "essay_draft"
	EssayReflect = "essay_reflect"
	EssayRevise  = "essay_revise"
)

//go:embed prompts.yaml
var embedded []byte

var ErrUnknownPrompt = errors.New("unknown prompt")

var placeholder = regexp.MustCompile(`\{\{([A-Z0-9_]+)\}\}`)

// Vars maps placeholder names to their values.
type Vars map[string]string

// Catalogue is a read-only set of named templates.
type Catalogue struct {
	templates map[string]string
}

// Default returns the embedded catalogue.
func Default() *Catalogue {
	c, err := parse(embedded)
	if err != nil {
		panic(fmt.Sprintf("embedded prompts: %v", err))
	}
	return c
}

// Load returns the embedded catalogue with the entries of the YAML file at
// path layered on top. An empty path returns the defaults.
func Load(path string) (*Catalogue, error) {
	c := Default()
	if path == "" {
		return c, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts: %w", err)
	}
	override, err := parse(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompts %s: %w", path, err)
	}
	for name, tmpl := range override.templates {
		c.templates[name] = tmpl
	}
	return c, nil
}

func parse(raw []byte) (*Catalogue, error) {
	templates := make(map[string]string)
	if err := yaml.Unmarshal(raw, &templates); err != nil {
		return nil, err
	}
	for name, tmpl := range templates {
		templates[name] = strings.TrimSpace(tmpl)
	}
	return &Catalogue{templates: templates}, nil
}

// Render fills the named template. Every placeholder must have a value.
func (c *Catalogue) Render(name string, vars Vars) (string, error) {
	tmpl, ok := c.templates[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownPrompt, name)
	}

	var missing []string
	out := placeholder.ReplaceAllStringFunc(tmpl, func(m string) string {
		key := m[2 : len(m)-2]
		v, ok := vars[key]
		if !ok {
			missing = append(missing, key)
			return m
		}
		return v
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("prompt %s: no value for %s", name, strings.Join(missing, ", "))
	}
	return out, nil
}

// Names returns the template names in sorted order.
func (c *Catalogue) Names() []string {
	names := make([]string, 0, len(c.templates))
	for n := range c.templates {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
