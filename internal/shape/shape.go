// Package shape generates JSON schemas from Go types and validates model
// output and tool arguments against them.
package shape

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/ashutoshrp06/agentflow/internal/failure"
)

var (
	errNilSchema = errors.New("schema reflection returned nil")
	nameRegexp   = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)
	fenceOpen    = regexp.MustCompile("^```[a-zA-Z]*\n?")
	fenceClose   = regexp.MustCompile("\n?```$")
)

// Shape is a named JSON schema with a compiled validator.
type Shape struct {
	name        string
	description string
	schema      map[string]any
	resolved    *jsonschema.Resolved
	strict      bool
}

// New compiles a raw JSON schema map.
func New(name, description string, schema map[string]any) (*Shape, error) {
	if !nameRegexp.MatchString(name) {
		return nil, fmt.Errorf("invalid shape name %q", name)
	}
	if schema == nil {
		schema = map[string]any{"type": "object", "properties": map[string]any{}}
	}
	resolved, err := compile(schema)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	return &Shape{
		name:        name,
		description: description,
		schema:      schema,
		resolved:    resolved,
	}, nil
}

// For generates a strict shape for T: every object forbids unknown
// properties and lists all of its properties as required. This is the form
// structured-output endpoints accept.
func For[T any](name, description string) (*Shape, error) {
	return generate[T](name, description, true)
}

// ForArgs generates a shape for T that keeps omitempty fields optional.
// Tool argument schemas use it.
func ForArgs[T any](name, description string) (*Shape, error) {
	return generate[T](name, description, false)
}

func generate[T any](name, description string, strict bool) (*Shape, error) {
	schema, err := jsonschema.For[T](&jsonschema.ForOptions{})
	if err != nil {
		return nil, fmt.Errorf("reflect schema %s: %w", name, err)
	}
	if schema == nil {
		return nil, errNilSchema
	}
	data, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	var schemaMap map[string]any
	if err := json.Unmarshal(data, &schemaMap); err != nil {
		return nil, err
	}
	if strict {
		applyStrictMode(schemaMap)
	}
	stripSchemaIDs(schemaMap)
	s, err := New(name, description, schemaMap)
	if err != nil {
		return nil, err
	}
	s.strict = strict
	return s, nil
}

// Name returns the shape name.
func (s *Shape) Name() string { return s.name }

// Description returns the human description of the shape.
func (s *Shape) Description() string { return s.description }

// Strict reports whether the schema was generated in strict mode.
func (s *Shape) Strict() bool { return s.strict }

// Schema returns a shallow copy of the JSON schema.
// Nested maps are shared; callers must not mutate them.
func (s *Shape) Schema() map[string]any {
	return maps.Clone(s.schema)
}

// Validate checks that data is a JSON document conforming to the schema and
// returns the decoded generic value. Failures are shape violations.
func (s *Shape) Validate(data []byte) (any, error) {
	cleaned := Clean(data)
	if len(cleaned) == 0 {
		return nil, failure.Shape("shape."+s.name, "output is empty", nil)
	}

	var v any
	if err := json.Unmarshal(cleaned, &v); err != nil {
		return nil, failure.Shape("shape."+s.name, "output is not valid JSON", err)
	}
	if err := s.resolved.Validate(v); err != nil {
		return nil, failure.Shape("shape."+s.name, err.Error(), err)
	}
	return v, nil
}

// Decode validates data against s and unmarshals it into a T.
func Decode[T any](s *Shape, data []byte) (T, error) {
	var zero T
	if _, err := s.Validate(data); err != nil {
		return zero, err
	}
	var out T
	if err := json.Unmarshal(Clean(data), &out); err != nil {
		return zero, failure.Shape("shape."+s.name, "output does not decode into target type", err)
	}
	return out, nil
}

// Typed binds a shape to the Go type it was generated from.
type Typed[T any] struct {
	*Shape
}

// Of generates a strict typed shape for T.
func Of[T any](name, description string) (Typed[T], error) {
	s, err := For[T](name, description)
	if err != nil {
		return Typed[T]{}, err
	}
	return Typed[T]{Shape: s}, nil
}

// MustOf is like Of but panics on error. Use it for package-level shapes.
func MustOf[T any](name, description string) Typed[T] {
	t, err := Of[T](name, description)
	if err != nil {
		panic(err)
	}
	return t
}

// Parse validates data and decodes it into a T.
func (t Typed[T]) Parse(data []byte) (T, error) {
	return Decode[T](t.Shape, data)
}

// Clean strips surrounding whitespace and a markdown code fence, which some
// models wrap JSON output in.
func Clean(data []byte) []byte {
	raw := strings.TrimSpace(string(data))
	if strings.HasPrefix(raw, "```") {
		raw = fenceOpen.ReplaceAllString(raw, "")
		raw = fenceClose.ReplaceAllString(raw, "")
		raw = strings.Trim(raw, "` \n")
	}
	return bytes.TrimSpace([]byte(raw))
}

// ─── schema helpers ───────────────────────────────────────────────────────────

// walkSchema visits every map node in the schema tree.
func walkSchema(schemaMap map[string]any, visit func(map[string]any)) {
	if schemaMap == nil {
		return
	}
	visit(schemaMap)
	for _, val := range schemaMap {
		switch v := val.(type) {
		case map[string]any:
			walkSchema(v, visit)
		case []any:
			for _, item := range v {
				if m, ok := item.(map[string]any); ok {
					walkSchema(m, visit)
				}
			}
		}
	}
}

func applyStrictMode(schemaMap map[string]any) {
	walkSchema(schemaMap, func(n map[string]any) {
		props, ok := n["properties"].(map[string]any)
		if !ok {
			return
		}
		n["additionalProperties"] = false
		keys := slices.Sorted(maps.Keys(props))
		if len(keys) == 0 {
			return
		}
		required := make([]any, len(keys))
		for i, k := range keys {
			required[i] = k
		}
		n["required"] = required
	})
}

func stripSchemaIDs(schemaMap map[string]any) {
	walkSchema(schemaMap, func(n map[string]any) {
		delete(n, "id")
		delete(n, "$id")
	})
}

func compile(schemaMap map[string]any) (*jsonschema.Resolved, error) {
	data, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, err
	}
	var s jsonschema.Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return s.Resolve(nil)
}
