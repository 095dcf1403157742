// Package knowledge provides the search_kb tool over a JSON knowledge base.
package knowledge

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ashutoshrp06/agentflow/internal/tools"
)

//go:embed kb.json
var defaultKB []byte

type Args struct {
	Question string `json:"question" jsonschema:"The user's question"`
}

// Base is a knowledge base loaded from a JSON file. The whole document is
// handed to the model; matching the question is left to it.
type Base struct {
	path string
}

// New creates a knowledge base backed by path. An empty path uses the
// bundled store FAQ.
func New(path string) *Base {
	return &Base{path: path}
}

// Tool returns search_kb.
func (b *Base) Tool() tools.Tool {
	return tools.Must[Args]("search_kb",
		"Get the answer to the user's question from the knowledge base.",
		func(_ context.Context, _ Args) (any, error) {
			return b.Load()
		})
}

// Load reads and decodes the knowledge base. The file is read on every call
// so edits are picked up without a restart.
func (b *Base) Load() (any, error) {
	data := defaultKB
	if b.path != "" {
		raw, err := os.ReadFile(b.path)
		if err != nil {
			return nil, fmt.Errorf("failed to read knowledge base: %w", err)
		}
		data = raw
	}

	var kb any
	if err := json.Unmarshal(data, &kb); err != nil {
		return nil, fmt.Errorf("failed to parse knowledge base: %w", err)
	}
	return kb, nil
}
