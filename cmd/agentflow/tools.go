package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ashutoshrp06/agentflow/internal/assistant"
	"github.com/ashutoshrp06/agentflow/internal/failure"
	"github.com/ashutoshrp06/agentflow/internal/types"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List available tools",
	Long: `List the tools each assistant can call.

The model decides when to call them; they are listed here so you know what
an assistant is able to do.

Examples:
  agentflow tools           # List all tools
  agentflow tools --verbose # Show parameters`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return failure.Wrap(failure.KindConfiguration, "config.load", err)
		}
		e := newEnv(cfg, zap.NewNop(), nil, os.Stdout)
		return e.tools()
	},
}

func (e *env) tools() error {
	sets, err := assistant.Toolsets(e.deps)
	if err != nil {
		return err
	}
	return e.emit(sets, func() {
		e.heading("Available Tools")
		total := 0
		for _, set := range sets {
			fmt.Fprintf(e.out, "  %s\n", e.styles.Passed.Render(set.Assistant))
			for _, d := range set.Tools {
				fmt.Fprintf(e.out, "    %s\n", e.styles.ToolName.Render(d.Name))
				fmt.Fprintf(e.out, "      %s\n", e.styles.StatusText.Render(d.Description))
				if verbose {
					e.params(d)
				}
				total++
			}
			fmt.Fprintln(e.out)
		}
		fmt.Fprintln(e.out, e.styles.StatusText.Render(fmt.Sprintf("  Total: %d tools available", total)))
		if !verbose {
			fmt.Fprintln(e.out, e.styles.StatusText.Render("  Use --verbose for parameter details"))
		}
	})
}

// params prints the top-level properties of the tool's input schema.
func (e *env) params(d types.ToolDeclaration) {
	props, _ := d.InputSchema["properties"].(map[string]any)
	if len(props) == 0 {
		return
	}
	required := map[string]bool{}
	if list, ok := d.InputSchema["required"].([]any); ok {
		for _, r := range list {
			if s, ok := r.(string); ok {
				required[s] = true
			}
		}
	}

	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(e.out, "      Parameters:")
	for _, name := range names {
		req := ""
		if required[name] {
			req = " (required)"
		}
		fmt.Fprintf(e.out, "        %s%s\n", e.styles.Label.Render(name), req)
		if p, ok := props[name].(map[string]any); ok {
			if desc, _ := p["description"].(string); desc != "" {
				fmt.Fprintf(e.out, "          %s\n", e.styles.StatusText.Render(desc))
			}
		}
	}
}
