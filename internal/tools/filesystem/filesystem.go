// Package filesystem provides the file tools used by the coding assistant.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ashutoshrp06/agentflow/internal/tools"
)

type ReadArgs struct {
	Path string `json:"path" jsonschema:"The path of the file to read"`
}

type ListArgs struct {
	Path string `json:"path,omitempty" jsonschema:"The path of the directory to list (default is the current directory '.')"`
}

type EditArgs struct {
	Path    string `json:"path" jsonschema:"The path of the file to edit"`
	OldText string `json:"old_text,omitempty" jsonschema:"The text to search for and replace (a new file is created when empty)"`
	NewText string `json:"new_text" jsonschema:"The text to replace old_text with"`
}

type ReadResult struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

type ListResult struct {
	Path    string   `json:"path"`
	Entries []string `json:"entries"`
	Message string   `json:"message,omitempty"`
}

type EditResult struct {
	Path    string `json:"path"`
	Created bool   `json:"created"`
	Message string `json:"message"`
}

// Files operates on paths inside a root directory. Paths that resolve
// outside the root are rejected.
type Files struct {
	root string
}

// New creates file tools rooted at root. An empty root means the working
// directory.
func New(root string) *Files {
	if root == "" {
		root = "."
	}
	return &Files{root: root}
}

// Tools returns read_file, list_files and edit_file.
func (f *Files) Tools() []tools.Tool {
	return []tools.Tool{
		tools.Must[ReadArgs]("read_file",
			"Read the content of the file at the specified path",
			f.Read),
		tools.Must[ListArgs]("list_files",
			"List all the files and directories in the specified path",
			f.List),
		tools.Must[EditArgs]("edit_file",
			"Edit the content of the file at the specified path by replacing old_text with new_text. Creates the file if it doesn't exist",
			f.Edit),
	}
}

func (f *Files) resolve(path string) (string, error) {
	root, err := filepath.Abs(f.root)
	if err != nil {
		return "", fmt.Errorf("resolve workspace: %w", err)
	}
	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(root, full)
	}
	full = filepath.Clean(full)

	rel, err := filepath.Rel(root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path is outside the workspace: %s", path)
	}
	return full, nil
}

// Read returns the content of a file.
func (f *Files) Read(_ context.Context, args ReadArgs) (any, error) {
	full, err := f.resolve(args.Path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("file not found: %s", args.Path)
		}
		return nil, fmt.Errorf("error reading file: %w", err)
	}
	return ReadResult{Path: args.Path, Content: string(data)}, nil
}

// List returns the sorted entries of a directory, annotated [DIR] or [FILE].
func (f *Files) List(_ context.Context, args ListArgs) (any, error) {
	path := args.Path
	if path == "" {
		path = "."
	}

	full, err := f.resolve(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(full)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("directory does not exist or is not a directory: %s", path)
	}

	dirEntries, err := os.ReadDir(full)
	if err != nil {
		return nil, fmt.Errorf("error listing files: %w", err)
	}

	entries := make([]string, 0, len(dirEntries))
	for _, e := range dirEntries {
		if e.IsDir() {
			entries = append(entries, fmt.Sprintf("[DIR] %s/", e.Name()))
		} else {
			entries = append(entries, fmt.Sprintf("[FILE] %s", e.Name()))
		}
	}
	sort.Strings(entries)

	result := ListResult{Path: path, Entries: entries}
	if len(entries) == 0 {
		result.Message = "Empty directory: " + path
	}
	return result, nil
}

// Edit replaces every occurrence of OldText with NewText. When OldText
// is empty or the file does not exist the file is created with NewText.
// If OldText is not found the file is left unchanged.
func (f *Files) Edit(_ context.Context, args EditArgs) (any, error) {
	full, err := f.resolve(args.Path)
	if err != nil {
		return nil, err
	}

	info, statErr := os.Stat(full)
	exists := statErr == nil
	if exists && info.IsDir() {
		return nil, fmt.Errorf("path is a directory: %s", args.Path)
	}

	if !exists || args.OldText == "" {
		if dir := filepath.Dir(full); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create parent directories: %w", err)
			}
		}
		if err := os.WriteFile(full, []byte(args.NewText), 0o644); err != nil {
			return nil, fmt.Errorf("error creating file: %w", err)
		}
		return EditResult{Path: args.Path, Created: true, Message: "Successfully created: " + args.Path}, nil
	}

	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}

	content := string(data)
	if !strings.Contains(content, args.OldText) {
		return nil, fmt.Errorf("text not found in %s: %q", args.Path, args.OldText)
	}

	content = strings.ReplaceAll(content, args.OldText, args.NewText)
	if err := os.WriteFile(full, []byte(content), info.Mode().Perm()); err != nil {
		return nil, fmt.Errorf("error writing file: %w", err)
	}
	return EditResult{Path: args.Path, Message: "Text updated successfully: " + args.Path}, nil
}
