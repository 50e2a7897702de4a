package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// resolvePath expands ~ and returns an absolute path.
func resolvePath(path string) string {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

// --- read_file ---

// ReadFileTool reads the contents of a UTF-8 text file.
type ReadFileTool struct{}

func NewReadFileTool() *ReadFileTool { return &ReadFileTool{} }

func (t *ReadFileTool) Name() string { return "read_file" }

func (t *ReadFileTool) Description() string {
	return "Read the contents of a file at the given path."
}

func (t *ReadFileTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Path of the file to read",
			},
		},
		"required": []interface{}{"path"},
	}
}

func (t *ReadFileTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	path := stringArg(args, "path")
	resolved := resolvePath(path)

	info, err := os.Stat(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return Errorf("Error: file not found: %s", path)
		}
		if os.IsPermission(err) {
			return Errorf("Error: permission denied: %s", path)
		}
		return Errorf("Error: failed to read file: %v", err)
	}
	if info.IsDir() {
		return Errorf("Error: not a file: %s", path)
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		if os.IsPermission(err) {
			return Errorf("Error: permission denied: %s", path)
		}
		return Errorf("Error: failed to read file: %v", err)
	}
	return NewResult(string(data))
}

// --- write_file ---

// WriteFileTool writes text content to a file, creating parent directories.
type WriteFileTool struct{}

func NewWriteFileTool() *WriteFileTool { return &WriteFileTool{} }

func (t *WriteFileTool) Name() string { return "write_file" }

func (t *WriteFileTool) Description() string {
	return "Write content to a file at the given path. Creates parent directories if they do not exist."
}

func (t *WriteFileTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Path of the file to write",
			},
			"content": map[string]interface{}{
				"type":        "string",
				"description": "Text content to write into the file",
			},
		},
		"required": []interface{}{"path", "content"},
	}
}

func (t *WriteFileTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	path := stringArg(args, "path")
	content := stringArg(args, "content")
	resolved := resolvePath(path)

	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return Errorf("Error: failed to write file: %v", err)
	}
	if err := os.WriteFile(resolved, []byte(content), 0o644); err != nil {
		if os.IsPermission(err) {
			return Errorf("Error: permission denied: %s", path)
		}
		return Errorf("Error: failed to write file: %v", err)
	}
	return NewResult(fmt.Sprintf("Wrote %d characters to %s", len(content), resolved))
}

// --- edit_file ---

// EditFileTool replaces a unique text segment in a file.
type EditFileTool struct{}

func NewEditFileTool() *EditFileTool { return &EditFileTool{} }

func (t *EditFileTool) Name() string { return "edit_file" }

func (t *EditFileTool) Description() string {
	return "Edit a file by replacing old_text with new_text. The old_text must appear exactly once."
}

func (t *EditFileTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Path of the file to edit",
			},
			"old_text": map[string]interface{}{
				"type":        "string",
				"description": "Exact text to be replaced",
			},
			"new_text": map[string]interface{}{
				"type":        "string",
				"description": "Replacement text",
			},
		},
		"required": []interface{}{"path", "old_text", "new_text"},
	}
}

func (t *EditFileTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	path := stringArg(args, "path")
	oldText := stringArg(args, "old_text")
	newText := stringArg(args, "new_text")
	resolved := resolvePath(path)

	info, err := os.Stat(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return Errorf("Error: file not found: %s", path)
		}
		return Errorf("Error: failed to edit file: %v", err)
	}
	if info.IsDir() {
		return Errorf("Error: not a file: %s", path)
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return Errorf("Error: failed to edit file: %v", err)
	}
	content := string(data)

	occurrences := strings.Count(content, oldText)
	if occurrences == 0 {
		return ErrorResult("Error: old_text not found in file")
	}
	if occurrences > 1 {
		return Errorf("Warning: old_text appears %d times. Please provide a more specific match.", occurrences)
	}

	updated := strings.Replace(content, oldText, newText, 1)
	if err := os.WriteFile(resolved, []byte(updated), info.Mode().Perm()); err != nil {
		return Errorf("Error: failed to edit file: %v", err)
	}
	return NewResult(fmt.Sprintf("Edited file successfully: %s", resolved))
}

// --- list_dir ---

// ListDirTool enumerates a directory, sorted, directories before the suffix.
type ListDirTool struct{}

func NewListDirTool() *ListDirTool { return &ListDirTool{} }

func (t *ListDirTool) Name() string { return "list_dir" }

func (t *ListDirTool) Description() string {
	return "List the contents of a directory."
}

func (t *ListDirTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Directory path to list",
			},
		},
		"required": []interface{}{"path"},
	}
}

func (t *ListDirTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	path := stringArg(args, "path")
	resolved := resolvePath(path)

	info, err := os.Stat(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return Errorf("Error: directory not found: %s", path)
		}
		if os.IsPermission(err) {
			return Errorf("Error: permission denied: %s", path)
		}
		return Errorf("Error: failed to list directory: %v", err)
	}
	if !info.IsDir() {
		return Errorf("Error: not a directory: %s", path)
	}

	entries, err := os.ReadDir(resolved)
	if err != nil {
		return Errorf("Error: failed to list directory: %v", err)
	}
	if len(entries) == 0 {
		return NewResult(fmt.Sprintf("Directory is empty: %s", resolved))
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			lines = append(lines, e.Name()+"/")
		} else {
			lines = append(lines, e.Name())
		}
	}
	return NewResult(strings.Join(lines, "\n"))
}
