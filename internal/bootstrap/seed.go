// Package bootstrap seeds a fresh agent workspace with the markdown
// documents the system prompt is assembled from.
package bootstrap

import (
	"embed"
	"log/slog"
	"os"
	"path/filepath"
)

//go:embed templates/*.md
var templateFS embed.FS

// Workspace document names.
const (
	IdentityFile  = "IDENTITY.md"
	AgentsFile    = "AGENTS.md"
	ToolsFile     = "TOOLS.md"
	UserFile      = "USER.md"
	SoulFile      = "SOUL.md"
	HeartbeatFile = "HEARTBEAT.md"
)

// templateFiles lists the templates to seed, in injection order.
var templateFiles = []string{
	IdentityFile,
	AgentsFile,
	ToolsFile,
	UserFile,
	SoulFile,
	HeartbeatFile,
}

// ReadTemplate returns the content of an embedded template file.
func ReadTemplate(name string) (string, error) {
	content, err := templateFS.ReadFile(filepath.Join("templates", name))
	if err != nil {
		return "", err
	}
	return string(content), nil
}

// EnsureWorkspaceFiles seeds the template files into a workspace
// directory. Existing files are never overwritten. Returns the names of
// the files that were created.
func EnsureWorkspaceFiles(workspaceDir string) ([]string, error) {
	if err := os.MkdirAll(workspaceDir, 0o755); err != nil {
		return nil, err
	}

	var created []string
	for _, name := range templateFiles {
		ok, err := seedTemplate(workspaceDir, name)
		if err != nil {
			slog.Warn("bootstrap: failed to seed template", "file", name, "error", err)
			continue
		}
		if ok {
			created = append(created, name)
		}
	}
	return created, nil
}

// seedTemplate writes one template if it doesn't exist yet. O_EXCL keeps
// a concurrent second process from clobbering the first writer.
func seedTemplate(workspaceDir, name string) (bool, error) {
	dstPath := filepath.Join(workspaceDir, name)

	f, err := os.OpenFile(dstPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return false, nil
		}
		return false, err
	}
	defer f.Close()

	content, err := templateFS.ReadFile(filepath.Join("templates", name))
	if err != nil {
		os.Remove(dstPath)
		return false, err
	}
	if _, err := f.Write(content); err != nil {
		return false, err
	}
	return true, nil
}
