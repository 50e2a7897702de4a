package config

import (
	"os"
	"path/filepath"
)

// Paths is the runtime directory layout, constructed once at process start
// and threaded explicitly through the components that need it.
type Paths struct {
	Root      string // ~/.clawai
	Sessions  string // <root>/sessions
	Workspace string // agent workspace (from config)
	Memory    string // <workspace>/memory
	Skills    string // <workspace>/skills
	Cron      string // <root>/cron
}

// NewPaths builds the path layout from the configured workspace.
func NewPaths(cfg *Config) Paths {
	home, _ := os.UserHomeDir()
	root := filepath.Join(home, ".clawai")
	workspace := ExpandHome(cfg.Agents.Defaults.Workspace)
	if !filepath.IsAbs(workspace) {
		workspace, _ = filepath.Abs(workspace)
	}
	return Paths{
		Root:      root,
		Sessions:  filepath.Join(root, "sessions"),
		Workspace: workspace,
		Memory:    filepath.Join(workspace, "memory"),
		Skills:    filepath.Join(workspace, "skills"),
		Cron:      filepath.Join(root, "cron"),
	}
}

// Ensure creates all runtime directories.
func (p Paths) Ensure() error {
	for _, dir := range []string{p.Root, p.Sessions, p.Workspace, p.Memory, p.Skills, p.Cron} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

// CronStorePath returns the scheduler's persistent store file.
func (p Paths) CronStorePath() string {
	return filepath.Join(p.Cron, "jobs.json")
}

// HeartbeatFile returns the workspace heartbeat prompt file.
func (p Paths) HeartbeatFile() string {
	return filepath.Join(p.Workspace, "HEARTBEAT.md")
}
