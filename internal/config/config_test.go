package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Agents.Defaults.MaxToolIterations != 20 {
		t.Errorf("MaxToolIterations = %d, want 20", cfg.Agents.Defaults.MaxToolIterations)
	}
	if cfg.Tools.Exec.Timeout != 60 {
		t.Errorf("Exec.Timeout = %d, want 60", cfg.Tools.Exec.Timeout)
	}
}

func TestLoadCamelCaseKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{
		// json5 comments are allowed
		"agents": {"defaults": {"workspace": "/tmp/ws", "model": "gpt-4o", "maxToolIterations": 5}},
		"tools": {"restrictToWorkspace": true, "exec": {"timeout": 10}},
		"channels": {"telegram": {"enabled": true, "allowFrom": ["42"], "token": "abc"}}
	}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Agents.Defaults.Model != "gpt-4o" {
		t.Errorf("Model = %q", cfg.Agents.Defaults.Model)
	}
	if cfg.Agents.Defaults.MaxToolIterations != 5 {
		t.Errorf("MaxToolIterations = %d, want 5", cfg.Agents.Defaults.MaxToolIterations)
	}
	if !cfg.Tools.RestrictToWorkspace {
		t.Error("RestrictToWorkspace not parsed")
	}
	if cfg.Tools.Exec.Timeout != 10 {
		t.Errorf("Exec.Timeout = %d, want 10", cfg.Tools.Exec.Timeout)
	}
	if len(cfg.Channels.Telegram.AllowFrom) != 1 || cfg.Channels.Telegram.AllowFrom[0] != "42" {
		t.Errorf("AllowFrom = %v", cfg.Channels.Telegram.AllowFrom)
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("CLAWAI_MODEL", "claude-opus-4-5")
	t.Setenv("CLAWAI_TELEGRAM_TOKEN", "tok")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Agents.Defaults.Model != "claude-opus-4-5" {
		t.Errorf("Model = %q", cfg.Agents.Defaults.Model)
	}
	if !cfg.Channels.Telegram.Enabled {
		t.Error("telegram channel should auto-enable when token set via env")
	}
}

func TestExpandHome(t *testing.T) {
	home, _ := os.UserHomeDir()
	if got := ExpandHome("~/x"); got != filepath.Join(home, "x") {
		t.Errorf("ExpandHome(~/x) = %q", got)
	}
	if got := ExpandHome("/abs"); got != "/abs" {
		t.Errorf("ExpandHome(/abs) = %q", got)
	}
}
