package skills

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeSkill(t *testing.T, base, name, content string) {
	t.Helper()
	dir := filepath.Join(base, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "SKILL.md"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestListAndOverride(t *testing.T) {
	ws := t.TempDir()
	builtin := t.TempDir()

	writeSkill(t, builtin, "notes", "builtin notes body")
	writeSkill(t, builtin, "search", "builtin search body")
	writeSkill(t, ws, "notes", "workspace notes body")

	l := NewLoader(ws, builtin)
	found := l.List(false)
	if len(found) != 2 {
		t.Fatalf("got %d skills", len(found))
	}

	byName := map[string]Skill{}
	for _, s := range found {
		byName[s.Name] = s
	}
	if byName["notes"].Source != "workspace" {
		t.Fatalf("workspace skill not preferred: %+v", byName["notes"])
	}
	if byName["search"].Source != "builtin" {
		t.Fatalf("builtin skill missing: %+v", byName["search"])
	}
	if got := l.Load("notes"); got != "workspace notes body" {
		t.Fatalf("Load returned %q", got)
	}
}

func TestFrontmatterAndMeta(t *testing.T) {
	ws := t.TempDir()
	writeSkill(t, ws, "release", `---
description: "Cut a release"
metadata: {"clawai": {"always": true, "requires": {"bins": ["definitely-not-a-binary-xyz"], "env": ["CLAWAI_TEST_MISSING_ENV"]}}}
---

# Release

Steps here.`)

	l := NewLoader(ws, "")

	if desc := l.DescriptionOf("release"); desc != "Cut a release" {
		t.Fatalf("description %q", desc)
	}

	meta := l.MetaOf("release")
	if !meta.Always {
		t.Fatal("always flag not parsed")
	}
	if len(meta.Requires.Bins) != 1 || meta.Requires.Bins[0] != "definitely-not-a-binary-xyz" {
		t.Fatalf("bins %v", meta.Requires.Bins)
	}

	// Unmet requirements exclude the skill from the available set.
	if got := l.List(true); len(got) != 0 {
		t.Fatalf("unavailable skill listed: %+v", got)
	}
	if got := l.List(false); len(got) != 1 {
		t.Fatalf("skill missing from full list: %+v", got)
	}
}

func TestAlwaysOn(t *testing.T) {
	ws := t.TempDir()
	writeSkill(t, ws, "pinned", `---
metadata: {"clawai": {"always": true}}
---
pinned body`)
	writeSkill(t, ws, "optional", "optional body")

	l := NewLoader(ws, "")
	always := l.AlwaysOn()
	if len(always) != 1 || always[0] != "pinned" {
		t.Fatalf("always-on %v", always)
	}
}

func TestLoadActiveStripsFrontmatter(t *testing.T) {
	ws := t.TempDir()
	writeSkill(t, ws, "alpha", `---
description: a
---
alpha body`)
	writeSkill(t, ws, "beta", "beta body")

	l := NewLoader(ws, "")
	out := l.LoadActive([]string{"alpha", "beta", "missing"})

	if !strings.Contains(out, "## Skill: alpha\n\nalpha body") {
		t.Fatalf("alpha section wrong:\n%s", out)
	}
	if !strings.Contains(out, "## Skill: beta\n\nbeta body") {
		t.Fatalf("beta section wrong:\n%s", out)
	}
	if strings.Contains(out, "description: a") {
		t.Fatal("frontmatter leaked into prompt")
	}
	if strings.Count(out, "\n\n---\n\n") != 1 {
		t.Fatalf("section separator wrong:\n%s", out)
	}
}

func TestBuildIndex(t *testing.T) {
	ws := t.TempDir()
	writeSkill(t, ws, "gated", `---
description: needs a <binary>
metadata: {"clawai": {"requires": {"bins": ["definitely-not-a-binary-xyz"]}}}
---
body`)

	l := NewLoader(ws, "")
	index := l.BuildIndex()

	for _, want := range []string{
		`<skill available="false">`,
		"<name>gated</name>",
		"<description>needs a &lt;binary&gt;</description>",
		"<requires>bin:definitely-not-a-binary-xyz</requires>",
	} {
		if !strings.Contains(index, want) {
			t.Fatalf("index missing %q:\n%s", want, index)
		}
	}
}

func TestBuildIndexEmpty(t *testing.T) {
	l := NewLoader(t.TempDir(), "")
	if index := l.BuildIndex(); index != "" {
		t.Fatalf("expected empty index, got %q", index)
	}
}

func TestWatcherInvalidatesCache(t *testing.T) {
	ws := t.TempDir()
	skillsDir := filepath.Join(ws, "skills")
	writeSkill(t, skillsDir, "first", "first body")

	l := NewLoader(skillsDir, "")
	w := NewWatcher(skillsDir, l, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	before := l.BuildIndex()
	if !strings.Contains(before, "<name>first</name>") {
		t.Fatalf("index missing first skill:\n%s", before)
	}

	writeSkill(t, skillsDir, "second", "second body")

	deadline := time.Now().Add(5 * time.Second)
	for {
		if strings.Contains(l.BuildIndex(), "<name>second</name>") {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("index never refreshed after change")
		}
		time.Sleep(50 * time.Millisecond)
	}
}
