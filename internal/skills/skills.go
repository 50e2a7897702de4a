// Package skills discovers SKILL.md documents that teach the agent
// specific capabilities and renders them for the system prompt.
//
// A skill is a directory containing SKILL.md with optional YAML-ish
// frontmatter. The frontmatter may carry a metadata JSON object:
//
//	metadata: {"clawai": {"always": true, "requires": {"bins": ["git"], "env": ["API_KEY"]}}}
//
// A skill is available iff every listed binary resolves via PATH and
// every listed env var is set.
package skills

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
)

const skillFilename = "SKILL.md"

// Skill is one discovered skill document.
type Skill struct {
	Name   string
	Path   string
	Source string // "workspace" or "builtin"
}

// Meta is the parsed clawai metadata block of a skill.
type Meta struct {
	Always   bool `json:"always"`
	Requires struct {
		Bins []string `json:"bins"`
		Env  []string `json:"env"`
	} `json:"requires"`
}

// Loader discovers skills on the filesystem. Workspace skills override
// built-in skills with the same name.
//
// The rendered index is cached; a Watcher invalidates it when skill
// files change on disk.
type Loader struct {
	workspaceDir string
	builtinDir   string

	mu          sync.Mutex
	cachedIndex string
	cacheValid  bool
}

// NewLoader creates a loader over the workspace skills directory and an
// optional built-in skills directory ("" to disable).
func NewLoader(workspaceDir, builtinDir string) *Loader {
	return &Loader{workspaceDir: workspaceDir, builtinDir: builtinDir}
}

// List returns discovered skills sorted by name. With onlyAvailable,
// skills whose requirements are not met are dropped.
func (l *Loader) List(onlyAvailable bool) []Skill {
	found := make(map[string]Skill)
	l.scanDir(l.workspaceDir, "workspace", found)
	l.scanDir(l.builtinDir, "builtin", found)

	var out []Skill
	for _, s := range found {
		if onlyAvailable && missingRequirements(l.MetaOf(s.Name)) != "" {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (l *Loader) scanDir(base, source string, found map[string]Skill) {
	if base == "" {
		return
	}
	entries, err := os.ReadDir(base)
	if err != nil {
		return
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, taken := found[e.Name()]; taken {
			continue
		}
		path := filepath.Join(base, e.Name(), skillFilename)
		if _, err := os.Stat(path); err == nil {
			found[e.Name()] = Skill{Name: e.Name(), Path: path, Source: source}
		}
	}
}

// Load returns the raw SKILL.md content, or "" when the skill does not exist.
func (l *Loader) Load(name string) string {
	for _, base := range []string{l.workspaceDir, l.builtinDir} {
		if base == "" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(base, name, skillFilename))
		if err == nil {
			return string(data)
		}
	}
	return ""
}

// LoadActive renders the full bodies of the named skills for the
// system prompt, separated by horizontal rules.
func (l *Loader) LoadActive(names []string) string {
	var sections []string
	for _, name := range names {
		content := l.Load(name)
		if content == "" {
			continue
		}
		sections = append(sections, fmt.Sprintf("## Skill: %s\n\n%s", name, stripFrontmatter(content)))
	}
	return strings.Join(sections, "\n\n---\n\n")
}

// AlwaysOn returns available skills flagged always=true.
func (l *Loader) AlwaysOn() []string {
	var out []string
	for _, s := range l.List(true) {
		if l.MetaOf(s.Name).Always {
			out = append(out, s.Name)
		}
	}
	return out
}

// Invalidate drops the cached index. Called by the watcher when skill
// files change.
func (l *Loader) Invalidate() {
	l.mu.Lock()
	l.cacheValid = false
	l.mu.Unlock()
}

// BuildIndex renders an XML-like index of all skills for discovery and
// progressive loading. The result is cached until Invalidate.
func (l *Loader) BuildIndex() string {
	l.mu.Lock()
	if l.cacheValid {
		index := l.cachedIndex
		l.mu.Unlock()
		return index
	}
	l.mu.Unlock()

	index := l.buildIndex()

	l.mu.Lock()
	l.cachedIndex = index
	l.cacheValid = true
	l.mu.Unlock()
	return index
}

func (l *Loader) buildIndex() string {
	all := l.List(false)
	if len(all) == 0 {
		return ""
	}

	lines := []string{"<skills>"}
	for _, s := range all {
		meta := l.MetaOf(s.Name)
		missing := missingRequirements(meta)
		available := missing == ""

		lines = append(lines, fmt.Sprintf(`  <skill available="%t">`, available))
		lines = append(lines, fmt.Sprintf("    <name>%s</name>", escapeXML(s.Name)))
		lines = append(lines, fmt.Sprintf("    <description>%s</description>", escapeXML(l.DescriptionOf(s.Name))))
		lines = append(lines, fmt.Sprintf("    <location>%s</location>", escapeXML(s.Path)))
		if !available {
			lines = append(lines, fmt.Sprintf("    <requires>%s</requires>", escapeXML(missing)))
		}
		lines = append(lines, "  </skill>")
	}
	lines = append(lines, "</skills>")
	return strings.Join(lines, "\n")
}

// DescriptionOf returns the frontmatter description, falling back to the name.
func (l *Loader) DescriptionOf(name string) string {
	fm := parseFrontmatter(l.Load(name))
	if desc, ok := fm["description"]; ok && desc != "" {
		return desc
	}
	return name
}

// MetaOf parses the clawai metadata block of a skill.
func (l *Loader) MetaOf(name string) Meta {
	return parseMeta(parseFrontmatter(l.Load(name))["metadata"])
}

// --- frontmatter parsing ---

var frontmatterRe = regexp.MustCompile(`(?s)^---\n(.*?)\n---`)

func parseFrontmatter(content string) map[string]string {
	out := make(map[string]string)
	if !strings.HasPrefix(content, "---") {
		return out
	}
	m := frontmatterRe.FindStringSubmatch(content)
	if m == nil {
		return out
	}
	for _, line := range strings.Split(m[1], "\n") {
		k, v, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		out[strings.TrimSpace(k)] = strings.Trim(strings.TrimSpace(v), `"'`)
	}
	return out
}

func parseMeta(raw string) Meta {
	var wrapper struct {
		Clawai Meta `json:"clawai"`
	}
	if raw == "" {
		return Meta{}
	}
	if err := json.Unmarshal([]byte(raw), &wrapper); err != nil {
		return Meta{}
	}
	return wrapper.Clawai
}

func stripFrontmatter(content string) string {
	if !strings.HasPrefix(content, "---") {
		return content
	}
	m := frontmatterRe.FindStringIndex(content)
	if m == nil {
		return content
	}
	return strings.TrimSpace(content[m[1]:])
}

// missingRequirements lists unmet requirements ("bin:git, env:KEY"),
// or "" when the skill is available.
func missingRequirements(meta Meta) string {
	var missing []string
	for _, bin := range meta.Requires.Bins {
		if _, err := exec.LookPath(bin); err != nil {
			missing = append(missing, "bin:"+bin)
		}
	}
	for _, env := range meta.Requires.Env {
		if os.Getenv(env) == "" {
			missing = append(missing, "env:"+env)
		}
	}
	return strings.Join(missing, ", ")
}

func escapeXML(text string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(text)
}
