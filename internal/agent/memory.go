package agent

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// MemoryStore is the filesystem-backed persistent memory:
// MEMORY.md for stable knowledge, YYYY-MM-DD.md files for daily notes.
type MemoryStore struct {
	dir string
}

// NewMemoryStore creates the store under <workspace>/memory.
func NewMemoryStore(workspace string) *MemoryStore {
	dir := filepath.Join(workspace, "memory")
	_ = os.MkdirAll(dir, 0o755)
	return &MemoryStore{dir: dir}
}

// LongTermFile returns the MEMORY.md path.
func (m *MemoryStore) LongTermFile() string {
	return filepath.Join(m.dir, "MEMORY.md")
}

// DailyFile returns the path of the daily file for date ("" = today).
func (m *MemoryStore) DailyFile(date string) string {
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}
	return filepath.Join(m.dir, date+".md")
}

// ReadLongTerm returns MEMORY.md content, or "".
func (m *MemoryStore) ReadLongTerm() string {
	data, err := os.ReadFile(m.LongTermFile())
	if err != nil {
		return ""
	}
	return string(data)
}

// AppendLongTerm appends a block to MEMORY.md.
func (m *MemoryStore) AppendLongTerm(content string) error {
	existing := m.ReadLongTerm()
	text := content
	if existing != "" {
		text = existing + "\n\n" + content
	}
	return os.WriteFile(m.LongTermFile(), []byte(text), 0o644)
}

// ReadToday returns today's notes, or "".
func (m *MemoryStore) ReadToday() string {
	data, err := os.ReadFile(m.DailyFile(""))
	if err != nil {
		return ""
	}
	return string(data)
}

// AppendToday appends a block to today's daily file, creating it with
// a date header when new.
func (m *MemoryStore) AppendToday(content string) error {
	today := time.Now().Format("2006-01-02")
	path := m.DailyFile(today)

	existing, err := os.ReadFile(path)
	var text string
	if err != nil {
		text = fmt.Sprintf("# %s\n\n%s", today, content)
	} else {
		text = string(existing) + "\n\n" + content
	}
	return os.WriteFile(path, []byte(text), 0o644)
}

// Context renders the memory snapshot for the system prompt.
func (m *MemoryStore) Context() string {
	var sections []string
	if longTerm := m.ReadLongTerm(); longTerm != "" {
		sections = append(sections, "# Long-term Memory\n\n"+longTerm)
	}
	if today := m.ReadToday(); today != "" {
		sections = append(sections, "# Today's Notes\n\n"+today)
	}
	return strings.Join(sections, "\n\n---\n\n")
}
