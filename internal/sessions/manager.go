package sessions

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// metadataRecord is the first line of every session file.
type metadataRecord struct {
	Type      string                 `json:"_type"`
	CreatedAt string                 `json:"created_at"`
	UpdatedAt string                 `json:"updated_at"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// SessionInfo is a listing entry.
type SessionInfo struct {
	Key       string `json:"key"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
	Path      string `json:"path"`
}

// Manager loads, caches, and persists sessions under a storage directory.
type Manager struct {
	dir   string
	mu    sync.Mutex
	cache map[string]*Session
}

// NewManager creates a session manager rooted at dir.
func NewManager(dir string) *Manager {
	os.MkdirAll(dir, 0o755)
	return &Manager{dir: dir, cache: make(map[string]*Session)}
}

// Get returns the session for key, loading it from disk or creating it.
func (m *Manager) Get(key string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.cache[key]; ok {
		return s
	}
	s, err := m.load(key)
	if err != nil {
		slog.Warn("failed to load session, starting fresh", "key", key, "error", err)
		s = nil
	}
	if s == nil {
		s = NewSession(key)
	}
	m.cache[key] = s
	return s
}

// Save persists a session atomically. Persistence failures are logged;
// the in-memory cache keeps the session either way.
func (m *Manager) Save(s *Session) error {
	m.mu.Lock()
	m.cache[s.Key] = s
	m.mu.Unlock()

	path := m.path(s.Key)
	tmp, err := os.CreateTemp(m.dir, ".session-*.tmp")
	if err != nil {
		slog.Error("session save failed", "key", s.Key, "error", err)
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	enc := json.NewEncoder(w)
	if err := enc.Encode(metadataRecord{
		Type:      "metadata",
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
		Metadata:  s.Metadata,
	}); err != nil {
		tmp.Close()
		return fmt.Errorf("encode metadata: %w", err)
	}
	for _, msg := range s.Messages {
		if err := enc.Encode(msg); err != nil {
			tmp.Close()
			return fmt.Errorf("encode message: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		slog.Error("session save failed", "key", s.Key, "error", err)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

// Delete removes a session from cache and disk.
func (m *Manager) Delete(key string) bool {
	m.mu.Lock()
	delete(m.cache, key)
	m.mu.Unlock()

	if err := os.Remove(m.path(key)); err != nil {
		return false
	}
	return true
}

// List returns all persisted sessions, most recently updated first.
func (m *Manager) List() []SessionInfo {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil
	}

	var out []SessionInfo
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".jsonl") {
			continue
		}
		path := filepath.Join(m.dir, e.Name())
		meta, err := readMetadata(path)
		if err != nil {
			continue
		}
		key := strings.TrimSuffix(e.Name(), ".jsonl")
		out = append(out, SessionInfo{
			Key:       strings.Replace(key, "_", ":", 1),
			CreatedAt: meta.CreatedAt,
			UpdatedAt: meta.UpdatedAt,
			Path:      path,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt > out[j].UpdatedAt })
	return out
}

func readMetadata(path string) (*metadataRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return nil, fmt.Errorf("empty session file")
	}
	var meta metadataRecord
	if err := json.Unmarshal(scanner.Bytes(), &meta); err != nil {
		return nil, err
	}
	if meta.Type != "metadata" {
		return nil, fmt.Errorf("first line is not a metadata record")
	}
	return &meta, nil
}

func (m *Manager) load(key string) (*Session, error) {
	path := m.path(key)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	s := NewSession(key)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var probe struct {
			Type string `json:"_type"`
		}
		if err := json.Unmarshal([]byte(line), &probe); err != nil {
			return nil, fmt.Errorf("parse line: %w", err)
		}
		if probe.Type == "metadata" {
			var meta metadataRecord
			if err := json.Unmarshal([]byte(line), &meta); err != nil {
				return nil, err
			}
			if meta.CreatedAt != "" {
				s.CreatedAt = meta.CreatedAt
			}
			if meta.Metadata != nil {
				s.Metadata = meta.Metadata
			}
			continue
		}

		var msg Message
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			return nil, err
		}
		s.Messages = append(s.Messages, msg)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return s, nil
}

func (m *Manager) path(key string) string {
	return filepath.Join(m.dir, safeFilename(strings.ReplaceAll(key, ":", "_"))+".jsonl")
}

// safeFilename replaces filesystem-unsafe characters with underscores.
func safeFilename(name string) string {
	const unsafe = `<>:"/\|?*`
	var b strings.Builder
	for _, r := range name {
		if strings.ContainsRune(unsafe, r) {
			b.WriteRune('_')
		} else {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
