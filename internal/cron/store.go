package cron

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// loadStore reads the job store from disk. A missing file yields an
// empty store; a corrupt file is logged and replaced by an empty store
// rather than aborting startup.
func loadStore(path string) *Store {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("failed to read cron store", "path", path, "error", err)
		}
		return &Store{Version: 1}
	}

	var store Store
	if err := json.Unmarshal(data, &store); err != nil {
		slog.Warn("failed to parse cron store, starting empty", "path", path, "error", err)
		return &Store{Version: 1}
	}
	if store.Version == 0 {
		store.Version = 1
	}
	return &store
}

// saveStore persists the job store atomically (temp file + rename).
func saveStore(path string, store *Store) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cron dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".jobs-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp store: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(store); err != nil {
		tmp.Close()
		return fmt.Errorf("encode cron store: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync cron store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close cron store: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace cron store: %w", err)
	}
	return nil
}
