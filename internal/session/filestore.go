package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// FileStore persists sessions as one flat JSON array of records,
// rewritten after every save. Fine for the session counts this service
// handles; the write is atomic via rename.
type FileStore struct {
	mu   sync.Mutex
	path string
	recs map[string]Record
}

func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sessions directory: %w", err)
	}
	fs := &FileStore{path: path, recs: make(map[string]Record)}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return fs, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read sessions file: %w", err)
	}
	var recs []Record
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("parse sessions file: %w", err)
	}
	for _, rec := range recs {
		fs.recs[rec.SessionID] = rec
	}
	return fs, nil
}

func (fs *FileStore) Save(_ context.Context, rec Record) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.recs[rec.SessionID] = rec

	ids := make([]string, 0, len(fs.recs))
	for id := range fs.recs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	all := make([]Record, 0, len(ids))
	for _, id := range ids {
		all = append(all, fs.recs[id])
	}

	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal sessions: %w", err)
	}
	tmp := fs.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write sessions file: %w", err)
	}
	if err := os.Rename(tmp, fs.path); err != nil {
		return fmt.Errorf("replace sessions file: %w", err)
	}
	return nil
}

func (fs *FileStore) LoadAll(_ context.Context) ([]Record, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	out := make([]Record, 0, len(fs.recs))
	for _, rec := range fs.recs {
		out = append(out, rec)
	}
	return out, nil
}
