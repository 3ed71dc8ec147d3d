package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"devdash/internal/config"
	appLog "devdash/internal/log"
)

// FileStore persists settings as a flat YAML map.
//
// Writes go through a temp file + rename, so the file is never observed
// half-written. Watch reloads the file when it changes on disk and reports
// the keys whose values changed.
type FileStore struct {
	path string

	mu     sync.RWMutex
	values map[string]any
}

// OpenFileStore loads path. A missing file is an empty store; it is created
// on the first Set.
func OpenFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("store: path is empty")
	}
	s := &FileStore{path: path, values: map[string]any{}}
	values, err := readValues(path)
	if err != nil {
		return nil, err
	}
	s.values = values
	return s, nil
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

func readValues(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]any{}, nil
		}
		return nil, err
	}
	values := map[string]any{}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("store: parse %s: %w", path, err)
	}
	if values == nil {
		values = map[string]any{}
	}
	return values, nil
}

func (s *FileStore) String(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return stringValue(s.values[key])
}

func (s *FileStore) Bool(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return boolValue(s.values[key])
}

func (s *FileStore) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyValues(s.values)
}

// Set stores value under key and persists the whole map.
func (s *FileStore) Set(key string, value any) error {
	if key == "" {
		return errors.New("store: empty key")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := copyValues(s.values)
	next[key] = value

	data, err := yaml.Marshal(map[string]any(next))
	if err != nil {
		return err
	}
	if err := config.WriteFileAtomic(s.path, data); err != nil {
		return fmt.Errorf("store: write %s: %w", s.path, err)
	}
	s.values = next

	appLog.Debug("settings saved", "key", key, "path", s.path)
	return nil
}

// reload re-reads the file and returns the keys that changed.
// The read happens under the lock so a concurrent Set is never undone.
func (s *FileStore) reload() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := readValues(s.path)
	if err != nil {
		return nil, err
	}
	changed := diffKeys(s.values, values)
	s.values = values
	return changed, nil
}

// Watch calls onChange with the changed keys whenever the file is edited
// outside this process. Writes made through Set do not trigger onChange.
// Watch blocks until ctx is done.
func (s *FileStore) Watch(ctx context.Context, onChange func(changed []string)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	// Watch the directory: atomic renames replace the file's inode.
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	if err := w.Add(dir); err != nil {
		return err
	}

	target := filepath.Clean(s.path)
	appLog.Info("watching settings file", "path", target)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			changed, err := s.reload()
			if err != nil {
				appLog.Error("settings reload failed", err, "path", target)
				continue
			}
			if len(changed) > 0 {
				appLog.Info("settings changed on disk", "keys", changed)
				onChange(changed)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			appLog.Error("settings watcher error", err, "path", target)
		}
	}
}
