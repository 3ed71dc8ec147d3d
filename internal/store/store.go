// Package store is the settings and credential store: a flat key->value map
// of service tokens, base URLs and flags. Absence is a valid state; readers
// get "" or false.
package store

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Keys consumed by the dashboard.
const (
	KeyGitHubToken       = "githubToken"
	KeyGitHubOrg         = "githubOrg"
	KeyConfluenceBaseURL = "confluenceBaseUrl"
	KeyConfluenceToken   = "confluenceToken"
	KeyConfluencePageID  = "confluencePageId"
	KeyJiraBaseURL       = "jiraBaseUrl"
	KeyJiraToken         = "jiraToken"
	KeyEmailAddress      = "emailAddress"
	KeyDemoMode          = "demoMode"
)

// KnownKeys lists every key in settings-screen order.
var KnownKeys = []string{
	KeyGitHubToken,
	KeyGitHubOrg,
	KeyConfluenceBaseURL,
	KeyConfluenceToken,
	KeyConfluencePageID,
	KeyJiraBaseURL,
	KeyJiraToken,
	KeyEmailAddress,
	KeyDemoMode,
}

// Secret reports whether key holds a credential that must never be echoed.
func Secret(key string) bool {
	return strings.HasSuffix(key, "Token")
}

// Boolean reports whether key holds a flag rather than text.
func Boolean(key string) bool {
	return key == KeyDemoMode
}

// Settings is a read-only view of configuration values.
type Settings interface {
	String(key string) string
	Bool(key string) bool
}

// Store is a Settings view that can also be written.
type Store interface {
	Settings
	Set(key string, value any) error
	// Snapshot returns an immutable copy for one refresh cycle.
	Snapshot() Snapshot
}

// Snapshot is a point-in-time copy of the store.
type Snapshot map[string]any

func (s Snapshot) String(key string) string {
	return stringValue(s[key])
}

func (s Snapshot) Bool(key string) bool {
	return boolValue(s[key])
}

func stringValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case bool:
		// A flag is not text.
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}

func boolValue(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		return err == nil && b
	default:
		return false
	}
}

// Coerce converts a raw text value (from a form or the CLI) into the type
// stored for key.
func Coerce(key, raw string) any {
	if Boolean(key) {
		b, _ := strconv.ParseBool(strings.TrimSpace(raw))
		return b
	}
	return raw
}

// MemStore is an in-memory Store.
type MemStore struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewMemStore returns a MemStore seeded with values.
func NewMemStore(values map[string]any) *MemStore {
	m := &MemStore{values: make(map[string]any, len(values))}
	for k, v := range values {
		m.values[k] = v
	}
	return m
}

func (m *MemStore) String(key string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return stringValue(m.values[key])
}

func (m *MemStore) Bool(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return boolValue(m.values[key])
}

func (m *MemStore) Set(key string, value any) error {
	if key == "" {
		return fmt.Errorf("store: empty key")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemStore) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyValues(m.values)
}

func copyValues(in map[string]any) Snapshot {
	out := make(Snapshot, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// diffKeys returns the sorted keys whose values differ between a and b.
func diffKeys(a, b map[string]any) []string {
	var changed []string
	for k, av := range a {
		if bv, ok := b[k]; !ok || fmt.Sprint(av) != fmt.Sprint(bv) {
			changed = append(changed, k)
		}
	}
	for k := range b {
		if _, ok := a[k]; !ok {
			changed = append(changed, k)
		}
	}
	sort.Strings(changed)
	return changed
}
