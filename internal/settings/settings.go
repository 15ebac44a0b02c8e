// Package settings persists grouped key-value preferences to a YAML file.
//
// Groups address nested sections with slash separators, e.g.
// "QuantitativeReporting/GeneralContentInformationDefaults". Keys are
// matched case-insensitively.
package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

// Store is a file-backed preferences store. Mutations stay in memory until
// Save is called.
type Store struct {
	mu   sync.Mutex
	v    *viper.Viper
	path string
}

// Open loads the settings file at path. A missing file yields an empty
// store; the file is created on the first Save.
func Open(path string) (*Store, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read settings %s: %w", path, err)
		}
	}
	return &Store{v: v, path: path}, nil
}

// Path returns the file the store reads from and writes to.
func (s *Store) Path() string {
	return s.path
}

// Group returns a view over the keys under the named group. Nested groups
// use slash separators.
func (s *Store) Group(name string) *Group {
	return &Group{store: s, prefix: strings.ReplaceAll(name, "/", ".")}
}

// Save writes the store back to its file, creating parent directories as
// needed.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(s.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create settings directory %s: %w", dir, err)
		}
	}
	if err := s.v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("write settings %s: %w", s.path, err)
	}
	return nil
}

// Group is a named section of a Store.
type Group struct {
	store  *Store
	prefix string
}

// Get returns the value stored under name, or the empty string.
func (g *Group) Get(name string) string {
	g.store.mu.Lock()
	defer g.store.mu.Unlock()
	return g.store.v.GetString(g.key(name))
}

// Set stores value under name.
func (g *Group) Set(name, value string) {
	g.store.mu.Lock()
	defer g.store.mu.Unlock()
	g.store.v.Set(g.key(name), value)
}

// Keys lists the keys present in the group, sorted. Names are reported in
// the lower-case form the backing store normalizes to.
func (g *Group) Keys() []string {
	g.store.mu.Lock()
	defer g.store.mu.Unlock()

	prefix := strings.ToLower(g.prefix) + "."
	var keys []string
	for _, k := range g.store.v.AllKeys() {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, strings.TrimPrefix(k, prefix))
		}
	}
	sort.Strings(keys)
	return keys
}

func (g *Group) key(name string) string {
	return g.prefix + "." + name
}
