package rules

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"cardtable-server/internal/errors"

	"gopkg.in/yaml.v3"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

// Parse decodes a YAML rule description and validates it.
func Parse(data []byte) (*GameRules, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	var r GameRules
	if err := decoder.Decode(&r); err != nil {
		return nil, errors.Wrap(errors.CodeConfiguration, fmt.Sprintf("decode rules: %v", err), err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

func LoadFile(path string) (*GameRules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules %s: %w", path, err)
	}
	return Parse(data)
}

// Catalog is the set of rule descriptions games can be created from.
type Catalog struct {
	mu    sync.RWMutex
	rules map[string]*GameRules
}

// NewCatalog returns a catalog holding the built-in games.
func NewCatalog() (*Catalog, error) {
	c := &Catalog{rules: make(map[string]*GameRules)}
	if err := c.loadFS(builtinFS, "builtin"); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadDir adds every .yaml or .yml file in dir. A rule with the name of an
// existing entry replaces it.
func (c *Catalog) LoadDir(dir string) error {
	return c.loadFS(os.DirFS(dir), ".")
}

func (c *Catalog) loadFS(fsys fs.FS, dir string) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("list rules in %s: %w", dir, err)
	}
	for _, entry := range entries {
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		data, err := fs.ReadFile(fsys, filepath.ToSlash(filepath.Join(dir, entry.Name())))
		if err != nil {
			return fmt.Errorf("read rules %s: %w", entry.Name(), err)
		}
		r, err := Parse(data)
		if err != nil {
			return fmt.Errorf("%s: %w", entry.Name(), err)
		}
		c.Add(r)
	}
	return nil
}

func (c *Catalog) Add(r *GameRules) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rules[r.Name] = r
}

func (c *Catalog) Get(name string) (*GameRules, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.rules[name]
	return r, ok
}

// List returns every rule description ordered by name.
func (c *Catalog) List() []*GameRules {
	c.mu.RLock()
	defer c.mu.RUnlock()
	list := make([]*GameRules, 0, len(c.rules))
	for _, r := range c.rules {
		list = append(list, r)
	}
	slices.SortFunc(list, func(a, b *GameRules) int { return strings.Compare(a.Name, b.Name) })
	return list
}
