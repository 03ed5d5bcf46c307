// Package catalog holds the static base blueprint table every empire is seeded from.
// A catalog is immutable once loaded.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	apperrors "empires-server/internal/shared/errors"

	"gopkg.in/yaml.v3"
)

// TypeShip marks entries that resolve into ships instead of constructions.
const TypeShip = "ship"

//go:embed default.yaml
var defaultCatalog []byte

type Entry struct {
	BaseID       string   `yaml:"-" json:"base_id"`
	Type         string   `yaml:"-" json:"type"`
	Key          string   `yaml:"-" json:"key"`
	Name         string   `yaml:"name" json:"name"`
	Cost         int      `yaml:"cost" json:"cost,omitempty"`
	Size         int      `yaml:"size" json:"size,omitempty"`
	Speed        int      `yaml:"speed" json:"speed,omitempty"`
	Duration     int64    `yaml:"duration" json:"duration"`
	Requirements []string `yaml:"requirements" json:"requirements,omitempty"`
}

// Snapshot is the part of an entry copied into an empire's blueprint at creation.
type Snapshot struct {
	Name  string `json:"name"`
	Cost  int    `json:"cost,omitempty"`
	Size  int    `json:"size,omitempty"`
	Speed int    `json:"speed,omitempty"`
}

// Snapshot returns a value copy of the entry's name, cost, size and speed.
func (e Entry) Snapshot() Snapshot {
	return Snapshot{
		Name:  e.Name,
		Cost:  e.Cost,
		Size:  e.Size,
		Speed: e.Speed,
	}
}

func (e Entry) IsShip() bool {
	return e.Type == TypeShip
}

type Catalog struct {
	byID map[string]Entry
	ids  []string
}

// Default returns the catalog compiled into the binary.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog file; an empty path selects the compiled-in default.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Catalog, error) {
	var doc map[string]map[string]Entry
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}

	c := &Catalog{byID: map[string]Entry{}}
	for typ, entries := range doc {
		if typ == "" || strings.Contains(typ, "/") {
			return nil, fmt.Errorf("catalog: invalid type %q", typ)
		}
		for key, e := range entries {
			if key == "" || strings.Contains(key, "/") {
				return nil, fmt.Errorf("catalog: invalid name %q in %s", key, typ)
			}
			e.Type = typ
			e.Key = key
			e.BaseID = typ + "/" + key
			if e.Name == "" {
				e.Name = key
			}
			if e.Duration == 0 {
				e.Duration = 1
			}
			if e.Cost < 0 || e.Size < 0 || e.Speed < 0 || e.Duration < 0 {
				return nil, fmt.Errorf("catalog: %s has negative values", e.BaseID)
			}
			c.byID[e.BaseID] = e
			c.ids = append(c.ids, e.BaseID)
		}
	}
	sort.Strings(c.ids)

	for _, id := range c.ids {
		for _, req := range c.byID[id].Requirements {
			if _, ok := c.byID[req]; !ok {
				return nil, fmt.Errorf("catalog: %s requires unknown %q", id, req)
			}
		}
	}
	return c, nil
}

// ParseBaseID splits a "type/name" key.
func ParseBaseID(baseID string) (typ, name string, err error) {
	typ, name, ok := strings.Cut(baseID, "/")
	if !ok || typ == "" || name == "" || strings.Contains(name, "/") {
		return "", "", apperrors.NotFoundf("blueprint %q is not a type/name key", baseID)
	}
	return typ, name, nil
}

// Lookup fails with a not found error when baseID is malformed or absent.
func (c *Catalog) Lookup(baseID string) (Entry, error) {
	if _, _, err := ParseBaseID(baseID); err != nil {
		return Entry{}, err
	}
	e, ok := c.byID[baseID]
	if !ok {
		return Entry{}, apperrors.NotFoundf("blueprint %q not in catalog", baseID)
	}
	e.Requirements = append([]string(nil), e.Requirements...)
	return e, nil
}

// Entries returns every entry ordered by base id.
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, 0, len(c.ids))
	for _, id := range c.ids {
		e := c.byID[id]
		e.Requirements = append([]string(nil), e.Requirements...)
		out = append(out, e)
	}
	return out
}

func (c *Catalog) Len() int {
	return len(c.ids)
}
