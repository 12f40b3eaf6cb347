// Package region holds the closed registry of regions a question may name,
// and the rainfall subdivisions that roll up into each of them.
package region

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed regions.yaml
var defaultManifest []byte

// Region is one registry entry.
type Region struct {
	Name         string   `yaml:"name" json:"name"`
	Subdivisions []string `yaml:"subdivisions" json:"subdivisions"`
}

// Manifest is the YAML layout of a registry file.
type Manifest struct {
	Version string   `yaml:"version" json:"version"`
	Regions []Region `yaml:"regions" json:"regions"`
}

// Registry is immutable after construction and safe for concurrent readers.
type Registry struct {
	regions []Region
	byName  map[string]int
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// Default returns the bundled registry.
func Default() *Registry {
	defaultOnce.Do(func() {
		r, err := Parse(defaultManifest)
		if err != nil {
			panic(fmt.Sprintf("region: bundled registry: %v", err))
		}
		defaultReg = r
	})
	return defaultReg
}

// Load reads a registry manifest from path.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry %s: %w", path, err)
	}
	r, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("registry %s: %w", path, err)
	}
	return r, nil
}

// Parse builds a registry from manifest YAML. Subdivision substrings are
// lower-cased; a region without any falls back to its own lower-cased name.
func Parse(data []byte) (*Registry, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if len(m.Regions) == 0 {
		return nil, fmt.Errorf("no regions defined")
	}

	r := &Registry{
		regions: make([]Region, 0, len(m.Regions)),
		byName:  make(map[string]int, len(m.Regions)),
	}
	for _, reg := range m.Regions {
		name := strings.TrimSpace(reg.Name)
		if name == "" {
			return nil, fmt.Errorf("region %d: missing name", len(r.regions))
		}
		key := strings.ToLower(name)
		if _, dup := r.byName[key]; dup {
			return nil, fmt.Errorf("region %q defined twice", name)
		}

		subs := make([]string, 0, len(reg.Subdivisions))
		for _, s := range reg.Subdivisions {
			if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
				subs = append(subs, s)
			}
		}
		if len(subs) == 0 {
			subs = []string{key}
		}

		r.byName[key] = len(r.regions)
		r.regions = append(r.regions, Region{Name: name, Subdivisions: subs})
	}
	return r, nil
}

// Names returns display names in registry order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.regions))
	for i, reg := range r.regions {
		names[i] = reg.Name
	}
	return names
}

// List returns a copy of every region.
func (r *Registry) List() []Region {
	out := make([]Region, len(r.regions))
	for i, reg := range r.regions {
		out[i] = Region{Name: reg.Name, Subdivisions: append([]string(nil), reg.Subdivisions...)}
	}
	return out
}

// Substrings returns the subdivision substrings registered for name.
// Unknown names fall back to their own lower-cased form.
func (r *Registry) Substrings(name string) []string {
	key := strings.ToLower(name)
	if i, ok := r.byName[key]; ok {
		return r.regions[i].Subdivisions
	}
	return []string{key}
}

// Matches reports whether subdivision belongs to region name. The first
// matching substring decides; overlapping substrings never count twice.
func (r *Registry) Matches(name, subdivision string) bool {
	sub := strings.ToLower(subdivision)
	for _, s := range r.Substrings(name) {
		if strings.Contains(sub, s) {
			return true
		}
	}
	return false
}

// Mentioned returns the registry regions whose lower-cased name occurs in the
// normalized question, ordered by where they first appear in it.
func (r *Registry) Mentioned(q string) []string {
	type hit struct {
		name string
		pos  int
	}
	var hits []hit
	for _, reg := range r.regions {
		if pos := strings.Index(q, strings.ToLower(reg.Name)); pos >= 0 {
			hits = append(hits, hit{name: reg.Name, pos: pos})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })

	names := make([]string, len(hits))
	for i, h := range hits {
		names[i] = h.name
	}
	return names
}

// First returns the first registry region, in registry order, that the
// normalized question mentions.
func (r *Registry) First(q string) (string, bool) {
	for _, reg := range r.regions {
		if strings.Contains(q, strings.ToLower(reg.Name)) {
			return reg.Name, true
		}
	}
	return "", false
}

// Len returns the number of regions.
func (r *Registry) Len() int {
	return len(r.regions)
}
