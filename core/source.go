package core

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// FSSource discovers capability descriptors from a directory tree: one
// subdirectory per category, each containing YAML descriptor files. A file's
// category defaults to its directory name when the descriptor does not set
// one explicitly, mirroring the discovery layout:
//
//	plugins/
//	  ai/claude.yaml
//	  anime/oploverz.yaml
//	  tools/cekxl.yaml
type FSSource struct {
	dir    string
	suffix string
}

// NewFSSource creates a filesystem-backed capability source.
func NewFSSource(dir, suffix string) *FSSource {
	if suffix == "" {
		suffix = ".yaml"
	}
	return &FSSource{dir: dir, suffix: suffix}
}

// WatchRoot implements WatchableSource.
func (s *FSSource) WatchRoot() (string, string) {
	return s.dir, s.suffix
}

// Categories enumerates the category subdirectories. A missing or unreadable
// source directory is a build-level failure (ErrSourceUnavailable), not an
// empty result, so a reload never silently degrades to zero routes.
func (s *FSSource) Categories(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.dir, ErrSourceUnavailable)
	}

	categories := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			categories = append(categories, entry.Name())
		}
	}
	sort.Strings(categories)
	return categories, nil
}

// Descriptors parses every descriptor file in one category directory.
// A file that fails to parse yields a RawDescriptor with only Origin set;
// validation rejects it and the build carries on, so one broken file cannot
// take down the whole source.
func (s *FSSource) Descriptors(ctx context.Context, category string) ([]RawDescriptor, error) {
	dir := filepath.Join(s.dir, category)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, ErrSourceUnavailable)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !s.matchesSuffix(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	descriptors := make([]RawDescriptor, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		raw, err := s.parseFile(path, category)
		if err != nil {
			// Keep the origin so validation can emit a useful diagnostic.
			descriptors = append(descriptors, RawDescriptor{Origin: path})
			continue
		}
		descriptors = append(descriptors, raw)
	}
	return descriptors, nil
}

func (s *FSSource) parseFile(path, category string) (RawDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RawDescriptor{}, err
	}

	var raw RawDescriptor
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return RawDescriptor{}, err
	}

	raw.Origin = path
	if strings.TrimSpace(raw.Category) == "" {
		raw.Category = category
	}
	return raw, nil
}

func (s *FSSource) matchesSuffix(name string) bool {
	if strings.HasSuffix(name, s.suffix) {
		return true
	}
	// .yml is accepted alongside the configured .yaml suffix.
	return s.suffix == ".yaml" && strings.HasSuffix(name, ".yml")
}

// StaticSource is an in-code capability source. It is used by embedders that
// register handlers programmatically and throughout the tests.
type StaticSource struct {
	groups map[string][]RawDescriptor
	order  []string
}

// NewStaticSource creates an empty in-code source.
func NewStaticSource() *StaticSource {
	return &StaticSource{groups: make(map[string][]RawDescriptor)}
}

// Add appends a descriptor to a category group, preserving insertion order
// within the group.
func (s *StaticSource) Add(category string, raw RawDescriptor) *StaticSource {
	if _, ok := s.groups[category]; !ok {
		s.order = append(s.order, category)
	}
	if raw.Origin == "" {
		raw.Origin = fmt.Sprintf("static:%s/%s", category, raw.Name)
	}
	s.groups[category] = append(s.groups[category], raw)
	return s
}

// Categories implements Source.
func (s *StaticSource) Categories(ctx context.Context) ([]string, error) {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out, nil
}

// Descriptors implements Source.
func (s *StaticSource) Descriptors(ctx context.Context, category string) ([]RawDescriptor, error) {
	out := make([]RawDescriptor, len(s.groups[category]))
	copy(out, s.groups[category])
	return out, nil
}
