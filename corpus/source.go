package corpus

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Entry names one file inside a corpus source.
type Entry struct {
	Category string
	Name     string
}

// ID returns the entry's slash separated path relative to the source root.
func (e Entry) ID() string {
	return e.Category + "/" + e.Name
}

// Source is a place a corpus can be read from. Layout is always
// <root>/<category>/<file>.
type Source interface {
	// List returns every file one level below a category directory.
	// Categories without files are reported with an empty Name so the
	// loader can reject them.
	List(ctx context.Context) ([]Entry, error)
	// Read returns the content of one listed file.
	Read(ctx context.Context, e Entry) ([]byte, error)
	// String describes the source for logs and errors.
	String() string
}

// DirSource reads a corpus from a local directory.
type DirSource struct {
	Root string
}

// NewDirSource returns a Source rooted at dir.
func NewDirSource(dir string) *DirSource {
	return &DirSource{Root: dir}
}

// List implements Source.
func (s *DirSource) List(_ context.Context) ([]Entry, error) {
	dirs, err := os.ReadDir(s.Root)
	if err != nil {
		return nil, fmt.Errorf("read corpus root %s: %w", s.Root, err)
	}

	var entries []Entry

	for _, dir := range dirs {
		if !dir.IsDir() || strings.HasPrefix(dir.Name(), ".") {
			continue
		}

		files, err := os.ReadDir(filepath.Join(s.Root, dir.Name()))
		if err != nil {
			return nil, fmt.Errorf("read category %s: %w", dir.Name(), err)
		}

		listed := false

		for _, f := range files {
			if f.IsDir() || strings.HasPrefix(f.Name(), ".") {
				continue
			}

			entries = append(entries, Entry{Category: dir.Name(), Name: f.Name()})
			listed = true
		}

		if !listed {
			entries = append(entries, Entry{Category: dir.Name()})
		}
	}

	sortEntries(entries)

	return entries, nil
}

// Read implements Source.
func (s *DirSource) Read(_ context.Context, e Entry) ([]byte, error) {
	path := filepath.Join(s.Root, e.Category, e.Name)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	return data, nil
}

func (s *DirSource) String() string {
	return s.Root
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Category != entries[j].Category {
			return entries[i].Category < entries[j].Category
		}

		return entries[i].Name < entries[j].Name
	})
}
