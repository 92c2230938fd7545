// FILE: logmonitor/src/internal/filter/repository.go
package filter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/lixenwraith/log"
)

const (
	FilterExt    = ".filter"
	HighlightExt = ".highlight"
)

var (
	ErrNotLoaded   = errors.New("filter: repository not loaded")
	ErrInvalidName = errors.New("filter: invalid rule set name")
	ErrNotFound    = errors.New("filter: rule set not found")
)

// Repository holds the named filters and highlight sets of one settings directory
type Repository struct {
	dir    string
	logger *log.Logger

	mu         sync.RWMutex
	loaded     bool
	filters    map[string]*Filter
	highlights map[string]*HighlightSet
}

// NewRepository creates an empty repository rooted at dir
func NewRepository(dir string, logger *log.Logger) *Repository {
	return &Repository{
		dir:        dir,
		logger:     logger,
		filters:    make(map[string]*Filter),
		highlights: make(map[string]*HighlightSet),
	}
}

// Dir returns the settings directory
func (r *Repository) Dir() string {
	return r.dir
}

// Load reads every rule document in the directory. Nothing is replaced
// unless all documents decode; a missing directory loads as empty.
func (r *Repository) Load() error {
	filters := make(map[string]*Filter)
	highlights := make(map[string]*HighlightSet)

	entries, err := os.ReadDir(r.dir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("read rules directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := filepath.Ext(name)
		if ext != FilterExt && ext != HighlightExt {
			continue
		}

		path := filepath.Join(r.dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		base := strings.TrimSuffix(name, ext)

		switch ext {
		case FilterExt:
			f, err := UnmarshalFilter(data)
			if err != nil {
				return fmt.Errorf("load %s: %w", name, err)
			}
			if f.Name == "" {
				f.Name = base
			}
			if err := validName(f.Name); err != nil {
				return fmt.Errorf("load %s: %w", name, err)
			}
			filters[f.Name] = f
		case HighlightExt:
			s, err := UnmarshalHighlightSet(data)
			if err != nil {
				return fmt.Errorf("load %s: %w", name, err)
			}
			if s.Name == "" {
				s.Name = base
			}
			if err := validName(s.Name); err != nil {
				return fmt.Errorf("load %s: %w", name, err)
			}
			highlights[s.Name] = s
		}
	}

	r.mu.Lock()
	r.filters = filters
	r.highlights = highlights
	r.loaded = true
	r.mu.Unlock()

	r.logger.Info("msg", "Rule sets loaded",
		"component", "rules",
		"directory", r.dir,
		"filters", len(filters),
		"highlights", len(highlights))
	return nil
}

// Save writes every rule set and removes documents no longer present
func (r *Repository) Save() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.loaded {
		return ErrNotLoaded
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("create rules directory: %w", err)
	}

	keep := make(map[string]bool)
	for name, f := range r.filters {
		data, err := MarshalFilter(f)
		if err != nil {
			return fmt.Errorf("encode filter %q: %w", name, err)
		}
		file := name + FilterExt
		if err := writeFileAtomic(filepath.Join(r.dir, file), data); err != nil {
			return err
		}
		keep[file] = true
	}
	for name, s := range r.highlights {
		data, err := MarshalHighlightSet(s)
		if err != nil {
			return fmt.Errorf("encode highlight set %q: %w", name, err)
		}
		file := name + HighlightExt
		if err := writeFileAtomic(filepath.Join(r.dir, file), data); err != nil {
			return err
		}
		keep[file] = true
	}

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return fmt.Errorf("read rules directory: %w", err)
	}
	for _, entry := range entries {
		name := entry.Name()
		ext := filepath.Ext(name)
		if entry.IsDir() || (ext != FilterExt && ext != HighlightExt) || keep[name] {
			continue
		}
		if err := os.Remove(filepath.Join(r.dir, name)); err != nil {
			return fmt.Errorf("remove stale %s: %w", name, err)
		}
		r.logger.Debug("msg", "Removed stale rule document",
			"component", "rules",
			"file", name)
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// FilterNames returns the filter names in sorted order
func (r *Repository) FilterNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.filters)
}

// Filter looks up a filter by name
func (r *Repository) Filter(name string) (*Filter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.filters[name]
	return f, ok
}

// PutFilter adds or replaces a filter
func (r *Repository) PutFilter(f *Filter) error {
	if err := validName(f.Name); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filters[f.Name] = f
	return nil
}

// DeleteFilter removes a filter; the document goes away on the next Save
func (r *Repository) DeleteFilter(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.filters[name]; !ok {
		return fmt.Errorf("%w: filter %q", ErrNotFound, name)
	}
	delete(r.filters, name)
	return nil
}

// HighlightSetNames returns the highlight set names in sorted order
func (r *Repository) HighlightSetNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.highlights)
}

// HighlightSet looks up a highlight set by name
func (r *Repository) HighlightSet(name string) (*HighlightSet, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.highlights[name]
	return s, ok
}

// PutHighlightSet adds or replaces a highlight set
func (r *Repository) PutHighlightSet(s *HighlightSet) error {
	if err := validName(s.Name); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.highlights[s.Name] = s
	return nil
}

// DeleteHighlightSet removes a highlight set
func (r *Repository) DeleteHighlightSet(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.highlights[name]; !ok {
		return fmt.Errorf("%w: highlight set %q", ErrNotFound, name)
	}
	delete(r.highlights, name)
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
