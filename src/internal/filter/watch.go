// FILE: logmonitor/src/internal/filter/watch.go
package filter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// docState is what a poll remembers about one rule document
type docState struct {
	size    int64
	modTime time.Time
}

// fingerprint lists the rule documents of dir with size and mtime
func fingerprint(dir string) (map[string]docState, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]docState{}, nil
		}
		return nil, err
	}

	states := make(map[string]docState, len(entries))
	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || (ext != FilterExt && ext != HighlightExt) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// Removed between ReadDir and Info
			continue
		}
		states[entry.Name()] = docState{size: info.Size(), modTime: info.ModTime()}
	}
	return states, nil
}

func changedDocs(prev, cur map[string]docState) []string {
	var changed []string
	for name, st := range cur {
		if old, ok := prev[name]; !ok || old != st {
			changed = append(changed, name)
		}
	}
	for name := range prev {
		if _, ok := cur[name]; !ok {
			changed = append(changed, name)
		}
	}
	sort.Strings(changed)
	return changed
}

// Watch polls the directory and reloads when a document is added, changed
// or removed. A failed reload keeps the previous rules. Returns when ctx ends.
func (r *Repository) Watch(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("watch interval must be positive")
	}

	prev, err := fingerprint(r.dir)
	if err != nil {
		return fmt.Errorf("scan rules directory: %w", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			cur, err := fingerprint(r.dir)
			if err != nil {
				r.logger.Warn("msg", "Rules directory scan failed",
					"component", "rules",
					"directory", r.dir,
					"error", err)
				continue
			}

			changed := changedDocs(prev, cur)
			if len(changed) == 0 {
				continue
			}
			prev = cur

			r.logger.Info("msg", "Rule documents changed, reloading",
				"component", "rules",
				"documents", strings.Join(changed, ","))
			if err := r.Load(); err != nil {
				r.logger.Error("msg", "Rule reload failed, keeping previous rules",
					"component", "rules",
					"error", err)
			}
		}
	}
}
