// FILE: logmonitor/src/internal/snapshot/autosave.go
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"logmonitor/src/internal/core"

	"github.com/lixenwraith/log"
)

// autosaveLayout renders the timestamp part of autosave file names
const autosaveLayout = "2006-01-02_15.04.05"

// Autosaver writes store contents to <dir>/<host>.<timestamp>.lsw
type Autosaver struct {
	dir      string
	compress bool
	hostname string
	timeout  time.Duration
	now      func() time.Time
	logger   *log.Logger
}

// NewAutosaver creates an autosaver for dir. The local hostname names the files.
func NewAutosaver(dir string, compress bool, logger *log.Logger) *Autosaver {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "localhost"
	}
	return &Autosaver{
		dir:      dir,
		compress: compress,
		hostname: hostname,
		timeout:  time.Minute,
		now:      time.Now,
		logger:   logger,
	}
}

// Dir returns the autosave directory
func (a *Autosaver) Dir() string {
	return a.dir
}

// NextPath returns the file name the next autosave would use
func (a *Autosaver) NextPath() (string, error) {
	ext := Ext
	if a.compress {
		ext = CompressedExt
	}
	base := fmt.Sprintf("%s.%s", a.hostname, a.now().Format(autosaveLayout))

	path := filepath.Join(a.dir, base+ext)
	for i := 1; ; i++ {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return path, nil
		} else if err != nil {
			return "", fmt.Errorf("stat %s: %w", path, err)
		}
		path = filepath.Join(a.dir, fmt.Sprintf("%s-%d%s", base, i, ext))
	}
}

// Autosave snapshots messages into a new file and returns its path
func (a *Autosaver) Autosave(messages []core.LogMessage) (string, error) {
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return "", fmt.Errorf("create autosave directory: %w", err)
	}
	path, err := a.NextPath()
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	start := time.Now()
	if err := Save(ctx, path, messages); err != nil {
		return "", err
	}

	a.logger.Debug("msg", "Snapshot written",
		"component", "autosave",
		"path", path,
		"messages", len(messages),
		"duration", time.Since(start))
	return path, nil
}
