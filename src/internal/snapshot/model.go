// FILE: logmonitor/src/internal/snapshot/model.go
package snapshot

import (
	"context"

	"logmonitor/src/internal/store"

	"github.com/lixenwraith/log"
)

// FileModel is a store filled from a snapshot file
type FileModel struct {
	*store.Store
	path string
}

// Open loads path into a new viewer mode store
func Open(ctx context.Context, path string, breakLines bool, logger *log.Logger) (*FileModel, error) {
	messages, err := Load(ctx, path)
	if err != nil {
		return nil, err
	}

	st := store.New(store.Options{BreakLines: breakLines}, nil, logger)
	st.Load(messages)

	logger.Info("msg", "Snapshot opened",
		"component", "snapshot",
		"path", path,
		"messages", len(messages))
	return &FileModel{Store: st, path: path}, nil
}

// IsLive is false for file backed models
func (m *FileModel) IsLive() bool {
	return false
}

// Path returns the snapshot file
func (m *FileModel) Path() string {
	return m.path
}
