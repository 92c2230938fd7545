// FILE: logmonitor/src/internal/filter/watch_test.go
package filter

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChangedDocs(t *testing.T) {
	now := time.Now()
	prev := map[string]docState{
		"a.filter":    {size: 1, modTime: now},
		"b.highlight": {size: 2, modTime: now},
		"c.filter":    {size: 3, modTime: now},
	}
	cur := map[string]docState{
		"a.filter":    {size: 1, modTime: now},
		"b.highlight": {size: 5, modTime: now},
		"d.filter":    {size: 1, modTime: now},
	}
	assert.Equal(t, []string{"b.highlight", "c.filter", "d.filter"}, changedDocs(prev, cur))
	assert.Empty(t, changedDocs(cur, cur))
}

func TestRepository_Watch(t *testing.T) {
	repo, dir := newTestRepository(t)
	require.NoError(t, repo.Load())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- repo.Watch(ctx, 20*time.Millisecond) }()

	// Let the watcher take its first fingerprint
	time.Sleep(50 * time.Millisecond)

	data, err := MarshalFilter(&Filter{Name: "errors", Juncture: JunctureAnd, Conditions: []Condition{
		mustCondition(t, FieldSeverity, OpEquals, TextOperand("error")),
	}})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "errors"+FilterExt), data, 0o644))

	assert.Eventually(t, func() bool {
		_, ok := repo.Filter("errors")
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	// A broken document leaves the loaded rules in place
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken"+FilterExt), []byte("juncture = ["), 0o644))
	time.Sleep(100 * time.Millisecond)
	_, ok := repo.Filter("errors")
	assert.True(t, ok)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Error(t, repo.Watch(context.Background(), 0))
}
