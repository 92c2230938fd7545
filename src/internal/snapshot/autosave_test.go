// FILE: logmonitor/src/internal/snapshot/autosave_test.go
package snapshot

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"logmonitor/src/internal/core"
	"logmonitor/src/internal/store"

	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAutosaver(t *testing.T, compress bool) *Autosaver {
	t.Helper()
	a := NewAutosaver(filepath.Join(t.TempDir(), "autosave"), compress, log.NewLogger())
	a.hostname = "testhost"
	a.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local) }
	return a
}

func TestAutosaver(t *testing.T) {
	t.Run("NamesByHostAndTime", func(t *testing.T) {
		a := newTestAutosaver(t, false)
		path, err := a.Autosave(sampleMessages())
		require.NoError(t, err)
		assert.Equal(t, "testhost.2024-01-02_03.04.05.lsw", filepath.Base(path))
		assert.FileExists(t, path)
	})

	t.Run("SameSecondGetsSuffix", func(t *testing.T) {
		a := newTestAutosaver(t, false)
		first, err := a.Autosave(sampleMessages())
		require.NoError(t, err)
		second, err := a.Autosave(sampleMessages())
		require.NoError(t, err)
		assert.NotEqual(t, first, second)
		assert.Equal(t, "testhost.2024-01-02_03.04.05-1.lsw", filepath.Base(second))
	})

	t.Run("Compressed", func(t *testing.T) {
		a := newTestAutosaver(t, true)
		path, err := a.Autosave(sampleMessages())
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(path, CompressedExt))

		out, err := Load(context.Background(), path)
		require.NoError(t, err)
		assert.Len(t, out, 3)
	})
}

func TestAutosaver_ServerModeStore(t *testing.T) {
	a := newTestAutosaver(t, false)
	st := store.New(store.Options{ServerMode: true, MaxMessages: 3}, a, log.NewLogger())

	for i := 0; i < 4; i++ {
		st.Add(core.LogMessage{Timestamp: int64(i), Severity: core.SeverityError, Message: "m"})
	}
	assert.Equal(t, 1, st.Len())
	assert.Equal(t, uint64(1), st.Statistics().Error)

	out, err := Load(context.Background(), filepath.Join(a.Dir(), "testhost.2024-01-02_03.04.05.lsw"))
	require.NoError(t, err)
	assert.Len(t, out, 3)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "view.lsw")
	msgs := sampleMessages()
	msgs[1].Message = "line one\nline two"
	require.NoError(t, Save(ctx, path, msgs))

	m, err := Open(ctx, path, true, log.NewLogger())
	require.NoError(t, err)

	var model core.Model = m
	assert.False(t, model.IsLive())
	assert.Equal(t, 4, model.Len())
	stats := model.Statistics()
	assert.Equal(t, uint64(1), stats.Error)
	assert.Equal(t, uint64(1), stats.Info)
	assert.Equal(t, uint64(1), stats.Warning)
	assert.Equal(t, path, m.Path())

	_, err = Open(ctx, path+".missing", false, log.NewLogger())
	assert.ErrorIs(t, err, ErrNotFound)
}
