// FILE: logmonitor/src/internal/filter/repository_test.go
package filter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) (*Repository, string) {
	t.Helper()
	dir := t.TempDir()
	return NewRepository(dir, log.NewLogger()), dir
}

func TestRepository_SaveLoad(t *testing.T) {
	repo, dir := newTestRepository(t)
	require.NoError(t, repo.Load())
	assert.Empty(t, repo.FilterNames())

	f := NewFilter("errors")
	f.Conditions = []Condition{mustCondition(t, FieldSeverity, OpEquals, IntOperand(3))}
	require.NoError(t, repo.PutFilter(f))

	red := Color{R: 255}
	require.NoError(t, repo.PutHighlightSet(&HighlightSet{
		Name:       "alerts",
		Highlights: []Highlight{{Foreground: &red, Juncture: JunctureOr}},
	}))
	require.NoError(t, repo.Save())

	assert.FileExists(t, filepath.Join(dir, "errors.filter"))
	assert.FileExists(t, filepath.Join(dir, "alerts.highlight"))

	fresh := NewRepository(dir, log.NewLogger())
	require.NoError(t, fresh.Load())
	assert.Equal(t, []string{"errors"}, fresh.FilterNames())
	assert.Equal(t, []string{"alerts"}, fresh.HighlightSetNames())

	loaded, ok := fresh.Filter("errors")
	require.True(t, ok)
	assert.Equal(t, f, loaded)

	set, ok := fresh.HighlightSet("alerts")
	require.True(t, ok)
	assert.Equal(t, &red, set.Highlights[0].Foreground)
}

func TestRepository_SaveRemovesStale(t *testing.T) {
	repo, dir := newTestRepository(t)
	require.NoError(t, repo.Load())
	require.NoError(t, repo.PutFilter(NewFilter("a")))
	require.NoError(t, repo.PutFilter(NewFilter("b")))
	require.NoError(t, repo.Save())

	require.NoError(t, repo.DeleteFilter("a"))
	require.NoError(t, repo.Save())

	assert.NoFileExists(t, filepath.Join(dir, "a.filter"))
	assert.FileExists(t, filepath.Join(dir, "b.filter"))

	assert.ErrorIs(t, repo.DeleteFilter("a"), ErrNotFound)
	assert.ErrorIs(t, repo.DeleteHighlightSet("none"), ErrNotFound)
}

func TestRepository_SaveBeforeLoad(t *testing.T) {
	repo, _ := newTestRepository(t)
	assert.ErrorIs(t, repo.Save(), ErrNotLoaded)
}

func TestRepository_LoadFailureKeepsPrevious(t *testing.T) {
	repo, dir := newTestRepository(t)
	require.NoError(t, repo.Load())
	require.NoError(t, repo.PutFilter(NewFilter("good")))
	require.NoError(t, repo.Save())
	require.NoError(t, repo.Load())

	bad := `{"name":"bad","juncture":"xor","conditions":[]}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.filter"), []byte(bad), 0o644))

	err := repo.Load()
	assert.ErrorIs(t, err, ErrUnknownJuncture)
	assert.Equal(t, []string{"good"}, repo.FilterNames())
}

func TestRepository_LegacyFiles(t *testing.T) {
	repo, dir := newTestRepository(t)
	legacy := `{"name":"from desktop","juncture":"or","conditions":[{"field":"module","operator":"equals","operand":"ui"}]}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "from desktop.filter"), []byte(legacy), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	require.NoError(t, repo.Load())
	f, ok := repo.Filter("from desktop")
	require.True(t, ok)
	assert.Equal(t, "ui", f.Conditions[0].Operand.Text())
}

func TestRepository_MissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "absent")
	repo := NewRepository(dir, log.NewLogger())
	require.NoError(t, repo.Load())
	require.NoError(t, repo.PutFilter(NewFilter("x")))
	require.NoError(t, repo.Save())
	assert.FileExists(t, filepath.Join(dir, "x.filter"))
}

func TestRepository_InvalidName(t *testing.T) {
	repo, _ := newTestRepository(t)
	assert.ErrorIs(t, repo.PutFilter(NewFilter("")), ErrInvalidName)
	assert.ErrorIs(t, repo.PutFilter(NewFilter("../escape")), ErrInvalidName)
	assert.ErrorIs(t, repo.PutHighlightSet(&HighlightSet{Name: "a/b"}), ErrInvalidName)
}

func TestRepository_LoadRejectsDocumentNamesOutsideDirectory(t *testing.T) {
	repo, dir := newTestRepository(t)
	require.NoError(t, repo.Load())
	require.NoError(t, repo.PutFilter(NewFilter("good")))
	require.NoError(t, repo.Save())
	require.NoError(t, repo.Load())

	doc := "name = \"../escaped\"\njuncture = \"or\"\n"
	path := filepath.Join(dir, "ok.filter")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	assert.ErrorIs(t, repo.Load(), ErrInvalidName)
	assert.Equal(t, []string{"good"}, repo.FilterNames())

	// Saving the previous rules never writes outside the directory
	require.NoError(t, repo.Save())
	assert.NoFileExists(t, filepath.Join(filepath.Dir(dir), "escaped.filter"))
	assert.FileExists(t, filepath.Join(dir, "good.filter"))

	legacy := `{"name":"a/b","highlights":[]}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ok.highlight"), []byte(legacy), 0o644))
	assert.ErrorIs(t, repo.Load(), ErrInvalidName)
}
