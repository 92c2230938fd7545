// FILE: logmonitor/src/internal/snapshot/codec_test.go
package snapshot

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"logmonitor/src/internal/core"
	"logmonitor/src/internal/store"

	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleMessages() []core.LogMessage {
	return []core.LogMessage{
		{Timestamp: 1700000000123, Severity: core.SeverityError, Pid: 10, Machine: "alpha", ExePath: "/bin/a", Module: "net", Channel: "socket", Message: "boom"},
		{Timestamp: 1700000000999, Severity: core.SeverityInfo, Pid: 10, Machine: "alpha", ExePath: "/bin/a", Module: "net", Channel: "dns", Message: "ok"},
		{Timestamp: 1700000001001, Severity: core.SeverityWarning, Pid: 22, Machine: "beta", ExePath: "/bin/b", Module: "ui", Channel: "paint", Message: "slow"},
	}
}

func TestSaveLoad(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "out.lsw")
	in := sampleMessages()

	require.NoError(t, Save(ctx, path, in))

	out, err := Load(ctx, path)
	require.NoError(t, err)
	require.Len(t, out, len(in))
	for i := range in {
		assert.Equal(t, in[i].Timestamp, out[i].Timestamp, "row %d", i)
		assert.Equal(t, in[i].Severity, out[i].Severity)
		assert.Equal(t, in[i].Pid, out[i].Pid)
		assert.Equal(t, in[i].Machine, out[i].Machine)
		assert.Equal(t, in[i].ExePath, out[i].ExePath)
		assert.Equal(t, in[i].Module, out[i].Module)
		assert.Equal(t, in[i].Channel, out[i].Channel)
		assert.Equal(t, in[i].Message, out[i].Message)
		assert.False(t, out[i].Continuation)
	}
}

func TestSave_Schema(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "schema.lsw")
	require.NoError(t, Save(ctx, path, sampleMessages()))

	db, err := sql.Open(driverName, path)
	require.NoError(t, err)
	defer db.Close()

	var version int
	require.NoError(t, db.QueryRow(`SELECT version FROM lsw`).Scan(&version))
	assert.Equal(t, FormatVersion, version)

	var hosts, channels, processes int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM hosts`).Scan(&hosts))
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM channels`).Scan(&channels))
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM processes`).Scan(&processes))
	assert.Equal(t, 2, hosts)
	assert.Equal(t, 3, channels)
	assert.Equal(t, 2, processes)

	var channel string
	require.NoError(t, db.QueryRow(`SELECT channel FROM log WHERE message = 'slow'`).Scan(&channel))
	assert.Equal(t, "ui-paint", channel)

	var seconds float64
	require.NoError(t, db.QueryRow(`SELECT time FROM messages WHERE message = 'boom'`).Scan(&seconds))
	assert.InDelta(t, 1700000000.123, seconds, 1e-6)
}

func TestSave_SkipsContinuations(t *testing.T) {
	ctx := context.Background()
	st := store.New(store.Options{BreakLines: true}, nil, log.NewLogger())
	st.Add(core.LogMessage{Timestamp: 1, Message: "one\ntwo\nthree"})
	require.Equal(t, 3, st.Len())

	path := filepath.Join(t.TempDir(), "multi.lsw")
	require.NoError(t, Save(ctx, path, st.Messages()))

	out, err := Load(ctx, path)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "one\ntwo\nthree", out[0].Message)
}

func TestSave_Compressed(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "out"+CompressedExt)
	require.NoError(t, Save(ctx, path, sampleMessages()))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x28, 0xb5, 0x2f, 0xfd}, raw[:4])

	out, err := Load(ctx, path)
	require.NoError(t, err)
	assert.Len(t, out, 3)
}

func TestSave_FailureLeavesDestination(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "keep.lsw")
	require.NoError(t, os.WriteFile(path, []byte("previous"), 0o644))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.Error(t, Save(cancelled, path, sampleMessages()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "previous", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files are removed")

	err = Save(ctx, filepath.Join(dir, "missing", "x.lsw"), sampleMessages())
	assert.Error(t, err)
}

func TestLoad_Errors(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	_, err := Load(ctx, filepath.Join(dir, "absent.lsw"))
	assert.ErrorIs(t, err, ErrNotFound)

	corrupt := filepath.Join(dir, "corrupt.lsw")
	require.NoError(t, os.WriteFile(corrupt, []byte("this is not a database file at all, just text padding it out"), 0o644))
	msgs, err := Load(ctx, corrupt)
	assert.Error(t, err)
	assert.Nil(t, msgs)
}

func TestRoundTripMillisecondPrecision(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC).UnixMilli()
	var in []core.LogMessage
	for i := int64(0); i < 1000; i += 7 {
		in = append(in, core.LogMessage{Timestamp: base + i, Message: "x"})
	}

	path := filepath.Join(t.TempDir(), "ms.lsw")
	require.NoError(t, Save(ctx, path, in))
	out, err := Load(ctx, path)
	require.NoError(t, err)
	require.Len(t, out, len(in))
	for i := range in {
		assert.Equal(t, in[i].Timestamp, out[i].Timestamp)
	}
}
