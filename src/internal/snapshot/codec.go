// FILE: logmonitor/src/internal/snapshot/codec.go
package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"logmonitor/src/internal/core"

	"github.com/klauspost/compress/zstd"
	_ "modernc.org/sqlite"
)

const (
	// FormatVersion is stored in the lsw table
	FormatVersion = 3

	Ext           = ".lsw"
	CompressedExt = ".lsw.zst"

	driverName = "sqlite"
)

var ErrNotFound = errors.New("snapshot: file not found")

var schema = []string{
	`CREATE TABLE lsw (version INT)`,
	`CREATE TABLE messages (time REAL, host INT, pid INT, level INT, channel INT, message TEXT)`,
	`CREATE TABLE hosts (id INT, name TEXT)`,
	`CREATE TABLE processes (id INT, module TEXT, process TEXT, host INT)`,
	`CREATE TABLE channels (id INT, facility TEXT, object TEXT)`,
	`CREATE VIEW log AS SELECT m.rowid, '' AS timestamp, m.time, h.name AS host, m.pid, m.level, m.level AS type, p.module, c.facility || '-' || c.object AS channel, m.message, p.process FROM messages AS m, hosts AS h, processes AS p, channels AS c WHERE h.id = m.host AND p.id = m.pid AND c.id = m.channel`,
}

const selectMessages = `SELECT m.time, m.pid, m.level, h.name, c.facility, c.object, m.message, p.process
FROM messages AS m
INNER JOIN hosts AS h ON m.host = h.id
INNER JOIN channels AS c ON m.channel = c.id
INNER JOIN processes AS p ON m.pid = p.id
ORDER BY m.rowid`

// IsCompressed reports whether path names a zstd wrapped snapshot
func IsCompressed(path string) bool {
	return strings.HasSuffix(path, ".zst")
}

// Save writes the primary rows of messages to path. The file is built next to
// the destination and renamed over it, so a failed save leaves path untouched.
// Paths ending in .zst are zstd compressed.
func Save(ctx context.Context, path string, messages []core.LogMessage) error {
	dir := filepath.Dir(path)
	dbFile, err := tempPath(dir, filepath.Base(path))
	if err != nil {
		return err
	}
	defer os.Remove(dbFile)

	if err := writeDatabase(ctx, dbFile, messages); err != nil {
		return err
	}

	final := dbFile
	if IsCompressed(path) {
		zstFile, err := tempPath(dir, filepath.Base(path))
		if err != nil {
			return err
		}
		defer os.Remove(zstFile)

		if err := compressFile(dbFile, zstFile); err != nil {
			return err
		}
		final = zstFile
	}

	if err := os.Rename(final, path); err != nil {
		return fmt.Errorf("replace snapshot %s: %w", path, err)
	}
	return nil
}

func tempPath(dir, base string) (string, error) {
	f, err := os.CreateTemp(dir, "."+base+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp snapshot: %w", err)
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		os.Remove(name)
		return "", fmt.Errorf("create temp snapshot: %w", err)
	}
	return name, nil
}

type channelKey struct {
	module  string
	channel string
}

func writeDatabase(ctx context.Context, path string, messages []core.LogMessage) (err error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return fmt.Errorf("open snapshot database: %w", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close snapshot database: %w", cerr)
		}
	}()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create snapshot schema: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO lsw (version) VALUES (?)`, FormatVersion); err != nil {
		return fmt.Errorf("write snapshot version: %w", err)
	}

	insertMessage, err := tx.PrepareContext(ctx, `INSERT INTO messages (time, host, pid, level, channel, message) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare message insert: %w", err)
	}
	defer insertMessage.Close()

	hosts := make(map[string]int64)
	channels := make(map[channelKey]int64)
	processes := make(map[uint64]string)

	for _, msg := range messages {
		if msg.Continuation {
			continue
		}

		hostID, ok := hosts[msg.Machine]
		if !ok {
			hostID = int64(len(hosts) + 1)
			hosts[msg.Machine] = hostID
			if _, err := tx.ExecContext(ctx, `INSERT INTO hosts (id, name) VALUES (?, ?)`, hostID, msg.Machine); err != nil {
				return fmt.Errorf("insert host: %w", err)
			}
		}

		key := channelKey{module: msg.Module, channel: msg.Channel}
		channelID, ok := channels[key]
		if !ok {
			channelID = int64(len(channels) + 1)
			channels[key] = channelID
			if _, err := tx.ExecContext(ctx, `INSERT INTO channels (id, facility, object) VALUES (?, ?, ?)`, channelID, msg.Module, msg.Channel); err != nil {
				return fmt.Errorf("insert channel: %w", err)
			}
		}

		if _, ok := processes[msg.Pid]; !ok {
			processes[msg.Pid] = msg.ExePath
			if _, err := tx.ExecContext(ctx, `INSERT INTO processes (id, module, process, host) VALUES (?, '', ?, 0)`, int64(msg.Pid), msg.ExePath); err != nil {
				return fmt.Errorf("insert process: %w", err)
			}
		}

		seconds := float64(msg.Timestamp) / 1000.0
		if _, err := insertMessage.ExecContext(ctx, seconds, hostID, int64(msg.Pid), int64(msg.Severity), channelID, msg.Original()); err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

func compressFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open snapshot for compression: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("open compressed snapshot: %w", err)
	}

	enc, err := zstd.NewWriter(out)
	if err != nil {
		out.Close()
		return fmt.Errorf("create zstd encoder: %w", err)
	}
	if _, err := io.Copy(enc, in); err != nil {
		enc.Close()
		out.Close()
		return fmt.Errorf("compress snapshot: %w", err)
	}
	if err := enc.Close(); err != nil {
		out.Close()
		return fmt.Errorf("finish zstd stream: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close compressed snapshot: %w", err)
	}
	return nil
}

func decompressFile(src string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("open compressed snapshot: %w", err)
	}
	defer in.Close()

	dec, err := zstd.NewReader(in)
	if err != nil {
		return "", fmt.Errorf("create zstd decoder: %w", err)
	}
	defer dec.Close()

	out, err := os.CreateTemp("", "logmonitor-*"+Ext)
	if err != nil {
		return "", fmt.Errorf("create temp snapshot: %w", err)
	}
	name := out.Name()
	if _, err := io.Copy(out, dec); err != nil {
		out.Close()
		os.Remove(name)
		return "", fmt.Errorf("decompress snapshot: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(name)
		return "", fmt.Errorf("close temp snapshot: %w", err)
	}
	return name, nil
}

// Load reads every message of a snapshot. On error nothing is returned.
func Load(ctx context.Context, path string) ([]core.LogMessage, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("stat snapshot: %w", err)
	}

	dbFile := path
	if IsCompressed(path) {
		tmp, err := decompressFile(path)
		if err != nil {
			return nil, err
		}
		defer os.Remove(tmp)
		dbFile = tmp
	}

	db, err := sql.Open(driverName, dbFile)
	if err != nil {
		return nil, fmt.Errorf("open snapshot database: %w", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, selectMessages)
	if err != nil {
		return nil, fmt.Errorf("query snapshot: %w", err)
	}
	defer rows.Close()

	var messages []core.LogMessage
	for rows.Next() {
		var (
			seconds                     float64
			pid, level                  int64
			host, module, channel, text string
			process                     sql.NullString
		)
		if err := rows.Scan(&seconds, &pid, &level, &host, &module, &channel, &text, &process); err != nil {
			return nil, fmt.Errorf("read snapshot row: %w", err)
		}
		messages = append(messages, core.LogMessage{
			Timestamp:       int64(math.Round(seconds * 1000)),
			Severity:        core.Severity(level),
			Pid:             uint64(pid),
			Machine:         host,
			ExePath:         process.String,
			Module:          module,
			Channel:         channel,
			Message:         text,
			OriginalMessage: text,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return messages, nil
}
