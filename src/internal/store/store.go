// FILE: logmonitor/src/internal/store/store.go
package store

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"logmonitor/src/internal/core"

	"github.com/lixenwraith/log"
)

// DefaultMaxMessages is the server mode capacity when none is configured
const DefaultMaxMessages = 10000

// ErrNoAutosaver is returned when server mode overflows without a snapshot target
var ErrNoAutosaver = errors.New("store: no autosaver configured")

// Autosaver writes the current contents somewhere durable and returns the path
type Autosaver interface {
	Autosave(messages []core.LogMessage) (string, error)
}

// Formatter renders one row for text export
type Formatter interface {
	Format(msg core.LogMessage) ([]byte, error)
}

// Options controls capacity and multiline behaviour
type Options struct {
	ServerMode  bool
	MaxMessages int
	BreakLines  bool
}

// Store is the ordered message buffer shared by the live and file backends.
// Writers are expected to come from a single event loop; the lock exists for
// readers on other goroutines.
type Store struct {
	mu        sync.RWMutex
	messages  []core.LogMessage
	stats     core.Statistics
	running   [core.SeverityCount]RunningCount
	opts      Options
	autosaver Autosaver
	logger    *log.Logger

	subsMu      sync.RWMutex
	subscribers map[uint64]chan Event
	nextSubID   uint64

	// Statistics
	totalAdded       atomic.Uint64
	autosaves        atomic.Uint64
	autosaveFailures atomic.Uint64
	droppedEvents    atomic.Uint64
}

// New creates an empty store
func New(opts Options, autosaver Autosaver, logger *log.Logger) *Store {
	if opts.MaxMessages <= 0 {
		opts.MaxMessages = DefaultMaxMessages
	}
	return &Store{
		opts:        opts,
		autosaver:   autosaver,
		logger:      logger,
		subscribers: make(map[uint64]chan Event),
	}
}

// Add accepts one complete message. In server mode a full store is
// autosaved and cleared first; if the autosave fails the message is
// still accepted and nothing is cleared.
func (s *Store) Add(msg core.LogMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.opts.ServerMode && len(s.messages) >= s.opts.MaxMessages {
		s.evictLocked()
	}

	msg.OriginalMessage = msg.Message
	msg.Continuation = false
	s.stats.Count(msg.Severity)
	if msg.Severity.Valid() {
		s.running[msg.Severity].Add()
	}
	s.totalAdded.Add(1)

	rows := s.expand(msg)
	first := len(s.messages)
	s.messages = append(s.messages, rows...)

	s.publishLocked(Event{
		Type:     EventInserted,
		First:    first,
		Last:     len(s.messages) - 1,
		Messages: rows,
	})
}

// Load replaces the contents with messages read from a snapshot and
// recomputes the statistics. Running counts are not touched.
func (s *Store) Load(messages []core.LogMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = s.messages[:0]
	s.stats.Reset()
	for _, msg := range messages {
		msg.Continuation = false
		if msg.OriginalMessage == "" {
			msg.OriginalMessage = msg.Message
		}
		msg.Message = msg.OriginalMessage
		s.stats.Count(msg.Severity)
		s.messages = append(s.messages, s.expand(msg)...)
	}

	s.publishLocked(Event{Type: EventReset})
}

// expand returns the rows for a primary message, split on line breaks
// when break-lines is enabled
func (s *Store) expand(msg core.LogMessage) []core.LogMessage {
	if !s.opts.BreakLines || !strings.Contains(msg.OriginalMessage, "\n") {
		return []core.LogMessage{msg}
	}

	lines := strings.Split(msg.OriginalMessage, "\n")
	rows := make([]core.LogMessage, len(lines))

	rows[0] = msg
	rows[0].Message = lines[0]
	for i := 1; i < len(lines); i++ {
		row := msg
		row.Message = lines[i]
		row.OriginalMessage = ""
		row.Continuation = true
		rows[i] = row
	}
	return rows
}

// Clear drops all rows and zeroes the severity statistics.
// Connected clients are kept.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
}

func (s *Store) clearLocked() {
	s.messages = nil
	s.stats.Reset()
	s.publishLocked(Event{Type: EventCleared})
}

// evictLocked snapshots and clears the store; on failure the rows stay
func (s *Store) evictLocked() {
	path, err := s.autosaveLocked()
	if err != nil {
		s.autosaveFailures.Add(1)
		s.logger.Error("msg", "Autosave failed, keeping messages past capacity",
			"component", "store",
			"messages", len(s.messages),
			"max_messages", s.opts.MaxMessages,
			"error", err)
		return
	}

	s.autosaves.Add(1)
	s.logger.Info("msg", "Store capacity reached, autosaved and cleared",
		"component", "store",
		"path", path,
		"messages", len(s.messages))
	s.publishLocked(Event{Type: EventAutosaved, Path: path})
	s.clearLocked()
}

func (s *Store) autosaveLocked() (string, error) {
	if s.autosaver == nil {
		return "", ErrNoAutosaver
	}
	path, err := s.autosaver.Autosave(s.messages)
	if err != nil {
		return "", fmt.Errorf("autosave: %w", err)
	}
	return path, nil
}

// Save writes the current contents through the autosaver without clearing
func (s *Store) Save() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.autosaveLocked()
}

// SetBreakLines toggles multiline splitting and re-lays out existing rows
func (s *Store) SetBreakLines(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.opts.BreakLines == on {
		return
	}
	s.opts.BreakLines = on

	if on {
		s.explodeLocked()
		s.publishLocked(Event{Type: EventReset})
		return
	}
	for _, removed := range s.collapseLocked() {
		s.publishLocked(removed)
	}
}

func (s *Store) explodeLocked() {
	out := make([]core.LogMessage, 0, len(s.messages))
	for _, msg := range s.messages {
		if msg.Continuation {
			continue
		}
		out = append(out, s.expand(msg)...)
	}
	s.messages = out
}

// collapseLocked drops continuation rows. Each run of dropped rows becomes
// one removal event, indexed as if the earlier runs were already gone.
func (s *Store) collapseLocked() []Event {
	var removed []Event
	out := s.messages[:0]
	for _, msg := range s.messages {
		if msg.Continuation {
			idx := len(out)
			if n := len(removed); n > 0 && removed[n-1].First == idx {
				removed[n-1].Last++
			} else {
				removed = append(removed, Event{Type: EventRemoved, First: idx, Last: idx})
			}
			continue
		}
		msg.Message = msg.Original()
		out = append(out, msg)
	}
	clear(s.messages[len(out):])
	s.messages = out
	return removed
}

// SetServerMode switches capacity enforcement and applies it immediately
func (s *Store) SetServerMode(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opts.ServerMode = on
	s.checkCapacityLocked()
}

// SetMaxMessages changes the server mode capacity and applies it immediately
func (s *Store) SetMaxMessages(n int) {
	if n <= 0 {
		n = DefaultMaxMessages
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opts.MaxMessages = n
	s.checkCapacityLocked()
}

func (s *Store) checkCapacityLocked() {
	if s.opts.ServerMode && len(s.messages) > s.opts.MaxMessages {
		s.evictLocked()
	}
}

// Options returns the current settings
func (s *Store) Options() Options {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.opts
}

// Tick advances every running count by one slot
func (s *Store) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.running {
		s.running[i].Update()
	}
}

// RunningCount returns the events seen for sev inside the sliding window
func (s *Store) RunningCount(sev core.Severity) int {
	if !sev.Valid() {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running[sev].Get()
}

// RunningCounts returns the window totals keyed by severity name
func (s *Store) RunningCounts() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]int, core.SeverityCount)
	for i := range s.running {
		out[core.Severity(i).String()] = s.running[i].Get()
	}
	return out
}

// ClientConnected records a new producer
func (s *Store) ClientConnected(c core.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.Clients++
	s.publishLocked(Event{Type: EventClientConnected, Client: &c})
}

// ClientDisconnected forgets a producer
func (s *Store) ClientDisconnected(c core.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stats.Clients > 0 {
		s.stats.Clients--
	}
	s.publishLocked(Event{Type: EventClientDisconnected, Client: &c})
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

func (s *Store) Message(i int) (core.LogMessage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i < 0 || i >= len(s.messages) {
		return core.LogMessage{}, false
	}
	return s.messages[i], true
}

// Messages returns a copy of all rows
func (s *Store) Messages() []core.LogMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.LogMessage(nil), s.messages...)
}

func (s *Store) Statistics() core.Statistics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// WriteText exports every row, one formatted line each
func (s *Store) WriteText(w io.Writer, f Formatter) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i, msg := range s.messages {
		line, err := f.Format(msg)
		if err != nil {
			return fmt.Errorf("format row %d: %w", i, err)
		}
		if _, err := w.Write(line); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	return nil
}

// GetStats returns counters for status reporting
func (s *Store) GetStats() map[string]any {
	opts := s.Options()
	return map[string]any{
		"rows":              s.Len(),
		"total_added":       s.totalAdded.Load(),
		"autosaves":         s.autosaves.Load(),
		"autosave_failures": s.autosaveFailures.Load(),
		"dropped_events":    s.droppedEvents.Load(),
		"server_mode":       opts.ServerMode,
		"max_messages":      opts.MaxMessages,
		"break_lines":       opts.BreakLines,
	}
}

// Subscribe registers a change listener. The returned function unsubscribes
// and closes the channel.
func (s *Store) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	s.subsMu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = ch
	s.subsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subsMu.Lock()
			delete(s.subscribers, id)
			s.subsMu.Unlock()
			close(ch)
		})
	}
}

// publishLocked never blocks; slow subscribers lose events
func (s *Store) publishLocked(ev Event) {
	s.subsMu.RLock()
	defer s.subsMu.RUnlock()

	for _, ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
			s.droppedEvents.Add(1)
		}
	}
}
