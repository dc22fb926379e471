// Package activity is the operator-facing log box: short human-readable
// lines, newest first, bounded in length.
package activity

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"apctl/internal/view"
)

// DefaultLimit is the number of entries kept.
const DefaultLimit = 200

// Entry is one line of the log box.
type Entry struct {
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
}

// String formats an entry as "[15:04:05] message".
func (e Entry) String() string {
	return fmt.Sprintf("[%s] %s", e.Time.Format("15:04:05"), e.Message)
}

// Log is safe for concurrent use.
type Log struct {
	mu      sync.Mutex
	entries []Entry
	limit   int
	logger  *slog.Logger
	bus     *view.Feed
	now     func() time.Time
}

// New creates a log. bus may be nil.
func New(logger *slog.Logger, bus *view.Feed, limit int) *Log {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{
		limit:  limit,
		logger: logger.With("component", "activity"),
		bus:    bus,
		now:    time.Now,
	}
}

// Add prepends a line and mirrors it to slog.
func (l *Log) Add(format string, args ...any) {
	e := Entry{Time: l.now(), Message: fmt.Sprintf(format, args...)}

	l.mu.Lock()
	l.entries = append([]Entry{e}, l.entries...)
	if len(l.entries) > l.limit {
		l.entries = l.entries[:l.limit]
	}
	l.mu.Unlock()

	l.logger.Info(e.Message)
	if l.bus != nil {
		l.bus.Publish(view.Event{Type: view.EventLog, Data: e})
	}
}

// Entries returns a copy, newest first.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Clear empties a non-empty log and records that it did so. An empty log
// is left untouched and Clear reports false.
func (l *Log) Clear() bool {
	l.mu.Lock()
	if len(l.entries) == 0 {
		l.mu.Unlock()
		return false
	}
	l.entries = nil
	l.mu.Unlock()

	l.Add("Log cleared")
	return true
}

// Text renders the log as the box shows it, one entry per line.
func (l *Log) Text() string {
	var b strings.Builder
	for _, e := range l.Entries() {
		b.WriteString(e.String())
		b.WriteByte('\n')
	}
	return b.String()
}
