package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/klauspost/compress/zstd"

	"skyshade.ai/internal/sim/event"
	"skyshade.ai/internal/sim/session"
)

type JSONLZstdWriter struct {
	baseDir string
	prefix  string
	now     func() time.Time

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

func NewJSONLZstdWriter(baseDir, prefix string) *JSONLZstdWriter {
	return &JSONLZstdWriter{
		baseDir: baseDir,
		prefix:  prefix,
		now:     time.Now,
	}
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *JSONLZstdWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	hour := w.now().UTC().Format("2006-01-02-15")
	if hour != w.curHour {
		if err := w.rotateLocked(hour); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *JSONLZstdWriter) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.baseDir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.pathForHour(hour), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 128*1024)
	w.curHour = hour
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var err1 error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err1 = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	w.curHour = ""
	return err1
}

func (w *JSONLZstdWriter) pathForHour(hour string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}

// Entry is one line of a session log: an event, or the closing summary.
type Entry struct {
	event.Event
	Summary *session.Summary `json:"summary,omitempty"`
}

// SessionDir is where a session's log files live.
func SessionDir(dataDir, sessionID string) string {
	return filepath.Join(dataDir, "sessions", sessionID)
}

const defaultSessionBuffer = 8192

// SessionLogger is an event sink that writes a session's events (compressed) from its own
// goroutine. Emit never blocks the tick: when the buffer is full the event is dropped.
type SessionLogger struct {
	w   *JSONLZstdWriter
	dir string

	mu     sync.RWMutex
	closed bool
	ch     chan Entry
	done   chan struct{}

	dropped atomic.Uint64
	failed  atomic.Uint64
	lastErr atomic.Value
}

func NewSessionLogger(dataDir, sessionID string, buffer int) *SessionLogger {
	if buffer <= 0 {
		buffer = defaultSessionBuffer
	}
	dir := SessionDir(dataDir, sessionID)
	l := &SessionLogger{
		w:    NewJSONLZstdWriter(dir, "events"),
		dir:  dir,
		ch:   make(chan Entry, buffer),
		done: make(chan struct{}),
	}
	go l.loop()
	return l
}

func (l *SessionLogger) Dir() string { return l.dir }

func (l *SessionLogger) Emit(e event.Event) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		l.dropped.Add(1)
		return
	}
	select {
	case l.ch <- Entry{Event: e}:
	default:
		l.dropped.Add(1)
	}
}

// WriteSummary queues the closing summary. Unlike Emit it waits for buffer space.
func (l *SessionLogger) WriteSummary(s session.Summary) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return
	}
	l.ch <- Entry{Event: event.Event{Time: s.Elapsed, Kind: event.KindSummary}, Summary: &s}
}

// Stats reports events dropped on a full buffer and lines that failed to write.
func (l *SessionLogger) Stats() (dropped, failed uint64) {
	return l.dropped.Load(), l.failed.Load()
}

// Err returns the last write error, if any.
func (l *SessionLogger) Err() error {
	if v, ok := l.lastErr.Load().(errBox); ok {
		return v.err
	}
	return nil
}

// Close drains the buffer and closes the file.
func (l *SessionLogger) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		<-l.done
		return nil
	}
	l.closed = true
	close(l.ch)
	l.mu.Unlock()
	<-l.done
	return l.w.Close()
}

// errBox keeps atomic.Value happy across concrete error types.
type errBox struct{ err error }

func (l *SessionLogger) loop() {
	defer close(l.done)
	for e := range l.ch {
		if err := l.w.Write(e); err != nil {
			l.failed.Add(1)
			l.lastErr.Store(errBox{err})
		}
	}
}
