// Package watch reports changes of a single input file, debounced, so that
// a compilation can be re-run after an editor saves the CLAML document.
package watch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	// eventChannelBuffer is the size of the watch event channel.
	eventChannelBuffer = 16

	// DefaultDebounce is used when no debounce delay is configured.
	DefaultDebounce = 500 * time.Millisecond

	minTick = 10 * time.Millisecond
)

// Operation indicates the type of file change.
type Operation string

// OpWrite and OpRemove enumerate the reported change types.
const (
	OpWrite  Operation = "write"
	OpRemove Operation = "remove"
)

// Event is a settled change of the watched file.
type Event struct {
	// Path is the watched file path.
	Path string

	// Operation is the type of change.
	Operation Operation

	// Time is when the last underlying change was seen.
	Time time.Time
}

// Watcher watches one file and emits an Event once the file has been quiet
// for the debounce delay. Writes that leave the content unchanged are not
// reported.
type Watcher struct {
	path     string
	debounce time.Duration
	watcher  *fsnotify.Watcher
	logger   *slog.Logger

	pendingMu  sync.Mutex
	pending    bool
	lastChange time.Time

	hash string

	events chan Event

	droppedEvents atomic.Int64
}

// New creates a watcher for path. A non-positive debounce selects
// DefaultDebounce.
func New(path string, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	if path == "" {
		return nil, errors.New("watch path is required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve watch path: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}

	return &Watcher{
		path:     abs,
		debounce: debounce,
		watcher:  fsw,
		logger:   logger,
		events:   make(chan Event, eventChannelBuffer),
	}, nil
}

// Path returns the absolute path of the watched file.
func (w *Watcher) Path() string {
	return w.path
}

// Events returns the channel of watch events. It is closed when the
// watcher stops.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Start begins watching. The parent directory is watched rather than the
// file, so saves that replace the file by rename are seen.
func (w *Watcher) Start(ctx context.Context) error {
	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	if content, err := os.ReadFile(w.path); err == nil {
		w.hash = contentHash(content)
	}

	go w.processEvents(ctx)

	w.logger.Info("File watcher started",
		"path", w.path,
		"debounce", w.debounce)

	return nil
}

// Stop stops the watcher.
// The events channel is closed by processEvents when it exits.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

// DroppedEvents returns the number of events dropped due to channel overflow.
func (w *Watcher) DroppedEvents() int64 {
	return w.droppedEvents.Load()
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.events)
	tick := w.debounce / 2
	if tick < minTick {
		tick = minTick
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Watcher error", "error", err)

		case now := <-ticker.C:
			w.flushPending(now)
		}
	}
}

func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	if event.Op == fsnotify.Chmod {
		return
	}

	w.pendingMu.Lock()
	w.pending = true
	w.lastChange = time.Now()
	w.pendingMu.Unlock()

	w.logger.Debug("Input change detected",
		"path", w.path,
		"op", event.Op.String())
}

// flushPending emits the accumulated change once the file has been quiet
// for the debounce delay.
func (w *Watcher) flushPending(now time.Time) {
	w.pendingMu.Lock()
	if !w.pending || now.Sub(w.lastChange) < w.debounce {
		w.pendingMu.Unlock()
		return
	}
	w.pending = false
	last := w.lastChange
	w.pendingMu.Unlock()

	event := Event{Path: w.path, Time: last}

	content, err := os.ReadFile(w.path)
	if err != nil {
		if !os.IsNotExist(err) {
			w.logger.Warn("Failed to read file for hash check",
				"path", w.path,
				"error", err)
			return
		}
		if w.hash == "" {
			return
		}
		w.hash = ""
		event.Operation = OpRemove
		w.sendEvent(event)
		return
	}

	newHash := contentHash(content)
	if newHash == w.hash {
		w.logger.Debug("Input content unchanged", "path", w.path)
		return
	}
	w.hash = newHash
	event.Operation = OpWrite
	w.sendEvent(event)
}

func (w *Watcher) sendEvent(event Event) {
	select {
	case w.events <- event:
		w.logger.Debug("Sent watch event",
			"path", event.Path,
			"op", event.Operation)
	default:
		dropped := w.droppedEvents.Add(1)
		w.logger.Warn("Event channel full, dropping event",
			"path", event.Path,
			"total_dropped", dropped)
	}
}

func contentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
