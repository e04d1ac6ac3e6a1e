package worker

import (
	"context"
	"encoding/hex"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/zeebo/blake3"
)

const (
	eventChannelBuffer = 256
	defaultDebounce    = 500 * time.Millisecond
)

// WatchEvent reports a created or changed input file
type WatchEvent struct {
	Rel     string // path relative to the watched directory, slash separated
	AbsPath string
	Created bool // first time the file was seen
}

// Watcher emits debounced events for input files under a directory. Files
// are matched with the batch processor's include patterns; unchanged
// content (by hash) is not reported twice.
type Watcher struct {
	dir      string
	match    func(rel string) bool
	exclude  map[string]bool
	debounce time.Duration
	fsw      *fsnotify.Watcher
	logger   *slog.Logger

	pendingMu sync.Mutex
	pending   map[string]fsnotify.Op

	hashMu sync.Mutex
	hashes map[string]string

	events  chan WatchEvent
	dropped atomic.Int64
}

// NewWatcher creates a watcher for dir. match receives slash separated
// relative paths; exclude names top-level directories that are never
// watched; debounce <= 0 uses 500ms.
func NewWatcher(dir string, match func(rel string) bool, exclude []string, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	excludes := make(map[string]bool, len(exclude))
	for _, e := range exclude {
		excludes[e] = true
	}
	return &Watcher{
		dir:      dir,
		match:    match,
		exclude:  excludes,
		debounce: debounce,
		fsw:      fsw,
		logger:   logger,
		pending:  make(map[string]fsnotify.Op),
		hashes:   make(map[string]string),
		events:   make(chan WatchEvent, eventChannelBuffer),
	}, nil
}

// Events returns the event channel. It is closed when the watcher stops.
func (w *Watcher) Events() <-chan WatchEvent {
	return w.events
}

// Dropped returns how many events were discarded because the channel was full
func (w *Watcher) Dropped() int64 {
	return w.dropped.Load()
}

// Start adds watches for dir and its non-hidden subdirectories and begins
// processing events until ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addRecursive(w.dir); err != nil {
		return err
	}
	go w.loop(ctx)
	w.logger.Info("watching for inputs", "dir", w.dir, "debounce", w.debounce)
	return nil
}

// Stop closes the underlying watcher
func (w *Watcher) Stop() error {
	return w.fsw.Close()
}

// Seen records a content hash so an identical later write is ignored
func (w *Watcher) Seen(rel string, content []byte) {
	w.hashMu.Lock()
	defer w.hashMu.Unlock()
	w.hashes[rel] = contentHash(content)
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.skipDir(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			w.logger.Warn("failed to watch directory", "path", path, "error", err)
		}
		return nil
	})
}

// skipDir excludes hidden directories and the excluded top-level names
func (w *Watcher) skipDir(path string) bool {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return true
	}
	rel, err := filepath.Rel(w.dir, path)
	if err != nil {
		return true
	}
	top := strings.SplitN(filepath.ToSlash(rel), "/", 2)[0]
	return w.exclude[top]
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.events)
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "error", err)
		case <-ticker.C:
			w.flush(ctx)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if !w.skipDir(ev.Name) {
				if err := w.addRecursive(ev.Name); err != nil {
					w.logger.Warn("failed to watch new directory", "path", ev.Name, "error", err)
				}
			}
			return
		}
	}
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return
	}
	rel, err := filepath.Rel(w.dir, ev.Name)
	if err != nil || !w.match(filepath.ToSlash(rel)) {
		return
	}

	w.pendingMu.Lock()
	w.pending[ev.Name] |= ev.Op
	w.pendingMu.Unlock()
}

func (w *Watcher) flush(ctx context.Context) {
	w.pendingMu.Lock()
	if len(w.pending) == 0 {
		w.pendingMu.Unlock()
		return
	}
	batch := w.pending
	w.pending = make(map[string]fsnotify.Op)
	w.pendingMu.Unlock()

	for path := range batch {
		if ctx.Err() != nil {
			return
		}
		content, err := os.ReadFile(path)
		if err != nil {
			// Removed before the debounce fired
			continue
		}
		rel, _ := filepath.Rel(w.dir, path)
		rel = filepath.ToSlash(rel)

		hash := contentHash(content)
		w.hashMu.Lock()
		old, had := w.hashes[rel]
		w.hashes[rel] = hash
		w.hashMu.Unlock()
		if had && old == hash {
			continue
		}

		w.send(WatchEvent{Rel: rel, AbsPath: path, Created: !had})
	}
}

func (w *Watcher) send(ev WatchEvent) {
	select {
	case w.events <- ev:
	default:
		w.dropped.Add(1)
		w.logger.Warn("watch event dropped", "path", ev.Rel)
	}
}

func contentHash(content []byte) string {
	sum := blake3.Sum256(content)
	return hex.EncodeToString(sum[:])
}
