// Package watch observes skill and registry files for changes and
// emits debounced rebuild triggers. Consumers get one event per quiet
// period, carrying every path that changed since the last flush.
package watch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

const eventChannelBuffer = 16

// Config configures the file watcher.
type Config struct {
	// DebounceDelay is how long to wait for more changes before
	// emitting a rebuild trigger.
	DebounceDelay time.Duration

	// Extensions lists watched file extensions.
	Extensions []string

	// ExcludeDirs lists directory names to skip.
	ExcludeDirs []string
}

// DefaultConfig returns the default watch configuration: markdown rule
// documents plus YAML registries, ignoring VCS and build output.
func DefaultConfig() Config {
	return Config{
		DebounceDelay: 500 * time.Millisecond,
		Extensions:    []string{".md", ".yaml", ".yml"},
		ExcludeDirs:   []string{".git", "node_modules", "build"},
	}
}

// Event is one debounced batch of changed files.
type Event struct {
	// Paths holds the changed file paths, sorted.
	Paths []string
}

// Watcher watches one or more root directories recursively.
type Watcher struct {
	cfg     Config
	roots   []string
	watcher *fsnotify.Watcher
	logger  *slog.Logger

	extensions map[string]bool
	excludes   map[string]bool

	pendingMu sync.Mutex
	pending   map[string]struct{}

	// Content hashes let no-op writes (editor saves with no change)
	// pass without triggering a rebuild.
	hashMu sync.RWMutex
	hashes map[string]string

	events  chan Event
	dropped atomic.Int64
}

// New creates a Watcher over the given roots. A nil logger falls back
// to slog.Default.
func New(cfg Config, roots []string, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 500 * time.Millisecond
	}

	extensions := make(map[string]bool)
	for _, ext := range cfg.Extensions {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		extensions[ext] = true
	}
	if len(extensions) == 0 {
		extensions[".md"] = true
	}

	excludes := make(map[string]bool)
	for _, dir := range cfg.ExcludeDirs {
		excludes[dir] = true
	}

	return &Watcher{
		cfg:        cfg,
		roots:      roots,
		watcher:    fsw,
		logger:     logger,
		extensions: extensions,
		excludes:   excludes,
		pending:    make(map[string]struct{}),
		hashes:     make(map[string]string),
		events:     make(chan Event, eventChannelBuffer),
	}, nil
}

// Events returns the channel of debounced rebuild triggers.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Start adds recursive watches and begins event processing. The events
// channel closes when ctx is cancelled or the watcher stops.
func (w *Watcher) Start(ctx context.Context) error {
	for _, root := range w.roots {
		if err := w.addWatchesRecursive(root); err != nil {
			return err
		}
	}

	go w.processEvents(ctx)

	w.logger.Info("Watcher started",
		slog.Any("roots", w.roots),
		slog.Duration("debounce", w.cfg.DebounceDelay))
	return nil
}

// Stop stops the underlying fsnotify watcher.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

// DroppedEvents returns the number of triggers dropped because the
// consumer fell behind.
func (w *Watcher) DroppedEvents() int64 {
	return w.dropped.Load()
}

func (w *Watcher) addWatchesRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}

		base := filepath.Base(path)
		if w.excludes[base] || (strings.HasPrefix(base, ".") && base != ".") {
			return filepath.SkipDir
		}

		if err := w.watcher.Add(path); err != nil {
			w.logger.Warn("Failed to watch directory",
				slog.String("path", path),
				slog.String("error", err.Error()))
		}
		return nil
	})
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.events)
	ticker := time.NewTicker(w.cfg.DebounceDelay)
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
			w.logger.Error("Watcher error", slog.String("error", err.Error()))

		case <-ticker.C:
			w.flushPending()
		}
	}
}

func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	path := event.Name

	ext := strings.ToLower(filepath.Ext(path))
	if !w.extensions[ext] {
		// New directories need their own watch.
		if event.Has(fsnotify.Create) {
			if info, err := os.Stat(path); err == nil && info.IsDir() {
				w.handleNewDirectory(path)
			}
		}
		return
	}

	for excludeDir := range w.excludes {
		if strings.Contains(path, string(filepath.Separator)+excludeDir+string(filepath.Separator)) {
			return
		}
	}

	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		w.hashMu.Lock()
		delete(w.hashes, path)
		w.hashMu.Unlock()
	}

	w.pendingMu.Lock()
	w.pending[path] = struct{}{}
	w.pendingMu.Unlock()

	w.logger.Debug("Change detected",
		slog.String("path", path),
		slog.String("op", event.Op.String()))
}

func (w *Watcher) handleNewDirectory(path string) {
	base := filepath.Base(path)
	if w.excludes[base] || strings.HasPrefix(base, ".") {
		return
	}
	if err := w.watcher.Add(path); err != nil {
		w.logger.Warn("Failed to watch new directory",
			slog.String("path", path),
			slog.String("error", err.Error()))
	}
}

// contentChanged hashes the file and reports whether its content
// differs from the last observed hash. It runs at flush time, after
// the debounce quiet period, so truncate-then-write saves are hashed
// once settled rather than mid-write. Missing files count as changed
// so deletions surface.
func (w *Watcher) contentChanged(path string) bool {
	content, err := os.ReadFile(path)
	if err != nil {
		return true
	}
	sum := sha256.Sum256(content)
	newHash := hex.EncodeToString(sum[:])

	w.hashMu.Lock()
	defer w.hashMu.Unlock()
	if w.hashes[path] == newHash {
		return false
	}
	w.hashes[path] = newHash
	return true
}

func (w *Watcher) flushPending() {
	w.pendingMu.Lock()
	if len(w.pending) == 0 {
		w.pendingMu.Unlock()
		return
	}
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]struct{})
	w.pendingMu.Unlock()

	// No-op saves drop out here: the settled content hashes the same
	// as last time.
	changed := paths[:0]
	for _, p := range paths {
		if w.contentChanged(p) {
			changed = append(changed, p)
		}
	}
	paths = changed
	if len(paths) == 0 {
		return
	}

	sort.Strings(paths)

	select {
	case w.events <- Event{Paths: paths}:
	default:
		dropped := w.dropped.Add(1)
		w.logger.Warn("Event channel full, dropping trigger",
			slog.Int("paths", len(paths)),
			slog.Int64("total_dropped", dropped))
	}
}
