// Package watch re-lints the corpus whenever note files change. Events are
// debounced so a burst of editor saves triggers one run, and every run
// re-checks cross-file invariants like links and the topic index.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"prepkit/internal/catalog"
	"prepkit/internal/lint"
)

const (
	defaultDebounce = 500 * time.Millisecond
	tickInterval    = 100 * time.Millisecond
)

// Stats tracks watcher activity.
type Stats struct {
	Created       int
	Modified      int
	Removed       int
	Relints       int
	Errors        int
	LastEvent     time.Time
	LastEventPath string
	LastEventOp   string
}

// Handler receives the result of each re-lint run.
type Handler func(corpus *catalog.Corpus, report *lint.Report)

// Watcher connects fsnotify to the scanner and lint runner.
type Watcher struct {
	mu          sync.RWMutex
	fs          *fsnotify.Watcher
	scanner     *catalog.Scanner
	runner      *lint.Runner
	handler     Handler
	roots       []string
	debounceMap map[string]time.Time
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
	log         *zap.Logger
	stats       Stats
}

// New builds a watcher over the given roots. debounce <= 0 uses the
// default settle window.
func New(roots []string, scanner *catalog.Scanner, runner *lint.Runner,
	handler Handler, debounce time.Duration, log *zap.Logger) (*Watcher, error) {

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Watcher{
		fs:          fs,
		scanner:     scanner,
		runner:      runner,
		handler:     handler,
		roots:       roots,
		debounceMap: make(map[string]time.Time),
		debounceDur: debounce,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
		log:         log.Named("watch"),
	}, nil
}

// Start registers the roots and their subdirectories and begins the event
// loop. Non-blocking.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	for _, root := range w.roots {
		if err := w.addRecursive(root); err != nil {
			w.log.Warn("watch root failed", zap.String("root", root), zap.Error(err))
		}
	}
	w.log.Info("watching for changes",
		zap.Strings("roots", w.roots),
		zap.Duration("debounce", w.debounceDur))

	go w.run(ctx)
	return nil
}

// Stop shuts the event loop down and waits for it to finish.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.fs.Close(); err != nil {
		w.log.Warn("close watcher", zap.Error(err))
	}
	w.log.Debug("watcher stopped")
}

// Running reports whether the event loop is active.
func (w *Watcher) Running() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

// Stats returns a snapshot of watcher activity.
func (w *Watcher) Stats() Stats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stats
}

// addRecursive watches dir and every subdirectory the scanner would visit.
func (w *Watcher) addRecursive(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if skipDir(info.Name()) && path != dir {
			return filepath.SkipDir
		}
		if err := w.fs.Add(path); err != nil {
			w.log.Debug("watch add failed", zap.String("dir", path), zap.Error(err))
		}
		return nil
	})
}

// skipDir mirrors the scanner's rules: hidden directories and dependency
// trees never hold notes.
func skipDir(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	return name == "node_modules" || name == "vendor"
}

func isMarkdown(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return true
	}
	return false
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return

		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", zap.Error(err))
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()

		case <-ticker.C:
			w.processSettled(ctx)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	// A new subdirectory has to be watched before its files produce events.
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !skipDir(filepath.Base(event.Name)) {
				if err := w.addRecursive(event.Name); err != nil {
					w.log.Debug("watch new dir failed", zap.String("dir", event.Name), zap.Error(err))
				}
			}
			return
		}
	}

	if !isMarkdown(event.Name) {
		return
	}

	var op string
	switch {
	case event.Op&fsnotify.Create != 0:
		op = "create"
	case event.Op&fsnotify.Write != 0:
		op = "write"
	case event.Op&fsnotify.Remove != 0:
		op = "remove"
	case event.Op&fsnotify.Rename != 0:
		op = "rename"
	default:
		return
	}

	w.log.Debug("file event", zap.String("op", op), zap.String("path", event.Name))

	w.mu.Lock()
	w.stats.LastEvent = time.Now()
	w.stats.LastEventPath = event.Name
	w.stats.LastEventOp = op
	switch op {
	case "create":
		w.stats.Created++
	case "write":
		w.stats.Modified++
	case "remove", "rename":
		w.stats.Removed++
	}
	w.debounceMap[event.Name] = time.Now()
	w.mu.Unlock()
}

// processSettled re-lints once when every pending change is older than the
// debounce window. Changes arriving mid-window extend it.
func (w *Watcher) processSettled(ctx context.Context) {
	w.mu.Lock()
	if len(w.debounceMap) == 0 {
		w.mu.Unlock()
		return
	}
	now := time.Now()
	for _, eventTime := range w.debounceMap {
		if now.Sub(eventTime) < w.debounceDur {
			w.mu.Unlock()
			return
		}
	}
	changed := len(w.debounceMap)
	w.debounceMap = make(map[string]time.Time)
	w.mu.Unlock()

	w.log.Debug("changes settled", zap.Int("files", changed))
	w.Relint(ctx)
}

// Relint rescans the corpus and runs the full rule set. Link targets and
// the topic index depend on other files, so a single changed note still
// needs a corpus-wide check.
func (w *Watcher) Relint(ctx context.Context) {
	corpus, err := w.scanner.Scan(ctx)
	if err != nil {
		w.log.Error("rescan failed", zap.Error(err))
		w.mu.Lock()
		w.stats.Errors++
		w.mu.Unlock()
		return
	}

	report, err := w.runner.Run(ctx, corpus)
	if err != nil {
		w.log.Error("relint failed", zap.Error(err))
		w.mu.Lock()
		w.stats.Errors++
		w.mu.Unlock()
		return
	}

	w.mu.Lock()
	w.stats.Relints++
	w.mu.Unlock()

	if w.handler != nil {
		w.handler(corpus, report)
	}
}
