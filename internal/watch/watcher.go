// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package watch polls a directory for snapshot files and verifies each new or
// changed snapshot.
package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/holomush/niche/internal/config"
	"github.com/holomush/niche/internal/inspect"
	"github.com/holomush/niche/internal/snapshot"
	"github.com/holomush/niche/pkg/errutil"
)

// CodeDir is returned when the watched directory cannot be listed.
const CodeDir = "WATCH_DIR"

// Defaults for watcher timing.
const (
	// DefaultBackoff is the first delay between load attempts.
	DefaultBackoff = 100 * time.Millisecond
	// DefaultDebounce is how long a burst of file events settles before a scan.
	DefaultDebounce = 250 * time.Millisecond
)

// Outcome is the result of verifying one snapshot file.
type Outcome struct {
	Path   string
	Report inspect.Report
	// Err is set when the file could not be loaded after every attempt.
	Err error
}

// fileState identifies one version of a file.
type fileState struct {
	modTime time.Time
	size    int64
}

func (s fileState) same(o fileState) bool {
	return s.size == o.size && s.modTime.Equal(o.modTime)
}

// Watcher polls a directory and verifies snapshot files whose base name
// matches a glob pattern.
type Watcher struct {
	dir       string
	glob      string
	pattern   glob.Glob
	interval  time.Duration
	attempts  uint64
	backoff   time.Duration
	notify    bool
	debounce  time.Duration
	inspector *inspect.Inspector
	logger    *slog.Logger
	handler   func(Outcome)

	mu    sync.Mutex
	seen  map[string]fileState
	ready atomic.Bool
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// WithBackoff sets the first delay between load attempts. Later delays
// grow exponentially.
func WithBackoff(d time.Duration) Option {
	return func(w *Watcher) {
		w.backoff = d
	}
}

// WithDebounce sets how long file events settle before they trigger a scan.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// WithHandler registers fn to receive every outcome. fn runs on the polling
// goroutine.
func WithHandler(fn func(Outcome)) Option {
	return func(w *Watcher) {
		w.handler = fn
	}
}

// New creates a Watcher for cfg. The inspector verifies each snapshot.
func New(cfg config.WatchConfig, inspector *inspect.Inspector, opts ...Option) (*Watcher, error) {
	if inspector == nil {
		return nil, oops.Errorf("inspector is required")
	}
	if cfg.Dir == "" {
		return nil, oops.Errorf("watch directory is required")
	}
	if cfg.Interval <= 0 {
		return nil, oops.With("interval", cfg.Interval).Errorf("watch interval must be positive")
	}
	pattern, err := glob.Compile(cfg.Pattern)
	if err != nil {
		return nil, oops.With("pattern", cfg.Pattern).Wrapf(err, "compiling watch pattern")
	}

	w := &Watcher{
		dir:       cfg.Dir,
		glob:      cfg.Pattern,
		pattern:   pattern,
		interval:  cfg.Interval,
		attempts:  max(cfg.LoadAttempts, 1),
		backoff:   DefaultBackoff,
		notify:    cfg.Notify,
		debounce:  DefaultDebounce,
		inspector: inspector,
		seen:      make(map[string]fileState),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}
	w.logger = w.logger.With("dir", w.dir)
	return w, nil
}

// Ready reports whether the first scan has completed.
func (w *Watcher) Ready() bool {
	return w.ready.Load()
}

// Run scans immediately and then once per interval until ctx is cancelled.
// When file notifications are enabled, changes in the directory also trigger
// a scan once they have settled. Scan errors are logged and do not stop the
// watcher.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.InfoContext(ctx, "watching for snapshots",
		"pattern", w.glob, "interval", w.interval, "notify", w.notify)

	var (
		events <-chan fsnotify.Event
		errs   <-chan error
	)
	if fsw := w.startNotify(ctx); fsw != nil {
		defer func() { _ = fsw.Close() }()
		events, errs = fsw.Events, fsw.Errors
	}

	w.poll(ctx)
	w.ready.Store(true)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	var settle <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			w.logger.InfoContext(ctx, "watcher stopped")
			return nil
		case <-ticker.C:
			w.poll(ctx)
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if settle == nil && w.pattern.Match(filepath.Base(ev.Name)) {
				settle = time.After(w.debounce)
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			w.logger.WarnContext(ctx, "file notification error", "error", err)
		case <-settle:
			settle = nil
			w.poll(ctx)
		}
	}
}

// startNotify subscribes to file events in the watched directory. It returns
// nil when notifications are disabled or unavailable; polling still runs.
func (w *Watcher) startNotify(ctx context.Context) *fsnotify.Watcher {
	if !w.notify {
		return nil
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.logger.WarnContext(ctx, "file notifications unavailable, polling only", "error", err)
		return nil
	}
	if err := fsw.Add(w.dir); err != nil {
		_ = fsw.Close()
		w.logger.WarnContext(ctx, "file notifications unavailable, polling only", "error", err)
		return nil
	}
	return fsw
}

func (w *Watcher) poll(ctx context.Context) {
	if _, err := w.Scan(ctx); err != nil && ctx.Err() == nil {
		errutil.LogError(w.logger, "snapshot scan failed", err)
	}
}

// Scan verifies every matching file that is new or changed since the last
// scan and returns the outcomes in path order. Files that disappeared are
// forgotten so they are verified again if they return.
func (w *Watcher) Scan(ctx context.Context) ([]Outcome, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, oops.Code(CodeDir).With("dir", w.dir).Wrapf(err, "listing watch directory")
	}

	current := make(map[string]fileState, len(entries))
	for _, e := range entries {
		if e.IsDir() || !w.pattern.Match(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// Removed between listing and stat.
			continue
		}
		current[filepath.Join(w.dir, e.Name())] = fileState{modTime: info.ModTime(), size: info.Size()}
	}

	w.mu.Lock()
	var changed []string
	for path, state := range current {
		if prev, ok := w.seen[path]; !ok || !prev.same(state) {
			changed = append(changed, path)
		}
	}
	for path := range w.seen {
		if _, ok := current[path]; !ok {
			delete(w.seen, path)
		}
	}
	w.mu.Unlock()

	sort.Strings(changed)

	outcomes := make([]Outcome, 0, len(changed))
	for _, path := range changed {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}
		out := w.verify(ctx, path)
		if ctx.Err() != nil {
			return outcomes, ctx.Err()
		}
		// A file that failed every attempt is not retried until it changes.
		w.mu.Lock()
		w.seen[path] = current[path]
		w.mu.Unlock()
		outcomes = append(outcomes, out)
		if w.handler != nil {
			w.handler(out)
		}
	}
	return outcomes, nil
}

func (w *Watcher) verify(ctx context.Context, path string) Outcome {
	var snap *snapshot.Snapshot
	backoff := retry.WithMaxRetries(w.attempts-1, retry.NewExponential(w.backoff))
	err := retry.Do(ctx, backoff, func(_ context.Context) error {
		var err error
		snap, err = snapshot.Load(path)
		if err != nil && retryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		if ctx.Err() == nil {
			w.inspector.RecordLoadFailure(err)
			errutil.LogError(w.logger.With("path", path), "snapshot load failed", err)
		}
		return Outcome{Path: path, Err: err}
	}
	return Outcome{Path: path, Report: w.inspector.Inspect(ctx, path, snap)}
}

// retryable reports whether a load error may clear up on its own, such as a
// file still being written.
func retryable(err error) bool {
	switch errutil.Code(err) {
	case snapshot.CodeVersion, snapshot.CodeID:
		return false
	default:
		return true
	}
}
