package core

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Reloader owns the currently published snapshot and rebuilds it when the
// capability source changes. Publication is a single atomic pointer swap:
// readers never lock and never observe a partially built table.
//
// Build scheduling follows a small state machine (Idle -> BuildPending ->
// Building -> Idle): at most one build runs at a time, and any triggers that
// arrive mid-build coalesce into exactly one follow-up build.
type Reloader struct {
	builder  *Builder
	source   Source
	logger   Logger
	debounce time.Duration

	current atomic.Pointer[Snapshot]
	version atomic.Uint64

	mu       sync.Mutex
	building bool
	pending  bool

	watcher   *fsnotify.Watcher
	watchOnce sync.Once
	closed    chan struct{}
}

// NewReloader creates a reloader for the given source. Call Load before
// serving traffic, then optionally Watch to react to source changes.
func NewReloader(builder *Builder, source Source, logger Logger, debounce time.Duration) *Reloader {
	if logger == nil {
		logger = &NoOpLogger{}
	}
	if debounce <= 0 {
		debounce = 250 * time.Millisecond
	}
	return &Reloader{
		builder:  builder,
		source:   source,
		logger:   logger,
		debounce: debounce,
		closed:   make(chan struct{}),
	}
}

// Current returns the currently published snapshot. It is nil until the
// first successful Load.
func (r *Reloader) Current() *Snapshot {
	return r.current.Load()
}

// Load runs a synchronous build and publishes the result. Unlike Trigger,
// a failure here is returned to the caller: there is no previous snapshot
// to fall back on at startup.
func (r *Reloader) Load(ctx context.Context) error {
	snapshot, err := r.builder.Build(ctx, r.source)
	if err != nil {
		return err
	}
	r.publish(snapshot)
	return nil
}

// Trigger schedules a rebuild. Safe to call from any goroutine; concurrent
// triggers coalesce.
func (r *Reloader) Trigger() {
	r.mu.Lock()
	if r.building {
		r.pending = true
		r.mu.Unlock()
		return
	}
	r.building = true
	r.mu.Unlock()

	go r.runBuild()
}

func (r *Reloader) runBuild() {
	for {
		snapshot, err := r.builder.Build(context.Background(), r.source)
		if err != nil {
			// Keep the previously published snapshot; a failed reload must
			// never degrade to "no routes".
			r.logger.Error("Reload build failed, keeping previous snapshot", map[string]interface{}{
				"error": err,
			})
		} else {
			r.publish(snapshot)
		}

		r.mu.Lock()
		if r.pending {
			r.pending = false
			r.mu.Unlock()
			continue
		}
		r.building = false
		r.mu.Unlock()
		return
	}
}

func (r *Reloader) publish(snapshot *Snapshot) {
	snapshot.Version = r.version.Add(1)
	r.current.Store(snapshot)
	r.logger.Info("Published route table", map[string]interface{}{
		"version":    snapshot.Version,
		"routes":     snapshot.Table.Len(),
		"registered": snapshot.Stats.Registered,
		"discovered": snapshot.Stats.Discovered,
	})
}

// Watch starts a filesystem watcher on the source's root (recursively) and
// triggers a rebuild whenever a file matching the source suffix changes.
// Bursts of events are debounced into one trigger. Returns immediately when
// the source is not watchable.
func (r *Reloader) Watch(ctx context.Context) error {
	ws, ok := r.source.(WatchableSource)
	if !ok {
		r.logger.Debug("Capability source is not watchable, hot reload disabled", nil)
		return nil
	}
	root, suffix := ws.WatchRoot()

	var err error
	r.watchOnce.Do(func() {
		r.watcher, err = fsnotify.NewWatcher()
		if err != nil {
			return
		}
		if err = r.addWatchTree(root); err != nil {
			r.watcher.Close()
			return
		}
		go r.watchLoop(ctx, suffix)
	})
	if err != nil {
		return NewGatewayError("reload.Watch", "watcher", err)
	}
	return nil
}

// addWatchTree registers the root and every existing subdirectory. fsnotify
// watches are not recursive.
func (r *Reloader) addWatchTree(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return r.watcher.Add(path)
		}
		return nil
	})
}

func (r *Reloader) watchLoop(ctx context.Context, suffix string) {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.closed:
			return
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}

			// New category directories must be watched as they appear.
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = r.watcher.Add(event.Name)
				}
			}

			if !matchesWatchSuffix(event.Name, suffix) {
				continue
			}

			r.logger.Info("Capability source changed", map[string]interface{}{
				"file": event.Name,
				"op":   event.Op.String(),
			})

			if timer == nil {
				timer = time.NewTimer(r.debounce)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(r.debounce)
			}
		case <-timerC:
			timer = nil
			timerC = nil
			r.Trigger()
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.logger.Warn("Watcher error", map[string]interface{}{
				"error": err,
			})
		}
	}
}

// Close stops the watcher. Published snapshots remain readable.
func (r *Reloader) Close() error {
	select {
	case <-r.closed:
		return nil
	default:
		close(r.closed)
	}
	if r.watcher != nil {
		return r.watcher.Close()
	}
	return nil
}

func matchesWatchSuffix(name, suffix string) bool {
	if strings.HasSuffix(name, suffix) {
		return true
	}
	return suffix == ".yaml" && strings.HasSuffix(name, ".yml")
}
