// Package watch rebuilds the artifact matrix whenever the template tree
// changes, with optional interval-scheduled full rebuilds and an optional
// Prometheus metrics endpoint.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"git.home.luguber.info/inful/tplbuild/internal/logfields"
)

// RebuildFunc performs one full build run.
type RebuildFunc func(ctx context.Context) error

// Options tunes the watcher.
type Options struct {
	// Debounce collapses bursts of filesystem events into one rebuild.
	// Zero means 2s.
	Debounce time.Duration
	// RebuildInterval schedules unconditional full rebuilds. Zero disables.
	RebuildInterval time.Duration
	// MetricsAddr serves Prometheus metrics when non-empty (e.g. ":9090").
	MetricsAddr string
	// MetricsRegistry is exposed on MetricsAddr; nil falls back to a fresh
	// registry.
	MetricsRegistry *prom.Registry
}

// Watcher monitors a template tree and triggers rebuilds.
type Watcher struct {
	templateRoot string
	rebuild      RebuildFunc
	opts         Options

	watcher     *fsnotify.Watcher
	rebuildChan chan struct{}
	mu          sync.Mutex
	building    bool
}

// NewWatcher creates a watcher over the template root.
func NewWatcher(templateRoot string, rebuild RebuildFunc, opts Options) (*Watcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = 2 * time.Second
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	return &Watcher{
		templateRoot: templateRoot,
		rebuild:      rebuild,
		opts:         opts,
		watcher:      fsw,
		rebuildChan:  make(chan struct{}, 1),
	}, nil
}

// Run blocks until the context is canceled, rebuilding on template changes.
// The initial build runs before watching starts.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	if err := w.addRecursive(w.templateRoot); err != nil {
		return err
	}

	var scheduler gocron.Scheduler
	if w.opts.RebuildInterval > 0 {
		s, err := gocron.NewScheduler()
		if err != nil {
			return fmt.Errorf("create scheduler: %w", err)
		}
		_, err = s.NewJob(
			gocron.DurationJob(w.opts.RebuildInterval),
			gocron.NewTask(w.triggerRebuild),
			gocron.WithName("scheduled-rebuild"),
		)
		if err != nil {
			return fmt.Errorf("schedule periodic rebuild: %w", err)
		}
		s.Start()
		scheduler = s
		defer func() { _ = scheduler.Shutdown() }()
	}

	if w.opts.MetricsAddr != "" {
		go w.serveMetrics(ctx)
	}

	slog.Info("watching template tree", logfields.Path(w.templateRoot))
	w.runRebuild(ctx)

	go w.watchLoop(ctx)
	w.rebuildLoop(ctx)
	return ctx.Err()
}

// addRecursive watches every directory under root; fsnotify watches are not
// recursive on their own.
func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") && path != root {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func (w *Watcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			// New directories need their own watch.
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = w.addRecursive(event.Name)
				}
			}
			slog.Debug("template change detected", logfields.Path(event.Name))
			w.triggerRebuild()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("file watcher error", logfields.Error(err))
		}
	}
}

// rebuildLoop debounces rebuild triggers.
func (w *Watcher) rebuildLoop(ctx context.Context) {
	var timer *time.Timer
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case <-w.rebuildChan:
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.opts.Debounce, func() {
				w.runRebuild(ctx)
			})
		}
	}
}

func (w *Watcher) triggerRebuild() {
	select {
	case w.rebuildChan <- struct{}{}:
	default:
		// rebuild already pending
	}
}

func (w *Watcher) runRebuild(ctx context.Context) {
	w.mu.Lock()
	if w.building {
		w.mu.Unlock()
		w.triggerRebuild()
		return
	}
	w.building = true
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		w.building = false
		w.mu.Unlock()
	}()

	slog.Info("rebuilding")
	if err := w.rebuild(ctx); err != nil {
		slog.Error("rebuild failed", logfields.Error(err))
	}
}

func (w *Watcher) serveMetrics(ctx context.Context) {
	reg := w.opts.MetricsRegistry
	if reg == nil {
		reg = prom.NewRegistry()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: w.opts.MetricsAddr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	slog.Info("serving metrics", slog.String("addr", w.opts.MetricsAddr))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("metrics server failed", logfields.Error(err))
	}
}
