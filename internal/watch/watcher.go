// Package watch rebuilds the site when sources change. A filesystem watcher
// triggers debounced incremental builds; a scheduler runs periodic full
// builds to sweep up anything event delivery missed.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/sitegen/internal/build"
	"git.home.luguber.info/inful/sitegen/internal/config"
)

// Watcher monitors the content, template, and static roots and drives the
// orchestrator. Builds are serialized: a change arriving mid-build schedules
// another run rather than overlapping it.
type Watcher struct {
	cfg          *config.Config
	orch         *build.Orchestrator
	watcher      *fsnotify.Watcher
	scheduler    gocron.Scheduler
	logger       *slog.Logger
	debounceTime time.Duration
	fullInterval time.Duration

	stopChan   chan struct{}
	changeChan chan struct{}

	buildMu sync.Mutex
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce overrides the debounce window applied to filesystem events.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounceTime = d }
}

// WithFullRebuildInterval overrides the periodic full rebuild interval.
// Zero disables the scheduled rebuild entirely.
func WithFullRebuildInterval(d time.Duration) Option {
	return func(w *Watcher) { w.fullInterval = d }
}

// New creates a watcher around an orchestrator.
func New(cfg *config.Config, orch *build.Orchestrator, opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	sched, err := gocron.NewScheduler()
	if err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	w := &Watcher{
		cfg:          cfg,
		orch:         orch,
		watcher:      fsw,
		scheduler:    sched,
		logger:       slog.Default(),
		debounceTime: 500 * time.Millisecond,
		fullInterval: time.Hour,
		stopChan:     make(chan struct{}),
		changeChan:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start registers the watched roots and begins the event and rebuild loops.
// The initial full build runs before watching starts, so the output tree is
// complete from the first moment.
func (w *Watcher) Start(ctx context.Context) error {
	if _, err := w.orch.Build(ctx, build.Options{}); err != nil {
		return fmt.Errorf("initial build failed: %w", err)
	}

	for _, root := range []string{w.cfg.ContentDir, w.cfg.TemplateDir, w.cfg.StaticDir} {
		if err := w.addRecursive(root); err != nil {
			return err
		}
	}

	if w.fullInterval > 0 {
		_, err := w.scheduler.NewJob(
			gocron.DurationJob(w.fullInterval),
			gocron.NewTask(w.scheduledFullBuild, ctx),
			gocron.WithName("periodic-full-build"),
		)
		if err != nil {
			return fmt.Errorf("failed to schedule periodic rebuild: %w", err)
		}
		w.scheduler.Start()
	}

	w.logger.Info("Watching for changes",
		"content_dir", w.cfg.ContentDir,
		"template_dir", w.cfg.TemplateDir,
		"static_dir", w.cfg.StaticDir,
		"debounce", w.debounceTime)

	go w.watchLoop(ctx)
	go w.rebuildLoop(ctx)
	return nil
}

// Stop shuts the watcher and scheduler down.
func (w *Watcher) Stop() error {
	close(w.stopChan)
	if err := w.scheduler.Shutdown(); err != nil {
		w.logger.Error("Error shutting down scheduler", "error", err)
	}
	return w.watcher.Close()
}

// addRecursive registers a directory tree with the filesystem watcher.
// fsnotify watches single directories only, so every subdirectory is added.
func (w *Watcher) addRecursive(root string) error {
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

func (w *Watcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if w.ignored(event.Name) {
				continue
			}

			// New directories must join the watch set before files inside
			// them produce events.
			if event.Op&fsnotify.Create == fsnotify.Create {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addRecursive(event.Name); err != nil {
						w.logger.Error("Failed to watch new directory", "path", event.Name, "error", err)
					}
				}
			}

			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				w.logger.Debug("Change detected", "path", event.Name, "op", event.Op.String())
				w.triggerRebuild()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Watcher error", "error", err)
		}
	}
}

// ignored filters editor noise: dotfiles and common swap/backup suffixes.
func (w *Watcher) ignored(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return true
	}
	for _, suffix := range []string{"~", ".swp", ".swx", ".tmp"} {
		if strings.HasSuffix(base, suffix) {
			return true
		}
	}
	return false
}

func (w *Watcher) triggerRebuild() {
	select {
	case w.changeChan <- struct{}{}:
	default:
		// Rebuild already pending.
	}
}

// rebuildLoop debounces change signals into incremental builds.
func (w *Watcher) rebuildLoop(ctx context.Context) {
	var timer *time.Timer

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case <-w.stopChan:
			if timer != nil {
				timer.Stop()
			}
			return
		case <-w.changeChan:
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounceTime, func() {
				w.runBuild(ctx, build.Options{Incremental: true})
			})
		}
	}
}

func (w *Watcher) scheduledFullBuild(ctx context.Context) {
	w.logger.Info("Running scheduled full rebuild")
	w.runBuild(ctx, build.Options{})
}

// runBuild serializes builds. A failed incremental build is reported and
// waiting continues; the source tree is frequently inconsistent mid-edit.
func (w *Watcher) runBuild(ctx context.Context, opts build.Options) {
	w.buildMu.Lock()
	defer w.buildMu.Unlock()

	if ctx.Err() != nil {
		return
	}
	if _, err := w.orch.Build(ctx, opts); err != nil {
		w.logger.Error("Rebuild failed", "error", err)
	}
}
