// Package inbox uploads files dropped into a local directory.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"github.com/tildaslashalef/docsync/internal/engine"
	"github.com/tildaslashalef/docsync/internal/loggy"
	"github.com/tildaslashalef/docsync/internal/store"
)

// Uploader is the part of the engine the watcher drives
type Uploader interface {
	SetUploadForm(form engine.UploadForm)
	UploadFile(ctx context.Context) (*store.Document, error)
}

// Options configures a Watcher
type Options struct {
	Dir          string
	Include      string
	Debounce     time.Duration
	Metadata     string
	Rules        string
	UseColpali   bool
	ScanExisting bool // Upload files already present when Run starts
}

// Stats counts watcher outcomes
type Stats struct {
	Uploaded int
	Failed   int
	Skipped  int
}

// Watcher watches a directory and uploads new or rewritten files through the engine
type Watcher struct {
	opts     Options
	filter   *Filter
	uploader Uploader
	logger   *loggy.Logger

	ready chan string

	mu       sync.Mutex
	timers   map[string]*time.Timer
	uploaded map[string]time.Time // path -> mod time of the uploaded version
	stats    Stats
}

// New creates a watcher for opts.Dir
func New(uploader Uploader, opts Options, logger *loggy.Logger) (*Watcher, error) {
	info, err := os.Stat(opts.Dir)
	if err != nil {
		return nil, fmt.Errorf("error accessing directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", opts.Dir)
	}

	filter, err := NewFilter(opts.Include)
	if err != nil {
		return nil, err
	}

	if opts.Debounce <= 0 {
		opts.Debounce = 500 * time.Millisecond
	}
	if logger == nil {
		logger = loggy.GetGlobalLogger()
	}

	return &Watcher{
		opts:     opts,
		filter:   filter,
		uploader: uploader,
		logger:   logger.With("directory", opts.Dir),
		ready:    make(chan string, 64),
		timers:   make(map[string]*time.Timer),
		uploaded: make(map[string]time.Time),
	}, nil
}

// Stats returns a copy of the counters
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

// Run watches until ctx is cancelled
func (w *Watcher) Run(ctx context.Context) error {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer fsWatcher.Close()

	if err := fsWatcher.Add(w.opts.Dir); err != nil {
		return fmt.Errorf("failed to add directory %s to watcher: %w", w.opts.Dir, err)
	}
	w.logger.Info("Watching directory", "include", w.filter.Pattern())

	if w.opts.ScanExisting {
		if err := w.scanExisting(); err != nil {
			return err
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return w.eventLoop(ctx, fsWatcher) })
	g.Go(func() error { return w.uploadLoop(ctx) })

	err = g.Wait()
	w.stopTimers()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (w *Watcher) eventLoop(ctx context.Context, fsWatcher *fsnotify.Watcher) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fsWatcher.Events:
			if !ok {
				return nil
			}
			if event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Write) {
				w.schedule(event.Name)
			}

		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("fsnotify watcher error", "error", err)
		}
	}
}

func (w *Watcher) uploadLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case path := <-w.ready:
			w.upload(ctx, path)
		}
	}
}

// schedule (re)starts the quiet period of a path
func (w *Watcher) schedule(path string) {
	if !w.filter.Match(path) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok {
		t.Reset(w.opts.Debounce)
		return
	}

	w.timers[path] = time.AfterFunc(w.opts.Debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()

		// Non-blocking send
		select {
		case w.ready <- path:
		default:
			w.logger.Warn("Upload queue is full, dropped file", "file", path)
		}
	})
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
}

func (w *Watcher) scanExisting() error {
	entries, err := os.ReadDir(w.opts.Dir)
	if err != nil {
		return fmt.Errorf("reading %s: %w", w.opts.Dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		w.schedule(filepath.Join(w.opts.Dir, name))
	}
	return nil
}

// upload sends one file unless this exact version was already uploaded
func (w *Watcher) upload(ctx context.Context, path string) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		// Removed before the quiet period ended
		return
	}

	w.mu.Lock()
	if modTime, ok := w.uploaded[path]; ok && modTime.Equal(info.ModTime()) {
		w.stats.Skipped++
		w.mu.Unlock()
		return
	}
	w.mu.Unlock()

	file, err := store.ReadFile(path)
	if err != nil {
		w.logger.Error("Failed to read file", "file", path, "error", err)
		w.record(path, time.Time{}, err)
		return
	}

	w.uploader.SetUploadForm(engine.UploadForm{
		Files:      []store.File{file},
		Metadata:   w.opts.Metadata,
		Rules:      w.opts.Rules,
		UseColpali: w.opts.UseColpali,
	})

	doc, err := w.uploader.UploadFile(ctx)
	if err != nil {
		w.logger.Error("Inbox upload failed", "file", path, "error", err)
		w.record(path, time.Time{}, err)
		return
	}

	w.logger.Info("Inbox file uploaded", "file", path, "document_id", doc.ExternalID)
	w.record(path, info.ModTime(), nil)
}

func (w *Watcher) record(path string, modTime time.Time, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		w.stats.Failed++
		return
	}
	w.stats.Uploaded++
	w.uploaded[path] = modTime
}
