// Package watcher re-ingests course documents when the docs folder
// changes.
//
// A filesystem watcher collects create and write events for course
// files, waits for a settle window so editor write bursts collapse into
// one batch, then re-ingests each changed file. Re-ingestion replaces a
// course by title, so saving an edited transcript refreshes its chunks
// without touching the rest of the index.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/lectern-ai/lectern/internal/core/domain"
	"github.com/lectern-ai/lectern/internal/logger"
)

// DefaultSettle is the quiet period after the last change before the
// batch is re-ingested.
const DefaultSettle = 2 * time.Second

// Ingester is the slice of the library the watcher drives.
type Ingester interface {
	IngestFile(ctx context.Context, path string) (domain.Course, []domain.CourseChunk, error)
}

// Config holds the watcher settings.
type Config struct {
	// Dir is the course documents folder to watch.
	Dir string

	// Settle is the debounce window. Zero means DefaultSettle.
	Settle time.Duration
}

// Watcher watches one docs folder and re-ingests changed course files.
type Watcher struct {
	library Ingester
	dir     string
	settle  time.Duration
}

// New creates a watcher over cfg.Dir.
func New(library Ingester, cfg Config) (*Watcher, error) {
	if library == nil {
		return nil, errors.New("library is required")
	}
	if cfg.Dir == "" {
		return nil, errors.New("watch dir is required")
	}

	settle := cfg.Settle
	if settle <= 0 {
		settle = DefaultSettle
	}

	return &Watcher{library: library, dir: cfg.Dir, settle: settle}, nil
}

// Run watches until ctx is cancelled. It returns ctx.Err() on
// cancellation, so callers can treat a clean shutdown as such.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}

	logger.Info("Watching %s for course changes", w.dir)

	// The timer starts disarmed; the first relevant event arms it.
	timer := time.NewTimer(w.settle)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	pending := make(map[string]struct{})

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !relevant(event) {
				continue
			}
			logger.Debug("Change detected: %s %s", event.Op, filepath.Base(event.Name))
			pending[event.Name] = struct{}{}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(w.settle)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watch error: %v", err)

		case <-timer.C:
			w.ingestPending(ctx, pending)
			pending = make(map[string]struct{})
		}
	}
}

// ingestPending re-ingests the settled batch in lexical order.
func (w *Watcher) ingestPending(ctx context.Context, pending map[string]struct{}) {
	paths := make([]string, 0, len(pending))
	for p := range pending {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		course, chunks, err := w.library.IngestFile(ctx, p)
		if err != nil {
			logger.Warn("Re-ingestion of %s failed: %v", filepath.Base(p), err)
			continue
		}
		logger.Info("Re-ingested %q (%d chunks)", course.Title, len(chunks))
	}
}

// relevant reports whether an event should trigger re-ingestion. Only
// creates and writes of visible .txt and .md files count; removals do
// not, since a deleted file names no course to replace.
func relevant(event fsnotify.Event) bool {
	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
		return false
	}

	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".txt" || ext == ".md"
}
