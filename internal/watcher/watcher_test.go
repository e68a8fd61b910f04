package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lectern-ai/lectern/internal/core/domain"
)

// --- Test Helpers ---

// captureIngester records every path handed to IngestFile.
type captureIngester struct {
	mu    sync.Mutex
	paths []string
}

func (c *captureIngester) IngestFile(_ context.Context, path string) (domain.Course, []domain.CourseChunk, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paths = append(c.paths, path)
	return domain.Course{Title: filepath.Base(path)}, nil, nil
}

func (c *captureIngester) ingested() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.paths...)
}

func startWatcher(t *testing.T, ingester Ingester, dir string, settle time.Duration) context.CancelFunc {
	t.Helper()

	w, err := New(ingester, Config{Dir: dir, Settle: settle})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.ErrorIs(t, err, context.Canceled)
		case <-time.After(2 * time.Second):
			t.Error("watcher did not stop after cancellation")
		}
	})

	// Give the watch registration a moment before tests write files.
	time.Sleep(50 * time.Millisecond)
	return cancel
}

// --- New ---

func TestNew(t *testing.T) {
	t.Run("requires a library", func(t *testing.T) {
		_, err := New(nil, Config{Dir: "docs"})

		require.Error(t, err)
	})

	t.Run("requires a dir", func(t *testing.T) {
		_, err := New(&captureIngester{}, Config{})

		require.Error(t, err)
	})

	t.Run("defaults the settle window", func(t *testing.T) {
		w, err := New(&captureIngester{}, Config{Dir: "docs"})

		require.NoError(t, err)
		assert.Equal(t, DefaultSettle, w.settle)
	})
}

// --- Run ---

func TestWatcher_Run_MissingDir(t *testing.T) {
	w, err := New(&captureIngester{}, Config{Dir: "/does/not/exist", Settle: time.Millisecond})
	require.NoError(t, err)

	err = w.Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "/does/not/exist")
}

func TestWatcher_Run_WriteBurstIngestsOnce(t *testing.T) {
	dir := t.TempDir()
	ingester := &captureIngester{}
	startWatcher(t, ingester, dir, 100*time.Millisecond)

	// A burst of writes to the same file inside the settle window.
	path := filepath.Join(dir, "course_1.txt")
	for range 3 {
		require.NoError(t, os.WriteFile(path, []byte("Course Title: Alpha\n\nLesson 1: A\ntext"), 0o644))
		time.Sleep(10 * time.Millisecond)
	}

	require.Eventually(t, func() bool {
		return len(ingester.ingested()) > 0
	}, 2*time.Second, 10*time.Millisecond, "settle window never fired")

	// Let a second settle window pass to catch spurious repeats.
	time.Sleep(250 * time.Millisecond)
	assert.Equal(t, []string{path}, ingester.ingested(), "burst must collapse into one ingestion")
}

func TestWatcher_Run_BatchesDistinctFiles(t *testing.T) {
	dir := t.TempDir()
	ingester := &captureIngester{}
	startWatcher(t, ingester, dir, 100*time.Millisecond)

	pathB := filepath.Join(dir, "b_course.txt")
	pathA := filepath.Join(dir, "a_course.md")
	require.NoError(t, os.WriteFile(pathB, []byte("b"), 0o644))
	require.NoError(t, os.WriteFile(pathA, []byte("a"), 0o644))

	require.Eventually(t, func() bool {
		return len(ingester.ingested()) == 2
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, []string{pathA, pathB}, ingester.ingested(), "batch must be ingested in lexical order")
}

func TestWatcher_Run_IgnoresNonCourseFiles(t *testing.T) {
	dir := t.TempDir()
	ingester := &captureIngester{}
	startWatcher(t, ingester, dir, 50*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.pdf"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".draft.txt"), []byte("x"), 0o644))

	time.Sleep(300 * time.Millisecond)
	assert.Empty(t, ingester.ingested())
}

// --- relevant ---

func TestRelevant(t *testing.T) {
	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"create txt", fsnotify.Event{Name: "docs/a.txt", Op: fsnotify.Create}, true},
		{"write md", fsnotify.Event{Name: "docs/a.md", Op: fsnotify.Write}, true},
		{"remove txt", fsnotify.Event{Name: "docs/a.txt", Op: fsnotify.Remove}, false},
		{"rename txt", fsnotify.Event{Name: "docs/a.txt", Op: fsnotify.Rename}, false},
		{"chmod txt", fsnotify.Event{Name: "docs/a.txt", Op: fsnotify.Chmod}, false},
		{"write pdf", fsnotify.Event{Name: "docs/a.pdf", Op: fsnotify.Write}, false},
		{"write dotfile", fsnotify.Event{Name: "docs/.a.txt", Op: fsnotify.Write}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, relevant(tt.event))
		})
	}
}
