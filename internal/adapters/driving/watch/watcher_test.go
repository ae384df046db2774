package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder collects exported paths.
type recorder struct {
	mu       sync.Mutex
	paths    []string
	active   atomic.Int32
	maxSeen  atomic.Int32
	delay    time.Duration
	err      error
	exported chan string
}

func newRecorder() *recorder {
	return &recorder{exported: make(chan string, 16)}
}

func (r *recorder) export(_ context.Context, path string) error {
	n := r.active.Add(1)
	defer r.active.Add(-1)
	if n > r.maxSeen.Load() {
		r.maxSeen.Store(n)
	}
	time.Sleep(r.delay)

	r.mu.Lock()
	r.paths = append(r.paths, path)
	r.mu.Unlock()
	r.exported <- path
	return r.err
}

func (r *recorder) wait(t *testing.T) string {
	t.Helper()
	select {
	case p := <-r.exported:
		return p
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for export")
		return ""
	}
}

func startWatcher(t *testing.T, dir string, rec *recorder, opts Options) {
	t.Helper()
	if opts.Settle == 0 {
		opts.Settle = 50 * time.Millisecond
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- New(dir, rec.export, opts).Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})
	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)
}

func TestWatcher_ExportsNewCaptures(t *testing.T) {
	dir := t.TempDir()
	rec := newRecorder()
	startWatcher(t, dir, rec, Options{})

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden.png"), []byte("x"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "shot.PNG"), []byte("png"), 0600))

	assert.Equal(t, filepath.Join(dir, "shot.PNG"), rec.wait(t))

	// Further writes to an exported file are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "shot.PNG"), []byte("png2"), 0600))
	select {
	case p := <-rec.exported:
		t.Fatalf("unexpected export of %s", p)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_ExportsSequentially(t *testing.T) {
	dir := t.TempDir()
	rec := newRecorder()
	rec.delay = 50 * time.Millisecond
	startWatcher(t, dir, rec, Options{})

	for _, name := range []string{"a.png", "b.png", "c.png"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(name), 0600))
	}

	got := map[string]bool{}
	for range 3 {
		got[filepath.Base(rec.wait(t))] = true
	}
	assert.Equal(t, map[string]bool{"a.png": true, "b.png": true, "c.png": true}, got)
	assert.Equal(t, int32(1), rec.maxSeen.Load())
}

func TestWatcher_ReportsErrorsAndContinues(t *testing.T) {
	dir := t.TempDir()
	rec := newRecorder()
	rec.err = errors.New("upload failed")

	var mu sync.Mutex
	var failed []string
	startWatcher(t, dir, rec, Options{OnError: func(path string, err error) {
		mu.Lock()
		defer mu.Unlock()
		failed = append(failed, path)
	}})

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.png"), []byte("a"), 0600))
	rec.wait(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.png"), []byte("b"), 0600))
	rec.wait(t)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(failed) == 2
	}, time.Second, 10*time.Millisecond)
}

func TestWatcher_MissingDirectory(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "missing"), newRecorder().export, Options{})
	err := w.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "watch")
}

func TestWatcher_Wants(t *testing.T) {
	w := New("/captures", nil, Options{Extensions: []string{".png"}})

	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"created png", fsnotify.Event{Name: "/captures/a.png", Op: fsnotify.Create}, true},
		{"written png", fsnotify.Event{Name: "/captures/a.png", Op: fsnotify.Write}, true},
		{"upper-case extension", fsnotify.Event{Name: "/captures/A.PNG", Op: fsnotify.Create}, true},
		{"removed", fsnotify.Event{Name: "/captures/a.png", Op: fsnotify.Remove}, false},
		{"chmod", fsnotify.Event{Name: "/captures/a.png", Op: fsnotify.Chmod}, false},
		{"other extension", fsnotify.Event{Name: "/captures/a.jpg", Op: fsnotify.Create}, false},
		{"hidden", fsnotify.Event{Name: "/captures/.a.png", Op: fsnotify.Create}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, w.wants(tt.event))
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	w := New("/captures", nil, Options{})
	assert.Equal(t, DefaultExtensions, w.opts.Extensions)
	assert.Equal(t, DefaultSettle, w.opts.Settle)
}
