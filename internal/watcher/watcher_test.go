package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/leefowlercu/tokenscope/internal/fsutil"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func startWatcher(t *testing.T, content string, opts ...Option) (*Watcher, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.txt")
	writeFile(t, path, content)

	opts = append([]Option{WithDebounce(20 * time.Millisecond), WithGracePeriod(80 * time.Millisecond)}, opts...)
	w, err := New(path, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { _ = w.Stop() })
	return w, path
}

func nextSnapshot(t *testing.T, w *Watcher) Snapshot {
	t.Helper()
	select {
	case s := <-w.Snapshots():
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for snapshot")
	}
	return Snapshot{}
}

func TestNew_Errors(t *testing.T) {
	dir := t.TempDir()
	if _, err := New(filepath.Join(dir, "missing.txt")); err == nil {
		t.Error("New() on a missing file succeeded")
	}
	if _, err := New(dir); err == nil {
		t.Error("New() on a directory succeeded")
	}
}

func TestWatcher_InitialSnapshot(t *testing.T) {
	w, path := startWatcher(t, "Hello, world!")

	s := nextSnapshot(t, w)
	if s.Content != "Hello, world!" || s.Removed || s.Hash == "" {
		t.Errorf("snapshot = %+v", s)
	}
	if s.Path != path && s.Path != w.Path() {
		t.Errorf("Path = %q", s.Path)
	}
	if err := w.Start(context.Background()); err == nil {
		t.Error("second Start() succeeded")
	}
}

func TestWatcher_Write(t *testing.T) {
	w, path := startWatcher(t, "one")
	nextSnapshot(t, w)

	writeFile(t, path, "two")
	if s := nextSnapshot(t, w); s.Content != "two" {
		t.Errorf("Content = %q, want two", s.Content)
	}
	if st := w.Stats(); st.Reloads != 1 || !st.Running {
		t.Errorf("stats = %+v", st)
	}
}

func TestWatcher_SameContentIsSuppressed(t *testing.T) {
	w, path := startWatcher(t, "same")
	nextSnapshot(t, w)

	writeFile(t, path, "same")
	time.Sleep(150 * time.Millisecond)

	select {
	case s := <-w.Snapshots():
		t.Fatalf("unexpected snapshot %+v", s)
	default:
	}
	if w.Stats().Unchanged == 0 {
		t.Error("unchanged reload not counted")
	}
}

func TestWatcher_AtomicSave(t *testing.T) {
	w, path := startWatcher(t, "before")
	nextSnapshot(t, w)

	tmp := filepath.Join(filepath.Dir(path), ".input.txt.tmp")
	writeFile(t, tmp, "after")
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}

	s := nextSnapshot(t, w)
	if s.Removed || s.Content != "after" {
		t.Errorf("snapshot = %+v", s)
	}
}

func TestWatcher_Remove(t *testing.T) {
	w, path := startWatcher(t, "gone soon")
	nextSnapshot(t, w)

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if s := nextSnapshot(t, w); !s.Removed || s.Content != "" {
		t.Errorf("snapshot = %+v", s)
	}
}

func TestWatcher_TooLarge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.txt")
	writeFile(t, path, "0123456789")

	w, err := New(path, WithMaxSize(4))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := w.Start(context.Background()); !errors.Is(err, ErrTooLarge) {
		t.Errorf("Start() error = %v, want ErrTooLarge", err)
	}
	if w.Stats().Running {
		t.Error("watcher running after failed Start")
	}
}

func TestWatcher_BinaryRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.png")
	writeFile(t, path, "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

	w, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := w.Start(context.Background()); !errors.Is(err, fsutil.ErrBinary) {
		t.Errorf("Start() error = %v, want ErrBinary", err)
	}
}

func TestWatcher_StopClosesSnapshots(t *testing.T) {
	w, _ := startWatcher(t, "x")
	nextSnapshot(t, w)

	if err := w.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if _, ok := <-w.Snapshots(); ok {
		t.Error("Snapshots() still open after Stop")
	}
	if err := w.CollectMetrics(context.Background()); err == nil {
		t.Error("CollectMetrics() on stopped watcher succeeded")
	}
}
