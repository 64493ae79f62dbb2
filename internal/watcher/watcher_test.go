package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return cond()
}

func TestWatcher_RebuildOnWrite(t *testing.T) {
	root := t.TempDir()
	cityDir := filepath.Join(root, "oakland")
	if err := os.MkdirAll(cityDir, 0755); err != nil {
		t.Fatal(err)
	}

	var rebuilds atomic.Int32
	w := New(root, func() { rebuilds.Add(1) }, WithDebounce(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(cityDir, "Oakland_ADU.pdf"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if !waitFor(t, 3*time.Second, func() bool { return rebuilds.Load() >= 1 }) {
		t.Fatal("rebuild callback never fired")
	}
}

func TestWatcher_BurstCoalesces(t *testing.T) {
	root := t.TempDir()
	var rebuilds atomic.Int32
	w := New(root, func() { rebuilds.Add(1) }, WithDebounce(150*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	for i := 0; i < 5; i++ {
		if err := os.WriteFile(filepath.Join(root, "doc.pdf"), []byte{byte(i)}, 0644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if !waitFor(t, 3*time.Second, func() bool { return rebuilds.Load() >= 1 }) {
		t.Fatal("rebuild callback never fired")
	}
	// Let any stray timers fire before asserting the count settled.
	time.Sleep(400 * time.Millisecond)
	if got := rebuilds.Load(); got != 1 {
		t.Errorf("rebuilds = %d, want 1 for a write burst", got)
	}
}

func TestWatcher_IgnoresNonPDF(t *testing.T) {
	root := t.TempDir()
	var rebuilds atomic.Int32
	w := New(root, func() { rebuilds.Add(1) }, WithDebounce(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(300 * time.Millisecond)
	if rebuilds.Load() != 0 {
		t.Error("non-PDF write must not trigger a rebuild")
	}
}

func TestWatcher_NewCityDirectoryWatched(t *testing.T) {
	root := t.TempDir()
	var rebuilds atomic.Int32
	w := New(root, func() { rebuilds.Add(1) }, WithDebounce(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	cityDir := filepath.Join(root, "fremont")
	if err := os.MkdirAll(cityDir, 0755); err != nil {
		t.Fatal(err)
	}
	// Give the watcher a moment to pick up the new directory.
	time.Sleep(200 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(cityDir, "Fremont_Zoning.pdf"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if !waitFor(t, 3*time.Second, func() bool { return rebuilds.Load() >= 1 }) {
		t.Fatal("write in new subdirectory never triggered a rebuild")
	}
}

func TestWatcher_StopCancelsPending(t *testing.T) {
	root := t.TempDir()
	var rebuilds atomic.Int32
	w := New(root, func() { rebuilds.Add(1) }, WithDebounce(200*time.Millisecond))
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "doc.pdf"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)
	w.Stop()
	time.Sleep(400 * time.Millisecond)
	if rebuilds.Load() != 0 {
		t.Error("Stop must cancel the pending rebuild")
	}
}
