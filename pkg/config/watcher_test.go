package config

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestFileWatcher_ReloadsOnWrite(t *testing.T) {
	path := writeConfig(t, "server:\n  listen_address: \"127.0.0.1:8080\"\n")

	fw, err := NewFileWatcher(path, 50*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}

	var reloads atomic.Int32
	reloaded := make(chan struct{}, 4)
	done := make(chan error, 1)
	go func() {
		done <- fw.Watch(context.Background(), func() error {
			reloads.Add(1)
			reloaded <- struct{}{}
			return nil
		})
	}()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)

	// Unrelated files in the same directory are ignored.
	if err := os.WriteFile(filepath.Join(filepath.Dir(path), "other.yaml"), []byte("x: 1"), 0644); err != nil {
		t.Fatal(err)
	}

	// A burst of writes collapses into one reload.
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(path, []byte("server:\n  listen_address: \"127.0.0.1:9090\"\n"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	select {
	case <-reloaded:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}

	time.Sleep(200 * time.Millisecond)
	if n := reloads.Load(); n != 1 {
		t.Errorf("expected 1 reload, got %d", n)
	}

	if err := fw.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if err := <-done; err != nil {
		t.Errorf("Watch returned error: %v", err)
	}
}

func TestFileWatcher_ContextCancel(t *testing.T) {
	path := writeConfig(t, "{}\n")

	fw, err := NewFileWatcher(path, 0, nil)
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}
	defer fw.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- fw.Watch(ctx, func() error { return nil }) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected nil error on cancel, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop on cancel")
	}
}

func TestNewFileWatcher_RequiresPath(t *testing.T) {
	if _, err := NewFileWatcher("", 0, nil); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestDebouncer(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)

	var calls atomic.Int32
	var last atomic.Int32
	for i := int32(1); i <= 5; i++ {
		v := i
		d.Trigger(func() {
			calls.Add(1)
			last.Store(v)
		})
	}

	time.Sleep(150 * time.Millisecond)
	if calls.Load() != 1 || last.Load() != 5 {
		t.Errorf("expected one call with the last callback, got %d calls, last %d", calls.Load(), last.Load())
	}

	d.Stop()
	d.Trigger(func() { calls.Add(1) })
	time.Sleep(50 * time.Millisecond)
	if calls.Load() != 1 {
		t.Error("expected triggers after Stop to be ignored")
	}
}
