package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func startWatcher(t *testing.T, path string) *Watcher {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	w, err := New(path, 50*time.Millisecond, logger)
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	t.Cleanup(cancel)

	if err := w.Start(ctx); err != nil {
		t.Fatalf("failed to start watcher: %v", err)
	}
	t.Cleanup(func() { _ = w.Stop() })

	// Give watcher time to set up
	time.Sleep(100 * time.Millisecond)
	return w
}

func TestNew(t *testing.T) {
	w, err := New("icf.xml", 0, nil)
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}
	defer w.Stop()

	if w.debounce != DefaultDebounce {
		t.Errorf("expected default debounce, got %v", w.debounce)
	}
	if !filepath.IsAbs(w.Path()) {
		t.Errorf("expected absolute path, got %s", w.Path())
	}

	if _, err := New("", time.Second, nil); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestWatcher_Modification(t *testing.T) {
	tmpDir := t.TempDir()
	input := filepath.Join(tmpDir, "icf.xml")
	if err := os.WriteFile(input, []byte("<ClaML/>"), 0644); err != nil {
		t.Fatalf("failed to write input: %v", err)
	}

	w := startWatcher(t, input)

	if err := os.WriteFile(input, []byte("<ClaML version=\"2.0.0\"/>"), 0644); err != nil {
		t.Fatalf("failed to modify input: %v", err)
	}

	select {
	case event := <-w.Events():
		if event.Operation != OpWrite {
			t.Errorf("expected write operation, got %s", event.Operation)
		}
		if event.Path != w.Path() {
			t.Errorf("expected path %s, got %s", w.Path(), event.Path)
		}
	case <-time.After(2 * time.Second):
		t.Error("timeout waiting for write event")
	}
}

func TestWatcher_Debounce(t *testing.T) {
	tmpDir := t.TempDir()
	input := filepath.Join(tmpDir, "icf.xml")

	w := startWatcher(t, input)

	// A burst of writes settles into one event
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(input, []byte{'a' + byte(i)}, 0644); err != nil {
			t.Fatalf("failed to write input: %v", err)
		}
	}

	select {
	case <-w.Events():
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for write event")
	}

	select {
	case event := <-w.Events():
		t.Errorf("unexpected second event: %+v", event)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_Removal(t *testing.T) {
	tmpDir := t.TempDir()
	input := filepath.Join(tmpDir, "icf.xml")
	if err := os.WriteFile(input, []byte("<ClaML/>"), 0644); err != nil {
		t.Fatalf("failed to write input: %v", err)
	}

	w := startWatcher(t, input)

	if err := os.Remove(input); err != nil {
		t.Fatalf("failed to remove input: %v", err)
	}

	select {
	case event := <-w.Events():
		if event.Operation != OpRemove {
			t.Errorf("expected remove operation, got %s", event.Operation)
		}
	case <-time.After(2 * time.Second):
		t.Error("timeout waiting for remove event")
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	tmpDir := t.TempDir()
	input := filepath.Join(tmpDir, "icf.xml")

	w := startWatcher(t, input)

	if err := os.WriteFile(filepath.Join(tmpDir, "notes.xml"), []byte("<x/>"), 0644); err != nil {
		t.Fatalf("failed to write sibling: %v", err)
	}

	select {
	case event := <-w.Events():
		t.Errorf("unexpected event for sibling file: %+v", event)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_UnchangedContent(t *testing.T) {
	tmpDir := t.TempDir()
	input := filepath.Join(tmpDir, "icf.xml")
	content := []byte("<ClaML/>")
	if err := os.WriteFile(input, content, 0644); err != nil {
		t.Fatalf("failed to write input: %v", err)
	}

	w := startWatcher(t, input)

	// Touch the file (same content)
	if err := os.WriteFile(input, content, 0644); err != nil {
		t.Fatalf("failed to rewrite input: %v", err)
	}

	select {
	case event := <-w.Events():
		t.Errorf("unexpected event when content unchanged: %+v", event)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_MissingDirectory(t *testing.T) {
	w, err := New(filepath.Join(t.TempDir(), "missing", "icf.xml"), time.Second, nil)
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}
	defer w.Stop()

	if err := w.Start(context.Background()); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestWatcher_ContextCancelClosesEvents(t *testing.T) {
	w, err := New(filepath.Join(t.TempDir(), "icf.xml"), 50*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	if err := w.Start(ctx); err != nil {
		t.Fatalf("failed to start watcher: %v", err)
	}
	cancel()

	select {
	case _, ok := <-w.Events():
		if ok {
			t.Error("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Error("events channel not closed after cancel")
	}
}
