package backfill

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestWatcher_ImportsDroppedFile(t *testing.T) {
	dir := t.TempDir()
	imp := newFakeImporter()
	runner := NewRunner(Config{OwnerUUID: uuid.New(), Location: time.UTC, Out: io.Discard}, imp, nil, discardLogger())

	w, err := NewWatcher(dir, 50*time.Millisecond, runner, discardLogger())
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(dir, "notes.md"), []byte("ignored"), 0o644); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "WhatsApp Chat with Priya.txt")
	if err := os.WriteFile(path, []byte(priyaChat), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		imp.mu.Lock()
		n := len(imp.requests)
		imp.mu.Unlock()
		if n > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for watched import")
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	imp.mu.Lock()
	defer imp.mu.Unlock()
	if len(imp.requests) != 1 {
		t.Errorf("expected exactly 1 import after settling, got %d", len(imp.requests))
	}
	if imp.requests[0].Export.Contact != "Priya" {
		t.Errorf("expected contact Priya, got %q", imp.requests[0].Export.Contact)
	}
}

func TestWatcher_MissingDir(t *testing.T) {
	runner := NewRunner(Config{Out: io.Discard}, newFakeImporter(), nil, discardLogger())
	w, err := NewWatcher(filepath.Join(t.TempDir(), "nope"), 0, runner, discardLogger())
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	if err := w.Start(context.Background()); err == nil {
		t.Fatal("expected error watching a missing directory")
	}
}
