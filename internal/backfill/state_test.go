package backfill

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestBackfillState_NewAndSave(t *testing.T) {
	dir := t.TempDir()
	statePath := filepath.Join(dir, "state.json")

	s, err := LoadState(statePath)
	if err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}
	s.SetRemaining(3)
	s.MarkProcessed("chat1.txt", 120, 3)
	s.MarkProcessed("chat2.txt", 80, 2)

	if err := s.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Reload and verify.
	reloaded, err := LoadState(statePath)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if len(reloaded.FilesProcessed) != 2 {
		t.Errorf("expected 2 processed files, got %d", len(reloaded.FilesProcessed))
	}
	if reloaded.MessagesFound != 200 {
		t.Errorf("expected 200 messages, got %d", reloaded.MessagesFound)
	}
	if reloaded.MemoriesFound != 5 {
		t.Errorf("expected 5 memories, got %d", reloaded.MemoriesFound)
	}
	if reloaded.FilesRemaining != 1 {
		t.Errorf("expected 1 remaining, got %d", reloaded.FilesRemaining)
	}
	if !reloaded.IsProcessed("chat1.txt") {
		t.Error("chat1.txt should be processed after reload")
	}
}

func TestBackfillState_IsProcessed(t *testing.T) {
	s := &BackfillState{}

	if s.IsProcessed("chat1.txt") {
		t.Error("chat1 should not be processed yet")
	}

	s.MarkProcessed("chat1.txt", 1, 0)

	if !s.IsProcessed("chat1.txt") {
		t.Error("chat1 should be processed")
	}
	if s.IsProcessed("chat2.txt") {
		t.Error("chat2 should not be processed")
	}

	s.MarkDuplicate("chat3.txt")
	if !s.IsProcessed("chat3.txt") || s.Duplicates != 1 {
		t.Error("duplicates count as processed")
	}
}

func TestBackfillState_AddError(t *testing.T) {
	s := &BackfillState{}
	s.AddError("something went wrong")
	s.AddError("another error")

	if len(s.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(s.Errors))
	}
	if s.Errors[0] != "something went wrong" {
		t.Errorf("error[0] = %q", s.Errors[0])
	}
}

func TestBackfillState_ConcurrentUpdates(t *testing.T) {
	s := &BackfillState{path: filepath.Join(t.TempDir(), "state.json")}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.MarkProcessed("f", 1, 1)
			s.AddError("e")
			_ = s.Save()
		}()
	}
	wg.Wait()

	if s.MessagesFound != 20 || len(s.Errors) != 20 {
		t.Errorf("lost updates: messages=%d errors=%d", s.MessagesFound, len(s.Errors))
	}
}

func TestBackfillState_SaveCreatesDirectories(t *testing.T) {
	dir := t.TempDir()
	statePath := filepath.Join(dir, "nested", "dir", "state.json")

	s := &BackfillState{path: statePath}
	if err := s.Save(); err != nil {
		t.Fatalf("Save with nested dir failed: %v", err)
	}
	if _, err := os.Stat(statePath); err != nil {
		t.Fatalf("state file not created in nested dir: %v", err)
	}
}

func TestLoadState_Corrupt(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(statePath, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadState(statePath); err == nil {
		t.Error("expected parse error")
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("cannot determine home dir")
	}

	got := expandHome("~/test/path")
	want := filepath.Join(home, "test/path")
	if got != want {
		t.Errorf("expandHome(~/test/path) = %q, want %q", got, want)
	}

	// Non-tilde paths should pass through.
	got = expandHome("/absolute/path")
	if got != "/absolute/path" {
		t.Errorf("expandHome(/absolute/path) = %q", got)
	}
}
