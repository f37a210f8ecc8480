package cuemap

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	e := NewEngine(testClock())
	e.Remember("goroutines and channels", []string{"go", "concurrency"})
	e.Remember("python decorators", []string{"python"})
	e.ProposeAlias("js", "javascript", 0.75)

	path := filepath.Join(t.TempDir(), "snapshot.bin")
	if err := e.Save(path); err != nil {
		t.Fatalf("unexpected error saving: %v", err)
	}

	loaded := NewEngine(testClock())
	if err := loaded.Load(path); err != nil {
		t.Fatalf("unexpected error loading: %v", err)
	}

	if loaded.Store.Len() != 2 {
		t.Errorf("expected 2 records after load, got %d", loaded.Store.Len())
	}
	if !loaded.Index.Contains("go", loaded.Index.Iter("go", 0, 1)[0]) {
		t.Error("expected cue index reconstructed after load")
	}
	if loaded.Cooccur.Count("go", "concurrency") != 1 {
		t.Error("expected co-occurrence restored after load")
	}
	aliases := loaded.Aliases.Get("js")
	if len(aliases) != 1 || aliases[0].To != "javascript" {
		t.Errorf("expected alias restored after load, got %v", aliases)
	}
}

func TestSaveLoadPreservesPostingOrder(t *testing.T) {
	e := NewEngine(testClock())
	first, _ := e.Remember("first", []string{"go"})
	second, _ := e.Remember("second", []string{"go"})

	path := filepath.Join(t.TempDir(), "snapshot.bin")
	if err := e.Save(path); err != nil {
		t.Fatalf("unexpected error saving: %v", err)
	}

	loaded := NewEngine(testClock())
	if err := loaded.Load(path); err != nil {
		t.Fatalf("unexpected error loading: %v", err)
	}

	got := loaded.Index.Iter("go", 0, 10)
	if len(got) != 2 || got[0] != second.Record.ID || got[1] != first.Record.ID {
		t.Errorf("expected posting order preserved [second, first], got %v", got)
	}
}

func TestSaveLoadPreservesGistMembership(t *testing.T) {
	e := NewEngine(testClock())
	for i := 0; i < 5; i++ {
		e.Remember("similar", []string{"a", "b", "c"})
	}
	created := e.Consolidate()
	if len(created) != 1 {
		t.Fatalf("expected 1 gist, got %d", len(created))
	}

	path := filepath.Join(t.TempDir(), "snapshot.bin")
	if err := e.Save(path); err != nil {
		t.Fatalf("unexpected error saving: %v", err)
	}

	loaded := NewEngine(testClock())
	if err := loaded.Load(path); err != nil {
		t.Fatalf("unexpected error loading: %v", err)
	}
	if !loaded.isGist(created[0]) {
		t.Error("expected gist membership to survive the round trip")
	}
}

func TestLoadRejectsBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.bin")
	if err := os.WriteFile(path, []byte("not a snapshot file"), 0o644); err != nil {
		t.Fatalf("failed writing test fixture: %v", err)
	}

	e := NewEngine(testClock())
	err := e.Load(path)
	var ce *Error
	if !errors.As(err, &ce) || ce.Kind != KindSnapshotCorrupt {
		t.Errorf("expected KindSnapshotCorrupt, got %v", err)
	}
}

func TestLoadMissingFileIsSnapshotIO(t *testing.T) {
	e := NewEngine(testClock())
	err := e.Load(filepath.Join(t.TempDir(), "missing.bin"))
	var ce *Error
	if !errors.As(err, &ce) || ce.Kind != KindSnapshotIO {
		t.Errorf("expected KindSnapshotIO, got %v", err)
	}
}
