package cuemap

import (
	"errors"
	"testing"
)

func TestReinforceBumpsCounterAndPromotes(t *testing.T) {
	e := NewEngine(testClock())
	e.Remember("older", []string{"go"})
	newer, _ := e.Remember("newer", []string{"go"})

	// older was remembered first, so "go"'s list is [newer, older]
	if got := e.Index.Iter("go", 0, 10); got[0] != newer.Record.ID {
		t.Fatalf("expected newer at front before reinforcement, got %v", got)
	}

	res, err := e.Reinforce(newer.Record.ID, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Reinforcement != 2 {
		t.Errorf("expected reinforcement 2, got %d", res.Reinforcement)
	}
	if got := e.Index.Iter("go", 0, 10); got[0] != newer.Record.ID {
		t.Errorf("expected newer to stay at front after reinforcement, got %v", got)
	}
}

func TestReinforcePromotesOlderRecordToFront(t *testing.T) {
	e := NewEngine(testClock())
	older, _ := e.Remember("older", []string{"go"})
	e.Remember("newer", []string{"go"})

	if _, err := e.Reinforce(older.Record.ID, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := e.Index.Iter("go", 0, 10)
	if got[0] != older.Record.ID {
		t.Errorf("expected older record promoted to front after reinforcement, got %v", got)
	}
}

func TestReinforceAttachesExtraCues(t *testing.T) {
	e := NewEngine(testClock())
	res, _ := e.Remember("content", []string{"go"})

	if _, err := e.Reinforce(res.Record.ID, []string{"Concurrency"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !e.Index.Contains("concurrency", res.Record.ID) {
		t.Error("expected extra cue indexed after reinforce")
	}
}

func TestReinforceUnknownID(t *testing.T) {
	e := NewEngine(testClock())
	_, err := e.Reinforce("missing", nil)
	var ce *Error
	if !errors.As(err, &ce) || ce.Kind != KindNotFound {
		t.Errorf("expected KindNotFound, got %v", err)
	}
}

func TestReinforceRejectsInvalidExtraCue(t *testing.T) {
	e := NewEngine(testClock())
	res, _ := e.Remember("content", []string{"go"})
	_, err := e.Reinforce(res.Record.ID, []string{"   "})
	var ce *Error
	if !errors.As(err, &ce) || ce.Kind != KindInvalidCue {
		t.Errorf("expected KindInvalidCue, got %v", err)
	}
}
