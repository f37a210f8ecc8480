package cuemap

import "testing"

func TestRecallBasicMatch(t *testing.T) {
	e := NewEngine(testClock())
	e.Remember("goroutines and channels", []string{"go", "concurrency"})
	e.Remember("python decorators", []string{"python"})

	results, err := e.Recall(RecallQuery{
		Cues: []WeightedCue{{Cue: "go", Weight: 1.0}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Content != "goroutines and channels" {
		t.Errorf("unexpected content: %s", results[0].Content)
	}
}

func TestRecallEmptyCuesIsInvalidQuery(t *testing.T) {
	e := NewEngine(testClock())
	_, err := e.Recall(RecallQuery{})
	if err == nil {
		t.Fatal("expected error for empty cue list")
	}
}

func TestRecallUnknownCueReturnsNoResults(t *testing.T) {
	e := NewEngine(testClock())
	e.Remember("content", []string{"go"})

	results, err := e.Recall(RecallQuery{Cues: []WeightedCue{{Cue: "nonexistent", Weight: 1.0}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results != nil {
		t.Errorf("expected no results, got %v", results)
	}
}

func TestRecallRanksByIntersectionWeight(t *testing.T) {
	e := NewEngine(testClock())
	both, _ := e.Remember("matches both cues", []string{"go", "concurrency"})
	one, _ := e.Remember("matches one cue", []string{"go"})

	results, err := e.Recall(RecallQuery{
		Cues: []WeightedCue{{Cue: "go", Weight: 1.0}, {Cue: "concurrency", Weight: 1.0}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != both.Record.ID {
		t.Errorf("expected record matching both cues ranked first, got %s want %s", results[0].ID, both.Record.ID)
	}
	if results[1].ID != one.Record.ID {
		t.Errorf("expected record matching one cue ranked second")
	}
}

func TestRecallRespectsLimit(t *testing.T) {
	e := NewEngine(testClock())
	for i := 0; i < 5; i++ {
		e.Remember("content", []string{"go"})
	}
	results, err := e.Recall(RecallQuery{
		Cues:  []WeightedCue{{Cue: "go", Weight: 1.0}},
		Limit: 2,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected limit of 2 results, got %d", len(results))
	}
}

func TestRecallExplainFlag(t *testing.T) {
	e := NewEngine(testClock())
	e.Remember("content", []string{"go"})

	noExplain, _ := e.Recall(RecallQuery{Cues: []WeightedCue{{Cue: "go", Weight: 1.0}}})
	if noExplain[0].Explain != nil {
		t.Error("expected no explanation when Explain flag is unset")
	}

	withExplain, _ := e.Recall(RecallQuery{
		Cues:  []WeightedCue{{Cue: "go", Weight: 1.0}},
		Flags: RecallFlags{Explain: true},
	})
	if withExplain[0].Explain == nil {
		t.Fatal("expected an explanation when Explain flag is set")
	}
	if len(withExplain[0].Explain.MatchedCues) == 0 {
		t.Error("expected matched cues in explanation")
	}
}

func TestRecallAutoReinforceBumpsCount(t *testing.T) {
	e := NewEngine(testClock())
	res, _ := e.Remember("content", []string{"go"})

	_, err := e.Recall(RecallQuery{
		Cues:  []WeightedCue{{Cue: "go", Weight: 1.0}},
		Flags: RecallFlags{AutoReinforce: true},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rec := e.Store.Get(res.Record.ID)
	if rec.Reinforcement() != 2 {
		t.Errorf("expected reinforcement bumped to 2 by AutoReinforce, got %d", rec.Reinforcement())
	}
}

func TestRecallDisableSystemsConsolidationExcludesGists(t *testing.T) {
	e := NewEngine(testClock())
	for i := 0; i < 6; i++ {
		e.Remember("similar content", []string{"go", "concurrency", "tutorial"})
	}
	created := e.Consolidate()
	if len(created) == 0 {
		t.Fatal("expected consolidation to create at least one gist")
	}

	withGist, err := e.Recall(RecallQuery{
		Cues:  []WeightedCue{{Cue: "go", Weight: 1.0}},
		Limit: 100,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	withoutGist, err := e.Recall(RecallQuery{
		Cues:  []WeightedCue{{Cue: "go", Weight: 1.0}},
		Limit: 100,
		Flags: RecallFlags{DisableSystemsConsolidation: true},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(withoutGist) >= len(withGist) {
		t.Errorf("expected fewer results with gists excluded: with=%d without=%d", len(withGist), len(withoutGist))
	}
}

func TestSelectDriverWithLenPrefersSmallestList(t *testing.T) {
	lens := map[string]int{"common": 100, "rare": 2}
	driver, ok := selectDriverWithLen([]WeightedCue{
		{Cue: "common", Weight: 1.0},
		{Cue: "rare", Weight: 1.0},
	}, func(c string) int { return lens[c] })
	if !ok || driver != "rare" {
		t.Errorf("expected rare cue selected as driver, got %q", driver)
	}
}

func TestSelectDriverWithLenRespectsFloor(t *testing.T) {
	lens := map[string]int{"common": 100, "weak": 1}
	driver, ok := selectDriverWithLen([]WeightedCue{
		{Cue: "common", Weight: 1.0},
		{Cue: "weak", Weight: 0.1},
	}, func(c string) int { return lens[c] })
	if !ok || driver != "common" {
		t.Errorf("expected low-weight cue excluded from driver selection, got %q", driver)
	}
}

// TestSelectDriverWithLenSkipsNeverIndexedCue guards against a zero-length
// cue (never attached to any record) always winning driver selection just
// because 0 < any real list length: an alias-expanded query always keeps
// the original token at weight 1.0 even when that token itself was never
// stored, and it must not starve a real candidate out of recall.
func TestSelectDriverWithLenSkipsNeverIndexedCue(t *testing.T) {
	lens := map[string]int{"pay": 0, "service:payment": 12}
	driver, ok := selectDriverWithLen([]WeightedCue{
		{Cue: "pay", Weight: 1.0},
		{Cue: "service:payment", Weight: 0.85},
	}, func(c string) int { return lens[c] })
	if !ok || driver != "service:payment" {
		t.Errorf("expected the indexed cue selected as driver over the empty one, got %q", driver)
	}
}

func TestSelectDriverWithLenAllZeroReturnsNotFound(t *testing.T) {
	lens := map[string]int{"a": 0, "b": 0}
	_, ok := selectDriverWithLen([]WeightedCue{
		{Cue: "a", Weight: 1.0},
		{Cue: "b", Weight: 1.0},
	}, func(c string) int { return lens[c] })
	if ok {
		t.Error("expected no driver when every cue is unindexed")
	}
}

// TestRecallAliasExpandedQueryFindsTargetMatch reproduces spec §8 E2E
// scenario 4 end to end: an alias "pay" -> "service:payment" @ 0.85 is
// defined, a record is stored under the target cue only (never under
// "pay" itself), and recalling ["pay"] through Aliases.ExpandWeighted must
// still surface it. Before the driver-selection fix this returned nil
// because the never-indexed "pay" cue (Len()==0) always outscored the
// real "service:payment" list as "smallest".
func TestRecallAliasExpandedQueryFindsTargetMatch(t *testing.T) {
	e := NewEngine(testClock())
	e.Aliases.Put("pay", "service:payment", 0.85)
	r1, _ := e.Remember("payment record", []string{"service:payment"})

	weighted := e.Aliases.ExpandWeighted([]string{"pay"})
	results, err := e.Recall(RecallQuery{Cues: weighted, Flags: RecallFlags{Explain: true}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].ID != r1.Record.ID {
		t.Fatalf("expected alias-expanded recall to return the target record, got %+v", results)
	}
	if results[0].Explain.IntersectionWeighted != 0.85 {
		t.Errorf("expected intersection_weighted 0.85 per spec scenario 4, got %f", results[0].Explain.IntersectionWeighted)
	}
}
