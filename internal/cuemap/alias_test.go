package cuemap

import "testing"

func TestAliasPutAndGet(t *testing.T) {
	a := NewAliases()
	a.Put("js", "javascript", 0.9)
	a.Put("js", "ecmascript", 0.5)

	got := a.Get("js")
	if len(got) != 2 {
		t.Fatalf("expected 2 aliases, got %v", got)
	}
}

func TestAliasPutReplacesExistingWeight(t *testing.T) {
	a := NewAliases()
	a.Put("js", "javascript", 0.5)
	a.Put("js", "javascript", 0.9)

	got := a.Get("js")
	if len(got) != 1 {
		t.Fatalf("expected alias to be replaced not duplicated, got %v", got)
	}
	if got[0].Weight != 0.9 {
		t.Errorf("expected weight 0.9, got %f", got[0].Weight)
	}
}

func TestAliasWeightClamped(t *testing.T) {
	a := NewAliases()
	a.Put("x", "y", 5.0)
	a.Put("x", "z", -1.0)

	got := a.Get("x")
	for _, al := range got {
		if al.To == "y" && al.Weight != 1.0 {
			t.Errorf("expected weight clamped to 1.0, got %f", al.Weight)
		}
		if al.To == "z" && al.Weight <= 0 {
			t.Errorf("expected non-positive weight clamped upward, got %f", al.Weight)
		}
	}
}

func TestExpandWeightedAppliesOneHop(t *testing.T) {
	a := NewAliases()
	a.Put("js", "javascript", 0.8)

	out := a.ExpandWeighted([]string{"js"})
	byTo := make(map[string]float64)
	for _, wc := range out {
		byTo[wc.Cue] = wc.Weight
	}
	if byTo["js"] != 1.0 {
		t.Errorf("expected the original cue to keep weight 1.0, got %v", byTo)
	}
	if byTo["javascript"] != 0.8 {
		t.Errorf("expected alias weight 0.8, got %v", byTo)
	}
}

func TestExpandWeightedDedupesByMaxWeight(t *testing.T) {
	a := NewAliases()
	a.Put("js", "lang", 0.5)
	a.Put("ts", "lang", 0.9)

	out := a.ExpandWeighted([]string{"js", "ts"})
	var langWeight float64
	for _, wc := range out {
		if wc.Cue == "lang" {
			langWeight = wc.Weight
		}
	}
	if langWeight != 0.9 {
		t.Errorf("expected max weight 0.9 for duplicate to-cue, got %f", langWeight)
	}
}

func TestAliasMerge(t *testing.T) {
	a := NewAliases()
	count := a.Merge([]string{"js", "ecma"}, "javascript")
	if count != 2 {
		t.Errorf("expected 2 aliases merged, got %d", count)
	}
	if got := a.Get("js"); len(got) != 1 || got[0].To != "javascript" {
		t.Errorf("expected js to resolve to javascript, got %v", got)
	}
}

func TestAliasMergeSkipsSelfReference(t *testing.T) {
	a := NewAliases()
	count := a.Merge([]string{"javascript"}, "javascript")
	if count != 0 {
		t.Errorf("expected self-merge to be skipped, got count %d", count)
	}
}
