package cuemap

import (
	"sort"
	"sync"
	"time"
)

// Engine is the single-tenant indexing, scoring, and concurrency engine:
// Store + CueIndex + Cooccurrence + Aliases wired together behind Remember,
// Recall, Reinforce, and the background-job entry points AttachCue and
// ProposeAlias (§9).
type Engine struct {
	Store        *Store
	Index        *CueIndex
	Cooccur      *Cooccurrence
	Aliases      *Aliases
	Clock        Clock

	gistMu       sync.RWMutex
	gists        map[string]struct{} // ids of consolidation gist records
	gistsKeySeen map[string]struct{} // constituent-id-set keys already consolidated
}

// NewEngine builds an empty engine. clock defaults to a monotonic
// microsecond wall-clock reader when nil.
func NewEngine(clock Clock) *Engine {
	if clock == nil {
		start := time.Now()
		clock = func() int64 { return time.Since(start).Microseconds() }
	}
	return &Engine{
		Store:        NewStore(),
		Index:        NewCueIndex(),
		Cooccur:      NewCooccurrence(),
		Aliases:      NewAliases(),
		Clock:        clock,
		gists:        make(map[string]struct{}),
		gistsKeySeen: make(map[string]struct{}),
	}
}

// RememberResult reports which of the requested cues were accepted
// (normalized successfully) versus rejected (failed normalization).
type RememberResult struct {
	Record       *Record
	AcceptedCues []string
	RejectedCues []string
}

// Remember creates a new record: MemoryStore append, CueIndex prepend for
// every accepted cue, and co-occurrence increments for every cue pair —
// applied atomically with respect to recall (a reader never observes a
// partially-indexed record).
func (e *Engine) Remember(content string, rawCues []string) (*RememberResult, error) {
	var accepted, rejected []string
	for _, c := range rawCues {
		if n, ok := NormalizeCue(c); ok {
			accepted = append(accepted, n)
		} else {
			rejected = append(rejected, c)
		}
	}
	if len(accepted) == 0 && len(rawCues) > 0 {
		return nil, newErr(KindInvalidCue, "Remember", "no valid cues after normalization")
	}

	now := e.Clock()
	rec := NewRecord(content, accepted, now)

	// Store entry, co-occurrence counts and salience are in place before any
	// CueIndex list carries the id; salience counts each list as it will be
	// once the id is prepended.
	cueList := rec.CueList()
	rec.setSalience(computeSalience(cueList, rec.Reinforcement(), func(cue string) int {
		return e.Index.Len(cue) + 1
	}))
	e.Store.Put(rec)
	e.Cooccur.Increment(cueList)

	ls := e.Index.lockShardsFor(cueList)
	for _, cue := range cueList {
		s := e.Index.shardFor(cue)
		pl, ok := s.data[cue]
		if !ok {
			pl = newPostingList()
			s.data[cue] = pl
		}
		pl.prepend(rec.ID)
	}
	ls.unlock()

	return &RememberResult{Record: rec, AcceptedCues: accepted, RejectedCues: rejected}, nil
}

// Forget removes id from the store, every CueIndex list it appears in, and
// decrements the corresponding co-occurrence counts.
func (e *Engine) Forget(id string) error {
	rec := e.Store.Get(id)
	if rec == nil {
		return newErr(KindNotFound, "Forget", "unknown id")
	}
	cues := rec.CueList()
	ls := e.Index.lockShardsFor(cues)
	for _, cue := range cues {
		s := e.Index.shardFor(cue)
		if pl, ok := s.data[cue]; ok {
			pl.remove(id)
			if pl.len() == 0 {
				delete(s.data, cue)
			}
		}
	}
	ls.unlock()
	e.Cooccur.Decrement(cues)
	e.Store.Delete(id)
	return nil
}

// AttachCue adds an extra cue to an existing record outside of
// reinforcement (used by background normalize/taxonomy jobs per §9).
func (e *Engine) AttachCue(id, cue string) error {
	rec := e.Store.Get(id)
	if rec == nil {
		return newErr(KindNotFound, "AttachCue", "unknown id")
	}
	n, ok := NormalizeCue(cue)
	if !ok {
		return newErr(KindInvalidCue, "AttachCue", "cue fails normalization")
	}
	if !rec.addCue(n) {
		return nil
	}
	e.Index.Insert(n, id)
	e.Cooccur.Increment(rec.CueList())
	rec.setSalience(e.computeSalienceFor(rec))
	return nil
}

// ProposeAlias registers an alias submitted via the /aliases endpoint.
func (e *Engine) ProposeAlias(from, to string, weight float64) {
	e.Aliases.Put(from, to, weight)
}

func (e *Engine) computeSalienceFor(rec *Record) float32 {
	cues := rec.CueList()
	return computeSalience(cues, rec.Reinforcement(), e.Index.Len)
}

// Stats summarizes engine shape for the /stats endpoint.
type Stats struct {
	TotalMemories int
	TotalCues     int
	Cues          []string
	MaxDepth      int
	MeanDepth     float64
}

// Stats computes current totals. O(total cues); intended for operator
// visibility, not the hot recall path.
func (e *Engine) Stats() Stats {
	depths := e.Index.ShardDepths()
	cues := make([]string, 0, len(depths))
	max, sum := 0, 0
	for cue, d := range depths {
		cues = append(cues, cue)
		sum += d
		if d > max {
			max = d
		}
	}
	sort.Strings(cues)
	mean := 0.0
	if len(depths) > 0 {
		mean = float64(sum) / float64(len(depths))
	}
	return Stats{
		TotalMemories: e.Store.Len(),
		TotalCues:     len(depths),
		Cues:          cues,
		MaxDepth:      max,
		MeanDepth:     mean,
	}
}
