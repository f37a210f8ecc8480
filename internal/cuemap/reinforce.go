package cuemap

// ReinforceResult reports the record's state immediately after
// reinforcement, for callers that want to echo the new count back.
type ReinforceResult struct {
	ID            string
	Reinforcement uint32
}

// Reinforce implements §4.3: move id to the front of every CueIndex list
// for its cues, validate and attach extraCues, bump the access counter and
// last-access timestamp, and recompute salience.
//
// All list promotions for this call are applied while holding every
// affected shard's lock (acquired in sorted order via lockShardsFor), so a
// concurrent recall that takes the same shards never observes only some of
// the promotions (§4.3's atomicity requirement, and P2's monotonicity:
// position never regresses for a reader).
func (e *Engine) Reinforce(id string, extraCues []string) (*ReinforceResult, error) {
	rec := e.Store.Get(id)
	if rec == nil {
		return nil, newErr(KindNotFound, "Reinforce", "unknown id")
	}

	var normalizedExtra []string
	for _, c := range extraCues {
		if n, ok := NormalizeCue(c); ok {
			normalizedExtra = append(normalizedExtra, n)
		} else {
			return nil, newErr(KindInvalidCue, "Reinforce", "extra cue fails normalization: "+c)
		}
	}

	originalCues := rec.CueList()
	allCues := make([]string, len(originalCues), len(originalCues)+len(normalizedExtra))
	copy(allCues, originalCues)
	allCues = append(allCues, normalizedExtra...)

	ls := e.Index.lockShardsFor(allCues)
	for _, cue := range originalCues {
		s := e.Index.shardFor(cue)
		if pl, ok := s.data[cue]; ok {
			pl.moveToFront(id)
		}
	}
	var newlyAttached []string
	for _, cue := range normalizedExtra {
		if rec.addCue(cue) {
			newlyAttached = append(newlyAttached, cue)
			s := e.Index.shardFor(cue)
			pl, ok := s.data[cue]
			if !ok {
				pl = newPostingList()
				s.data[cue] = pl
			}
			pl.prepend(id)
		}
	}
	ls.unlock()

	if len(newlyAttached) > 0 {
		e.Cooccur.Increment(rec.CueList())
	}

	now := e.Clock()
	rec.bumpReinforcement(now)
	rec.setSalience(e.computeSalienceFor(rec))

	return &ReinforceResult{ID: id, Reinforcement: rec.Reinforcement()}, nil
}
