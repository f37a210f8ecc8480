package cuemap

import (
	"math"
	"sort"
)

// HalfLife is the recency half-life in seconds (§4.2 step 4).
const HalfLife = 86400.0

// driverFloor is the minimum weight a cue must carry to be eligible as the
// selective-intersection driver (§4.2 step 1).
const driverFloor = 0.5

// Pattern completion (§4.2 step 3) takes up to patternCompletionFanout
// completion cues per query cue, each needing a co-occurrence count >=
// patternCompletionMinCount and a conditional probability >=
// patternCompletionMinCondProb; a candidate carrying one gains
// patternCompletionWeight.
const patternCompletionFanout = 3
const patternCompletionMinCount = 5
const patternCompletionMinCondProb = 0.6
const patternCompletionWeight = 0.5

// RecallFlags toggles optional recall behavior per §6.
type RecallFlags struct {
	AutoReinforce              bool
	Explain                    bool
	DisablePatternCompletion   bool
	DisableSalienceBias        bool
	DisableSystemsConsolidation bool
}

// RecallQuery is the input to Recall: a weighted cue list plus limit and
// flags.
type RecallQuery struct {
	Cues  []WeightedCue
	Limit int
	Flags RecallFlags
}

// Explanation is the optional per-result scoring breakdown (§4.2 step 7).
type Explanation struct {
	IntersectionWeighted   float64  `json:"intersection_weighted"`
	RecencyComponent       float64  `json:"recency_component"`
	ReinforcementComponent float64  `json:"reinforcement_component"`
	SalienceMultiplier     float64  `json:"salience_multiplier"`
	MatchedCues            []string `json:"matched_cues"`
	CompletionCues         []string `json:"completion_cues,omitempty"`
}

// RecallResult is one ranked candidate, matching §6's result shape.
type RecallResult struct {
	ID             string       `json:"id"`
	Content        string       `json:"content"`
	Cues           []string     `json:"cues"`
	Score          float64      `json:"score"`
	MatchIntegrity float64      `json:"match_integrity"`
	Reinforcement  uint32       `json:"reinforcement"`
	CreatedAt      int64        `json:"created_at"`
	IsGist         bool         `json:"is_gist"`
	Explain        *Explanation `json:"explain,omitempty"`
}

type candidate struct {
	id              string
	matchedWeight   float64
	matchedCues     map[string]struct{}
	completionCues  map[string]struct{}
}

// Recall implements §4.2's selective-set-intersection algorithm.
func (e *Engine) Recall(q RecallQuery) ([]RecallResult, error) {
	if len(q.Cues) == 0 {
		return nil, newErr(KindInvalidQuery, "Recall", "empty cue list")
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 10
	}

	driverCue, ok := selectDriverWithLen(q.Cues, e.Index.Len)
	if !ok {
		return nil, nil
	}

	candCap := limit * 8
	if candCap < 64 {
		candCap = 64
	}

	others := make([]WeightedCue, 0, len(q.Cues))
	for _, wc := range q.Cues {
		if wc.Cue != driverCue {
			others = append(others, wc)
		}
	}

	candidates := e.probe(driverCue, q.Cues, others, candCap)

	if !q.Flags.DisablePatternCompletion {
		e.expandDriverForThinCues(q.Cues, candidates, candCap, driverCue)
		e.applyPatternCompletion(q.Cues, candidates)
	}

	queryWeightSum := 0.0
	for _, wc := range q.Cues {
		queryWeightSum += wc.Weight
	}

	now := e.Clock()
	results := make([]RecallResult, 0, len(candidates))
	for id, cand := range candidates {
		rec := e.Store.Get(id)
		if rec == nil {
			continue // deleted between probe and score
		}
		if q.Flags.DisableSystemsConsolidation && e.isGist(id) {
			continue
		}
		results = append(results, e.score(rec, cand, now, q.Flags, queryWeightSum))
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].CreatedAt != results[j].CreatedAt {
			return results[i].CreatedAt > results[j].CreatedAt
		}
		return results[i].ID < results[j].ID
	})
	if len(results) > limit {
		results = results[:limit]
	}

	if !q.Flags.Explain {
		for i := range results {
			results[i].Explain = nil
		}
	}

	if q.Flags.AutoReinforce {
		for _, r := range results {
			_, _ = e.Reinforce(r.ID, nil)
		}
	}

	return results, nil
}

// selectDriverWithLen picks the cue with the smallest non-empty posting
// list among cues whose weight is >= driverFloor (§4.2 step 1). A cue with
// Len()==0 has never been attached to any record — picking it as driver
// would always short-circuit recall to an empty result, even when another
// query cue (e.g. an alias target that was never itself the alias source)
// has real matches — so it is never eligible while a non-empty candidate
// exists. If every >= driverFloor cue is empty, the same rule is relaxed
// to every cue regardless of weight, so a low-weight cue with real data
// still drives the scan instead of forcing an empty result.
func selectDriverWithLen(cues []WeightedCue, lenOf func(string) int) (string, bool) {
	if best, ok := bestNonEmpty(cues, lenOf, true); ok {
		return best, true
	}
	if best, ok := bestNonEmpty(cues, lenOf, false); ok {
		return best, true
	}
	return "", false
}

// bestNonEmpty finds the cue with the smallest non-zero posting list,
// optionally restricted to cues at or above driverFloor weight.
func bestNonEmpty(cues []WeightedCue, lenOf func(string) int, requireFloor bool) (string, bool) {
	best := ""
	bestLen := -1
	found := false
	for _, wc := range cues {
		if requireFloor && wc.Weight < driverFloor {
			continue
		}
		l := lenOf(wc.Cue)
		if l == 0 {
			continue
		}
		if !found || l < bestLen || (l == bestLen && wc.Cue < best) {
			best = wc.Cue
			bestLen = l
			found = true
		}
	}
	return best, found
}

// probe walks the driver list, and for each id checks membership in every
// other query cue, stopping once candCap candidates are gathered or the
// driver list is exhausted (§4.2 step 2).
func (e *Engine) probe(driverCue string, all, others []WeightedCue, candCap int) map[string]*candidate {
	out := make(map[string]*candidate)
	const batch = 256
	from := 0
	driverWeight := weightOf(all, driverCue)
	for {
		ids := e.Index.Iter(driverCue, from, batch)
		if len(ids) == 0 {
			break
		}
		for _, id := range ids {
			cand := &candidate{id: id, matchedCues: map[string]struct{}{driverCue: {}}}
			cand.matchedWeight = driverWeight
			for _, wc := range others {
				if e.Index.Contains(wc.Cue, id) {
					cand.matchedCues[wc.Cue] = struct{}{}
					cand.matchedWeight += wc.Weight
				}
			}
			out[id] = cand
			if len(out) >= candCap {
				return out
			}
		}
		from += len(ids)
		if len(ids) < batch {
			break
		}
	}
	return out
}

func weightOf(cues []WeightedCue, cue string) float64 {
	for _, wc := range cues {
		if wc.Cue == cue {
			return wc.Weight
		}
	}
	return 0
}

// expandDriverForThinCues implements §4.2 step 3's second clause: if a
// query cue q has fewer than 3 matches among current candidates, pull in
// q's top co-occurring cue and re-probe its list for more candidates.
func (e *Engine) expandDriverForThinCues(all []WeightedCue, candidates map[string]*candidate, candCap int, driverCue string) {
	for _, wc := range all {
		matches := 0
		for _, c := range candidates {
			if _, ok := c.matchedCues[wc.Cue]; ok {
				matches++
			}
		}
		if matches >= 3 {
			continue
		}
		top := e.Cooccur.TopCoOccurring(wc.Cue, 1, 1)
		if len(top) == 0 {
			continue
		}
		expandCue := top[0]
		ids := e.Index.Iter(expandCue, 0, candCap)
		for _, id := range ids {
			if len(candidates) >= candCap {
				break
			}
			cand, ok := candidates[id]
			if !ok {
				cand = &candidate{id: id, matchedCues: map[string]struct{}{}}
				for _, owc := range all {
					if e.Index.Contains(owc.Cue, id) {
						cand.matchedCues[owc.Cue] = struct{}{}
						cand.matchedWeight += owc.Weight
					}
				}
				candidates[id] = cand
			}
		}
	}
}

// applyPatternCompletion implements §4.2 step 3's first clause: for each
// candidate, find up to 3 cues strongly co-occurring with the query cues
// but absent from the query, and treat the candidate's membership in those
// as a fractional intersection contribution weighted at 0.5 each.
func (e *Engine) applyPatternCompletion(all []WeightedCue, candidates map[string]*candidate) {
	inQuery := make(map[string]struct{}, len(all))
	for _, wc := range all {
		inQuery[wc.Cue] = struct{}{}
	}

	completionCues := make(map[string]struct{})
	for _, wc := range all {
		top := e.Cooccur.TopCoOccurring(wc.Cue, patternCompletionFanout*2, patternCompletionMinCount)
		listLen := e.Index.Len(wc.Cue)
		added := 0
		for _, cue := range top {
			if _, already := inQuery[cue]; already {
				continue
			}
			cnt := e.Cooccur.Count(wc.Cue, cue)
			if ConditionalProbability(cnt, listLen) < patternCompletionMinCondProb {
				continue
			}
			completionCues[cue] = struct{}{}
			added++
			if added >= patternCompletionFanout {
				break
			}
		}
	}

	for _, cand := range candidates {
		cand.completionCues = map[string]struct{}{}
		for cue := range completionCues {
			if e.Index.Contains(cue, cand.id) {
				cand.completionCues[cue] = struct{}{}
				cand.matchedWeight += patternCompletionWeight
			}
		}
	}
}

func (e *Engine) isGist(id string) bool {
	e.gistMu.RLock()
	defer e.gistMu.RUnlock()
	_, ok := e.gists[id]
	return ok
}

func (e *Engine) score(rec *Record, cand *candidate, now int64, flags RecallFlags, queryWeightSum float64) RecallResult {
	ageSeconds := float64(now-rec.CreatedAt) / 1e6
	if ageSeconds < 0 {
		ageSeconds = 0
	}
	recencyFactor := 1 / (1 + ageSeconds/HalfLife)

	salienceMultiplier := 1.0
	if !flags.DisableSalienceBias {
		salienceMultiplier = float64(rec.Salience())
	}

	reinforcementComponent := 1 + math.Log2(1+float64(rec.Reinforcement()))
	score := cand.matchedWeight * reinforcementComponent * recencyFactor * salienceMultiplier

	matchIntegrity := 0.0
	if queryWeightSum > 0 {
		ratio := cand.matchedWeight / queryWeightSum
		if ratio > 1 {
			ratio = 1
		}
		reinforcementTerm := float64(rec.Reinforcement()) / 10
		if reinforcementTerm > 1 {
			reinforcementTerm = 1
		}
		matchIntegrity = ratio * (0.5 + 0.5*reinforcementTerm)
	}

	matchedCues := make([]string, 0, len(cand.matchedCues))
	for c := range cand.matchedCues {
		matchedCues = append(matchedCues, c)
	}
	sort.Strings(matchedCues)
	completionCues := make([]string, 0, len(cand.completionCues))
	for c := range cand.completionCues {
		completionCues = append(completionCues, c)
	}
	sort.Strings(completionCues)

	return RecallResult{
		ID:             rec.ID,
		Content:        rec.Content,
		Cues:           rec.CueList(),
		Score:          score,
		MatchIntegrity: matchIntegrity,
		Reinforcement:  rec.Reinforcement(),
		CreatedAt:      rec.CreatedAt,
		IsGist:         e.isGist(rec.ID),
		Explain: &Explanation{
			IntersectionWeighted:   cand.matchedWeight,
			RecencyComponent:       recencyFactor,
			ReinforcementComponent: reinforcementComponent,
			SalienceMultiplier:     salienceMultiplier,
			MatchedCues:            matchedCues,
			CompletionCues:         completionCues,
		},
	}
}
