package cuemap

import "sync"

// pairKey orders two cues canonically so (a,b) and (b,a) share one entry.
func pairKey(a, b string) (string, string) {
	if a <= b {
		return a, b
	}
	return b, a
}

// Cooccurrence is the symmetric sparse cue x cue count table. It is
// sharded by the (ordered) pair's first cue so that unrelated pairs don't
// contend, matching the CueIndex's sharding discipline.
type Cooccurrence struct {
	shards [shardCount]*cooccurShard
}

type cooccurShard struct {
	mu     sync.RWMutex
	counts map[string]map[string]uint32
}

// NewCooccurrence builds an empty table.
func NewCooccurrence() *Cooccurrence {
	c := &Cooccurrence{}
	for i := range c.shards {
		c.shards[i] = &cooccurShard{counts: make(map[string]map[string]uint32)}
	}
	return c
}

func (c *Cooccurrence) shardFor(a string) *cooccurShard {
	return c.shards[fnv32(a)%shardCount]
}

// Increment bumps the count for every distinct pair within cues by one,
// used on record create and cue-attach.
func (c *Cooccurrence) Increment(cues []string) {
	for i := 0; i < len(cues); i++ {
		for j := i + 1; j < len(cues); j++ {
			a, b := pairKey(cues[i], cues[j])
			s := c.shardFor(a)
			s.mu.Lock()
			row, ok := s.counts[a]
			if !ok {
				row = make(map[string]uint32)
				s.counts[a] = row
			}
			row[b]++
			s.mu.Unlock()
		}
	}
}

// Decrement lowers the count for every distinct pair within cues by one
// (floored at zero), used when a record is deleted (Forget).
func (c *Cooccurrence) Decrement(cues []string) {
	for i := 0; i < len(cues); i++ {
		for j := i + 1; j < len(cues); j++ {
			a, b := pairKey(cues[i], cues[j])
			s := c.shardFor(a)
			s.mu.Lock()
			if row, ok := s.counts[a]; ok {
				if row[b] > 0 {
					row[b]--
				}
				if row[b] == 0 {
					delete(row, b)
				}
				if len(row) == 0 {
					delete(s.counts, a)
				}
			}
			s.mu.Unlock()
		}
	}
}

// Count returns the co-occurrence count of a and b.
func (c *Cooccurrence) Count(a, b string) uint32 {
	x, y := pairKey(a, b)
	s := c.shardFor(x)
	s.mu.RLock()
	defer s.mu.RUnlock()
	if row, ok := s.counts[x]; ok {
		return row[y]
	}
	return 0
}

// TopCoOccurring returns up to n cues most strongly co-occurring with q,
// restricted to candidates with count >= minCount, ordered by count
// descending then by cue name ascending for determinism.
func (c *Cooccurrence) TopCoOccurring(q string, n int, minCount uint32) []string {
	type pair struct {
		cue   string
		count uint32
	}
	var found []pair
	for i := 0; i < shardCount; i++ {
		s := c.shards[i]
		s.mu.RLock()
		if row, ok := s.counts[q]; ok {
			for other, cnt := range row {
				if cnt >= minCount {
					found = append(found, pair{other, cnt})
				}
			}
		}
		// q may also appear as the second element of pairs keyed by a
		// lexicographically smaller cue; scan those rows too.
		for a, row := range s.counts {
			if a == q {
				continue
			}
			if cnt, ok := row[q]; ok && cnt >= minCount {
				found = append(found, pair{a, cnt})
			}
		}
		s.mu.RUnlock()
	}

	// insertion sort is fine here: found is expected to be small relative
	// to total cue count for any single query cue.
	for i := 1; i < len(found); i++ {
		j := i
		for j > 0 && (found[j].count > found[j-1].count ||
			(found[j].count == found[j-1].count && found[j].cue < found[j-1].cue)) {
			found[j], found[j-1] = found[j-1], found[j]
			j--
		}
	}
	if len(found) > n {
		found = found[:n]
	}
	out := make([]string, len(found))
	for i, p := range found {
		out[i] = p.cue
	}
	return out
}

// ConditionalProbability returns P(b | a) = count(a,b) / list-length(a),
// where listLen is the caller-supplied CueIndex.Len(a).
func ConditionalProbability(count uint32, listLen int) float64 {
	if listLen == 0 {
		return 0
	}
	return float64(count) / float64(listLen)
}
