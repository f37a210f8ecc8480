package cuemap

import (
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Clock returns monotonic microseconds since an engine-local epoch. It is
// swappable in tests so that recency math and snapshot round-trips are
// deterministic (P3).
type Clock func() int64

// Record is a single memory: content plus the cue set it was created or
// reinforced with. Content is immutable and cues are never removed; the cue
// set only grows (AttachCue and Reinforce's extra cues), the reinforcement
// counter and last-access timestamp change only through Reinforce, and the
// derived salience is recomputed after either kind of change.
type Record struct {
	ID        string
	Content   string
	Cues      map[string]struct{} // guarded by cuesMu; use CueList/HasCue/addCue, never range directly
	CreatedAt int64

	cuesMu        sync.RWMutex
	reinforcement uint32 // accessed via atomic
	lastAccess    int64  // accessed via atomic
	salience      uint32 // float32 bits, accessed via atomic
}

// NewRecord creates a record with a fresh uuid-v4 id, reinforcement=1 (I3),
// and the given canonicalized cue set. now is the creation timestamp.
func NewRecord(content string, cues []string, now int64) *Record {
	set := make(map[string]struct{}, len(cues))
	for _, c := range cues {
		if n, ok := NormalizeCue(c); ok {
			set[n] = struct{}{}
		}
	}
	r := &Record{
		ID:        uuid.NewString(),
		Content:   content,
		Cues:      set,
		CreatedAt: now,
	}
	atomic.StoreUint32(&r.reinforcement, 1)
	atomic.StoreInt64(&r.lastAccess, now)
	return r
}

// CueList returns the record's cues as a slice. The cue set is mutable
// after creation (cue attachment via AttachCue or Reinforce), so every read goes
// through cuesMu to stay race-free against a concurrent addCue (§5).
func (r *Record) CueList() []string {
	r.cuesMu.RLock()
	defer r.cuesMu.RUnlock()
	out := make([]string, 0, len(r.Cues))
	for c := range r.Cues {
		out = append(out, c)
	}
	return out
}

// CueSet returns a snapshot copy of the record's cue set, safe to range or
// hand to jaccard-style comparisons without holding cuesMu.
func (r *Record) CueSet() map[string]struct{} {
	r.cuesMu.RLock()
	defer r.cuesMu.RUnlock()
	out := make(map[string]struct{}, len(r.Cues))
	for c := range r.Cues {
		out[c] = struct{}{}
	}
	return out
}

// HasCue reports whether cue is currently in the record's cue set.
func (r *Record) HasCue(cue string) bool {
	r.cuesMu.RLock()
	defer r.cuesMu.RUnlock()
	_, ok := r.Cues[cue]
	return ok
}

// Reinforcement returns the current access count.
func (r *Record) Reinforcement() uint32 {
	return atomic.LoadUint32(&r.reinforcement)
}

// LastAccess returns the last-access timestamp in monotonic micros.
func (r *Record) LastAccess() int64 {
	return atomic.LoadInt64(&r.lastAccess)
}

// Salience returns the current salience multiplier.
func (r *Record) Salience() float32 {
	return float32FromBits(atomic.LoadUint32(&r.salience))
}

// bumpReinforcement increments the counter with saturation at 2^32-1 and
// updates last-access; it does not recompute salience (callers do that
// separately once the full cue set for this access is known).
func (r *Record) bumpReinforcement(now int64) {
	for {
		cur := atomic.LoadUint32(&r.reinforcement)
		if cur == ^uint32(0) {
			break
		}
		if atomic.CompareAndSwapUint32(&r.reinforcement, cur, cur+1) {
			break
		}
	}
	atomic.StoreInt64(&r.lastAccess, now)
}

func (r *Record) setSalience(v float32) {
	atomic.StoreUint32(&r.salience, float32Bits(v))
}

// addCue adds a cue to the record's live set (AttachCue and Reinforce's
// extra cues are the only mutations of the cue set after creation).
// Returns true if the cue was new.
func (r *Record) addCue(cue string) bool {
	r.cuesMu.Lock()
	defer r.cuesMu.Unlock()
	if _, ok := r.Cues[cue]; ok {
		return false
	}
	r.Cues[cue] = struct{}{}
	return true
}

// NormalizeCue canonicalizes a cue per spec (I4): lowercase, trimmed, no
// internal whitespace. Returns ok=false for an empty result.
func NormalizeCue(cue string) (string, bool) {
	c := strings.ToLower(strings.TrimSpace(cue))
	c = strings.Join(strings.Fields(c), "")
	if c == "" {
		return "", false
	}
	return c, true
}
