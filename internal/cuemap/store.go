package cuemap

import "sync"

// storeShardCount partitions MemoryStore by id hash so that unrelated
// records never contend on the same lock.
const storeShardCount = 32

type storeShard struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// Store is the primary key map from id to Record. Records are held behind
// a pointer (NOT copied) so that a concurrent reader sees a stable view of
// Content while Reinforce and AttachCue change only the
// counter/timestamp/salience atomics and add cues under the record's own
// cue lock.
type Store struct {
	shards [storeShardCount]*storeShard
}

// NewStore builds an empty store.
func NewStore() *Store {
	st := &Store{}
	for i := range st.shards {
		st.shards[i] = &storeShard{records: make(map[string]*Record)}
	}
	return st
}

func (st *Store) shardFor(id string) *storeShard {
	return st.shards[fnv32(id)%storeShardCount]
}

// Put inserts or overwrites a record.
func (st *Store) Put(r *Record) {
	s := st.shardFor(r.ID)
	s.mu.Lock()
	s.records[r.ID] = r
	s.mu.Unlock()
}

// Get returns the record for id, or nil if absent.
func (st *Store) Get(id string) *Record {
	s := st.shardFor(id)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records[id]
}

// Delete removes id, returning the removed record (or nil).
func (st *Store) Delete(id string) *Record {
	s := st.shardFor(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.records[id]
	delete(s.records, id)
	return r
}

// Len returns the total number of live records.
func (st *Store) Len() int {
	total := 0
	for _, s := range st.shards {
		s.mu.RLock()
		total += len(s.records)
		s.mu.RUnlock()
	}
	return total
}

// All returns every live record. Used by Snapshot and Consolidation, both
// of which tolerate a racing insert landing on either side of the sweep
// (recall is idempotent per §5's snapshot consistency note).
func (st *Store) All() []*Record {
	var out []*Record
	for _, s := range st.shards {
		s.mu.RLock()
		for _, r := range s.records {
			out = append(out, r)
		}
		s.mu.RUnlock()
	}
	return out
}
