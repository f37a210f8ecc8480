package cuemap

import (
	"sort"
	"sync"
)

// shardCount is the number of CueIndex shards. The spec recommends >=16;
// a power of two lets the shard selector use a mask instead of a modulo.
const shardCount = 32

// node is an element of a cue's posting list: a doubly linked list ordered
// most-recent-first, paired with a map from id to *node so that contains,
// move-to-front, and remove are all O(1).
type node struct {
	id         string
	prev, next *node
}

// postingList is an insertion-ordered set of ids with O(1) membership,
// prepend, and removal. Position 0 is always the head. Swap-remove is never
// used (it would violate the recency ordering I5 requires).
type postingList struct {
	head, tail *node
	index      map[string]*node
	size       int
}

func newPostingList() *postingList {
	return &postingList{index: make(map[string]*node)}
}

func (pl *postingList) prepend(id string) {
	if n, ok := pl.index[id]; ok {
		pl.unlink(n)
		pl.linkFront(n)
		return
	}
	n := &node{id: id}
	pl.index[id] = n
	pl.linkFront(n)
	pl.size++
}

func (pl *postingList) moveToFront(id string) bool {
	n, ok := pl.index[id]
	if !ok {
		return false
	}
	if pl.head == n {
		return true
	}
	pl.unlink(n)
	pl.linkFront(n)
	return true
}

func (pl *postingList) remove(id string) bool {
	n, ok := pl.index[id]
	if !ok {
		return false
	}
	pl.unlink(n)
	delete(pl.index, id)
	pl.size--
	return true
}

func (pl *postingList) contains(id string) bool {
	_, ok := pl.index[id]
	return ok
}

func (pl *postingList) len() int { return pl.size }

// iter walks the list from position `from` (0 = head) for up to `count`
// ids, most-recent-first.
func (pl *postingList) iter(from, count int) []string {
	if from < 0 || count <= 0 {
		return nil
	}
	n := pl.head
	for i := 0; i < from && n != nil; i++ {
		n = n.next
	}
	out := make([]string, 0, count)
	for i := 0; i < count && n != nil; i++ {
		out = append(out, n.id)
		n = n.next
	}
	return out
}

func (pl *postingList) linkFront(n *node) {
	n.prev = nil
	n.next = pl.head
	if pl.head != nil {
		pl.head.prev = n
	}
	pl.head = n
	if pl.tail == nil {
		pl.tail = n
	}
}

func (pl *postingList) unlink(n *node) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		pl.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		pl.tail = n.prev
	}
	n.prev, n.next = nil, nil
}

// shard is one partition of the CueIndex, guarding its own map of cue ->
// postingList with a single RWMutex. Writers take the exclusive path;
// readers (len/contains/iter) take the read path.
type shard struct {
	mu   sync.RWMutex
	data map[string]*postingList
}

// CueIndex is the inverted index from cue to an ordered id list. It is
// sharded by cue so that unrelated cues never contend on the same lock, and
// an operation that must hold several shards at once (Remember, Forget,
// Reinforce) takes them in ascending shard-index order (lockShardsFor) to
// make deadlock impossible.
type CueIndex struct {
	shards [shardCount]*shard
}

// NewCueIndex builds an empty, ready-to-use index.
func NewCueIndex() *CueIndex {
	ci := &CueIndex{}
	for i := range ci.shards {
		ci.shards[i] = &shard{data: make(map[string]*postingList)}
	}
	return ci
}

func (ci *CueIndex) shardFor(cue string) *shard {
	h := fnv32(cue)
	return ci.shards[h%shardCount]
}

func fnv32(s string) uint32 {
	const prime32 = 16777619
	h := uint32(2166136261)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= prime32
	}
	return h
}

// Insert prepends id to cue's list, creating the list if absent. A
// duplicate insert is a no-op that still promotes the id to the front.
func (ci *CueIndex) Insert(cue, id string) {
	s := ci.shardFor(cue)
	s.mu.Lock()
	defer s.mu.Unlock()
	pl, ok := s.data[cue]
	if !ok {
		pl = newPostingList()
		s.data[cue] = pl
	}
	pl.prepend(id)
}

// MoveToFront relocates id to position 0 of cue's list. No-op if absent.
func (ci *CueIndex) MoveToFront(cue, id string) {
	s := ci.shardFor(cue)
	s.mu.Lock()
	defer s.mu.Unlock()
	if pl, ok := s.data[cue]; ok {
		pl.moveToFront(id)
	}
}

// Remove deletes id from cue's list, preserving order of the remainder.
func (ci *CueIndex) Remove(cue, id string) {
	s := ci.shardFor(cue)
	s.mu.Lock()
	defer s.mu.Unlock()
	if pl, ok := s.data[cue]; ok {
		pl.remove(id)
		if pl.len() == 0 {
			delete(s.data, cue)
		}
	}
}

// Len returns the size of cue's posting list (0 if the cue is unknown).
func (ci *CueIndex) Len(cue string) int {
	s := ci.shardFor(cue)
	s.mu.RLock()
	defer s.mu.RUnlock()
	if pl, ok := s.data[cue]; ok {
		return pl.len()
	}
	return 0
}

// Contains reports whether id is present in cue's list.
func (ci *CueIndex) Contains(cue, id string) bool {
	s := ci.shardFor(cue)
	s.mu.RLock()
	defer s.mu.RUnlock()
	if pl, ok := s.data[cue]; ok {
		return pl.contains(id)
	}
	return false
}

// Iter returns up to count ids from cue's list starting at position from.
func (ci *CueIndex) Iter(cue string, from, count int) []string {
	s := ci.shardFor(cue)
	s.mu.RLock()
	defer s.mu.RUnlock()
	if pl, ok := s.data[cue]; ok {
		return pl.iter(from, count)
	}
	return nil
}

// Cues returns every cue currently known to the index, across all shards.
// Used by Stats and Snapshot; callers should not expect a stable order
// across mutations, so the result is sorted for determinism (P3).
func (ci *CueIndex) Cues() []string {
	var out []string
	for _, s := range ci.shards {
		s.mu.RLock()
		for cue := range s.data {
			out = append(out, cue)
		}
		s.mu.RUnlock()
	}
	sort.Strings(out)
	return out
}

// ShardDepths returns the posting-list length of every known cue, for the
// stats endpoint's depth histogram.
func (ci *CueIndex) ShardDepths() map[string]int {
	out := make(map[string]int)
	for _, s := range ci.shards {
		s.mu.RLock()
		for cue, pl := range s.data {
			out[cue] = pl.len()
		}
		s.mu.RUnlock()
	}
	return out
}

// lockedShards is a held set of shard locks, acquired in ascending
// shard-index order (one shard serves many cues, so the index alone fixes
// the order) so concurrent multi-cue operations never deadlock against
// each other.
type lockedShards struct {
	shards []*shard
}

// lockShardsFor acquires write locks on every distinct shard touched by
// cues, in ascending shard-index order, and returns a releaser.
func (ci *CueIndex) lockShardsFor(cues []string) *lockedShards {
	idx := make(map[int]*shard)
	for _, c := range cues {
		s := ci.shardFor(c)
		idx[int(fnv32(c)%shardCount)] = s
	}
	ordered := make([]int, 0, len(idx))
	for i := range idx {
		ordered = append(ordered, i)
	}
	sort.Ints(ordered)
	ls := &lockedShards{}
	for _, i := range ordered {
		s := idx[i]
		s.mu.Lock()
		ls.shards = append(ls.shards, s)
	}
	return ls
}

func (ls *lockedShards) unlock() {
	for i := len(ls.shards) - 1; i >= 0; i-- {
		ls.shards[i].mu.Unlock()
	}
}
