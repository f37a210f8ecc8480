// Package cuemap implements the temporal-associative memory engine: an
// in-process store whose records are indexed by sets of short symbolic cues
// and recalled by a blend of cue-intersection strength, recency, and access
// reinforcement.
//
// The package is organized around five cooperating structures: Store (the
// primary id -> record map), CueIndex (the sharded inverted index from cue
// to an ordered id list), Cooccurrence (the cue x cue count table), Aliases
// (the one-hop synonym expander), and Engine, which wires them together and
// exposes Remember, Recall, and Reinforce as the public surface.
package cuemap
