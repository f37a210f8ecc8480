package cuemap

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// snapshotMagic and snapshotVersion form the §4.6 self-describing header.
var snapshotMagic = [4]byte{'C', 'M', 'A', 'P'}

const snapshotVersion uint16 = 1

// Save serializes the full engine state to path atomically: write to
// path+".tmp", fsync, then rename over path. A reader can never observe a
// partially-written snapshot file (§4.6, §7).
func (e *Engine) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return wrapErr(KindSnapshotIO, "Save", "create snapshot directory", err)
	}

	tmpPath := path + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return wrapErr(KindSnapshotIO, "Save", "open temp file", err)
	}

	w := bufio.NewWriter(f)
	if err := e.encode(w); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return wrapErr(KindSnapshotIO, "Save", "encode", err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return wrapErr(KindSnapshotIO, "Save", "flush", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return wrapErr(KindSnapshotIO, "Save", "fsync", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return wrapErr(KindSnapshotIO, "Save", "close", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return wrapErr(KindSnapshotIO, "Save", "rename", err)
	}
	return nil
}

func (e *Engine) encode(w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, snapshotMagic); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, snapshotVersion); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(0)); err != nil { // reserved
		return err
	}

	records := e.Store.All()
	if err := writeUint32(w, uint32(len(records))); err != nil {
		return err
	}
	for _, r := range records {
		if err := writeRecord(w, r); err != nil {
			return err
		}
	}

	cues := e.Index.Cues()
	if err := writeUint32(w, uint32(len(cues))); err != nil {
		return err
	}
	for _, cue := range cues {
		ids := e.Index.Iter(cue, 0, 1<<30)
		if err := writeString(w, cue); err != nil {
			return err
		}
		if err := writeUint32(w, uint32(len(ids))); err != nil {
			return err
		}
		for _, id := range ids {
			if err := writeString(w, id); err != nil {
				return err
			}
		}
	}

	triples := e.cooccurTriples()
	if err := writeUint32(w, uint32(len(triples))); err != nil {
		return err
	}
	for _, t := range triples {
		if err := writeString(w, t.a); err != nil {
			return err
		}
		if err := writeString(w, t.b); err != nil {
			return err
		}
		if err := writeUint32(w, t.count); err != nil {
			return err
		}
	}

	aliases := e.Aliases.all()
	if err := writeUint32(w, uint32(len(aliases))); err != nil {
		return err
	}
	for _, a := range aliases {
		if err := writeString(w, a.From); err != nil {
			return err
		}
		if err := writeString(w, a.To); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, a.Weight); err != nil {
			return err
		}
	}

	return nil
}

// Load replaces the engine's state with what is stored at path. The state
// is replaced only once the whole file has decoded. On corruption Load
// reports a KindSnapshotCorrupt error and leaves the file where it is; it
// does not move or rename a corrupt file.
func (e *Engine) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return wrapErr(KindSnapshotIO, "Load", "open", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var magic [4]byte
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return wrapErr(KindSnapshotCorrupt, "Load", "read magic", err)
	}
	if magic != snapshotMagic {
		return newErr(KindSnapshotCorrupt, "Load", "bad magic header")
	}
	var version, reserved uint16
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return wrapErr(KindSnapshotCorrupt, "Load", "read version", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &reserved); err != nil {
		return wrapErr(KindSnapshotCorrupt, "Load", "read reserved", err)
	}
	if version != snapshotVersion {
		return newErr(KindSnapshotCorrupt, "Load", fmt.Sprintf("unsupported version %d", version))
	}

	store := NewStore()
	nrec, err := readUint32(r)
	if err != nil {
		return wrapErr(KindSnapshotCorrupt, "Load", "read record count", err)
	}
	for i := uint32(0); i < nrec; i++ {
		rec, err := readRecord(r)
		if err != nil {
			return wrapErr(KindSnapshotCorrupt, "Load", "read record", err)
		}
		store.Put(rec)
	}

	index := NewCueIndex()
	ncue, err := readUint32(r)
	if err != nil {
		return wrapErr(KindSnapshotCorrupt, "Load", "read cue count", err)
	}
	for i := uint32(0); i < ncue; i++ {
		cue, err := readString(r)
		if err != nil {
			return wrapErr(KindSnapshotCorrupt, "Load", "read cue", err)
		}
		n, err := readUint32(r)
		if err != nil {
			return wrapErr(KindSnapshotCorrupt, "Load", "read posting count", err)
		}
		// ids are stored most-recent-first; re-inserting in reverse order
		// with prepend reproduces the exact original order.
		ids := make([]string, n)
		for j := uint32(0); j < n; j++ {
			id, err := readString(r)
			if err != nil {
				return wrapErr(KindSnapshotCorrupt, "Load", "read posting id", err)
			}
			ids[j] = id
		}
		for j := len(ids) - 1; j >= 0; j-- {
			index.Insert(cue, ids[j])
		}
	}

	cooccur := NewCooccurrence()
	ntriple, err := readUint32(r)
	if err != nil {
		return wrapErr(KindSnapshotCorrupt, "Load", "read triple count", err)
	}
	for i := uint32(0); i < ntriple; i++ {
		a, err := readString(r)
		if err != nil {
			return wrapErr(KindSnapshotCorrupt, "Load", "read triple a", err)
		}
		b, err := readString(r)
		if err != nil {
			return wrapErr(KindSnapshotCorrupt, "Load", "read triple b", err)
		}
		count, err := readUint32(r)
		if err != nil {
			return wrapErr(KindSnapshotCorrupt, "Load", "read triple count", err)
		}
		cooccur.setCount(a, b, count)
	}

	aliases := NewAliases()
	nalias, err := readUint32(r)
	if err != nil {
		return wrapErr(KindSnapshotCorrupt, "Load", "read alias count", err)
	}
	for i := uint32(0); i < nalias; i++ {
		from, err := readString(r)
		if err != nil {
			return wrapErr(KindSnapshotCorrupt, "Load", "read alias from", err)
		}
		to, err := readString(r)
		if err != nil {
			return wrapErr(KindSnapshotCorrupt, "Load", "read alias to", err)
		}
		var weight float64
		if err := binary.Read(r, binary.LittleEndian, &weight); err != nil {
			return wrapErr(KindSnapshotCorrupt, "Load", "read alias weight", err)
		}
		aliases.Put(from, to, weight)
	}

	e.Store = store
	e.Index = index
	e.Cooccur = cooccur
	e.Aliases = aliases
	e.gistMu.Lock()
	e.gists = make(map[string]struct{})
	e.gistsKeySeen = make(map[string]struct{})
	for _, r := range store.All() {
		if r.HasCue("gist:true") {
			e.gists[r.ID] = struct{}{}
		}
	}
	e.gistMu.Unlock()

	return nil
}

type cooccurTriple struct {
	a, b  string
	count uint32
}

func (e *Engine) cooccurTriples() []cooccurTriple {
	var out []cooccurTriple
	for _, s := range e.Cooccur.shards {
		s.mu.RLock()
		for a, row := range s.counts {
			for b, count := range row {
				out = append(out, cooccurTriple{a: a, b: b, count: count})
			}
		}
		s.mu.RUnlock()
	}
	return out
}

func (c *Cooccurrence) setCount(a, b string, count uint32) {
	x, y := pairKey(a, b)
	s := c.shardFor(x)
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.counts[x]
	if !ok {
		row = make(map[string]uint32)
		s.counts[x] = row
	}
	row[y] = count
}

func (a *Aliases) all() []Alias {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var out []Alias
	for _, list := range a.byFrom {
		out = append(out, list...)
	}
	return out
}

func writeUint32(w io.Writer, v uint32) error {
	return binary.Write(w, binary.LittleEndian, v)
}

func readUint32(r io.Reader) (uint32, error) {
	var v uint32
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

func writeString(w io.Writer, s string) error {
	if err := writeUint32(w, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	n, err := readUint32(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func writeRecord(w io.Writer, r *Record) error {
	if err := writeString(w, r.ID); err != nil {
		return err
	}
	if err := writeString(w, r.Content); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, r.CreatedAt); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, r.Reinforcement()); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, r.LastAccess()); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, float32Bits(r.Salience())); err != nil {
		return err
	}
	cues := r.CueList()
	if err := writeUint32(w, uint32(len(cues))); err != nil {
		return err
	}
	for _, c := range cues {
		if err := writeString(w, c); err != nil {
			return err
		}
	}
	return nil
}

func readRecord(r io.Reader) (*Record, error) {
	id, err := readString(r)
	if err != nil {
		return nil, err
	}
	content, err := readString(r)
	if err != nil {
		return nil, err
	}
	var createdAt, lastAccess int64
	var reinforcement, salienceBits uint32
	if err := binary.Read(r, binary.LittleEndian, &createdAt); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &reinforcement); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &lastAccess); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &salienceBits); err != nil {
		return nil, err
	}
	n, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	cues := make(map[string]struct{}, n)
	for i := uint32(0); i < n; i++ {
		c, err := readString(r)
		if err != nil {
			return nil, err
		}
		cues[c] = struct{}{}
	}
	rec := &Record{
		ID:        id,
		Content:   content,
		Cues:      cues,
		CreatedAt: createdAt,
	}
	rec.reinforcement = reinforcement
	rec.lastAccess = lastAccess
	rec.salience = salienceBits
	return rec, nil
}
