package cuemap

import (
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// ChunkConfig controls temporal chunking: splitting oversized content into
// several linked records at ingest time (the disable_temporal_chunking
// recall flag from §6 turns this off, leaving one record per Remember
// call regardless of size).
type ChunkConfig struct {
	MaxChunkSize int
	OverlapSize  int
	MinChunkSize int
}

// DefaultChunkConfig mirrors the sizes a single recall result can usefully
// carry: large enough that most memories never chunk, small enough that a
// chunk stays well under the 64KiB recommended content ceiling (§3).
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		MaxChunkSize: 4000,
		OverlapSize:  200,
		MinChunkSize: 6000,
	}
}

// Chunk is one piece of oversized content about to become its own record.
type Chunk struct {
	Content  string
	Index    int
	StartPos int
	EndPos   int
}

// Chunker splits content into overlapping chunks along paragraph, then
// sentence, boundaries.
type Chunker struct {
	cfg ChunkConfig
}

// NewChunker builds a Chunker; a zero-value cfg falls back to defaults.
func NewChunker(cfg ChunkConfig) *Chunker {
	if cfg.MaxChunkSize == 0 {
		cfg = DefaultChunkConfig()
	}
	return &Chunker{cfg: cfg}
}

// ShouldChunk reports whether content exceeds the configured threshold.
func (c *Chunker) ShouldChunk(content string) bool {
	return len(content) > c.cfg.MinChunkSize
}

// Split breaks content into chunks with overlap. Returns nil if content
// doesn't need chunking (callers should Remember it as a single record).
func (c *Chunker) Split(content string) []Chunk {
	if !c.ShouldChunk(content) {
		return nil
	}
	if paragraphs := splitIntoParagraphs(content); len(paragraphs) > 1 {
		return c.chunkByUnits(paragraphs, "\n\n")
	}
	return c.chunkByUnits(splitIntoSentences(content), " ")
}

func (c *Chunker) chunkByUnits(units []string, sep string) []Chunk {
	var chunks []Chunk
	var cur strings.Builder
	start, pos, idx := 0, 0, 0

	flush := func() {
		if cur.Len() == 0 {
			return
		}
		chunks = append(chunks, Chunk{
			Content:  strings.TrimSpace(cur.String()),
			Index:    idx,
			StartPos: start,
			EndPos:   pos,
		})
		idx++
	}

	for i, u := range units {
		withSep := u
		if i < len(units)-1 {
			withSep = u + sep
		}
		if cur.Len() > 0 && cur.Len()+len(withSep) > c.cfg.MaxChunkSize {
			flush()
			overlap := overlapSuffix(cur.String(), c.cfg.OverlapSize)
			cur.Reset()
			cur.WriteString(overlap)
			start = pos - len(overlap)
		}
		cur.WriteString(withSep)
		pos += len(withSep)
	}
	flush()
	return chunks
}

func splitIntoParagraphs(content string) []string {
	var out []string
	for _, p := range strings.Split(content, "\n\n") {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func splitIntoSentences(content string) []string {
	var out []string
	var cur strings.Builder
	runes := []rune(content)
	for i, r := range runes {
		cur.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if i == len(runes)-1 || unicode.IsSpace(runes[i+1]) {
				if s := strings.TrimSpace(cur.String()); s != "" {
					out = append(out, s)
				}
				cur.Reset()
			}
		}
	}
	if s := strings.TrimSpace(cur.String()); s != "" {
		out = append(out, s)
	}
	return out
}

func overlapSuffix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// RememberChunked splits content via the configured chunker (unless
// disableChunking is set) and Remembers each piece, tagging every chunk
// with a shared chunk-group cue so recall for any constituent's cues can
// surface the whole family. No per-chunk sequence cue is added, so chunk
// order is not recorded in the cues.
func (e *Engine) RememberChunked(chunker *Chunker, content string, cues []string, disableChunking bool) ([]*RememberResult, error) {
	if disableChunking || chunker == nil || !chunker.ShouldChunk(content) {
		res, err := e.Remember(content, cues)
		if err != nil {
			return nil, err
		}
		return []*RememberResult{res}, nil
	}

	chunks := chunker.Split(content)
	groupID := uuid.NewString()
	results := make([]*RememberResult, 0, len(chunks))
	for _, ch := range chunks {
		chunkCues := make([]string, 0, len(cues)+2)
		chunkCues = append(chunkCues, cues...)
		chunkCues = append(chunkCues, "chunk_group:"+groupID)
		res, err := e.Remember(ch.Content, chunkCues)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}
