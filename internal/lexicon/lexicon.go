// Package lexicon implements token-to-cue resolution as a second,
// recursive instance of the core engine (§9's "Lexicon as a recursive
// engine" note): its "memories" are canonical cues and its "cues" are the
// tokens and bigrams that name them. Everything cuemap.Engine does — the
// selective-intersection recall, reinforcement, salience, snapshotting —
// applies to it unchanged; this package only supplies the
// tokenization/bigram layer that turns free text into the inner engine's
// query cues.
package lexicon

import (
	"strings"
	"unicode"

	"github.com/cuemap/cuemap/internal/cuemap"
)

// Lexicon wraps a cuemap.Engine whose records are canonical cues.
type Lexicon struct {
	engine *cuemap.Engine
}

// New builds an empty lexicon backed by its own engine instance.
func New(clock cuemap.Clock) *Lexicon {
	return &Lexicon{engine: cuemap.NewEngine(clock)}
}

// Engine exposes the underlying recursive engine, e.g. for snapshotting it
// alongside the tenant's main engine.
func (l *Lexicon) Engine() *cuemap.Engine { return l.engine }

// Learn records that canonicalCue is reachable via the given surface
// tokens (content = the canonical cue itself, cues = tokens+bigrams).
func (l *Lexicon) Learn(canonicalCue string, tokens []string) error {
	cues := tokensAndBigrams(tokens)
	_, err := l.engine.Remember(canonicalCue, cues)
	return err
}

// Resolve turns free text into a weighted cue list by tokenizing it,
// recalling the lexicon engine with the resulting tokens/bigrams as query
// cues, and returning the top canonical cues (the recalled records'
// content) as query-ready cues at a weight scaled by match integrity.
func (l *Lexicon) Resolve(text string, limit int) ([]cuemap.WeightedCue, error) {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return nil, nil
	}
	cues := tokensAndBigrams(tokens)
	weighted := make([]cuemap.WeightedCue, 0, len(cues))
	for _, c := range cues {
		weighted = append(weighted, cuemap.WeightedCue{Cue: c, Weight: 1.0})
	}

	results, err := l.engine.Recall(cuemap.RecallQuery{Cues: weighted, Limit: limit})
	if err != nil {
		return nil, err
	}

	out := make([]cuemap.WeightedCue, 0, len(results))
	for _, r := range results {
		weight := r.MatchIntegrity
		if weight <= 0 {
			weight = 0.5
		}
		out = append(out, cuemap.WeightedCue{Cue: r.Content, Weight: weight})
	}
	return out, nil
}

// Tokenize lowercases and splits on anything that isn't a letter, digit,
// or colon (colons are preserved so structural cues like "service:payment"
// survive tokenization intact if they appear literally in query text).
func Tokenize(text string) []string {
	var tokens []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ':' {
			cur.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return tokens
}

// tokensAndBigrams returns each token plus each adjacent-token bigram
// (joined with an underscore so a bigram cue normalizes identically to a
// single token).
func tokensAndBigrams(tokens []string) []string {
	out := make([]string, 0, len(tokens)*2)
	out = append(out, tokens...)
	for i := 0; i+1 < len(tokens); i++ {
		out = append(out, tokens[i]+"_"+tokens[i+1])
	}
	return out
}
