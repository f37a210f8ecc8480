package cuemap

import "math"

const salienceMin, salienceMax = 0.5, 2.0

// computeSalience implements §4.4's formula. listLen is a function from cue
// to its current CueIndex posting-list length, used for the rarity term.
func computeSalience(cues []string, reinforcement uint32, listLen func(cue string) int) float32 {
	density := 1 + 0.1*math.Min(float64(len(cues)), 10)

	var rarityRaw float64
	for _, c := range cues {
		l := listLen(c)
		rarityRaw += 1 / math.Log2(2+float64(l))
	}
	// Normalize the rarity sum to contribute at most 0.5, matching the
	// spec's "normalized to <= 0.5 contribution" clause.
	rarityContribution := rarityRaw
	if rarityContribution > 0.5 {
		rarityContribution = 0.5
	}
	rarity := 1 + rarityContribution

	reinforcementFactor := 1 + math.Log2(1+float64(reinforcement))/4

	v := 1.0 * density * rarity * reinforcementFactor
	if v < salienceMin {
		v = salienceMin
	}
	if v > salienceMax {
		v = salienceMax
	}
	return float32(v)
}
