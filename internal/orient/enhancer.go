package orient

import (
	"math"
	"math/rand/v2"
	"slices"
)

// Enhancer defaults.
const (
	// ImputeFraction bounds how many Unknown labels may be replaced, as a
	// fraction of all labels (not of the Unknowns).
	ImputeFraction = 0.10

	// DefaultSeed seeds the imputation sample.
	DefaultSeed uint64 = 42
)

// EnhanceParams tunes the enhancer.
type EnhanceParams struct {
	Fraction float64
	Seed     uint64
}

// Enhancement describes what Enhance changed.
type Enhancement struct {
	Mode     Label // empty when no label was resolved
	Unknown  int   // Unknown labels before imputation
	Replaced []int // indices overwritten with Mode, ascending
}

// Enhance replaces up to floor(ImputeFraction * len(labels)) Unknown labels
// with the most common resolved label. See EnhanceWith.
func Enhance(labels []Label, seed uint64) []Label {
	out, _ := EnhanceWith(labels, EnhanceParams{Fraction: ImputeFraction, Seed: seed})
	return out
}

// EnhanceWith returns a copy of labels in which a seeded sample of the
// Unknown entries is set to the mode of the known entries. The input slice is
// not modified, only labels equal to Unknown are candidates, and the same
// seed over the same input always picks the same indices.
func EnhanceWith(labels []Label, p EnhanceParams) ([]Label, Enhancement) {
	out := slices.Clone(labels)

	var unknown []int
	for i, l := range labels {
		if l == Unknown {
			unknown = append(unknown, i)
		}
	}
	report := Enhancement{Unknown: len(unknown)}

	mode, ok := Mode(labels)
	if !ok {
		return out, report
	}
	report.Mode = mode

	fraction := math.Min(math.Max(p.Fraction, 0), 1)
	k := min(int(math.Floor(fraction*float64(len(labels)))), len(unknown))
	if k == 0 {
		return out, report
	}

	picked := sampleIndices(unknown, k, p.Seed)
	for _, i := range picked {
		out[i] = mode
	}
	report.Replaced = picked
	return out, report
}

// Mode returns the most frequent known label. Ties go to the label whose
// name sorts first, so the choice is stable across runs.
func Mode(labels []Label) (Label, bool) {
	counts := make(map[Label]int)
	for _, l := range labels {
		if l.Known() {
			counts[l]++
		}
	}
	if len(counts) == 0 {
		return "", false
	}

	candidates := make([]Label, 0, len(counts))
	for l := range counts {
		candidates = append(candidates, l)
	}
	slices.Sort(candidates)

	best := candidates[0]
	for _, l := range candidates[1:] {
		if counts[l] > counts[best] {
			best = l
		}
	}
	return best, true
}

// sampleIndices draws k distinct entries from pool with a partial
// Fisher-Yates shuffle driven by a PCG source seeded from seed.
func sampleIndices(pool []int, k int, seed uint64) []int {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	work := slices.Clone(pool)
	for i := 0; i < k; i++ {
		j := i + rng.IntN(len(work)-i)
		work[i], work[j] = work[j], work[i]
	}
	picked := work[:k]
	slices.Sort(picked)
	return picked
}
