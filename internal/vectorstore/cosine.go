package vectorstore

import (
	"math"
	"sort"
)

// CosineDistance returns 1 - cos(a, b), clamped to [0, 1]. Zero vectors are
// maximally distant.
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 1
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return clampDistance(1 - dot/(math.Sqrt(na)*math.Sqrt(nb)))
}

func clampDistance(d float64) float64 {
	switch {
	case math.IsNaN(d):
		return 1
	case d < 0:
		return 0
	case d > 1:
		return 1
	}
	return d
}

type candidate struct {
	match Match
	order int
}

// nearest keeps the k closest candidates; ties keep insertion order.
func nearest(cands []candidate, k int) []Match {
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].match.Distance != cands[j].match.Distance {
			return cands[i].match.Distance < cands[j].match.Distance
		}
		return cands[i].order < cands[j].order
	})
	if k > 0 && len(cands) > k {
		cands = cands[:k]
	}
	out := make([]Match, len(cands))
	for i, c := range cands {
		out[i] = c.match
	}
	return out
}
