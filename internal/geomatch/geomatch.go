// Package geomatch computes geographic distance and name similarity between
// two place descriptions. Everything here is pure and safe for concurrent use.
package geomatch

import (
	"math"

	"github.com/sells-group/placematch/internal/model"
)

// EarthRadiusMeters is the mean Earth radius used by Distance.
const EarthRadiusMeters = 6_371_000.0

// Distance returns the great-circle (haversine) distance in meters.
func Distance(a, b model.Coordinate) float64 {
	if a == b {
		return 0
	}
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLat := toRadians(b.Lat - a.Lat)
	dLng := toRadians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	// Rounding can push h a hair outside [0,1] for antipodal points.
	h = math.Min(1, math.Max(0, h))
	return 2 * EarthRadiusMeters * math.Asin(math.Sqrt(h))
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Similarity returns the normalized name similarity in [0,1]:
// (longer - editDistance) / longer over the normalized names. Two names that
// normalize to the same string (including both empty) score 1.
func Similarity(nameA, nameB string) float64 {
	a := []rune(Normalize(nameA))
	b := []rune(Normalize(nameB))
	if string(a) == string(b) {
		return 1.0
	}

	longer := max(len(a), len(b))
	score := float64(longer-levenshtein(a, b)) / float64(longer)
	return clamp01(score)
}

// Levenshtein returns the unit-cost edit distance between a and b, counted in
// runes.
func Levenshtein(a, b string) int {
	return levenshtein([]rune(a), []rune(b))
}

func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
