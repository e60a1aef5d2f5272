// Package ranking computes the popularity score used to order spots.
package ranking

import (
	"math"
	"math/rand"
)

// DefaultConfidence is the confidence level used for the cached score.
const DefaultConfidence = 0.95

// zScores maps supported confidence levels to their normal z-score.
var zScores = map[float64]float64{
	0.90: 1.6449,
	0.95: 1.96,
	0.99: 2.5758,
}

// WilsonLowerBound returns the Wilson score interval lower bound for a spot
// with ratingCount ratings averaging averageOn5 on a 1-5 scale. The average
// is normalized to a [0,1] success probability via p = (avg-1)/4. The result
// is in [0,1] and is 0 when there are no ratings.
//
// The bound discounts small samples: a single 5-star rating scores well
// below many 4-star ratings.
func WilsonLowerBound(ratingCount int, averageOn5 float64, confidence float64) float64 {
	if ratingCount <= 0 {
		return 0
	}

	z, ok := zScores[confidence]
	if !ok {
		z = zScores[DefaultConfidence]
	}

	p := (averageOn5 - 1) / 4
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}

	n := float64(ratingCount)
	z2 := z * z

	bound := (p + z2/(2*n) - z*math.Sqrt((p*(1-p)+z2/(4*n))/n)) / (1 + z2/n)
	if bound < 0 {
		return 0
	}
	if bound > 1 {
		return 1
	}
	return bound
}

// NewRankingSeed returns the random tie-breaker assigned to a spot at
// creation. It is never reassigned afterwards: without it, unrated spots all
// share a zero score and would re-sort arbitrarily on every rebuild.
func NewRankingSeed() float64 {
	return rand.Float64()
}
