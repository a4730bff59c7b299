// Package features converts hand landmarks into classifier feature vectors.
package features

import "github.com/ayusman/signlens/internal/detector"

// PerHand is the feature count contributed by one hand: x and y for every landmark.
const PerHand = 2 * detector.NumLandmarks

// Normalize returns the per-hand feature block: for every landmark in order,
// x minus the hand's minimum x, then y minus the hand's minimum y.
// The landmark that attains the minimum on an axis maps to exactly 0 there.
func Normalize(hand *detector.HandLandmarks) []float64 {
	b := hand.Bounds()

	out := make([]float64, 0, PerHand)
	for _, p := range hand.Points {
		out = append(out, p.X-b.MinX, p.Y-b.MinY)
	}
	return out
}

// Limit is the maximum feature count kept for a frame with handCount hands.
func Limit(handCount int) int {
	return PerHand * handCount
}

// ForHand returns the feature vector classified for one hand of a frame that
// contained handCount hands: the hand's block truncated to Limit(handCount).
func ForHand(hand *detector.HandLandmarks, handCount int) []float64 {
	return truncate(Normalize(hand), Limit(handCount))
}

// Build concatenates the blocks of all hands in detection order and truncates
// the result to Limit(len(hands)). The truncation applies to the concatenated
// vector, not per hand.
func Build(hands []detector.HandLandmarks) []float64 {
	var out []float64
	for i := range hands {
		out = append(out, Normalize(&hands[i])...)
	}
	return truncate(out, Limit(len(hands)))
}

func truncate(v []float64, n int) []float64 {
	if len(v) > n {
		return v[:n]
	}
	return v
}
