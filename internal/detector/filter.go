package detector

import "github.com/andresmejia3/emotiscan/internal/types"

// Filter keeps the faces whose confidence is at least threshold, in order.
func Filter(faces []types.Face, threshold float64) []types.Face {
	kept := make([]types.Face, 0, len(faces))
	for _, f := range faces {
		if f.Confidence >= threshold {
			kept = append(kept, f)
		}
	}
	return kept
}
