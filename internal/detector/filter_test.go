package detector

import (
	"testing"

	"github.com/andresmejia3/emotiscan/internal/types"
)

func facesWithConfidence(cs ...float64) []types.Face {
	faces := make([]types.Face, len(cs))
	for i, c := range cs {
		faces[i] = types.Face{Confidence: c, BoundingPoly: []types.Vertex{{X: i, Y: i}}}
	}
	return faces
}

func TestFilter(t *testing.T) {
	faces := facesWithConfidence(0.9, 0.2, 0.35, 1.0, 0.0)

	tests := []struct {
		name      string
		threshold float64
		want      []float64
	}{
		{"Zero keeps everything", 0.0, []float64{0.9, 0.2, 0.35, 1.0, 0.0}},
		{"Threshold is inclusive", 0.35, []float64{0.9, 0.35, 1.0}},
		{"One keeps only certain faces", 1.0, []float64{1.0}},
		{"Above one keeps nothing", 1.01, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(faces, tt.threshold)
			if len(got) != len(tt.want) {
				t.Fatalf("Filter(%v) kept %d faces, want %d", tt.threshold, len(got), len(tt.want))
			}
			for i := range got {
				if got[i].Confidence != tt.want[i] {
					t.Errorf("face %d confidence = %v, want %v (order must be preserved)", i, got[i].Confidence, tt.want[i])
				}
			}
		})
	}
}

func TestFilter_Monotonic(t *testing.T) {
	faces := facesWithConfidence(0.05, 0.5, 0.49, 0.51, 0.99, 0.3, 0.7)
	thresholds := []float64{0, 0.1, 0.3, 0.49, 0.5, 0.51, 0.7, 0.99, 1.0}

	for i := 1; i < len(thresholds); i++ {
		lo := Filter(faces, thresholds[i-1])
		hi := Filter(faces, thresholds[i])

		// Every face surviving the higher threshold survives the lower one
		for _, h := range hi {
			found := false
			for _, l := range lo {
				if l.Confidence == h.Confidence && l.BoundingPoly[0] == h.BoundingPoly[0] {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("face %v kept at %v but dropped at %v", h.Confidence, thresholds[i], thresholds[i-1])
			}
		}
	}
}

func TestFilter_DoesNotMutateInput(t *testing.T) {
	faces := facesWithConfidence(0.1, 0.9)
	_ = Filter(faces, 0.5)
	if len(faces) != 2 || faces[0].Confidence != 0.1 || faces[1].Confidence != 0.9 {
		t.Errorf("input slice was modified: %+v", faces)
	}
}
