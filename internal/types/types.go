package types

import (
	"fmt"
	"strings"
)

// Vertex is a single point of a face bounding polygon, in pixels.
type Vertex struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (v Vertex) String() string {
	return fmt.Sprintf("(%d,%d)", v.X, v.Y)
}

// Likelihood is the ordinal scale the detection service uses for emotions.
// The zero value is Unknown.
type Likelihood int

const (
	Unknown Likelihood = iota
	VeryUnlikely
	Unlikely
	Possible
	Likely
	VeryLikely
)

var likelihoodNames = [...]string{"UNKNOWN", "VERY_UNLIKELY", "UNLIKELY", "POSSIBLE", "LIKELY", "VERY_LIKELY"}

func (l Likelihood) String() string {
	if l < Unknown || l > VeryLikely {
		return fmt.Sprintf("Likelihood(%d)", int(l))
	}
	return likelihoodNames[l]
}

// ParseLikelihood is the inverse of Likelihood.String.
func ParseLikelihood(s string) (Likelihood, error) {
	s = strings.TrimSpace(s)
	for i, name := range likelihoodNames {
		if name == s {
			return Likelihood(i), nil
		}
	}
	return Unknown, fmt.Errorf("unknown likelihood %q", s)
}

func (l Likelihood) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// Face is one detection returned by the remote service.
type Face struct {
	BoundingPoly []Vertex   `json:"bounding_poly"`
	Confidence   float64    `json:"confidence"` // 0.0 - 1.0
	Joy          Likelihood `json:"joy"`
	Sorrow       Likelihood `json:"sorrow"`
	Anger        Likelihood `json:"anger"`
	Surprise     Likelihood `json:"surprise"`
}

// FormatVertices renders a polygon as "(x,y),(x,y),...".
func FormatVertices(vs []Vertex) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = v.String()
	}
	return strings.Join(parts, ",")
}

// ParseVertices is the inverse of FormatVertices.
func ParseVertices(s string) ([]Vertex, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var out []Vertex
	for _, chunk := range strings.Split(s, "),") {
		chunk = strings.TrimSuffix(strings.TrimSpace(chunk), ")") + ")"
		var v Vertex
		if _, err := fmt.Sscanf(chunk, "(%d,%d)", &v.X, &v.Y); err != nil {
			return nil, fmt.Errorf("malformed vertex %q: %w", chunk, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// FaceRecord holds the face-specific columns of a result row.
type FaceRecord struct {
	Color      string     `json:"color"`
	Joy        Likelihood `json:"likelihood_joy"`
	Sorrow     Likelihood `json:"likelihood_sorrow"`
	Anger      Likelihood `json:"likelihood_anger"`
	Surprise   Likelihood `json:"likelihood_surprise"`
	Vertices   []Vertex   `json:"vertices"`
	Confidence float64    `json:"confidence"`
}

// Record is one row of output. Face is nil for the "no face found" row.
type Record struct {
	ImageName     string      `json:"image_name"`
	FacesFiltered int         `json:"faces_filtered"`
	Face          *FaceRecord `json:"face,omitempty"`
}
