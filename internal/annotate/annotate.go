// Package annotate draws detected face boxes onto a copy of the source image.
package annotate

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"

	"github.com/andresmejia3/emotiscan/internal/types"
	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// DefaultThickness is the outline width in pixels.
const DefaultThickness = 2

// Color is the palette entry used for one face. Only the first three faces
// get distinct colors; everything after that is drawn black.
type Color int

const (
	Red Color = iota
	Green
	Blue
	Black
)

// ColorForIndex maps a face index to its palette color.
func ColorForIndex(i int) Color {
	switch i {
	case 0:
		return Red
	case 1:
		return Green
	case 2:
		return Blue
	default:
		return Black
	}
}

// Name is the label written to the results file.
func (c Color) Name() string {
	switch c {
	case Red:
		return "red"
	case Green:
		return "green"
	case Blue:
		return "blue"
	default:
		return "black"
	}
}

// RGBA is the drawing color. gocv converts it to OpenCV's BGR order.
func (c Color) RGBA() color.RGBA {
	switch c {
	case Red:
		return color.RGBA{R: 255, A: 255}
	case Green:
		return color.RGBA{G: 255, A: 255}
	case Blue:
		return color.RGBA{B: 255, A: 255}
	default:
		return color.RGBA{A: 255}
	}
}

// Status summarizes an annotation pass.
type Status int

const (
	Ok Status = iota
	PartialOk
)

func (s Status) String() string {
	if s == PartialOk {
		return "partial"
	}
	return "ok"
}

// Result reports where the annotated image went and which faces made it in.
type Result struct {
	OutputPath string
	Drawn      []int // face indices with a rectangle
	Skipped    []int // face indices whose polygon could not form a rectangle
}

func (r *Result) Status() Status {
	if len(r.Skipped) > 0 {
		return PartialOk
	}
	return Ok
}

// Annotator draws face rectangles with OpenCV.
type Annotator struct {
	Thickness int
}

// New returns an Annotator using DefaultThickness.
func New() *Annotator {
	return &Annotator{Thickness: DefaultThickness}
}

// OutputPath is where the annotated copy of src is written.
func OutputPath(outDir, src string) string {
	return filepath.Join(outDir, filepath.Base(src))
}

// Annotate loads src, draws one rectangle per face from vertex 0 to vertex 2
// and writes the result into outDir under the same file name, overwriting any
// existing file. The image is written even when faces is empty.
func (a *Annotator) Annotate(faces []types.Face, src, outDir string) (*Result, error) {
	if _, err := os.Stat(src); err != nil {
		return nil, fmt.Errorf("failed to open source image: %w", err)
	}

	// 3-channel BGR in stored pixel order. EXIF orientation is ignored so the
	// boxes land in the same frame the detection service measured.
	img := gocv.IMRead(src, gocv.IMReadColor|gocv.IMReadIgnoreOrientation)
	if img.Empty() {
		return nil, fmt.Errorf("failed to decode image %s", src)
	}
	defer img.Close()

	thickness := a.Thickness
	if thickness < 1 {
		thickness = DefaultThickness
	}

	res := &Result{OutputPath: OutputPath(outDir, src)}
	for i, face := range faces {
		rect, err := faceRect(face)
		if err != nil {
			log.WithFields(log.Fields{
				"image": filepath.Base(src),
				"face":  i,
			}).WithError(err).Warn("Skipping face box")
			res.Skipped = append(res.Skipped, i)
			continue
		}
		gocv.Rectangle(&img, rect, ColorForIndex(i).RGBA(), thickness)
		res.Drawn = append(res.Drawn, i)
	}

	if !gocv.IMWrite(res.OutputPath, img) {
		return nil, fmt.Errorf("failed to write annotated image to %s", res.OutputPath)
	}
	return res, nil
}

// faceRect builds the box from two opposite corners of the polygon.
func faceRect(f types.Face) (image.Rectangle, error) {
	if len(f.BoundingPoly) < 3 {
		return image.Rectangle{}, fmt.Errorf("bounding polygon has %d vertices, need at least 3", len(f.BoundingPoly))
	}
	a, b := f.BoundingPoly[0], f.BoundingPoly[2]
	return image.Rect(a.X, a.Y, b.X, b.Y), nil
}
