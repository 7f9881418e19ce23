// Package results turns filtered faces into flat records and persists them
// to the append-only CSV results file.
package results

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/andresmejia3/emotiscan/internal/types"
)

// Header is the fixed column order of the results file.
var Header = []string{
	"image_name",
	"faces_filtered",
	"color",
	"likelihood_joy",
	"likelihood_sorrow",
	"likelihood_anger",
	"likelihood_surprise",
	"vertices",
	"confidence",
}

// ForFace builds the row for one retained face.
func ForFace(face types.Face, colorLabel string, totalRetained int, srcPath string) types.Record {
	return types.Record{
		ImageName:     filepath.Base(srcPath),
		FacesFiltered: totalRetained,
		Face: &types.FaceRecord{
			Color:      colorLabel,
			Joy:        face.Joy,
			Sorrow:     face.Sorrow,
			Anger:      face.Anger,
			Surprise:   face.Surprise,
			Vertices:   append([]types.Vertex(nil), face.BoundingPoly...),
			Confidence: face.Confidence,
		},
	}
}

// ForNoFace builds the sentinel row for an image where nothing survived the
// filter. All face columns stay empty.
func ForNoFace(totalRetained int, srcPath string) types.Record {
	return types.Record{
		ImageName:     filepath.Base(srcPath),
		FacesFiltered: totalRetained,
	}
}

// Row renders a record in Header order.
func Row(r types.Record) []string {
	row := []string{r.ImageName, strconv.Itoa(r.FacesFiltered), "", "", "", "", "", "", ""}
	if f := r.Face; f != nil {
		row[2] = f.Color
		row[3] = f.Joy.String()
		row[4] = f.Sorrow.String()
		row[5] = f.Anger.String()
		row[6] = f.Surprise.String()
		row[7] = types.FormatVertices(f.Vertices)
		row[8] = strconv.FormatFloat(f.Confidence, 'f', -1, 64)
	}
	return row
}

// ParseRow is the inverse of Row.
func ParseRow(row []string) (types.Record, error) {
	if len(row) != len(Header) {
		return types.Record{}, fmt.Errorf("expected %d columns, got %d", len(Header), len(row))
	}

	n, err := strconv.Atoi(row[1])
	if err != nil {
		return types.Record{}, fmt.Errorf("bad faces_filtered %q: %w", row[1], err)
	}
	rec := types.Record{ImageName: row[0], FacesFiltered: n}

	// The sentinel row leaves every face column blank
	if row[2] == "" && row[8] == "" {
		return rec, nil
	}

	f := &types.FaceRecord{Color: row[2]}
	for i, dst := range []*types.Likelihood{&f.Joy, &f.Sorrow, &f.Anger, &f.Surprise} {
		if *dst, err = types.ParseLikelihood(row[3+i]); err != nil {
			return types.Record{}, fmt.Errorf("column %s: %w", Header[3+i], err)
		}
	}
	if f.Vertices, err = types.ParseVertices(row[7]); err != nil {
		return types.Record{}, err
	}
	if f.Confidence, err = strconv.ParseFloat(row[8], 64); err != nil {
		return types.Record{}, fmt.Errorf("bad confidence %q: %w", row[8], err)
	}
	rec.Face = f
	return rec, nil
}

// CSVSink appends records to a CSV file that is never truncated.
type CSVSink struct {
	Path string
}

// NewCSVSink targets dir/name.
func NewCSVSink(dir, name string) *CSVSink {
	return &CSVSink{Path: filepath.Join(dir, name)}
}

// Append opens the file for this call only and adds one row per record.
// The header row is written exactly once: when the file is absent or empty
// before the append.
func (s *CSVSink) Append(_ context.Context, records []types.Record) error {
	if len(records) == 0 {
		return nil
	}

	f, err := os.OpenFile(s.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open results file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat results file: %w", err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(Header); err != nil {
			return err
		}
	}
	for _, r := range records {
		if err := w.Write(Row(r)); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	return f.Close()
}

func (s *CSVSink) Close() error { return nil }

// ReadCSV loads every record from a results file. Header rows are skipped
// wherever they appear so files seeded by hand still parse.
func ReadCSV(path string) ([]types.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(Header)

	var out []types.Record
	for line := 1; ; line++ {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if isHeader(row) {
			continue
		}
		rec, err := ParseRow(row)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func isHeader(row []string) bool {
	for i := range Header {
		if row[i] != Header[i] {
			return false
		}
	}
	return true
}

// ImageSummary aggregates the rows of one image.
type ImageSummary struct {
	ImageName string
	Rows      int
	Faces     int      // faces_filtered of the latest row
	Colors    []string // colors in row order, empty for no-face rows
}

// Summarize groups records by image in first-seen order. An image processed
// again in a later run keeps its first position and reports its latest count.
func Summarize(records []types.Record) []ImageSummary {
	index := make(map[string]int)
	var out []ImageSummary
	for _, r := range records {
		i, ok := index[r.ImageName]
		if !ok {
			i = len(out)
			index[r.ImageName] = i
			out = append(out, ImageSummary{ImageName: r.ImageName})
		}
		s := &out[i]
		s.Rows++
		s.Faces = r.FacesFiltered
		if r.Face != nil {
			s.Colors = append(s.Colors, r.Face.Color)
		}
	}
	return out
}
