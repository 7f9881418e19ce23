// Package pipeline drives a run: every image in the input directory goes
// through detection, filtering, annotation and the result sinks in turn.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/andresmejia3/emotiscan/internal/annotate"
	"github.com/andresmejia3/emotiscan/internal/config"
	"github.com/andresmejia3/emotiscan/internal/detector"
	"github.com/andresmejia3/emotiscan/internal/results"
	"github.com/andresmejia3/emotiscan/internal/types"
	"github.com/andresmejia3/emotiscan/internal/utils"
	"github.com/schollz/progressbar/v3"
	log "github.com/sirupsen/logrus"
)

// Sink receives the records of one image at a time.
type Sink interface {
	Append(ctx context.Context, records []types.Record) error
	Close() error
}

// Annotator draws the retained faces onto a copy of the source image.
type Annotator interface {
	Annotate(faces []types.Face, src, outDir string) (*annotate.Result, error)
}

// ImageResult is what ProcessImage did for one image.
type ImageResult struct {
	Path       string
	ID         string
	Detected   int
	Faces      []types.Face // retained after filtering
	Records    []types.Record
	Annotation *annotate.Result
}

// Stats summarizes a run.
type Stats struct {
	Processed int
	Skipped   int // not an image
	Failed    int // only with ContinueOnError
	Faces     int
	Rows      int
}

// Driver owns the detector and sinks for the duration of a run.
type Driver struct {
	cfg       *config.Config
	detector  detector.Detector
	annotator Annotator
	sinks     []Sink

	// Progress receives the progress bar. Defaults to stderr.
	Progress io.Writer
}

// New wires a Driver. Sinks are appended to in the order given.
func New(cfg *config.Config, det detector.Detector, ann Annotator, sinks ...Sink) *Driver {
	return &Driver{
		cfg:       cfg,
		detector:  det,
		annotator: ann,
		sinks:     sinks,
		Progress:  os.Stderr,
	}
}

// Records builds the rows for one image: one per retained face, colored by
// position, or a single sentinel row when nothing was retained.
func Records(faces []types.Face, path string) []types.Record {
	if len(faces) == 0 {
		return []types.Record{results.ForNoFace(0, path)}
	}
	recs := make([]types.Record, len(faces))
	for i, f := range faces {
		recs[i] = results.ForFace(f, annotate.ColorForIndex(i).Name(), len(faces), path)
	}
	return recs
}

// ProcessImage runs one image end to end. Records reach the sinks only after
// the annotated image has been written.
func (d *Driver) ProcessImage(ctx context.Context, path string) (*ImageResult, error) {
	name := filepath.Base(path)
	res := &ImageResult{Path: path}

	if id, err := utils.GenerateImageID(path); err != nil {
		log.WithField("image", name).WithError(err).Debug("Could not derive image ID")
	} else {
		res.ID = id
	}

	faces, err := detector.DetectFile(ctx, d.detector, path)
	if err != nil {
		return nil, err
	}
	res.Detected = len(faces)
	res.Faces = detector.Filter(faces, d.cfg.MinConfidence)

	entry := log.WithFields(log.Fields{
		"image":    name,
		"detected": res.Detected,
		"retained": len(res.Faces),
	})
	if len(res.ID) >= 12 {
		entry = entry.WithField("id", res.ID[:12])
	}
	entry.Info("Faces found")

	for i, f := range res.Faces {
		log.WithFields(log.Fields{
			"image":      name,
			"face":       i,
			"joy":        f.Joy,
			"sorrow":     f.Sorrow,
			"anger":      f.Anger,
			"surprise":   f.Surprise,
			"confidence": f.Confidence,
			"bounds":     types.FormatVertices(f.BoundingPoly),
		}).Debug("Face")
	}

	res.Records = Records(res.Faces, path)

	res.Annotation, err = d.annotator.Annotate(res.Faces, path, d.cfg.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to annotate %s: %w", name, err)
	}
	if res.Annotation.Status() == annotate.PartialOk {
		log.WithFields(log.Fields{
			"image":   name,
			"skipped": res.Annotation.Skipped,
		}).Warn("Some face boxes could not be drawn")
	}

	for _, s := range d.sinks {
		if err := s.Append(ctx, res.Records); err != nil {
			return nil, fmt.Errorf("failed to record results for %s: %w", name, err)
		}
	}
	return res, nil
}

// Run enumerates the input directory once and processes every image in
// order. Cancellation is checked between images; rows already appended stay.
func (d *Driver) Run(ctx context.Context) (Stats, error) {
	var stats Stats

	files, err := utils.ListFiles(d.cfg.InputDir)
	if err != nil {
		return stats, fmt.Errorf("failed to list input directory: %w", err)
	}
	log.Infof("Found %d files in %s", len(files), d.cfg.InputDir)

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetDescription("🔍 EmotiScan"),
		progressbar.OptionSetWriter(d.Progress),
		progressbar.OptionShowCount(),
	)

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		ok, err := utils.IsImage(path)
		if err != nil {
			err = fmt.Errorf("failed to inspect %s: %w", filepath.Base(path), err)
			if !d.cfg.ContinueOnError {
				return stats, err
			}
			log.WithField("file", filepath.Base(path)).WithError(err).Error("File failed, continuing")
			stats.Failed++
			bar.Add(1)
			continue
		}
		if !ok {
			log.WithField("file", filepath.Base(path)).Warn("Skipping non-image file")
			stats.Skipped++
			bar.Add(1)
			continue
		}

		res, err := d.ProcessImage(ctx, path)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return stats, ctxErr
			}
			if !d.cfg.ContinueOnError {
				return stats, err
			}
			log.WithField("image", filepath.Base(path)).WithError(err).Error("Image failed, continuing")
			stats.Failed++
			bar.Add(1)
			continue
		}

		stats.Processed++
		stats.Faces += len(res.Faces)
		stats.Rows += len(res.Records)
		bar.Add(1)
	}

	bar.Finish()
	return stats, nil
}

// Close releases the detector and every sink.
func (d *Driver) Close() error {
	var errs []error
	for _, s := range d.sinks {
		errs = append(errs, s.Close())
	}
	if d.detector != nil {
		errs = append(errs, d.detector.Close())
	}
	return errors.Join(errs...)
}
