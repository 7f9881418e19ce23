// Package detector talks to the remote face detection services and
// normalizes their answers into types.Face.
package detector

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/andresmejia3/emotiscan/internal/types"
)

const (
	ProviderVision      = "vision"
	ProviderRekognition = "rekognition"
)

// Detector is a remote face detection backend.
type Detector interface {
	Detect(ctx context.Context, imgData []byte) ([]types.Face, error)
	Close() error
}

// ProviderConfig selects and configures a Detector.
type ProviderConfig struct {
	Provider        string
	MaxResults      int           // Upper bound on faces per image (vision only)
	CredentialsFile string        // Service account JSON (vision only)
	Region          string        // AWS region (rekognition only)
	RequestTimeout  time.Duration // 0 disables the per-request deadline
}

// DetectionServiceError is returned when the service answered but reported
// an error for the image.
type DetectionServiceError struct {
	Provider string
	Message  string
	DocURL   string
}

func (e *DetectionServiceError) Error() string {
	return fmt.Sprintf("%s\nFor more info on error messages, check: %s", e.Message, e.DocURL)
}

// New builds the Detector named by cfg.Provider.
func New(ctx context.Context, cfg ProviderConfig) (Detector, error) {
	var d Detector
	var err error
	switch cfg.Provider {
	case "", ProviderVision:
		d, err = NewVisionDetector(ctx, cfg)
	case ProviderRekognition:
		d, err = NewRekognitionDetector(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown detection provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	if cfg.RequestTimeout > 0 {
		d = &timeoutDetector{Detector: d, timeout: cfg.RequestTimeout}
	}
	return d, nil
}

// DetectFile reads the whole image into memory and submits it.
func DetectFile(ctx context.Context, d Detector, path string) ([]types.Face, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	return d.Detect(ctx, data)
}

type timeoutDetector struct {
	Detector
	timeout time.Duration
}

func (t *timeoutDetector) Detect(ctx context.Context, imgData []byte) ([]types.Face, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.Detector.Detect(ctx, imgData)
}
