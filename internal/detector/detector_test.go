package detector

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/andresmejia3/emotiscan/internal/types"
)

type recordingDetector struct {
	got []byte
}

func (r *recordingDetector) Detect(ctx context.Context, imgData []byte) ([]types.Face, error) {
	r.got = imgData
	if _, ok := ctx.Deadline(); ok {
		return nil, context.DeadlineExceeded
	}
	return []types.Face{{Confidence: 1}}, nil
}

func (r *recordingDetector) Close() error { return nil }

func TestDetectFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "face.jpg")
	if err := os.WriteFile(path, []byte("jpeg bytes"), 0644); err != nil {
		t.Fatal(err)
	}

	d := &recordingDetector{}
	faces, err := DetectFile(context.Background(), d, path)
	if err != nil {
		t.Fatalf("DetectFile failed: %v", err)
	}
	if string(d.got) != "jpeg bytes" {
		t.Errorf("Expected file content to be submitted, got %q", d.got)
	}
	if len(faces) != 1 {
		t.Errorf("Expected 1 face, got %d", len(faces))
	}

	if _, err := DetectFile(context.Background(), d, filepath.Join(t.TempDir(), "missing.jpg")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestNew_UnknownProvider(t *testing.T) {
	if _, err := New(context.Background(), ProviderConfig{Provider: "clarifai"}); err == nil {
		t.Error("Expected error for unknown provider")
	}
}

func TestTimeoutDetector(t *testing.T) {
	d := &timeoutDetector{Detector: &recordingDetector{}, timeout: time.Second}
	_, err := d.Detect(context.Background(), []byte("x"))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected the wrapped call to carry a deadline, got %v", err)
	}
}
