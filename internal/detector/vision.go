package detector

import (
	"context"
	"fmt"
	"strconv"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/andresmejia3/emotiscan/internal/types"
	"github.com/googleapis/gax-go/v2"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

const visionErrorDocs = "https://cloud.google.com/apis/design/errors"

// imageAnnotator is the slice of the Vision client we depend on.
type imageAnnotator interface {
	BatchAnnotateImages(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest, opts ...gax.CallOption) (*visionpb.BatchAnnotateImagesResponse, error)
	Close() error
}

// VisionDetector sends images to Google Cloud Vision FACE_DETECTION.
type VisionDetector struct {
	client     imageAnnotator
	maxResults int32
}

// NewVisionDetector dials the Vision API. Credentials come from
// cfg.CredentialsFile when set, otherwise from Application Default Credentials.
func NewVisionDetector(ctx context.Context, cfg ProviderConfig) (*VisionDetector, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create vision client: %w", err)
	}
	return newVisionDetector(client, cfg.MaxResults), nil
}

func newVisionDetector(client imageAnnotator, maxResults int) *VisionDetector {
	// The API treats 0 as "service default", which is 10
	return &VisionDetector{client: client, maxResults: int32(maxResults)}
}

func (d *VisionDetector) Detect(ctx context.Context, imgData []byte) ([]types.Face, error) {
	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{{
			Image: &visionpb.Image{Content: imgData},
			Features: []*visionpb.Feature{{
				Type:       visionpb.Feature_FACE_DETECTION,
				MaxResults: d.maxResults,
			}},
		}},
	}

	resp, err := d.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("vision request failed: %w", err)
	}
	if len(resp.GetResponses()) == 0 {
		return nil, fmt.Errorf("vision returned no response for the image")
	}

	res := resp.GetResponses()[0]
	if msg := res.GetError().GetMessage(); msg != "" {
		return nil, &DetectionServiceError{Provider: ProviderVision, Message: msg, DocURL: visionErrorDocs}
	}

	faces := make([]types.Face, 0, len(res.GetFaceAnnotations()))
	for _, fa := range res.GetFaceAnnotations() {
		var poly []types.Vertex
		for _, v := range fa.GetBoundingPoly().GetVertices() {
			poly = append(poly, types.Vertex{X: int(v.GetX()), Y: int(v.GetY())})
		}
		faces = append(faces, types.Face{
			BoundingPoly: poly,
			Confidence:   widen(fa.GetDetectionConfidence()),
			Joy:          fromVisionLikelihood(fa.GetJoyLikelihood()),
			Sorrow:       fromVisionLikelihood(fa.GetSorrowLikelihood()),
			Anger:        fromVisionLikelihood(fa.GetAngerLikelihood()),
			Surprise:     fromVisionLikelihood(fa.GetSurpriseLikelihood()),
		})
	}

	log.WithField("faces", len(faces)).Debug("Vision detection complete")
	return faces, nil
}

func (d *VisionDetector) Close() error {
	return d.client.Close()
}

func fromVisionLikelihood(l visionpb.Likelihood) types.Likelihood {
	switch l {
	case visionpb.Likelihood_VERY_UNLIKELY:
		return types.VeryUnlikely
	case visionpb.Likelihood_UNLIKELY:
		return types.Unlikely
	case visionpb.Likelihood_POSSIBLE:
		return types.Possible
	case visionpb.Likelihood_LIKELY:
		return types.Likely
	case visionpb.Likelihood_VERY_LIKELY:
		return types.VeryLikely
	default:
		return types.Unknown
	}
}

// widen converts a float32 score without the binary noise a plain
// float64(f) cast drags in (0.9 stays 0.9, not 0.8999999761581421).
func widen(f float32) float64 {
	v, _ := strconv.ParseFloat(strconv.FormatFloat(float64(f), 'g', -1, 32), 64)
	return v
}
