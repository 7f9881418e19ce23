package detector

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"

	"github.com/andresmejia3/emotiscan/internal/types"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	rtypes "github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"github.com/aws/smithy-go"
	log "github.com/sirupsen/logrus"
)

const rekognitionErrorDocs = "https://docs.aws.amazon.com/rekognition/latest/APIReference/CommonErrors.html"

// RekognitionClient is the slice of the Rekognition client we depend on.
type RekognitionClient interface {
	DetectFaces(
		ctx context.Context,
		params *rekognition.DetectFacesInput,
		optFns ...func(*rekognition.Options),
	) (*rekognition.DetectFacesOutput, error)
}

// RekognitionDetector sends images to AWS Rekognition DetectFaces.
// Rekognition scores emotions as percentages and boxes as ratios, so both are
// converted to the Vision-style likelihood scale and pixel polygon.
type RekognitionDetector struct {
	client RekognitionClient
}

// NewRekognitionDetector loads the default AWS credential chain.
func NewRekognitionDetector(ctx context.Context, cfg ProviderConfig) (*RekognitionDetector, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &RekognitionDetector{client: rekognition.NewFromConfig(awsCfg)}, nil
}

func (d *RekognitionDetector) Detect(ctx context.Context, imgData []byte) ([]types.Face, error) {
	// Boxes come back relative to the image size
	imgCfg, _, err := image.DecodeConfig(bytes.NewReader(imgData))
	if err != nil {
		return nil, fmt.Errorf("failed to read image dimensions: %w", err)
	}

	out, err := d.client.DetectFaces(ctx, &rekognition.DetectFacesInput{
		Image:      &rtypes.Image{Bytes: imgData},
		Attributes: []rtypes.Attribute{rtypes.AttributeAll},
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			msg := apiErr.ErrorMessage()
			if msg == "" {
				msg = apiErr.ErrorCode()
			}
			return nil, &DetectionServiceError{Provider: ProviderRekognition, Message: msg, DocURL: rekognitionErrorDocs}
		}
		return nil, fmt.Errorf("rekognition request failed: %w", err)
	}

	faces := make([]types.Face, 0, len(out.FaceDetails))
	for _, fd := range out.FaceDetails {
		face := types.Face{
			BoundingPoly: boxToPoly(fd.BoundingBox, imgCfg.Width, imgCfg.Height),
			Confidence:   widen(aws.ToFloat32(fd.Confidence) / 100),
		}
		for _, em := range fd.Emotions {
			l := likelihoodFromPercent(aws.ToFloat32(em.Confidence))
			switch em.Type {
			case rtypes.EmotionNameHappy:
				face.Joy = l
			case rtypes.EmotionNameSad:
				face.Sorrow = l
			case rtypes.EmotionNameAngry:
				face.Anger = l
			case rtypes.EmotionNameSurprised:
				face.Surprise = l
			}
		}
		faces = append(faces, face)
	}

	log.WithField("faces", len(faces)).Debug("Rekognition detection complete")
	return faces, nil
}

func (d *RekognitionDetector) Close() error { return nil }

// boxToPoly returns the clockwise corners starting top-left, so vertex 0 and
// vertex 2 are opposite corners like Vision's bounding polygon.
func boxToPoly(b *rtypes.BoundingBox, width, height int) []types.Vertex {
	if b == nil {
		return nil
	}
	l := int(math.Round(float64(aws.ToFloat32(b.Left)) * float64(width)))
	t := int(math.Round(float64(aws.ToFloat32(b.Top)) * float64(height)))
	r := int(math.Round(float64(aws.ToFloat32(b.Left)+aws.ToFloat32(b.Width)) * float64(width)))
	bt := int(math.Round(float64(aws.ToFloat32(b.Top)+aws.ToFloat32(b.Height)) * float64(height)))
	return []types.Vertex{{X: l, Y: t}, {X: r, Y: t}, {X: r, Y: bt}, {X: l, Y: bt}}
}

func likelihoodFromPercent(p float32) types.Likelihood {
	switch {
	case p < 0:
		return types.Unknown
	case p < 20:
		return types.VeryUnlikely
	case p < 40:
		return types.Unlikely
	case p < 60:
		return types.Possible
	case p < 80:
		return types.Likely
	default:
		return types.VeryLikely
	}
}
