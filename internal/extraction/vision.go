package extraction

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"
)

// VisionEngine recognizes text with Google Cloud Vision document text detection.
type VisionEngine struct {
	client        *vision.ImageAnnotatorClient
	languageHints []string
}

// NewVisionEngine creates a Cloud Vision client. Credentials come from opts or
// the application default credentials.
func NewVisionEngine(ctx context.Context, opts ...option.ClientOption) (*VisionEngine, error) {
	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("vision client: %w", err)
	}
	return &VisionEngine{client: client, languageHints: []string{"en", "zh"}}, nil
}

func (v *VisionEngine) Name() string { return "gcp_vision" }

// Recognize sends the page as PNG and returns the full text annotation.
func (v *VisionEngine) Recognize(ctx context.Context, img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("failed to encode page image: %w", err)
	}

	req := &visionpb.AnnotateImageRequest{
		Image: &visionpb.Image{Content: buf.Bytes()},
		Features: []*visionpb.Feature{
			{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
		},
		ImageContext: &visionpb.ImageContext{LanguageHints: v.languageHints},
	}
	resp, err := v.client.BatchAnnotateImages(ctx, &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{req},
	})
	if err != nil {
		return "", fmt.Errorf("vision BatchAnnotateImages: %w", err)
	}
	if resp == nil || len(resp.Responses) == 0 {
		return "", nil
	}
	r0 := resp.Responses[0]
	if r0.Error != nil && r0.Error.Message != "" {
		return "", fmt.Errorf("vision annotate error: %s", r0.Error.Message)
	}
	if r0.FullTextAnnotation == nil {
		return "", nil
	}
	return r0.FullTextAnnotation.Text, nil
}

// Close releases the Vision client.
func (v *VisionEngine) Close() error {
	if v.client != nil {
		return v.client.Close()
	}
	return nil
}
