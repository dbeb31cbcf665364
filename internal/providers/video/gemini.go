package video

import (
	"context"
	"time"

	"github.com/fraolBatole/AuraLab/internal/domain"
	"github.com/fraolBatole/AuraLab/internal/providers/genai"
)

// Asset is one generated video ready for delivery.
type Asset struct {
	Data   []byte
	Format string
}

// ProgressFunc mirrors the underlying client callback so callers can relay
// render progress to the user.
type ProgressFunc func(elapsed time.Duration, completed bool)

// Generator produces a video for a generation request.
type Generator interface {
	Generate(ctx context.Context, req domain.GenerationRequest, reference []byte, progress ProgressFunc) (*Asset, error)
}

type GeminiGenerator struct {
	client *genai.Client
}

func NewGeminiGenerator(client *genai.Client) *GeminiGenerator {
	return &GeminiGenerator{client: client}
}

func (g *GeminiGenerator) Generate(ctx context.Context, req domain.GenerationRequest, reference []byte, progress ProgressFunc) (*Asset, error) {
	if req.Variant != domain.VariantWithReference {
		reference = nil
	}
	asset, err := g.client.GenerateVideo(ctx, genai.VideoRequest{
		Prompt:      req.Prompt,
		AspectRatio: string(req.AspectRatio),
		Reference:   reference,
		RequestID:   req.RequestID,
	}, genai.ProgressFunc(progress))
	if err != nil {
		return nil, err
	}
	return &Asset{Data: asset.Data, Format: asset.Format}, nil
}

var _ Generator = (*GeminiGenerator)(nil)
