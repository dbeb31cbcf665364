package image

import (
	"context"

	"github.com/fraolBatole/AuraLab/internal/domain"
	"github.com/fraolBatole/AuraLab/internal/providers/genai"
)

// Asset is one generated image ready for delivery.
type Asset struct {
	Data   []byte
	Format string
}

// Generator produces an image for a generation request. The request's variant
// decides whether the reference bytes participate.
type Generator interface {
	Generate(ctx context.Context, req domain.GenerationRequest, reference []byte) (*Asset, error)
}

type GeminiGenerator struct {
	client *genai.Client
}

func NewGeminiGenerator(client *genai.Client) *GeminiGenerator {
	return &GeminiGenerator{client: client}
}

func (g *GeminiGenerator) Generate(ctx context.Context, req domain.GenerationRequest, reference []byte) (*Asset, error) {
	if req.Variant != domain.VariantWithReference {
		reference = nil
	}
	asset, err := g.client.GenerateImage(ctx, genai.ImageRequest{
		Prompt:      req.Prompt,
		AspectRatio: string(req.AspectRatio),
		Reference:   reference,
		RequestID:   req.RequestID,
	})
	if err != nil {
		return nil, err
	}
	return &Asset{Data: asset.Data, Format: asset.Format}, nil
}

var _ Generator = (*GeminiGenerator)(nil)
