package genai

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/fraolBatole/AuraLab/internal/domain"
	"github.com/fraolBatole/AuraLab/internal/infra"
)

// Options controls how the Gemini client is configured.
type Options struct {
	APIKey     string
	BaseURL    string
	ImageModel string
	VideoModel string
	HTTPClient *http.Client
	Logger     *infra.Logger

	// Video generation is a long-running operation polled at PollInterval up
	// to MaxPolls times before the attempt is abandoned.
	PollInterval time.Duration
	MaxPolls     int
}

// Client is a facade over the Gemini generative media APIs. When no API key is
// configured it produces deterministic synthetic assets so the rest of the
// pipeline stays exercisable in local and CI environments.
type Client struct {
	apiKey     string
	baseURL    string
	imageModel string
	videoModel string
	httpClient *http.Client
	logger     *infra.Logger

	pollInterval time.Duration
	maxPolls     int
}

// ImageRequest carries everything needed to produce one image.
type ImageRequest struct {
	Prompt      string
	AspectRatio string
	Reference   []byte
	RequestID   string
}

// VideoRequest carries everything needed to produce one video.
type VideoRequest struct {
	Prompt      string
	AspectRatio string
	Reference   []byte
	RequestID   string
}

// Asset is a generated media blob with its mime type.
type Asset struct {
	Data   []byte
	Format string
}

// ProgressFunc receives periodic updates while a video renders. completed is
// true exactly once, immediately before the asset is returned.
type ProgressFunc func(elapsed time.Duration, completed bool)

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts,omitempty"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
	FileData   *geminiFileData   `json:"fileData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type geminiFileData struct {
	MimeType string `json:"mimeType,omitempty"`
	FileURI  string `json:"fileUri,omitempty"`
}

type geminiGenerateContentRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiGenerationConfig struct {
	ResponseModalities []string `json:"responseModalities,omitempty"`
	AspectRatio        string   `json:"aspectRatio,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type geminiGenerateContentResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}

type geminiVideoInstance struct {
	Prompt string            `json:"prompt"`
	Image  *geminiInlineData `json:"image,omitempty"`
}

type geminiVideoParameters struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
}

type geminiPredictRequest struct {
	Instances  []geminiVideoInstance `json:"instances"`
	Parameters geminiVideoParameters `json:"parameters"`
}

type geminiOperation struct {
	Name     string `json:"name"`
	Done     bool   `json:"done"`
	Response struct {
		GenerateVideoResponse struct {
			GeneratedSamples []struct {
				Video struct {
					URI string `json:"uri"`
				} `json:"video"`
			} `json:"generatedSamples"`
		} `json:"generateVideoResponse"`
	} `json:"response"`
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
	} `json:"error"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
	} `json:"error"`
}

// NewClient constructs a Gemini client with sane defaults.
func NewClient(opts Options) (*Client, error) {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}

	imageModel := opts.ImageModel
	if imageModel == "" {
		imageModel = "gemini-2.5-flash-image"
	}
	videoModel := opts.VideoModel
	if videoModel == "" {
		videoModel = "veo-3.0-generate-001"
	}

	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = 20 * time.Second
	}
	maxPolls := opts.MaxPolls
	if maxPolls <= 0 {
		maxPolls = 90
	}

	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}

	return &Client{
		apiKey:       strings.TrimSpace(opts.APIKey),
		baseURL:      baseURL,
		imageModel:   imageModel,
		videoModel:   videoModel,
		httpClient:   client,
		logger:       logger,
		pollInterval: pollInterval,
		maxPolls:     maxPolls,
	}, nil
}

// GenerateImage produces one image for the prompt. A non-empty Reference is
// sent alongside the prompt so the model edits or restyles the uploaded photo.
func (c *Client) GenerateImage(ctx context.Context, req ImageRequest) (*Asset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.apiKey == "" {
		return c.syntheticImage(req), nil
	}

	parts := []geminiPart{{Text: buildPrompt(req.Prompt, req.AspectRatio)}}
	if len(req.Reference) > 0 {
		parts = append(parts, geminiPart{InlineData: &geminiInlineData{
			MimeType: "image/jpeg",
			Data:     base64.StdEncoding.EncodeToString(req.Reference),
		}})
	}
	payload := geminiGenerateContentRequest{
		Contents: []geminiContent{{Role: "user", Parts: parts}},
		GenerationConfig: &geminiGenerationConfig{
			ResponseModalities: []string{"IMAGE"},
			AspectRatio:        req.AspectRatio,
		},
	}

	var response geminiGenerateContentResponse
	path := fmt.Sprintf("/models/%s:generateContent", url.PathEscape(c.imageModel))
	if err := c.invoke(ctx, http.MethodPost, path, payload, &response); err != nil {
		return nil, err
	}

	for _, candidate := range response.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.InlineData == nil || part.InlineData.Data == "" {
				continue
			}
			data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				return nil, fmt.Errorf("decode inline data: %w", err)
			}
			format := part.InlineData.MimeType
			if format == "" {
				format = "image/png"
			}
			c.logger.Debug().
				Str("request_id", req.RequestID).
				Str("model", c.imageModel).
				Msg("genai: generated image")
			return &Asset{Data: data, Format: format}, nil
		}
	}
	return nil, fmt.Errorf("%w: no image content returned", domain.ErrUpstream)
}

// GenerateVideo starts a long-running render and polls it to completion. The
// progress callback fires every third poll and once with completed=true right
// before the asset is returned. Exhausting the poll budget yields
// domain.ErrUpstreamTimeout.
func (c *Client) GenerateVideo(ctx context.Context, req VideoRequest, progress ProgressFunc) (*Asset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.apiKey == "" {
		if progress != nil {
			progress(0, true)
		}
		return c.syntheticVideo(req), nil
	}

	instance := geminiVideoInstance{Prompt: buildPrompt(req.Prompt, "")}
	if len(req.Reference) > 0 {
		instance.Image = &geminiInlineData{
			MimeType: "image/jpeg",
			Data:     base64.StdEncoding.EncodeToString(req.Reference),
		}
	}
	payload := geminiPredictRequest{
		Instances:  []geminiVideoInstance{instance},
		Parameters: geminiVideoParameters{AspectRatio: req.AspectRatio},
	}

	var op geminiOperation
	path := fmt.Sprintf("/models/%s:predictLongRunning", url.PathEscape(c.videoModel))
	if err := c.invoke(ctx, http.MethodPost, path, payload, &op); err != nil {
		return nil, err
	}
	if op.Name == "" {
		return nil, fmt.Errorf("%w: no operation started", domain.ErrUpstream)
	}

	for i := 1; i <= c.maxPolls; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollInterval):
		}

		if err := c.invoke(ctx, http.MethodGet, "/"+strings.TrimLeft(op.Name, "/"), nil, &op); err != nil {
			return nil, err
		}
		if op.Error.Message != "" {
			return nil, fmt.Errorf("%w: %s", domain.ErrUpstream, op.Error.Message)
		}
		if op.Done {
			samples := op.Response.GenerateVideoResponse.GeneratedSamples
			if len(samples) == 0 || samples[0].Video.URI == "" {
				return nil, fmt.Errorf("%w: operation finished without video", domain.ErrUpstream)
			}
			data, mime, err := c.download(ctx, samples[0].Video.URI)
			if err != nil {
				return nil, err
			}
			if progress != nil {
				progress(time.Duration(i) * c.pollInterval, true)
			}
			c.logger.Debug().
				Str("request_id", req.RequestID).
				Str("model", c.videoModel).
				Int("polls", i).
				Msg("genai: generated video")
			if mime == "" {
				mime = "video/mp4"
			}
			return &Asset{Data: data, Format: mime}, nil
		}

		if progress != nil && i%3 == 0 {
			progress(time.Duration(i) * c.pollInterval, false)
		}
	}

	return nil, fmt.Errorf("%w: video render exceeded %d polls", domain.ErrUpstreamTimeout, c.maxPolls)
}

func (c *Client) invoke(ctx context.Context, method, path string, payload, out any) error {
	endpoint := c.baseURL + path
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	q := req.URL.Query()
	q.Set("key", c.apiKey)
	req.URL.RawQuery = q.Encode()
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: gemini status 429", domain.ErrUpstreamQuota)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr geminiErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("%w: gemini status %d: %s", domain.ErrUpstream, resp.StatusCode, apiErr.Error.Message)
		}
		return fmt.Errorf("%w: gemini status %d", domain.ErrUpstream, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode gemini response: %w", err)
	}
	return nil
}

func (c *Client) download(ctx context.Context, uri string) ([]byte, string, error) {
	target := uri
	if !strings.HasPrefix(uri, "http://") && !strings.HasPrefix(uri, "https://") {
		target = c.baseURL + "/" + strings.TrimLeft(uri, "/")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create download request: %w", err)
	}
	q := req.URL.Query()
	q.Set("key", c.apiKey)
	req.URL.RawQuery = q.Encode()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: download: %v", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, "", fmt.Errorf("%w: download status %d", domain.ErrUpstream, resp.StatusCode)
	}
	blob, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read download: %w", err)
	}
	return blob, resp.Header.Get("Content-Type"), nil
}

func buildPrompt(prompt, aspect string) string {
	var b strings.Builder
	if p := strings.TrimSpace(prompt); p != "" {
		b.WriteString(p)
	}
	if a := strings.TrimSpace(aspect); a != "" {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("Aspect ratio: ")
		b.WriteString(a)
	}
	return b.String()
}

func (c *Client) syntheticImage(req ImageRequest) *Asset {
	seed := deterministicSeed(req.RequestID, req.Prompt, req.AspectRatio, len(req.Reference))
	width, height := normalizeAspect(req.AspectRatio)
	c.logger.Debug().
		Str("request_id", req.RequestID).
		Msg("genai: no api key, producing synthetic image")
	return &Asset{Data: renderSyntheticImage(width, height, seed), Format: "image/png"}
}

func (c *Client) syntheticVideo(req VideoRequest) *Asset {
	seed := deterministicSeed(req.RequestID, req.Prompt, req.AspectRatio, len(req.Reference))
	lines := []string{
		"Synthetic video placeholder",
		"Seed: " + seed,
		"Prompt: " + strings.TrimSpace(req.Prompt),
	}
	c.logger.Debug().
		Str("request_id", req.RequestID).
		Msg("genai: no api key, producing synthetic video")
	return &Asset{Data: []byte(strings.Join(lines, "\n")), Format: "video/mp4"}
}

func renderSyntheticImage(width, height int, seed string) []byte {
	if width <= 0 {
		width = 1024
	}
	if height <= 0 {
		height = 1024
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	base := colorFromSeed(seed, 0)
	accent := colorFromSeed(seed, 1)
	draw.Draw(img, img.Bounds(), &image.Uniform{base}, image.Point{}, draw.Src)

	stripeHeight := maxInt(32, height/12)
	for y := 0; y < height; y += stripeHeight * 2 {
		stripe := image.Rect(0, y, width, minInt(height, y+stripeHeight))
		draw.Draw(img, stripe, &image.Uniform{accent}, image.Point{}, draw.Over)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil
	}
	return buf.Bytes()
}

func colorFromSeed(seed string, shift int) color.RGBA {
	if seed == "" {
		seed = "000000"
	}
	doubled := seed + seed
	start := (shift * 6) % len(seed)
	segment := doubled[start : start+6]
	return color.RGBA{
		R: mustParseHexByte(segment[0:2]),
		G: mustParseHexByte(segment[2:4]),
		B: mustParseHexByte(segment[4:6]),
		A: 255,
	}
}

func mustParseHexByte(s string) uint8 {
	v, err := strconv.ParseUint(s, 16, 8)
	if err != nil {
		return 0
	}
	return uint8(v)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func deterministicSeed(parts ...any) string {
	hasher := sha256.New()
	for _, part := range parts {
		hasher.Write([]byte(fmt.Sprintf("%v", part)))
		hasher.Write([]byte{'|'})
	}
	return hex.EncodeToString(hasher.Sum(nil))[:16]
}

func normalizeAspect(aspect string) (int, int) {
	switch strings.TrimSpace(aspect) {
	case "16:9":
		return 1920, 1080
	case "9:16":
		return 1080, 1920
	case "4:3":
		return 1280, 960
	case "3:4":
		return 960, 1280
	case "1:1", "":
		return 1024, 1024
	default:
		return 1024, 1024
	}
}
