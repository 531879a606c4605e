package card

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	"io"
	"net/http"
	"time"

	"github.com/nfnt/resize"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/xaenox/gamer-card/internal/models"
)

// maxImageSize caps a downloaded portrait
const maxImageSize = 20 << 20

// ImageClient is the subset of *openai.Client the renderer uses
type ImageClient interface {
	CreateImage(ctx context.Context, req openai.ImageRequest) (openai.ImageResponse, error)
}

type Renderer struct {
	client ImageClient
	model  string
	http   *http.Client
	logger *zap.Logger
}

func NewRenderer(client ImageClient, model string, logger *zap.Logger) *Renderer {
	if model == "" {
		model = openai.CreateImageModelDallE3
	}
	return &Renderer{
		client: client,
		model:  model,
		http:   &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

// Portrait generates an image for prompt and crops it to the card's portrait
// area.
func (r *Renderer) Portrait(ctx context.Context, prompt string) (image.Image, error) {
	resp, err := r.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		Model:          r.model,
		N:              1,
		Size:           openai.CreateImageSize1024x1024,
		Quality:        openai.CreateImageQualityStandard,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return nil, fmt.Errorf("image generation failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("image generation returned no data")
	}

	raw, err := r.imageBytes(ctx, resp.Data[0])
	if err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to decode generated image: %w", err)
	}
	return cropPortrait(img), nil
}

func (r *Renderer) imageBytes(ctx context.Context, data openai.ImageResponseDataInner) ([]byte, error) {
	if data.B64JSON != "" {
		raw, err := base64.StdEncoding.DecodeString(data.B64JSON)
		if err != nil {
			return nil, fmt.Errorf("failed to decode image payload: %w", err)
		}
		return raw, nil
	}
	if data.URL == "" {
		return nil, errors.New("image generation returned neither data nor URL")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, data.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create image request: %w", err)
	}
	resp, err := r.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image download returned HTTP %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxImageSize))
}

// cropPortrait scales img to CardWidth square and keeps the vertical centre
func cropPortrait(img image.Image) *image.RGBA {
	scaled := resize.Resize(CardWidth, CardWidth, img, resize.Lanczos3)

	top := (CardWidth - PortraitHeight) / 2
	out := image.NewRGBA(image.Rect(0, 0, CardWidth, PortraitHeight))
	draw.Draw(out, out.Bounds(), scaled, image.Pt(scaled.Bounds().Min.X, scaled.Bounds().Min.Y+top), draw.Src)
	return out
}

// FallbackPortrait draws a tier-coloured gradient with the tier letter, for
// when image generation fails.
func FallbackPortrait(tier models.Tier) (*image.RGBA, error) {
	theme := ThemeFor(tier)
	img := image.NewRGBA(image.Rect(0, 0, CardWidth, PortraitHeight))

	for y := 0; y < PortraitHeight; y++ {
		ratio := float64(y) / PortraitHeight
		row := blend(theme.Background, theme.Accent, ratio*0.3)
		draw.Draw(img, image.Rect(0, y, CardWidth, y+1), image.NewUniform(row), image.Point{}, draw.Src)
	}

	f, err := face(true, 160)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	w := textWriter{dst: img, face: f, col: theme.Accent}
	w.drawCentered(string(tier), CardWidth/2, PortraitHeight/2+60)
	return img, nil
}
