package caption

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"photocurate/internal/models"
	"photocurate/internal/tracing"
)

const defaultGeminiModel = "gemini-2.0-flash"

// Gemini captions through the Gemini API. The client is created lazily on
// the first request so a bad key only costs a fallback caption.
type Gemini struct {
	apiKey  string
	model   string
	timeout time.Duration
	logger  *zap.Logger

	once   sync.Once
	client *genai.Client
	err    error
}

func NewGemini(cfg models.CaptionConfig, logger *zap.Logger) *Gemini {
	model := cfg.Model
	if model == "" || strings.HasPrefix(model, "gpt") {
		model = defaultGeminiModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Gemini{apiKey: cfg.APIKey, model: model, timeout: timeout, logger: logger}
}

func (g *Gemini) Caption(ctx context.Context, image []byte) string {
	ctx, span := tracer.Start(ctx, "caption.gemini")
	defer span.End()

	text, err := g.request(ctx, image)
	if err != nil {
		tracing.SetError(span, err)
		g.logger.Warn("caption request failed, using fallback", zap.Error(err))
		return Fallback
	}
	return orFallback(text)
}

func (g *Gemini) request(ctx context.Context, image []byte) (string, error) {
	const op = "caption.Gemini.request"

	g.once.Do(func() {
		g.client, g.err = genai.NewClient(context.Background(), &genai.ClientConfig{
			APIKey:  g.apiKey,
			Backend: genai.BackendGeminiAPI,
		})
	})
	if g.err != nil {
		return "", fmt.Errorf("%s: %w", op, g.err)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(prompt),
			genai.NewPartFromBytes(image, "image/jpeg"),
		}, genai.RoleUser),
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%s: empty response", op)
	}
	return text, nil
}
