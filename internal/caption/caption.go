// Package caption produces short social captions for a photo. Providers never
// fail from the caller's point of view: any problem yields Fallback.
package caption

import (
	"context"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"photocurate/internal/models"
)

const (
	MaxLength = 150

	Fallback = "A moment worth sharing, captured and curated with care."

	prompt = "Write one short, engaging social media caption for this photo. " +
		"Maximum 150 characters. Do not use hashtags. Reply with the caption only."
)

const quotes = "\"'“”‘’"

var (
	hashtag      = regexp.MustCompile(`#+[\p{L}\p{N}_]+`)
	emptyBracket = regexp.MustCompile(`[(\[{]\s*[)\]}]`)
	spacedPunct  = regexp.MustCompile(`\s+([,.;:!?])`)
)

type Provider interface {
	Caption(ctx context.Context, image []byte) string
}

// Static always returns the same text.
type Static struct {
	Text string
}

func (s Static) Caption(context.Context, []byte) string {
	if text := Sanitize(s.Text); text != "" {
		return text
	}
	return Fallback
}

// New picks the provider named in cfg. A remote provider without an API key
// degrades to Static, which answers with Fallback unless cfg.Text is set.
func New(cfg models.CaptionConfig, logger *zap.Logger) Provider {
	logger = logger.Named("caption")

	switch cfg.Provider {
	case "openai":
		if cfg.APIKey == "" {
			logger.Warn("openai caption provider has no api key, using fallback caption")
			return Static{Text: cfg.Text}
		}
		return NewOpenAI(cfg, logger)
	case "gemini":
		if cfg.APIKey == "" {
			logger.Warn("gemini caption provider has no api key, using fallback caption")
			return Static{Text: cfg.Text}
		}
		return NewGemini(cfg, logger)
	default:
		return Static{Text: cfg.Text}
	}
}

// Sanitize removes hashtags, wrapping quotes and extra whitespace, then
// truncates to MaxLength characters on a word boundary when possible.
func Sanitize(s string) string {
	out := strings.Trim(strings.TrimSpace(s), quotes)
	out = hashtag.ReplaceAllString(out, " ")
	out = emptyBracket.ReplaceAllString(out, " ")
	out = strings.Join(strings.Fields(out), " ")
	out = spacedPunct.ReplaceAllString(out, "$1")
	out = strings.TrimRight(out, ",;: ")
	out = strings.Trim(out, quotes+" ")

	if utf8.RuneCountInString(out) <= MaxLength {
		return out
	}
	runes := []rune(out)[:MaxLength]
	cut := len(runes)
	for i := len(runes) - 1; i > MaxLength/2; i-- {
		if unicode.IsSpace(runes[i]) {
			cut = i
			break
		}
	}
	return strings.TrimRightFunc(string(runes[:cut]), func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r) && r != '.' && r != '!' && r != '?'
	})
}

func orFallback(s string) string {
	if s = Sanitize(s); s == "" {
		return Fallback
	}
	return s
}
