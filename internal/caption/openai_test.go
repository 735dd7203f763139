package caption

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"photocurate/internal/models"
)

func newTestOpenAI(url string) *OpenAI {
	return NewOpenAI(models.CaptionConfig{
		APIKey:  "test-key",
		Model:   "gpt-4o-mini",
		BaseURL: url,
		Timeout: 2 * time.Second,
	}, zap.NewNop())
}

func completion(text string) string {
	body, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{{"message": map[string]any{"content": text}}},
	})
	return string(body)
}

func TestOpenAI_Caption(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completion("\"Harbor lights at dusk\" #travel")))
	}))
	defer srv.Close()

	text := newTestOpenAI(srv.URL).Caption(context.Background(), []byte{0xff, 0xd8, 0xff})

	assert.Equal(t, "Harbor lights at dusk", text)
	assert.Equal(t, "gpt-4o-mini", got.Model)
	require.Len(t, got.Messages, 1)
	require.Len(t, got.Messages[0].Content, 2)
	assert.Equal(t, "text", got.Messages[0].Content[0].Type)
	require.NotNil(t, got.Messages[0].Content[1].ImageURL)
	assert.True(t, strings.HasPrefix(got.Messages[0].Content[1].ImageURL.URL, "data:image/jpeg;base64,"))
}

func TestOpenAI_LongCaptionIsTrimmed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(completion(strings.Repeat("bright ", 60))))
	}))
	defer srv.Close()

	text := newTestOpenAI(srv.URL).Caption(context.Background(), nil)

	assert.LessOrEqual(t, utf8.RuneCountInString(text), MaxLength)
}

func TestOpenAI_FailuresFallBack(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{name: "server error", handler: func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}},
		{name: "unauthorized", handler: func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}},
		{name: "malformed body", handler: func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("{not json"))
		}},
		{name: "no choices", handler: func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"choices":[]}`))
		}},
		{name: "only hashtags", handler: func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(completion("#sun #sea")))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			assert.Equal(t, Fallback, newTestOpenAI(srv.URL).Caption(context.Background(), nil))
		})
	}
}

func TestOpenAI_UnreachableFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	assert.Equal(t, Fallback, newTestOpenAI(url).Caption(context.Background(), nil))
}
