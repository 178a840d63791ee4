package anthropic

import (
	"context"
	"encoding/json"
	"image"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/liushuangls/go-anthropic/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snaplens/internal/analysis"
	"snaplens/internal/imaging"
)

func testRequest(t *testing.T) *analysis.Request {
	t.Helper()
	enc, err := imaging.EncodeForUpload(image.NewRGBA(image.Rect(0, 0, 32, 32)))
	require.NoError(t, err)
	return &analysis.Request{
		Description: "describe this",
		Image:       enc,
		Config: analysis.Config{
			Credential:  "sk-test",
			Model:       "claude-3-haiku-20240307",
			MaxTokens:   300,
			Temperature: 0.7,
		},
	}
}

func TestSendSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"id":   "msg_test",
			"type": "message",
			"role": "assistant",
			"content": []map[string]any{
				{"type": "text", "text": "a small test square"},
			},
			"model":       "claude-3-haiku-20240307",
			"stop_reason": "end_turn",
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	provider := New(anthropic.WithBaseURL(server.URL))
	text, err := provider.Send(context.Background(), testRequest(t))
	require.NoError(t, err)
	assert.Equal(t, "a small test square", text)
}

func TestSendAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		resp := map[string]any{
			"type": "error",
			"error": map[string]any{
				"type":    "invalid_request_error",
				"message": "image too large",
			},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	provider := New(anthropic.WithBaseURL(server.URL))
	_, err := provider.Send(context.Background(), testRequest(t))
	var provErr *analysis.ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Contains(t, provErr.Message, "image too large")
}
