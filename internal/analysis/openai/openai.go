package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"snaplens/internal/analysis"
)

// Provider speaks the chat-completions vision wire format: a user message
// holding a text part plus the image inlined as a data URL. Any endpoint
// accepting that format works, not just the default one.
type Provider struct {
	client *http.Client
}

func New(client *http.Client) *Provider {
	if client == nil {
		client = &http.Client{}
	}
	return &Provider{client: client}
}

type request struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

type message struct {
	Role    string `json:"role"`
	Content []part `json:"content"`
}

type part struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type response struct {
	Choices []choice  `json:"choices"`
	Error   *apiError `json:"error"`
}

type choice struct {
	Message struct {
		// Providers return content either as a plain string or as an
		// array of typed blocks; decode is deferred until extraction.
		Content json.RawMessage `json:"content"`
	} `json:"message"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func (p *Provider) Send(ctx context.Context, req *analysis.Request) (string, error) {
	body := request{
		Model:       req.Config.Model,
		MaxTokens:   req.Config.MaxTokens,
		Temperature: req.Config.Temperature,
		Messages: []message{{
			Role: "user",
			Content: []part{
				{Type: "text", Text: req.Description},
				{Type: "image_url", ImageURL: &imageURL{URL: req.Image.DataURL}},
			},
		}},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.Config.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+req.Config.Credential)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", &analysis.TransportError{Err: err}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("failed to close response body", "error", err)
		}
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &analysis.TransportError{Err: err}
	}

	var respBody response
	if err := json.Unmarshal(raw, &respBody); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return "", &analysis.ProviderError{StatusCode: resp.StatusCode, Message: summarize(raw)}
		}
		return "", &analysis.MalformedResponseError{Err: err}
	}

	if respBody.Error != nil {
		return "", &analysis.ProviderError{StatusCode: resp.StatusCode, Message: respBody.Error.Message}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &analysis.ProviderError{StatusCode: resp.StatusCode, Message: summarize(raw)}
	}

	if len(respBody.Choices) == 0 {
		return "", analysis.ErrEmptyResponse
	}

	text, err := extractText(respBody.Choices[0].Message.Content)
	if err != nil {
		return "", &analysis.MalformedResponseError{Err: err}
	}
	return text, nil
}

// extractText accepts both content shapes the ecosystem produces: a plain
// string, or an array of {type:"text", text} blocks.
func extractText(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", fmt.Errorf("message has no content")
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}

	var blocks []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return "", fmt.Errorf("unexpected message content shape: %w", err)
	}
	for _, b := range blocks {
		if b.Type == "text" {
			return b.Text, nil
		}
	}
	return "", fmt.Errorf("no text block in message content")
}

// summarize trims a raw error body down to something fit for a log line or
// user-facing message. The cut backs up to a rune boundary so the result
// stays valid UTF-8.
func summarize(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if len(s) > 200 {
		cut := 200
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut] + "..."
	}
	return s
}
