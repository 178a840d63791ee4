package custom

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"snaplens/internal/analysis"
)

// Provider speaks the minimal provider-agnostic schema: the caller runs their
// own endpoint and gets the raw description plus base64 image, nothing more.
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
	Description string `json:"description"`
	ImageBase64 string `json:"imageBase64"`
}

type response struct {
	Response string `json:"response"`
	Success  bool   `json:"success"`
	Error    string `json:"error"`
}

func (p *Provider) Send(ctx context.Context, req *analysis.Request) (string, error) {
	payload, err := json.Marshal(request{
		Description: req.Description,
		ImageBase64: req.Image.Base64,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.Config.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

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

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &analysis.ProviderError{StatusCode: resp.StatusCode, Message: string(raw)}
	}

	var respBody response
	if err := json.Unmarshal(raw, &respBody); err != nil {
		return "", &analysis.MalformedResponseError{Err: err}
	}

	if !respBody.Success || respBody.Error != "" {
		msg := respBody.Error
		if msg == "" {
			msg = "endpoint reported failure"
		}
		return "", &analysis.ProviderError{StatusCode: resp.StatusCode, Message: msg}
	}

	return respBody.Response, nil
}
