package anthropic

import (
	"context"
	"errors"

	"github.com/liushuangls/go-anthropic/v2"

	"snaplens/internal/analysis"
)

// Provider sends the image through the Anthropic Messages API. The credential
// and model come from the request config; opts exist so tests can point the
// SDK at a stub server.
type Provider struct {
	opts []anthropic.ClientOption
}

func New(opts ...anthropic.ClientOption) *Provider {
	return &Provider{opts: opts}
}

func (p *Provider) Send(ctx context.Context, req *analysis.Request) (string, error) {
	client := anthropic.NewClient(req.Config.Credential, p.opts...)

	temperature := float32(req.Config.Temperature)
	resp, err := client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:       anthropic.Model(req.Config.Model),
		MaxTokens:   req.Config.MaxTokens,
		Temperature: &temperature,
		Messages: []anthropic.Message{{
			Role: anthropic.RoleUser,
			Content: []anthropic.MessageContent{
				anthropic.NewImageMessageContent(anthropic.NewMessageContentSource(
					anthropic.MessagesContentSourceTypeBase64, "image/jpeg", req.Image.JPEG,
				)),
				anthropic.NewTextMessageContent(req.Description),
			},
		}},
	})
	if err != nil {
		var apiErr *anthropic.APIError
		if errors.As(err, &apiErr) {
			return "", &analysis.ProviderError{Message: apiErr.Message}
		}
		var reqErr *anthropic.RequestError
		if errors.As(err, &reqErr) {
			return "", &analysis.ProviderError{StatusCode: reqErr.StatusCode, Message: reqErr.Error()}
		}
		return "", &analysis.TransportError{Err: err}
	}

	text := resp.GetFirstContentText()
	if text == "" {
		return "", analysis.ErrEmptyResponse
	}
	return text, nil
}
