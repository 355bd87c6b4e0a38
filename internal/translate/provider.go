package translate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

var ErrEmptyTranslation = errors.New("provider returned empty translation")

type translateRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type translateResponse struct {
	TranslatedText string `json:"translatedText"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Provider talks to a LibreTranslate compatible /translate endpoint.
type Provider struct {
	client *resty.Client
	apiKey string
}

func NewProvider(baseURL, apiKey string, timeout time.Duration) *Provider {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Provider{client: client, apiKey: apiKey}
}

// Translate sends text as HTML so markup survives the round trip. An empty
// source lets the provider detect the language.
func (p *Provider) Translate(ctx context.Context, text, source, target string) (string, error) {
	if source == "" {
		source = "auto"
	}

	var result translateResponse
	var apiErr errorResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(translateRequest{
			Q:      text,
			Source: source,
			Target: target,
			Format: "html",
			APIKey: p.apiKey,
		}).
		SetResult(&result).
		SetError(&apiErr).
		Post("/translate")
	if err != nil {
		return "", fmt.Errorf("translate request: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		if apiErr.Error != "" {
			return "", fmt.Errorf("translate: %s (status %d)", apiErr.Error, resp.StatusCode())
		}
		return "", fmt.Errorf("translate: unexpected status: %d", resp.StatusCode())
	}

	if result.TranslatedText == "" {
		return "", ErrEmptyTranslation
	}

	return result.TranslatedText, nil
}
