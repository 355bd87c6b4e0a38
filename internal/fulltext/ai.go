package fulltext

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const extractPrompt = "Extract the full text of the news article from the following HTML content. " +
	"Remove all extraneous elements (navigation, ads, styles) and return only the main article text:\n\n"

var ErrNoProvider = errors.New("no generative text provider configured")

// AICleaner asks a Gemini-compatible generateContent endpoint for the
// article body.
type AICleaner struct {
	client  *resty.Client
	apiKey  string
	model   string
	baseURL string
}

type generateRequest struct {
	Contents []generateContent `json:"contents"`
}

type generateContent struct {
	Parts []generatePart `json:"parts"`
}

type generatePart struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func NewAICleaner(baseURL, apiKey, model string, timeout time.Duration) *AICleaner {
	return &AICleaner{
		client:  resty.New().SetTimeout(timeout),
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (c *AICleaner) Clean(ctx context.Context, _ *url.URL, html []byte) (string, error) {
	if c.apiKey == "" {
		return "", ErrNoProvider
	}

	req := generateRequest{
		Contents: []generateContent{{
			Parts: []generatePart{{Text: extractPrompt + string(html)}},
		}},
	}

	var resp generateResponse
	r, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetQueryParam("key", c.apiKey).
		SetBody(req).
		SetResult(&resp).
		SetError(&resp).
		Post(fmt.Sprintf("%s/%s:generateContent", c.baseURL, c.model))
	if err != nil {
		return "", fmt.Errorf("API request failed: %w", err)
	}

	if resp.Error != nil {
		return "", fmt.Errorf("API error: %s", resp.Error.Message)
	}
	if r.IsError() {
		return "", fmt.Errorf("unexpected status: %d", r.StatusCode())
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("no content in response")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}
