// Package fulltext obtains a cleaned article body for a URL. Every failure
// is logged and reported as an empty string.
package fulltext

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	readability "github.com/go-shiori/go-readability"
	"github.com/microcosm-cc/bluemonday"
)

// Pages larger than this are rejected while reading the response.
const maxHTMLBytes = 2 << 20

// Cleaner turns raw article HTML into the article body.
type Cleaner interface {
	Clean(ctx context.Context, pageURL *url.URL, html []byte) (string, error)
}

type Extractor struct {
	client  *resty.Client
	cleaner Cleaner
	logger  *slog.Logger
}

func New(cleaner Cleaner, timeout time.Duration, logger *slog.Logger) *Extractor {
	return &Extractor{
		client: resty.New().
			SetTimeout(timeout).
			SetResponseBodyLimit(maxHTMLBytes).
			SetHeader("User-Agent", "NewsMaker/1.0"),
		cleaner: cleaner,
		logger:  logger.With("component", "fulltext"),
	}
}

// GetFullText returns the article body for rawURL, or "" on any failure.
func (e *Extractor) GetFullText(ctx context.Context, rawURL string) string {
	pageURL, err := url.Parse(rawURL)
	if err != nil || pageURL.Host == "" {
		e.logger.Error("invalid article url", "url", rawURL)
		return ""
	}

	html, err := e.fetch(ctx, rawURL)
	if err != nil {
		e.logger.Error("error fetching url", "url", rawURL, "error", err)
		return ""
	}

	text, err := e.cleaner.Clean(ctx, pageURL, html)
	if err != nil {
		e.logger.Error("error extracting text", "url", rawURL, "error", err)
		return ""
	}

	return strings.TrimSpace(text)
}

func (e *Extractor) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	resp, err := e.client.R().SetContext(ctx).Get(rawURL)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode())
	}

	return resp.Body(), nil
}

// ReadabilityCleaner extracts the main content with go-readability.
type ReadabilityCleaner struct {
	policy *bluemonday.Policy
}

func NewReadabilityCleaner() *ReadabilityCleaner {
	return &ReadabilityCleaner{policy: bluemonday.UGCPolicy()}
}

func (c *ReadabilityCleaner) Clean(_ context.Context, pageURL *url.URL, html []byte) (string, error) {
	article, err := readability.FromReader(bytes.NewReader(html), pageURL)
	if err != nil {
		return "", fmt.Errorf("readability: %w", err)
	}
	return c.policy.Sanitize(article.Content), nil
}

// StripCleaner drops all markup.
type StripCleaner struct {
	policy *bluemonday.Policy
}

func NewStripCleaner() *StripCleaner {
	return &StripCleaner{policy: bluemonday.StrictPolicy()}
}

func (c *StripCleaner) Clean(_ context.Context, _ *url.URL, html []byte) (string, error) {
	return strings.Join(strings.Fields(c.policy.Sanitize(string(html))), " "), nil
}
