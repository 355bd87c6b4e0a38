package newsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/araddon/dateparse"
	"github.com/go-resty/resty/v2"

	"news_maker/internal/domain"
)

const SourceID = "newsapi"

var ErrMissingID = errors.New("item has no id")

// Config holds news API client configuration.
type Config struct {
	BaseURL        string
	APIKey         string
	Timeout        time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Source pages through the news API.
type Source struct {
	client  *resty.Client
	baseURL string
	apiKey  string
	logger  *slog.Logger
}

// New creates a news API source. Transport errors and 5xx responses are
// retried with capped exponential backoff; 4xx and decode errors are not.
func New(cfg Config, logger *slog.Logger) *Source {
	retries := cfg.MaxAttempts - 1
	if retries < 0 {
		retries = 0
	}

	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(retries).
		SetRetryWaitTime(cfg.InitialBackoff).
		SetRetryMaxWaitTime(cfg.MaxBackoff).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		})

	s := &Source{
		client:  client,
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		logger:  logger.With("source", SourceID),
	}

	client.OnError(func(req *resty.Request, err error) {
		s.logger.Warn("request failed", "url", req.URL, "attempt", req.Attempt, "error", err)
	})

	return s
}

// FetchPage fetches one page of results starting at cursor.
func (s *Source) FetchPage(ctx context.Context, q domain.Query, cursor string) (*domain.Page, error) {
	params := buildParams(q, cursor)

	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "NewsMaker/1.0").
		SetHeader("X-Api-Key", s.apiKey).
		SetQueryParamsFromValues(params).
		Get(s.baseURL)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode())
	}

	var apiResp APIResponse
	if err := json.Unmarshal(resp.Body(), &apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	page := &domain.Page{
		Items:      make([]domain.RawItem, 0, len(apiResp.Data)),
		NextCursor: apiResp.NextCursor,
	}

	for i, raw := range apiResp.Data {
		var head struct {
			ID   json.RawMessage `json:"id"`
			UUID json.RawMessage `json:"uuid"`
		}
		if err := json.Unmarshal(raw, &head); err != nil {
			return nil, fmt.Errorf("decode item %d: %w", i, err)
		}

		page.Items = append(page.Items, domain.RawItem{
			ExternalID: firstNonEmpty(rawID(head.ID), rawID(head.UUID)),
			Payload:    raw,
		})
	}

	s.logger.Debug("fetched page",
		"cursor", cursor,
		"items", len(page.Items),
		"next_cursor", page.NextCursor,
	)

	return page, nil
}

func buildParams(q domain.Query, cursor string) url.Values {
	params := url.Values{}
	if q.Language != "" {
		params.Set("language", q.Language)
	}
	if q.Keywords != "" {
		params.Set("q", q.Keywords)
	}
	if q.StartDate != "" {
		params.Set("start_date", q.StartDate)
	}
	if q.EndDate != "" {
		params.Set("end_date", q.EndDate)
	}
	if q.PerPage > 0 {
		params.Set("per_page", strconv.Itoa(q.PerPage))
	}
	for _, topic := range q.Categories {
		params.Add("topic", topic)
	}
	if cursor != "" {
		params.Set("cursor", cursor)
	}
	return params
}

// rawID accepts both string and numeric ids.
func rawID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// DecodeItem maps a queued payload to a NewsItem. Primary field names win
// over their older aliases.
func DecodeItem(payload []byte) (*domain.NewsItem, error) {
	var raw struct {
		Item
		ID   json.RawMessage `json:"id"`
		UUID json.RawMessage `json:"uuid"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("decode item: %w", err)
	}

	id := firstNonEmpty(rawID(raw.ID), rawID(raw.UUID))
	if id == "" {
		return nil, ErrMissingID
	}

	item := &domain.NewsItem{
		ExternalID:  id,
		Title:       raw.Title,
		Description: raw.Description,
		Snippet:     raw.Snippet,
		Content:     raw.Content,
		Link:        firstNonEmpty(raw.ArticleLink, raw.URL),
		SourceTitle: raw.SourceTitle,
		SourceLink:  raw.SourceLink,
		ImageURL:    firstNonEmpty(raw.MediaURL, raw.ImageURL),
		Language:    raw.Language,
		Categories:  raw.Topics,
	}
	if len(item.Categories) == 0 {
		item.Categories = raw.Categories
	}

	if pubDate := firstNonEmpty(raw.PubDate, raw.PublishedAt); pubDate != "" {
		if t, err := dateparse.ParseIn(pubDate, time.UTC); err == nil {
			item.PublishedAt = t.UTC()
		}
	}

	return item, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
