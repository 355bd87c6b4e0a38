package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"news_maker/internal/config"
	"news_maker/internal/domain"
)

var ErrNotConfigured = errors.New("news api is not configured")

// FetchService pages the news API and enqueues items that are not stored yet.
type FetchService struct {
	source  NewsSource
	content ContentStore
	queue   Queue
	api     config.APIConfig
	config  config.FetchConfig
	logger  *slog.Logger
}

func NewFetchService(
	source NewsSource,
	content ContentStore,
	queue Queue,
	api config.APIConfig,
	cfg config.FetchConfig,
	logger *slog.Logger,
) *FetchService {
	return &FetchService{
		source:  source,
		content: content,
		queue:   queue,
		api:     api,
		config:  cfg,
		logger:  logger.With("component", "fetch"),
	}
}

// Fetch runs one pagination pass. On error the stats of the partial run are
// returned with it; items enqueued before the failure stay enqueued.
func (s *FetchService) Fetch(ctx context.Context) (*domain.FetchStats, error) {
	startTime := time.Now()
	stats := &domain.FetchStats{}

	if err := s.api.Validate(); err != nil {
		s.logger.Error("news api is not configured", "error", err)
		return stats, fmt.Errorf("%w: %v", ErrNotConfigured, err)
	}

	query := s.query()
	s.logger.Info("starting fetch",
		"language", query.Language,
		"keywords", query.Keywords,
		"categories", query.Categories,
		"limit", s.config.Limit,
		"max_pages", s.config.MaxPages,
	)

	err := s.paginate(ctx, query, stats)
	stats.Duration = time.Since(startTime)
	if err != nil {
		s.logger.Error("fetch failed",
			"pages", stats.Pages,
			"enqueued", stats.Enqueued,
			"error", err,
		)
		return stats, err
	}

	s.logger.Info("fetch completed",
		"pages", stats.Pages,
		"fetched", stats.Fetched,
		"existing", stats.Existing,
		"enqueued", stats.Enqueued,
		"invalid", stats.Invalid,
		"duration", stats.Duration,
	)

	return stats, nil
}

func (s *FetchService) query() domain.Query {
	return domain.Query{
		Language:   s.config.Language,
		Keywords:   s.config.Keywords,
		Categories: s.config.CategoryList(),
		StartDate:  s.config.StartDate,
		EndDate:    s.config.EndDate,
		PerPage:    s.config.Limit,
	}
}

func (s *FetchService) limitReached(stats *domain.FetchStats) bool {
	return s.config.Limit > 0 && stats.Enqueued >= s.config.Limit
}

func (s *FetchService) paginate(ctx context.Context, query domain.Query, stats *domain.FetchStats) error {
	enqueued := make(map[string]bool)
	visited := map[string]bool{"": true}
	cursor := ""

	for {
		if s.config.MaxPages > 0 && stats.Pages >= s.config.MaxPages {
			s.logger.Warn("max pages reached", "max_pages", s.config.MaxPages)
			return nil
		}

		page, err := s.source.FetchPage(ctx, query, cursor)
		if err != nil {
			return fmt.Errorf("fetch page %d: %w", stats.Pages+1, err)
		}
		stats.Pages++

		if len(page.Items) == 0 {
			s.logger.Debug("empty page", "page", stats.Pages)
			return nil
		}
		stats.Fetched += len(page.Items)

		if err := s.enqueuePage(ctx, page.Items, enqueued, stats); err != nil {
			return err
		}

		if s.limitReached(stats) {
			s.logger.Debug("limit reached", "limit", s.config.Limit)
			return nil
		}
		if page.NextCursor == "" {
			return nil
		}
		if visited[page.NextCursor] {
			s.logger.Warn("api repeated a cursor", "cursor", page.NextCursor)
			return nil
		}
		visited[page.NextCursor] = true
		cursor = page.NextCursor
	}
}

func (s *FetchService) enqueuePage(ctx context.Context, items []domain.RawItem, enqueued map[string]bool, stats *domain.FetchStats) error {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if item.ExternalID != "" {
			ids = append(ids, item.ExternalID)
		}
	}

	existing := map[string]bool{}
	if len(ids) > 0 {
		var err error
		existing, err = s.content.ExistingExternalIDs(ctx, ids)
		if err != nil {
			return fmt.Errorf("lookup existing items: %w", err)
		}
	}

	for _, item := range items {
		if s.limitReached(stats) {
			return nil
		}

		if item.ExternalID == "" {
			s.logger.Warn("item without id skipped")
			stats.Invalid++
			continue
		}

		if existing[item.ExternalID] || enqueued[item.ExternalID] {
			stats.Existing++
			continue
		}

		if err := s.queue.Enqueue(ctx, item.Payload); err != nil {
			return fmt.Errorf("enqueue item %s: %w", item.ExternalID, err)
		}
		enqueued[item.ExternalID] = true
		stats.Enqueued++
	}

	return nil
}
