package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"news_maker/internal/domain"
)

const (
	summaryMaxRunes = 600
	ellipsis        = "..."
)

// Materializer turns a queued news item into a stored content record.
type Materializer struct {
	content    ContentStore
	categories CategoryStore
	txManager  TransactionManager
	images     ImageDownloader
	fullText   FullTextExtractor
	events     EventDispatcher
	logger     *slog.Logger
	now        func() time.Time
}

// NewMaterializer wires the materializer. fullText may be nil when
// extraction is disabled; the body then comes from the payload.
func NewMaterializer(
	content ContentStore,
	categories CategoryStore,
	txManager TransactionManager,
	images ImageDownloader,
	fullText FullTextExtractor,
	events EventDispatcher,
	logger *slog.Logger,
) *Materializer {
	return &Materializer{
		content:    content,
		categories: categories,
		txManager:  txManager,
		images:     images,
		fullText:   fullText,
		events:     events,
		logger:     logger.With("component", "materializer"),
		now:        time.Now,
	}
}

func (m *Materializer) Process(ctx context.Context, item *domain.NewsItem) error {
	logger := m.logger.With("external_id", item.ExternalID)

	exists, err := m.content.ExistsByExternalID(ctx, item.ExternalID)
	if err != nil {
		return fmt.Errorf("check existing record: %w", err)
	}
	if exists {
		logger.Debug("item already materialized")
		return nil
	}

	record := &domain.ContentRecord{
		ExternalID:  item.ExternalID,
		Title:       item.Title,
		Body:        m.resolveBody(ctx, item),
		BodyFormat:  domain.BodyFormatBasicHTML,
		Summary:     Truncate(teaser(item), summaryMaxRunes),
		SourceTitle: item.SourceTitle,
		SourceLink:  item.SourceLink,
		Link:        item.Link,
		Langcode:    item.Language,
		ImageFileID: m.downloadImage(ctx, item.ImageURL, logger),
		CreatedAt:   item.PublishedAt,
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = m.now().UTC()
	}

	err = m.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		categoryIDs, err := m.resolveCategories(txCtx, item.Categories)
		if err != nil {
			return err
		}

		id, err := m.content.Create(txCtx, record)
		if err != nil {
			return fmt.Errorf("create record: %w", err)
		}
		record.ID = id
		record.CategoryIDs = categoryIDs

		if len(categoryIDs) > 0 {
			if err := m.categories.LinkToRecord(txCtx, id, categoryIDs); err != nil {
				return fmt.Errorf("link categories: %w", err)
			}
		}
		return nil
	})
	if errors.Is(err, domain.ErrDuplicate) {
		logger.Info("item materialized concurrently, skipping")
		return nil
	}
	if err != nil {
		return err
	}

	logger.Info("record created",
		"record_id", record.ID,
		"categories", len(record.CategoryIDs),
		"has_image", record.ImageFileID != nil,
	)

	if m.events != nil {
		if err := m.events.Dispatch(ctx, domain.ContentCreated{Record: record}); err != nil {
			logger.Error("content created listeners failed", "record_id", record.ID, "error", err)
		}
	}

	return nil
}

// resolveCategories maps trimmed names to category ids, keeping the first
// occurrence of each name.
func (m *Materializer) resolveCategories(ctx context.Context, names []string) ([]int64, error) {
	var ids []int64
	seen := make(map[string]bool, len(names))

	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		id, err := m.categories.GetOrCreate(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("resolve category %q: %w", name, err)
		}
		ids = append(ids, id)
	}

	return ids, nil
}

func (m *Materializer) downloadImage(ctx context.Context, rawURL string, logger *slog.Logger) *int64 {
	if rawURL == "" || m.images == nil {
		return nil
	}

	file, err := m.images.Download(ctx, rawURL)
	if err != nil {
		logger.Warn("image download failed, continuing without image", "url", rawURL, "error", err)
		return nil
	}
	return &file.ID
}

func (m *Materializer) resolveBody(ctx context.Context, item *domain.NewsItem) string {
	if m.fullText != nil && item.Link != "" {
		if text := m.fullText.GetFullText(ctx, item.Link); text != "" {
			return text
		}
	}
	if item.Content != "" {
		return item.Content
	}
	return teaser(item)
}

func teaser(item *domain.NewsItem) string {
	if item.Description != "" {
		return item.Description
	}
	return item.Snippet
}

// Truncate cuts s to limit runes and appends "..." when it was longer.
func Truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + ellipsis
}
