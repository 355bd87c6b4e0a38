package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"news_maker/internal/domain"
)

type NewsSource interface {
	FetchPage(ctx context.Context, q domain.Query, cursor string) (*domain.Page, error)
}

type ContentStore interface {
	ExistingExternalIDs(ctx context.Context, ids []string) (map[string]bool, error)
	ExistsByExternalID(ctx context.Context, externalID string) (bool, error)
	Create(ctx context.Context, record *domain.ContentRecord) (int64, error)
}

type CategoryStore interface {
	GetOrCreate(ctx context.Context, name string) (int64, error)
	LinkToRecord(ctx context.Context, recordID int64, categoryIDs []int64) error
}

type TranslationStore interface {
	Exists(ctx context.Context, recordID int64, langcode string) (bool, error)
	Create(ctx context.Context, t *domain.TranslationRecord) error
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Queue interface {
	Enqueue(ctx context.Context, payload []byte) error
}

type ImageDownloader interface {
	Download(ctx context.Context, rawURL string) (*domain.File, error)
}

// FullTextExtractor returns "" when no text could be extracted.
type FullTextExtractor interface {
	GetFullText(ctx context.Context, rawURL string) string
}

type EventDispatcher interface {
	Dispatch(ctx context.Context, evt domain.ContentCreated) error
}

type Translator interface {
	Translate(ctx context.Context, text, source, target string) (string, error)
}
