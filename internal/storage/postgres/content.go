package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"news_maker/internal/domain"
)

type ContentStore struct {
	db *sqlx.DB
}

func NewContentStore(db *sqlx.DB) *ContentStore {
	return &ContentStore{db: db}
}

// Create inserts a record. The unique index on external_id is the
// deduplication signal: a conflicting insert returns domain.ErrDuplicate.
func (s *ContentStore) Create(ctx context.Context, record *domain.ContentRecord) (int64, error) {
	query := `
		INSERT INTO content_records (
			external_id, title, body, body_format, summary, source_title,
			source_link, link, langcode, image_file_id, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)
		ON CONFLICT (external_id) DO NOTHING
		RETURNING id`

	var id int64
	err := GetExecutor(ctx, s.db).QueryRowxContext(ctx, query,
		record.ExternalID,
		record.Title,
		record.Body,
		record.BodyFormat,
		record.Summary,
		record.SourceTitle,
		record.SourceLink,
		record.Link,
		record.Langcode,
		record.ImageFileID,
		record.CreatedAt,
	).Scan(&id)

	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrDuplicate
	}
	if err != nil {
		return 0, err
	}

	record.ID = id
	return id, nil
}

func (s *ContentStore) ExistsByExternalID(ctx context.Context, externalID string) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &exists,
		"SELECT EXISTS (SELECT 1 FROM content_records WHERE external_id = $1)",
		externalID,
	)
	return exists, err
}

// ExistingExternalIDs returns which of ids are already stored, in one query.
func (s *ContentStore) ExistingExternalIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	result := make(map[string]bool)
	if len(ids) == 0 {
		return result, nil
	}

	var found []string
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &found,
		"SELECT external_id FROM content_records WHERE external_id = ANY($1)",
		pq.Array(ids),
	)
	if err != nil {
		return nil, err
	}

	for _, id := range found {
		result[id] = true
	}
	return result, nil
}

func (s *ContentStore) GetByID(ctx context.Context, id int64) (*domain.ContentRecord, error) {
	var record domain.ContentRecord
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &record, `
		SELECT id, external_id, title, body, body_format, summary, source_title,
			source_link, link, langcode, image_file_id, created_at
		FROM content_records
		WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	err = sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &record.CategoryIDs,
		"SELECT category_id FROM content_categories WHERE record_id = $1 ORDER BY category_id", id)
	if err != nil {
		return nil, err
	}

	return &record, nil
}
