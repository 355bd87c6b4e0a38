package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"news_maker/internal/domain"
)

type TranslationStore struct {
	db *sqlx.DB
}

func NewTranslationStore(db *sqlx.DB) *TranslationStore {
	return &TranslationStore{db: db}
}

func (s *TranslationStore) Exists(ctx context.Context, recordID int64, langcode string) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &exists,
		"SELECT EXISTS (SELECT 1 FROM content_translations WHERE record_id = $1 AND langcode = $2)",
		recordID, langcode,
	)
	return exists, err
}

// Create stores a translation. A second translation for the same language
// returns domain.ErrDuplicate.
func (s *TranslationStore) Create(ctx context.Context, t *domain.TranslationRecord) error {
	fields, err := json.Marshal(t.Fields)
	if err != nil {
		return fmt.Errorf("marshal fields: %w", err)
	}

	err = GetExecutor(ctx, s.db).QueryRowxContext(ctx, `
		INSERT INTO content_translations (record_id, langcode, fields)
		VALUES ($1, $2, $3)
		ON CONFLICT (record_id, langcode) DO NOTHING
		RETURNING id`,
		t.RecordID, t.Langcode, string(fields),
	).Scan(&t.ID)
	if err == sql.ErrNoRows {
		return domain.ErrDuplicate
	}
	return err
}

func (s *TranslationStore) Get(ctx context.Context, recordID int64, langcode string) (*domain.TranslationRecord, error) {
	var row struct {
		ID     int64  `db:"id"`
		Fields []byte `db:"fields"`
	}
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &row,
		"SELECT id, fields FROM content_translations WHERE record_id = $1 AND langcode = $2",
		recordID, langcode,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	t := &domain.TranslationRecord{ID: row.ID, RecordID: recordID, Langcode: langcode}
	if err := json.Unmarshal(row.Fields, &t.Fields); err != nil {
		return nil, fmt.Errorf("unmarshal fields: %w", err)
	}
	return t, nil
}
