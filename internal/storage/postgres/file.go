package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"news_maker/internal/domain"
)

type FileStore struct {
	db *sqlx.DB
}

func NewFileStore(db *sqlx.DB) *FileStore {
	return &FileStore{db: db}
}

// Save records a managed file. Saving the same URI again overwrites the
// previous row, matching the overwrite on disk.
func (s *FileStore) Save(ctx context.Context, file *domain.File) (int64, error) {
	query := `
		INSERT INTO files (uri, filename, mime, size, status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (uri) DO UPDATE SET
			filename = EXCLUDED.filename,
			mime = EXCLUDED.mime,
			size = EXCLUDED.size,
			status = EXCLUDED.status
		RETURNING id, created_at`

	err := GetExecutor(ctx, s.db).QueryRowxContext(ctx, query,
		file.URI,
		file.Filename,
		file.Mime,
		file.Size,
		file.Status,
	).Scan(&file.ID, &file.CreatedAt)
	if err != nil {
		return 0, err
	}
	return file.ID, nil
}
