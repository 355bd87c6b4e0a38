package postgres

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"

	"news_maker/internal/domain"
)

type CategoryStore struct {
	db *sqlx.DB
}

func NewCategoryStore(db *sqlx.DB) *CategoryStore {
	return &CategoryStore{db: db}
}

// GetOrCreate resolves a category by exact, case-sensitive name, creating it
// on first reference.
func (s *CategoryStore) GetOrCreate(ctx context.Context, name string) (int64, error) {
	exec := GetExecutor(ctx, s.db)

	var id int64
	err := exec.QueryRowxContext(ctx, `
		WITH inserted AS (
			INSERT INTO categories (name) VALUES ($1)
			ON CONFLICT (name) DO NOTHING
			RETURNING id
		)
		SELECT id FROM inserted
		UNION ALL
		SELECT id FROM categories WHERE name = $1
		LIMIT 1`, name).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *CategoryStore) LinkToRecord(ctx context.Context, recordID int64, categoryIDs []int64) error {
	if len(categoryIDs) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO content_categories (record_id, category_id) VALUES ")
	valueArgs := make([]interface{}, 0, len(categoryIDs)+1)
	valueArgs = append(valueArgs, recordID)

	for i, categoryID := range categoryIDs {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("($1, $")
		sb.WriteString(itoa(i + 2))
		sb.WriteString(")")
		valueArgs = append(valueArgs, categoryID)
	}
	sb.WriteString(" ON CONFLICT DO NOTHING")

	_, err := GetExecutor(ctx, s.db).ExecContext(ctx, sb.String(), valueArgs...)
	return err
}

func (s *CategoryStore) GetByRecordID(ctx context.Context, recordID int64) ([]domain.Category, error) {
	query := `
		SELECT c.id, c.name
		FROM categories c
		INNER JOIN content_categories cc ON cc.category_id = c.id
		WHERE cc.record_id = $1
		ORDER BY c.id`

	var categories []domain.Category
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &categories, query, recordID)
	return categories, err
}

func itoa(i int) string {
	if i < 10 {
		return string(rune('0' + i))
	}
	return itoa(i/10) + string(rune('0'+i%10))
}
