//go:build integration

package postgres

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"news_maker/internal/domain"
)

type PostgresIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *postgres.PostgresContainer
	db        *sqlx.DB
}

func (s *PostgresIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()

	migrationsPath, err := filepath.Abs("../../../migrations")
	s.Require().NoError(err)

	container, err := postgres.Run(s.ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		postgres.WithInitScripts(
			filepath.Join(migrationsPath, "001_create_content.up.sql"),
		),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	connStr, err := container.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)

	db, err := sqlx.Connect("postgres", connStr)
	s.Require().NoError(err)
	s.db = db
}

func (s *PostgresIntegrationSuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *PostgresIntegrationSuite) SetupTest() {
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM content_translations")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM content_categories")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM content_records")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM categories")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM files")
}

func TestPostgresIntegrationSuite(t *testing.T) {
	suite.Run(t, new(PostgresIntegrationSuite))
}

func (s *PostgresIntegrationSuite) record(externalID string) *domain.ContentRecord {
	return &domain.ContentRecord{
		ExternalID: externalID,
		Title:      "Test Article",
		Body:       "<p>Body</p>",
		BodyFormat: domain.BodyFormatBasicHTML,
		Summary:    "Summary",
		Link:       "https://example.com/article",
		Langcode:   "en",
		CreatedAt:  time.Now().Truncate(time.Microsecond),
	}
}

func (s *PostgresIntegrationSuite) TestContentStore_Create() {
	store := NewContentStore(s.db)

	id, err := store.Create(s.ctx, s.record("abc-1"))
	s.NoError(err)
	s.Greater(id, int64(0))

	got, err := store.GetByID(s.ctx, id)
	s.Require().NoError(err)
	s.Equal("abc-1", got.ExternalID)
	s.Equal("Test Article", got.Title)
	s.Nil(got.ImageFileID)
}

func (s *PostgresIntegrationSuite) TestContentStore_Create_DuplicateExternalID() {
	store := NewContentStore(s.db)

	_, err := store.Create(s.ctx, s.record("abc-1"))
	s.Require().NoError(err)

	_, err = store.Create(s.ctx, s.record("abc-1"))
	s.ErrorIs(err, domain.ErrDuplicate)

	var count int
	s.NoError(s.db.GetContext(s.ctx, &count, "SELECT COUNT(*) FROM content_records WHERE external_id = $1", "abc-1"))
	s.Equal(1, count)
}

func (s *PostgresIntegrationSuite) TestContentStore_ExistingExternalIDs() {
	store := NewContentStore(s.db)
	for _, id := range []string{"a", "b", "c"} {
		_, err := store.Create(s.ctx, s.record(id))
		s.Require().NoError(err)
	}

	result, err := store.ExistingExternalIDs(s.ctx, []string{"a", "b", "zzz"})
	s.NoError(err)
	s.Equal(map[string]bool{"a": true, "b": true}, result)

	exists, err := store.ExistsByExternalID(s.ctx, "c")
	s.NoError(err)
	s.True(exists)

	exists, err = store.ExistsByExternalID(s.ctx, "zzz")
	s.NoError(err)
	s.False(exists)
}

func (s *PostgresIntegrationSuite) TestContentStore_GetByID_NotFound() {
	_, err := NewContentStore(s.db).GetByID(s.ctx, 999999)
	s.ErrorIs(err, domain.ErrNotFound)
}

func (s *PostgresIntegrationSuite) TestCategoryStore_GetOrCreate() {
	store := NewCategoryStore(s.db)

	id1, err := store.GetOrCreate(s.ctx, "tech")
	s.Require().NoError(err)

	id2, err := store.GetOrCreate(s.ctx, "tech")
	s.Require().NoError(err)
	s.Equal(id1, id2)

	id3, err := store.GetOrCreate(s.ctx, "Tech")
	s.Require().NoError(err)
	s.NotEqual(id1, id3)

	var count int
	s.NoError(s.db.GetContext(s.ctx, &count, "SELECT COUNT(*) FROM categories"))
	s.Equal(2, count)
}

func (s *PostgresIntegrationSuite) TestCategoryStore_LinkToRecord() {
	categories := NewCategoryStore(s.db)
	content := NewContentStore(s.db)

	recordID, err := content.Create(s.ctx, s.record("abc-1"))
	s.Require().NoError(err)

	tech, err := categories.GetOrCreate(s.ctx, "tech")
	s.Require().NoError(err)
	ai, err := categories.GetOrCreate(s.ctx, "ai")
	s.Require().NoError(err)

	s.NoError(categories.LinkToRecord(s.ctx, recordID, []int64{tech, ai}))

	linked, err := categories.GetByRecordID(s.ctx, recordID)
	s.NoError(err)
	s.Len(linked, 2)

	got, err := content.GetByID(s.ctx, recordID)
	s.Require().NoError(err)
	s.ElementsMatch([]int64{tech, ai}, got.CategoryIDs)
}

func (s *PostgresIntegrationSuite) TestFileStore_Save_OverwritesSameURI() {
	store := NewFileStore(s.db)

	f := &domain.File{URI: "public://news_images/cover.jpg", Filename: "cover.jpg", Size: 10, Status: domain.FileStatusPermanent}
	id1, err := store.Save(s.ctx, f)
	s.Require().NoError(err)

	f2 := &domain.File{URI: "public://news_images/cover.jpg", Filename: "cover.jpg", Size: 20, Status: domain.FileStatusPermanent}
	id2, err := store.Save(s.ctx, f2)
	s.Require().NoError(err)
	s.Equal(id1, id2)

	var size int64
	s.NoError(s.db.GetContext(s.ctx, &size, "SELECT size FROM files WHERE id = $1", id1))
	s.Equal(int64(20), size)
}

func (s *PostgresIntegrationSuite) TestTranslationStore() {
	content := NewContentStore(s.db)
	store := NewTranslationStore(s.db)

	recordID, err := content.Create(s.ctx, s.record("abc-1"))
	s.Require().NoError(err)

	exists, err := store.Exists(s.ctx, recordID, "uk")
	s.NoError(err)
	s.False(exists)

	t := &domain.TranslationRecord{
		RecordID: recordID,
		Langcode: "uk",
		Fields:   []domain.Field{{Name: "title", Type: domain.FieldTypeString, Value: "Привіт"}},
	}
	s.NoError(store.Create(s.ctx, t))
	s.Greater(t.ID, int64(0))

	exists, err = store.Exists(s.ctx, recordID, "uk")
	s.NoError(err)
	s.True(exists)

	got, err := store.Get(s.ctx, recordID, "uk")
	s.Require().NoError(err)
	s.Equal(t.Fields, got.Fields)

	s.ErrorIs(store.Create(s.ctx, t), domain.ErrDuplicate)
}

func (s *PostgresIntegrationSuite) TestTransaction_Commit() {
	tm := NewTransactionManager(s.db)
	content := NewContentStore(s.db)

	err := tm.WithTransaction(s.ctx, func(ctx context.Context) error {
		_, err := content.Create(ctx, s.record("tx-1"))
		return err
	})
	s.NoError(err)

	exists, err := content.ExistsByExternalID(s.ctx, "tx-1")
	s.NoError(err)
	s.True(exists)
}

func (s *PostgresIntegrationSuite) TestTransaction_Rollback() {
	tm := NewTransactionManager(s.db)
	content := NewContentStore(s.db)
	categories := NewCategoryStore(s.db)

	err := tm.WithTransaction(s.ctx, func(ctx context.Context) error {
		id, err := content.Create(ctx, s.record("tx-2"))
		if err != nil {
			return err
		}
		if err := categories.LinkToRecord(ctx, id, []int64{-1}); err != nil {
			return err
		}
		return errors.New("unreachable")
	})
	s.Error(err)

	exists, err := content.ExistsByExternalID(s.ctx, "tx-2")
	s.NoError(err)
	s.False(exists)
}
