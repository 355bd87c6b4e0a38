package media

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"news_maker/internal/domain"
)

type fakeFiles struct {
	saved []*domain.File
	err   error
}

func (f *fakeFiles) Save(_ context.Context, file *domain.File) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.saved = append(f.saved, file)
	file.ID = int64(len(f.saved))
	return file.ID, nil
}

func newTestDownloader(t *testing.T, files FileRecorder) (*Downloader, string) {
	t.Helper()
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewDownloader(NewLocalStorage(dir), files, 2*time.Second, logger), dir
}

func TestDownload_StoresPermanentFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("jpeg-bytes"))
	}))
	defer srv.Close()

	files := &fakeFiles{}
	d, dir := newTestDownloader(t, files)

	file, err := d.Download(context.Background(), srv.URL+"/img/2024/cover.jpg?w=800")
	require.NoError(t, err)

	assert.Equal(t, int64(1), file.ID)
	assert.Equal(t, "public://news_images/cover.jpg", file.URI)
	assert.Equal(t, "cover.jpg", file.Filename)
	assert.Equal(t, "image/jpeg", file.Mime)
	assert.Equal(t, int64(10), file.Size)
	assert.Equal(t, domain.FileStatusPermanent, file.Status)

	data, err := os.ReadFile(filepath.Join(dir, ImageDir, "cover.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))
}

func TestDownload_SameBasenameOverwrites(t *testing.T) {
	body := "first"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	d, dir := newTestDownloader(t, &fakeFiles{})

	_, err := d.Download(context.Background(), srv.URL+"/a/cover.jpg")
	require.NoError(t, err)
	body = "second"
	_, err = d.Download(context.Background(), srv.URL+"/b/cover.jpg")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, ImageDir, "cover.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestDownload_Failures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	d, _ := newTestDownloader(t, &fakeFiles{})

	_, err := d.Download(context.Background(), srv.URL+"/missing.jpg")
	assert.ErrorContains(t, err, "unexpected status: 404")

	_, err = d.Download(context.Background(), srv.URL+"/")
	assert.ErrorIs(t, err, ErrNoFilename)

	_, err = d.Download(context.Background(), "http://127.0.0.1:1/unreachable.jpg")
	assert.ErrorContains(t, err, "download image")
}

func TestDownload_RecordFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("x"))
	}))
	defer srv.Close()

	d, _ := newTestDownloader(t, &fakeFiles{err: errors.New("db down")})

	_, err := d.Download(context.Background(), srv.URL+"/x.png")
	assert.ErrorContains(t, err, "save file")
}

func TestDownload_OversizedBodyIsRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("much-too-large-image"))
	}))
	defer srv.Close()

	files := &fakeFiles{}
	d, dir := newTestDownloader(t, files)
	d.client.SetResponseBodyLimit(4)

	_, err := d.Download(context.Background(), srv.URL+"/big.jpg")
	assert.ErrorContains(t, err, "download image")
	assert.Empty(t, files.saved)

	_, statErr := os.Stat(filepath.Join(dir, ImageDir, "big.jpg"))
	assert.True(t, os.IsNotExist(statErr))
}
