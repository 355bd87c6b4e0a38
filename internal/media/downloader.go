package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/go-resty/resty/v2"

	"news_maker/internal/domain"
)

var ErrNoFilename = errors.New("cannot derive filename from url")

const maxImageBytes = 10 << 20

// FileRecorder records stored files as managed, permanent files.
type FileRecorder interface {
	Save(ctx context.Context, file *domain.File) (int64, error)
}

// Downloader fetches cover images and stores them as permanent files.
type Downloader struct {
	client  *resty.Client
	storage Storage
	files   FileRecorder
	logger  *slog.Logger
}

func NewDownloader(storage Storage, files FileRecorder, timeout time.Duration, logger *slog.Logger) *Downloader {
	return &Downloader{
		client:  resty.New().SetTimeout(timeout).SetResponseBodyLimit(maxImageBytes),
		storage: storage,
		files:   files,
		logger:  logger.With("component", "media"),
	}
}

// Download fetches rawURL, stores it as news_images/<basename> and records
// the file. The same basename from different URLs overwrites.
func (d *Downloader) Download(ctx context.Context, rawURL string) (*domain.File, error) {
	name, err := filenameFromURL(rawURL)
	if err != nil {
		return nil, err
	}

	resp, err := d.client.R().SetContext(ctx).Get(rawURL)
	if err != nil {
		return nil, fmt.Errorf("download image: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("download image: unexpected status: %d", resp.StatusCode())
	}

	data := resp.Body()
	mime := resp.Header().Get("Content-Type")

	uri, err := d.storage.Put(ctx, name, data, mime)
	if err != nil {
		return nil, fmt.Errorf("store image: %w", err)
	}

	file := &domain.File{
		URI:      uri,
		Filename: name,
		Mime:     mime,
		Size:     int64(len(data)),
		Status:   domain.FileStatusPermanent,
	}
	id, err := d.files.Save(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("save file: %w", err)
	}
	file.ID = id

	d.logger.Debug("image stored", "uri", uri, "size", file.Size)

	return file, nil
}

func filenameFromURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse image url: %w", err)
	}
	name := path.Base(u.Path)
	if name == "" || name == "." || name == ".." || name == "/" {
		return "", ErrNoFilename
	}
	return name, nil
}
