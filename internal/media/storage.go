package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// ImageDir is the subdirectory that downloaded images are written to.
const ImageDir = "news_images"

// Storage persists binaries and returns their URI.
type Storage interface {
	Put(ctx context.Context, name string, data []byte, contentType string) (string, error)
}

// LocalStorage writes files under the public files directory.
type LocalStorage struct {
	publicDir string
}

func NewLocalStorage(publicDir string) *LocalStorage {
	return &LocalStorage{publicDir: publicDir}
}

// Put writes data to <publicDir>/news_images/<name>, replacing any existing
// file of the same name.
func (l *LocalStorage) Put(ctx context.Context, name string, data []byte, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dir := filepath.Join(l.publicDir, ImageDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("prepare directory: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}

	return "public://" + ImageDir + "/" + name, nil
}
