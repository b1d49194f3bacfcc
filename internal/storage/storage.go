// Package storage keeps uploaded resume files in S3-compatible object storage
// or, when no bucket is configured, in a local directory.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/resume-analyzer/internal/config"
)

// ErrNotFound is returned when a key does not exist.
var ErrNotFound = errors.New("object not found")

// Store reads and writes upload blobs by key.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// New returns an S3 store when cfg.Bucket is set and a local store otherwise.
func New(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	if strings.TrimSpace(cfg.Bucket) != "" {
		return NewS3Store(ctx, cfg)
	}
	dir := cfg.LocalDir
	if dir == "" {
		dir = "uploads"
	}
	return NewLocalStore(dir)
}

// NewKey builds a unique object key for an uploaded file. The original
// extension is kept so extraction can pick a format.
func NewKey(filename string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return path.Join("resumes", now.UTC().Format("2006/01/02"), uuid.NewString()+ext)
}

// ContentType guesses a MIME type for the supported upload formats.
func ContentType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return "application/pdf"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".txt":
		return "text/plain; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}

// Download copies an object into a temporary file under dir ("" for the
// system default) and returns its path. The caller removes the file with
// the returned cleanup function.
func Download(ctx context.Context, s Store, key, dir string) (string, func(), error) {
	data, err := s.Get(ctx, key)
	if err != nil {
		return "", nil, err
	}
	f, err := os.CreateTemp(dir, "upload-*"+path.Ext(key))
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	name := f.Name()
	cleanup := func() { _ = os.Remove(name) }
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		cleanup()
		return "", nil, fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to close temp file: %w", err)
	}
	return name, cleanup, nil
}
