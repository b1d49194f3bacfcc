package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/resume-analyzer/internal/config"
)

func TestLocalStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	key := "resumes/2025/01/02/abc.pdf"
	require.NoError(t, s.Put(ctx, key, []byte("%PDF-1.4"), "application/pdf"))

	got, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4"), got)

	require.NoError(t, s.Delete(ctx, key))
	_, err = s.Get(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, s.Delete(ctx, key), "deleting a missing object is not an error")
}

func TestLocalStore_RejectsEscapingKeys(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	for _, key := range []string{"../secret", "/etc/passwd", ".", ""} {
		assert.Error(t, s.Put(context.Background(), key, []byte("x"), ""), key)
	}
}

func TestNew_DefaultsToLocal(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "up")
	s, err := New(context.Background(), config.StorageConfig{LocalDir: dir})
	require.NoError(t, err)
	_, ok := s.(*LocalStore)
	assert.True(t, ok)
	_, err = os.Stat(dir)
	assert.NoError(t, err)
}

func TestNewKey(t *testing.T) {
	now := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)
	key := NewKey("My Resume.PDF", now)
	assert.True(t, strings.HasPrefix(key, "resumes/2025/03/04/"), key)
	assert.True(t, strings.HasSuffix(key, ".pdf"), key)
	assert.NotEqual(t, key, NewKey("My Resume.PDF", now))
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/pdf", ContentType("a.PDF"))
	assert.Contains(t, ContentType("a.docx"), "wordprocessingml")
	assert.Equal(t, "application/octet-stream", ContentType("a.exe"))
}

func TestDownload(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, "resumes/x.txt", []byte("hello"), "text/plain"))

	p, cleanup, err := Download(ctx, s, "resumes/x.txt", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, ".txt", filepath.Ext(p))
	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	cleanup()
	_, err = os.Stat(p)
	assert.True(t, os.IsNotExist(err))

	_, _, err = Download(ctx, s, "resumes/missing.txt", "")
	assert.ErrorIs(t, err, ErrNotFound)
}
