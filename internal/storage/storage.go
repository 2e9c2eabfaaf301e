package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const MaxUploadSize = 10 << 20

var AllowedTypes = map[string]bool{
	"image/jpeg":         true,
	"image/png":          true,
	"image/gif":          true,
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"text/plain": true,
}

var (
	ErrTooLarge        = fmt.Errorf("file exceeds the %d MiB limit", MaxUploadSize>>20)
	ErrUnsupportedType = errors.New("file type not allowed")
)

// BlobStore keeps attachment bytes. Put returns the storage path recorded on the issue.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// ValidateUpload checks size and media type. Parameters such as charset are ignored.
func ValidateUpload(size int64, contentType string) error {
	if size > MaxUploadSize {
		return ErrTooLarge
	}
	mediaType, _, _ := strings.Cut(contentType, ";")
	if !AllowedTypes[strings.ToLower(strings.TrimSpace(mediaType))] {
		return ErrUnsupportedType
	}
	return nil
}

// ObjectKey builds a collision-free key under the project prefix, keeping the
// original extension.
func ObjectKey(projectID uint, originalName string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(originalName)))
	return path.Join("projects", fmt.Sprint(projectID), uuid.NewString()+ext)
}
