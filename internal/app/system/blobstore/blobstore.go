// internal/app/system/blobstore/blobstore.go
package blobstore

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/dalemusser/fundhub/internal/app/system/apperr"
	"github.com/dalemusser/waffle/pantry/storage"
)

// MaxImageSize is the largest campaign image accepted.
const MaxImageSize = 10 << 20

// ImagePrefix is the key prefix for campaign images.
const ImagePrefix = "campaigns/"

// Upload describes a stored campaign image.
type Upload struct {
	Key         string
	URL         string
	Size        int64
	ContentType string
}

// PutImage validates and stores a campaign image in store under a fresh
// ImageKey and returns where it landed.
func PutImage(ctx context.Context, store storage.Store, filename string, r io.Reader, size int64, contentType string, now time.Time) (Upload, error) {
	if err := ValidateImage(contentType, size); err != nil {
		return Upload{}, err
	}

	key := ImageKey(filename, now)
	if err := store.Put(ctx, key, r, &storage.PutOptions{ContentType: contentType}); err != nil {
		return Upload{}, fmt.Errorf("store image %s: %w", key, err)
	}

	return Upload{
		Key:         key,
		URL:         store.URL(key),
		Size:        size,
		ContentType: contentType,
	}, nil
}

// ValidateImage checks the declared content type and size of an upload.
// The file content itself is never inspected.
func ValidateImage(contentType string, size int64) error {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if !strings.HasPrefix(ct, "image/") {
		return apperr.Validation("file", "Only image files can be uploaded.")
	}
	if size <= 0 {
		return apperr.Validation("file", "The file is empty.")
	}
	if size > MaxImageSize {
		return apperr.Validation("file", "Images must be 10 MB or smaller.")
	}
	return nil
}

// ImageKey builds the storage key for a campaign image:
// campaigns/<unix-ms>_<sanitized-lowercase-name>.
func ImageKey(filename string, now time.Time) string {
	return fmt.Sprintf("%s%d_%s", ImagePrefix, now.UnixMilli(), SanitizeFilename(filename))
}

// SanitizeFilename lowercases the base name and replaces anything outside
// [a-z0-9._-] with an underscore.
func SanitizeFilename(filename string) string {
	filename = strings.ToLower(filepath.Base(strings.ReplaceAll(filename, "\\", "/")))

	result := make([]byte, 0, len(filename))
	for i := 0; i < len(filename); i++ {
		c := filename[i]
		if isAllowedFilenameChar(c) {
			result = append(result, c)
		} else {
			result = append(result, '_')
		}
	}

	out := strings.Trim(string(result), "._")
	if out == "" {
		return "upload"
	}
	if len(out) > 100 {
		out = out[len(out)-100:]
	}
	return out
}

func isAllowedFilenameChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '.' || c == '-' || c == '_'
}
