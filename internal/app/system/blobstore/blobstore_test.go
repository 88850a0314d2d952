package blobstore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/fundhub/internal/app/system/apperr"
	"github.com/dalemusser/waffle/pantry/storage"
)

func TestValidateImage(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		size        int64
		wantErr     bool
	}{
		{"png", "image/png", 1024, false},
		{"jpeg upper", "IMAGE/JPEG", 1024, false},
		{"exactly max", "image/webp", MaxImageSize, false},
		{"too big", "image/png", MaxImageSize + 1, true},
		{"empty", "image/png", 0, true},
		{"pdf", "application/pdf", 1024, true},
		{"missing type", "", 1024, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateImage(tt.contentType, tt.size)
			if tt.wantErr && !apperr.IsValidation(err) {
				t.Errorf("err = %v, want ValidationError", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Photo.JPG", "photo.jpg"},
		{"my cat (1).png", "my_cat__1_.png"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\ana\pic.png`, "pic.png"},
		{"foto niño.png", "foto_ni__o.png"},
		{"...", "upload"},
		{"", "upload"},
	}
	for _, tt := range tests {
		if got := SanitizeFilename(tt.in); got != tt.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestImageKey(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	if got := ImageKey("Cover Photo.PNG", now); got != "campaigns/1700000000123_cover_photo.png" {
		t.Errorf("ImageKey = %q", got)
	}
}

func TestPutImage(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewLocal(storage.LocalConfig{BasePath: dir, BaseURL: "/files"})
	if err != nil {
		t.Fatalf("NewLocal failed: %v", err)
	}
	now := time.UnixMilli(1700000000123)

	up, err := PutImage(context.Background(), store, "Cover.PNG", strings.NewReader("png-bytes"), 9, "image/png", now)
	if err != nil {
		t.Fatalf("PutImage failed: %v", err)
	}
	if up.Key != "campaigns/1700000000123_cover.png" {
		t.Errorf("Key = %q", up.Key)
	}
	if up.URL != store.URL(up.Key) || !strings.HasSuffix(up.URL, up.Key) {
		t.Errorf("URL = %q", up.URL)
	}
	if up.Size != 9 || up.ContentType != "image/png" {
		t.Errorf("upload = %+v", up)
	}

	full, err := store.GetFullPath(up.Key)
	if err != nil {
		t.Fatalf("GetFullPath failed: %v", err)
	}
	data, err := os.ReadFile(full)
	if err != nil || string(data) != "png-bytes" {
		t.Errorf("stored %q, %v", data, err)
	}
	if !strings.HasPrefix(filepath.Clean(full), filepath.Clean(dir)) {
		t.Errorf("stored outside %s: %s", dir, full)
	}
}

func TestPutImage_RejectsBeforeStoring(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewLocal(storage.LocalConfig{BasePath: dir, BaseURL: "/files"})
	if err != nil {
		t.Fatalf("NewLocal failed: %v", err)
	}

	tests := []struct {
		name        string
		contentType string
		size        int64
	}{
		{"not an image", "application/pdf", 4},
		{"empty", "image/png", 0},
		{"too big", "image/png", MaxImageSize + 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := PutImage(context.Background(), store, "a.png", strings.NewReader("x"), tt.size, tt.contentType, time.Now())
			if !apperr.IsValidation(err) {
				t.Errorf("err = %v, want ValidationError", err)
			}
		})
	}

	entries, _ := os.ReadDir(filepath.Join(dir, "campaigns"))
	if len(entries) != 0 {
		t.Errorf("rejected uploads left %d files", len(entries))
	}
}
