package storage

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPutAvatarStoresUnderUserPrefix(t *testing.T) {
	root := t.TempDir()
	bucket, err := NewBucket(root, "http://localhost:4000/storage/", 16)
	if err != nil {
		t.Fatalf("new bucket: %v", err)
	}
	url, err := bucket.PutAvatar("user-1", "me.PNG", bytes.NewReader([]byte("tiny")))
	if err != nil {
		t.Fatalf("put avatar: %v", err)
	}
	if !strings.HasPrefix(url, "http://localhost:4000/storage/avatars/user-1-") || !strings.HasSuffix(url, ".png") {
		t.Fatalf("unexpected url %q", url)
	}
	name := url[strings.LastIndex(url, "/")+1:]
	data, err := os.ReadFile(filepath.Join(root, AvatarsFolder, name))
	if err != nil || string(data) != "tiny" {
		t.Fatalf("expected stored bytes, got %q %v", data, err)
	}
}

func TestPutAvatarRejectsOversizedAndForeignFiles(t *testing.T) {
	root := t.TempDir()
	bucket, err := NewBucket(root, "http://x", 4)
	if err != nil {
		t.Fatalf("new bucket: %v", err)
	}
	if _, err := bucket.PutAvatar("u", "a.png", bytes.NewReader([]byte("too big"))); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	entries, _ := os.ReadDir(filepath.Join(root, AvatarsFolder))
	if len(entries) != 0 {
		t.Fatalf("expected oversized upload to be removed, found %d files", len(entries))
	}
	if _, err := bucket.PutAvatar("u", "a.exe", bytes.NewReader([]byte("x"))); !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
}

func TestHandlerRefusesListings(t *testing.T) {
	bucket, err := NewBucket(t.TempDir(), "http://x", 4)
	if err != nil {
		t.Fatalf("new bucket: %v", err)
	}
	rec := httptest.NewRecorder()
	bucket.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/avatars/", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for listing, got %d", rec.Code)
	}
}
