// Package storage keeps uploaded files on local disk and serves them under a public URL.
package storage

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// AvatarsFolder is the bucket folder for profile pictures.
const AvatarsFolder = "avatars"

var (
	// ErrTooLarge is returned when an upload exceeds the bucket limit.
	ErrTooLarge = errors.New("file exceeds the upload limit")
	// ErrUnsupportedType is returned for files that are not images.
	ErrUnsupportedType = errors.New("only png, jpg, gif and webp images are accepted")
)

var imageExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true}

// Bucket stores objects below a root directory.
type Bucket struct {
	root      string
	publicURL string
	maxBytes  int64
}

// NewBucket prepares root and returns a Bucket whose objects are reachable below publicURL.
func NewBucket(root, publicURL string, maxBytes int64) (*Bucket, error) {
	if err := os.MkdirAll(filepath.Join(root, AvatarsFolder), 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Bucket{root: root, publicURL: strings.TrimRight(publicURL, "/"), maxBytes: maxBytes}, nil
}

// AvatarName builds the object name for a user's new avatar: <user-id>-<random>.<ext>.
func AvatarName(userID, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !imageExts[ext] {
		return "", ErrUnsupportedType
	}
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("%s-%s%s", userID, random, ext), nil
}

// PutAvatar writes r as a new avatar object for userID and returns its public URL.
func (b *Bucket) PutAvatar(userID, filename string, r io.Reader) (string, error) {
	name, err := AvatarName(userID, filename)
	if err != nil {
		return "", err
	}
	dst := filepath.Join(b.root, AvatarsFolder, name)
	f, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", err
	}
	n, copyErr := io.Copy(f, io.LimitReader(r, b.maxBytes+1))
	closeErr := f.Close()
	if copyErr == nil && n > b.maxBytes {
		copyErr = ErrTooLarge
	}
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		_ = os.Remove(dst)
		return "", copyErr
	}
	return b.URL(path.Join(AvatarsFolder, name)), nil
}

// URL returns the public address of an object key.
func (b *Bucket) URL(key string) string {
	return b.publicURL + "/" + strings.TrimLeft(key, "/")
}

// MaxBytes is the per-object upload limit.
func (b *Bucket) MaxBytes() int64 {
	return b.maxBytes
}

// Handler serves bucket objects read-only. Directory listings are refused.
func (b *Bucket) Handler() http.Handler {
	files := http.FileServer(http.Dir(b.root))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	})
}
