package avatars

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	gcs "cloud.google.com/go/storage"
	"firebase.google.com/go/v4/storage"
	"github.com/google/uuid"
)

const (
	MaxBytes   = 5 << 20
	objectRoot = "avatars"
)

var (
	ErrStorageDisabled = errors.New("storage is not configured")
	ErrUnsupportedType = errors.New("unsupported image type")
	ErrTooLarge        = errors.New("image too large")

	allowedTypeExtensions = map[string]string{
		"image/png":  ".png",
		"image/jpeg": ".jpg",
		"image/gif":  ".gif",
		"image/webp": ".webp",
	}
)

// Uploader stores profile photos in the default Firebase bucket.
type Uploader struct {
	bucket *gcs.BucketHandle
}

func NewUploader(client *storage.Client) (*Uploader, error) {
	if client == nil {
		return nil, ErrStorageDisabled
	}
	bucket, err := client.DefaultBucket()
	if err != nil {
		return nil, fmt.Errorf("default bucket: %w", err)
	}
	return &Uploader{bucket: bucket}, nil
}

// Upload writes the image and returns its public download URL.
func (u *Uploader) Upload(ctx context.Context, uid, contentType string, r io.Reader) (string, error) {
	if u == nil || u.bucket == nil {
		return "", ErrStorageDisabled
	}
	ext, ok := allowedTypeExtensions[strings.ToLower(contentType)]
	if !ok {
		return "", ErrUnsupportedType
	}

	name := ObjectName(uid, uuid.New().String(), ext)
	token := uuid.New().String()

	// Cancelling the writer's context aborts the upload without committing.
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := u.bucket.Object(name).NewWriter(wctx)
	w.ContentType = contentType
	w.Metadata = map[string]string{"firebaseStorageDownloadTokens": token}

	n, err := io.Copy(w, io.LimitReader(r, MaxBytes+1))
	if err != nil {
		cancel()
		_ = w.Close()
		return "", fmt.Errorf("write avatar: %w", err)
	}
	if n > MaxBytes {
		cancel()
		_ = w.Close()
		return "", ErrTooLarge
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("commit avatar: %w", err)
	}

	return DownloadURL(u.bucket.BucketName(), name, token), nil
}

func ObjectName(uid, id, ext string) string {
	return fmt.Sprintf("%s/%s/%s%s", objectRoot, uid, id, ext)
}

// DownloadURL builds the token-protected URL the web SDK's getDownloadURL returns.
func DownloadURL(bucket, object, token string) string {
	return fmt.Sprintf("https://firebasestorage.googleapis.com/v0/b/%s/o/%s?alt=media&token=%s",
		bucket, url.PathEscape(object), url.QueryEscape(token))
}
