package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go-journal-app/internal/config"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Storage persists uploaded files by key.
type Storage interface {
	// Save writes content under key, or under a suffixed key if key is taken,
	// and returns the key actually used.
	Save(ctx context.Context, key string, content []byte) (string, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// NewStorage builds the backend selected by cfg.Driver.
func NewStorage(ctx context.Context, cfg config.UploadConfig) (Storage, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "local":
		return NewLocalStorage(cfg.LocalRoot, cfg.URLPrefix), nil
	case "minio":
		return NewMinIOStorage(ctx, cfg.MinIO)
	default:
		return nil, fmt.Errorf("unknown upload driver %q", cfg.Driver)
	}
}

// uniqueKey appends a short random suffix to the file name part of key.
func uniqueKey(key string) string {
	ext := path.Ext(key)
	return strings.TrimSuffix(key, ext) + "_" + uuid.New().String()[:8] + ext
}

// LocalStorage writes files below a root directory that the router serves.
type LocalStorage struct {
	root      string
	urlPrefix string
}

// NewLocalStorage creates a LocalStorage.
func NewLocalStorage(root, urlPrefix string) *LocalStorage {
	if urlPrefix == "" {
		urlPrefix = "/uploads/"
	}
	if !strings.HasSuffix(urlPrefix, "/") {
		urlPrefix += "/"
	}
	return &LocalStorage{root: root, urlPrefix: urlPrefix}
}

// Root is the directory files are written to.
func (s *LocalStorage) Root() string {
	return s.root
}

func (s *LocalStorage) Save(_ context.Context, key string, content []byte) (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		full := filepath.Join(s.root, filepath.FromSlash(key))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return "", fmt.Errorf("failed to create upload directory: %w", err)
		}
		f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			key = uniqueKey(key)
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to create upload file: %w", err)
		}
		if _, err := f.Write(content); err != nil {
			f.Close()
			return "", fmt.Errorf("failed to write upload file: %w", err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("failed to close upload file: %w", err)
		}
		return key, nil
	}
	return "", fmt.Errorf("could not find a free name for %s", key)
}

func (s *LocalStorage) Delete(_ context.Context, key string) error {
	err := os.Remove(filepath.Join(s.root, filepath.FromSlash(key)))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete upload: %w", err)
	}
	return nil
}

func (s *LocalStorage) URL(key string) string {
	return s.urlPrefix + key
}

// MinIOStorage keeps uploads in an S3 compatible bucket.
type MinIOStorage struct {
	cli       *minio.Client
	bucket    string
	publicURL string
}

// NewMinIOStorage connects to the bucket, creating it if needed.
func NewMinIOStorage(ctx context.Context, cfg config.MinIOConfig) (*MinIOStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.Bucket, err)
		}
	}

	publicURL := cfg.PublicURL
	if publicURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		publicURL = fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, cfg.Bucket)
	}
	return &MinIOStorage{cli: client, bucket: cfg.Bucket, publicURL: strings.TrimSuffix(publicURL, "/")}, nil
}

func (s *MinIOStorage) Save(ctx context.Context, key string, content []byte) (string, error) {
	if _, err := s.cli.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err == nil {
		key = uniqueKey(key)
	} else if minio.ToErrorResponse(err).Code != "NoSuchKey" {
		return "", fmt.Errorf("failed to stat object: %w", err)
	}

	_, err := s.cli.PutObject(ctx, s.bucket, key, bytes.NewReader(content), int64(len(content)),
		minio.PutObjectOptions{ContentType: contentType(key, content)})
	if err != nil {
		return "", fmt.Errorf("failed to put object: %w", err)
	}
	return key, nil
}

func (s *MinIOStorage) Delete(ctx context.Context, key string) error {
	if err := s.cli.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove object: %w", err)
	}
	return nil
}

func (s *MinIOStorage) URL(key string) string {
	return s.publicURL + "/" + key
}

func contentType(key string, content []byte) string {
	if ct := mime.TypeByExtension(path.Ext(key)); ct != "" {
		return ct
	}
	return http.DetectContentType(content)
}

// ReadAllLimited reads r, failing once more than limit bytes are seen.
func ReadAllLimited(r io.Reader, limit int64) ([]byte, error) {
	content, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(content)) > limit {
		return nil, ErrTooLarge
	}
	return content, nil
}
