package upload

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go-journal-app/internal/config"
	"go-journal-app/internal/logger"
	"go-journal-app/internal/metrics"
)

// ErrTooLarge is returned when an upload exceeds the configured size.
var ErrTooLarge = errors.New("upload too large")

// Uploader normalises and stores incoming files.
type Uploader struct {
	storage Storage
	limits  ImageLimits
	maxSize int64
	log     logger.Logger
}

// NewUploader creates an Uploader on top of storage.
func NewUploader(storage Storage, cfg config.UploadConfig, log logger.Logger) *Uploader {
	limits := ImageLimits{MaxWidth: cfg.MaxWidth, MaxHeight: cfg.MaxHeight, JPEGQuality: cfg.JPEGQuality}
	if limits.MaxWidth <= 0 {
		limits.MaxWidth = DefaultImageLimits.MaxWidth
	}
	if limits.MaxHeight <= 0 {
		limits.MaxHeight = DefaultImageLimits.MaxHeight
	}
	maxSize := cfg.MaxSizeMB << 20
	if maxSize <= 0 {
		maxSize = 20 << 20
	}
	return &Uploader{storage: storage, limits: limits, maxSize: maxSize, log: log}
}

// MaxSize is the largest accepted upload in bytes.
func (u *Uploader) MaxSize() int64 {
	return u.maxSize
}

// Store saves r for owner and returns the storage key.
func (u *Uploader) Store(ctx context.Context, owner HasOwner, filename string, r io.Reader) (string, error) {
	content, name, err := u.prepare(filename, r)
	if err != nil {
		return "", err
	}
	return u.save(ctx, Path(owner, name), content)
}

// StoreAbout saves the about page image.
func (u *Uploader) StoreAbout(ctx context.Context, filename string, r io.Reader) (string, error) {
	content, name, err := u.prepare(filename, r)
	if err != nil {
		return "", err
	}
	return u.save(ctx, AboutPath(name), content)
}

// Remove deletes a stored file. Missing files are not an error.
func (u *Uploader) Remove(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	return u.storage.Delete(ctx, key)
}

// URL resolves a storage key to the address browsers fetch it from.
func (u *Uploader) URL(key string) string {
	if key == "" {
		return ""
	}
	return u.storage.URL(key)
}

func (u *Uploader) prepare(filename string, r io.Reader) ([]byte, string, error) {
	content, err := ReadAllLimited(r, u.maxSize)
	if err != nil {
		return nil, "", err
	}
	content, name, resized, err := Downscale(content, CleanName(filename), u.limits)
	if err != nil {
		return nil, "", err
	}
	if resized {
		u.log.Debug(fmt.Sprintf("Downscaled %s to fit %dx%d", filename, u.limits.MaxWidth, u.limits.MaxHeight))
	}
	return content, name, nil
}

func (u *Uploader) save(ctx context.Context, key string, content []byte) (string, error) {
	stored, err := u.storage.Save(ctx, key, content)
	if err != nil {
		return "", err
	}
	metrics.UploadedBytes.Observe(float64(len(content)))
	u.log.Info(fmt.Sprintf("Stored upload %s (%d bytes)", stored, len(content)))
	return stored, nil
}
