package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"go-journal-app/internal/data"
	"go-journal-app/internal/logger"
	"go-journal-app/internal/policy"
	"go-journal-app/internal/upload"
)

// MediaRepository defines the database operations on the media library and about page.
type MediaRepository interface {
	CreateMedia(ctx context.Context, item *data.MediaItem) error
	GetMediaByID(ctx context.Context, id int64) (*data.MediaItem, error)
	ListMedia(ctx context.Context) ([]*data.MediaItem, error)
	DeleteMedia(ctx context.Context, id int64) error
	GetAbout(ctx context.Context) (*data.AboutPage, error)
	SaveAbout(ctx context.Context, page *data.AboutPage) error
}

// FileStore stores uploads. Implemented by upload.Uploader.
type FileStore interface {
	FileRemover
	Store(ctx context.Context, owner upload.HasOwner, filename string, r io.Reader) (string, error)
	StoreAbout(ctx context.Context, filename string, r io.Reader) (string, error)
	URL(key string) string
}

// MediaServicer defines the media library and about page operations.
type MediaServicer interface {
	List(ctx context.Context, actor policy.Actor) ([]*data.MediaItem, error)
	Upload(ctx context.Context, actor policy.Actor, title, filename string, r io.Reader) (*data.MediaItem, error)
	Delete(ctx context.Context, actor policy.Actor, id int64) error
	About(ctx context.Context) (*data.AboutPage, error)
	UpdateAbout(ctx context.Context, actor policy.Actor, content string, image *string) (*data.AboutPage, error)
}

// MediaService provides business logic for the media library and about page.
type MediaService struct {
	repo     MediaRepository
	files    FileStore
	renderer *Renderer
	log      logger.Logger
	now      func() time.Time
}

var _ MediaServicer = (*MediaService)(nil)

// NewMediaService creates a new MediaService.
func NewMediaService(repo MediaRepository, files FileStore, renderer *Renderer, log logger.Logger) *MediaService {
	return &MediaService{repo: repo, files: files, renderer: renderer, log: log, now: time.Now}
}

func (s *MediaService) List(ctx context.Context, actor policy.Actor) ([]*data.MediaItem, error) {
	if err := decisionErr(policy.ViewMediaLibrary(actor), "media library", 0); err != nil {
		return nil, err
	}
	return s.repo.ListMedia(ctx)
}

// Upload stores the file under the uploader's folder and records it.
func (s *MediaService) Upload(ctx context.Context, actor policy.Actor, title, filename string, r io.Reader) (*data.MediaItem, error) {
	if !policy.CanCreate(actor, policy.KindMedia) {
		return nil, denied(actor)
	}
	item := &data.MediaItem{Title: title, UploadedByID: actor.UserID, CreatedAt: s.now().UTC()}
	key, err := s.files.Store(ctx, item, filename, r)
	if err != nil {
		return nil, err
	}
	item.File = key
	if err := s.repo.CreateMedia(ctx, item); err != nil {
		removeUpload(ctx, s.files, s.log, &key)
		return nil, err
	}
	s.log.Info(fmt.Sprintf("Media item %d uploaded by user %d", item.ID, actor.UserID))
	return item, nil
}

func (s *MediaService) Delete(ctx context.Context, actor policy.Actor, id int64) error {
	if !policy.CanEdit(actor, policy.KindMedia) {
		return denied(actor)
	}
	item, err := s.repo.GetMediaByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteMedia(ctx, id); err != nil {
		return err
	}
	removeUpload(ctx, s.files, s.log, &item.File)
	return nil
}

// About returns the public about page.
func (s *MediaService) About(ctx context.Context) (*data.AboutPage, error) {
	page, err := s.repo.GetAbout(ctx)
	if err != nil {
		return nil, err
	}
	page.HTMLContent = s.renderer.Render(ctx, page.Content)
	return page, nil
}

// UpdateAbout replaces the about page content. A nil image keeps the current one.
func (s *MediaService) UpdateAbout(ctx context.Context, actor policy.Actor, content string, image *string) (*data.AboutPage, error) {
	if err := decisionErr(policy.EditAbout(actor), "about page", 1); err != nil {
		return nil, err
	}
	page, err := s.repo.GetAbout(ctx)
	if err != nil {
		return nil, err
	}
	oldImage := page.Image
	page.Content = content
	if image != nil {
		page.Image = image
	}
	page.UpdatedAt = s.now().UTC()
	if err := s.repo.SaveAbout(ctx, page); err != nil {
		return nil, err
	}
	removeUpload(ctx, s.files, s.log, staleImage(oldImage, image))
	return page, nil
}
