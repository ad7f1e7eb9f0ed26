package service

import (
	"context"
	"fmt"
	"time"

	"go-journal-app/internal/data"
	"go-journal-app/internal/logger"
	"go-journal-app/internal/policy"
)

// EntryRepository defines the database operations on journal entries.
type EntryRepository interface {
	CreateEntry(ctx context.Context, entry *data.JournalEntry) error
	GetEntryByID(ctx context.Context, id int64) (*data.JournalEntry, error)
	ListEntries(ctx context.Context, scope data.EntryScope) ([]*data.JournalEntry, error)
	UpdateEntry(ctx context.Context, entry *data.JournalEntry) error
	DeleteEntry(ctx context.Context, id int64) error
	CreateComment(ctx context.Context, c *data.Comment) error
	ListComments(ctx context.Context, entryID int64) ([]*data.Comment, error)
}

// FileRemover deletes stored uploads that no longer belong to anything.
type FileRemover interface {
	Remove(ctx context.Context, key string) error
}

// EntryInput carries the editable fields of a journal entry.
type EntryInput struct {
	Title     string
	Content   string
	Published bool
	// Image replaces the current image when set.
	Image *string
}

// EntryServicer defines the journal operations used by the handlers.
type EntryServicer interface {
	List(ctx context.Context, actor policy.Actor) ([]*data.JournalEntry, error)
	Get(ctx context.Context, actor policy.Actor, id int64) (*data.JournalEntry, error)
	Comments(ctx context.Context, id int64) ([]*data.Comment, error)
	Create(ctx context.Context, actor policy.Actor, in EntryInput) (*data.JournalEntry, error)
	Update(ctx context.Context, actor policy.Actor, id int64, in EntryInput) (*data.JournalEntry, error)
	TogglePublish(ctx context.Context, actor policy.Actor, id int64) (*data.JournalEntry, error)
	Delete(ctx context.Context, actor policy.Actor, id int64) error
	AddComment(ctx context.Context, actor policy.Actor, id int64, body string) (*data.Comment, error)
}

// EntryService provides business logic for the journal.
type EntryService struct {
	repo     EntryRepository
	renderer *Renderer
	files    FileRemover
	log      logger.Logger
	now      func() time.Time
}

var _ EntryServicer = (*EntryService)(nil)

// NewEntryService creates a new EntryService. files may be nil.
func NewEntryService(repo EntryRepository, renderer *Renderer, files FileRemover, log logger.Logger) *EntryService {
	return &EntryService{repo: repo, renderer: renderer, files: files, log: log, now: time.Now}
}

// List returns the entries the actor may see, newest first.
func (s *EntryService) List(ctx context.Context, actor policy.Actor) ([]*data.JournalEntry, error) {
	entries, err := s.repo.ListEntries(ctx, policy.EntryListScope(actor))
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		e.HTMLContent = s.renderer.Render(ctx, e.Content)
	}
	return entries, nil
}

// Get loads one entry, hiding it when the actor may not see it.
func (s *EntryService) Get(ctx context.Context, actor policy.Actor, id int64) (*data.JournalEntry, error) {
	entry, err := s.repo.GetEntryByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := decisionErr(policy.ViewEntry(actor, entry), "entry", id); err != nil {
		return nil, err
	}
	entry.HTMLContent = s.renderer.Render(ctx, entry.Content)
	return entry, nil
}

// Comments returns an entry's comments oldest first.
func (s *EntryService) Comments(ctx context.Context, id int64) ([]*data.Comment, error) {
	return s.repo.ListComments(ctx, id)
}

// Create stores a new entry owned by the actor.
func (s *EntryService) Create(ctx context.Context, actor policy.Actor, in EntryInput) (*data.JournalEntry, error) {
	if !policy.CanCreate(actor, policy.KindEntry) {
		return nil, denied(actor)
	}
	now := s.now().UTC()
	entry := &data.JournalEntry{
		Title:       in.Title,
		Content:     in.Content,
		Image:       in.Image,
		AuthorID:    actor.UserID,
		IsPublished: in.Published,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateEntry(ctx, entry); err != nil {
		return nil, err
	}
	s.log.Info(fmt.Sprintf("Entry %d created by user %d", entry.ID, actor.UserID))
	return entry, nil
}

// Update edits an entry the actor owns, or any entry for staff.
func (s *EntryService) Update(ctx context.Context, actor policy.Actor, id int64, in EntryInput) (*data.JournalEntry, error) {
	entry, err := s.editable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	oldImage := entry.Image
	entry.Title = in.Title
	entry.Content = in.Content
	entry.IsPublished = in.Published
	if in.Image != nil {
		entry.Image = in.Image
	}
	entry.UpdatedAt = s.now().UTC()
	if err := s.repo.UpdateEntry(ctx, entry); err != nil {
		return nil, err
	}
	removeUpload(ctx, s.files, s.log, staleImage(oldImage, in.Image))
	return entry, nil
}

// TogglePublish flips the entry between published and draft.
func (s *EntryService) TogglePublish(ctx context.Context, actor policy.Actor, id int64) (*data.JournalEntry, error) {
	entry, err := s.editable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	entry.IsPublished = !entry.IsPublished
	entry.UpdatedAt = s.now().UTC()
	if err := s.repo.UpdateEntry(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// Delete removes the entry, its comments and its image.
func (s *EntryService) Delete(ctx context.Context, actor policy.Actor, id int64) error {
	entry, err := s.editable(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteEntry(ctx, id); err != nil {
		return err
	}
	removeUpload(ctx, s.files, s.log, entry.Image)
	s.log.Info(fmt.Sprintf("Entry %d deleted by user %d", id, actor.UserID))
	return nil
}

// AddComment posts a comment on a visible entry.
func (s *EntryService) AddComment(ctx context.Context, actor policy.Actor, id int64, body string) (*data.Comment, error) {
	entry, err := s.repo.GetEntryByID(ctx, id)
	if err != nil {
		return nil, err
	}
	d := policy.ViewEntry(actor, entry)
	if err := decisionErr(d, "entry", id); err != nil {
		return nil, err
	}
	if !policy.CanComment(actor, d) {
		return nil, denied(actor)
	}
	now := s.now().UTC()
	c := &data.Comment{EntryID: id, AuthorID: actor.UserID, Content: body, CreatedAt: now, UpdatedAt: now}
	if err := s.repo.CreateComment(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// editable loads an entry for mutation. Entries the actor cannot see are
// reported as missing; visible ones it cannot change are forbidden.
func (s *EntryService) editable(ctx context.Context, actor policy.Actor, id int64) (*data.JournalEntry, error) {
	entry, err := s.repo.GetEntryByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := decisionErr(policy.ViewEntry(actor, entry), "entry", id); err != nil {
		return nil, err
	}
	if !policy.CanEditEntry(actor, entry) {
		return nil, denied(actor)
	}
	return entry, nil
}

// staleImage returns the old key when next replaces it with a different file.
func staleImage(old, next *string) *string {
	if next == nil || old == nil || *old == *next {
		return nil
	}
	return old
}

// removeUpload deletes a replaced or orphaned file. Failures are logged only:
// the row change has already been committed.
func removeUpload(ctx context.Context, files FileRemover, log logger.Logger, key *string) {
	if files == nil || key == nil || *key == "" {
		return
	}
	if err := files.Remove(ctx, *key); err != nil {
		log.Warn(fmt.Sprintf("Failed to remove file %s: %v", *key, err))
	}
}
