package service

import (
	"context"
	"fmt"
	"time"

	"go-journal-app/internal/data"
	"go-journal-app/internal/logger"
	"go-journal-app/internal/policy"
)

// DiaryRepository defines the database operations on diary pages.
type DiaryRepository interface {
	CreatePage(ctx context.Context, page *data.DiaryPage) error
	GetPageByID(ctx context.Context, id int64) (*data.DiaryPage, error)
	ListPages(ctx context.Context, includeDrafts bool) ([]*data.DiaryPage, error)
	UpdatePage(ctx context.Context, page *data.DiaryPage) error
	DeletePage(ctx context.Context, id int64) error
	CreateComment(ctx context.Context, c *data.DiaryComment) error
	ListComments(ctx context.Context, pageID int64) ([]*data.DiaryComment, error)
}

// DiaryInput carries the editable fields of a diary page.
type DiaryInput struct {
	Title   string
	Content string
	Status  data.DiaryStatus
	Image   *string
}

// DiaryServicer defines the diary operations used by the handlers.
type DiaryServicer interface {
	List(ctx context.Context, actor policy.Actor) ([]*data.DiaryPage, error)
	Get(ctx context.Context, actor policy.Actor, id int64) (*data.DiaryPage, error)
	Comments(ctx context.Context, id int64) ([]*data.DiaryComment, error)
	Create(ctx context.Context, actor policy.Actor, in DiaryInput) (*data.DiaryPage, error)
	Update(ctx context.Context, actor policy.Actor, id int64, in DiaryInput) (*data.DiaryPage, error)
	Delete(ctx context.Context, actor policy.Actor, id int64) error
	AddComment(ctx context.Context, actor policy.Actor, id int64, body string) (*data.DiaryComment, error)
}

// DiaryService provides business logic for the diary.
type DiaryService struct {
	repo     DiaryRepository
	renderer *Renderer
	files    FileRemover
	log      logger.Logger
	now      func() time.Time
}

var _ DiaryServicer = (*DiaryService)(nil)

// NewDiaryService creates a new DiaryService.
func NewDiaryService(repo DiaryRepository, renderer *Renderer, files FileRemover, log logger.Logger) *DiaryService {
	return &DiaryService{repo: repo, renderer: renderer, files: files, log: log, now: time.Now}
}

func (s *DiaryService) List(ctx context.Context, actor policy.Actor) ([]*data.DiaryPage, error) {
	pages, err := s.repo.ListPages(ctx, policy.IncludeDiaryDrafts(actor))
	if err != nil {
		return nil, err
	}
	for _, p := range pages {
		p.HTMLContent = s.renderer.Render(ctx, p.Content)
	}
	return pages, nil
}

// Get loads a page. Drafts are forbidden to non-staff rather than hidden.
func (s *DiaryService) Get(ctx context.Context, actor policy.Actor, id int64) (*data.DiaryPage, error) {
	page, err := s.repo.GetPageByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := decisionErr(policy.ViewDiaryPage(actor, page), "diary page", id); err != nil {
		return nil, err
	}
	page.HTMLContent = s.renderer.Render(ctx, page.Content)
	return page, nil
}

func (s *DiaryService) Comments(ctx context.Context, id int64) ([]*data.DiaryComment, error) {
	return s.repo.ListComments(ctx, id)
}

func (s *DiaryService) Create(ctx context.Context, actor policy.Actor, in DiaryInput) (*data.DiaryPage, error) {
	if !policy.CanCreate(actor, policy.KindDiaryPage) {
		return nil, denied(actor)
	}
	now := s.now().UTC()
	page := &data.DiaryPage{
		Title:     in.Title,
		Content:   in.Content,
		Image:     in.Image,
		Status:    statusOrDraft(in.Status),
		AuthorID:  actor.UserID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreatePage(ctx, page); err != nil {
		return nil, err
	}
	s.log.Info(fmt.Sprintf("Diary page %d created by user %d", page.ID, actor.UserID))
	return page, nil
}

func (s *DiaryService) Update(ctx context.Context, actor policy.Actor, id int64, in DiaryInput) (*data.DiaryPage, error) {
	if !policy.CanEdit(actor, policy.KindDiaryPage) {
		return nil, denied(actor)
	}
	page, err := s.repo.GetPageByID(ctx, id)
	if err != nil {
		return nil, err
	}
	oldImage := page.Image
	page.Title = in.Title
	page.Content = in.Content
	page.Status = statusOrDraft(in.Status)
	if in.Image != nil {
		page.Image = in.Image
	}
	page.UpdatedAt = s.now().UTC()
	if err := s.repo.UpdatePage(ctx, page); err != nil {
		return nil, err
	}
	removeUpload(ctx, s.files, s.log, staleImage(oldImage, in.Image))
	return page, nil
}

func (s *DiaryService) Delete(ctx context.Context, actor policy.Actor, id int64) error {
	if !policy.CanEdit(actor, policy.KindDiaryPage) {
		return denied(actor)
	}
	page, err := s.repo.GetPageByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeletePage(ctx, id); err != nil {
		return err
	}
	removeUpload(ctx, s.files, s.log, page.Image)
	return nil
}

// AddComment is only possible on a page the actor can see.
func (s *DiaryService) AddComment(ctx context.Context, actor policy.Actor, id int64, body string) (*data.DiaryComment, error) {
	page, err := s.repo.GetPageByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := decisionErr(policy.ViewDiaryPage(actor, page), "diary page", id); err != nil {
		return nil, err
	}
	if !policy.CanCommentDiary(actor, page) {
		return nil, denied(actor)
	}
	c := &data.DiaryComment{PageID: id, AuthorID: actor.UserID, Content: body, CreatedAt: s.now().UTC()}
	if err := s.repo.CreateComment(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func statusOrDraft(st data.DiaryStatus) data.DiaryStatus {
	if st == data.DiaryPublic {
		return st
	}
	return data.DiaryDraft
}
