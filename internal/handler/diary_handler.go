package handler

import (
	"fmt"
	"net/http"

	"go-journal-app/internal/data"
	"go-journal-app/internal/middleware"
	"go-journal-app/internal/policy"
	"go-journal-app/internal/service"
	"go-journal-app/internal/session"
)

// DiaryHandler serves DeAnna's diary.
type DiaryHandler struct {
	base
	diary service.DiaryServicer
}

// NewDiaryHandler creates a new DiaryHandler with the given dependencies.
func NewDiaryHandler(diary service.DiaryServicer, b base) *DiaryHandler {
	return &DiaryHandler{base: b, diary: diary}
}

func (h *DiaryHandler) listHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	pages, err := h.diary.List(r.Context(), actorOf(r))
	if err != nil {
		return h.fail(w, r, err, "Diary")
	}
	return h.render(w, r, "diary_list.html", map[string]interface{}{"Pages": pages})
}

func (h *DiaryHandler) detailHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := idParam(r)
	if appErr != nil {
		return appErr
	}
	return h.showPage(w, r, id, commentForm{}, nil)
}

func (h *DiaryHandler) showPage(w http.ResponseWriter, r *http.Request, id int64, form commentForm, errs formErrors) *middleware.AppError {
	page, err := h.diary.Get(r.Context(), actorOf(r), id)
	if err != nil {
		return h.fail(w, r, err, "Diary page")
	}
	comments, err := h.diary.Comments(r.Context(), id)
	if err != nil {
		return h.fail(w, r, err, "Diary page")
	}
	return h.render(w, r, "diary_detail.html", map[string]interface{}{
		"Page":          page,
		"Comments":      comments,
		"CommentAction": diaryURL(id),
		"Form":          form,
		"Errors":        errs,
	})
}

func (h *DiaryHandler) commentHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := idParam(r)
	if appErr != nil {
		return appErr
	}
	if appErr := h.parseForm(w, r); appErr != nil {
		return appErr
	}
	form := parseCommentForm(r)
	if errs := check(form); errs.Any() {
		w.WriteHeader(http.StatusUnprocessableEntity)
		return h.showPage(w, r, id, form, errs)
	}
	if _, err := h.diary.AddComment(r.Context(), actorOf(r), id, form.Content); err != nil {
		return h.fail(w, r, err, "Diary page")
	}
	h.flash(r, session.LevelSuccess, "Your comment has been added.")
	return h.redirect(w, r, diaryURL(id))
}

func (h *DiaryHandler) newHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if !policy.CanCreate(actorOf(r), policy.KindDiaryPage) {
		return h.deny(w, r)
	}
	return h.renderForm(w, r, "New Diary Page", nil, diaryForm{Status: string(data.DiaryDraft)}, nil)
}

func (h *DiaryHandler) createHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if !policy.CanCreate(actorOf(r), policy.KindDiaryPage) {
		return h.deny(w, r)
	}
	if appErr := h.parseForm(w, r); appErr != nil {
		return appErr
	}
	a := actorOf(r)
	form := parseDiaryForm(r)
	errs := check(form)
	var image *string
	if !errs.Any() {
		image = h.storeImage(r, "image", &data.DiaryPage{AuthorID: a.UserID}, errs)
	}
	if errs.Any() {
		w.WriteHeader(http.StatusUnprocessableEntity)
		return h.renderForm(w, r, "New Diary Page", nil, form, errs)
	}

	page, err := h.diary.Create(r.Context(), a, form.input(image))
	if err != nil {
		h.discard(r, image)
		return h.fail(w, r, err, "Diary page")
	}
	h.flash(r, session.LevelSuccess, "Diary page created.")
	return h.redirect(w, r, diaryURL(page.ID))
}

func (h *DiaryHandler) editHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	page, appErr := h.load(w, r)
	if page == nil {
		return appErr
	}
	return h.renderForm(w, r, "Edit Diary Page", page, diaryFormFrom(page), nil)
}

func (h *DiaryHandler) updateHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	page, appErr := h.load(w, r)
	if page == nil {
		return appErr
	}
	if appErr := h.parseForm(w, r); appErr != nil {
		return appErr
	}
	form := parseDiaryForm(r)
	errs := check(form)
	var image *string
	if !errs.Any() {
		image = h.storeImage(r, "image", page, errs)
	}
	if errs.Any() {
		w.WriteHeader(http.StatusUnprocessableEntity)
		return h.renderForm(w, r, "Edit Diary Page", page, form, errs)
	}

	if _, err := h.diary.Update(r.Context(), actorOf(r), page.ID, form.input(image)); err != nil {
		h.discard(r, image)
		return h.fail(w, r, err, "Diary page")
	}
	h.flash(r, session.LevelSuccess, "Diary page updated.")
	return h.redirect(w, r, diaryURL(page.ID))
}

func (h *DiaryHandler) confirmDeleteHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	page, appErr := h.load(w, r)
	if page == nil {
		return appErr
	}
	return h.render(w, r, "confirm_delete.html", map[string]interface{}{
		"Title":     page.Title,
		"Kind":      "diary page",
		"CancelURL": diaryURL(page.ID),
	})
}

func (h *DiaryHandler) deleteHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := idParam(r)
	if appErr != nil {
		return appErr
	}
	if err := h.diary.Delete(r.Context(), actorOf(r), id); err != nil {
		return h.fail(w, r, err, "Diary page")
	}
	h.flash(r, session.LevelSuccess, "Diary page deleted.")
	return h.redirect(w, r, "/deannas-diary/")
}

func (h *DiaryHandler) load(w http.ResponseWriter, r *http.Request) (*data.DiaryPage, *middleware.AppError) {
	if !policy.CanEdit(actorOf(r), policy.KindDiaryPage) {
		return nil, h.deny(w, r)
	}
	id, appErr := idParam(r)
	if appErr != nil {
		return nil, appErr
	}
	page, err := h.diary.Get(r.Context(), actorOf(r), id)
	if err != nil {
		return nil, h.fail(w, r, err, "Diary page")
	}
	return page, nil
}

func (h *DiaryHandler) renderForm(w http.ResponseWriter, r *http.Request, title string, page *data.DiaryPage, form diaryForm, errs formErrors) *middleware.AppError {
	action := "/deannas-diary/new/"
	if page != nil {
		action = fmt.Sprintf("/deannas-diary/%d/edit/", page.ID)
	}
	return h.render(w, r, "diary_form.html", map[string]interface{}{
		"Title":  title,
		"Action": action,
		"Page":   page,
		"Form":   form,
		"Errors": errs,
	})
}

func (f diaryForm) input(image *string) service.DiaryInput {
	return service.DiaryInput{
		Title:   f.Title,
		Content: f.Content,
		Status:  data.DiaryStatus(f.Status),
		Image:   image,
	}
}

func diaryURL(id int64) string {
	return fmt.Sprintf("/deannas-diary/%d/", id)
}
