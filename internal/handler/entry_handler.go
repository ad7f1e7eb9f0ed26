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

// EntryHandler serves the journal: listing, detail, comments and the
// author's create/edit/delete screens.
type EntryHandler struct {
	base
	entries service.EntryServicer
}

// NewEntryHandler creates a new EntryHandler with the given dependencies.
func NewEntryHandler(entries service.EntryServicer, b base) *EntryHandler {
	return &EntryHandler{base: b, entries: entries}
}

// homeHandler shows the landing page to guests and the journal to users.
func (h *EntryHandler) homeHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if !middleware.GetUserInfo(r.Context()).IsAuthenticated() {
		return h.render(w, r, "home.html", nil)
	}
	return h.listHandler(w, r)
}

func (h *EntryHandler) listHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	entries, err := h.entries.List(r.Context(), actorOf(r))
	if err != nil {
		return h.fail(w, r, err, "Entries")
	}
	return h.render(w, r, "entries.html", map[string]interface{}{"Entries": entries})
}

func (h *EntryHandler) detailHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := idParam(r)
	if appErr != nil {
		return appErr
	}
	return h.showEntry(w, r, id, commentForm{}, nil)
}

func (h *EntryHandler) showEntry(w http.ResponseWriter, r *http.Request, id int64, form commentForm, errs formErrors) *middleware.AppError {
	a := actorOf(r)
	entry, err := h.entries.Get(r.Context(), a, id)
	if err != nil {
		return h.fail(w, r, err, "Entry")
	}
	comments, err := h.entries.Comments(r.Context(), id)
	if err != nil {
		return h.fail(w, r, err, "Entry")
	}
	return h.render(w, r, "entry_detail.html", map[string]interface{}{
		"Entry":         entry,
		"Comments":      comments,
		"CommentAction": entryURL(id) + "comment/",
		"CanEdit":       policy.CanEditEntry(a, entry),
		"Form":          form,
		"Errors":        errs,
	})
}

// commentHandler posts a comment and returns to the entry.
func (h *EntryHandler) commentHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
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
		return h.showEntry(w, r, id, form, errs)
	}
	if _, err := h.entries.AddComment(r.Context(), actorOf(r), id, form.Content); err != nil {
		return h.fail(w, r, err, "Entry")
	}
	h.flash(r, session.LevelSuccess, "Your comment has been added.")
	return h.redirect(w, r, entryURL(id))
}

func (h *EntryHandler) newHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if !policy.CanCreate(actorOf(r), policy.KindEntry) {
		return h.deny(w, r)
	}
	return h.renderForm(w, r, "New Entry", nil, entryForm{Published: true}, nil)
}

func (h *EntryHandler) createHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if !policy.CanCreate(actorOf(r), policy.KindEntry) {
		return h.deny(w, r)
	}
	if appErr := h.parseForm(w, r); appErr != nil {
		return appErr
	}
	a := actorOf(r)
	form := parseEntryForm(r)
	errs := check(form)
	var image *string
	if !errs.Any() {
		image = h.storeImage(r, "image", &data.JournalEntry{AuthorID: a.UserID}, errs)
	}
	if errs.Any() {
		w.WriteHeader(http.StatusUnprocessableEntity)
		return h.renderForm(w, r, "New Entry", nil, form, errs)
	}

	entry, err := h.entries.Create(r.Context(), a, service.EntryInput{
		Title: form.Title, Content: form.Content, Published: form.Published, Image: image,
	})
	if err != nil {
		h.discard(r, image)
		return h.fail(w, r, err, "Entry")
	}
	h.flash(r, session.LevelSuccess, "Entry created.")
	return h.redirect(w, r, entryURL(entry.ID))
}

func (h *EntryHandler) editHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	entry, appErr := h.editable(w, r)
	if entry == nil {
		return appErr
	}
	return h.renderForm(w, r, "Edit Entry", entry, entryFormFrom(entry), nil)
}

func (h *EntryHandler) updateHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	entry, appErr := h.editable(w, r)
	if entry == nil {
		return appErr
	}
	if appErr := h.parseForm(w, r); appErr != nil {
		return appErr
	}
	form := parseEntryForm(r)
	errs := check(form)
	var image *string
	if !errs.Any() {
		image = h.storeImage(r, "image", entry, errs)
	}
	if errs.Any() {
		w.WriteHeader(http.StatusUnprocessableEntity)
		return h.renderForm(w, r, "Edit Entry", entry, form, errs)
	}

	if _, err := h.entries.Update(r.Context(), actorOf(r), entry.ID, service.EntryInput{
		Title: form.Title, Content: form.Content, Published: form.Published, Image: image,
	}); err != nil {
		h.discard(r, image)
		return h.fail(w, r, err, "Entry")
	}
	h.flash(r, session.LevelSuccess, "Entry updated.")
	return h.redirect(w, r, entryURL(entry.ID))
}

func (h *EntryHandler) togglePublishHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := idParam(r)
	if appErr != nil {
		return appErr
	}
	entry, err := h.entries.TogglePublish(r.Context(), actorOf(r), id)
	if err != nil {
		return h.fail(w, r, err, "Entry")
	}
	if entry.IsPublished {
		h.flash(r, session.LevelSuccess, fmt.Sprintf("%q is now published.", entry.Title))
	} else {
		h.flash(r, session.LevelInfo, fmt.Sprintf("%q is now a draft.", entry.Title))
	}
	return h.redirect(w, r, entryURL(id))
}

func (h *EntryHandler) confirmDeleteHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	entry, appErr := h.editable(w, r)
	if entry == nil {
		return appErr
	}
	return h.render(w, r, "confirm_delete.html", map[string]interface{}{
		"Title":     entry.Title,
		"Kind":      "entry",
		"CancelURL": entryURL(entry.ID),
	})
}

func (h *EntryHandler) deleteHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := idParam(r)
	if appErr != nil {
		return appErr
	}
	if err := h.entries.Delete(r.Context(), actorOf(r), id); err != nil {
		return h.fail(w, r, err, "Entry")
	}
	h.flash(r, session.LevelSuccess, "Entry deleted.")
	return h.redirect(w, r, "/")
}

// editable loads the entry from the URL if the actor may change it. A nil
// entry with a nil error means a redirect was already written.
func (h *EntryHandler) editable(w http.ResponseWriter, r *http.Request) (*data.JournalEntry, *middleware.AppError) {
	id, appErr := idParam(r)
	if appErr != nil {
		return nil, appErr
	}
	a := actorOf(r)
	entry, err := h.entries.Get(r.Context(), a, id)
	if err != nil {
		return nil, h.fail(w, r, err, "Entry")
	}
	if !policy.CanEditEntry(a, entry) {
		return nil, h.deny(w, r)
	}
	return entry, nil
}

func (h *EntryHandler) renderForm(w http.ResponseWriter, r *http.Request, title string, entry *data.JournalEntry, form entryForm, errs formErrors) *middleware.AppError {
	action := "/entry/new/"
	if entry != nil {
		action = fmt.Sprintf("/entry/%d/edit/", entry.ID)
	}
	return h.render(w, r, "entry_form.html", map[string]interface{}{
		"Title":  title,
		"Action": action,
		"Entry":  entry,
		"Form":   form,
		"Errors": errs,
	})
}

func entryURL(id int64) string {
	return fmt.Sprintf("/entry/%d/", id)
}
