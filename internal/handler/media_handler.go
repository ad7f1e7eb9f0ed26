package handler

import (
	"errors"
	"net/http"
	"strings"

	"go-journal-app/internal/middleware"
	"go-journal-app/internal/policy"
	"go-journal-app/internal/service"
	"go-journal-app/internal/session"
	"go-journal-app/internal/upload"
)

// MediaHandler serves the about page and the staff media library.
type MediaHandler struct {
	base
	media service.MediaServicer
}

// NewMediaHandler creates a new MediaHandler with the given dependencies.
func NewMediaHandler(media service.MediaServicer, b base) *MediaHandler {
	return &MediaHandler{base: b, media: media}
}

func (h *MediaHandler) aboutHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	page, err := h.media.About(r.Context())
	if err != nil {
		return h.fail(w, r, err, "About page")
	}
	return h.render(w, r, "about.html", map[string]interface{}{
		"Page":    page,
		"CanEdit": policy.EditAbout(actorOf(r)) == policy.Visible,
	})
}

func (h *MediaHandler) aboutEditHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	page, err := h.media.About(r.Context())
	if err != nil {
		return h.fail(w, r, err, "About page")
	}
	return h.render(w, r, "about_form.html", map[string]interface{}{
		"Page": page,
		"Form": aboutForm{Content: page.Content},
	})
}

func (h *MediaHandler) aboutUpdateHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if appErr := h.parseForm(w, r); appErr != nil {
		return appErr
	}
	form := aboutForm{Content: r.FormValue("content")}
	errs := check(form)
	var image *string
	if !errs.Any() {
		image = h.storeAboutImage(r, errs)
	}
	if errs.Any() {
		page, err := h.media.About(r.Context())
		if err != nil {
			return h.fail(w, r, err, "About page")
		}
		w.WriteHeader(http.StatusUnprocessableEntity)
		return h.render(w, r, "about_form.html", map[string]interface{}{
			"Page":   page,
			"Form":   form,
			"Errors": errs,
		})
	}

	if _, err := h.media.UpdateAbout(r.Context(), actorOf(r), form.Content, image); err != nil {
		h.discard(r, image)
		return h.fail(w, r, err, "About page")
	}
	h.flash(r, session.LevelSuccess, "About page updated.")
	return h.redirect(w, r, "/about/")
}

// storeAboutImage saves the optional about image under the fixed about folder.
func (h *MediaHandler) storeAboutImage(r *http.Request, errs formErrors) *string {
	if r.MultipartForm == nil {
		return nil
	}
	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return nil
	}
	if err != nil {
		errs["image"] = "The submitted file could not be read."
		return nil
	}
	defer file.Close()
	key, err := h.files.StoreAbout(r.Context(), header.Filename, file)
	if err != nil {
		if errors.Is(err, upload.ErrTooLarge) {
			errs["image"] = "The uploaded file is too large."
		} else {
			h.log.Error(err, "Failed to store about image")
			errs["image"] = "The file could not be saved."
		}
		return nil
	}
	return &key
}

func (h *MediaHandler) libraryHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	return h.showLibrary(w, r, mediaForm{}, nil)
}

func (h *MediaHandler) showLibrary(w http.ResponseWriter, r *http.Request, form mediaForm, errs formErrors) *middleware.AppError {
	items, err := h.media.List(r.Context(), actorOf(r))
	if err != nil {
		return h.fail(w, r, err, "Media library")
	}
	return h.render(w, r, "media.html", map[string]interface{}{
		"Items":  items,
		"Form":   form,
		"Errors": errs,
	})
}

func (h *MediaHandler) uploadHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if appErr := h.parseForm(w, r); appErr != nil {
		return appErr
	}
	form := mediaForm{Title: strings.TrimSpace(r.FormValue("title"))}
	errs := check(form)
	file, header, err := r.FormFile("file")
	if err != nil {
		errs["file"] = "This field is required."
	}
	if errs.Any() {
		if file != nil {
			file.Close()
		}
		w.WriteHeader(http.StatusUnprocessableEntity)
		return h.showLibrary(w, r, form, errs)
	}
	defer file.Close()

	item, err := h.media.Upload(r.Context(), actorOf(r), form.Title, header.Filename, file)
	if errors.Is(err, upload.ErrTooLarge) {
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		return h.showLibrary(w, r, form, formErrors{"file": "The uploaded file is too large."})
	}
	if err != nil {
		return h.fail(w, r, err, "Media library")
	}
	h.flash(r, session.LevelSuccess, "Uploaded "+item.DisplayName()+".")
	return h.redirect(w, r, "/media/")
}

func (h *MediaHandler) deleteHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := idParam(r)
	if appErr != nil {
		return appErr
	}
	if err := h.media.Delete(r.Context(), actorOf(r), id); err != nil {
		return h.fail(w, r, err, "Media item")
	}
	h.flash(r, session.LevelSuccess, "Media item deleted.")
	return h.redirect(w, r, "/media/")
}
