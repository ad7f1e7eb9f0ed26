package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go-journal-app/internal/data"
	"go-journal-app/internal/logger"
	"go-journal-app/internal/middleware"
	"go-journal-app/internal/policy"
	"go-journal-app/internal/service"
	"go-journal-app/internal/session"
	"go-journal-app/internal/upload"
	"go-journal-app/internal/view"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/csrf"
)

// base holds what every section handler needs to render pages.
type base struct {
	view     *view.View
	sessions session.Manager
	files    service.FileStore
	maxBody  int64
	log      logger.Logger
}

// render adds the signed-in user, queued flashes and the CSRF field to data
// and executes the page template.
func (b *base) render(w http.ResponseWriter, r *http.Request, name string, data map[string]interface{}) *middleware.AppError {
	if data == nil {
		data = make(map[string]interface{})
	}
	data["UserInfo"] = middleware.GetUserInfo(r.Context())
	data["Flashes"] = session.PopFlashes(r.Context(), b.sessions)
	data["CSRFField"] = csrf.TemplateField(r)
	data["CurrentPath"] = r.URL.Path
	if err := b.view.Render(w, r, name, data); err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to render page", Code: http.StatusInternalServerError}
	}
	return nil
}

func (b *base) flash(r *http.Request, level, message string) {
	session.AddFlash(r.Context(), b.sessions, level, message)
}

// redirect sends a 302, or an HX-Redirect header for htmx requests.
func (b *base) redirect(w http.ResponseWriter, r *http.Request, to string) *middleware.AppError {
	if r.Header.Get("HX-Request") == "true" && !view.IsBasicMode(r.Context()) {
		w.Header().Set("HX-Redirect", to)
		return nil
	}
	http.Redirect(w, r, to, http.StatusFound)
	return nil
}

// fail maps a service error onto the response. Hidden and missing objects
// both become 404.
func (b *base) fail(w http.ResponseWriter, r *http.Request, err error, what string) *middleware.AppError {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return &middleware.AppError{Error: err, Message: what + " not found", Code: http.StatusNotFound}
	case errors.Is(err, service.ErrForbidden):
		return &middleware.AppError{Error: err, Message: "You do not have permission to do that.", Code: http.StatusForbidden}
	case errors.Is(err, service.ErrUnauthenticated):
		http.Redirect(w, r, middleware.LoginURL(r), http.StatusFound)
		return nil
	case errors.Is(err, upload.ErrTooLarge):
		return &middleware.AppError{Error: err, Message: "The uploaded file is too large.", Code: http.StatusRequestEntityTooLarge}
	default:
		return &middleware.AppError{Error: err, Message: fmt.Sprintf("Failed to load %s", strings.ToLower(what)), Code: http.StatusInternalServerError}
	}
}

// deny ends a request the actor may not make: anonymous visitors are sent
// to the login page, everyone else gets a 403.
func (b *base) deny(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if !actorOf(r).Authenticated {
		http.Redirect(w, r, middleware.LoginURL(r), http.StatusFound)
		return nil
	}
	return &middleware.AppError{Error: service.ErrForbidden, Message: "You do not have permission to do that.", Code: http.StatusForbidden}
}

// parseForm reads url-encoded and multipart bodies up to the upload limit.
func (b *base) parseForm(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	r.Body = http.MaxBytesReader(w, r.Body, b.maxBody+1<<20)
	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		err = r.ParseMultipartForm(8 << 20)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return &middleware.AppError{Error: err, Message: "The uploaded file is too large.", Code: http.StatusRequestEntityTooLarge}
		}
		return &middleware.AppError{Error: err, Message: "Malformed form submission", Code: http.StatusBadRequest}
	}
	return nil
}

// storeImage saves an optional image upload for owner. It returns nil when
// the field was left empty.
func (b *base) storeImage(r *http.Request, field string, owner upload.HasOwner, errs formErrors) *string {
	if r.MultipartForm == nil {
		return nil
	}
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil
	}
	if err != nil {
		errs[field] = "The submitted file could not be read."
		return nil
	}
	defer file.Close()
	if data.MediaKindOf(header.Filename) != data.MediaImage {
		errs[field] = "Upload a valid image. The file you uploaded was either not an image or a corrupted image."
		return nil
	}
	key, err := b.files.Store(r.Context(), owner, header.Filename, file)
	if err != nil {
		if errors.Is(err, upload.ErrTooLarge) {
			errs[field] = "The uploaded file is too large."
		} else {
			b.log.Error(err, "Failed to store upload")
			errs[field] = "The file could not be saved."
		}
		return nil
	}
	return &key
}

// discard removes an upload whose owning change did not go through.
func (b *base) discard(r *http.Request, key *string) {
	if key == nil {
		return
	}
	if err := b.files.Remove(r.Context(), *key); err != nil {
		b.log.Warn(fmt.Sprintf("Failed to remove orphaned upload %s: %v", *key, err))
	}
}

func idParam(r *http.Request) (int64, *middleware.AppError) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, &middleware.AppError{Error: fmt.Errorf("bad id %q", chi.URLParam(r, "id")), Message: "Page not found", Code: http.StatusNotFound}
	}
	return id, nil
}

func actorOf(r *http.Request) policy.Actor {
	return middleware.GetUserInfo(r.Context()).Actor()
}

// safeNext only follows local redirects.
func safeNext(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return fallback
	}
	if u, err := url.Parse(next); err != nil || u.Host != "" {
		return fallback
	}
	return next
}
