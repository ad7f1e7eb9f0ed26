package handler

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go-journal-app/internal/auth"
	"go-journal-app/internal/data"
	"go-journal-app/internal/metrics"
	"go-journal-app/internal/middleware"
	"go-journal-app/internal/service"
	"go-journal-app/internal/session"
)

const (
	loginFailedMessage = "Invalid email/username or password. Please try again."
	stateCookie        = "oidc_state"
)

// AuthHandler holds the dependencies for the authentication handlers.
type AuthHandler struct {
	base
	users service.UserServicer
	// auth is nil when single sign-on is disabled.
	auth *auth.Authenticator
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(users service.UserServicer, a *auth.Authenticator, b base) *AuthHandler {
	return &AuthHandler{base: b, users: users, auth: a}
}

// loginPage describes one of the two password forms.
type loginPage struct {
	form   string
	title  string
	action string
	staff  bool
}

var (
	userLogin  = loginPage{form: "login", title: "Log in", action: "/login/"}
	staffLogin = loginPage{form: "admin", title: "Staff log in", action: "/admin-login/", staff: true}
)

func (h *AuthHandler) loginHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	return h.showLogin(w, r, userLogin)
}

func (h *AuthHandler) adminLoginHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	return h.showLogin(w, r, staffLogin)
}

func (h *AuthHandler) loginPostHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	return h.submitLogin(w, r, userLogin)
}

func (h *AuthHandler) adminLoginPostHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	return h.submitLogin(w, r, staffLogin)
}

func (h *AuthHandler) showLogin(w http.ResponseWriter, r *http.Request, page loginPage) *middleware.AppError {
	if middleware.GetUserInfo(r.Context()).IsAuthenticated() && !page.staff {
		return h.redirect(w, r, safeNext(r.URL.Query().Get("next"), "/"))
	}
	return h.renderLogin(w, r, page, loginForm{Next: r.URL.Query().Get("next")}, nil)
}

func (h *AuthHandler) submitLogin(w http.ResponseWriter, r *http.Request, page loginPage) *middleware.AppError {
	if appErr := h.parseForm(w, r); appErr != nil {
		return appErr
	}
	form := parseLoginForm(r)
	errs := check(form)
	if errs.Any() {
		w.WriteHeader(http.StatusUnprocessableEntity)
		return h.renderLogin(w, r, page, form, errs)
	}

	var user *data.User
	var err error
	if page.staff {
		user, err = h.users.AuthenticateStaff(r.Context(), form.Login, form.Password)
	} else {
		user, err = h.users.Authenticate(r.Context(), form.Login, form.Password)
	}
	if errors.Is(err, service.ErrInvalidCredentials) {
		metrics.LoginAttempts.WithLabelValues(page.form, "failure").Inc()
		h.log.Debug(fmt.Sprintf("Failed %s attempt for %q", page.form, form.Login))
		w.WriteHeader(http.StatusUnauthorized)
		return h.renderLogin(w, r, page, form, formErrors{"": loginFailedMessage})
	}
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to sign in", Code: http.StatusInternalServerError}
	}

	if err := session.Login(r.Context(), h.sessions, user.ID); err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to start session", Code: http.StatusInternalServerError}
	}
	metrics.LoginAttempts.WithLabelValues(page.form, "success").Inc()
	h.log.Info(fmt.Sprintf("User %d signed in", user.ID))
	h.flash(r, session.LevelSuccess, fmt.Sprintf("Welcome back, %s!", user.Username))
	return h.redirect(w, r, safeNext(form.Next, "/"))
}

func (h *AuthHandler) renderLogin(w http.ResponseWriter, r *http.Request, page loginPage, form loginForm, errs formErrors) *middleware.AppError {
	return h.render(w, r, "login.html", map[string]interface{}{
		"Title":       page.title,
		"Action":      page.action,
		"Form":        form,
		"Errors":      errs,
		"OIDCEnabled": h.auth != nil,
	})
}

// logoutHandler ends the session on GET or POST.
func (h *AuthHandler) logoutHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if err := session.Logout(r.Context(), h.sessions); err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to end session", Code: http.StatusInternalServerError}
	}
	h.flash(r, session.LevelInfo, "You have been logged out.")
	http.Redirect(w, r, "/", http.StatusFound)
	return nil
}

// oidcLoginHandler redirects the user to the OIDC provider. A random state is
// kept in a short-lived cookie and checked on callback.
func (h *AuthHandler) oidcLoginHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if h.auth == nil {
		return &middleware.AppError{Error: errors.New("single sign-on disabled"), Message: "Page not found", Code: http.StatusNotFound}
	}
	state, err := randString(16)
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Internal Server Error", Code: http.StatusInternalServerError}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/auth/",
		MaxAge:   int(10 * time.Minute / time.Second),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.auth.AuthCodeURL(state), http.StatusFound)
	return nil
}

// oidcCallbackHandler signs in the local account whose e-mail the provider verified.
func (h *AuthHandler) oidcCallbackHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if h.auth == nil {
		return &middleware.AppError{Error: errors.New("single sign-on disabled"), Message: "Page not found", Code: http.StatusNotFound}
	}
	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || r.URL.Query().Get("state") != cookie.Value {
		return &middleware.AppError{Error: errors.New("state mismatch"), Message: "state did not match", Code: http.StatusBadRequest}
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Path: "/auth/", MaxAge: -1})

	email, err := h.auth.VerifiedEmail(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		metrics.LoginAttempts.WithLabelValues("oidc", "failure").Inc()
		if errors.Is(err, auth.ErrEmailNotVerified) {
			h.flash(r, session.LevelError, "Your e-mail address has not been verified by the provider.")
			return h.redirect(w, r, "/login/")
		}
		return &middleware.AppError{Error: err, Message: "Failed to verify sign-in", Code: http.StatusBadGateway}
	}

	user, err := h.users.ByVerifiedEmail(r.Context(), email)
	if errors.Is(err, service.ErrNotFound) || errors.Is(err, service.ErrForbidden) {
		metrics.LoginAttempts.WithLabelValues("oidc", "failure").Inc()
		h.flash(r, session.LevelError, "No active account uses that e-mail address.")
		return h.redirect(w, r, "/login/")
	}
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to sign in", Code: http.StatusInternalServerError}
	}

	if err := session.Login(r.Context(), h.sessions, user.ID); err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to start session", Code: http.StatusInternalServerError}
	}
	metrics.LoginAttempts.WithLabelValues("oidc", "success").Inc()
	h.flash(r, session.LevelSuccess, fmt.Sprintf("Welcome back, %s!", user.Username))
	return h.redirect(w, r, "/")
}

func randString(nByte int) (string, error) {
	b := make([]byte, nByte)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
