package handler

import (
	"io/fs"
	"net/http"
	"strings"
	"time"

	"go-journal-app/internal/auth"
	"go-journal-app/internal/config"
	"go-journal-app/internal/logger"
	"go-journal-app/internal/metrics"
	appmw "go-journal-app/internal/middleware"
	"go-journal-app/internal/service"
	"go-journal-app/internal/session"
	"go-journal-app/internal/view"

	"github.com/casbin/casbin/v2"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Services bundles the business layer the router dispatches to.
type Services struct {
	Entries service.EntryServicer
	Events  service.EventServicer
	Diary   service.DiaryServicer
	Media   service.MediaServicer
	Users   service.UserServicer
}

// RouterConfig carries the infrastructure the router is assembled from.
type RouterConfig struct {
	View     *view.View
	Sessions session.Manager
	Files    service.FileStore
	Enforcer casbin.IEnforcer
	// OIDC is nil when single sign-on is disabled.
	OIDC *auth.Authenticator
	// CSRF is nil in tests.
	CSRF func(http.Handler) http.Handler

	Static fs.FS
	// UploadsDir is served under UploadsPrefix for local storage. Leave it
	// empty when uploads live in object storage.
	UploadsDir    string
	UploadsPrefix string

	Location     *time.Location
	BaseURL      string
	MaxUpload    int64
	RequireHTTPS bool
	Metrics      bool
	RateLimit    config.RateLimitConfig
	Log          logger.Logger
}

// NewRouter creates and configures a new chi router.
func NewRouter(svc Services, cfg RouterConfig) *chi.Mux {
	b := base{
		view:     cfg.View,
		sessions: cfg.Sessions,
		files:    cfg.Files,
		maxBody:  cfg.MaxUpload,
		log:      cfg.Log,
	}
	entries := NewEntryHandler(svc.Entries, b)
	events := NewEventHandler(svc.Events, cfg.Location, b)
	diary := NewDiaryHandler(svc.Diary, b)
	media := NewMediaHandler(svc.Media, b)
	authHandler := NewAuthHandler(svc.Users, cfg.OIDC, b)
	seo := NewSeoHandler(svc.Entries, svc.Events, svc.Diary, cfg.BaseURL, cfg.Log)
	h := appmw.Error(cfg.Log, cfg.View)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appmw.SecurityHeaders(cfg.RequireHTTPS))
	r.Use(metrics.HTTPMiddleware)

	// Assets and machine-readable endpoints skip sessions and authorization.
	if cfg.Static != nil {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(cfg.Static))))
	}
	if cfg.UploadsDir != "" {
		prefix := "/" + strings.Trim(cfg.UploadsPrefix, "/") + "/"
		r.Handle(prefix+"*", http.StripPrefix(prefix, http.FileServer(http.Dir(cfg.UploadsDir))))
	}
	if cfg.Metrics {
		r.Handle("/metrics", metrics.Handler())
	}
	r.Get("/robots.txt", seo.robotsHandler)
	r.Get("/sitemap.xml", seo.sitemapHandler)

	r.Group(func(r chi.Router) {
		r.Use(cfg.Sessions.LoadAndSave)
		if cfg.CSRF != nil {
			r.Use(cfg.CSRF)
		}
		r.Use(appmw.Authenticate(cfg.Sessions, svc.Users, cfg.Log))
		r.Use(appmw.SettingsMiddleware)
		r.Use(appmw.Authorizer(cfg.Enforcer))

		r.Method(http.MethodGet, "/", h(entries.homeHandler))
		r.Method(http.MethodGet, "/entries/", h(entries.listHandler))
		r.Route("/entry", func(r chi.Router) {
			r.Method(http.MethodGet, "/new/", h(entries.newHandler))
			r.Method(http.MethodPost, "/new/", h(entries.createHandler))
			r.Method(http.MethodGet, "/{id}/", h(entries.detailHandler))
			r.Method(http.MethodPost, "/{id}/", h(entries.commentHandler))
			r.Method(http.MethodPost, "/{id}/comment/", h(entries.commentHandler))
			r.Method(http.MethodGet, "/{id}/edit/", h(entries.editHandler))
			r.Method(http.MethodPost, "/{id}/edit/", h(entries.updateHandler))
			r.Method(http.MethodPost, "/{id}/toggle-publish/", h(entries.togglePublishHandler))
			r.Method(http.MethodGet, "/{id}/delete/", h(entries.confirmDeleteHandler))
			r.Method(http.MethodPost, "/{id}/delete/", h(entries.deleteHandler))
		})

		r.Route("/define-your-path", func(r chi.Router) {
			r.Method(http.MethodGet, "/", h(events.calendarHandler))
			r.Method(http.MethodGet, "/event/{id}/", h(events.detailHandler))
			r.Method(http.MethodPost, "/event/{id}/", h(events.actionHandler))
			r.Method(http.MethodGet, "/new/", h(events.newHandler))
			r.Method(http.MethodPost, "/new/", h(events.createHandler))
			r.Method(http.MethodGet, "/{id}/edit/", h(events.editHandler))
			r.Method(http.MethodPost, "/{id}/edit/", h(events.updateHandler))
			r.Method(http.MethodGet, "/{id}/delete/", h(events.confirmDeleteHandler))
			r.Method(http.MethodPost, "/{id}/delete/", h(events.deleteHandler))
		})

		r.Route("/deannas-diary", func(r chi.Router) {
			r.Method(http.MethodGet, "/", h(diary.listHandler))
			r.Method(http.MethodGet, "/new/", h(diary.newHandler))
			r.Method(http.MethodPost, "/new/", h(diary.createHandler))
			r.Method(http.MethodGet, "/{id}/", h(diary.detailHandler))
			r.Method(http.MethodPost, "/{id}/", h(diary.commentHandler))
			r.Method(http.MethodGet, "/{id}/edit/", h(diary.editHandler))
			r.Method(http.MethodPost, "/{id}/edit/", h(diary.updateHandler))
			r.Method(http.MethodGet, "/{id}/delete/", h(diary.confirmDeleteHandler))
			r.Method(http.MethodPost, "/{id}/delete/", h(diary.deleteHandler))
		})

		r.Method(http.MethodGet, "/about/", h(media.aboutHandler))
		r.Method(http.MethodGet, "/about/edit/", h(media.aboutEditHandler))
		r.Method(http.MethodPost, "/about/edit/", h(media.aboutUpdateHandler))
		r.Method(http.MethodGet, "/media/", h(media.libraryHandler))
		r.Method(http.MethodPost, "/media/", h(media.uploadHandler))
		r.Method(http.MethodPost, "/media/{id}/delete/", h(media.deleteHandler))

		r.Group(func(r chi.Router) {
			r.Use(appmw.LoginRateLimit(cfg.RateLimit))
			r.Method(http.MethodGet, "/login/", h(authHandler.loginHandler))
			r.Method(http.MethodPost, "/login/", h(authHandler.loginPostHandler))
			r.Method(http.MethodGet, "/admin-login/", h(authHandler.adminLoginHandler))
			r.Method(http.MethodPost, "/admin-login/", h(authHandler.adminLoginPostHandler))
		})
		r.Method(http.MethodGet, "/logout/", h(authHandler.logoutHandler))
		r.Method(http.MethodPost, "/logout/", h(authHandler.logoutHandler))
		r.Method(http.MethodGet, "/auth/login", h(authHandler.oidcLoginHandler))
		r.Method(http.MethodGet, "/auth/callback", h(authHandler.oidcCallbackHandler))
	})

	return r
}
