package cmd

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go-journal-app/internal/auth"
	"go-journal-app/internal/cache"
	"go-journal-app/internal/config"
	"go-journal-app/internal/data"
	"go-journal-app/internal/handler"
	"go-journal-app/internal/logger"
	"go-journal-app/internal/metrics"
	"go-journal-app/internal/middleware"
	"go-journal-app/internal/service"
	"go-journal-app/internal/session"
	"go-journal-app/internal/upload"
	"go-journal-app/internal/view"
	"go-journal-app/web"

	"github.com/spf13/cobra"
)

const insecureSecret = "CHANGE_ME_IN_PRODUCTION_SECRET!!"

var (
	serverPort     string
	modelPath      string
	skipMigrations bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP server.

The server will:
- Load configuration from config.yml and JOURNAL_* environment variables
- Apply pending database migrations (unless --skip-migrations)
- Seed the default route policies
- Handle graceful shutdown on SIGINT/SIGTERM

Examples:
  journal-site serve
  journal-site serve --port 9090 --log-level debug
  journal-site serve --config /etc/journal-site/config.yml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serverPort, "port", "", "server port (default: 8080)")
	serveCmd.Flags().StringVar(&modelPath, "auth-model", "auth_model.conf", "path to the Casbin model file")
	serveCmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "do not apply migrations on start")
}

func runServer() error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	if serverPort != "" {
		cfg.Server.Port = serverPort
	}

	if cfg.Session.SecretKey == "" || cfg.Session.SecretKey == insecureSecret {
		return errors.New("session secret key not set: please set a secure JOURNAL_SESSION_SECRETKEY")
	}
	loc, err := cfg.Site.Location()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if !skipMigrations {
		log.Info("Applying database migrations...")
		if err := data.ApplyMigrations(cfg.DB.Driver, cfg.DB.DSN, cfg.DB.Migrations); err != nil {
			return err
		}
		log.Info("Migrations applied successfully.")
	}

	log.Info("Connecting to the database...")
	db, err := data.NewDB(cfg.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	metrics.Init()
	sessions := session.New(cfg.Session, cfg.DB.Driver, db.DB, cfg.Server.TLS.Enabled)

	log.Info("Initializing authentication and authorization...")
	enforcer, err := auth.NewEnforcer(cfg.DB.Driver, cfg.DB.DSN, modelPath)
	if err != nil {
		return fmt.Errorf("failed to initialize enforcer: %w", err)
	}
	auth.SeedDefaultPolicies(enforcer, log)

	var authenticator *auth.Authenticator
	if cfg.OIDC.Enabled {
		authenticator, err = auth.NewAuthenticator(ctx, &cfg.OIDC)
		if err != nil {
			return fmt.Errorf("failed to initialize authenticator: %w", err)
		}
	}

	contentCache, err := cache.New(cfg.Cache)
	if err != nil {
		return err
	}
	defer contentCache.Close()
	go purgeCache(ctx, contentCache, log)

	storage, err := upload.NewStorage(ctx, cfg.Upload)
	if err != nil {
		return err
	}
	uploader := upload.NewUploader(storage, cfg.Upload, log)

	renderer := service.NewRenderer(contentCache, log)
	eventRepo := data.NewSQLEventRepository(db)
	ledger := service.NewLedger(eventRepo, metrics.JoinCounter{}, log)
	services := handler.Services{
		Entries: service.NewEntryService(data.NewSQLEntryRepository(db), renderer, uploader, log),
		Events:  service.NewEventService(eventRepo, ledger, renderer, uploader, loc, cfg.Site.RecentPastLimit, log),
		Diary:   service.NewDiaryService(data.NewSQLDiaryRepository(db), renderer, uploader, log),
		Media:   service.NewMediaService(data.NewSQLMediaRepository(db), uploader, renderer, log),
		Users:   service.NewUserService(data.NewSQLUserRepository(db), log),
	}

	views, err := view.New(web.TemplateFS, view.Options{
		SiteTitle: cfg.Site.Title,
		Location:  loc,
		MediaURL:  uploader.URL,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize view templates: %w", err)
	}
	static, err := fs.Sub(web.StaticFS, "static")
	if err != nil {
		return err
	}

	routerCfg := handler.RouterConfig{
		View:          views,
		Sessions:      sessions,
		Files:         uploader,
		Enforcer:      enforcer,
		OIDC:          authenticator,
		CSRF:          middleware.CSRFProtection(csrfKey(cfg.Session.SecretKey), cfg.Server.TLS.Enabled),
		Static:        static,
		UploadsPrefix: cfg.Upload.URLPrefix,
		Location:      loc,
		BaseURL:       cfg.Server.BaseURL,
		MaxUpload:     uploader.MaxSize(),
		RequireHTTPS:  cfg.Server.TLS.Enabled,
		Metrics:       cfg.Metrics.Enabled,
		RateLimit:     cfg.RateLimit,
		Log:           log,
	}
	if local, ok := storage.(*upload.LocalStorage); ok {
		routerCfg.UploadsDir = local.Root()
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           handler.NewRouter(services, routerCfg),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return serve(ctx, server, cfg.Server.TLS, log)
}

// serve runs server until ctx is cancelled, then shuts it down gracefully.
func serve(ctx context.Context, server *http.Server, tls config.TLSConfig, log logger.Logger) error {
	errs := make(chan error, 1)
	go func() {
		var err error
		if tls.Enabled {
			log.Info(fmt.Sprintf("Starting HTTPS server on %s", server.Addr))
			err = server.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
		} else {
			log.Info(fmt.Sprintf("Starting HTTP server on %s", server.Addr))
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
		close(errs)
	}()

	select {
	case err := <-errs:
		return fmt.Errorf("could not start server: %w", err)
	case <-ctx.Done():
	}

	log.Warn("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info("Server exiting")
	return nil
}

// purgeCache drops expired rendered bodies once an hour.
func purgeCache(ctx context.Context, c *cache.Cache, log logger.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := c.Purge(ctx)
			if err != nil {
				log.Warn(fmt.Sprintf("Cache purge failed: %v", err))
				continue
			}
			if n > 0 {
				log.Debug(fmt.Sprintf("Purged %d expired cache entries", n))
			}
		}
	}
}

// csrfKey derives the 32-byte CSRF authentication key from the session secret.
func csrfKey(secret string) []byte {
	sum := sha256.Sum256([]byte("csrf:" + secret))
	return sum[:]
}

