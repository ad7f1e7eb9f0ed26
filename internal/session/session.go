package session

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"go-journal-app/internal/config"

	"github.com/alexedwards/scs/mysqlstore"
	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
)

// UserIDKey holds the signed-in user's id.
const UserIDKey = "user_id"

// Manager is an interface that abstracts the session management implementation.
// This allows for easier testing and dependency injection.
type Manager interface {
	LoadAndSave(next http.Handler) http.Handler
	Put(ctx context.Context, key string, val interface{})
	GetString(ctx context.Context, key string) string
	GetInt64(ctx context.Context, key string) int64
	PopString(ctx context.Context, key string) string
	RenewToken(ctx context.Context) error
	Destroy(ctx context.Context) error
	Remove(ctx context.Context, key string)
}

var _ Manager = (*scs.SessionManager)(nil)

// New creates a session manager persisting sessions in the application
// database. The sessions table is created by the migrations.
func New(cfg config.SessionConfig, driver string, db *sql.DB, secure bool) *scs.SessionManager {
	sm := scs.New()
	if driver == "sqlite3" {
		sm.Store = sqlite3store.New(db)
	} else {
		sm.Store = mysqlstore.New(db)
	}
	sm.Lifetime = time.Duration(cfg.Lifetime) * time.Hour
	if sm.Lifetime <= 0 {
		sm.Lifetime = 24 * time.Hour
	}
	sm.Cookie.Name = "journal_session"
	sm.Cookie.Persist = true
	sm.Cookie.HttpOnly = true
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Secure = secure
	return sm
}

// Login stores the user id under a fresh token so a pre-login session id
// cannot be reused.
func Login(ctx context.Context, m Manager, userID int64) error {
	if err := m.RenewToken(ctx); err != nil {
		return err
	}
	m.Put(ctx, UserIDKey, userID)
	return nil
}

// Logout drops the user id and renews the token. Flash messages survive.
func Logout(ctx context.Context, m Manager) error {
	m.Remove(ctx, UserIDKey)
	return m.RenewToken(ctx)
}
