package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go-journal-app/internal/data"
	"go-journal-app/internal/logger"
	"go-journal-app/internal/session"
)

// UserLoader resolves the session's user id. Implemented by service.UserService.
type UserLoader interface {
	ByID(ctx context.Context, id int64) (*data.User, error)
}

// Authenticate loads the signed-in user from the session into the request
// context. Sessions pointing at deleted or deactivated accounts are cleared.
func Authenticate(sm session.Manager, users UserLoader, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info := &UserInfo{}
			if id := sm.GetInt64(r.Context(), session.UserIDKey); id != 0 {
				user, err := users.ByID(r.Context(), id)
				switch {
				case err == nil && user.IsActive:
					info = &UserInfo{ID: user.ID, Username: user.Username, IsStaff: user.IsStaff}
				case err == nil || errors.Is(err, data.ErrNotFound):
					sm.Remove(r.Context(), session.UserIDKey)
				default:
					log.Error(err, fmt.Sprintf("Failed to load session user %d", id))
				}
			}
			next.ServeHTTP(w, r.WithContext(SetUserInfo(r.Context(), info)))
		})
	}
}
