package middleware

import (
	"net/http"

	"go-journal-app/internal/view"
)

// SettingsMiddleware checks for a "basic=true" query parameter and sets a corresponding
// flag in the request context. Templates use it to drop the progressive
// enhancement script and serve plain HTML forms.
func SettingsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		basicMode := r.URL.Query().Get("basic") == "true"
		next.ServeHTTP(w, r.WithContext(view.WithBasicMode(r.Context(), basicMode)))
	})
}
