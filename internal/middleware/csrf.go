package middleware

import (
	"net/http"

	"github.com/gorilla/csrf"
)

// CSRFProtection creates CSRF middleware for every form post. The token is
// embedded in forms by the handlers as {{ .CSRFField }}.
//
// When the site is served over plain HTTP, requests are marked as such so the
// origin check does not demand an https Referer.
func CSRFProtection(authKey []byte, secure bool) func(http.Handler) http.Handler {
	protect := csrf.Protect(authKey,
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.HttpOnly(true),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.ErrorHandler(http.HandlerFunc(csrfErrorHandler)),
	)
	return func(next http.Handler) http.Handler {
		protected := protect(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !secure {
				r = csrf.PlaintextHTTPRequest(r)
			}
			protected.ServeHTTP(w, r)
		})
	}
}

func csrfErrorHandler(w http.ResponseWriter, r *http.Request) {
	msg := "Forbidden - CSRF token invalid"
	if reason := csrf.FailureReason(r); reason != nil {
		msg += ": " + reason.Error()
	}
	http.Error(w, msg, http.StatusForbidden)
}
