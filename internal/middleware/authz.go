package middleware

import (
	"net/http"
	"net/url"

	"github.com/casbin/casbin/v2"
)

// Authorizer creates a new middleware for authorization.
// It checks the user's role against the Casbin route policies. Anonymous
// visitors who are refused are sent to the login page instead of a 403.
func Authorizer(e casbin.IEnforcer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetUserInfo(r.Context())

			allowed, err := e.Enforce(user.Role(), r.URL.Path, r.Method)
			if err != nil {
				http.Error(w, "Authorization error", http.StatusInternalServerError)
				return
			}

			if !allowed {
				if !user.IsAuthenticated() {
					http.Redirect(w, r, LoginURL(r), http.StatusFound)
					return
				}
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// LoginURL is the login page with a next parameter pointing back at the
// current page. For form posts the page is the referring GET page.
func LoginURL(r *http.Request) string {
	next := r.URL.RequestURI()
	if r.Method != http.MethodGet {
		next = "/"
		if ref, err := url.Parse(r.Referer()); err == nil && ref.Path != "" && ref.Host == r.Host {
			next = ref.RequestURI()
		}
	}
	return "/login/?next=" + url.QueryEscape(next)
}
