package auth

import (
	"fmt"
	"go-journal-app/internal/logger"

	"github.com/casbin/casbin/v2"
)

// DefaultPolicies gate routes by role. Ownership and draft visibility are
// decided per object by the policy package once a route is allowed.
var DefaultPolicies = [][]string{
	// Anyone can read the public site and sign in.
	{RoleAnonymous, "/", "GET"},
	{RoleAnonymous, "/entries/", "GET"},
	{RoleAnonymous, "/entry/:id/", "GET"},
	{RoleAnonymous, "/define-your-path/", "GET"},
	{RoleAnonymous, "/define-your-path/event/:id/", "GET"},
	{RoleAnonymous, "/deannas-diary/", "GET"},
	{RoleAnonymous, "/deannas-diary/:id/", "GET"},
	{RoleAnonymous, "/about/", "GET"},
	{RoleAnonymous, "/login/", "GET|POST"},
	{RoleAnonymous, "/admin-login/", "GET|POST"},
	{RoleAnonymous, "/logout/", "GET|POST"},
	{RoleAnonymous, "/auth/login", "GET"},
	{RoleAnonymous, "/auth/callback", "GET"},

	// Signed-in users write their own journal, comment and register for events.
	{RoleUser, "/entry/new/", "GET|POST"},
	{RoleUser, "/entry/:id/", "POST"},
	{RoleUser, "/entry/:id/comment/", "POST"},
	{RoleUser, "/entry/:id/edit/", "GET|POST"},
	{RoleUser, "/entry/:id/toggle-publish/", "POST"},
	{RoleUser, "/entry/:id/delete/", "GET|POST"},
	{RoleUser, "/define-your-path/event/:id/", "POST"},
	{RoleUser, "/deannas-diary/:id/", "POST"},

	// Staff manage the calendar, the diary, the media library and the about page.
	{RoleStaff, "/define-your-path/new/", "GET|POST"},
	{RoleStaff, "/define-your-path/:id/edit/", "GET|POST"},
	{RoleStaff, "/define-your-path/:id/delete/", "GET|POST"},
	{RoleStaff, "/deannas-diary/new/", "GET|POST"},
	{RoleStaff, "/deannas-diary/:id/edit/", "GET|POST"},
	{RoleStaff, "/deannas-diary/:id/delete/", "GET|POST"},
	{RoleStaff, "/media/", "GET|POST"},
	{RoleStaff, "/media/:id/delete/", "POST"},
	{RoleStaff, "/about/edit/", "GET|POST"},
}

// SeedDefaultPolicies ensures that the application has a baseline set of authorization rules.
// It checks if each default policy exists before adding it, making the operation idempotent
// and safe to run on every application start.
func SeedDefaultPolicies(e casbin.IEnforcer, log logger.Logger) {
	log.Info("Seeding default authorization policies...")

	for _, p := range DefaultPolicies {
		if has, _ := e.HasPolicy(p); !has {
			if _, err := e.AddPolicy(p); err != nil {
				log.Error(err, fmt.Sprintf("Failed to add policy %v", p))
			}
		}
	}

	// staff -> user -> anonymous
	for _, link := range [][2]string{{RoleUser, RoleAnonymous}, {RoleStaff, RoleUser}} {
		if has, _ := e.HasRoleForUser(link[0], link[1]); !has {
			if _, err := e.AddRoleForUser(link[0], link[1]); err != nil {
				log.Error(err, fmt.Sprintf("Failed to add role '%s' -> '%s'", link[0], link[1]))
			}
		}
	}
	log.Info("Policy seeding complete.")
}
