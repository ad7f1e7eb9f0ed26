package service

import (
	"errors"
	"fmt"

	"go-journal-app/internal/data"
	"go-journal-app/internal/policy"
)

var (
	// ErrNotFound covers both missing rows and rows the actor may not see.
	ErrNotFound = data.ErrNotFound
	// ErrForbidden means the actor is known but lacks the privilege.
	ErrForbidden = errors.New("forbidden")
	// ErrUnauthenticated means the action needs a signed-in user.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrInvalidCredentials is returned for any failed password login.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// decisionErr converts a visibility decision into the matching error.
func decisionErr(d policy.Decision, what string, id int64) error {
	switch d {
	case policy.Visible:
		return nil
	case policy.Forbidden:
		return fmt.Errorf("%s %d: %w", what, id, ErrForbidden)
	default:
		return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
	}
}

// denied returns the error for a failed mutation check.
func denied(a policy.Actor) error {
	if !a.Authenticated {
		return ErrUnauthenticated
	}
	return ErrForbidden
}
