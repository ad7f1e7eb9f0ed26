package middleware

import (
	"context"

	"go-journal-app/internal/auth"
	"go-journal-app/internal/policy"
)

// contextKey defines a custom type for context keys to avoid collisions.
type contextKey string

const userContextKey = contextKey("user")

// UserInfo represents the signed-in user for the current request. ID is zero
// for anonymous visitors.
type UserInfo struct {
	ID       int64
	Username string
	IsStaff  bool
}

// IsAuthenticated reports whether a user is signed in.
func (u *UserInfo) IsAuthenticated() bool {
	return u != nil && u.ID != 0
}

// Role is the casbin subject for the user.
func (u *UserInfo) Role() string {
	switch {
	case !u.IsAuthenticated():
		return auth.RoleAnonymous
	case u.IsStaff:
		return auth.RoleStaff
	default:
		return auth.RoleUser
	}
}

// Actor converts the user into the policy actor.
func (u *UserInfo) Actor() policy.Actor {
	if !u.IsAuthenticated() {
		return policy.Anonymous
	}
	return policy.User(u.ID, u.IsStaff)
}

// GetUserInfo retrieves the user information from the request context.
func GetUserInfo(ctx context.Context) *UserInfo {
	if userInfo, ok := ctx.Value(userContextKey).(*UserInfo); ok {
		return userInfo
	}
	// Return an anonymous user if no user info is found in the context.
	return &UserInfo{}
}

// SetUserInfo adds the user information to the request context.
func SetUserInfo(ctx context.Context, userInfo *UserInfo) context.Context {
	return context.WithValue(ctx, userContextKey, userInfo)
}
