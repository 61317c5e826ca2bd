package auth

import (
	"context"

	"github.com/ewhitaker/rallyup/internal/model"
)

type contextKey struct{}

// AuthContext carries the authenticated user through a request. TeamID is nil
// for users not attached to a team (admins, platform staff).
type AuthContext struct {
	UserID    int64
	TeamID    *int64
	Role      string
	SessionID int64
}

func WithAuth(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

func FromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(contextKey{}).(AuthContext)
	return ac, ok
}

func UserID(ctx context.Context) int64 {
	ac, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return ac.UserID
}

// TeamID returns the authenticated user's team, or nil.
func TeamID(ctx context.Context) *int64 {
	ac, ok := FromContext(ctx)
	if !ok {
		return nil
	}
	return ac.TeamID
}

func IsAdmin(ctx context.Context) bool {
	ac, ok := FromContext(ctx)
	if !ok {
		return false
	}
	return ac.Role == model.RoleAdmin
}

// HasRole reports whether the authenticated user holds any of the given roles.
// Admins pass every check.
func HasRole(ctx context.Context, roles ...string) bool {
	ac, ok := FromContext(ctx)
	if !ok {
		return false
	}
	if ac.Role == model.RoleAdmin {
		return true
	}
	for _, role := range roles {
		if ac.Role == role {
			return true
		}
	}
	return false
}
