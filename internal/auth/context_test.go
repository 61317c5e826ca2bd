package auth

import (
	"context"
	"testing"

	"github.com/ewhitaker/rallyup/internal/model"
)

func TestAuthContextRoundTrip(t *testing.T) {
	teamID := int64(3)
	ac := AuthContext{UserID: 7, TeamID: &teamID, Role: model.RoleCoach, SessionID: 12}

	ctx := WithAuth(context.Background(), ac)
	got, ok := FromContext(ctx)
	if !ok {
		t.Fatal("expected auth context")
	}
	if got.UserID != 7 {
		t.Errorf("user id = %d, want 7", got.UserID)
	}
	if got.TeamID == nil || *got.TeamID != 3 {
		t.Errorf("team id = %v, want 3", got.TeamID)
	}
	if got.SessionID != 12 {
		t.Errorf("session id = %d, want 12", got.SessionID)
	}
}

func TestEmptyContext(t *testing.T) {
	ctx := context.Background()

	if _, ok := FromContext(ctx); ok {
		t.Error("expected no auth context")
	}
	if UserID(ctx) != 0 {
		t.Error("expected zero user id")
	}
	if TeamID(ctx) != nil {
		t.Error("expected nil team id")
	}
	if IsAdmin(ctx) {
		t.Error("expected not admin")
	}
	if HasRole(ctx, model.RoleStudent) {
		t.Error("expected no role")
	}
}

func TestHasRole(t *testing.T) {
	coach := WithAuth(context.Background(), AuthContext{UserID: 1, Role: model.RoleCoach})
	if !HasRole(coach, model.RoleCoach, model.RoleStaff) {
		t.Error("coach should match coach")
	}
	if HasRole(coach, model.RoleStaff) {
		t.Error("coach should not match staff alone")
	}

	// Admins pass every role check.
	admin := WithAuth(context.Background(), AuthContext{UserID: 2, Role: model.RoleAdmin})
	if !HasRole(admin, model.RoleStudent) {
		t.Error("admin should pass any role check")
	}
	if !IsAdmin(admin) {
		t.Error("expected admin")
	}
}
