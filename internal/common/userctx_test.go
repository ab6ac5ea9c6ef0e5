package common

import (
	"context"
	"testing"
)

func TestUserContext_RoundTrip(t *testing.T) {
	ctx := context.Background()

	// Absent by default
	if uc := UserContextFromContext(ctx); uc != nil {
		t.Error("Expected nil UserContext from empty context")
	}

	// Store and retrieve
	uc := &UserContext{
		UserID: "user-123",
		Email:  "user@example.com",
		Role:   "user",
	}
	ctx = WithUserContext(ctx, uc)

	got := UserContextFromContext(ctx)
	if got == nil {
		t.Fatal("Expected non-nil UserContext")
	}
	if got.UserID != "user-123" {
		t.Errorf("Expected user-123, got %s", got.UserID)
	}
	if got.Email != "user@example.com" {
		t.Errorf("Expected user@example.com, got %s", got.Email)
	}
}

func TestResolveUserID(t *testing.T) {
	ctx := context.Background()

	if id := ResolveUserID(ctx); id != "" {
		t.Errorf("Expected empty user ID from empty context, got %s", id)
	}

	ctx = WithUserContext(ctx, &UserContext{UserID: "user-456"})
	if id := ResolveUserID(ctx); id != "user-456" {
		t.Errorf("Expected user-456, got %s", id)
	}
}

func TestIsAdmin(t *testing.T) {
	ctx := context.Background()

	if IsAdmin(ctx) {
		t.Error("Empty context should not be admin")
	}
	if IsAdmin(WithUserContext(ctx, &UserContext{UserID: "u", Role: "user"})) {
		t.Error("Regular user should not be admin")
	}
	if !IsAdmin(WithUserContext(ctx, &UserContext{UserID: "a", Role: "admin"})) {
		t.Error("Admin role not detected")
	}
}
