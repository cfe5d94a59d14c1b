package domain

import (
	"context"
	"errors"
	"testing"
)

func TestParseRole(t *testing.T) {
	got, err := ParseRole(" Executor ")
	if err != nil || got != RoleExecutor {
		t.Fatalf("expected executor, got %q (%v)", got, err)
	}
	if _, err := ParseRole("owner"); !errors.Is(err, ErrInsufficientRole) {
		t.Fatalf("expected ErrInsufficientRole, got %v", err)
	}
}

func TestUserFromContext(t *testing.T) {
	if _, ok := UserFromContext(context.Background()); ok {
		t.Fatal("expected no user in empty context")
	}
	if _, ok := UserFromContext(ContextWithUser(context.Background(), nil)); ok {
		t.Fatal("expected nil user to be ignored")
	}
	user := &User{ID: "u1", Role: RoleViewer}
	got, ok := UserFromContext(ContextWithUser(context.Background(), user))
	if !ok || got != user {
		t.Fatalf("expected stored user, got %+v", got)
	}
}
