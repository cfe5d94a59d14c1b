package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Authentication errors.
var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInsufficientRole = errors.New("insufficient role for this operation")
)

// Role is the access level carried in an operator's token. Route groups in
// the HTTP router decide which roles reach which endpoints.
type Role string

const (
	RoleAdmin    Role = "admin"    // deletes entries, reconciles, changes settings
	RoleOperator Role = "operator" // records payments, purchases and refunds
	RoleExecutor Role = "executor" // drives receipts, reads own totals
	RoleViewer   Role = "viewer"   // read-only
)

// IsValid reports whether r is one of the known roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleOperator, RoleExecutor, RoleViewer:
		return true
	}
	return false
}

// ParseRole normalizes s and rejects unknown roles.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", fmt.Errorf("%w: role %q", ErrInsufficientRole, s)
	}
	return r, nil
}

// User is an authenticated person at the register. Executors are matched to
// ledger entries by Name.
type User struct {
	ID     string
	Email  string
	Name   string
	Role   Role
	Active bool
}

type userContextKey struct{}

// ContextWithUser attaches the authenticated user to ctx.
func ContextWithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext extracts the authenticated user from ctx.
func UserFromContext(ctx context.Context) (*User, bool) {
	user, ok := ctx.Value(userContextKey{}).(*User)
	return user, ok && user != nil
}
