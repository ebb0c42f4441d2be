package domain

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

// Identity is an authenticable principal: a user of the visitor-management
// platform with a role and, for every role except super-admin, a fixed tenant.
type Identity struct {
	ID           string
	Email        string
	Role         Role
	TenantID     *string // nil only for RoleSuperAdmin
	PasswordHash string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Role is the closed set of identity roles. Role-dependent behavior must switch
// exhaustively over these values so a new role forces every decision point to
// be revisited.
type Role string

const (
	// RoleSuperAdmin can see every tenant and switch between them.
	RoleSuperAdmin Role = "super_admin"
	// RoleAdmin administers a single tenant.
	RoleAdmin Role = "admin"
	// RoleManager manages visitors and training within a single tenant.
	RoleManager Role = "manager"
	// RoleTerminal is a check-in kiosk identity bound to a single tenant.
	RoleTerminal Role = "terminal"
)

// ParseRole returns the Role for s, or an error when s is not a known role.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleSuperAdmin, RoleAdmin, RoleManager, RoleTerminal:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

var emailRe = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Validate validates the identity for persistence. Returns an error describing the first validation failure.
func (i *Identity) Validate() error {
	if i.Email == "" {
		return errors.New("email is required")
	}
	if !emailRe.MatchString(i.Email) {
		return errors.New("invalid email format")
	}
	if _, err := ParseRole(string(i.Role)); err != nil {
		return err
	}
	if i.Role != RoleSuperAdmin && i.TenantID == nil {
		return errors.New("tenant is required for non-super-admin roles")
	}
	return nil
}

// FixedTenantID returns the identity's fixed tenant id, or "" for super-admin.
func (i *Identity) FixedTenantID() string {
	if i.TenantID == nil {
		return ""
	}
	return *i.TenantID
}
