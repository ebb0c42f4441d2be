package domain

import (
	"errors"
	"time"
)

// Tenant is an isolated customer organization. Data belonging to one tenant
// must never be visible to another tenant's non-privileged identities.
type Tenant struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// Validate validates the tenant for persistence.
func (t *Tenant) Validate() error {
	if t.Name == "" {
		return errors.New("name is required")
	}
	return nil
}
