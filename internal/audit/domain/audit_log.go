package domain

import "time"

// AuditLog represents a single security or audit event. Rows are append-only:
// nothing in the system updates or deletes them.
type AuditLog struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenant_id"`
	IdentityID string    `json:"identity_id,omitempty"`
	Action     string    `json:"action"`
	Resource   string    `json:"resource"`
	IP         string    `json:"ip"`
	Metadata   string    `json:"metadata,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
