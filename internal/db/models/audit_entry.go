package models

import "time"

// AuditEntry is one recorded authorization decision. Rows are only ever inserted.
type AuditEntry struct {
	// ID is a random UUID.
	ID string `gorm:"primaryKey;size:36" json:"id"`
	// UserID is the identity the decision was made for, empty when anonymous.
	UserID string `gorm:"size:64;index" json:"user_id"`
	// Requirement is the rendered requirement, e.g. "permission:administrar".
	Requirement string `gorm:"size:512;not null" json:"requirement"`
	// Allowed is the decision outcome.
	Allowed bool `json:"allowed"`
	// Reason is the denial reason, empty on allow.
	Reason string `gorm:"size:32;index" json:"reason,omitempty"`
	// Detail refines the reason, e.g. "expired_grant" or the names that were not found.
	Detail string `gorm:"size:255" json:"detail,omitempty"`
	// CreatedAt is when the decision was made.
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName specifies the database table name for the AuditEntry model.
func (AuditEntry) TableName() string {
	return "audit_entries"
}
