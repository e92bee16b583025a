package models

import "time"

// Permission represents an atomic capability in the authorization system.
// Permissions are granted to roles, which are then assigned to users.
type Permission struct {
	// ID is the unique identifier for the permission.
	ID uint `gorm:"primaryKey" json:"id"`
	// Code is the globally unique permission code (e.g., "administrar", "manage_users").
	Code string `gorm:"uniqueIndex;size:100;not null" json:"code"`
	// Description provides a human-readable explanation of what this permission grants.
	Description string `gorm:"size:255" json:"description"`
	// CreatedAt is the timestamp when the permission was created (managed by GORM).
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the database table name for the Permission model.
func (Permission) TableName() string {
	return "permissions"
}
