package models

import "time"

// DefaultRoleColor is the badge color used when a role is created without one.
const DefaultRoleColor = "#6b7280"

// Role represents a role in the role-based access control (RBAC) system.
// Roles are collections of permissions that are assigned to users.
// Examples include "ADMIN", "INSCRITO" and "VISITANTE".
type Role struct {
	// ID is the unique identifier for the role.
	ID uint `gorm:"primaryKey" json:"id"`
	// Name is the unique upper-case name of the role (e.g., "ADMIN").
	// It never changes once the role exists.
	Name string `gorm:"uniqueIndex;size:100;not null" json:"name"`
	// DisplayName is the human-readable name shown in the administrative UI.
	DisplayName string `gorm:"size:100;not null" json:"display_name"`
	// Description provides a human-readable description of the role's purpose.
	Description string `gorm:"size:255" json:"description"`
	// Color is the badge color of the role in the administrative UI.
	Color string `gorm:"size:20" json:"color"`
	// IsSystem indicates if this is a system role that cannot be deleted.
	IsSystem bool `gorm:"default:false" json:"is_system"`
	// CreatedAt is the timestamp when the role was created (managed by GORM).
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is the timestamp when the role was last updated (managed by GORM).
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the database table name for the Role model.
// This overrides GORM's default pluralized table naming.
func (Role) TableName() string {
	return "roles"
}
