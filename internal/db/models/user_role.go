package models

import "time"

// UserRole assigns a role to a user.
// Users live in the external identity provider and are referenced by id only.
// The composite primary key rejects duplicate (user, role) pairs.
type UserRole struct {
	// UserID is the external identity id of the user.
	UserID string `gorm:"primaryKey;column:user_id;size:64" json:"user_id"`
	// RoleID is the ID of the assigned role.
	RoleID uint `gorm:"primaryKey;column:role_id;index" json:"role_id"`
	// AssignedBy is the user id of the administrator who granted the role, empty for system grants.
	AssignedBy string `gorm:"size:64" json:"assigned_by"`
	// AssignedAt is when the assignment was created.
	AssignedAt time.Time `gorm:"not null" json:"assigned_at"`
	// ExpiresAt, when set, ends the assignment without deleting the row.
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	// Role is the associated role (loaded via foreign key).
	Role Role `gorm:"foreignKey:RoleID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the database table name for the UserRole model.
func (UserRole) TableName() string {
	return "user_roles"
}

// Active reports whether the assignment is in effect at t.
func (ur *UserRole) Active(t time.Time) bool {
	return ur.ExpiresAt == nil || ur.ExpiresAt.After(t)
}
