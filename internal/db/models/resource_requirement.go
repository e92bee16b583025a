package models

import (
	"time"

	"gorm.io/datatypes"
)

// RequirementKind tells how a ResourceRequirement is evaluated.
type RequirementKind string

const (
	// RequirementPublic grants access to everyone, including anonymous users.
	RequirementPublic RequirementKind = "public"
	// RequirementPermission requires a single permission code.
	RequirementPermission RequirementKind = "permission"
	// RequirementRoles requires at least one of a set of roles.
	RequirementRoles RequirementKind = "roles"
)

// ResourceRequirement is the access condition attached to a resource instance,
// e.g. a course, a poll or a group of the community area.
type ResourceRequirement struct {
	ID uint `gorm:"primaryKey" json:"id"`
	// ResourceType names the kind of resource (e.g., "course", "poll").
	ResourceType string `gorm:"size:50;not null;uniqueIndex:idx_resource" json:"resource_type"`
	// ResourceID is the id of the resource instance within its type.
	ResourceID string `gorm:"size:64;not null;uniqueIndex:idx_resource" json:"resource_id"`
	// Kind selects which of Permission or Roles is used.
	Kind RequirementKind `gorm:"type:varchar(20);not null" json:"kind"`
	// Permission is the required permission code for RequirementPermission.
	Permission string `gorm:"size:100" json:"permission,omitempty"`
	// Roles are the acceptable role names for RequirementRoles.
	Roles datatypes.JSONSlice[string] `json:"roles,omitempty"`
	// CreatedAt is the timestamp when the requirement was created (managed by GORM).
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is the timestamp when the requirement was last updated (managed by GORM).
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the database table name for the ResourceRequirement model.
func (ResourceRequirement) TableName() string {
	return "resource_requirements"
}
