// Package requirement provides CRUD operations for the access requirements attached to resources.
package requirement

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/comunidade-central/accessctl/internal/db/models"
)

const (
	resourceQueryPattern = "resource_type = ? AND resource_id = ?"
)

var (
	// ErrRequirementNotFound is returned when a resource has no stored requirement.
	ErrRequirementNotFound = errors.New("requirement not found")
	// ErrResourceEmpty is returned when the resource type or id is empty.
	ErrResourceEmpty = errors.New("resource type and id cannot be empty")
	// ErrInvalidKind is returned for a kind other than public, permission or roles,
	// or when the kind does not match the filled fields.
	ErrInvalidKind = errors.New("invalid requirement kind")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// Get retrieves the requirement of a resource.
func Get(db *gorm.DB, resourceType, resourceID string) (*models.ResourceRequirement, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	if resourceType == "" || resourceID == "" {
		return nil, ErrResourceEmpty
	}

	var req models.ResourceRequirement

	result := db.Where(resourceQueryPattern, resourceType, resourceID).First(&req)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRequirementNotFound
		}

		return nil, result.Error
	}

	return &req, nil
}

// List retrieves all requirements, optionally limited to one resource type.
func List(db *gorm.DB, resourceType string) ([]models.ResourceRequirement, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var reqs []models.ResourceRequirement

	query := db.Order("resource_type ASC").Order("resource_id ASC")
	if resourceType != "" {
		query = query.Where("resource_type = ?", resourceType)
	}

	if result := query.Find(&reqs); result.Error != nil {
		return nil, result.Error
	}

	return reqs, nil
}

// Set creates or replaces the requirement of a resource (upsert operation).
func Set(db *gorm.DB, in models.ResourceRequirement) (*models.ResourceRequirement, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	if err := normalize(&in); err != nil {
		return nil, err
	}

	var req models.ResourceRequirement

	result := db.Where(resourceQueryPattern, in.ResourceType, in.ResourceID).First(&req)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		// requirement doesn't exist, create it
		req = models.ResourceRequirement{
			ResourceType: in.ResourceType,
			ResourceID:   in.ResourceID,
			Kind:         in.Kind,
			Permission:   in.Permission,
			Roles:        in.Roles,
		}

		if result = db.Create(&req); result.Error != nil {
			return nil, result.Error
		}

		return &req, nil
	}

	if result.Error != nil {
		return nil, result.Error
	}

	// requirement exists, replace it
	req.Kind = in.Kind
	req.Permission = in.Permission
	req.Roles = in.Roles

	if result = db.Save(&req); result.Error != nil {
		return nil, result.Error
	}

	return &req, nil
}

// Delete deletes the requirement of a resource.
func Delete(db *gorm.DB, resourceType, resourceID string) error {
	if db == nil {
		return ErrDBNil
	}

	if resourceType == "" || resourceID == "" {
		return ErrResourceEmpty
	}

	result := db.Where(resourceQueryPattern, resourceType, resourceID).Delete(&models.ResourceRequirement{})
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrRequirementNotFound
	}

	return nil
}

// normalize checks the kind against the filled fields and upper-cases role names.
func normalize(req *models.ResourceRequirement) error {
	req.ResourceType = strings.TrimSpace(req.ResourceType)
	req.ResourceID = strings.TrimSpace(req.ResourceID)

	if req.ResourceType == "" || req.ResourceID == "" {
		return ErrResourceEmpty
	}

	req.Permission = strings.TrimSpace(req.Permission)

	roles := make([]string, 0, len(req.Roles))

	for _, r := range req.Roles {
		if r = strings.ToUpper(strings.TrimSpace(r)); r != "" {
			roles = append(roles, r)
		}
	}

	switch req.Kind {
	case models.RequirementPublic:
		req.Permission = ""
		roles = nil
	case models.RequirementPermission:
		if req.Permission == "" || len(roles) > 0 {
			return ErrInvalidKind
		}
	case models.RequirementRoles:
		if len(roles) == 0 || req.Permission != "" {
			return ErrInvalidKind
		}
	default:
		return ErrInvalidKind
	}

	req.Roles = roles

	return nil
}
