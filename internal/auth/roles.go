package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"gorm.io/gorm"

	"github.com/comunidade-central/accessctl/internal/db/models"
)

const (
	roleIDQueryPattern   = "role_id = ?"
	roleNameQueryPattern = "name = ?"
	codeQueryPattern     = "code = ?"
)

// Invalidator drops cached grants after a committed change.
// Implementations log their own failures, a failed invalidation is bounded by the cache TTL.
type Invalidator interface {
	InvalidateUsers(ctx context.Context, userIDs ...string)
	InvalidateAll(ctx context.Context)
}

type noopInvalidator struct{}

func (noopInvalidator) InvalidateUsers(context.Context, ...string) {}
func (noopInvalidator) InvalidateAll(context.Context)              {}

// RoleSpec describes a role to create.
type RoleSpec struct {
	Name        string
	DisplayName string
	Description string
	Color       string
	IsSystem    bool
	// Permissions are codes granted to the role on creation.
	Permissions []string
}

// RoleUpdate changes the presentation of a role. Nil fields are left alone.
// The name of a role never changes.
type RoleUpdate struct {
	DisplayName *string
	Description *string
	Color       *string
}

// RoleStore holds role definitions and their permission grants.
type RoleStore struct {
	db          *gorm.DB
	invalidator Invalidator
	critical    Set
}

// NewRoleStore creates a role store. Roles named in critical can not be deleted.
func NewRoleStore(db *gorm.DB, invalidator Invalidator, critical ...string) *RoleStore {
	if invalidator == nil {
		invalidator = noopInvalidator{}
	}

	return &RoleStore{
		db:          db,
		invalidator: invalidator,
		critical:    NewSet(RequireAnyRole(critical...).AnyRole...),
	}
}

// GetRoleByName returns the role with the given name (case-insensitive).
func (s *RoleStore) GetRoleByName(ctx context.Context, name string) (*models.Role, error) {
	var role models.Role

	err := s.db.WithContext(ctx).Where(roleNameQueryPattern, NormalizeRoleName(name)).First(&role).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("role %q: %w", name, ErrNotFound)
		}

		return nil, storeErr("get role by name", err)
	}

	return &role, nil
}

// GetRole returns the role with the given id.
func (s *RoleStore) GetRole(ctx context.Context, id uint) (*models.Role, error) {
	var role models.Role

	if err := s.db.WithContext(ctx).First(&role, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("role %d: %w", id, ErrNotFound)
		}

		return nil, storeErr("get role", err)
	}

	return &role, nil
}

// ListRoles returns all roles, system roles first, then by name.
func (s *RoleStore) ListRoles(ctx context.Context) ([]models.Role, error) {
	var roles []models.Role

	if err := s.db.WithContext(ctx).Order("is_system DESC").Order("name ASC").Find(&roles).Error; err != nil {
		return nil, storeErr("list roles", err)
	}

	return roles, nil
}

// CreateRole creates a role and grants its initial permissions in one transaction.
func (s *RoleStore) CreateRole(ctx context.Context, spec RoleSpec) (*models.Role, error) {
	name := NormalizeRoleName(spec.Name)
	if name == "" {
		return nil, ErrRoleNameEmpty
	}

	role := &models.Role{
		Name:        name,
		DisplayName: strings.TrimSpace(spec.DisplayName),
		Description: strings.TrimSpace(spec.Description),
		Color:       spec.Color,
		IsSystem:    spec.IsSystem,
	}

	if role.DisplayName == "" {
		role.DisplayName = name
	}

	if role.Color == "" {
		role.Color = models.DefaultRoleColor
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Role{}).Where(roleNameQueryPattern, name).Count(&count).Error; err != nil {
			return storeErr("check role name", err)
		}

		if count > 0 {
			return fmt.Errorf("role %q: %w", name, ErrConflict)
		}

		if err := tx.Create(role).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("role %q: %w", name, ErrConflict)
			}

			return storeErr("create role", err)
		}

		for _, code := range uniqueCodes(spec.Permissions) {
			perm, err := permissionByCode(tx, code)
			if err != nil {
				return err
			}

			if err := tx.Create(&models.RolePermission{RoleID: role.ID, PermissionID: perm.ID}).Error; err != nil {
				return storeErr("grant permission", err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, txErr("create role", err)
	}

	return role, nil
}

// UpdateRole changes display name, description or color of a non-system role.
func (s *RoleStore) UpdateRole(ctx context.Context, id uint, upd RoleUpdate) (*models.Role, error) {
	var role models.Role

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&role, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("role %d: %w", id, ErrNotFound)
			}

			return storeErr("get role", err)
		}

		if role.IsSystem {
			return fmt.Errorf("role %q: %w", role.Name, ErrSystemRole)
		}

		if upd.DisplayName != nil && strings.TrimSpace(*upd.DisplayName) != "" {
			role.DisplayName = strings.TrimSpace(*upd.DisplayName)
		}

		if upd.Description != nil {
			role.Description = strings.TrimSpace(*upd.Description)
		}

		if upd.Color != nil && *upd.Color != "" {
			role.Color = *upd.Color
		}

		if err := tx.Save(&role).Error; err != nil {
			return storeErr("update role", err)
		}

		return nil
	})
	if err != nil {
		return nil, txErr("update role", err)
	}

	return &role, nil
}

// DeleteRole deletes a role together with its assignments and permission grants.
// System and critical roles are rejected.
func (s *RoleStore) DeleteRole(ctx context.Context, id uint) error {
	var holders []string

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var role models.Role
		if err := tx.First(&role, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("role %d: %w", id, ErrNotFound)
			}

			return storeErr("get role", err)
		}

		if role.IsSystem || s.critical.Has(role.Name) {
			return fmt.Errorf("role %q: %w", role.Name, ErrSystemRole)
		}

		if err := tx.Model(&models.UserRole{}).Where(roleIDQueryPattern, id).Pluck("user_id", &holders).Error; err != nil {
			return storeErr("list role holders", err)
		}

		if err := tx.Where(roleIDQueryPattern, id).Delete(&models.UserRole{}).Error; err != nil {
			return storeErr("delete role assignments", err)
		}

		if err := tx.Where(roleIDQueryPattern, id).Delete(&models.RolePermission{}).Error; err != nil {
			return storeErr("delete role permissions", err)
		}

		if err := tx.Delete(&role).Error; err != nil {
			return storeErr("delete role", err)
		}

		return nil
	})
	if err != nil {
		return txErr("delete role", err)
	}

	s.invalidator.InvalidateUsers(ctx, holders...)

	return nil
}

// CreatePermission adds a permission code to the catalogue.
func (s *RoleStore) CreatePermission(ctx context.Context, code, description string) (*models.Permission, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrPermissionCodeEmpty
	}

	perm := &models.Permission{Code: code, Description: strings.TrimSpace(description)}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Permission{}).Where(codeQueryPattern, code).Count(&count).Error; err != nil {
			return storeErr("check permission code", err)
		}

		if count > 0 {
			return fmt.Errorf("permission %q: %w", code, ErrConflict)
		}

		if err := tx.Create(perm).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("permission %q: %w", code, ErrConflict)
			}

			return storeErr("create permission", err)
		}

		return nil
	})
	if err != nil {
		return nil, txErr("create permission", err)
	}

	return perm, nil
}

// GetPermissionByCode returns the permission with the given code.
func (s *RoleStore) GetPermissionByCode(ctx context.Context, code string) (*models.Permission, error) {
	return permissionByCode(s.db.WithContext(ctx), code)
}

// ListPermissions returns the permission catalogue ordered by code.
func (s *RoleStore) ListPermissions(ctx context.Context) ([]models.Permission, error) {
	var perms []models.Permission

	if err := s.db.WithContext(ctx).Order("code ASC").Find(&perms).Error; err != nil {
		return nil, storeErr("list permissions", err)
	}

	return perms, nil
}

// ListRolePermissions returns the permission codes granted to a role.
func (s *RoleStore) ListRolePermissions(ctx context.Context, roleID uint) ([]string, error) {
	if _, err := s.GetRole(ctx, roleID); err != nil {
		return nil, err
	}

	var codes []string

	err := s.db.WithContext(ctx).Model(&models.Permission{}).
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Where("role_permissions.role_id = ?", roleID).
		Order("permissions.code ASC").
		Pluck("permissions.code", &codes).Error
	if err != nil {
		return nil, storeErr("list role permissions", err)
	}

	return codes, nil
}

// GrantPermission grants a permission to a role.
func (s *RoleStore) GrantPermission(ctx context.Context, roleID uint, code string) error {
	var holders []string

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := roleExists(tx, roleID); err != nil {
			return err
		}

		perm, err := permissionByCode(tx, code)
		if err != nil {
			return err
		}

		var count int64

		err = tx.Model(&models.RolePermission{}).
			Where("role_id = ? AND permission_id = ?", roleID, perm.ID).
			Count(&count).Error
		if err != nil {
			return storeErr("check grant", err)
		}

		if count > 0 {
			return fmt.Errorf("grant %q to role %d: %w", code, roleID, ErrConflict)
		}

		if err = tx.Create(&models.RolePermission{RoleID: roleID, PermissionID: perm.ID}).Error; err != nil {
			return storeErr("grant permission", err)
		}

		holders, err = roleHolders(tx, roleID)

		return err
	})
	if err != nil {
		return txErr("grant permission", err)
	}

	s.invalidator.InvalidateUsers(ctx, holders...)

	return nil
}

// RevokePermission removes a permission from a role. Revoking a grant that does not exist is a no-op.
func (s *RoleStore) RevokePermission(ctx context.Context, roleID uint, code string) error {
	var holders []string

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		perm, err := permissionByCode(tx, code)
		if errors.Is(err, ErrNotFound) {
			return nil
		}

		if err != nil {
			return err
		}

		res := tx.Where("role_id = ? AND permission_id = ?", roleID, perm.ID).Delete(&models.RolePermission{})
		if res.Error != nil {
			return storeErr("revoke permission", res.Error)
		}

		if res.RowsAffected == 0 {
			return nil
		}

		holders, err = roleHolders(tx, roleID)

		return err
	})
	if err != nil {
		return txErr("revoke permission", err)
	}

	s.invalidator.InvalidateUsers(ctx, holders...)

	return nil
}

// SetRolePermissions replaces the permissions of a role.
func (s *RoleStore) SetRolePermissions(ctx context.Context, roleID uint, codes []string) error {
	var holders []string

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := roleExists(tx, roleID); err != nil {
			return err
		}

		grants := make([]models.RolePermission, 0, len(codes))

		for _, code := range uniqueCodes(codes) {
			perm, err := permissionByCode(tx, code)
			if err != nil {
				return err
			}

			grants = append(grants, models.RolePermission{RoleID: roleID, PermissionID: perm.ID})
		}

		if err := tx.Where(roleIDQueryPattern, roleID).Delete(&models.RolePermission{}).Error; err != nil {
			return storeErr("clear role permissions", err)
		}

		if len(grants) > 0 {
			if err := tx.Create(&grants).Error; err != nil {
				return storeErr("grant permissions", err)
			}
		}

		var err error
		holders, err = roleHolders(tx, roleID)

		return err
	})
	if err != nil {
		return txErr("set role permissions", err)
	}

	s.invalidator.InvalidateUsers(ctx, holders...)

	return nil
}

// MissingRoles returns the names that do not exist as roles.
func (s *RoleStore) MissingRoles(ctx context.Context, names []string) ([]string, error) {
	if len(names) == 0 {
		return nil, nil
	}

	var found []string

	err := s.db.WithContext(ctx).Model(&models.Role{}).Where("name IN ?", names).Pluck("name", &found).Error
	if err != nil {
		return nil, storeErr("look up roles", err)
	}

	return missing(names, found), nil
}

// MissingPermissions returns the codes that do not exist as permissions.
func (s *RoleStore) MissingPermissions(ctx context.Context, codes []string) ([]string, error) {
	if len(codes) == 0 {
		return nil, nil
	}

	var found []string

	err := s.db.WithContext(ctx).Model(&models.Permission{}).Where("code IN ?", codes).Pluck("code", &found).Error
	if err != nil {
		return nil, storeErr("look up permissions", err)
	}

	return missing(codes, found), nil
}

func permissionByCode(tx *gorm.DB, code string) (*models.Permission, error) {
	var perm models.Permission

	if err := tx.Where(codeQueryPattern, strings.TrimSpace(code)).First(&perm).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("permission %q: %w", code, ErrNotFound)
		}

		return nil, storeErr("get permission", err)
	}

	return &perm, nil
}

func roleExists(tx *gorm.DB, id uint) error {
	var count int64
	if err := tx.Model(&models.Role{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return storeErr("check role", err)
	}

	if count == 0 {
		return fmt.Errorf("role %d: %w", id, ErrNotFound)
	}

	return nil
}

func roleHolders(tx *gorm.DB, roleID uint) ([]string, error) {
	var holders []string
	if err := tx.Model(&models.UserRole{}).Where(roleIDQueryPattern, roleID).Pluck("user_id", &holders).Error; err != nil {
		return nil, storeErr("list role holders", err)
	}

	return holders, nil
}

func uniqueCodes(codes []string) []string {
	out := make([]string, 0, len(codes))

	for _, code := range codes {
		code = strings.TrimSpace(code)
		if code != "" && !slices.Contains(out, code) {
			out = append(out, code)
		}
	}

	return out
}

func missing(want, found []string) []string {
	have := NewSet(found...)

	var out []string

	for _, w := range want {
		if !have.Has(w) && !slices.Contains(out, w) {
			out = append(out, w)
		}
	}

	return out
}
