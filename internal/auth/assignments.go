package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/comunidade-central/accessctl/internal/db/models"
)

const userRoleQueryPattern = "user_id = ? AND role_id = ?"

// activeAssignment matches assignments without expiry or expiring after the bound time.
const activeAssignment = "(expires_at IS NULL OR expires_at > ?)"

// AssignOption refines an assignment.
type AssignOption func(*models.UserRole)

// WithAssignedBy records the administrator granting the role.
func WithAssignedBy(userID string) AssignOption {
	return func(ur *models.UserRole) {
		ur.AssignedBy = userID
	}
}

// WithExpiry ends the assignment at t.
func WithExpiry(t time.Time) AssignOption {
	return func(ur *models.UserRole) {
		ur.ExpiresAt = &t
	}
}

// AssignmentStore holds which users hold which roles.
type AssignmentStore struct {
	db          *gorm.DB
	invalidator Invalidator
	critical    Set
	now         func() time.Time
}

// NewAssignmentStore creates an assignment store.
// The last active holder of a role named in critical can not be revoked.
func NewAssignmentStore(db *gorm.DB, invalidator Invalidator, critical ...string) *AssignmentStore {
	if invalidator == nil {
		invalidator = noopInvalidator{}
	}

	return &AssignmentStore{
		db:          db,
		invalidator: invalidator,
		critical:    NewSet(RequireAnyRole(critical...).AnyRole...),
		now:         time.Now,
	}
}

// Assign grants roleID to userID.
// An active assignment of the same pair fails with ErrConflict, an expired one is renewed.
func (s *AssignmentStore) Assign(ctx context.Context, userID string, roleID uint, opts ...AssignOption) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ErrUserIDEmpty
	}

	ur := models.UserRole{
		UserID:     userID,
		RoleID:     roleID,
		AssignedAt: s.now(),
	}

	for _, opt := range opts {
		opt(&ur)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := roleExists(tx, roleID); err != nil {
			return err
		}

		var existing models.UserRole

		err := tx.Where(userRoleQueryPattern, userID, roleID).First(&existing).Error

		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err = tx.Omit("Role").Create(&ur).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return fmt.Errorf("role %d for user %q: %w", roleID, userID, ErrConflict)
				}

				return storeErr("assign role", err)
			}

			return nil
		case err != nil:
			return storeErr("get assignment", err)
		case existing.Active(ur.AssignedAt):
			return fmt.Errorf("role %d for user %q: %w", roleID, userID, ErrConflict)
		}

		err = tx.Model(&models.UserRole{}).
			Where(userRoleQueryPattern, userID, roleID).
			Updates(map[string]any{
				"assigned_by": ur.AssignedBy,
				"assigned_at": ur.AssignedAt,
				"expires_at":  ur.ExpiresAt,
			}).Error
		if err != nil {
			return storeErr("renew assignment", err)
		}

		return nil
	})
	if err != nil {
		return txErr("assign role", err)
	}

	s.invalidator.InvalidateUsers(ctx, userID)

	return nil
}

// AssignWithExpiry grants roleID to userID until expiresAt.
func (s *AssignmentStore) AssignWithExpiry(
	ctx context.Context, userID string, roleID uint, assignedBy string, expiresAt time.Time,
) error {
	return s.Assign(ctx, userID, roleID, WithAssignedBy(assignedBy), WithExpiry(expiresAt))
}

// Revoke removes roleID from userID. Revoking an assignment that does not exist succeeds.
// Revoking the last active holder of a critical role fails with ErrLastCriticalHolder.
func (s *AssignmentStore) Revoke(ctx context.Context, userID string, roleID uint) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ErrUserIDEmpty
	}

	var removed bool

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.UserRole

		err := lockForUpdate(tx).Where(userRoleQueryPattern, userID, roleID).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}

		if err != nil {
			return storeErr("get assignment", err)
		}

		if err = tx.First(&existing.Role, roleID).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return storeErr("get role", err)
		}

		if err = s.checkLastHolder(tx, &existing, s.now()); err != nil {
			return err
		}

		if err = tx.Where(userRoleQueryPattern, userID, roleID).Delete(&models.UserRole{}).Error; err != nil {
			return storeErr("revoke role", err)
		}

		removed = true

		return nil
	})
	if err != nil {
		return txErr("revoke role", err)
	}

	if removed {
		s.invalidator.InvalidateUsers(ctx, userID)
	}

	return nil
}

// SetUserRoles replaces the roles userID holds with roleIDs in one transaction.
// Active assignments that stay are left untouched, expired ones are renewed and
// new ones are created, all with opts. Every role must exist.
// Removing the last active holder of a critical role fails with ErrLastCriticalHolder.
func (s *AssignmentStore) SetUserRoles(ctx context.Context, userID string, roleIDs []uint, opts ...AssignOption) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ErrUserIDEmpty
	}

	wanted := slices.Compact(slices.Sorted(slices.Values(roleIDs)))
	now := s.now()

	template := models.UserRole{UserID: userID, AssignedAt: now}
	for _, opt := range opts {
		opt(&template)
	}

	var changed bool

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := rolesExist(tx, wanted); err != nil {
			return err
		}

		var existing []models.UserRole

		err := lockForUpdate(tx).Preload("Role").Where("user_id = ?", userID).Find(&existing).Error
		if err != nil {
			return storeErr("list assignments", err)
		}

		held := make(map[uint]*models.UserRole, len(existing))

		for i := range existing {
			ur := &existing[i]
			held[ur.RoleID] = ur

			if slices.Contains(wanted, ur.RoleID) {
				continue
			}

			if err = s.checkLastHolder(tx, ur, now); err != nil {
				return err
			}

			if err = tx.Where(userRoleQueryPattern, userID, ur.RoleID).Delete(&models.UserRole{}).Error; err != nil {
				return storeErr("revoke role", err)
			}

			changed = true
		}

		for _, roleID := range wanted {
			ur, ok := held[roleID]

			switch {
			case !ok:
				add := template
				add.RoleID = roleID

				if err = tx.Omit("Role").Create(&add).Error; err != nil {
					return storeErr("assign role", err)
				}
			case ur.Active(now):
				continue
			default:
				err = tx.Model(&models.UserRole{}).
					Where(userRoleQueryPattern, userID, roleID).
					Updates(map[string]any{
						"assigned_by": template.AssignedBy,
						"assigned_at": template.AssignedAt,
						"expires_at":  template.ExpiresAt,
					}).Error
				if err != nil {
					return storeErr("renew assignment", err)
				}
			}

			changed = true
		}

		return nil
	})
	if err != nil {
		return txErr("set user roles", err)
	}

	if changed {
		s.invalidator.InvalidateUsers(ctx, userID)
	}

	return nil
}

// checkLastHolder fails when ur is the last active assignment of a critical role.
// ur.Role must be loaded.
func (s *AssignmentStore) checkLastHolder(tx *gorm.DB, ur *models.UserRole, now time.Time) error {
	if !s.critical.Has(ur.Role.Name) || !ur.Active(now) {
		return nil
	}

	var holders []string

	err := lockForUpdate(tx).Model(&models.UserRole{}).
		Where(roleIDQueryPattern, ur.RoleID).
		Where(activeAssignment, now).
		Pluck("user_id", &holders).Error
	if err != nil {
		return storeErr("list role holders", err)
	}

	if len(holders) <= 1 {
		return fmt.Errorf("role %q from user %q: %w", ur.Role.Name, ur.UserID, ErrLastCriticalHolder)
	}

	return nil
}

// ListRolesForUser returns the ids of the roles userID actively holds.
func (s *AssignmentStore) ListRolesForUser(ctx context.Context, userID string) ([]uint, error) {
	ids := []uint{}

	err := s.db.WithContext(ctx).Model(&models.UserRole{}).
		Where("user_id = ?", userID).
		Where(activeAssignment, s.now()).
		Order("role_id ASC").
		Pluck("role_id", &ids).Error
	if err != nil {
		return nil, storeErr("list roles for user", err)
	}

	return ids, nil
}

// ListUsersForRole returns the ids of the users actively holding roleID.
func (s *AssignmentStore) ListUsersForRole(ctx context.Context, roleID uint) ([]string, error) {
	ids := []string{}

	err := s.db.WithContext(ctx).Model(&models.UserRole{}).
		Where(roleIDQueryPattern, roleID).
		Where(activeAssignment, s.now()).
		Order("user_id ASC").
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, storeErr("list users for role", err)
	}

	return ids, nil
}

// ListAssignmentsForUser returns every assignment of userID, expired ones included, with their role.
func (s *AssignmentStore) ListAssignmentsForUser(ctx context.Context, userID string) ([]models.UserRole, error) {
	var out []models.UserRole

	err := s.db.WithContext(ctx).Preload("Role").
		Where("user_id = ?", userID).
		Order("assigned_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, storeErr("list assignments for user", err)
	}

	return out, nil
}

func rolesExist(tx *gorm.DB, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}

	var found []uint
	if err := tx.Model(&models.Role{}).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
		return storeErr("check roles", err)
	}

	for _, id := range ids {
		if !slices.Contains(found, id) {
			return fmt.Errorf("role %d: %w", id, ErrNotFound)
		}
	}

	return nil
}

// lockForUpdate locks the selected rows where the dialect supports it.
// sqlite serialises writers on its own.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}

	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
