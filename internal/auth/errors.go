package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a role, permission or assignment that must exist does not.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when creating something that already exists,
	// e.g. a duplicate role name, permission code, grant or assignment.
	ErrConflict = errors.New("already exists")

	// ErrSystemRole is returned when deleting or editing a role flagged as system role.
	ErrSystemRole = errors.New("system roles can not be modified")

	// ErrLastCriticalHolder is returned when revoking a critical role from its last holder.
	ErrLastCriticalHolder = errors.New("can not revoke the last holder of a critical role")

	// ErrStoreUnavailable wraps every backing store failure.
	// It means access could not be determined, which is different from access denied.
	ErrStoreUnavailable = errors.New("authorization store unavailable")

	// ErrInvalidRequirement is returned for a requirement naming both a permission and roles.
	ErrInvalidRequirement = errors.New("invalid requirement")

	// ErrRoleNameEmpty is returned when creating a role without a name.
	ErrRoleNameEmpty = errors.New("role name can not be empty")

	// ErrPermissionCodeEmpty is returned when creating a permission without a code.
	ErrPermissionCodeEmpty = errors.New("permission code can not be empty")

	// ErrUserIDEmpty is returned when assigning or revoking without a user id.
	ErrUserIDEmpty = errors.New("user id can not be empty")
)

// storeErr marks err as a backing store failure of op.
func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}

// txErr passes domain errors from a transaction through and marks everything else,
// e.g. a failed begin or commit, as a store failure.
func txErr(op string, err error) error {
	if err == nil {
		return nil
	}

	for _, known := range []error{
		ErrStoreUnavailable, ErrNotFound, ErrConflict, ErrSystemRole,
		ErrLastCriticalHolder, ErrRoleNameEmpty, ErrPermissionCodeEmpty, ErrUserIDEmpty,
	} {
		if errors.Is(err, known) {
			return err
		}
	}

	return storeErr(op, err)
}
