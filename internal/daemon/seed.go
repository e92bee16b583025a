package daemon

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/comunidade-central/accessctl/internal/auth"
)

// catalogue is the built-in permission catalogue.
var catalogue = []struct {
	code        string
	description string
}{
	{auth.PermAdministrar, "Full access to the administrative area"},
	{auth.PermManageUsers, "Manage accounts and their role assignments"},
	{auth.PermManageRoles, "Manage roles, permissions and resource requirements"},
	{auth.PermManageCourses, "Create and edit courses"},
	{auth.PermManagePosts, "Create, edit and delete posts"},
	{auth.PermManagePolls, "Create and close polls"},
	{auth.PermManageEvents, "Edit the calendar"},
	{auth.PermManageRegistrations, "Approve and delete registrations"},
	{auth.PermViewAudit, "Read the authorization decision log"},
	{auth.PermCentralAccess, "Enter the members area"},
}

// systemRoles are created on first start. ADMIN receives every built-in permission on every start.
var systemRoles = []auth.RoleSpec{
	{
		Name:        auth.RoleAdmin,
		DisplayName: "Administrador",
		Description: "Administers the community area",
		Color:       "#dc2626",
		IsSystem:    true,
	},
	{
		Name:        auth.RoleInscrito,
		DisplayName: "Inscrito",
		Description: "Member with an approved registration",
		Color:       "#2563eb",
		IsSystem:    true,
		Permissions: []string{auth.PermCentralAccess},
	},
	{
		Name:        auth.RoleVisitante,
		DisplayName: "Visitante",
		Description: "Default role of a new account",
		IsSystem:    true,
	},
}

// Seed creates the permission catalogue and the system roles. It is safe to run on every start.
// When adminUser is set and nobody holds ADMIN, adminUser is made administrator.
func Seed(ctx context.Context, svc *auth.Service, adminUser string) error {
	var created bool

	for _, p := range catalogue {
		_, err := svc.Roles.CreatePermission(ctx, p.code, p.description)

		switch {
		case err == nil:
			created = true
		case errors.Is(err, auth.ErrConflict):
		default:
			return err
		}
	}

	for _, spec := range systemRoles {
		_, err := svc.Roles.CreateRole(ctx, spec)

		switch {
		case err == nil:
			created = true

			log.Info().Str("role", spec.Name).Msg("system role created")
		case errors.Is(err, auth.ErrConflict):
		default:
			return err
		}
	}

	// grants cached by other instances predate the new catalogue entries
	if created {
		svc.InvalidateAll(ctx)
	}

	admin, err := svc.Roles.GetRoleByName(ctx, auth.RoleAdmin)
	if err != nil {
		return err
	}

	for _, p := range catalogue {
		if err = svc.Roles.GrantPermission(ctx, admin.ID, p.code); err != nil && !errors.Is(err, auth.ErrConflict) {
			return err
		}
	}

	if adminUser == "" {
		return nil
	}

	holders, err := svc.Assignments.ListUsersForRole(ctx, admin.ID)
	if err != nil {
		return err
	}

	if len(holders) > 0 {
		return nil
	}

	if err = svc.Assignments.Assign(ctx, adminUser, admin.ID, auth.WithAssignedBy("seed")); err != nil {
		return err
	}

	log.Warn().Str("user_id", adminUser).Msg("bootstrap administrator assigned")

	return nil
}
