// Package role provides the admin API for roles and their permission grants.
package role

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/comunidade-central/accessctl/internal/auth"
	"github.com/comunidade-central/accessctl/internal/config"
	"github.com/comunidade-central/accessctl/internal/db/models"
	"github.com/comunidade-central/accessctl/internal/web/handler"
)

const (
	// Path is the base path for role management.
	Path = handler.AdminPath + "roles"

	// RouteRole addresses a single role.
	RouteRole = Path + "/:id"
	// RoutePermissions addresses the permission grants of a role.
	RoutePermissions = RouteRole + "/permissions"
	// RoutePermission addresses a single permission grant of a role.
	RoutePermission = RoutePermissions + "/:code"
	// RouteUsers lists the users actively holding a role.
	RouteUsers = RouteRole + "/users"

	// ErrFailedLoadRole indicates an unexpected error occurred while loading a single role.
	ErrFailedLoadRole = "Failed to load role"
	// ErrFailedLoadRoles indicates an unexpected error occurred while loading roles.
	ErrFailedLoadRoles = "Failed to load roles"
	// ErrFailedCreateRole indicates the create operation failed.
	ErrFailedCreateRole = "Failed to create role"
	// ErrFailedUpdateRole indicates the update operation failed.
	ErrFailedUpdateRole = "Failed to update role"
	// ErrFailedDeleteRole indicates the delete operation failed.
	ErrFailedDeleteRole = "Failed to delete role"
	// ErrFailedGrant indicates changing the permission grants failed.
	ErrFailedGrant = "Failed to change role permissions"
	// ErrFailedLoadHolders indicates listing the holders of a role failed.
	ErrFailedLoadHolders = "Failed to load role holders"
)

// Service provides the role endpoints.
type Service struct {
	handler.Service
	cfg         *config.Config
	authService *auth.Service
	validator   *validator.Validate
}

// Handler is the exported instance.
var Handler = Service{}

// Init registers routes.
func (s *Service) Init(app *fiber.App, cfg *config.Config, authService *auth.Service) {
	if app == nil || cfg == nil || authService == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.cfg = cfg
	s.authService = authService
	s.validator = validator.New()

	admin := auth.Require(authService.Engine, auth.RequirePermission(cfg.Auth.AdminPermission))

	app.Get(Path, admin, s.List)
	app.Post(Path, admin, s.Create)
	app.Get(RouteRole, admin, s.Get)
	app.Patch(RouteRole, admin, s.Update)
	app.Delete(RouteRole, admin, s.Delete)
	app.Get(RoutePermissions, admin, s.ListPermissions)
	app.Put(RoutePermissions, admin, s.SetPermissions)
	app.Post(RoutePermission, admin, s.GrantPermission)
	app.Delete(RoutePermission, admin, s.RevokePermission)
	app.Get(RouteUsers, admin, s.ListUsers)
}

// List returns all roles.
func (s *Service) List(c *fiber.Ctx) error {
	roles, err := s.authService.Roles.ListRoles(c.UserContext())
	if err != nil {
		return handler.StoreError(c, err, ErrFailedLoadRoles)
	}

	return c.JSON(roles)
}

// Get returns a role with its permission codes.
func (s *Service) Get(c *fiber.Ctx) error {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return handler.Error(c, fiber.StatusBadRequest, handler.ErrInvalidID)
	}

	ctx := c.UserContext()

	role, err := s.authService.Roles.GetRole(ctx, id)
	if err != nil {
		return handler.StoreError(c, err, ErrFailedLoadRole)
	}

	perms, err := s.authService.Roles.ListRolePermissions(ctx, id)
	if err != nil {
		return handler.StoreError(c, err, ErrFailedLoadRole)
	}

	return c.JSON(roleView{Role: *role, Permissions: perms})
}

// Create creates a role with optional initial permissions.
func (s *Service) Create(c *fiber.Ctx) error {
	var in createInput
	if err := c.BodyParser(&in); err != nil {
		return handler.Error(c, fiber.StatusBadRequest, handler.ErrInvalidBody)
	}

	if err := s.validator.Struct(in); err != nil {
		return handler.Error(c, fiber.StatusBadRequest, handler.ErrValidationPrefix+err.Error())
	}

	role, err := s.authService.Roles.CreateRole(c.UserContext(), auth.RoleSpec{
		Name:        in.Name,
		DisplayName: in.DisplayName,
		Description: in.Description,
		Color:       in.Color,
		Permissions: in.Permissions,
	})
	if err != nil {
		return handler.StoreError(c, err, ErrFailedCreateRole)
	}

	log.Info().Str("role", role.Name).Str("by", auth.UserID(c)).Msg("role created")

	return c.Status(fiber.StatusCreated).JSON(role)
}

// Update changes the presentation fields of a role.
func (s *Service) Update(c *fiber.Ctx) error {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return handler.Error(c, fiber.StatusBadRequest, handler.ErrInvalidID)
	}

	var in updateInput
	if err := c.BodyParser(&in); err != nil {
		return handler.Error(c, fiber.StatusBadRequest, handler.ErrInvalidBody)
	}

	if err := s.validator.Struct(in); err != nil {
		return handler.Error(c, fiber.StatusBadRequest, handler.ErrValidationPrefix+err.Error())
	}

	role, err := s.authService.Roles.UpdateRole(c.UserContext(), id, auth.RoleUpdate{
		DisplayName: in.DisplayName,
		Description: in.Description,
		Color:       in.Color,
	})
	if err != nil {
		return handler.StoreError(c, err, ErrFailedUpdateRole)
	}

	return c.JSON(role)
}

// Delete removes a role together with its grants and assignments.
func (s *Service) Delete(c *fiber.Ctx) error {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return handler.Error(c, fiber.StatusBadRequest, handler.ErrInvalidID)
	}

	if err := s.authService.Roles.DeleteRole(c.UserContext(), id); err != nil {
		return handler.StoreError(c, err, ErrFailedDeleteRole)
	}

	log.Info().Uint("role_id", id).Str("by", auth.UserID(c)).Msg("role deleted")

	return c.SendStatus(fiber.StatusNoContent)
}

// ListPermissions returns the permission codes granted to a role.
func (s *Service) ListPermissions(c *fiber.Ctx) error {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return handler.Error(c, fiber.StatusBadRequest, handler.ErrInvalidID)
	}

	perms, err := s.authService.Roles.ListRolePermissions(c.UserContext(), id)
	if err != nil {
		return handler.StoreError(c, err, ErrFailedLoadRole)
	}

	return c.JSON(fiber.Map{"permissions": perms})
}

// SetPermissions replaces the permission grants of a role.
func (s *Service) SetPermissions(c *fiber.Ctx) error {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return handler.Error(c, fiber.StatusBadRequest, handler.ErrInvalidID)
	}

	var in permissionsInput
	if err := c.BodyParser(&in); err != nil {
		return handler.Error(c, fiber.StatusBadRequest, handler.ErrInvalidBody)
	}

	if err := s.validator.Struct(in); err != nil {
		return handler.Error(c, fiber.StatusBadRequest, handler.ErrValidationPrefix+err.Error())
	}

	ctx := c.UserContext()

	if err := s.authService.Roles.SetRolePermissions(ctx, id, in.Permissions); err != nil {
		return handler.StoreError(c, err, ErrFailedGrant)
	}

	perms, err := s.authService.Roles.ListRolePermissions(ctx, id)
	if err != nil {
		return handler.StoreError(c, err, ErrFailedLoadRole)
	}

	return c.JSON(fiber.Map{"permissions": perms})
}

// GrantPermission grants a single permission to a role.
func (s *Service) GrantPermission(c *fiber.Ctx) error {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return handler.Error(c, fiber.StatusBadRequest, handler.ErrInvalidID)
	}

	if err := s.authService.Roles.GrantPermission(c.UserContext(), id, c.Params("code")); err != nil {
		return handler.StoreError(c, err, ErrFailedGrant)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// RevokePermission removes a single permission from a role.
func (s *Service) RevokePermission(c *fiber.Ctx) error {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return handler.Error(c, fiber.StatusBadRequest, handler.ErrInvalidID)
	}

	if err := s.authService.Roles.RevokePermission(c.UserContext(), id, c.Params("code")); err != nil {
		return handler.StoreError(c, err, ErrFailedGrant)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// ListUsers returns the ids of the users actively holding a role.
func (s *Service) ListUsers(c *fiber.Ctx) error {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return handler.Error(c, fiber.StatusBadRequest, handler.ErrInvalidID)
	}

	ctx := c.UserContext()

	if _, err := s.authService.Roles.GetRole(ctx, id); err != nil {
		return handler.StoreError(c, err, ErrFailedLoadRole)
	}

	users, err := s.authService.Assignments.ListUsersForRole(ctx, id)
	if err != nil {
		return handler.StoreError(c, err, ErrFailedLoadHolders)
	}

	return c.JSON(fiber.Map{"users": users})
}

type roleView struct {
	models.Role
	Permissions []string `json:"permissions"`
}
