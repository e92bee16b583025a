// Package assignment provides the admin API for the roles held by users.
package assignment

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/comunidade-central/accessctl/internal/auth"
	"github.com/comunidade-central/accessctl/internal/config"
	"github.com/comunidade-central/accessctl/internal/db/models"
	"github.com/comunidade-central/accessctl/internal/web/handler"
)

const (
	// Path is the base path for the roles of a user.
	Path = handler.AdminPath + "users/:user/roles"

	// RouteRole addresses one assignment of a user.
	RouteRole = Path + "/:id"

	// ErrFailedLoadAssignments indicates listing the assignments failed.
	ErrFailedLoadAssignments = "Failed to load assignments"
	// ErrFailedAssign indicates the assign operation failed.
	ErrFailedAssign = "Failed to assign role"
	// ErrFailedRevoke indicates the revoke operation failed.
	ErrFailedRevoke = "Failed to revoke role"
	// ErrFailedReplace indicates replacing the roles of a user failed.
	ErrFailedReplace = "Failed to replace roles"
	// ErrRoleMissing is returned when neither role_id nor role is given.
	ErrRoleMissing = "role_id or role is required"
	// ErrExpiryInPast is returned for an expiry that already passed.
	ErrExpiryInPast = "expires_at must be in the future"
)

var errMissingUser = errors.New("missing user")

// Service provides the assignment endpoints.
type Service struct {
	handler.Service
	authService *auth.Service
	validator   *validator.Validate
	now         func() time.Time
}

// Handler is the exported instance.
var Handler = Service{}

type assignInput struct {
	RoleID    uint       `json:"role_id"`
	Role      string     `json:"role" validate:"max=100"`
	ExpiresAt *time.Time `json:"expires_at"`
}

type replaceInput struct {
	RoleIDs   []uint     `json:"role_ids" validate:"required,dive,min=1"`
	ExpiresAt *time.Time `json:"expires_at"`
}

type assignmentView struct {
	RoleID     uint       `json:"role_id"`
	Role       string     `json:"role"`
	AssignedBy string     `json:"assigned_by,omitempty"`
	AssignedAt time.Time  `json:"assigned_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	Active     bool       `json:"active"`
}

// Init registers routes.
func (s *Service) Init(app *fiber.App, cfg *config.Config, authService *auth.Service) {
	if app == nil || cfg == nil || authService == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.authService = authService
	s.validator = validator.New()
	s.now = time.Now

	admin := auth.Require(authService.Engine, auth.RequirePermission(cfg.Auth.AdminPermission))

	app.Get(Path, admin, s.List)
	app.Post(Path, admin, s.Assign)
	app.Put(Path, admin, s.Replace)
	app.Delete(RouteRole, admin, s.Revoke)
}

// List returns every assignment of a user, expired ones included.
func (s *Service) List(c *fiber.Ctx) error {
	userID, err := userParam(c)
	if err != nil {
		return handler.Error(c, fiber.StatusBadRequest, auth.ErrUserIDEmpty.Error())
	}

	assignments, err := s.authService.Assignments.ListAssignmentsForUser(c.UserContext(), userID)
	if err != nil {
		return handler.StoreError(c, err, ErrFailedLoadAssignments)
	}

	now := s.now()
	out := make([]assignmentView, 0, len(assignments))

	for i := range assignments {
		out = append(out, view(&assignments[i], now))
	}

	return c.JSON(out)
}

// Assign grants a role, addressed by id or name, to a user.
func (s *Service) Assign(c *fiber.Ctx) error {
	userID, err := userParam(c)
	if err != nil {
		return handler.Error(c, fiber.StatusBadRequest, auth.ErrUserIDEmpty.Error())
	}

	var in assignInput
	if err = c.BodyParser(&in); err != nil {
		return handler.Error(c, fiber.StatusBadRequest, handler.ErrInvalidBody)
	}

	if err = s.validator.Struct(in); err != nil {
		return handler.Error(c, fiber.StatusBadRequest, handler.ErrValidationPrefix+err.Error())
	}

	if in.ExpiresAt != nil && !in.ExpiresAt.After(s.now()) {
		return handler.Error(c, fiber.StatusBadRequest, ErrExpiryInPast)
	}

	ctx := c.UserContext()

	roleID := in.RoleID
	if roleID == 0 {
		if strings.TrimSpace(in.Role) == "" {
			return handler.Error(c, fiber.StatusBadRequest, ErrRoleMissing)
		}

		var role *models.Role

		role, err = s.authService.Roles.GetRoleByName(ctx, in.Role)
		if err != nil {
			return handler.StoreError(c, err, ErrFailedAssign)
		}

		roleID = role.ID
	}

	opts := []auth.AssignOption{auth.WithAssignedBy(auth.UserID(c))}
	if in.ExpiresAt != nil {
		opts = append(opts, auth.WithExpiry(*in.ExpiresAt))
	}

	if err = s.authService.Assignments.Assign(ctx, userID, roleID, opts...); err != nil {
		return handler.StoreError(c, err, ErrFailedAssign)
	}

	log.Info().Str("user_id", userID).Uint("role_id", roleID).Str("by", auth.UserID(c)).Msg("role assigned")

	return c.SendStatus(fiber.StatusCreated)
}

// Replace sets the roles of a user to exactly role_ids and returns the resulting assignments.
// An empty list removes every role.
func (s *Service) Replace(c *fiber.Ctx) error {
	userID, err := userParam(c)
	if err != nil {
		return handler.Error(c, fiber.StatusBadRequest, auth.ErrUserIDEmpty.Error())
	}

	var in replaceInput
	if err = c.BodyParser(&in); err != nil {
		return handler.Error(c, fiber.StatusBadRequest, handler.ErrInvalidBody)
	}

	if err = s.validator.Struct(in); err != nil {
		return handler.Error(c, fiber.StatusBadRequest, handler.ErrValidationPrefix+err.Error())
	}

	if in.ExpiresAt != nil && !in.ExpiresAt.After(s.now()) {
		return handler.Error(c, fiber.StatusBadRequest, ErrExpiryInPast)
	}

	opts := []auth.AssignOption{auth.WithAssignedBy(auth.UserID(c))}
	if in.ExpiresAt != nil {
		opts = append(opts, auth.WithExpiry(*in.ExpiresAt))
	}

	ctx := c.UserContext()

	if err = s.authService.Assignments.SetUserRoles(ctx, userID, in.RoleIDs, opts...); err != nil {
		return handler.StoreError(c, err, ErrFailedReplace)
	}

	log.Info().Str("user_id", userID).Uints("role_ids", in.RoleIDs).Str("by", auth.UserID(c)).Msg("roles replaced")

	return s.List(c)
}

// Revoke removes a role from a user.
func (s *Service) Revoke(c *fiber.Ctx) error {
	userID, err := userParam(c)
	if err != nil {
		return handler.Error(c, fiber.StatusBadRequest, auth.ErrUserIDEmpty.Error())
	}

	roleID, ok := handler.ParseID(c, "id")
	if !ok {
		return handler.Error(c, fiber.StatusBadRequest, handler.ErrInvalidID)
	}

	if err = s.authService.Assignments.Revoke(c.UserContext(), userID, roleID); err != nil {
		return handler.StoreError(c, err, ErrFailedRevoke)
	}

	log.Info().Str("user_id", userID).Uint("role_id", roleID).Str("by", auth.UserID(c)).Msg("role revoked")

	return c.SendStatus(fiber.StatusNoContent)
}

func userParam(c *fiber.Ctx) (string, error) {
	userID := strings.TrimSpace(c.Params("user"))
	if userID == "" {
		return "", errMissingUser
	}

	return userID, nil
}

func view(ur *models.UserRole, now time.Time) assignmentView {
	return assignmentView{
		RoleID:     ur.RoleID,
		Role:       ur.Role.Name,
		AssignedBy: ur.AssignedBy,
		AssignedAt: ur.AssignedAt,
		ExpiresAt:  ur.ExpiresAt,
		Active:     ur.Active(now),
	}
}
