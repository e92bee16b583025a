// Package requirement provides the admin API for the access requirements attached to resources.
package requirement

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/comunidade-central/accessctl/internal/auth"
	"github.com/comunidade-central/accessctl/internal/config"
	"github.com/comunidade-central/accessctl/internal/db/controller/requirement"
	"github.com/comunidade-central/accessctl/internal/db/models"
	"github.com/comunidade-central/accessctl/internal/web/handler"
)

const (
	// Path is the base path for resource requirements.
	Path = handler.AdminPath + "requirements"

	// RouteResource addresses the requirement of one resource.
	RouteResource = Path + "/:type/:id"

	// ErrFailedLoadRequirements indicates listing requirements failed.
	ErrFailedLoadRequirements = "Failed to load requirements"
	// ErrFailedLoadRequirement indicates loading a requirement failed.
	ErrFailedLoadRequirement = "Failed to load requirement"
	// ErrFailedSaveRequirement indicates storing a requirement failed.
	ErrFailedSaveRequirement = "Failed to save requirement"
	// ErrFailedDeleteRequirement indicates deleting a requirement failed.
	ErrFailedDeleteRequirement = "Failed to delete requirement"
	// ErrUnknownReferences is returned when the requirement names roles or permissions that do not exist.
	ErrUnknownReferences = "Requirement references unknown roles or permissions"
)

// Service provides the requirement endpoints.
type Service struct {
	handler.Service
	authService *auth.Service
	validator   *validator.Validate
}

// Handler is the exported instance.
var Handler = Service{}

type setInput struct {
	Kind       string   `json:"kind" validate:"required,oneof=public permission roles"`
	Permission string   `json:"permission" validate:"max=100"`
	Roles      []string `json:"roles" validate:"dive,required,max=100"`
}

// Init registers routes.
func (s *Service) Init(app *fiber.App, cfg *config.Config, authService *auth.Service) {
	if app == nil || cfg == nil || authService == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.authService = authService
	s.validator = validator.New()

	admin := auth.Require(authService.Engine, auth.RequirePermission(cfg.Auth.AdminPermission))

	app.Get(Path, admin, s.List)
	app.Get(RouteResource, admin, s.Get)
	app.Put(RouteResource, admin, s.Set)
	app.Delete(RouteResource, admin, s.Delete)
}

// List returns the stored requirements, optionally of one resource type (?type=).
func (s *Service) List(c *fiber.Ctx) error {
	reqs, err := requirement.List(s.authService.DB.WithContext(c.UserContext()), c.Query("type"))
	if err != nil {
		return storeError(c, err, ErrFailedLoadRequirements)
	}

	return c.JSON(reqs)
}

// Get returns the stored requirement of a resource.
func (s *Service) Get(c *fiber.Ctx) error {
	req, err := requirement.Get(s.authService.DB.WithContext(c.UserContext()), c.Params("type"), c.Params("id"))
	if err != nil {
		return storeError(c, err, ErrFailedLoadRequirement)
	}

	return c.JSON(req)
}

// Set creates or replaces the requirement of a resource.
// Every referenced role or permission must exist.
func (s *Service) Set(c *fiber.Ctx) error {
	var in setInput
	if err := c.BodyParser(&in); err != nil {
		return handler.Error(c, fiber.StatusBadRequest, handler.ErrInvalidBody)
	}

	if err := s.validator.Struct(in); err != nil {
		return handler.Error(c, fiber.StatusBadRequest, handler.ErrValidationPrefix+err.Error())
	}

	ctx := c.UserContext()

	var (
		missing []string
		err     error
	)

	permission := strings.TrimSpace(in.Permission)
	roles := auth.RequireAnyRole(in.Roles...).AnyRole

	switch {
	case in.Kind == string(models.RequirementPermission) && permission != "":
		missing, err = s.authService.Roles.MissingPermissions(ctx, []string{permission})
	case in.Kind == string(models.RequirementRoles) && len(roles) > 0:
		missing, err = s.authService.Roles.MissingRoles(ctx, roles)
	}

	if err != nil {
		return handler.StoreError(c, err, ErrFailedSaveRequirement)
	}

	if len(missing) > 0 {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":   ErrUnknownReferences,
			"missing": missing,
		})
	}

	req, err := requirement.Set(s.authService.DB.WithContext(ctx), models.ResourceRequirement{
		ResourceType: c.Params("type"),
		ResourceID:   c.Params("id"),
		Kind:         models.RequirementKind(in.Kind),
		Permission:   in.Permission,
		Roles:        in.Roles,
	})
	if err != nil {
		return storeError(c, err, ErrFailedSaveRequirement)
	}

	log.Info().
		Str("resource_type", req.ResourceType).
		Str("resource_id", req.ResourceID).
		Str("kind", string(req.Kind)).
		Str("by", auth.UserID(c)).
		Msg("resource requirement saved")

	return c.JSON(req)
}

// Delete removes the requirement of a resource. The resource falls back to the default requirement.
func (s *Service) Delete(c *fiber.Ctx) error {
	err := requirement.Delete(s.authService.DB.WithContext(c.UserContext()), c.Params("type"), c.Params("id"))
	if err != nil {
		return storeError(c, err, ErrFailedDeleteRequirement)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func storeError(c *fiber.Ctx, err error, msg string) error {
	switch {
	case errors.Is(err, requirement.ErrRequirementNotFound):
		return handler.Error(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, requirement.ErrResourceEmpty), errors.Is(err, requirement.ErrInvalidKind):
		return handler.Error(c, fiber.StatusBadRequest, err.Error())
	default:
		log.Error().Err(err).Str("path", c.Path()).Msg(msg)
		return handler.Error(c, fiber.StatusServiceUnavailable, auth.MsgUnavailable)
	}
}
