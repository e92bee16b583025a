// Package authz provides the decision API used by the community area and its frontends.
//
// Routes:
//
//	GET  /api/me/permissions                 roles and permissions of the caller
//	POST /api/me/check                       decision for the caller and a requirement
//	GET  /api/resources/:type/:id/access     decision for the caller and the requirement of a resource
//	POST /api/authz/decide                   decision for any user, requires the admin permission
//
// Decisions are answered with 200 and {"allowed": bool, "reason": string}.
// Store failures are answered with 503 and never as a denial.
package authz

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/comunidade-central/accessctl/internal/auth"
	"github.com/comunidade-central/accessctl/internal/config"
	"github.com/comunidade-central/accessctl/internal/web/handler"
)

const (
	// PathMyPermissions returns the grants of the caller.
	PathMyPermissions = handler.RootPath + "me/permissions"
	// PathMyCheck decides a requirement for the caller.
	PathMyCheck = handler.RootPath + "me/check"
	// PathResourceAccess decides the stored requirement of a resource for the caller.
	PathResourceAccess = handler.RootPath + "resources/:type/:id/access"
	// PathDecide decides a requirement for any user.
	PathDecide = handler.RootPath + "authz/decide"
)

// Service provides the decision endpoints.
type Service struct {
	handler.Service
	authService *auth.Service
	validator   *validator.Validate
	fallback    auth.Requirement
}

// Handler is the exported instance.
var Handler = Service{}

type requirementInput struct {
	Permission string   `json:"permission" validate:"max=100"`
	AnyRole    []string `json:"any_role" validate:"dive,required,max=100"`
}

type decideInput struct {
	UserID string `json:"user_id" validate:"max=64"`
	requirementInput
}

type grantsView struct {
	UserID      string   `json:"user_id"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
}

// Init registers routes.
// A DefaultRequirement that does not parse falls back to denying every non admin.
func (s *Service) Init(app *fiber.App, cfg *config.Config, authService *auth.Service) {
	if app == nil || cfg == nil || authService == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.authService = authService
	s.validator = validator.New()

	fallback, err := auth.ParseRequirement(cfg.Auth.DefaultRequirement)
	if err != nil {
		log.Error().Err(err).Str("requirement", cfg.Auth.DefaultRequirement).Msg("invalid default requirement")

		fallback = auth.RequirePermission(cfg.Auth.AdminPermission)
	}

	s.fallback = fallback

	app.Get(PathMyPermissions, s.MyPermissions)
	app.Post(PathMyCheck, s.MyCheck)
	app.Get(PathResourceAccess, s.ResourceAccess)
	app.Post(PathDecide,
		auth.Require(authService.Engine, auth.RequirePermission(cfg.Auth.AdminPermission)),
		s.Decide,
	)
}

// MyPermissions returns the active roles and permissions of the caller.
func (s *Service) MyPermissions(c *fiber.Ctx) error {
	userID := auth.UserID(c)
	if userID == "" {
		return auth.DenyResponse(c, auth.Deny(auth.ReasonUnauthenticated, ""))
	}

	g, err := s.authService.Resolver.Grants(c.UserContext(), userID)
	if err != nil {
		return auth.ErrorResponse(c, err)
	}

	return c.JSON(grantsView{
		UserID:      userID,
		Roles:       g.Roles.Sorted(),
		Permissions: g.Permissions.Sorted(),
	})
}

// MyCheck decides a requirement for the caller.
func (s *Service) MyCheck(c *fiber.Ctx) error {
	var in requirementInput
	if err := c.BodyParser(&in); err != nil {
		return handler.Error(c, fiber.StatusBadRequest, handler.ErrInvalidBody)
	}

	if err := s.validator.Struct(in); err != nil {
		return handler.Error(c, fiber.StatusBadRequest, handler.ErrValidationPrefix+err.Error())
	}

	return s.decide(c, auth.UserID(c), in.requirement())
}

// Decide decides a requirement for the user named in the body.
func (s *Service) Decide(c *fiber.Ctx) error {
	var in decideInput
	if err := c.BodyParser(&in); err != nil {
		return handler.Error(c, fiber.StatusBadRequest, handler.ErrInvalidBody)
	}

	if err := s.validator.Struct(in); err != nil {
		return handler.Error(c, fiber.StatusBadRequest, handler.ErrValidationPrefix+err.Error())
	}

	return s.decide(c, strings.TrimSpace(in.UserID), in.requirement())
}

// ResourceAccess decides the stored requirement of a resource for the caller.
// Resources without a stored requirement use the configured default.
func (s *Service) ResourceAccess(c *fiber.Ctx) error {
	d, _, err := s.authService.DecideResource(c.UserContext(), auth.UserID(c), c.Params("type"), c.Params("id"), s.fallback)
	if err != nil {
		return decisionError(c, err)
	}

	return c.JSON(d)
}

func (in requirementInput) requirement() auth.Requirement {
	return auth.Requirement{Permission: in.Permission, AnyRole: in.AnyRole}
}

func (s *Service) decide(c *fiber.Ctx, userID string, req auth.Requirement) error {
	d, err := s.authService.Decide(c.UserContext(), userID, req)
	if err != nil {
		return decisionError(c, err)
	}

	return c.JSON(d)
}

func decisionError(c *fiber.Ctx, err error) error {
	status, msg := handler.StatusFromError(err)
	if status == fiber.StatusBadRequest {
		return handler.Error(c, status, msg)
	}

	return auth.ErrorResponse(c, err)
}
