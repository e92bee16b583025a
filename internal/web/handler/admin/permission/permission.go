// Package permission provides the admin API for the permission catalogue.
package permission

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/comunidade-central/accessctl/internal/auth"
	"github.com/comunidade-central/accessctl/internal/config"
	"github.com/comunidade-central/accessctl/internal/web/handler"
)

const (
	// Path is the base path for the permission catalogue.
	Path = handler.AdminPath + "permissions"

	// ErrFailedLoadPermissions indicates listing the catalogue failed.
	ErrFailedLoadPermissions = "Failed to load permissions"
	// ErrFailedCreatePermission indicates the create operation failed.
	ErrFailedCreatePermission = "Failed to create permission"
)

// Service provides the permission endpoints.
type Service struct {
	handler.Service
	authService *auth.Service
	validator   *validator.Validate
}

// Handler is the exported instance.
var Handler = Service{}

type createInput struct {
	Code        string `json:"code" validate:"required,min=1,max=100,excludesall=:"`
	Description string `json:"description" validate:"max=255"`
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
	app.Post(Path, admin, s.Create)
}

// List returns the permission catalogue.
func (s *Service) List(c *fiber.Ctx) error {
	perms, err := s.authService.Roles.ListPermissions(c.UserContext())
	if err != nil {
		return handler.StoreError(c, err, ErrFailedLoadPermissions)
	}

	return c.JSON(perms)
}

// Create adds a permission code to the catalogue.
func (s *Service) Create(c *fiber.Ctx) error {
	var in createInput
	if err := c.BodyParser(&in); err != nil {
		return handler.Error(c, fiber.StatusBadRequest, handler.ErrInvalidBody)
	}

	if err := s.validator.Struct(in); err != nil {
		return handler.Error(c, fiber.StatusBadRequest, handler.ErrValidationPrefix+err.Error())
	}

	perm, err := s.authService.Roles.CreatePermission(c.UserContext(), in.Code, in.Description)
	if err != nil {
		return handler.StoreError(c, err, ErrFailedCreatePermission)
	}

	log.Info().Str("permission", perm.Code).Str("by", auth.UserID(c)).Msg("permission created")

	return c.Status(fiber.StatusCreated).JSON(perm)
}
