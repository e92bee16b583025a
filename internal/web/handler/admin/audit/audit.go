// Package audit provides the admin API for reading recorded authorization decisions.
package audit

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/comunidade-central/accessctl/internal/audit"
	"github.com/comunidade-central/accessctl/internal/auth"
	"github.com/comunidade-central/accessctl/internal/config"
	"github.com/comunidade-central/accessctl/internal/web/handler"
)

const (
	// Path is the path of the decision log.
	Path = handler.AdminPath + "audit"

	// ErrInvalidSince is returned for a since parameter that is not RFC 3339.
	ErrInvalidSince = "since must be an RFC 3339 timestamp"
	// ErrInvalidAllowed is returned for an allowed parameter that is not a boolean.
	ErrInvalidAllowed = "allowed must be true or false"
	// ErrFailedLoadEntries indicates reading the decision log failed.
	ErrFailedLoadEntries = "Failed to load audit entries"
)

// Service provides the audit endpoint.
type Service struct {
	handler.Service
	authService *auth.Service
}

// Handler is the exported instance.
var Handler = Service{}

// Init registers routes. Reading the log requires auth.PermViewAudit.
func (s *Service) Init(app *fiber.App, cfg *config.Config, authService *auth.Service) {
	if app == nil || cfg == nil || authService == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.authService = authService

	app.Get(Path, auth.Require(authService.Engine, auth.RequirePermission(auth.PermViewAudit)), s.List)
}

// List returns the newest recorded decisions.
// Query parameters: user_id, reason, allowed, since, limit.
func (s *Service) List(c *fiber.Ctx) error {
	f := audit.Filter{
		UserID: c.Query("user_id"),
		Reason: c.Query("reason"),
		Limit:  handler.PageSize(c),
	}

	if v := c.Query("allowed"); v != "" {
		allowed, err := strconv.ParseBool(v)
		if err != nil {
			return handler.Error(c, fiber.StatusBadRequest, ErrInvalidAllowed)
		}

		f.Allowed = &allowed
	}

	if v := c.Query("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return handler.Error(c, fiber.StatusBadRequest, ErrInvalidSince)
		}

		f.Since = since
	}

	entries, err := audit.List(c.UserContext(), s.authService.DB, f)
	if err != nil {
		log.Error().Err(err).Msg(ErrFailedLoadEntries)
		return handler.Error(c, fiber.StatusServiceUnavailable, auth.MsgUnavailable)
	}

	return c.JSON(entries)
}
