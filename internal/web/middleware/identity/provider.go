package identity

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/comunidade-central/accessctl/internal/auth"
)

// ErrInvalidCredential is returned by a provider for a credential it can not accept.
var ErrInvalidCredential = errors.New("invalid credential")

// Provider extracts the user id from a request.
// Identify returns an empty id and no error when the request carries no credential for it.
type Provider interface {
	Name() string
	Identify(c *fiber.Ctx) (string, error)
}

// Middleware stores the user id found by the first successful provider.
// Nil providers are skipped.
func Middleware(providers ...Provider) fiber.Handler {
	active := make([]Provider, 0, len(providers))

	for _, p := range providers {
		if p != nil {
			active = append(active, p)
		}
	}

	return func(c *fiber.Ctx) error {
		for _, p := range active {
			userID, err := p.Identify(c)
			if err != nil {
				log.Debug().Err(err).Str("provider", p.Name()).Str("path", c.Path()).Msg("credential rejected")
				continue
			}

			if userID != "" {
				auth.SetUserID(c, userID)
				break
			}
		}

		return c.Next()
	}
}

// BearerToken returns the token of an "Authorization: Bearer <token>" header.
func BearerToken(c *fiber.Ctx) string {
	header := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))

	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}

	return strings.TrimSpace(header[len(prefix):])
}
