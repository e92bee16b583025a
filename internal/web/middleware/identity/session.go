package identity

import (
	"github.com/gofiber/fiber/v2"

	"github.com/comunidade-central/accessctl/internal/web/session"
)

// DefaultCookieName is used when no cookie name is configured.
const DefaultCookieName = "session"

// Session reads the user id from a session stored by the login frontend.
type Session struct {
	cookie string
}

// NewSession creates a session provider reading cookie. session.Init must have been called.
func NewSession(cookie string) *Session {
	if cookie == "" {
		cookie = DefaultCookieName
	}

	return &Session{cookie: cookie}
}

// Name implements Provider.
func (s *Session) Name() string {
	return "session"
}

// Identify implements Provider.
func (s *Session) Identify(c *fiber.Ctx) (string, error) {
	id := c.Cookies(s.cookie)
	if id == "" {
		return "", nil
	}

	data := new(session.Data)
	if err := data.Read(id); err != nil {
		return "", err
	}

	return data.UserID, nil
}
