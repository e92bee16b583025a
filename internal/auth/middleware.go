package auth

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// UserIDLocal is the fiber.Locals key holding the identified user id.
const UserIDLocal = "user_id"

// Generic messages returned to callers. They never name the roles that would have sufficed.
const (
	MsgUnauthenticated = "authentication required"
	MsgAccessDenied    = "access denied"
	MsgInternal        = "internal error"
	MsgUnavailable     = "service temporarily unavailable"
)

// UserID returns the identified user id of the request, empty for anonymous callers.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(UserIDLocal).(string)
	return id
}

// SetUserID stores the identified user id of the request.
func SetUserID(c *fiber.Ctx, id string) {
	c.Locals(UserIDLocal, id)
}

// Require protects a route with a fixed requirement.
func Require(engine *Engine, req Requirement) fiber.Handler {
	return func(c *fiber.Ctx) error {
		d, err := engine.Decide(c.UserContext(), UserID(c), req)
		if err != nil {
			return ErrorResponse(c, err)
		}

		if !d.Allowed {
			return DenyResponse(c, d)
		}

		return c.Next()
	}
}

// RequireResource protects a route with the stored requirement of the resource
// whose id is in the route parameter idParam. Resources without a stored requirement use fallback.
func RequireResource(svc *Service, resourceType, idParam string, fallback Requirement) fiber.Handler {
	return func(c *fiber.Ctx) error {
		d, _, err := svc.DecideResource(c.UserContext(), UserID(c), resourceType, c.Params(idParam), fallback)
		if err != nil {
			return ErrorResponse(c, err)
		}

		if !d.Allowed {
			return DenyResponse(c, d)
		}

		return c.Next()
	}
}

// DenyStatus maps a denial reason to an HTTP status.
func DenyStatus(r Reason) int {
	switch r {
	case ReasonUnauthenticated:
		return fiber.StatusUnauthorized
	case ReasonInsufficientRole:
		return fiber.StatusForbidden
	default:
		return fiber.StatusInternalServerError
	}
}

// DenyResponse writes the generic response for a denial.
func DenyResponse(c *fiber.Ctx, d Decision) error {
	status := DenyStatus(d.Reason)

	msg := MsgInternal

	switch status {
	case fiber.StatusUnauthorized:
		msg = MsgUnauthenticated
	case fiber.StatusForbidden:
		msg = MsgAccessDenied
	}

	return c.Status(status).JSON(fiber.Map{"error": msg})
}

// ErrorResponse writes the generic response for a decision that could not be made.
func ErrorResponse(c *fiber.Ctx, err error) error {
	if errors.Is(err, ErrStoreUnavailable) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": MsgUnavailable})
	}

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": MsgInternal})
}
