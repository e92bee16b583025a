package handler

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/comunidade-central/accessctl/internal/auth"
)

// Error writes {"error": msg} with status.
func Error(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"error": msg})
}

// StatusFromError maps an error of the auth stores to an HTTP status and a message safe to return.
func StatusFromError(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrStoreUnavailable):
		return fiber.StatusServiceUnavailable, auth.MsgUnavailable
	case errors.Is(err, auth.ErrNotFound):
		return fiber.StatusNotFound, err.Error()
	case errors.Is(err, auth.ErrConflict):
		return fiber.StatusConflict, err.Error()
	case errors.Is(err, auth.ErrSystemRole), errors.Is(err, auth.ErrLastCriticalHolder):
		return fiber.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, auth.ErrInvalidRequirement),
		errors.Is(err, auth.ErrRoleNameEmpty),
		errors.Is(err, auth.ErrPermissionCodeEmpty),
		errors.Is(err, auth.ErrUserIDEmpty):
		return fiber.StatusBadRequest, err.Error()
	default:
		return fiber.StatusInternalServerError, auth.MsgInternal
	}
}

// StoreError logs err and writes the matching response.
func StoreError(c *fiber.Ctx, err error, msg string) error {
	status, text := StatusFromError(err)
	if status >= fiber.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Path()).Msg(msg)
	} else {
		log.Debug().Err(err).Str("path", c.Path()).Msg(msg)
	}

	return Error(c, status, text)
}

// ParseID reads a positive numeric route parameter.
func ParseID(c *fiber.Ctx, param string) (uint, bool) {
	id, err := strconv.ParseUint(c.Params(param), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}

	return uint(id), true
}

// PageSize reads the "limit" query parameter, clamped to MaxPageSize.
func PageSize(c *fiber.Ctx) int {
	limit := c.QueryInt("limit", DefaultPageSize)
	if limit < 1 || limit > MaxPageSize {
		limit = DefaultPageSize
	}

	return limit
}
