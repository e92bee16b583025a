package auth

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comunidade-central/accessctl/internal/db/controller/requirement"
	"github.com/comunidade-central/accessctl/internal/db/models"
)

func newTestApp(f *fixture) *fiber.App {
	app := fiber.New()

	app.Use(func(c *fiber.Ctx) error {
		if id := c.Get("X-Test-User"); id != "" {
			SetUserID(c, id)
		}

		return c.Next()
	})

	app.Get("/admin", Require(f.svc.Engine, RequirePermission(PermAdministrar)), func(c *fiber.Ctx) error {
		return c.SendString("admin area")
	})

	app.Get("/ghost", Require(f.svc.Engine, RequireAnyRole("ghost-role")), func(c *fiber.Ctx) error {
		return c.SendString("unreachable")
	})

	app.Get("/courses/:id", RequireResource(f.svc, "course", "id", RequireAnyRole(RoleInscrito)), func(c *fiber.Ctx) error {
		return c.SendString("course " + c.Params("id"))
	})

	return app
}

func TestRequireMiddleware(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Assignments.Assign(ctx, "admin", f.admin.ID))
	require.NoError(t, f.svc.Assignments.Assign(ctx, "member", f.inscrito.ID))

	_, err := requirement.Set(f.db, models.ResourceRequirement{
		ResourceType: "course", ResourceID: "open", Kind: models.RequirementPublic,
	})
	require.NoError(t, err)

	app := newTestApp(f)

	tests := []struct {
		name       string
		path       string
		userID     string
		wantStatus int
		wantBody   string
	}{
		{name: "anonymous", path: "/admin", wantStatus: fiber.StatusUnauthorized, wantBody: MsgUnauthenticated},
		{name: "insufficient", path: "/admin", userID: "member", wantStatus: fiber.StatusForbidden, wantBody: MsgAccessDenied},
		{name: "allowed", path: "/admin", userID: "admin", wantStatus: fiber.StatusOK, wantBody: "admin area"},
		{name: "misconfigured", path: "/ghost", userID: "admin", wantStatus: fiber.StatusInternalServerError, wantBody: MsgInternal},
		{name: "stored public resource", path: "/courses/open", wantStatus: fiber.StatusOK, wantBody: "course open"},
		{name: "fallback requirement", path: "/courses/7", userID: "member", wantStatus: fiber.StatusOK, wantBody: "course 7"},
		{name: "fallback denies", path: "/courses/7", userID: "nobody", wantStatus: fiber.StatusForbidden, wantBody: MsgAccessDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.userID != "" {
				req.Header.Set("X-Test-User", tt.userID)
			}

			resp, err := app.Test(req)
			require.NoError(t, err)

			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Contains(t, string(body), tt.wantBody)
			assert.NotContains(t, string(body), RoleAdmin, "denials must not name roles")
		})
	}
}

func TestRequireMiddlewareStoreUnavailable(t *testing.T) {
	f := newFixture(t)
	app := newTestApp(f)

	closeDB(t, f.db)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("X-Test-User", "admin")

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer resp.Body.Close()

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, MsgUnavailable, body["error"])
}

func TestDenyStatus(t *testing.T) {
	assert.Equal(t, fiber.StatusUnauthorized, DenyStatus(ReasonUnauthenticated))
	assert.Equal(t, fiber.StatusForbidden, DenyStatus(ReasonInsufficientRole))
	assert.Equal(t, fiber.StatusInternalServerError, DenyStatus(ReasonRoleNotFound))
}
