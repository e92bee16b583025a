// Package handlertest provides a seeded database and request helpers for handler tests.
package handlertest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/comunidade-central/accessctl/internal/auth"
	"github.com/comunidade-central/accessctl/internal/config"
	"github.com/comunidade-central/accessctl/internal/db/models"
	"github.com/comunidade-central/accessctl/internal/web/handler"
)

// UserHeader carries the user id of a test request.
const UserHeader = "X-Test-User"

// Seeded user ids.
const (
	AdminUser   = "admin-user"
	AuditorUser = "auditor-user"
	MemberUser  = "member-user"
)

// Fixture is a database seeded with the built-in roles.
//
//	ADMIN      administrar, manage_roles, view_audit  held by AdminUser
//	INSCRITO   central_access                         held by MemberUser
//	AUDITOR    view_audit                             held by AuditorUser
//	VISITANTE  nothing
type Fixture struct {
	DB        *gorm.DB
	Config    *config.Config
	Service   *auth.Service
	Admin     *models.Role
	Inscrito  *models.Role
	Auditor   *models.Role
	Visitante *models.Role
}

// NewDB creates an in-memory SQLite database with the full schema.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "failed to create test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)

	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(models.All()...), "failed to migrate test database")

	t.Cleanup(func() { _ = sqlDB.Close() })

	return db
}

// NewFixture seeds a database and builds the auth service over it.
func NewFixture(t *testing.T, opts ...auth.ServiceOption) *Fixture {
	t.Helper()

	db := NewDB(t)
	svc := auth.NewService(db, append([]auth.ServiceOption{auth.WithCriticalRoles(auth.RoleAdmin)}, opts...)...)
	ctx := context.Background()

	for _, code := range []string{
		auth.PermAdministrar, auth.PermManageRoles, auth.PermViewAudit, auth.PermCentralAccess,
	} {
		_, err := svc.Roles.CreatePermission(ctx, code, "")
		require.NoError(t, err)
	}

	f := &Fixture{
		DB:      db,
		Service: svc,
		Config: &config.Config{
			Auth: config.Auth{
				AdminPermission:    auth.PermManageRoles,
				DefaultRequirement: "permission:" + auth.PermCentralAccess,
			},
		},
	}

	var err error

	f.Admin, err = svc.Roles.CreateRole(ctx, auth.RoleSpec{
		Name:        auth.RoleAdmin,
		IsSystem:    true,
		Permissions: []string{auth.PermAdministrar, auth.PermManageRoles, auth.PermViewAudit},
	})
	require.NoError(t, err)

	f.Inscrito, err = svc.Roles.CreateRole(ctx, auth.RoleSpec{
		Name: auth.RoleInscrito, IsSystem: true, Permissions: []string{auth.PermCentralAccess},
	})
	require.NoError(t, err)

	f.Auditor, err = svc.Roles.CreateRole(ctx, auth.RoleSpec{Name: "AUDITOR", Permissions: []string{auth.PermViewAudit}})
	require.NoError(t, err)

	f.Visitante, err = svc.Roles.CreateRole(ctx, auth.RoleSpec{Name: auth.RoleVisitante, IsSystem: true})
	require.NoError(t, err)

	require.NoError(t, svc.Assignments.Assign(ctx, AdminUser, f.Admin.ID))
	require.NoError(t, svc.Assignments.Assign(ctx, MemberUser, f.Inscrito.ID))
	require.NoError(t, svc.Assignments.Assign(ctx, AuditorUser, f.Auditor.ID))

	return f
}

// NewApp creates a fiber app identifying callers by UserHeader and initialises the given handlers.
func (f *Fixture) NewApp(services ...handler.Service) *fiber.App {
	app := fiber.New()

	app.Use(func(c *fiber.Ctx) error {
		if id := c.Get(UserHeader); id != "" {
			auth.SetUserID(c, id)
		}

		return c.Next()
	})

	for _, s := range services {
		s.Init(app, f.Config, f.Service)
	}

	return app
}

// Response is a recorded test response.
type Response struct {
	Status int
	Body   []byte
}

// Decode unmarshals the body into v.
func (r Response) Decode(t *testing.T, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.Body, v), string(r.Body))
}

// Error returns the "error" field of the body.
func (r Response) Error(t *testing.T) string {
	t.Helper()

	var body struct {
		Error string `json:"error"`
	}

	r.Decode(t, &body)

	return body.Error
}

// Do sends a request as user. A non-nil body is sent as JSON.
func Do(t *testing.T, app *fiber.App, method, path, user string, body any) Response {
	t.Helper()

	var reader io.Reader = http.NoBody

	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)

		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}

	if user != "" {
		req.Header.Set(UserHeader, user)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return Response{Status: resp.StatusCode, Body: raw}
}
