package assignment

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comunidade-central/accessctl/internal/auth"
	ht "github.com/comunidade-central/accessctl/internal/web/handler/handlertest"
)

func userPath(user string) string {
	return fmt.Sprintf("%susers/%s/roles", "/api/admin/", user)
}

func TestAssignByNameAndID(t *testing.T) {
	f := ht.NewFixture(t)
	app := f.NewApp(&Service{})
	ctx := context.Background()

	resp := ht.Do(t, app, fiber.MethodPost, userPath("maria"), ht.AdminUser, fiber.Map{"role": "inscrito"})
	require.Equal(t, fiber.StatusCreated, resp.Status, string(resp.Body))

	ok, err := f.Service.HasPermission(ctx, "maria", auth.PermCentralAccess)
	require.NoError(t, err)
	assert.True(t, ok)

	resp = ht.Do(t, app, fiber.MethodPost, userPath("maria"), ht.AdminUser, fiber.Map{"role_id": f.Auditor.ID})
	require.Equal(t, fiber.StatusCreated, resp.Status, string(resp.Body))

	resp = ht.Do(t, app, fiber.MethodGet, userPath("maria"), ht.AdminUser, nil)
	require.Equal(t, fiber.StatusOK, resp.Status)

	var list []assignmentView
	resp.Decode(t, &list)
	require.Len(t, list, 2)

	for _, a := range list {
		assert.True(t, a.Active)
		assert.Equal(t, ht.AdminUser, a.AssignedBy)
		assert.Contains(t, []string{auth.RoleInscrito, "AUDITOR"}, a.Role)
	}
}

func TestAssignErrors(t *testing.T) {
	f := ht.NewFixture(t)
	app := f.NewApp(&Service{})

	tests := []struct {
		name   string
		body   any
		status int
	}{
		{name: "duplicate", body: fiber.Map{"role_id": f.Inscrito.ID}, status: fiber.StatusConflict},
		{name: "unknown role id", body: fiber.Map{"role_id": 9999}, status: fiber.StatusNotFound},
		{name: "unknown role name", body: fiber.Map{"role": "ghost"}, status: fiber.StatusNotFound},
		{name: "no role", body: fiber.Map{}, status: fiber.StatusBadRequest},
		{name: "expired", body: fiber.Map{"role": "auditor", "expires_at": time.Now().Add(-time.Hour)}, status: fiber.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ht.Do(t, app, fiber.MethodPost, userPath(ht.MemberUser), ht.AdminUser, tt.body)
			assert.Equal(t, tt.status, resp.Status, string(resp.Body))
		})
	}
}

func TestAssignWithExpiry(t *testing.T) {
	f := ht.NewFixture(t)
	app := f.NewApp(&Service{})

	expires := time.Now().Add(time.Hour).UTC().Truncate(time.Second)

	resp := ht.Do(t, app, fiber.MethodPost, userPath("joao"), ht.AdminUser, fiber.Map{
		"role":       auth.RoleInscrito,
		"expires_at": expires,
	})
	require.Equal(t, fiber.StatusCreated, resp.Status, string(resp.Body))

	resp = ht.Do(t, app, fiber.MethodGet, userPath("joao"), ht.AdminUser, nil)
	require.Equal(t, fiber.StatusOK, resp.Status)

	var list []assignmentView
	resp.Decode(t, &list)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].ExpiresAt)
	assert.True(t, expires.Equal(*list[0].ExpiresAt))
	assert.True(t, list[0].Active)
}

func TestRevoke(t *testing.T) {
	f := ht.NewFixture(t)
	app := f.NewApp(&Service{})
	ctx := context.Background()

	path := fmt.Sprintf("%s/%d", userPath(ht.MemberUser), f.Inscrito.ID)

	resp := ht.Do(t, app, fiber.MethodDelete, path, ht.AdminUser, nil)
	require.Equal(t, fiber.StatusNoContent, resp.Status)

	ok, err := f.Service.HasPermission(ctx, ht.MemberUser, auth.PermCentralAccess)
	require.NoError(t, err)
	assert.False(t, ok)

	// revoking again succeeds
	resp = ht.Do(t, app, fiber.MethodDelete, path, ht.AdminUser, nil)
	assert.Equal(t, fiber.StatusNoContent, resp.Status)

	resp = ht.Do(t, app, fiber.MethodDelete, userPath(ht.MemberUser)+"/abc", ht.AdminUser, nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.Status)
}

func TestRevokeLastAdmin(t *testing.T) {
	f := ht.NewFixture(t)
	app := f.NewApp(&Service{})

	path := fmt.Sprintf("%s/%d", userPath(ht.AdminUser), f.Admin.ID)

	resp := ht.Do(t, app, fiber.MethodDelete, path, ht.AdminUser, nil)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.Status)

	resp = ht.Do(t, app, fiber.MethodPost, userPath("second-admin"), ht.AdminUser, fiber.Map{"role": auth.RoleAdmin})
	require.Equal(t, fiber.StatusCreated, resp.Status)

	resp = ht.Do(t, app, fiber.MethodDelete, path, ht.AdminUser, nil)
	assert.Equal(t, fiber.StatusNoContent, resp.Status)
}

func TestReplace(t *testing.T) {
	f := ht.NewFixture(t)
	app := f.NewApp(&Service{})
	ctx := context.Background()

	resp := ht.Do(t, app, fiber.MethodPut, userPath(ht.MemberUser), ht.AdminUser, fiber.Map{
		"role_ids": []uint{f.Auditor.ID, f.Visitante.ID},
	})
	require.Equal(t, fiber.StatusOK, resp.Status, string(resp.Body))

	var list []assignmentView
	resp.Decode(t, &list)
	require.Len(t, list, 2)

	names := []string{list[0].Role, list[1].Role}
	assert.ElementsMatch(t, []string{"AUDITOR", auth.RoleVisitante}, names)

	ok, err := f.Service.HasPermission(ctx, ht.MemberUser, auth.PermCentralAccess)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.Service.HasPermission(ctx, ht.MemberUser, auth.PermViewAudit)
	require.NoError(t, err)
	assert.True(t, ok)

	resp = ht.Do(t, app, fiber.MethodPut, userPath(ht.MemberUser), ht.AdminUser, fiber.Map{"role_ids": []uint{}})
	require.Equal(t, fiber.StatusOK, resp.Status)
	resp.Decode(t, &list)
	assert.Empty(t, list)
}

func TestReplaceErrors(t *testing.T) {
	f := ht.NewFixture(t)
	app := f.NewApp(&Service{})

	tests := []struct {
		name   string
		user   string
		body   any
		status int
	}{
		{name: "missing list", user: ht.MemberUser, body: fiber.Map{}, status: fiber.StatusBadRequest},
		{name: "zero id", user: ht.MemberUser, body: fiber.Map{"role_ids": []uint{0}}, status: fiber.StatusBadRequest},
		{name: "unknown role", user: ht.MemberUser, body: fiber.Map{"role_ids": []uint{9999}}, status: fiber.StatusNotFound},
		{
			name:   "expiry in the past",
			user:   ht.MemberUser,
			body:   fiber.Map{"role_ids": []uint{f.Inscrito.ID}, "expires_at": time.Now().Add(-time.Hour)},
			status: fiber.StatusBadRequest,
		},
		{name: "last admin", user: ht.AdminUser, body: fiber.Map{"role_ids": []uint{f.Inscrito.ID}}, status: fiber.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ht.Do(t, app, fiber.MethodPut, userPath(tt.user), ht.AdminUser, tt.body)
			assert.Equal(t, tt.status, resp.Status, string(resp.Body))
		})
	}

	// the failed replacements left the member untouched
	ok, err := f.Service.HasPermission(context.Background(), ht.MemberUser, auth.PermCentralAccess)
	require.NoError(t, err)
	assert.True(t, ok)

	resp := ht.Do(t, app, fiber.MethodPut, userPath(ht.MemberUser), ht.MemberUser, fiber.Map{"role_ids": []uint{f.Admin.ID}})
	assert.Equal(t, fiber.StatusForbidden, resp.Status)
}

func TestAssignmentAccessControl(t *testing.T) {
	f := ht.NewFixture(t)
	app := f.NewApp(&Service{})

	resp := ht.Do(t, app, fiber.MethodPost, userPath(ht.MemberUser), ht.MemberUser, fiber.Map{"role": auth.RoleAdmin})
	assert.Equal(t, fiber.StatusForbidden, resp.Status)

	resp = ht.Do(t, app, fiber.MethodGet, userPath(ht.MemberUser), "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.Status)
}
