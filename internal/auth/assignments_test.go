package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comunidade-central/accessctl/internal/cache"
)

func TestAssignTwiceConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Assignments.Assign(ctx, "u1", f.inscrito.ID, WithAssignedBy("admin-1")))

	err := f.svc.Assignments.Assign(ctx, "u1", f.inscrito.ID)
	require.ErrorIs(t, err, ErrConflict)

	assert.Equal(t, int64(1), f.countAssignments(t, "u1", f.inscrito.ID))

	assignments, err := f.svc.Assignments.ListAssignmentsForUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	assert.Equal(t, "admin-1", assignments[0].AssignedBy)
	assert.Equal(t, RoleInscrito, assignments[0].Role.Name)
	assert.False(t, assignments[0].AssignedAt.IsZero())
}

func TestRevokeIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Assignments.Assign(ctx, "u1", f.inscrito.ID))

	require.NoError(t, f.svc.Assignments.Revoke(ctx, "u1", f.inscrito.ID))
	require.NoError(t, f.svc.Assignments.Revoke(ctx, "u1", f.inscrito.ID))

	assert.Zero(t, f.countAssignments(t, "u1", f.inscrito.ID))

	// unknown role and unknown user are no-ops as well
	require.NoError(t, f.svc.Assignments.Revoke(ctx, "nobody", 999))
}

func TestAssignValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.ErrorIs(t, f.svc.Assignments.Assign(ctx, "u1", 999), ErrNotFound)
	require.ErrorIs(t, f.svc.Assignments.Assign(ctx, " ", f.inscrito.ID), ErrUserIDEmpty)
	require.ErrorIs(t, f.svc.Assignments.Revoke(ctx, "", f.inscrito.ID), ErrUserIDEmpty)
}

func TestListRolesAndUsers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Assignments.Assign(ctx, "u1", f.inscrito.ID))
	require.NoError(t, f.svc.Assignments.Assign(ctx, "u1", f.visitante.ID))
	require.NoError(t, f.svc.Assignments.Assign(ctx, "u2", f.inscrito.ID))

	roles, err := f.svc.Assignments.ListRolesForUser(ctx, "u1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{f.inscrito.ID, f.visitante.ID}, roles)

	roles, err = f.svc.Assignments.ListRolesForUser(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, roles)

	users, err := f.svc.Assignments.ListUsersForRole(ctx, f.inscrito.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2"}, users)
}

func TestRevokeLastCriticalHolder(t *testing.T) {
	f := newFixture(t, WithCriticalRoles(RoleAdmin))
	ctx := context.Background()

	require.NoError(t, f.svc.Assignments.Assign(ctx, "root", f.admin.ID))
	require.NoError(t, f.svc.Assignments.Assign(ctx, "second", f.admin.ID))

	require.NoError(t, f.svc.Assignments.Revoke(ctx, "second", f.admin.ID))

	err := f.svc.Assignments.Revoke(ctx, "root", f.admin.ID)
	require.ErrorIs(t, err, ErrLastCriticalHolder)
	assert.Equal(t, int64(1), f.countAssignments(t, "root", f.admin.ID))

	// non critical roles can lose their last holder
	require.NoError(t, f.svc.Assignments.Assign(ctx, "root", f.inscrito.ID))
	require.NoError(t, f.svc.Assignments.Revoke(ctx, "root", f.inscrito.ID))
}

func TestExpiredHolderDoesNotCountAsCriticalHolder(t *testing.T) {
	f := newFixture(t, WithCriticalRoles(RoleAdmin))
	ctx := context.Background()

	require.NoError(t, f.svc.Assignments.Assign(ctx, "root", f.admin.ID))
	require.NoError(t, f.svc.Assignments.AssignWithExpiry(ctx, "temp", f.admin.ID, "root", time.Now().Add(-time.Minute)))

	require.ErrorIs(t, f.svc.Assignments.Revoke(ctx, "root", f.admin.ID), ErrLastCriticalHolder)

	// removing an expired assignment never locks anyone out
	require.NoError(t, f.svc.Assignments.Revoke(ctx, "temp", f.admin.ID))
}

func TestSetUserRoles(t *testing.T) {
	f := newFixture(t, WithCache(cache.NewMemory(time.Minute)))
	ctx := context.Background()

	require.NoError(t, f.svc.Assignments.Assign(ctx, "u1", f.inscrito.ID, WithAssignedBy("first")))

	perms, err := Resolve(ctx, f.svc.Resolver, "u1")
	require.NoError(t, err)
	assert.True(t, perms.Has(PermCentralAccess))

	ids := []uint{f.visitante.ID, f.admin.ID, f.visitante.ID}
	require.NoError(t, f.svc.Assignments.SetUserRoles(ctx, "u1", ids, WithAssignedBy("second")))

	roles, err := f.svc.Assignments.ListRolesForUser(ctx, "u1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{f.admin.ID, f.visitante.ID}, roles)

	// the cached grants were dropped
	perms, err = Resolve(ctx, f.svc.Resolver, "u1")
	require.NoError(t, err)
	assert.False(t, perms.Has(PermCentralAccess))
	assert.True(t, perms.Has(PermAdministrar))

	// kept assignments are not rewritten
	require.NoError(t, f.svc.Assignments.SetUserRoles(ctx, "u1", []uint{f.admin.ID}, WithAssignedBy("third")))

	assignments, err := f.svc.Assignments.ListAssignmentsForUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	assert.Equal(t, "second", assignments[0].AssignedBy)

	require.NoError(t, f.svc.Assignments.SetUserRoles(ctx, "u1", nil))

	roles, err = f.svc.Assignments.ListRolesForUser(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, roles)
}

func TestSetUserRolesRenewsExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Assignments.AssignWithExpiry(ctx, "u1", f.inscrito.ID, "old", time.Now().Add(-time.Hour)))

	until := time.Now().Add(time.Hour)
	require.NoError(t, f.svc.Assignments.SetUserRoles(ctx, "u1", []uint{f.inscrito.ID}, WithAssignedBy("new"), WithExpiry(until)))

	assignments, err := f.svc.Assignments.ListAssignmentsForUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	assert.Equal(t, "new", assignments[0].AssignedBy)
	assert.True(t, assignments[0].Active(time.Now()))
}

func TestSetUserRolesValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Assignments.Assign(ctx, "u1", f.inscrito.ID))

	require.ErrorIs(t, f.svc.Assignments.SetUserRoles(ctx, " ", []uint{f.inscrito.ID}), ErrUserIDEmpty)
	require.ErrorIs(t, f.svc.Assignments.SetUserRoles(ctx, "u1", []uint{f.admin.ID, 999}), ErrNotFound)

	// nothing changed
	roles, err := f.svc.Assignments.ListRolesForUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []uint{f.inscrito.ID}, roles)
}

func TestSetUserRolesKeepsLastCriticalHolder(t *testing.T) {
	f := newFixture(t, WithCriticalRoles(RoleAdmin))
	ctx := context.Background()

	require.NoError(t, f.svc.Assignments.Assign(ctx, "root", f.admin.ID))

	err := f.svc.Assignments.SetUserRoles(ctx, "root", []uint{f.inscrito.ID})
	require.ErrorIs(t, err, ErrLastCriticalHolder)

	// the transaction rolled back
	roles, err := f.svc.Assignments.ListRolesForUser(ctx, "root")
	require.NoError(t, err)
	assert.Equal(t, []uint{f.admin.ID}, roles)

	require.NoError(t, f.svc.Assignments.Assign(ctx, "second", f.admin.ID))
	require.NoError(t, f.svc.Assignments.SetUserRoles(ctx, "root", []uint{f.inscrito.ID}))
	assert.Zero(t, f.countAssignments(t, "root", f.admin.ID))
}

func TestExpiredAssignment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Assignments.AssignWithExpiry(ctx, "u1", f.inscrito.ID, "admin-1", time.Now().Add(-time.Hour)))

	roles, err := f.svc.Assignments.ListRolesForUser(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, roles)

	users, err := f.svc.Assignments.ListUsersForRole(ctx, f.inscrito.ID)
	require.NoError(t, err)
	assert.Empty(t, users)

	perms, err := Resolve(ctx, f.svc.Resolver, "u1")
	require.NoError(t, err)
	assert.Empty(t, perms)

	// re-assigning an expired pair renews it
	require.NoError(t, f.svc.Assignments.Assign(ctx, "u1", f.inscrito.ID))
	assert.Equal(t, int64(1), f.countAssignments(t, "u1", f.inscrito.ID))

	perms, err = Resolve(ctx, f.svc.Resolver, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{PermCentralAccess}, perms.Sorted())

	assignments, err := f.svc.Assignments.ListAssignmentsForUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	assert.Nil(t, assignments[0].ExpiresAt)
	assert.Empty(t, assignments[0].AssignedBy)
}

func TestAssignmentStoreUnavailable(t *testing.T) {
	f := newFixture(t)
	closeDB(t, f.db)

	ctx := context.Background()

	require.ErrorIs(t, f.svc.Assignments.Assign(ctx, "u1", f.inscrito.ID), ErrStoreUnavailable)
	require.ErrorIs(t, f.svc.Assignments.Revoke(ctx, "u1", f.inscrito.ID), ErrStoreUnavailable)

	_, err := f.svc.Assignments.ListRolesForUser(ctx, "u1")
	require.ErrorIs(t, err, ErrStoreUnavailable)
}
