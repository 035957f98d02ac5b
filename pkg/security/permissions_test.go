package security

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetSubjectPermissions(t *testing.T) {
	c := newTestController(t)
	ctx := context.Background()

	require.NoError(t, c.CreateRole(ctx, &Role{ID: "ops", Name: "Ops"}, "admin"))

	require.NoError(t, c.SetSubjectPermissions(ctx, "ops", []string{"server.manage", "server.manage", "user.manage"}, "admin"))
	permissions, err := c.GetSubjectPermissions(ctx, "ops")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"server.manage": true, "user.manage": true}, permissions)

	// Replacement is total: the public grant from role creation is gone too
	assert.False(t, permissions[PermissionPublic])

	require.NoError(t, c.SetSubjectPermissions(ctx, "ops", nil, "admin"))
	permissions, err = c.GetSubjectPermissions(ctx, "ops")
	require.NoError(t, err)
	assert.Empty(t, permissions)
}

func TestGetUserPermissionsUnion(t *testing.T) {
	c := newTestController(t)
	ctx := context.Background()

	require.NoError(t, c.CreateUser(ctx, NewUser("alice")))
	require.NoError(t, c.CreateRole(ctx, &Role{ID: "ops", Name: "Ops"}, "admin"))
	require.NoError(t, c.CreateRole(ctx, &Role{ID: "dev", Name: "Dev"}, "admin"))
	require.NoError(t, c.SetUserRoles(ctx, "alice", []string{"ops", "dev"}, "admin"))

	require.NoError(t, c.SetSubjectPermissions(ctx, "ops", []string{"server.manage"}, "admin"))
	require.NoError(t, c.SetSubjectPermissions(ctx, "dev", []string{"project.edit", "server.manage"}, "admin"))
	require.NoError(t, c.SetSubjectPermissions(ctx, "alice", []string{"session.debug"}, "admin"))

	permissions, err := c.GetUserPermissions(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{
		"server.manage": true,
		"project.edit":  true,
		"session.debug": true,
	}, permissions)
}

func TestGetUserPermissionsNoRoles(t *testing.T) {
	c := newTestController(t)
	ctx := context.Background()

	require.NoError(t, c.CreateUser(ctx, NewUser("alice")))
	require.NoError(t, c.SetSubjectPermissions(ctx, "alice", []string{"session.debug"}, "admin"))

	permissions, err := c.GetUserPermissions(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"session.debug": true}, permissions)
}
