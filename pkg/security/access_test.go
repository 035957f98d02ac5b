package security

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetSubjectConnectionAccess(t *testing.T) {
	c := newTestController(t)
	ctx := context.Background()

	require.NoError(t, c.CreateUser(ctx, NewUser("alice")))
	require.NoError(t, c.SetSubjectConnectionAccess(ctx, "alice", []string{"ds-1", "ds-2", "ds-1"}, "admin"))

	grants, err := c.GetSubjectConnectionAccess(ctx, []string{"alice"})
	require.NoError(t, err)
	require.Len(t, grants, 2)
	for _, grant := range grants {
		assert.Equal(t, "alice", grant.SubjectID)
		assert.Equal(t, SubjectUser, grant.SubjectKind)
	}

	require.NoError(t, c.SetSubjectConnectionAccess(ctx, "alice", nil, "admin"))
	grants, err = c.GetSubjectConnectionAccess(ctx, []string{"alice"})
	require.NoError(t, err)
	assert.Empty(t, grants)
}

func TestGetSubjectConnectionAccessExpandsRoles(t *testing.T) {
	c := newTestController(t)
	ctx := context.Background()

	require.NoError(t, c.CreateUser(ctx, NewUser("alice")))
	require.NoError(t, c.CreateRole(ctx, &Role{ID: "ops", Name: "Ops"}, "admin"))
	require.NoError(t, c.SetUserRoles(ctx, "alice", []string{"ops"}, "admin"))
	require.NoError(t, c.SetSubjectConnectionAccess(ctx, "ops", []string{"ds-prod"}, "admin"))

	// The role grant reaches the user through role expansion
	grants, err := c.GetSubjectConnectionAccess(ctx, []string{"alice"})
	require.NoError(t, err)
	require.Len(t, grants, 1)
	assert.Equal(t, "ds-prod", grants[0].DataSourceID)
	assert.Equal(t, "ops", grants[0].SubjectID)
	assert.Equal(t, SubjectRole, grants[0].SubjectKind)
}

func TestGetSubjectConnectionAccessEmptyInput(t *testing.T) {
	c := newTestController(t)

	grants, err := c.GetSubjectConnectionAccess(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, grants)
}

func TestSetConnectionSubjectAccess(t *testing.T) {
	c := newTestController(t)
	ctx := context.Background()

	require.NoError(t, c.CreateUser(ctx, NewUser("alice")))
	require.NoError(t, c.CreateRole(ctx, &Role{ID: "ops", Name: "Ops"}, "admin"))
	require.NoError(t, c.SetConnectionSubjectAccess(ctx, "ds-prod", []string{"alice", "ops"}, "admin"))

	grants, err := c.GetConnectionSubjectAccess(ctx, "ds-prod")
	require.NoError(t, err)
	require.Len(t, grants, 2)

	kinds := make(map[string]SubjectKind)
	for _, grant := range grants {
		assert.Equal(t, "ds-prod", grant.DataSourceID)
		kinds[grant.SubjectID] = grant.SubjectKind
	}
	assert.Equal(t, SubjectUser, kinds["alice"])
	assert.Equal(t, SubjectRole, kinds["ops"])

	// Replacement narrows the subject set
	require.NoError(t, c.SetConnectionSubjectAccess(ctx, "ds-prod", []string{"ops"}, "admin"))
	grants, err = c.GetConnectionSubjectAccess(ctx, "ds-prod")
	require.NoError(t, err)
	require.Len(t, grants, 1)
	assert.Equal(t, "ops", grants[0].SubjectID)
}
