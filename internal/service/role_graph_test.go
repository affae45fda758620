package service

import (
	"context"
	"errors"
	"testing"

	"accounts/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleGraph_SetupDefaultsIsIdempotent(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()

	require.NoError(t, env.graph.SetupDefaults(ctx))

	permissions, err := env.roles.ListPermissions(ctx)
	require.NoError(t, err)
	assert.Len(t, permissions, 4)

	roles, err := env.graph.ListRoles(ctx)
	require.NoError(t, err)
	require.Len(t, roles, 3)

	names := make([]string, 0, len(roles))
	for _, role := range roles {
		names = append(names, role.Name)
	}
	assert.ElementsMatch(t, []string{entity.RoleUser, entity.RoleEditor, entity.RoleAdmin}, names)
}

func TestRoleGraph_DefaultRole(t *testing.T) {
	ctx := context.Background()

	empty := newTestEnv(t, false)
	role, err := empty.graph.DefaultRole(ctx)
	require.NoError(t, err)
	assert.Nil(t, role)

	seeded := newTestEnv(t, true)
	role, err = seeded.graph.DefaultRole(ctx)
	require.NoError(t, err)
	require.NotNil(t, role)
	assert.Equal(t, entity.RoleUser, role.Name)
	assert.True(t, role.HasPermission(entity.PermissionRead))
	assert.False(t, role.HasPermission(entity.PermissionWrite))
}

func TestRoleGraph_HasPermission(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()

	editor, err := env.roles.FindRoleByName(ctx, entity.RoleEditor)
	require.NoError(t, err)

	// Roles attached without permissions are resolved through the store.
	user := &entity.User{Roles: []entity.Role{{ID: editor.ID, Name: editor.Name}}}

	tests := []struct {
		permission string
		want       bool
	}{
		{entity.PermissionRead, true},
		{entity.PermissionWrite, true},
		{entity.PermissionDelete, false},
		{entity.PermissionAdmin, false},
		{"unknown", false},
	}
	for _, tt := range tests {
		t.Run(tt.permission, func(t *testing.T) {
			got, err := env.graph.HasPermission(ctx, user, tt.permission)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRoleGraph_NoRolesHasNoPermissions(t *testing.T) {
	env := newTestEnv(t, true)

	got, err := env.graph.HasPermission(context.Background(), &entity.User{}, entity.PermissionRead)
	require.NoError(t, err)
	assert.False(t, got)
}

func TestRoleGraph_HasPermissionStoreError(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()

	admin, err := env.roles.FindRoleByName(ctx, entity.RoleAdmin)
	require.NoError(t, err)
	env.roles.Err = errors.New("connection refused")

	_, err = env.graph.HasPermission(ctx, &entity.User{Roles: []entity.Role{{ID: admin.ID}}}, entity.PermissionAdmin)
	assert.Error(t, err)
}

func TestRoleGraph_HasRole(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()

	admin, err := env.roles.FindRoleByName(ctx, entity.RoleAdmin)
	require.NoError(t, err)
	user := &entity.User{Roles: []entity.Role{*admin}}

	assert.True(t, env.graph.HasRole(user, entity.RoleAdmin))
	assert.True(t, env.graph.HasRole(user, admin.ID.String()))
	assert.False(t, env.graph.HasRole(user, entity.RoleEditor))
	assert.False(t, env.graph.HasRole(&entity.User{}, entity.RoleAdmin))
}

func TestRoleGraph_EffectivePermissions(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()

	userRole, err := env.roles.FindRoleByName(ctx, entity.RoleUser)
	require.NoError(t, err)
	editor, err := env.roles.FindRoleByName(ctx, entity.RoleEditor)
	require.NoError(t, err)

	permissions, err := env.graph.EffectivePermissions(ctx, &entity.User{Roles: []entity.Role{*userRole, *editor}})
	require.NoError(t, err)
	assert.Equal(t, []string{entity.PermissionRead, entity.PermissionWrite}, permissions)
}
