package service

import (
	"context"
	"fmt"
	"sort"

	"accounts/internal/entity"
	"accounts/internal/repository"

	"github.com/google/uuid"
)

type roleDefinition struct {
	name        string
	description string
	permissions []string
}

var defaultPermissions = []entity.Permission{
	{Name: entity.PermissionRead, Description: "Read access"},
	{Name: entity.PermissionWrite, Description: "Write access"},
	{Name: entity.PermissionDelete, Description: "Delete access"},
	{Name: entity.PermissionAdmin, Description: "Administrative access"},
}

var defaultRoles = []roleDefinition{
	{
		name:        entity.RoleUser,
		description: "Regular user",
		permissions: []string{entity.PermissionRead},
	},
	{
		name:        entity.RoleEditor,
		description: "Can read and write content",
		permissions: []string{entity.PermissionRead, entity.PermissionWrite},
	},
	{
		name:        entity.RoleAdmin,
		description: "Full access",
		permissions: []string{entity.PermissionRead, entity.PermissionWrite, entity.PermissionDelete, entity.PermissionAdmin},
	},
}

// RoleGraph resolves users to roles to permissions.
type RoleGraph struct {
	roles repository.RoleRepository
}

func NewRoleGraph(roles repository.RoleRepository) *RoleGraph {
	return &RoleGraph{roles: roles}
}

// SetupDefaults upserts the built-in permissions and roles by name. Running
// it again converges on the same four permissions and three roles.
func (g *RoleGraph) SetupDefaults(ctx context.Context) error {
	byName := make(map[string]entity.Permission, len(defaultPermissions))
	for _, permission := range defaultPermissions {
		permission := permission
		if err := g.roles.UpsertPermission(ctx, &permission); err != nil {
			return fmt.Errorf("upsert permission %s: %w", permission.Name, err)
		}
		byName[permission.Name] = permission
	}

	for _, definition := range defaultRoles {
		permissions := make([]entity.Permission, 0, len(definition.permissions))
		for _, name := range definition.permissions {
			permissions = append(permissions, byName[name])
		}
		role := entity.Role{Name: definition.name, Description: definition.description}
		if err := g.roles.UpsertRole(ctx, &role, permissions); err != nil {
			return fmt.Errorf("upsert role %s: %w", definition.name, err)
		}
	}
	return nil
}

// DefaultRole returns the role new users receive, or nil when it has not
// been seeded.
func (g *RoleGraph) DefaultRole(ctx context.Context) (*entity.Role, error) {
	role, err := g.roles.FindRoleByName(ctx, entity.RoleUser)
	if err != nil {
		return nil, fmt.Errorf("find default role: %w", err)
	}
	return role, nil
}

func (g *RoleGraph) HasPermission(ctx context.Context, user *entity.User, permission string) (bool, error) {
	roles, err := g.resolveRoles(ctx, user)
	if err != nil {
		return false, err
	}
	for i := range roles {
		if roles[i].HasPermission(permission) {
			return true, nil
		}
	}
	return false, nil
}

// HasRole matches roleNameOrID against each role's name and id.
func (g *RoleGraph) HasRole(user *entity.User, roleNameOrID string) bool {
	for _, role := range user.Roles {
		if role.Name == roleNameOrID || role.ID.String() == roleNameOrID {
			return true
		}
	}
	return false
}

func (g *RoleGraph) EffectivePermissions(ctx context.Context, user *entity.User) ([]string, error) {
	roles, err := g.resolveRoles(ctx, user)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	for _, role := range roles {
		for _, permission := range role.Permissions {
			seen[permission.Name] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (g *RoleGraph) ListRoles(ctx context.Context) ([]entity.Role, error) {
	roles, err := g.roles.ListRoles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	return roles, nil
}

// resolveRoles loads permission details for roles that arrived without them.
func (g *RoleGraph) resolveRoles(ctx context.Context, user *entity.User) ([]entity.Role, error) {
	if user == nil || len(user.Roles) == 0 {
		return nil, nil
	}
	var missing []uuid.UUID
	for _, role := range user.Roles {
		if role.Permissions == nil {
			missing = append(missing, role.ID)
		}
	}
	if len(missing) == 0 {
		return user.Roles, nil
	}

	loaded, err := g.roles.FindRolesByIDs(ctx, missing)
	if err != nil {
		return nil, fmt.Errorf("load role permissions: %w", err)
	}
	byID := make(map[uuid.UUID]entity.Role, len(loaded))
	for _, role := range loaded {
		byID[role.ID] = role
	}
	resolved := make([]entity.Role, 0, len(user.Roles))
	for _, role := range user.Roles {
		if role.Permissions == nil {
			if full, ok := byID[role.ID]; ok {
				role = full
			}
		}
		resolved = append(resolved, role)
	}
	return resolved, nil
}
