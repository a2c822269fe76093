package scopekit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSeederBuild tests the fluent role builder
func TestSeederBuild(t *testing.T) {
	roles := NewSeeder().
		Role("admin").
		Allow("imyale.*").Scopes("*").Describe("Full access").
		Role("referee").
		Allow("imyale.game.update").Scopes("game_id=$game").
		Deny("imyale.role.*").
		Roles()

	require.Len(t, roles, 2)

	admin := roles[0]
	assert.Equal(t, "admin", admin.RoleName)
	assert.Equal(t, []string{}, admin.Users)
	require.Len(t, admin.Permissions.Allow, 1)
	assert.Equal(t, []string{"imyale.*"}, admin.Permissions.Allow[0].Names)
	assert.Equal(t, []string{"*"}, admin.Permissions.Allow[0].Scopes)
	assert.Equal(t, "Full access", admin.Permissions.Allow[0].Description)

	referee := roles[1]
	require.Len(t, referee.Permissions.Allow, 1)
	assert.Equal(t, []string{"game_id=$game"}, referee.Permissions.Allow[0].Scopes)
	require.Len(t, referee.Permissions.Deny, 1)
	// Deny scopes default to "*"
	assert.Equal(t, []string{"*"}, referee.Permissions.Deny[0].Scopes)
}

// TestSeederWithoutRole tests that rule calls before any Role are ignored
func TestSeederWithoutRole(t *testing.T) {
	roles := NewSeeder().Allow("imyale.game.read").Scopes("*").Roles()
	assert.Empty(t, roles)
}

// TestSeedIdempotent tests that seeding never clobbers existing roles
func TestSeedIdempotent(t *testing.T) {
	service := New(NewMemoryStore())
	ctx := context.Background()

	// Pre-existing role with operator edits
	_, err := service.CreateRole(ctx, "admin", PermissionSet{
		Allow: []Rule{{Names: []string{"imyale.game.read"}, Scopes: []string{"*"}}},
	})
	require.NoError(t, err)

	seed := NewSeeder().
		Role("admin").Allow("imyale.*").Scopes("*").
		Role("default").Allow("imyale.home.read").Scopes("*").
		Roles()

	require.NoError(t, service.Seed(ctx, seed...))
	require.NoError(t, service.Seed(ctx, seed...))

	roles, err := service.ListRoles(ctx)
	require.NoError(t, err)
	require.Len(t, roles, 2)

	// The pre-existing admin kept its narrower grant
	admin, err := service.GetRole(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, []string{"imyale.game.read"}, admin.Permissions.Allow[0].Names)
}

// TestDefaultRoles tests the shipped role set end to end
func TestDefaultRoles(t *testing.T) {
	service := New(NewMemoryStore())
	ctx := context.Background()

	require.NoError(t, service.Seed(ctx, DefaultRoles()...))

	roles, err := service.ListRoles(ctx)
	require.NoError(t, err)
	assert.Len(t, roles, 4)

	require.NoError(t, service.RegisterUser(ctx, &User{Username: "root", Verified: true}))
	require.NoError(t, service.RegisterUser(ctx, &User{Username: "alice", Verified: true}))
	require.NoError(t, service.RegisterUser(ctx, &User{Username: "newbie"}))
	require.NoError(t, service.AddRoleToUser(ctx, "admin", "root"))
	require.NoError(t, service.AddRoleToUser(ctx, "user", "alice"))
	require.NoError(t, service.AddRoleToUser(ctx, "unverified", "newbie"))

	// Admin can do anything in the namespace
	assert.True(t, service.Allowed(ctx, "root", "imyale.role.create", "*", nil))
	assert.True(t, service.Allowed(ctx, "root", "imyale.game.delete", "game_id=7", nil))

	// A user reads their own record only
	assert.True(t, service.Allowed(ctx, "alice", "imyale.user.read", "username=alice", nil))
	assert.False(t, service.Allowed(ctx, "alice", "imyale.user.read", "username=root", nil))
	assert.False(t, service.Allowed(ctx, "alice", "imyale.role.create", "*", nil))

	// Unverified accounts may only sign up, log in as themselves and verify
	assert.True(t, service.Allowed(ctx, "newbie", "imyale.user.verify", "*", nil))
	assert.True(t, service.Allowed(ctx, "newbie", "imyale.user.login", "username=newbie", nil))
	assert.False(t, service.Allowed(ctx, "newbie", "imyale.user.login", "username=alice", nil))
	assert.False(t, service.Allowed(ctx, "newbie", "imyale.game.read", "*", nil))
}
