package scopekit

import (
	"context"
)

// Store is the persistence interface the matching core depends on. It is
// deliberately small: a document store with two collections (roles keyed
// by RoleName, users keyed by Username) is all ScopeKit requires.
//
// Contract for implementations:
//   - Lookups for absent documents return ErrUserNotFound / ErrRoleNotFound
//     (possibly wrapped), never (nil, nil).
//   - FindRolesByNames silently omits names with no matching role; the
//     resolver uses the shrinkage to repair stale user role lists.
//   - Save* replaces the whole document (last write wins); InsertRole fails
//     with ErrRoleExists on a duplicate name.
//   - Returned documents must not alias store-internal state.
type Store interface {
	FindUserByUsername(ctx context.Context, username string) (*User, error)
	SaveUser(ctx context.Context, user *User) error

	FindRoleByName(ctx context.Context, roleName string) (*Role, error)
	FindRolesByNames(ctx context.Context, roleNames []string) ([]Role, error)
	FindUsersWithRole(ctx context.Context, roleName string) ([]User, error)
	RoleExists(ctx context.Context, roleName string) (bool, error)
	InsertRole(ctx context.Context, role *Role) error
	SaveRole(ctx context.Context, role *Role) error
	DeleteRole(ctx context.Context, roleName string) error
	ListRoles(ctx context.Context) ([]Role, error)
}
