package scopekit

import (
	"context"
	"errors"
)

// ============================================================================
// ROLE LIFECYCLE OPERATIONS
// ============================================================================
//
// These are the administrative operations an API layer exposes. The API
// layer is expected to gate each of them through CheckPermission with the
// matching "<namespace>role.<action>" permission before calling in.

// CreateRole creates a new role with the given permissions. The name must
// be unused and the permissions must pass structural validation; nothing
// is persisted on failure.
func (s *Service) CreateRole(ctx context.Context, roleName string, perms PermissionSet) (*Role, error) {
	if roleName == "" {
		return nil, NewError(ErrValidation, "missing role name")
	}

	exists, err := s.store.RoleExists(ctx, roleName)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, NewError(ErrRoleExists, roleName).WithRole(roleName)
	}

	if err := ValidatePermissionSet(perms, s.namespace); err != nil {
		return nil, err
	}

	role := &Role{
		RoleName:    roleName,
		Users:       []string{},
		Permissions: perms,
	}
	if err := s.store.InsertRole(ctx, role); err != nil {
		return nil, err
	}
	return role, nil
}

// UpdateRole replaces the role's whole permission set. The role must
// already exist and the new permissions must pass the same validation as
// CreateRole.
func (s *Service) UpdateRole(ctx context.Context, roleName string, perms PermissionSet) (*Role, error) {
	role, err := s.store.FindRoleByName(ctx, roleName)
	if err != nil {
		return nil, err
	}

	if err := ValidatePermissionSet(perms, s.namespace); err != nil {
		return nil, err
	}

	role.Permissions = perms
	if err := s.store.SaveRole(ctx, role); err != nil {
		return nil, err
	}
	return role, nil
}

// DeleteRole removes the role and then removes its name from every user
// that held it. By default the user cleanup runs in a background goroutine
// and DeleteRole returns as soon as the role document is gone, so a
// deleted role's name may linger on user documents for a moment; stale
// names are also repaired lazily by CheckPermission. Use
// WithSynchronousCleanup (or Wait) when read-your-writes is required.
func (s *Service) DeleteRole(ctx context.Context, roleName string) error {
	if err := s.store.DeleteRole(ctx, roleName); err != nil {
		return err
	}

	if s.syncCleanup {
		return s.removeRoleFromUsers(ctx, roleName)
	}

	s.cleanups.Add(1)
	go func() {
		defer s.cleanups.Done()
		// The request context is likely gone by the time this runs.
		if err := s.removeRoleFromUsers(context.WithoutCancel(ctx), roleName); err != nil {
			s.logger.Warn("scopekit: role cleanup failed", "role", roleName, "error", err)
		}
	}()
	return nil
}

// removeRoleFromUsers strips roleName from every user holding it. Failures
// on individual users are logged and skipped so one bad document does not
// strand the rest; the final error reflects the listing failure only.
func (s *Service) removeRoleFromUsers(ctx context.Context, roleName string) error {
	users, err := s.store.FindUsersWithRole(ctx, roleName)
	if err != nil {
		return err
	}
	for i := range users {
		user := users[i]
		kept := make([]string, 0, len(user.Roles))
		for _, r := range user.Roles {
			if r != roleName {
				kept = append(kept, r)
			}
		}
		user.Roles = kept
		if err := s.store.SaveUser(ctx, &user); err != nil {
			s.logger.Warn("scopekit: failed to remove role from user",
				"role", roleName, "username", user.Username, "error", err)
		}
	}
	return nil
}

// GetRole returns a single role by name.
func (s *Service) GetRole(ctx context.Context, roleName string) (*Role, error) {
	return s.store.FindRoleByName(ctx, roleName)
}

// ListRoles returns all roles.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.store.ListRoles(ctx)
}

// ListRolesForUser returns the roles currently referenced by the user.
func (s *Service) ListRolesForUser(ctx context.Context, username string) ([]Role, error) {
	user, err := s.store.FindUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.store.FindRolesByNames(ctx, user.Roles)
}

// AddRoleToUser assigns the role to the user, writing both sides of the
// relation: the role name is appended to the user's role list and the
// username to the role's user list. There is no transaction across the two
// documents; the user-side write happens first because CheckPermission
// reads that side.
func (s *Service) AddRoleToUser(ctx context.Context, roleName, username string) error {
	role, err := s.store.FindRoleByName(ctx, roleName)
	if err != nil {
		return err
	}
	user, err := s.store.FindUserByUsername(ctx, username)
	if err != nil {
		return err
	}
	if user.HasRole(roleName) {
		return NewError(ErrRoleAlreadyAssigned, "user already has this role").
			WithRole(roleName).
			WithUser(username)
	}

	user.Roles = append(user.Roles, roleName)
	if err := s.store.SaveUser(ctx, user); err != nil {
		return err
	}
	role.Users = append(role.Users, username)
	return s.store.SaveRole(ctx, role)
}

// RemoveRoleFromUser removes the assignment from both sides of the
// relation.
func (s *Service) RemoveRoleFromUser(ctx context.Context, roleName, username string) error {
	role, err := s.store.FindRoleByName(ctx, roleName)
	if err != nil {
		return err
	}
	user, err := s.store.FindUserByUsername(ctx, username)
	if err != nil {
		return err
	}
	if !user.HasRole(roleName) {
		return NewError(ErrRoleNotAssigned, "user does not have this role").
			WithRole(roleName).
			WithUser(username)
	}

	kept := make([]string, 0, len(user.Roles))
	for _, r := range user.Roles {
		if r != roleName {
			kept = append(kept, r)
		}
	}
	user.Roles = kept
	if err := s.store.SaveUser(ctx, user); err != nil {
		return err
	}

	keptUsers := make([]string, 0, len(role.Users))
	for _, u := range role.Users {
		if u != username {
			keptUsers = append(keptUsers, u)
		}
	}
	role.Users = keptUsers
	return s.store.SaveRole(ctx, role)
}

// RegisterUser stores a new user document with no roles beyond those
// provided. It exists for bootstrapping and tests; user provisioning
// proper belongs to the surrounding application.
func (s *Service) RegisterUser(ctx context.Context, user *User) error {
	if user == nil || user.Username == "" {
		return NewError(ErrValidation, "missing username")
	}
	existing, err := s.store.FindUserByUsername(ctx, user.Username)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return err
	}
	if existing != nil {
		return NewError(ErrValidation, "user already exists").WithUser(user.Username)
	}
	return s.store.SaveUser(ctx, user)
}
