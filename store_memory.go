package scopekit

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is a mutex-guarded in-memory Store. It backs the test suite
// and the example application, and is handy for prototyping before wiring
// a DatabaseStore or MongoStore.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]*User
	roles map[string]*Role
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[string]*User),
		roles: make(map[string]*Role),
	}
}

// FindUserByUsername returns the user or ErrUserNotFound.
func (s *MemoryStore) FindUserByUsername(ctx context.Context, username string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[username]
	if !ok {
		return nil, NewError(ErrUserNotFound, username)
	}
	return user.clone(), nil
}

// SaveUser inserts or replaces the user document.
func (s *MemoryStore) SaveUser(ctx context.Context, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users[user.Username] = user.clone()
	return nil
}

// FindRoleByName returns the role or ErrRoleNotFound.
func (s *MemoryStore) FindRoleByName(ctx context.Context, roleName string) (*Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	role, ok := s.roles[roleName]
	if !ok {
		return nil, NewError(ErrRoleNotFound, roleName).WithRole(roleName)
	}
	return role.clone(), nil
}

// FindRolesByNames returns the roles that exist, in the order requested.
// Names without a matching role are omitted.
func (s *MemoryStore) FindRolesByNames(ctx context.Context, roleNames []string) ([]Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	roles := make([]Role, 0, len(roleNames))
	for _, name := range roleNames {
		if role, ok := s.roles[name]; ok {
			roles = append(roles, *role.clone())
		}
	}
	return roles, nil
}

// FindUsersWithRole returns every user whose role list contains roleName.
func (s *MemoryStore) FindUsersWithRole(ctx context.Context, roleName string) ([]User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var users []User
	for _, user := range s.users {
		if user.HasRole(roleName) {
			users = append(users, *user.clone())
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

// RoleExists reports whether a role with the name exists.
func (s *MemoryStore) RoleExists(ctx context.Context, roleName string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.roles[roleName]
	return ok, nil
}

// InsertRole creates the role, failing with ErrRoleExists on duplicates.
func (s *MemoryStore) InsertRole(ctx context.Context, role *Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.roles[role.RoleName]; ok {
		return NewError(ErrRoleExists, role.RoleName).WithRole(role.RoleName)
	}
	s.roles[role.RoleName] = role.clone()
	return nil
}

// SaveRole replaces the role document, failing if it does not exist.
func (s *MemoryStore) SaveRole(ctx context.Context, role *Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.roles[role.RoleName]; !ok {
		return NewError(ErrRoleNotFound, role.RoleName).WithRole(role.RoleName)
	}
	s.roles[role.RoleName] = role.clone()
	return nil
}

// DeleteRole removes the role document, failing if it does not exist.
func (s *MemoryStore) DeleteRole(ctx context.Context, roleName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.roles[roleName]; !ok {
		return NewError(ErrRoleNotFound, roleName).WithRole(roleName)
	}
	delete(s.roles, roleName)
	return nil
}

// ListRoles returns all roles sorted by name.
func (s *MemoryStore) ListRoles(ctx context.Context) ([]Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	roles := make([]Role, 0, len(s.roles))
	for _, role := range s.roles {
		roles = append(roles, *role.clone())
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].RoleName < roles[j].RoleName })
	return roles, nil
}
