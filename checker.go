package scopekit

import (
	"context"
	"errors"
	"sync"
)

// reservedParameters are scope parameter keys the resolver owns. Values
// supplied by callers under these keys are overwritten from the user
// record.
var reservedParameters = []string{"username", "email", "verified"}

// CheckPermission is the primary authorization gate. It resolves the
// user's roles and reports whether any of them grants the requested
// permission under the requested scope.
//
// The returned user is non-nil when the permission is granted and nil when
// it is denied; a non-nil error only means the user or role lookup failed
// at the store level. An unknown username is a denial, not an error (fail
// closed).
//
// Scope parameters hydrate "$variable" placeholders in role-defined
// scopes. The resolver always injects "username", "email" and "verified"
// ("true"/"false") from the user record, overriding caller-supplied values
// of the same name with a warning.
//
// Role evaluation is concurrent; results are aggregated deterministically
// in role order: a role resolves to a grant only if none of its deny rules
// matches and at least one allow rule does, and the first granting role
// wins. Order between roles carries no precedence, since no role's deny
// can veto another role's allow.
func (s *Service) CheckPermission(ctx context.Context, username, permission, scope string, parameters map[string]string) (*User, error) {
	user, err := s.store.FindUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, nil
		}
		return nil, err
	}

	params := make(map[string]string, len(parameters)+len(reservedParameters))
	for k, v := range parameters {
		params[k] = v
	}
	for _, k := range reservedParameters {
		if _, ok := params[k]; ok {
			s.logger.Warn("scopekit: reserved scope parameter overridden", "parameter", k, "username", username)
		}
	}
	params["username"] = user.Username
	params["email"] = user.Email
	if user.Verified {
		params["verified"] = "true"
	} else {
		params["verified"] = "false"
	}

	roles, err := s.store.FindRolesByNames(ctx, user.Roles)
	if err != nil {
		return nil, err
	}

	// Stale role names on the user document are repaired in place. Two
	// concurrent checks may both issue this save; last write wins and both
	// converge to the same corrected list.
	if len(roles) != len(user.Roles) {
		resolved := make([]string, 0, len(roles))
		for _, role := range roles {
			resolved = append(resolved, role.RoleName)
		}
		user.Roles = resolved
		if err := s.store.SaveUser(ctx, user); err != nil {
			s.logger.Warn("scopekit: failed to repair stale role references",
				"username", username, "error", err)
		}
	}

	// Fan out per-role evaluation (pure computation, no shared state),
	// then pick the first grant in role order so completion order never
	// affects the outcome.
	results := make([]*User, len(roles))
	var wg sync.WaitGroup
	for i, role := range roles {
		wg.Add(1)
		go func(i int, role Role) {
			defer wg.Done()
			results[i] = s.evaluateRole(role, user, permission, scope, params)
		}(i, role)
	}
	wg.Wait()

	for _, result := range results {
		if result != nil {
			return result, nil
		}
	}
	return nil, nil
}

// evaluateRole applies one role's rules: deny wins over allow within the
// role, and a role with no matching rule yields nothing.
func (s *Service) evaluateRole(role Role, user *User, permission, scope string, parameters map[string]string) *User {
	if anyMatches(s.scopes, role.Permissions.Deny, permission, scope, parameters) {
		return nil
	}
	if anyMatches(s.scopes, role.Permissions.Allow, permission, scope, parameters) {
		return user
	}
	return nil
}

// Allowed is a convenience wrapper around CheckPermission for callers that
// only need a boolean. Store failures are logged and reported as a denial.
func (s *Service) Allowed(ctx context.Context, username, permission, scope string, parameters map[string]string) bool {
	user, err := s.CheckPermission(ctx, username, permission, scope, parameters)
	if err != nil {
		s.logger.Warn("scopekit: permission check failed",
			"username", username, "permission", permission, "error", err)
		return false
	}
	return user != nil
}
