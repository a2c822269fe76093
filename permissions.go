package scopekit

import (
	"strings"
)

// PermissionMatcher handles permission-name matching with wildcard support.
//
// Supported patterns:
//   - "*" matches all permissions
//   - "imyale.game.*" matches any action under imyale.game
//   - "imyale.*.read" matches the read action on any resource
//   - "imyale.game.create" matches exactly
//   - "imyale.game" matches "imyale.game" and everything under it
type PermissionMatcher struct{}

// NewPermissionMatcher creates a new PermissionMatcher.
func NewPermissionMatcher() *PermissionMatcher {
	return &PermissionMatcher{}
}

// Match checks if a defined permission pattern matches a requested
// permission.
//
// Only the pattern's segments are compared, so a pattern with fewer
// segments than the requested name acts as a prefix grant:
//
//	Match("*", "imyale.game.create")             // true - wildcard matches all
//	Match("imyale.game.*", "imyale.game.create") // true - segment wildcard
//	Match("imyale.game", "imyale.game.create")   // true - prefix grant
//	Match("imyale.game.create", "imyale.game.delete") // false
//
// A pattern with more segments than the requested name only matches when
// every surplus segment is "*".
func (pm *PermissionMatcher) Match(pattern, requested string) bool {
	if pattern == "*" {
		return true
	}

	patternParts := strings.Split(pattern, ".")
	requestedParts := strings.Split(requested, ".")

	for i, pp := range patternParts {
		if pp == "*" {
			continue
		}
		if i >= len(requestedParts) || pp != requestedParts[i] {
			return false
		}
	}

	return true
}

// MatchAny checks if any of the defined patterns match the requested
// permission. A literal "*" anywhere in the list matches everything.
func (pm *PermissionMatcher) MatchAny(patterns []string, requested string) bool {
	for _, pattern := range patterns {
		if pattern == "*" {
			return true
		}
	}
	for _, pattern := range patterns {
		if pm.Match(pattern, requested) {
			return true
		}
	}
	return false
}

// Validate checks if a permission name is well formed: either "*" or a
// dot-separated string with no empty segments. Namespace policy is
// enforced separately by the role payload validators.
func (pm *PermissionMatcher) Validate(permission string) error {
	if permission == "" {
		return NewError(ErrInvalidPermission, "permission cannot be empty")
	}
	if permission == "*" {
		return nil
	}
	for _, part := range strings.Split(permission, ".") {
		if part == "" {
			return NewError(ErrInvalidPermission, "permission segments cannot be empty")
		}
	}
	return nil
}

// DefaultPermissionMatcher is the default permission matcher instance.
var DefaultPermissionMatcher = NewPermissionMatcher()

// MatchPermission is a convenience function using the default matcher.
func MatchPermission(pattern, requested string) bool {
	return DefaultPermissionMatcher.Match(pattern, requested)
}

// MatchAnyPermission is a convenience function using the default matcher.
func MatchAnyPermission(patterns []string, requested string) bool {
	return DefaultPermissionMatcher.MatchAny(patterns, requested)
}
