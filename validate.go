package scopekit

import (
	"fmt"
	"strings"
)

// ValidateRule checks one allow/deny rule for structural validity:
// names and scopes must be non-empty-string entries, every name must be
// well formed and carry the namespace prefix, and a rule must grant at
// least one name. Validation is fail-fast: the first problem found is
// returned as a descriptive ErrValidation.
func ValidateRule(rule Rule, namespace string) error {
	if len(rule.Names) == 0 {
		return NewError(ErrValidation, "rule must have at least one name")
	}
	for _, name := range rule.Names {
		if name == "" {
			return NewError(ErrValidation, "rule names cannot be empty")
		}
		if err := DefaultPermissionMatcher.Validate(name); err != nil {
			return NewError(ErrValidation, fmt.Sprintf("invalid name %q", name))
		}
		if namespace != "" && !strings.HasPrefix(name, namespace) {
			return NewError(ErrValidation,
				fmt.Sprintf("name %q must start with %q", name, namespace))
		}
	}
	for _, scope := range rule.Scopes {
		if scope == "" {
			return NewError(ErrValidation, "rule scopes cannot be empty")
		}
	}
	return nil
}

// ValidatePermissionSet checks every allow and deny rule in the set,
// returning the first failure.
func ValidatePermissionSet(perms PermissionSet, namespace string) error {
	for _, rule := range perms.Allow {
		if err := ValidateRule(rule, namespace); err != nil {
			return err
		}
	}
	for _, rule := range perms.Deny {
		if err := ValidateRule(rule, namespace); err != nil {
			return err
		}
	}
	return nil
}
