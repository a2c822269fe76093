package scopekit

// Role is a named bundle of allow/deny rules assignable to multiple users.
// RoleName is globally unique. Users mirrors User.Roles: both sides of the
// many-to-many relation are written explicitly by AddRoleToUser and
// RemoveRoleFromUser. A role referenced by zero users is valid and is
// never deleted automatically.
type Role struct {
	RoleName    string        `json:"roleName" bson:"roleName"`
	Users       []string      `json:"users" bson:"users"`
	Permissions PermissionSet `json:"permissions" bson:"permissions"`
}

// User is the subject of authorization checks. Roles holds role names and
// is kept eventually consistent with Role.Users; stale entries are
// repaired by CheckPermission on the next resolution.
type User struct {
	Username string   `json:"username" bson:"username"`
	Email    string   `json:"email" bson:"email"`
	Roles    []string `json:"roles" bson:"roles"`
	Verified bool     `json:"verified" bson:"verified"`
}

// HasRole reports whether the user's role list contains the role name.
// This checks membership only; permission checks go through
// Service.CheckPermission.
func (u *User) HasRole(roleName string) bool {
	for _, r := range u.Roles {
		if r == roleName {
			return true
		}
	}
	return false
}

// clone returns a deep copy so store implementations and callers never
// alias each other's slices.
func (u *User) clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.Roles = append([]string(nil), u.Roles...)
	return &c
}

func (r *Role) clone() *Role {
	if r == nil {
		return nil
	}
	c := *r
	c.Users = append([]string(nil), r.Users...)
	c.Permissions = r.Permissions.clone()
	return &c
}

func (ps PermissionSet) clone() PermissionSet {
	return PermissionSet{
		Allow: cloneRules(ps.Allow),
		Deny:  cloneRules(ps.Deny),
	}
}

func cloneRules(rules []Rule) []Rule {
	if rules == nil {
		return nil
	}
	out := make([]Rule, len(rules))
	for i, rule := range rules {
		out[i] = Rule{
			Names:       append([]string(nil), rule.Names...),
			Scopes:      append([]string(nil), rule.Scopes...),
			Description: rule.Description,
		}
	}
	return out
}
