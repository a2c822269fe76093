package scopekit

// Rule is a single allow or deny entry in a role's permission set. A rule
// matches a request when any of its Names matches the requested permission
// AND any of its Scopes satisfies the requested scope.
type Rule struct {
	Names       []string `json:"names" bson:"names"`
	Scopes      []string `json:"scopes" bson:"scopes"`
	Description string   `json:"description" bson:"description"`
}

// Matches reports whether this rule applies to the requested permission
// and scope, hydrating scope placeholders from parameters.
func (r Rule) Matches(permission, scope string, parameters map[string]string) bool {
	return r.matches(DefaultScopeMatcher, permission, scope, parameters)
}

func (r Rule) matches(sm *ScopeMatcher, permission, scope string, parameters map[string]string) bool {
	if !MatchAnyPermission(r.Names, permission) {
		return false
	}
	return sm.MatchAny(r.Scopes, scope, parameters)
}

// PermissionSet holds the allow and deny rules of a role. Either list may
// be empty. Within one role a matching deny rule overrides any matching
// allow rule.
type PermissionSet struct {
	Allow []Rule `json:"allow" bson:"allow"`
	Deny  []Rule `json:"deny" bson:"deny"`
}

// anyMatches reports whether any rule in the list applies to the request.
func anyMatches(sm *ScopeMatcher, rules []Rule, permission, scope string, parameters map[string]string) bool {
	for _, rule := range rules {
		if rule.matches(sm, permission, scope, parameters) {
			return true
		}
	}
	return false
}
