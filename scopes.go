package scopekit

import (
	"log/slog"
	"regexp"
	"sort"
	"strings"
)

// ScopeDict is a set of key -> value constraints describing the context of
// a request, e.g. {"user_id": "42", "game_id": "7"}. Callers build one
// from request context and serialize it with String before passing it to
// CheckPermission.
type ScopeDict map[string]string

// String serializes the dict into the canonical scope format:
// "key1=value1;key2=value2;". Keys are emitted in sorted order so the
// output is deterministic; the parser rebuilds a lookup, so ordering never
// affects matching. The trailing separator is part of the canonical form
// and the parser tolerates its absence.
func (d ScopeDict) String() string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(d[k])
		b.WriteString(";")
	}
	return b.String()
}

// ScopeString serializes a plain map into the canonical scope format.
// Convenience for callers that do not want to convert to ScopeDict.
func ScopeString(dict map[string]string) string {
	return ScopeDict(dict).String()
}

// ScopeMatcher evaluates defined scope strings against requested scope
// strings, hydrating "$variable" placeholders from scope parameters.
type ScopeMatcher struct {
	logger *slog.Logger
}

// NewScopeMatcher creates a ScopeMatcher. A nil logger falls back to
// slog.Default.
func NewScopeMatcher(logger *slog.Logger) *ScopeMatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScopeMatcher{logger: logger}
}

// Match checks if a defined scope satisfies a requested scope.
//
// The defined scope is a semicolon-joined list of "key=value[,value...]"
// clauses. Values beginning with "$" are replaced by the corresponding
// scope parameter (a single lookup, never recursive; a missing parameter
// hydrates to the empty string). Every key in the defined scope must be
// present in the requested scope and at least one of its values must match
// the requested value, either exactly, via the per-key wildcard "*", or
// via a "*" glob anchored to the whole requested value ("a*c" matches
// "abc" but not "abcd").
//
// Keys absent from the defined scope impose no constraint: extra requested
// keys are ignored.
func (sm *ScopeMatcher) Match(defined, requested string, parameters map[string]string) bool {
	if defined == "*" {
		return true
	}

	definedDict := sm.parseDefined(defined, parameters)
	requestedDict := parseRequested(requested)

	for key, values := range definedDict {
		requestedValue, ok := requestedDict[key]
		if !ok {
			return false
		}

		matched := false
		for _, value := range values {
			if value == "*" {
				matched = true
				break
			}
			if strings.Contains(value, "*") {
				if globMatch(value, requestedValue) {
					matched = true
					break
				}
			} else if value == requestedValue {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

// MatchAny checks if any of the defined scopes satisfies the requested
// scope. A literal "*" anywhere in the list matches everything.
func (sm *ScopeMatcher) MatchAny(defined []string, requested string, parameters map[string]string) bool {
	for _, d := range defined {
		if d == "*" {
			return true
		}
	}
	for _, d := range defined {
		if sm.Match(d, requested, parameters) {
			return true
		}
	}
	return false
}

// parseDefined parses a defined scope string into key -> candidate values,
// hydrating "$variable" references. Malformed clauses (not exactly one
// "=") are logged and skipped rather than failing the whole match.
func (sm *ScopeMatcher) parseDefined(defined string, parameters map[string]string) map[string][]string {
	dict := make(map[string][]string)
	for _, clause := range strings.Split(defined, ";") {
		if clause == "" {
			continue
		}
		parts := strings.Split(clause, "=")
		if len(parts) != 2 {
			sm.logger.Warn("scopekit: invalid scope clause, skipping", "clause", clause)
			continue
		}

		values := strings.Split(parts[1], ",")
		for i, value := range values {
			if strings.HasPrefix(value, "$") {
				values[i] = parameters[value[1:]]
			}
		}
		dict[parts[0]] = values
	}
	return dict
}

// parseRequested parses a requested scope string into key -> value. Only
// the first "=" pair of each clause is meaningful; a clause without "="
// maps its key to the empty string.
func parseRequested(requested string) map[string]string {
	dict := make(map[string]string)
	for _, clause := range strings.Split(requested, ";") {
		if clause == "" {
			continue
		}
		parts := strings.SplitN(clause, "=", 2)
		if len(parts) == 2 {
			dict[parts[0]] = parts[1]
		} else {
			dict[parts[0]] = ""
		}
	}
	return dict
}

// globMatch matches a defined value containing "*" wildcards against the
// entire requested value. All other characters are treated literally, so
// regex metacharacters in scope values cannot alter the match.
func globMatch(pattern, value string) bool {
	parts := strings.Split(pattern, "*")
	for i, part := range parts {
		parts[i] = regexp.QuoteMeta(part)
	}
	re, err := regexp.Compile("^" + strings.Join(parts, ".*") + "$")
	if err != nil {
		return false
	}
	return re.MatchString(value)
}

// DefaultScopeMatcher is the default scope matcher instance.
var DefaultScopeMatcher = NewScopeMatcher(nil)

// MatchScope is a convenience function using the default matcher.
func MatchScope(defined, requested string, parameters map[string]string) bool {
	return DefaultScopeMatcher.Match(defined, requested, parameters)
}

// MatchAnyScope is a convenience function using the default matcher.
func MatchAnyScope(defined []string, requested string, parameters map[string]string) bool {
	return DefaultScopeMatcher.MatchAny(defined, requested, parameters)
}
