package scopekit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestScopeMatcherMatch tests defined-vs-requested scope matching
func TestScopeMatcherMatch(t *testing.T) {
	matcher := NewScopeMatcher(nil)

	tests := []struct {
		name       string
		defined    string
		requested  string
		parameters map[string]string
		expected   bool
	}{
		{
			name:      "Universal wildcard matches anything",
			defined:   "*",
			requested: "user_id=42;game_id=7;",
			expected:  true,
		},
		{
			name:      "Exact value match",
			defined:   "user_id=42",
			requested: "user_id=42",
			expected:  true,
		},
		{
			name:      "Exact value mismatch",
			defined:   "user_id=42",
			requested: "user_id=99",
			expected:  false,
		},
		{
			name:       "Parameter hydration match",
			defined:    "user_id=$user",
			requested:  "user_id=42",
			parameters: map[string]string{"user": "42"},
			expected:   true,
		},
		{
			name:       "Parameter hydration mismatch",
			defined:    "user_id=$user",
			requested:  "user_id=42",
			parameters: map[string]string{"user": "99"},
			expected:   false,
		},
		{
			name:      "Missing parameter hydrates to empty string",
			defined:   "user_id=$user",
			requested: "user_id=42",
			expected:  false,
		},
		{
			name:      "Defined key absent from requested fails",
			defined:   "user_id=42;game_id=7",
			requested: "user_id=42",
			expected:  false,
		},
		{
			name:      "Extra requested keys are ignored",
			defined:   "user_id=42",
			requested: "user_id=42;game_id=7;season=fall",
			expected:  true,
		},
		{
			name:      "Per-key wildcard satisfies the key",
			defined:   "user_id=*",
			requested: "user_id=anything",
			expected:  true,
		},
		{
			name:      "Comma alternatives match any",
			defined:   "team_id=tigers,bears",
			requested: "team_id=bears",
			expected:  true,
		},
		{
			name:      "Comma alternatives none match",
			defined:   "team_id=tigers,bears",
			requested: "team_id=lions",
			expected:  false,
		},
		{
			name:      "Multiple clauses all satisfied",
			defined:   "user_id=42;game_id=7",
			requested: "game_id=7;user_id=42",
			expected:  true,
		},
		{
			name:      "Trailing separator tolerated on both sides",
			defined:   "user_id=42;",
			requested: "user_id=42;",
			expected:  true,
		},

		// Glob values: "*" anchored to the full requested value
		{
			name:      "Glob matches full value",
			defined:   "user_id=a*c",
			requested: "user_id=abc",
			expected:  true,
		},
		{
			name:      "Glob anchored, trailing characters fail",
			defined:   "user_id=a*c",
			requested: "user_id=abcd",
			expected:  false,
		},
		{
			name:      "Glob prefix",
			defined:   "team_id=tigers*",
			requested: "team_id=tigers-b",
			expected:  true,
		},
		{
			name:      "Glob matches empty expansion",
			defined:   "user_id=ab*",
			requested: "user_id=ab",
			expected:  true,
		},

		// Regex metacharacters in values are literal
		{
			name:      "Dot in defined value is literal",
			defined:   "email=a.b@x*",
			requested: "email=aXb@xyale",
			expected:  false,
		},
		{
			name:      "Dot in defined value matches itself",
			defined:   "email=a.b@x*",
			requested: "email=a.b@xyale",
			expected:  true,
		},

		// Malformed defined clauses are skipped, not fatal
		{
			name:      "Malformed defined clause is skipped",
			defined:   "garbage;user_id=42",
			requested: "user_id=42",
			expected:  true,
		},
		{
			name:      "Requested clause without value parses as empty",
			defined:   "flag=",
			requested: "flag",
			expected:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := matcher.Match(tt.defined, tt.requested, tt.parameters)
			assert.Equal(t, tt.expected, result)
		})
	}
}

// TestScopeMatcherMatchAny tests matching against scope lists
func TestScopeMatcherMatchAny(t *testing.T) {
	matcher := NewScopeMatcher(nil)

	// Any one defined scope suffices
	assert.True(t, matcher.MatchAny(
		[]string{"user_id=1", "user_id=42"}, "user_id=42", nil))

	// None match
	assert.False(t, matcher.MatchAny(
		[]string{"user_id=1", "user_id=2"}, "user_id=42", nil))

	// Literal "*" anywhere in the list matches everything
	assert.True(t, matcher.MatchAny(
		[]string{"user_id=1", "*"}, "game_id=7", nil))

	// Empty list imposes no grant
	assert.False(t, matcher.MatchAny(nil, "user_id=42", nil))
}

// TestScopeDictString tests scope serialization
func TestScopeDictString(t *testing.T) {
	assert.Equal(t, "", ScopeDict{}.String())
	assert.Equal(t, "user_id=42;", ScopeDict{"user_id": "42"}.String())

	// Keys are emitted in sorted order for determinism
	assert.Equal(t, "a=1;b=2;", ScopeDict{"b": "2", "a": "1"}.String())

	assert.Equal(t, "a=1;b=2;", ScopeString(map[string]string{"a": "1", "b": "2"}))
}

// TestScopeDictRoundTrip tests that serialized dicts parse back and match
func TestScopeDictRoundTrip(t *testing.T) {
	matcher := NewScopeMatcher(nil)

	requested := ScopeDict{"a": "1", "b": "2"}.String()
	assert.True(t, matcher.Match("a=*;b=*", requested, nil))
	assert.True(t, matcher.Match("a=1;b=2", requested, nil))
	assert.True(t, matcher.Match("a=1;b=2", "a=1;b=2", nil))
}
