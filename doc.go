// Package scopekit provides scoped, allow/deny role-based access control
// with wildcard permission names and parameterized scope constraints.
//
// ScopeKit grew out of an intramural-sports backend where every privileged
// API action is gated by a single question: "may this user perform this
// permission under this scope?". Roles are persisted documents (not code),
// so operators can create and edit them at runtime through the role
// lifecycle operations.
//
// # Core Concepts
//
// Permission name: a dot-separated string identifying an action, e.g.
// "imyale.game.create". Any segment of a defined name may be the wildcard
// "*". A defined name that is shorter than the requested name matches as a
// prefix: "imyale.game" grants everything under "imyale.game.". This is
// deliberate shorthand and existing policies rely on it.
//
// Scope: a set of key=value constraints under which a grant applies,
// serialized as "user_id=42;game_id=7;". A defined scope value may be a
// comma-separated list of alternatives, the wildcard "*", a glob such as
// "team_*", or a "$variable" placeholder hydrated from caller-supplied
// scope parameters at check time.
//
// Role: a named bundle of allow and deny rules assignable to many users.
// Within one role a matching deny rule always overrides a matching allow
// rule. Across roles the first role that resolves to a grant wins.
//
// # Basic Usage
//
//	store := scopekit.NewMemoryStore()
//	service := scopekit.New(store)
//
//	// Define a role (normally done once, via the admin API or seeding).
//	service.CreateRole(ctx, "captain", scopekit.PermissionSet{
//	    Allow: []scopekit.Rule{{
//	        Names:       []string{"imyale.game.*"},
//	        Scopes:      []string{"team_id=$team"},
//	        Description: "Manage games for the captain's own team",
//	    }},
//	})
//	service.AddRoleToUser(ctx, "captain", "rory")
//
//	// Gate an action.
//	scope := scopekit.ScopeDict{"team_id": "tigers"}.String()
//	user, err := service.CheckPermission(ctx, "rory", "imyale.game.create",
//	    scope, map[string]string{"team": "tigers"})
//	if err != nil {
//	    // store failure
//	}
//	if user == nil {
//	    // denied
//	}
//
// Denial is a value, not an error: CheckPermission returns a nil user for
// "not allowed" and reserves errors for malformed input and store failures.
//
// # Middleware Usage
//
//	mw := scopekit.NewMiddleware(service)
//
//	router.With(mw.RequirePermission("imyale.game.update",
//	    scopekit.ScopeFromParam("game_id", "gameID"))).
//	    Put("/games/{gameID}", updateGameHandler)
//
// # Stores
//
// The matching core is store-agnostic; persistence is injected through the
// Store interface. Three implementations ship with the package: MemoryStore
// (tests, examples), DatabaseStore (Postgres via dbkit/bun) and MongoStore
// (the document layout the original backend used).
package scopekit
