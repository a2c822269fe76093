package scopekit

import "context"

// Seeder builds a set of role documents fluently, for seeding a store at
// application startup. Unlike the lifecycle operations it does not gate on
// permissions; run it from a bootstrap path, not a request handler.
//
// Example:
//
//	seeder := scopekit.NewSeeder().
//	    Role("admin").
//	        Allow("imyale.*").Scopes("*").
//	    Role("referee").
//	        Allow("imyale.game.update").Scopes("game_id=$game").
//	        Deny("imyale.role.*").Scopes("*")
//
//	if err := service.Seed(ctx, seeder.Roles()...); err != nil {
//	    log.Fatal(err)
//	}
type Seeder struct {
	roles []Role
	// whether the most recent rule was added via Allow or Deny, so
	// Scopes/Describe attach to the right list.
	lastAllow bool
}

// NewSeeder creates an empty Seeder.
func NewSeeder() *Seeder {
	return &Seeder{}
}

// Role starts defining a new role. Subsequent Allow/Deny/Scopes/Describe
// calls apply to it until the next Role call.
func (b *Seeder) Role(name string) *Seeder {
	b.roles = append(b.roles, Role{RoleName: name, Users: []string{}})
	return b
}

// Allow appends an allow rule granting the given permission names. The
// rule's scopes default to "*" until Scopes is called.
func (b *Seeder) Allow(names ...string) *Seeder {
	role := b.current()
	if role == nil {
		return b
	}
	role.Permissions.Allow = append(role.Permissions.Allow, Rule{
		Names:  names,
		Scopes: []string{"*"},
	})
	b.lastAllow = true
	return b
}

// Deny appends a deny rule for the given permission names. The rule's
// scopes default to "*" until Scopes is called.
func (b *Seeder) Deny(names ...string) *Seeder {
	role := b.current()
	if role == nil {
		return b
	}
	role.Permissions.Deny = append(role.Permissions.Deny, Rule{
		Names:  names,
		Scopes: []string{"*"},
	})
	b.lastAllow = false
	return b
}

// Scopes sets the scopes of the most recently added rule.
func (b *Seeder) Scopes(scopes ...string) *Seeder {
	if rule := b.lastRule(); rule != nil {
		rule.Scopes = scopes
	}
	return b
}

// Describe sets the description of the most recently added rule.
func (b *Seeder) Describe(description string) *Seeder {
	if rule := b.lastRule(); rule != nil {
		rule.Description = description
	}
	return b
}

// Roles returns the built role documents.
func (b *Seeder) Roles() []Role {
	return b.roles
}

func (b *Seeder) current() *Role {
	if len(b.roles) == 0 {
		return nil
	}
	return &b.roles[len(b.roles)-1]
}

func (b *Seeder) lastRule() *Rule {
	role := b.current()
	if role == nil {
		return nil
	}
	if b.lastAllow {
		if n := len(role.Permissions.Allow); n > 0 {
			return &role.Permissions.Allow[n-1]
		}
		return nil
	}
	if n := len(role.Permissions.Deny); n > 0 {
		return &role.Permissions.Deny[n-1]
	}
	return nil
}

// Seed inserts the given roles, skipping any whose name already exists.
// Existing roles are left untouched so seeding is idempotent and never
// clobbers operator edits.
func (s *Service) Seed(ctx context.Context, roles ...Role) error {
	for i := range roles {
		role := roles[i]
		exists, err := s.store.RoleExists(ctx, role.RoleName)
		if err != nil {
			return err
		}
		if exists {
			s.logger.Info("scopekit: role already exists, skipping", "role", role.RoleName)
			continue
		}
		if err := s.store.InsertRole(ctx, &role); err != nil {
			return err
		}
		s.logger.Info("scopekit: role created", "role", role.RoleName)
	}
	return nil
}

// DefaultRoles returns the role set the intramural backend ships with:
// a full-access admin, a read-only default role, a self-service user role
// and the unverified signup role.
func DefaultRoles() []Role {
	return NewSeeder().
		Role("admin").
		Allow("imyale.*").Scopes("*").Describe("Full access").
		Role("default").
		Allow("imyale.home.read").Scopes("*").Describe("Read the home feed").
		Role("user").
		Allow("imyale.user.read").Scopes("username=$username").
		Describe("Read the user's own record").
		Role("unverified").
		Allow("imyale.user.create").Scopes("*").
		Allow("imyale.user.login").Scopes("username=$username").
		Allow("imyale.user.verify").Scopes("*").
		Describe("Complete account verification").
		Roles()
}
