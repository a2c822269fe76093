package scopekit

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	"github.com/fernandezvara/dbkit"
)

// roleRecord is the relational shape of a Role. Permissions are stored as
// one JSONB column so a role document stays a single row, mirroring the
// original document layout.
type roleRecord struct {
	bun.BaseModel `bun:"table:roles,alias:r"`

	ID          string        `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	RoleName    string        `bun:"role_name,notnull,unique"`
	Users       []string      `bun:"users,type:text[],array"`
	Permissions PermissionSet `bun:"permissions,type:jsonb"`
	CreatedAt   time.Time     `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt   time.Time     `bun:"updated_at,notnull,default:current_timestamp"`
}

type userRecord struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID        string    `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Username  string    `bun:"username,notnull,unique"`
	Email     string    `bun:"email"`
	Roles     []string  `bun:"roles,type:text[],array"`
	Verified  bool      `bun:"verified,notnull,default:false"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

func (r *roleRecord) toRole() *Role {
	return &Role{
		RoleName:    r.RoleName,
		Users:       r.Users,
		Permissions: r.Permissions,
	}
}

func (u *userRecord) toUser() *User {
	return &User{
		Username: u.Username,
		Email:    u.Email,
		Roles:    u.Roles,
		Verified: u.Verified,
	}
}

// DatabaseStore is a Postgres-backed Store using dbkit/bun.
//
// Example:
//
//	db, _ := dbkit.New(dbkit.Config{URL: "postgres://..."})
//	store := scopekit.NewDatabaseStore(db)
//	service := scopekit.New(store)
type DatabaseStore struct {
	db dbkit.IDB
}

// NewDatabaseStore creates a DatabaseStore on an existing dbkit
// connection. Run Migrations first on a fresh database.
func NewDatabaseStore(db dbkit.IDB) *DatabaseStore {
	return &DatabaseStore{db: db}
}

// Migrations returns the database migrations required by DatabaseStore.
// Use dbkit.Migrate(ctx, store.Migrations()) to run them.
func (s *DatabaseStore) Migrations() []dbkit.Migration {
	return []dbkit.Migration{
		{
			ID:          "scopekit-001",
			Description: "Create roles table",
			SQL: `
                CREATE TABLE IF NOT EXISTS roles (
                    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
                    role_name TEXT NOT NULL UNIQUE,
                    users TEXT[] NOT NULL DEFAULT '{}',
                    permissions JSONB NOT NULL DEFAULT '{"allow":[],"deny":[]}',
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    updated_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp
                )`,
		},
		{
			ID:          "scopekit-002",
			Description: "Create users table",
			SQL: `
                CREATE TABLE IF NOT EXISTS users (
                    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
                    username TEXT NOT NULL UNIQUE,
                    email TEXT,
                    roles TEXT[] NOT NULL DEFAULT '{}',
                    verified BOOLEAN NOT NULL DEFAULT false,
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    updated_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp
                )`,
		},
		{
			ID:          "scopekit-003",
			Description: "Index users.roles for role membership lookups",
			SQL:         `CREATE INDEX IF NOT EXISTS idx_users_roles ON users USING gin (roles)`,
		},
	}
}

// FindUserByUsername returns the user or ErrUserNotFound.
func (s *DatabaseStore) FindUserByUsername(ctx context.Context, username string) (*User, error) {
	var record userRecord
	err := dbkit.WithErr1(s.db.NewSelect().Model(&record).Where("username = ?", username).Limit(1).Scan(ctx), "FindUserByUsername").Err()
	if err != nil {
		if dbkit.IsNotFound(err) {
			return nil, NewError(ErrUserNotFound, username).WithUser(username)
		}
		return nil, NewError(ErrStore, err.Error())
	}
	return record.toUser(), nil
}

// SaveUser inserts or replaces the user document keyed by username.
func (s *DatabaseStore) SaveUser(ctx context.Context, user *User) error {
	record := &userRecord{
		Username: user.Username,
		Email:    user.Email,
		Roles:    user.Roles,
		Verified: user.Verified,
	}
	result, err := s.db.NewInsert().
		Model(record).
		On("CONFLICT (username) DO UPDATE").
		Set("email = EXCLUDED.email").
		Set("roles = EXCLUDED.roles").
		Set("verified = EXCLUDED.verified").
		Set("updated_at = current_timestamp").
		Exec(ctx)
	if err := dbkit.WithErr(result, err, "SaveUser").Err(); err != nil {
		return NewError(ErrStore, err.Error()).WithUser(user.Username)
	}
	return nil
}

// FindRoleByName returns the role or ErrRoleNotFound.
func (s *DatabaseStore) FindRoleByName(ctx context.Context, roleName string) (*Role, error) {
	var record roleRecord
	err := dbkit.WithErr1(s.db.NewSelect().Model(&record).Where("role_name = ?", roleName).Limit(1).Scan(ctx), "FindRoleByName").Err()
	if err != nil {
		if dbkit.IsNotFound(err) {
			return nil, NewError(ErrRoleNotFound, roleName).WithRole(roleName)
		}
		return nil, NewError(ErrStore, err.Error())
	}
	return record.toRole(), nil
}

// FindRolesByNames returns the roles that exist; missing names are
// omitted.
func (s *DatabaseStore) FindRolesByNames(ctx context.Context, roleNames []string) ([]Role, error) {
	if len(roleNames) == 0 {
		return nil, nil
	}
	var records []roleRecord
	err := dbkit.WithErr1(s.db.NewSelect().Model(&records).Where("role_name IN (?)", bun.In(roleNames)).Scan(ctx), "FindRolesByNames").Err()
	if err != nil {
		return nil, NewError(ErrStore, err.Error())
	}
	roles := make([]Role, 0, len(records))
	for i := range records {
		roles = append(roles, *records[i].toRole())
	}
	return roles, nil
}

// FindUsersWithRole returns every user whose roles array contains
// roleName.
func (s *DatabaseStore) FindUsersWithRole(ctx context.Context, roleName string) ([]User, error) {
	var records []userRecord
	err := dbkit.WithErr1(s.db.NewSelect().Model(&records).Where("? = ANY(roles)", roleName).Scan(ctx), "FindUsersWithRole").Err()
	if err != nil {
		return nil, NewError(ErrStore, err.Error())
	}
	users := make([]User, 0, len(records))
	for i := range records {
		users = append(users, *records[i].toUser())
	}
	return users, nil
}

// RoleExists reports whether a role with the name exists.
func (s *DatabaseStore) RoleExists(ctx context.Context, roleName string) (bool, error) {
	exists, err := dbkit.Exists[roleRecord](ctx, s.db, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("role_name = ?", roleName)
	})
	if err != nil {
		return false, NewError(ErrStore, err.Error())
	}
	return exists, nil
}

// InsertRole creates the role, failing with ErrRoleExists on a duplicate
// name.
func (s *DatabaseStore) InsertRole(ctx context.Context, role *Role) error {
	record := &roleRecord{
		RoleName:    role.RoleName,
		Users:       role.Users,
		Permissions: role.Permissions,
	}
	result, err := s.db.NewInsert().Model(record).Exec(ctx)
	if err := dbkit.WithErr(result, err, "InsertRole").Err(); err != nil {
		if dbkit.IsDuplicate(err) {
			return NewError(ErrRoleExists, role.RoleName).WithRole(role.RoleName)
		}
		return NewError(ErrStore, err.Error()).WithRole(role.RoleName)
	}
	return nil
}

// SaveRole replaces the role's users and permissions.
func (s *DatabaseStore) SaveRole(ctx context.Context, role *Role) error {
	record := &roleRecord{
		RoleName:    role.RoleName,
		Users:       role.Users,
		Permissions: role.Permissions,
		UpdatedAt:   time.Now(),
	}
	result, err := s.db.NewUpdate().
		Model(record).
		Column("users", "permissions", "updated_at").
		Where("role_name = ?", role.RoleName).
		Exec(ctx)
	if err := dbkit.WithErr(result, err, "SaveRole").Err(); err != nil {
		return NewError(ErrStore, err.Error()).WithRole(role.RoleName)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return NewError(ErrRoleNotFound, role.RoleName).WithRole(role.RoleName)
	}
	return nil
}

// DeleteRole removes the role row.
func (s *DatabaseStore) DeleteRole(ctx context.Context, roleName string) error {
	result, err := s.db.NewDelete().Table("roles").Where("role_name = ?", roleName).Exec(ctx)
	if err := dbkit.WithErr(result, err, "DeleteRole").Err(); err != nil {
		return NewError(ErrStore, err.Error()).WithRole(roleName)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return NewError(ErrRoleNotFound, roleName).WithRole(roleName)
	}
	return nil
}

// ListRoles returns all roles ordered by name.
func (s *DatabaseStore) ListRoles(ctx context.Context) ([]Role, error) {
	var records []roleRecord
	err := dbkit.WithErr1(s.db.NewSelect().Model(&records).Order("role_name ASC").Scan(ctx), "ListRoles").Err()
	if err != nil {
		return nil, NewError(ErrStore, err.Error())
	}
	roles := make([]Role, 0, len(records))
	for i := range records {
		roles = append(roles, *records[i].toRole())
	}
	return roles, nil
}
