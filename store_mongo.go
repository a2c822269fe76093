package scopekit

import (
	"context"
	"errors"
	"time"

	"github.com/caarlos0/env/v11"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ErrFailedToConnectToMongo is returned when the MongoDB client cannot be
// established within the configured retry budget.
var ErrFailedToConnectToMongo = errors.New("scopekit: failed to connect to mongo")

// MongoConfig is the environment-driven configuration for MongoStore
// connections.
type MongoConfig struct {
	ConnectionURL   string        `env:"MONGODB_URL,required"`                         // ConnectionURL is the URL of the database.
	Database        string        `env:"MONGODB_DATABASE" envDefault:"scopekit"`       // Database is the database name.
	ConnectTimeout  time.Duration `env:"MONGODB_CONNECT_TIMEOUT" envDefault:"10s"`     // ConnectTimeout is the timeout for connecting to the database.
	MaxPoolSize     uint64        `env:"MONGODB_MAX_POOL_SIZE" envDefault:"100"`       // MaxPoolSize is the maximum number of pooled connections.
	MinPoolSize     uint64        `env:"MONGODB_MIN_POOL_SIZE" envDefault:"1"`         // MinPoolSize is the minimum number of pooled connections.
	MaxConnIdleTime time.Duration `env:"MONGODB_MAX_CONN_IDLE_TIME" envDefault:"300s"` // MaxConnIdleTime is how long a connection may sit idle in the pool.
	RetryWrites     bool          `env:"MONGODB_RETRY_WRITES" envDefault:"true"`       // RetryWrites specifies whether to retry write operations.
	RetryReads      bool          `env:"MONGODB_RETRY_READS" envDefault:"true"`        // RetryReads specifies whether to retry read operations.
	RetryAttempts   int           `env:"MONGODB_RETRY_ATTEMPTS" envDefault:"3"`        // RetryAttempts is the number of connection attempts.
	RetryInterval   time.Duration `env:"MONGODB_RETRY_INTERVAL" envDefault:"5s"`       // RetryInterval is the wait between connection attempts.
}

// LoadMongoConfig reads MongoConfig from the environment.
func LoadMongoConfig() (MongoConfig, error) {
	return env.ParseAs[MongoConfig]()
}

// ConnectMongo creates a MongoDB client, retrying transient connection
// failures per the config.
func ConnectMongo(ctx context.Context, cfg MongoConfig) (*mongo.Client, error) {
	for range cfg.RetryAttempts {
		client, err := mongo.Connect(
			options.Client().
				ApplyURI(cfg.ConnectionURL).
				SetConnectTimeout(cfg.ConnectTimeout).
				SetMaxPoolSize(cfg.MaxPoolSize).
				SetMinPoolSize(cfg.MinPoolSize).
				SetMaxConnIdleTime(cfg.MaxConnIdleTime).
				SetRetryWrites(cfg.RetryWrites).
				SetRetryReads(cfg.RetryReads),
		)
		if err == nil {
			if err := client.Ping(ctx, nil); err == nil {
				return client, nil
			}
		}

		time.Sleep(cfg.RetryInterval)
	}

	return nil, ErrFailedToConnectToMongo
}

// MongoStore is a MongoDB-backed Store using the same document layout as
// the original backend: a "roles" collection keyed by roleName and a
// "users" collection keyed by username.
type MongoStore struct {
	roles *mongo.Collection
	users *mongo.Collection
}

// NewMongoStore creates a MongoStore on an existing database handle.
//
// Example:
//
//	cfg, _ := scopekit.LoadMongoConfig()
//	client, _ := scopekit.ConnectMongo(ctx, cfg)
//	store := scopekit.NewMongoStore(client.Database(cfg.Database))
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		roles: db.Collection("roles"),
		users: db.Collection("users"),
	}
}

// EnsureIndexes creates the unique indexes the store relies on. Call once
// at startup.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.roles.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "roleName", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return NewError(ErrStore, err.Error())
	}
	_, err = s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return NewError(ErrStore, err.Error())
	}
	return nil
}

// Healthcheck returns a function suitable for readiness probes; it pings
// the server the store's collections belong to.
func (s *MongoStore) Healthcheck() func(context.Context) error {
	return func(ctx context.Context) error {
		if err := s.roles.Database().Client().Ping(ctx, nil); err != nil {
			return NewError(ErrStore, err.Error())
		}
		return nil
	}
}

// FindUserByUsername returns the user or ErrUserNotFound.
func (s *MongoStore) FindUserByUsername(ctx context.Context, username string) (*User, error) {
	var user User
	err := s.users.FindOne(ctx, bson.M{"username": username}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, NewError(ErrUserNotFound, username).WithUser(username)
		}
		return nil, NewError(ErrStore, err.Error())
	}
	return &user, nil
}

// SaveUser upserts the user document keyed by username.
func (s *MongoStore) SaveUser(ctx context.Context, user *User) error {
	_, err := s.users.ReplaceOne(ctx,
		bson.M{"username": user.Username},
		user,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return NewError(ErrStore, err.Error()).WithUser(user.Username)
	}
	return nil
}

// FindRoleByName returns the role or ErrRoleNotFound.
func (s *MongoStore) FindRoleByName(ctx context.Context, roleName string) (*Role, error) {
	var role Role
	err := s.roles.FindOne(ctx, bson.M{"roleName": roleName}).Decode(&role)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, NewError(ErrRoleNotFound, roleName).WithRole(roleName)
		}
		return nil, NewError(ErrStore, err.Error())
	}
	return &role, nil
}

// FindRolesByNames returns the roles that exist; missing names are
// omitted.
func (s *MongoStore) FindRolesByNames(ctx context.Context, roleNames []string) ([]Role, error) {
	if len(roleNames) == 0 {
		return nil, nil
	}
	cursor, err := s.roles.Find(ctx, bson.M{"roleName": bson.M{"$in": roleNames}})
	if err != nil {
		return nil, NewError(ErrStore, err.Error())
	}
	var roles []Role
	if err := cursor.All(ctx, &roles); err != nil {
		return nil, NewError(ErrStore, err.Error())
	}
	return roles, nil
}

// FindUsersWithRole returns every user whose roles array contains
// roleName.
func (s *MongoStore) FindUsersWithRole(ctx context.Context, roleName string) ([]User, error) {
	cursor, err := s.users.Find(ctx, bson.M{"roles": roleName})
	if err != nil {
		return nil, NewError(ErrStore, err.Error())
	}
	var users []User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, NewError(ErrStore, err.Error())
	}
	return users, nil
}

// RoleExists reports whether a role with the name exists.
func (s *MongoStore) RoleExists(ctx context.Context, roleName string) (bool, error) {
	count, err := s.roles.CountDocuments(ctx, bson.M{"roleName": roleName},
		options.Count().SetLimit(1))
	if err != nil {
		return false, NewError(ErrStore, err.Error())
	}
	return count > 0, nil
}

// InsertRole creates the role, failing with ErrRoleExists on a duplicate
// name.
func (s *MongoStore) InsertRole(ctx context.Context, role *Role) error {
	_, err := s.roles.InsertOne(ctx, role)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return NewError(ErrRoleExists, role.RoleName).WithRole(role.RoleName)
		}
		return NewError(ErrStore, err.Error()).WithRole(role.RoleName)
	}
	return nil
}

// SaveRole replaces the role document, failing if it does not exist.
func (s *MongoStore) SaveRole(ctx context.Context, role *Role) error {
	result, err := s.roles.ReplaceOne(ctx, bson.M{"roleName": role.RoleName}, role)
	if err != nil {
		return NewError(ErrStore, err.Error()).WithRole(role.RoleName)
	}
	if result.MatchedCount == 0 {
		return NewError(ErrRoleNotFound, role.RoleName).WithRole(role.RoleName)
	}
	return nil
}

// DeleteRole removes the role document, failing if it does not exist.
func (s *MongoStore) DeleteRole(ctx context.Context, roleName string) error {
	result, err := s.roles.DeleteOne(ctx, bson.M{"roleName": roleName})
	if err != nil {
		return NewError(ErrStore, err.Error()).WithRole(roleName)
	}
	if result.DeletedCount == 0 {
		return NewError(ErrRoleNotFound, roleName).WithRole(roleName)
	}
	return nil
}

// ListRoles returns all roles sorted by name.
func (s *MongoStore) ListRoles(ctx context.Context) ([]Role, error) {
	cursor, err := s.roles.Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "roleName", Value: 1}}))
	if err != nil {
		return nil, NewError(ErrStore, err.Error())
	}
	var roles []Role
	if err := cursor.All(ctx, &roles); err != nil {
		return nil, NewError(ErrStore, err.Error())
	}
	return roles, nil
}
