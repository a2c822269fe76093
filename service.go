package scopekit

import (
	"log/slog"
	"sync"
)

// DefaultNamespace is the permission-name prefix enforced on role
// payloads when no other namespace is configured.
const DefaultNamespace = "imyale."

// Service provides permission checking and role lifecycle management over
// an injected Store.
//
// Permission denial is modeled as a value: CheckPermission returns a nil
// user and a nil error for "not allowed". Errors are reserved for
// malformed payloads and store failures, so callers branch on the user
// being nil rather than on an error type.
type Service struct {
	store       Store
	logger      *slog.Logger
	scopes      *ScopeMatcher
	namespace   string
	syncCleanup bool

	// cleanups tracks background delete-role cleanup passes so callers
	// (and tests) can join them via Wait.
	cleanups sync.WaitGroup
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets the structured logger used for warnings (malformed
// scope clauses, overridden scope parameters, self-heal and cleanup
// failures). Defaults to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithNamespace sets the required prefix for rule names in role payloads.
// Defaults to DefaultNamespace.
func WithNamespace(namespace string) Option {
	return func(s *Service) {
		s.namespace = namespace
	}
}

// WithSynchronousCleanup makes DeleteRole remove the role from all users
// before returning, instead of in a background goroutine. Synchronous
// cleanup gives read-your-writes at the cost of delete latency.
func WithSynchronousCleanup() Option {
	return func(s *Service) {
		s.syncCleanup = true
	}
}

// New creates a ScopeKit service on top of a Store.
//
// Example:
//
//	store := scopekit.NewMemoryStore()
//	service := scopekit.New(store, scopekit.WithNamespace("imyale."))
func New(store Store, opts ...Option) *Service {
	s := &Service{
		store:     store,
		logger:    slog.Default(),
		namespace: DefaultNamespace,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.scopes = NewScopeMatcher(s.logger)
	return s
}

// Store returns the underlying store.
func (s *Service) Store() Store {
	return s.store
}

// Namespace returns the enforced permission-name prefix.
func (s *Service) Namespace() string {
	return s.namespace
}

// Wait blocks until all outstanding background cleanup passes started by
// DeleteRole have finished. With WithSynchronousCleanup it returns
// immediately.
func (s *Service) Wait() {
	s.cleanups.Wait()
}
