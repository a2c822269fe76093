package scopekit

import (
	"net/http"
)

// Middleware provides HTTP middleware gating handlers through
// CheckPermission.
type Middleware struct {
	service      *Service
	getUsername  func(*http.Request) string
	errorHandler func(http.ResponseWriter, *http.Request, error)
}

// MiddlewareOption configures the Middleware.
type MiddlewareOption func(*Middleware)

// NewMiddleware creates a new Middleware instance.
//
// Example:
//
//	mw := scopekit.NewMiddleware(service,
//	    scopekit.WithUsernameExtractor(func(r *http.Request) string {
//	        return sessionUsername(r)
//	    }),
//	)
func NewMiddleware(service *Service, opts ...MiddlewareOption) *Middleware {
	m := &Middleware{
		service:      service,
		getUsername:  defaultGetUsername,
		errorHandler: defaultErrorHandler,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// WithUsernameExtractor sets a custom function to extract the caller's
// username from the request. The default reads it from the context via
// GetUsername.
func WithUsernameExtractor(fn func(*http.Request) string) MiddlewareOption {
	return func(m *Middleware) {
		m.getUsername = fn
	}
}

// WithErrorHandler sets a custom error handler for middleware.
func WithErrorHandler(fn func(http.ResponseWriter, *http.Request, error)) MiddlewareOption {
	return func(m *Middleware) {
		m.errorHandler = fn
	}
}

func defaultGetUsername(r *http.Request) string {
	return GetUsername(r.Context())
}

// defaultErrorHandler writes generic messages only: a denial never reveals
// which rule caused it.
func defaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	switch status {
	case http.StatusUnauthorized:
		http.Error(w, "Not logged in", status)
	case http.StatusForbidden:
		http.Error(w, "Not allowed", status)
	case http.StatusBadRequest:
		http.Error(w, "Bad Request", status)
	default:
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// ScopeExtractor builds the requested scope for a permission check from an
// HTTP request.
type ScopeExtractor func(*http.Request) (ScopeDict, error)

// ScopeFromParam creates a ScopeExtractor that maps a URL path parameter
// to a scope key. Compatible with net/http and chi route patterns.
//
// Example:
//
//	// For route /games/{gameID}
//	mw.RequirePermission("imyale.game.update", scopekit.ScopeFromParam("game_id", "gameID"))
func ScopeFromParam(scopeKey, paramName string) ScopeExtractor {
	return func(r *http.Request) (ScopeDict, error) {
		value := r.PathValue(paramName)
		if value == "" {
			if v := r.Context().Value(paramName); v != nil {
				if s, ok := v.(string); ok {
					value = s
				}
			}
		}
		if value == "" {
			return nil, NewError(ErrInvalidScope, "scope value not found in request")
		}
		return ScopeDict{scopeKey: value}, nil
	}
}

// ScopeFromQuery creates a ScopeExtractor that maps a query parameter to a
// scope key.
//
// Example:
//
//	// For route /games?team_id=tigers
//	mw.RequirePermission("imyale.game.read", scopekit.ScopeFromQuery("team_id", "team_id"))
func ScopeFromQuery(scopeKey, queryParam string) ScopeExtractor {
	return func(r *http.Request) (ScopeDict, error) {
		value := r.URL.Query().Get(queryParam)
		if value == "" {
			return nil, NewError(ErrInvalidScope, "scope value not found in query")
		}
		return ScopeDict{scopeKey: value}, nil
	}
}

// ScopeFromHeader creates a ScopeExtractor that maps a header to a scope
// key.
func ScopeFromHeader(scopeKey, headerName string) ScopeExtractor {
	return func(r *http.Request) (ScopeDict, error) {
		value := r.Header.Get(headerName)
		if value == "" {
			return nil, NewError(ErrInvalidScope, "scope value not found in header")
		}
		return ScopeDict{scopeKey: value}, nil
	}
}

// StaticScope creates a ScopeExtractor that always returns the same
// scope. Useful for global actions.
func StaticScope(dict ScopeDict) ScopeExtractor {
	return func(r *http.Request) (ScopeDict, error) {
		return dict, nil
	}
}

// SelfScope creates a ScopeExtractor carrying the caller's own username,
// the shape most handlers gate self-service actions on.
func SelfScope() ScopeExtractor {
	return func(r *http.Request) (ScopeDict, error) {
		username := GetUsername(r.Context())
		if username == "" {
			return nil, NewError(ErrInvalidScope, "no username in context")
		}
		return ScopeDict{"username": username}, nil
	}
}

// CombineScopes merges several extractors into one scope dict. Later
// extractors win on key collisions.
func CombineScopes(extractors ...ScopeExtractor) ScopeExtractor {
	return func(r *http.Request) (ScopeDict, error) {
		combined := ScopeDict{}
		for _, extractor := range extractors {
			dict, err := extractor(r)
			if err != nil {
				return nil, err
			}
			for k, v := range dict {
				combined[k] = v
			}
		}
		return combined, nil
	}
}

// RequirePermission creates middleware that gates the handler on the
// given permission under the extracted scope. On success the authorized
// user record is stored in the request context (UserFromContext).
//
// Example:
//
//	router.With(mw.RequirePermission("imyale.game.create",
//	    scopekit.ScopeFromParam("team_id", "teamID"))).
//	    Post("/teams/{teamID}/games", createGameHandler)
func (m *Middleware) RequirePermission(permission string, extractor ScopeExtractor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			username := m.getUsername(r)
			if username == "" {
				m.errorHandler(w, r, ErrNotAuthenticated)
				return
			}

			dict, err := extractor(r)
			if err != nil {
				m.errorHandler(w, r, err)
				return
			}

			user, err := m.service.CheckPermission(ctx, username, permission, dict.String(), nil)
			if err != nil {
				m.errorHandler(w, r, err)
				return
			}
			if user == nil {
				m.errorHandler(w, r, NewError(ErrPermissionDenied, "").
					WithUser(username))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(ctx, user)))
		})
	}
}

// RequireAnyPermission creates middleware that passes when any of the
// permissions is granted under the extracted scope.
func (m *Middleware) RequireAnyPermission(permissions []string, extractor ScopeExtractor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			username := m.getUsername(r)
			if username == "" {
				m.errorHandler(w, r, ErrNotAuthenticated)
				return
			}

			dict, err := extractor(r)
			if err != nil {
				m.errorHandler(w, r, err)
				return
			}

			scope := dict.String()
			for _, permission := range permissions {
				user, err := m.service.CheckPermission(ctx, username, permission, scope, nil)
				if err != nil {
					m.errorHandler(w, r, err)
					return
				}
				if user != nil {
					next.ServeHTTP(w, r.WithContext(WithUser(ctx, user)))
					return
				}
			}

			m.errorHandler(w, r, NewError(ErrPermissionDenied, "").WithUser(username))
		})
	}
}

// InjectRequestContext creates middleware that extracts request metadata
// (client IP, user agent, request ID) into the context for log
// correlation.
//
// Example:
//
//	router.Use(mw.InjectRequestContext())
func (m *Middleware) InjectRequestContext() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			ip := r.Header.Get("X-Forwarded-For")
			if ip == "" {
				ip = r.Header.Get("X-Real-IP")
			}
			if ip == "" {
				ip = r.RemoteAddr
			}
			ctx = WithIPAddress(ctx, ip)
			ctx = WithUserAgent(ctx, r.UserAgent())

			if requestID := r.Header.Get("X-Request-ID"); requestID != "" {
				ctx = WithRequestID(ctx, requestID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
