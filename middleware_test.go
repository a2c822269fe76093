package scopekit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiddlewareFixture(t *testing.T) (*Service, *Middleware) {
	t.Helper()

	service := New(NewMemoryStore(), WithSynchronousCleanup())
	ctx := context.Background()
	require.NoError(t, service.Seed(ctx, NewSeeder().
		Role("editor").
		Allow("imyale.game.*").Scopes("team_id=tigers").
		Roles()...))
	require.NoError(t, service.RegisterUser(ctx, &User{Username: "alice", Email: "alice@yale.edu"}))
	require.NoError(t, service.AddRoleToUser(ctx, "editor", "alice"))

	return service, NewMiddleware(service)
}

func okHandler(t *testing.T, sawUser **User) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*sawUser = UserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

// TestRequirePermissionGranted tests the success path and context user
func TestRequirePermissionGranted(t *testing.T) {
	_, mw := newMiddlewareFixture(t)

	var sawUser *User
	handler := mw.RequirePermission("imyale.game.create",
		ScopeFromQuery("team_id", "team_id"))(okHandler(t, &sawUser))

	req := httptest.NewRequest(http.MethodPost, "/games?team_id=tigers", nil)
	req = req.WithContext(WithUsername(req.Context(), "alice"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, sawUser)
	assert.Equal(t, "alice", sawUser.Username)
}

// TestRequirePermissionUnauthenticated tests the 401 path
func TestRequirePermissionUnauthenticated(t *testing.T) {
	_, mw := newMiddlewareFixture(t)

	var sawUser *User
	handler := mw.RequirePermission("imyale.game.create",
		ScopeFromQuery("team_id", "team_id"))(okHandler(t, &sawUser))

	req := httptest.NewRequest(http.MethodPost, "/games?team_id=tigers", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, sawUser)
}

// TestRequirePermissionDenied tests the 403 path
func TestRequirePermissionDenied(t *testing.T) {
	_, mw := newMiddlewareFixture(t)

	var sawUser *User
	handler := mw.RequirePermission("imyale.game.create",
		ScopeFromQuery("team_id", "team_id"))(okHandler(t, &sawUser))

	// Wrong team: the editor role is scoped to tigers
	req := httptest.NewRequest(http.MethodPost, "/games?team_id=bears", nil)
	req = req.WithContext(WithUsername(req.Context(), "alice"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	// The body stays generic
	assert.Contains(t, rec.Body.String(), "Not allowed")
	assert.Nil(t, sawUser)
}

// TestRequirePermissionBadScope tests the 400 path when the scope cannot
// be built from the request
func TestRequirePermissionBadScope(t *testing.T) {
	_, mw := newMiddlewareFixture(t)

	var sawUser *User
	handler := mw.RequirePermission("imyale.game.create",
		ScopeFromQuery("team_id", "team_id"))(okHandler(t, &sawUser))

	req := httptest.NewRequest(http.MethodPost, "/games", nil)
	req = req.WithContext(WithUsername(req.Context(), "alice"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, sawUser)
}

// TestRequireAnyPermission tests the first-grant-wins variant
func TestRequireAnyPermission(t *testing.T) {
	_, mw := newMiddlewareFixture(t)

	var sawUser *User
	handler := mw.RequireAnyPermission(
		[]string{"imyale.admin.access", "imyale.game.read"},
		StaticScope(ScopeDict{"team_id": "tigers"}),
	)(okHandler(t, &sawUser))

	req := httptest.NewRequest(http.MethodGet, "/games", nil)
	req = req.WithContext(WithUsername(req.Context(), "alice"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, sawUser)

	// None of the permissions granted
	sawUser = nil
	handler = mw.RequireAnyPermission(
		[]string{"imyale.admin.access", "imyale.role.create"},
		StaticScope(ScopeDict{"team_id": "tigers"}),
	)(okHandler(t, &sawUser))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Nil(t, sawUser)
}

// TestWithUsernameExtractor tests the custom identity source
func TestWithUsernameExtractor(t *testing.T) {
	service, _ := newMiddlewareFixture(t)
	mw := NewMiddleware(service, WithUsernameExtractor(func(r *http.Request) string {
		return r.Header.Get("X-Username")
	}))

	var sawUser *User
	handler := mw.RequirePermission("imyale.game.read",
		StaticScope(ScopeDict{"team_id": "tigers"}))(okHandler(t, &sawUser))

	req := httptest.NewRequest(http.MethodGet, "/games", nil)
	req.Header.Set("X-Username", "alice")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

// TestWithErrorHandler tests the custom error sink
func TestWithErrorHandler(t *testing.T) {
	service, _ := newMiddlewareFixture(t)

	var gotErr error
	mw := NewMiddleware(service, WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
		gotErr = err
		w.WriteHeader(http.StatusTeapot)
	}))

	handler := mw.RequirePermission("imyale.game.read",
		StaticScope(ScopeDict{"team_id": "tigers"}))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/games", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.ErrorIs(t, gotErr, ErrNotAuthenticated)
}

// TestScopeExtractors tests the bundled scope extractors
func TestScopeExtractors(t *testing.T) {
	t.Run("ScopeFromQuery", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/games?team=tigers", nil)
		dict, err := ScopeFromQuery("team_id", "team")(req)
		require.NoError(t, err)
		assert.Equal(t, ScopeDict{"team_id": "tigers"}, dict)

		_, err = ScopeFromQuery("team_id", "missing")(req)
		assert.ErrorIs(t, err, ErrInvalidScope)
	})

	t.Run("ScopeFromHeader", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/games", nil)
		req.Header.Set("X-Team", "tigers")
		dict, err := ScopeFromHeader("team_id", "X-Team")(req)
		require.NoError(t, err)
		assert.Equal(t, ScopeDict{"team_id": "tigers"}, dict)
	})

	t.Run("ScopeFromParam", func(t *testing.T) {
		mux := http.NewServeMux()
		var dict ScopeDict
		var extractErr error
		mux.HandleFunc("GET /games/{gameID}", func(w http.ResponseWriter, r *http.Request) {
			dict, extractErr = ScopeFromParam("game_id", "gameID")(r)
		})
		req := httptest.NewRequest(http.MethodGet, "/games/7", nil)
		mux.ServeHTTP(httptest.NewRecorder(), req)
		require.NoError(t, extractErr)
		assert.Equal(t, ScopeDict{"game_id": "7"}, dict)
	})

	t.Run("SelfScope", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		_, err := SelfScope()(req)
		assert.ErrorIs(t, err, ErrInvalidScope)

		req = req.WithContext(WithUsername(req.Context(), "alice"))
		dict, err := SelfScope()(req)
		require.NoError(t, err)
		assert.Equal(t, ScopeDict{"username": "alice"}, dict)
	})

	t.Run("CombineScopes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/games?team=tigers", nil)
		req = req.WithContext(WithUsername(req.Context(), "alice"))
		dict, err := CombineScopes(
			ScopeFromQuery("team_id", "team"),
			SelfScope(),
		)(req)
		require.NoError(t, err)
		assert.Equal(t, ScopeDict{"team_id": "tigers", "username": "alice"}, dict)
	})
}

// TestInjectRequestContext tests metadata extraction into the context
func TestInjectRequestContext(t *testing.T) {
	_, mw := newMiddlewareFixture(t)

	var ip, ua, requestID string
	handler := mw.InjectRequestContext()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip = GetIPAddress(r.Context())
		ua = GetUserAgent(r.Context())
		requestID = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "10.0.0.1")
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("X-Request-ID", "req-123")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "10.0.0.1", ip)
	assert.Equal(t, "test-agent", ua)
	assert.Equal(t, "req-123", requestID)

	// Falls back to RemoteAddr without proxy headers
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, req.RemoteAddr, ip)
	assert.Empty(t, requestID)
}
