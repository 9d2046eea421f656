package auth_test

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinicore/internal/authz"
	"clinicore/internal/jwttoken"
	"clinicore/pkg/platform/middleware/auth"
	"clinicore/pkg/requestcontext"
)

func newService() *jwttoken.Service {
	return jwttoken.NewService("test-signing-key", "clinicore", "clinicore-api")
}

func protected(t *testing.T, tokens *jwttoken.Service, onRequest func(r *http.Request)) http.Handler {
	t.Helper()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if onRequest != nil {
			onRequest(r)
		}
		w.WriteHeader(http.StatusOK)
	})
	return auth.RequireAuth(tokens, slog.Default())(next)
}

func TestRequireAuth_ValidTokenEstablishesTenantContext(t *testing.T) {
	tokens := newService()
	userID := uuid.New()
	tenantID := uuid.New()
	branchID := uuid.New()

	token, err := tokens.GenerateAccessToken(userID, tenantID, string(authz.RoleDoctor), []string{branchID.String()}, time.Minute)
	require.NoError(t, err)

	var seen *http.Request
	handler := protected(t, tokens, func(r *http.Request) { seen = r })

	req := httptest.NewRequest(http.MethodGet, "/patients", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)

	identity, ok := authz.FromContext(seen.Context())
	require.True(t, ok)
	assert.Equal(t, userID.String(), identity.SubjectID.String())
	assert.Equal(t, tenantID.String(), identity.TenantID.String())
	assert.Equal(t, authz.RoleDoctor, identity.Role)
	require.Len(t, identity.BranchIDs, 1)
	assert.Equal(t, branchID.String(), identity.BranchIDs[0].String())

	tc, ok := requestcontext.Tenant(seen.Context())
	require.True(t, ok)
	assert.Equal(t, tenantID.String(), tc.TenantID.String())
	assert.Equal(t, userID.String(), tc.UserID.String())
}

func TestRequireAuth_MissingHeader(t *testing.T) {
	handler := protected(t, newService(), func(*http.Request) {
		t.Fatal("handler must not run without a token")
	})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/patients", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuth_ExpiredToken(t *testing.T) {
	tokens := newService()
	token, err := tokens.GenerateAccessToken(uuid.New(), uuid.New(), string(authz.RoleDoctor), nil, -time.Minute)
	require.NoError(t, err)

	handler := protected(t, tokens, func(*http.Request) {
		t.Fatal("handler must not run with an expired token")
	})

	req := httptest.NewRequest(http.MethodGet, "/patients", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuth_UnknownRoleRejected(t *testing.T) {
	tokens := newService()
	token, err := tokens.GenerateAccessToken(uuid.New(), uuid.New(), "JANITOR", nil, time.Minute)
	require.NoError(t, err)

	handler := protected(t, tokens, func(*http.Request) {
		t.Fatal("handler must not run with malformed claims")
	})

	req := httptest.NewRequest(http.MethodGet, "/patients", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuth_ForeignKeyRejected(t *testing.T) {
	other := jwttoken.NewService("another-key", "clinicore", "clinicore-api")
	token, err := other.GenerateAccessToken(uuid.New(), uuid.New(), string(authz.RoleDoctor), nil, time.Minute)
	require.NoError(t, err)

	handler := protected(t, newService(), func(*http.Request) {
		t.Fatal("handler must not accept a foreign signature")
	})

	req := httptest.NewRequest(http.MethodGet, "/patients", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
