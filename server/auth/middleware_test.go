package auth_test

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cyp0633/libnebula/server/auth"
	"github.com/cyp0633/libnebula/server/auth/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func basic(user, pass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}

func newStore(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.New()
	require.NoError(t, store.AddUser("alice", "secret"))
	require.NoError(t, store.Grant("alice", "home"))
	return store
}

func TestMiddleware(t *testing.T) {
	store := newStore(t)

	var seen *auth.Principal
	h := auth.Middleware(store, "")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = auth.GetPrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"bearer", "Bearer abc", http.StatusUnauthorized},
		{"bad base64", "Basic !!!", http.StatusUnauthorized},
		{"no colon", "Basic " + base64.StdEncoding.EncodeToString([]byte("alice")), http.StatusUnauthorized},
		{"wrong password", basic("alice", "nope"), http.StatusUnauthorized},
		{"unknown user", basic("bob", "secret"), http.StatusUnauthorized},
		{"valid", basic("alice", "secret"), http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusUnauthorized {
				assert.Equal(t, `Basic realm="Nebula"`, w.Header().Get("WWW-Authenticate"))
				assert.Nil(t, seen)
				return
			}
			require.NotNil(t, seen)
			assert.Equal(t, "alice", seen.ID)
		})
	}
}

func TestRequireRealmAccess(t *testing.T) {
	store := newStore(t)

	realm := "home"
	var denied int
	h := auth.RequireRealmAccess(store,
		func(*http.Request) string { return realm },
		func(w http.ResponseWriter, status int, _ string) {
			denied = status
			w.WriteHeader(status)
		},
	)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	authed := auth.Middleware(store, "Test")(h)

	t.Run("member", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", basic("alice", "secret"))
		w := httptest.NewRecorder()
		authed.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("other realm", func(t *testing.T) {
		realm = "work"
		defer func() { realm = "home" }()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", basic("alice", "secret"))
		w := httptest.NewRecorder()
		authed.ServeHTTP(w, req)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, http.StatusForbidden, denied)
	})

	t.Run("no principal", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestIsForbidden(t *testing.T) {
	assert.True(t, auth.IsForbidden(&auth.Error{Type: auth.ErrForbidden, Message: "no"}))
	assert.False(t, auth.IsForbidden(&auth.Error{Type: auth.ErrUnauthorized, Message: "no"}))
	assert.False(t, auth.IsForbidden(nil))
}
