package keycloak

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pointerhq/portal/internal/portal/idp"
	"github.com/stretchr/testify/require"
)

// fakeKeycloak is a minimal in-memory stand-in for the parts of the admin API
// the client talks to.
type fakeKeycloak struct {
	mux *http.ServeMux

	tokenRequests atomic.Int64
	tokenTTL      int64

	users     map[string]userRepresentation // id -> rep
	passwords map[string]string             // id -> last password set
	roles     map[string]roleRepresentation // name -> rep
	mappings  map[string][]string           // id -> role names
}

func newFakeKeycloak() *fakeKeycloak {
	f := &fakeKeycloak{
		mux:       http.NewServeMux(),
		tokenTTL:  300,
		users:     map[string]userRepresentation{},
		passwords: map[string]string{},
		roles: map[string]roleRepresentation{
			"user":    {ID: uuid.NewString(), Name: "user"},
			"admin":   {ID: uuid.NewString(), Name: "admin"},
			"manager": {ID: uuid.NewString(), Name: "manager"},
		},
		mappings: map[string][]string{},
	}

	f.mux.HandleFunc("POST /realms/portal/protocol/openid-connect/token", func(w http.ResponseWriter, r *http.Request) {
		f.tokenRequests.Add(1)
		if r.FormValue("grant_type") != "client_credentials" {
			http.Error(w, "unsupported_grant_type", http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "fake-admin-token",
			"expires_in":   f.tokenTTL,
			"token_type":   "Bearer",
		})
	})

	admin := func(h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer fake-admin-token" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			h(w, r)
		}
	}

	f.mux.HandleFunc("GET /admin/realms/portal/users", admin(func(w http.ResponseWriter, r *http.Request) {
		email := r.URL.Query().Get("email")
		out := []userRepresentation{}
		for _, u := range f.users {
			if u.Email == email {
				out = append(out, u)
			}
		}
		_ = json.NewEncoder(w).Encode(out)
	}))

	f.mux.HandleFunc("POST /admin/realms/portal/users", admin(func(w http.ResponseWriter, r *http.Request) {
		var rep userRepresentation
		_ = json.NewDecoder(r.Body).Decode(&rep)
		for _, u := range f.users {
			if u.Email == rep.Email {
				http.Error(w, "User exists with same email", http.StatusConflict)
				return
			}
		}
		rep.ID = uuid.NewString()
		f.users[rep.ID] = rep
		w.Header().Set("Location", fmt.Sprintf("http://fake/admin/realms/portal/users/%s", rep.ID))
		w.WriteHeader(http.StatusCreated)
	}))

	f.mux.HandleFunc("GET /admin/realms/portal/users/{id}", admin(func(w http.ResponseWriter, r *http.Request) {
		u, ok := f.users[r.PathValue("id")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(u)
	}))

	f.mux.HandleFunc("PUT /admin/realms/portal/users/{id}", admin(func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if _, ok := f.users[id]; !ok {
			http.NotFound(w, r)
			return
		}
		var rep userRepresentation
		_ = json.NewDecoder(r.Body).Decode(&rep)
		rep.ID = id
		f.users[id] = rep
		w.WriteHeader(http.StatusNoContent)
	}))

	f.mux.HandleFunc("PUT /admin/realms/portal/users/{id}/reset-password", admin(func(w http.ResponseWriter, r *http.Request) {
		var cred credentialRepresentation
		_ = json.NewDecoder(r.Body).Decode(&cred)
		f.passwords[r.PathValue("id")] = cred.Value
		w.WriteHeader(http.StatusNoContent)
	}))

	f.mux.HandleFunc("GET /admin/realms/portal/roles/{name}", admin(func(w http.ResponseWriter, r *http.Request) {
		role, ok := f.roles[r.PathValue("name")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(role)
	}))

	f.mux.HandleFunc("GET /admin/realms/portal/users/{id}/role-mappings/realm", admin(func(w http.ResponseWriter, r *http.Request) {
		out := []roleRepresentation{}
		for _, name := range f.mappings[r.PathValue("id")] {
			out = append(out, f.roles[name])
		}
		_ = json.NewEncoder(w).Encode(out)
	}))

	f.mux.HandleFunc("POST /admin/realms/portal/users/{id}/role-mappings/realm", admin(func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		var reps []roleRepresentation
		_ = json.NewDecoder(r.Body).Decode(&reps)
		for _, rep := range reps {
			f.mappings[id] = append(f.mappings[id], rep.Name)
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	f.mux.HandleFunc("DELETE /admin/realms/portal/users/{id}/role-mappings/realm", admin(func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		var reps []roleRepresentation
		_ = json.NewDecoder(r.Body).Decode(&reps)
		remaining := f.mappings[id][:0]
		for _, name := range f.mappings[id] {
			keep := true
			for _, rep := range reps {
				if rep.Name == name {
					keep = false
					break
				}
			}
			if keep {
				remaining = append(remaining, name)
			}
		}
		f.mappings[id] = remaining
		w.WriteHeader(http.StatusNoContent)
	}))

	return f
}

func newTestClient(t *testing.T) (*Client, *fakeKeycloak) {
	t.Helper()

	fake := newFakeKeycloak()
	srv := httptest.NewServer(fake.mux)
	t.Cleanup(srv.Close)

	client := New(Config{
		BaseURL:      srv.URL,
		Realm:        "portal",
		ClientID:     "portal-backend",
		ClientSecret: "secret",
		Timeout:      5 * time.Second,
	})
	return client, fake
}

func TestAccountLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	client, fake := newTestClient(t)

	t.Run("find by email returns nil when absent", func(t *testing.T) {
		acc, err := client.FindByEmail(ctx, "teste@email.com")
		require.NoError(t, err)
		require.Nil(t, acc)
	})

	var accountID string

	t.Run("create account", func(t *testing.T) {
		id, err := client.CreateAccount(ctx, "Teste da Silva", "teste@email.com", "SenhaForte1")
		require.NoError(t, err)
		require.NotEmpty(t, id)
		accountID = id

		rep := fake.users[id]
		require.Equal(t, "Teste", rep.FirstName)
		require.Equal(t, "da Silva", rep.LastName)
		require.True(t, rep.Enabled)
	})

	t.Run("duplicate create conflicts", func(t *testing.T) {
		_, err := client.CreateAccount(ctx, "Outro", "teste@email.com", "SenhaForte1")
		require.ErrorIs(t, err, idp.ErrAccountAlreadyExists)
	})

	t.Run("create rejects bad input locally", func(t *testing.T) {
		_, err := client.CreateAccount(ctx, "X", "not-an-email", "SenhaForte1")
		require.ErrorIs(t, err, idp.ErrEmailInvalid)

		_, err = client.CreateAccount(ctx, "X", "x@email.com", "curta")
		require.ErrorIs(t, err, idp.ErrWeakPassword)
	})

	t.Run("find by email returns the account", func(t *testing.T) {
		acc, err := client.FindByEmail(ctx, "teste@email.com")
		require.NoError(t, err)
		require.NotNil(t, acc)
		require.Equal(t, accountID, acc.ID)
	})

	t.Run("set password", func(t *testing.T) {
		require.NoError(t, client.SetPassword(ctx, accountID, "OutraSenha2"))
		require.Equal(t, "OutraSenha2", fake.passwords[accountID])

		require.ErrorIs(t, client.SetPassword(ctx, accountID, "curta"), idp.ErrWeakPassword)
	})

	t.Run("role mapping round trip", func(t *testing.T) {
		require.ErrorIs(t, client.AssignRoles(ctx, accountID, nil), idp.ErrInvalidArgument)
		require.ErrorIs(t, client.AssignRoles(ctx, accountID, []string{"missing"}), idp.ErrUnknownRole)

		require.NoError(t, client.AssignRoles(ctx, accountID, []string{"user", "admin"}))
		require.ElementsMatch(t, []string{"user", "admin"}, client.ListCurrentRoles(ctx, accountID))

		require.NoError(t, client.RemoveRoles(ctx, accountID, []string{"admin"}))
		require.ElementsMatch(t, []string{"user"}, client.ListCurrentRoles(ctx, accountID))
	})

	t.Run("disable and enable", func(t *testing.T) {
		require.NoError(t, client.Disable(ctx, accountID))
		require.False(t, fake.users[accountID].Enabled)

		require.NoError(t, client.Enable(ctx, accountID))
		require.True(t, fake.users[accountID].Enabled)
	})

	t.Run("update profile", func(t *testing.T) {
		require.NoError(t, client.UpdateProfile(ctx, accountID, "Teste", "Atualizado", "teste@email.com", true))
		rep := fake.users[accountID]
		require.Equal(t, "Atualizado", rep.LastName)
	})

	t.Run("token is cached across calls", func(t *testing.T) {
		require.EqualValues(t, 1, fake.tokenRequests.Load())
	})
}

func TestListCurrentRolesDegradesToEmpty(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/realms/portal/protocol/openid-connect/token" {
			_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "t", "expires_in": 300})
			return
		}
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := New(Config{BaseURL: srv.URL, Realm: "portal", ClientID: "c", ClientSecret: "s"})
	require.Empty(t, client.ListCurrentRoles(ctx, uuid.NewString()))
}
