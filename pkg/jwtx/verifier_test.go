package jwtx

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func rsaJWK(t *testing.T, kid string, pub *rsa.PublicKey) JWK {
	t.Helper()
	return JWK{
		Kty: "RSA",
		Use: "sig",
		Alg: "RS256",
		Kid: kid,
		N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
	}
}

func signToken(t *testing.T, key *rsa.PrivateKey, kid string, claims Claims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, &claims)
	tok.Header["kid"] = kid
	signed, err := tok.SignedString(key)
	require.NoError(t, err)
	return signed
}

func TestRS256VerifierRoundTrip(t *testing.T) {
	t.Parallel()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	keys := NewKeySet()
	require.NoError(t, keys.ResetFromJWKS(JWKS{Keys: []JWK{rsaJWK(t, "k1", &key.PublicKey)}}))

	v := NewVerifierRS256(keys, "https://idp.example/realms/portal")

	now := time.Now()
	signed := signToken(t, key, "k1", Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "https://idp.example/realms/portal",
			Subject:   "user-1",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		},
		Email:       "ana@example.com",
		RealmAccess: RoleAccess{Roles: []string{"user", "admin"}},
	})

	claims, err := v.Verify(signed)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.Subject)
	require.Equal(t, "ana@example.com", claims.Email)
	require.Equal(t, []string{"user", "admin"}, claims.Roles())
}

func TestRS256VerifierRejections(t *testing.T) {
	t.Parallel()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	other, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	keys := NewKeySet()
	require.NoError(t, keys.ResetFromJWKS(JWKS{Keys: []JWK{rsaJWK(t, "k1", &key.PublicKey)}}))
	v := NewVerifierRS256(keys, "issuer")

	now := time.Now()
	base := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "issuer",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		},
	}

	t.Run("unknown kid", func(t *testing.T) {
		_, err := v.Verify(signToken(t, key, "other-kid", base))
		require.Error(t, err)
	})

	t.Run("wrong key", func(t *testing.T) {
		_, err := v.Verify(signToken(t, other, "k1", base))
		require.Error(t, err)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		bad := base
		bad.Issuer = "someone-else"
		_, err := v.Verify(signToken(t, key, "k1", bad))
		require.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		bad := base
		bad.ExpiresAt = jwt.NewNumericDate(now.Add(-time.Minute))
		_, err := v.Verify(signToken(t, key, "k1", bad))
		require.Error(t, err)
	})
}

func TestRemoteKeySetFetch(t *testing.T) {
	t.Parallel()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(JWKS{Keys: []JWK{rsaJWK(t, "remote-kid", &key.PublicKey)}})
	}))
	defer srv.Close()

	remote := NewRemoteKeySet(srv.URL, srv.Client())
	require.False(t, remote.IsReady())

	// First lookup triggers a fetch.
	pub, err := remote.Get("remote-kid")
	require.NoError(t, err)
	require.NotNil(t, pub)
	require.True(t, remote.IsReady())

	// Unknown kid right after a fetch is rate-limited, not re-fetched.
	_, err = remote.Get("missing-kid")
	require.ErrorIs(t, err, ErrNoKey)
}
