package token

import (
	"crypto/ed25519"
	"crypto/rand"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHS256Issuer(t *testing.T) *Issuer {
	t.Helper()

	iss, err := NewIssuer(Config{Method: MethodHS256, PrivateKey: []byte("secret-secret-secret-secret")})
	require.NoError(t, err)

	return iss
}

func newEd25519Keys(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	return pub, priv
}

func Test_NewIssuer(t *testing.T) {
	pub, priv := newEd25519Keys(t)

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "hs256", cfg: Config{Method: MethodHS256, PrivateKey: []byte("s")}},
		{name: "hs256 without secret", cfg: Config{Method: MethodHS256}, wantErr: true},
		{name: "ed25519 private only", cfg: Config{Method: MethodEd25519, PrivateKey: priv}},
		{name: "ed25519 verify only", cfg: Config{Method: MethodEd25519, PublicKey: pub}},
		{name: "ed25519 without keys", cfg: Config{Method: MethodEd25519}, wantErr: true},
		{name: "ed25519 garbage key", cfg: Config{Method: MethodEd25519, PublicKey: []byte("nope")}, wantErr: true},
		{name: "unknown method", cfg: Config{Method: "rs256", PrivateKey: []byte("s")}, wantErr: true},
		{name: "negative ttl", cfg: Config{Method: MethodHS256, PrivateKey: []byte("s"), AccessTTL: -time.Second}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			iss, err := NewIssuer(tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, DefaultAccessTTL, iss.cfg.AccessTTL)
			assert.Equal(t, DefaultRefreshTTL, iss.cfg.RefreshTTL)
		})
	}
}

func Test_Issuer_Issue(t *testing.T) {
	iss := newHS256Issuer(t)
	now := time.Now().Truncate(time.Second)
	iss.now = func() time.Time { return now }

	pair, err := iss.Issue("u1", map[string]any{"role": "admin"})
	require.NoError(t, err)
	require.NotEqual(t, pair.AccessToken, pair.RefreshToken)

	access, err := iss.Verify(pair.AccessToken)
	require.NoError(t, err)
	refresh, err := iss.Verify(pair.RefreshToken)
	require.NoError(t, err)

	assert.Equal(t, "u1", access.UserID)
	assert.Equal(t, map[string]any{"role": "admin"}, access.Payload)
	assert.Equal(t, now.Unix(), access.IssuedAt.Unix())
	assert.Equal(t, now.Add(DefaultAccessTTL).Unix(), access.ExpiresAt.Unix())
	assert.Equal(t, now.Add(DefaultRefreshTTL).Unix(), refresh.ExpiresAt.Unix())
	assert.NotEmpty(t, access.ID)
	assert.NotEqual(t, access.ID, refresh.ID)
}

func Test_Issuer_Issue_Options(t *testing.T) {
	iss := newHS256Issuer(t)
	now := time.Now().Truncate(time.Second)
	iss.now = func() time.Time { return now }

	pair, err := iss.Issue("u1", nil, WithAccessTTL(time.Minute), WithRefreshTTL(time.Hour))
	require.NoError(t, err)

	access, err := iss.Verify(pair.AccessToken)
	require.NoError(t, err)
	refresh, err := iss.Verify(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Minute).Unix(), access.ExpiresAt.Unix())
	assert.Equal(t, now.Add(time.Hour).Unix(), refresh.ExpiresAt.Unix())

	_, err = iss.Issue("u1", nil, WithAccessTTL(-time.Minute))
	require.Error(t, err)
	_, err = iss.Issue("", nil)
	require.Error(t, err)
}

func Test_Issuer_Issue_DistinctIDs(t *testing.T) {
	iss := newHS256Issuer(t)

	seen := make(map[string]struct{})
	for range 50 {
		pair, err := iss.Issue("u1", nil)
		require.NoError(t, err)

		for _, tok := range []string{pair.AccessToken, pair.RefreshToken} {
			claims, err := iss.Verify(tok)
			require.NoError(t, err)
			require.NotContains(t, seen, claims.ID)
			seen[claims.ID] = struct{}{}
		}
	}
}

func Test_Issuer_Verify_Expired(t *testing.T) {
	iss := newHS256Issuer(t)
	iss.now = func() time.Time { return time.Now().Add(-time.Hour) }

	pair, err := iss.Issue("u1", nil)
	require.NoError(t, err)

	iss.now = time.Now
	_, err = iss.Verify(pair.AccessToken)
	require.ErrorIs(t, err, ErrTokenExpired)
	assert.NotErrorIs(t, err, ErrTokenInvalid)

	_, err = iss.Verify(pair.RefreshToken)
	require.NoError(t, err)
}

func Test_Issuer_Verify_Invalid(t *testing.T) {
	iss := newHS256Issuer(t)
	pair, err := iss.Issue("u1", nil)
	require.NoError(t, err)

	other, err := NewIssuer(Config{Method: MethodHS256, PrivateKey: []byte("another-secret")})
	require.NoError(t, err)

	parts := strings.Split(pair.AccessToken, ".")
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	noUser, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute))},
	}).SignedString([]byte("secret-secret-secret-secret"))
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: "u1"}).
		SignedString([]byte("secret-secret-secret-secret"))
	require.NoError(t, err)

	for name, tok := range map[string]string{
		"garbage":    "not-a-token",
		"empty":      "",
		"tampered":   tampered,
		"no user":    noUser,
		"no expiry":  noExpiry,
		"foreign":    mustIssue(t, other),
		"wrong kind": mustIssueEd25519(t),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := iss.Verify(tok)
			require.ErrorIs(t, err, ErrTokenInvalid)
		})
	}
}

func Test_Issuer_Ed25519(t *testing.T) {
	pub, priv := newEd25519Keys(t)

	signer, err := NewIssuer(Config{Method: MethodEd25519, PrivateKey: priv, Issuer: "docpager"})
	require.NoError(t, err)
	verifier, err := NewIssuer(Config{Method: MethodEd25519, PublicKey: pub, Issuer: "docpager"})
	require.NoError(t, err)

	pair, err := signer.Issue("u1", nil)
	require.NoError(t, err)

	claims, err := verifier.Verify(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "docpager", claims.Issuer)

	_, err = verifier.Issue("u1", nil)
	require.Error(t, err)

	otherPub, _ := newEd25519Keys(t)
	_, err = verifier.Verify(pair.AccessToken, WithVerificationKey(otherPub))
	require.ErrorIs(t, err, ErrTokenInvalid)

	foreignIssuer, err := NewIssuer(Config{Method: MethodEd25519, PublicKey: pub, Issuer: "elsewhere"})
	require.NoError(t, err)
	_, err = foreignIssuer.Verify(pair.AccessToken)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func Test_Issuer_PerCallKeys(t *testing.T) {
	iss := newHS256Issuer(t)
	key := []byte("rotated-secret")

	pair, err := iss.Issue("u1", nil, WithSigningKey(key))
	require.NoError(t, err)

	_, err = iss.Verify(pair.AccessToken)
	require.ErrorIs(t, err, ErrTokenInvalid)

	claims, err := iss.Verify(pair.AccessToken, WithVerificationKey(key))
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
}

func mustIssue(t *testing.T, iss *Issuer) string {
	t.Helper()

	pair, err := iss.Issue("u1", nil)
	require.NoError(t, err)

	return pair.AccessToken
}

func mustIssueEd25519(t *testing.T) string {
	t.Helper()

	_, priv := newEd25519Keys(t)
	iss, err := NewIssuer(Config{Method: MethodEd25519, PrivateKey: priv})
	require.NoError(t, err)

	return mustIssue(t, iss)
}
