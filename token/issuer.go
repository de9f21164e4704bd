// Package token issues and verifies signed access/refresh token pairs.
//
// Tokens are JWTs carrying the user id, an arbitrary payload and a unique
// jti. HS256 uses a shared secret for both signing and verification; Ed25519
// signs with the private key and verifies with the public key. Keys may be
// given raw or PEM encoded.
package token

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type Method string

const (
	MethodHS256   Method = "hs256"
	MethodEd25519 Method = "ed25519"
)

const (
	DefaultAccessTTL  = 10 * time.Minute
	DefaultRefreshTTL = 30 * 24 * time.Hour
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
)

type (
	Config struct {
		Method Method
		// PrivateKey is the HS256 secret or the Ed25519 private key.
		PrivateKey []byte
		// PublicKey is the Ed25519 public key. Derived from PrivateKey when empty.
		PublicKey  []byte
		AccessTTL  time.Duration
		RefreshTTL time.Duration
		// Issuer is written to and required in the iss claim when set.
		Issuer string
	}

	// Claims is the decoded content of a token.
	Claims struct {
		UserID  string         `json:"userId"`
		Payload map[string]any `json:"payload,omitempty"`
		jwt.RegisteredClaims
	}

	Pair struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}

	IssueOption func(*issueOptions)

	VerifyOption func(*verifyOptions)

	// Issuer signs and verifies tokens. It is immutable and safe for concurrent use.
	Issuer struct {
		cfg       Config
		signKey   any
		verifyKey any
		now       func() time.Time
	}

	issueOptions struct {
		accessTTL  time.Duration
		refreshTTL time.Duration
		signingKey []byte
	}

	verifyOptions struct {
		key []byte
	}
)

// WithAccessTTL overrides the access token lifetime of a single Issue call.
func WithAccessTTL(ttl time.Duration) IssueOption {
	return func(o *issueOptions) {
		o.accessTTL = ttl
	}
}

// WithRefreshTTL overrides the refresh token lifetime of a single Issue call.
func WithRefreshTTL(ttl time.Duration) IssueOption {
	return func(o *issueOptions) {
		o.refreshTTL = ttl
	}
}

// WithSigningKey signs a single Issue call with key instead of the configured one.
func WithSigningKey(key []byte) IssueOption {
	return func(o *issueOptions) {
		o.signingKey = key
	}
}

// WithVerificationKey verifies a single token with key instead of the configured one.
func WithVerificationKey(key []byte) VerifyOption {
	return func(o *verifyOptions) {
		o.key = key
	}
}

func NewIssuer(cfg Config) (*Issuer, error) {
	if cfg.AccessTTL == 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL == 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	if cfg.AccessTTL < 0 || cfg.RefreshTTL < 0 {
		return nil, errors.New("invalid TTL configuration")
	}

	iss := &Issuer{cfg: cfg, now: time.Now}

	switch cfg.Method {
	case MethodHS256:
		if len(cfg.PrivateKey) == 0 {
			return nil, errors.New("hs256 requires a secret")
		}
		iss.signKey, iss.verifyKey = cfg.PrivateKey, cfg.PrivateKey
	case MethodEd25519:
		if len(cfg.PrivateKey) > 0 {
			priv, err := parseEdPrivateKey(cfg.PrivateKey)
			if err != nil {
				return nil, err
			}
			iss.signKey = priv
			iss.verifyKey = priv.Public()
		}
		if len(cfg.PublicKey) > 0 {
			pub, err := parseEdPublicKey(cfg.PublicKey)
			if err != nil {
				return nil, err
			}
			iss.verifyKey = pub
		}
		if iss.verifyKey == nil {
			return nil, errors.New("ed25519 requires a private or public key")
		}
	default:
		return nil, fmt.Errorf("unsupported signing method '%s'", cfg.Method)
	}

	return iss, nil
}

func (i *Issuer) Method() Method {
	return i.cfg.Method
}

// Issue signs a new access/refresh pair for userID. Each token carries its own jti.
func (i *Issuer) Issue(userID string, payload map[string]any, opts ...IssueOption) (Pair, error) {
	if userID == "" {
		return Pair{}, errors.New("user id is required")
	}

	o := issueOptions{accessTTL: i.cfg.AccessTTL, refreshTTL: i.cfg.RefreshTTL}
	for _, opt := range opts {
		opt(&o)
	}
	if o.accessTTL <= 0 || o.refreshTTL <= 0 {
		return Pair{}, errors.New("token lifetime must be positive")
	}

	key := i.signKey
	if o.signingKey != nil {
		var err error
		if key, err = i.parseSignKey(o.signingKey); err != nil {
			return Pair{}, err
		}
	}
	if key == nil {
		return Pair{}, errors.New("issuer has no signing key")
	}

	access, err := i.sign(userID, payload, o.accessTTL, key)
	if err != nil {
		return Pair{}, fmt.Errorf("cannot sign access token: %w", err)
	}
	refresh, err := i.sign(userID, payload, o.refreshTTL, key)
	if err != nil {
		return Pair{}, fmt.Errorf("cannot sign refresh token: %w", err)
	}

	return Pair{AccessToken: access, RefreshToken: refresh}, nil
}

// Verify checks the signature and lifetime of token and returns its claims.
// Failures wrap ErrTokenExpired or ErrTokenInvalid.
func (i *Issuer) Verify(token string, opts ...VerifyOption) (*Claims, error) {
	var o verifyOptions
	for _, opt := range opts {
		opt(&o)
	}

	key := i.verifyKey
	if o.key != nil {
		var err error
		if key, err = i.parseVerifyKey(o.key); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
		}
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{i.method().Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	}
	if i.cfg.Issuer != "" {
		options = append(options, jwt.WithIssuer(i.cfg.Issuer))
	}

	parsed, err := jwt.NewParser(options...).ParseWithClaims(token, &Claims{}, func(*jwt.Token) (any, error) {
		return key, nil
	})
	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, fmt.Errorf("%w: %w", ErrTokenExpired, err)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.UserID == "" {
		return nil, fmt.Errorf("%w: malformed claims", ErrTokenInvalid)
	}

	return claims, nil
}

func (i *Issuer) sign(userID string, payload map[string]any, ttl time.Duration, key any) (string, error) {
	now := i.now()
	claims := Claims{
		UserID:  userID,
		Payload: payload,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    i.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	return jwt.NewWithClaims(i.method(), claims).SignedString(key)
}

func (i *Issuer) method() jwt.SigningMethod {
	if i.cfg.Method == MethodHS256 {
		return jwt.SigningMethodHS256
	}
	return jwt.SigningMethodEdDSA
}

func (i *Issuer) parseSignKey(key []byte) (any, error) {
	if i.cfg.Method == MethodHS256 {
		return key, nil
	}
	return parseEdPrivateKey(key)
}

func (i *Issuer) parseVerifyKey(key []byte) (any, error) {
	if i.cfg.Method == MethodHS256 {
		return key, nil
	}
	return parseEdPublicKey(key)
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	if len(key) == ed25519.SeedSize {
		return ed25519.NewKeyFromSeed(key), nil
	}

	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}

	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}

	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}

	return edKey, nil
}
