// Package auth implements user accounts and the session lifecycle on top of a
// docpager.Store: password login, refresh token rotation and revocation.
//
// A session starts with a login, which issues an access/refresh pair and
// registers the refresh token. Logging in with a registered refresh token
// issues a new pair. Clearing the registry for a user ends all of the user's
// sessions.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"github.com/Alp4ka/docpager"
	"github.com/Alp4ka/docpager/registry"
	"github.com/Alp4ka/docpager/token"
)

// DefaultCollection holds the user documents.
const DefaultCollection = "users"

// RefreshPolicy decides what happens to a refresh token once it was used.
type RefreshPolicy int

const (
	// ReuseRefresh keeps a used refresh token registered until it expires or is
	// cleared.
	ReuseRefresh RefreshPolicy = iota
	// SingleUseRefresh revokes a refresh token when it is used. Of concurrent
	// refreshes with the same token exactly one succeeds.
	SingleUseRefresh
)

func (p RefreshPolicy) String() string {
	if p == SingleUseRefresh {
		return "single-use"
	}
	return "reuse"
}

func ParseRefreshPolicy(s string) (RefreshPolicy, error) {
	switch strings.ToLower(s) {
	case "", "reuse":
		return ReuseRefresh, nil
	case "single-use", "single":
		return SingleUseRefresh, nil
	default:
		return 0, fmt.Errorf("unknown refresh policy '%s'", s)
	}
}

type (
	Option func(*Service)

	// Service is safe for concurrent use.
	Service struct {
		store      docpager.Store
		pager      *docpager.Pager
		issuer     *token.Issuer
		registry   registry.Registry
		hasher     Hasher
		log        logr.Logger
		policy     RefreshPolicy
		tokenOpts  []token.IssueOption
		collection string
		now        func() time.Time
	}
)

func WithLogger(log logr.Logger) Option {
	return func(s *Service) {
		s.log = log
	}
}

// WithHasher replaces the bcrypt hasher.
func WithHasher(h Hasher) Option {
	return func(s *Service) {
		s.hasher = h
	}
}

func WithRefreshPolicy(p RefreshPolicy) Option {
	return func(s *Service) {
		s.policy = p
	}
}

// WithTokenOptions applies opts to every issued pair.
func WithTokenOptions(opts ...token.IssueOption) Option {
	return func(s *Service) {
		s.tokenOpts = append(s.tokenOpts, opts...)
	}
}

// WithCollection stores users in collection instead of DefaultCollection.
func WithCollection(collection string) Option {
	return func(s *Service) {
		s.collection = collection
	}
}

func NewService(store docpager.Store, pager *docpager.Pager, issuer *token.Issuer, reg registry.Registry, opts ...Option) *Service {
	s := &Service{
		store:      store,
		pager:      pager,
		issuer:     issuer,
		registry:   reg,
		hasher:     BcryptHasher{},
		collection: DefaultCollection,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.log.GetSink() == nil {
		s.log = logr.Discard()
	}
	s.log = s.log.WithName("auth")

	return s
}

// LoginWithPassword checks the credentials of the account registered with
// email and starts a session. Unknown accounts and wrong passwords both fail
// with ErrInvalidCredentials.
func (s *Service) LoginWithPassword(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.UserByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		s.log.Info("Login failed", "email", email, "reason", "unknown email")
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	hash := user.Services.Password.Bcrypt
	if hash == "" {
		return nil, fmt.Errorf("%w: '%s'", ErrPasswordNotSet, user.ID)
	}

	ok, err := s.hasher.Compare(hash, password)
	if err != nil {
		return nil, fmt.Errorf("cannot check password of '%s': %w", user.ID, err)
	}
	if !ok {
		s.log.Info("Login failed", "userId", user.ID, "reason", "wrong password")
		return nil, ErrInvalidCredentials
	}

	return s.startSession(ctx, user)
}

// LoginWithRefreshToken starts a new session from a refresh token that is
// valid and registered for its user. Under ReuseRefresh the used token stays
// registered.
func (s *Service) LoginWithRefreshToken(ctx context.Context, refreshToken string) (*Session, error) {
	claims, err := s.issuer.Verify(refreshToken)
	if err != nil {
		return nil, err
	}

	var registered bool
	switch s.policy {
	case SingleUseRefresh:
		registered, err = s.registry.Revoke(ctx, claims.UserID, refreshToken)
	default:
		registered, err = s.registry.Contains(ctx, claims.UserID, refreshToken)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot check refresh token: %w", err)
	}
	if !registered {
		s.log.Info("Refresh rejected", "userId", claims.UserID, "jti", claims.ID)
		return nil, ErrTokenNotRegistered
	}

	user, err := s.User(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}

	return s.startSession(ctx, user)
}

// Logout ends every session of userID.
func (s *Service) Logout(ctx context.Context, userID string) error {
	if err := s.registry.Clear(ctx, userID); err != nil {
		return fmt.Errorf("cannot clear sessions of '%s': %w", userID, err)
	}
	s.log.Info("Sessions revoked", "userId", userID)

	return nil
}

// LogoutAll ends every session of every user.
func (s *Service) LogoutAll(ctx context.Context) error {
	if err := s.registry.Reset(ctx); err != nil {
		return fmt.Errorf("cannot clear sessions: %w", err)
	}
	s.log.Info("All sessions revoked")

	return nil
}

// RevokeRefreshToken ends the single session of refreshToken. The token must
// verify; it reports whether the token was still registered.
func (s *Service) RevokeRefreshToken(ctx context.Context, refreshToken string) (bool, error) {
	claims, err := s.issuer.Verify(refreshToken)
	if err != nil {
		return false, err
	}

	revoked, err := s.registry.Revoke(ctx, claims.UserID, refreshToken)
	if err != nil {
		return false, fmt.Errorf("cannot revoke refresh token: %w", err)
	}
	if revoked {
		s.log.Info("Session revoked", "userId", claims.UserID, "jti", claims.ID)
	}

	return revoked, nil
}

// startSession issues a pair for user and registers its refresh token before
// handing it out.
func (s *Service) startSession(ctx context.Context, user *User) (*Session, error) {
	pair, err := s.issuer.Issue(user.ID, user.claims(), s.tokenOpts...)
	if err != nil {
		return nil, fmt.Errorf("cannot issue tokens for '%s': %w", user.ID, err)
	}

	if err = s.registry.Register(ctx, user.ID, pair.RefreshToken); err != nil {
		return nil, fmt.Errorf("cannot register refresh token of '%s': %w", user.ID, err)
	}
	s.log.V(1).Info("Session started", "userId", user.ID)

	return &Session{
		User:         user.public(),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}
