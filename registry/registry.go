// Package registry records which refresh tokens are currently honored, per user.
//
// Every implementation serializes operations on the same user and never
// blocks operations on different users against each other.
package registry

import (
	"context"
	"errors"
	"slices"

	"github.com/samber/lo"
)

var ErrEmptyUserID = errors.New("user id is required")

type (
	// TokenSet is the set of refresh tokens of one user.
	TokenSet map[string]struct{}

	Registry interface {
		// Register adds token to the set of userID. Registering twice is a no-op.
		Register(ctx context.Context, userID, token string) error
		// Tokens returns the active set of userID, empty if there is none.
		Tokens(ctx context.Context, userID string) (TokenSet, error)
		Contains(ctx context.Context, userID, token string) (bool, error)
		// Revoke removes token from the set of userID and reports whether this
		// call removed it. Of concurrent revocations of the same token exactly
		// one reports true.
		Revoke(ctx context.Context, userID, token string) (bool, error)
		// Clear empties the set of userID.
		Clear(ctx context.Context, userID string) error
		// Reset empties the registry for all users.
		Reset(ctx context.Context) error
	}
)

func NewTokenSet(tokens ...string) TokenSet {
	set := make(TokenSet, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

func (s TokenSet) Has(token string) bool {
	_, ok := s[token]
	return ok
}

// Sorted returns the tokens in lexical order.
func (s TokenSet) Sorted() []string {
	tokens := lo.Keys(s)
	slices.Sort(tokens)
	return tokens
}

func validate(userID string) error {
	if userID == "" {
		return ErrEmptyUserID
	}
	return nil
}
