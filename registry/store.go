package registry

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/Alp4ka/docpager"
)

const DefaultCollection = "refresh_tokens"

// Store persists registrations as documents of a docpager.Store, one per
// (user, token) pair. The document id is derived from the pair, so
// registration is a single idempotent insert and revocation a single delete.
type Store struct {
	store      docpager.Store
	collection string
	now        func() time.Time
}

var _ Registry = (*Store)(nil)

func NewStore(store docpager.Store, collection string) *Store {
	if collection == "" {
		collection = DefaultCollection
	}

	return &Store{store: store, collection: collection, now: time.Now}
}

func (s *Store) Register(ctx context.Context, userID, token string) error {
	if err := validate(userID); err != nil {
		return err
	}

	_, err := s.store.InsertOne(ctx, s.collection, docpager.Document{
		docpager.IDField: entryID(userID, token),
		"userId":         userID,
		"token":          token,
		"createdAt":      s.now(),
	})
	if err != nil && !errors.Is(err, docpager.ErrDuplicateID) {
		return fmt.Errorf("cannot register refresh token: %w", err)
	}

	return nil
}

func (s *Store) Tokens(ctx context.Context, userID string) (TokenSet, error) {
	if err := validate(userID); err != nil {
		return nil, err
	}

	docs, err := s.store.Find(ctx, s.collection, docpager.Eq("userId", userID), docpager.FindOptions{
		Projection: docpager.Projection{"token": true},
	})
	if err != nil {
		return nil, fmt.Errorf("cannot load refresh tokens: %w", err)
	}

	return NewTokenSet(lo.FilterMap(docs, func(d docpager.Document, _ int) (string, bool) {
		t, ok := d["token"].(string)
		return t, ok
	})...), nil
}

func (s *Store) Contains(ctx context.Context, userID, token string) (bool, error) {
	if err := validate(userID); err != nil {
		return false, err
	}

	n, err := s.store.Count(ctx, s.collection, docpager.Eq(docpager.IDField, entryID(userID, token)))
	if err != nil {
		return false, fmt.Errorf("cannot look up refresh token: %w", err)
	}

	return n > 0, nil
}

func (s *Store) Revoke(ctx context.Context, userID, token string) (bool, error) {
	if err := validate(userID); err != nil {
		return false, err
	}

	n, err := s.store.DeleteMany(ctx, s.collection, docpager.Eq(docpager.IDField, entryID(userID, token)))
	if err != nil {
		return false, fmt.Errorf("cannot revoke refresh token: %w", err)
	}

	return n > 0, nil
}

func (s *Store) Clear(ctx context.Context, userID string) error {
	if err := validate(userID); err != nil {
		return err
	}

	if _, err := s.store.DeleteMany(ctx, s.collection, docpager.Eq("userId", userID)); err != nil {
		return fmt.Errorf("cannot clear refresh tokens: %w", err)
	}

	return nil
}

func (s *Store) Reset(ctx context.Context) error {
	err := s.store.DropCollection(ctx, s.collection)
	if err != nil && !errors.Is(err, docpager.ErrCollectionNotFound) {
		return fmt.Errorf("cannot reset refresh tokens: %w", err)
	}

	return nil
}

func entryID(userID, token string) string {
	h := sha256.New()
	h.Write([]byte(userID))
	h.Write([]byte{0})
	h.Write([]byte(token))

	return hex.EncodeToString(h.Sum(nil))
}
