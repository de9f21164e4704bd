package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/Alp4ka/docpager"
)

const (
	DefaultSeedUserCount = 10
	DefaultSeedPassword  = "password123"
)

// SeedInput controls SeedUsers.
type SeedInput struct {
	// Force wipes existing users and sessions first.
	Force bool `json:"force"`
	// UserCount is the number of regular users besides the admin.
	// Zero means DefaultSeedUserCount.
	UserCount int `json:"userCount"`
	// Password is shared by all seeded accounts. Empty means DefaultSeedPassword.
	Password string `json:"password"`
}

// SeedUsers creates the AdminEmail account and UserCount users named
// user001@test.local and so on. It fails with ErrSeedPrecondition if users
// exist and Force is not set.
func (s *Service) SeedUsers(ctx context.Context, in SeedInput) error {
	if in.UserCount < 0 {
		return fmt.Errorf("invalid user count %d", in.UserCount)
	}
	if in.UserCount == 0 {
		in.UserCount = DefaultSeedUserCount
	}
	if in.Password == "" {
		in.Password = DefaultSeedPassword
	}

	n, err := s.store.Count(ctx, s.collection, nil)
	if err != nil {
		return fmt.Errorf("cannot count users: %w", err)
	}
	if n > 0 {
		if !in.Force {
			return ErrSeedPrecondition
		}
		if err = s.store.DropCollection(ctx, s.collection); err != nil && !errors.Is(err, docpager.ErrCollectionNotFound) {
			return fmt.Errorf("cannot drop users: %w", err)
		}
		if err = s.LogoutAll(ctx); err != nil {
			return err
		}
	}

	emails := make([]string, 0, in.UserCount+1)
	emails = append(emails, AdminEmail)
	for i := 1; i <= in.UserCount; i++ {
		emails = append(emails, fmt.Sprintf("user%03d@test.local", i))
	}

	// the accounts share a password, so one hash serves all
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return fmt.Errorf("cannot hash password: %w", err)
	}

	for _, email := range emails {
		if _, err = s.store.InsertOne(ctx, s.collection, newUserDocument(email, hash, s.now())); err != nil {
			return fmt.Errorf("cannot create user '%s': %w", email, err)
		}
	}
	s.log.Info("Users seeded", "count", len(emails))

	return nil
}
