package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/Alp4ka/docpager"
)

// SearchFields are matched by the free-text term of Users.
var SearchFields = []string{"profile.email", "profile.displayName"}

// SignUp creates a password account for email. The email becomes the login
// name and the part before "@" the display name.
//
// Two concurrent sign-ups with the same email may both succeed.
func (s *Service) SignUp(ctx context.Context, email, password string) (*User, error) {
	email = normalizeEmail(email)
	if !ValidateEmail(email) {
		return nil, ErrInvalidEmail
	}

	n, err := s.store.Count(ctx, s.collection, docpager.Eq(fieldEmail, email))
	if err != nil {
		return nil, fmt.Errorf("cannot look up '%s': %w", email, err)
	}
	if n > 0 {
		return nil, ErrUserExists
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("cannot hash password: %w", err)
	}

	id, err := s.store.InsertOne(ctx, s.collection, newUserDocument(email, hash, s.now()))
	if err != nil {
		return nil, fmt.Errorf("cannot create user '%s': %w", email, err)
	}
	s.log.Info("User signed up", "userId", id)

	user, err := s.User(ctx, id)
	if err != nil {
		return nil, err
	}

	return user.public(), nil
}

// User loads the user with id, including its password hash.
func (s *Service) User(ctx context.Context, id string) (*User, error) {
	return s.findUser(ctx, docpager.Eq(docpager.IDField, id))
}

// UserByEmail loads the user whose login email is email.
func (s *Service) UserByEmail(ctx context.Context, email string) (*User, error) {
	return s.findUser(ctx, docpager.Eq(fieldEmail, normalizeEmail(email)))
}

// Users searches users by email and display name. Password hashes are never
// returned.
func (s *Service) Users(ctx context.Context, in docpager.SearchInput) (*docpager.Page[User], error) {
	projection := docpager.Projection{"services": false}
	for path, include := range in.Projection {
		if path != "services" && !include {
			projection[path] = false
		}
	}
	in.Projection = projection

	page, err := docpager.SearchAs[User](ctx, s.pager, s.collection, in, SearchFields, nil)
	if err != nil {
		return nil, fmt.Errorf("cannot search users: %w", err)
	}

	return page, nil
}

// RemoveUser deletes the user with id and ends its sessions.
func (s *Service) RemoveUser(ctx context.Context, id string) error {
	n, err := s.store.DeleteOne(ctx, s.collection, docpager.Eq(docpager.IDField, id))
	if err != nil {
		return fmt.Errorf("cannot remove user '%s': %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: '%s'", ErrUserNotFound, id)
	}
	s.log.Info("User removed", "userId", id)

	return s.Logout(ctx, id)
}

// UpdateProfile assigns every attribute of profile to the profile of user
// id, leaving the others untouched.
func (s *Service) UpdateProfile(ctx context.Context, id string, profile map[string]any) error {
	set := docpager.Document{fieldModifiedDate: s.now()}
	for key, value := range profile {
		path := fieldProfile + "." + key
		if err := docpager.ValidateField(path); err != nil {
			return fmt.Errorf("invalid profile attribute: %w", err)
		}
		set[path] = value
	}

	n, err := s.store.UpdateMany(ctx, s.collection, docpager.Eq(docpager.IDField, id), set)
	if err != nil {
		return fmt.Errorf("cannot update profile of '%s': %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: '%s'", ErrUserNotFound, id)
	}

	return nil
}

// Reset drops every user and session. It refuses to run unless the
// AdminEmail account exists, as a guard against wiping a real deployment.
func (s *Service) Reset(ctx context.Context) error {
	if _, err := s.UserByEmail(ctx, AdminEmail); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrResetPrecondition
		}
		return err
	}

	if err := s.store.DropCollection(ctx, s.collection); err != nil && !errors.Is(err, docpager.ErrCollectionNotFound) {
		return fmt.Errorf("cannot drop users: %w", err)
	}
	s.log.Info("Users dropped")

	return s.LogoutAll(ctx)
}

func (s *Service) findUser(ctx context.Context, filter docpager.Filter) (*User, error) {
	doc, err := docpager.FindOne(ctx, s.store, s.collection, filter)
	if errors.Is(err, docpager.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("cannot load user: %w", err)
	}

	var user User
	if err = docpager.DecodeDocument(doc, &user); err != nil {
		return nil, err
	}

	return &user, nil
}
