package auth

import (
	"context"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alp4ka/docpager"
)

func Test_Service_Users(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.svc.SeedUsers(ctx, SeedInput{UserCount: 5}))

	var (
		emails []string
		cursor string
	)
	for pages := 0; ; pages++ {
		require.Less(t, pages, 5)

		page, err := env.svc.Users(ctx, docpager.SearchInput{Q: "user00", Limit: 2, Cursor: cursor})
		require.NoError(t, err)
		for _, u := range page.Docs {
			assert.Empty(t, u.Services.Password.Bcrypt)
			assert.NotEmpty(t, u.ID)
		}
		emails = append(emails, lo.Map(page.Docs, func(u User, _ int) string { return u.Email })...)

		if page.Cursor == "" {
			break
		}
		cursor = page.Cursor
	}
	assert.Equal(t, []string{
		"user001@test.local",
		"user002@test.local",
		"user003@test.local",
		"user004@test.local",
		"user005@test.local",
	}, emails)

	page, err := env.svc.Users(ctx, docpager.SearchInput{Q: "TEST.LOCAL", Limit: 100})
	require.NoError(t, err)
	assert.Len(t, page.Docs, 6)
	assert.Equal(t, AdminEmail, page.Docs[0].Email)
	assert.Empty(t, page.Cursor)

	page, err = env.svc.Users(ctx, docpager.SearchInput{
		Q:    "admin",
		Sort: docpager.Sort{docpager.Desc("profile.displayName")},
	})
	require.NoError(t, err)
	require.Len(t, page.Docs, 1)
	assert.Equal(t, "admin", page.Docs[0].Profile.DisplayName)

	page, err = env.svc.Users(ctx, docpager.SearchInput{
		Q:          "admin",
		Projection: docpager.Projection{"services": true, "emails": false},
	})
	require.NoError(t, err)
	require.Len(t, page.Docs, 1)
	assert.Empty(t, page.Docs[0].Services.Password.Bcrypt)
	assert.Empty(t, page.Docs[0].Emails)
	assert.Equal(t, AdminEmail, page.Docs[0].Profile.Email)
}

func Test_Service_SeedUsers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.svc.SeedUsers(ctx, SeedInput{UserCount: 3, Password: "seeded"}))

	n, err := env.store.Count(ctx, DefaultCollection, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)

	login, err := env.svc.LoginWithPassword(ctx, "user003@test.local", "seeded")
	require.NoError(t, err)

	err = env.svc.SeedUsers(ctx, SeedInput{})
	require.ErrorIs(t, err, ErrSeedPrecondition)
	assert.True(t, IsBusinessError(err))

	require.NoError(t, env.svc.SeedUsers(ctx, SeedInput{Force: true}))
	n, err = env.store.Count(ctx, DefaultCollection, nil)
	require.NoError(t, err)
	assert.EqualValues(t, DefaultSeedUserCount+1, n)

	_, err = env.svc.LoginWithRefreshToken(ctx, login.RefreshToken)
	require.ErrorIs(t, err, ErrTokenNotRegistered)

	_, err = env.svc.LoginWithPassword(ctx, AdminEmail, DefaultSeedPassword)
	require.NoError(t, err)

	require.Error(t, env.svc.SeedUsers(ctx, SeedInput{Force: true, UserCount: -1}))
}

func Test_Service_UpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	env.svc.now = func() time.Time { return created }
	user := env.signUp(t, "test@test.com", "abc123")

	updated := created.Add(time.Hour)
	env.svc.now = func() time.Time { return updated }
	require.NoError(t, env.svc.UpdateProfile(ctx, user.ID, map[string]any{
		"displayName": "Neo",
		"avatarUrl":   "https://example.com/neo.png",
		"theme":       "dark",
	}))

	got, err := env.svc.User(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, Profile{
		Email:       "test@test.com",
		DisplayName: "Neo",
		AvatarURL:   "https://example.com/neo.png",
	}, got.Profile)
	assert.Equal(t, created, got.CreationDate)
	assert.Equal(t, updated, got.ModifiedDate)

	doc, err := docpager.FindOne(ctx, env.store, DefaultCollection, docpager.Eq(docpager.IDField, user.ID))
	require.NoError(t, err)
	theme, ok := doc.Lookup("profile.theme")
	require.True(t, ok)
	assert.Equal(t, "dark", theme)

	require.ErrorIs(t, env.svc.UpdateProfile(ctx, "missing", map[string]any{"displayName": "x"}), ErrUserNotFound)
	require.Error(t, env.svc.UpdateProfile(ctx, user.ID, map[string]any{"bad key": "x"}))
}

func Test_Service_RemoveUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.signUp(t, "test@test.com", "abc123")

	login, err := env.svc.LoginWithPassword(ctx, "test@test.com", "abc123")
	require.NoError(t, err)

	require.NoError(t, env.svc.RemoveUser(ctx, user.ID))

	_, err = env.svc.User(ctx, user.ID)
	require.ErrorIs(t, err, ErrUserNotFound)

	_, err = env.svc.LoginWithRefreshToken(ctx, login.RefreshToken)
	require.ErrorIs(t, err, ErrTokenNotRegistered)

	require.ErrorIs(t, env.svc.RemoveUser(ctx, user.ID), ErrUserNotFound)
}

func Test_Service_Reset(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.signUp(t, "test@test.com", "abc123")

	require.ErrorIs(t, env.svc.Reset(ctx), ErrResetPrecondition)

	env.signUp(t, AdminEmail, "admin")
	login, err := env.svc.LoginWithPassword(ctx, "test@test.com", "abc123")
	require.NoError(t, err)

	require.NoError(t, env.svc.Reset(ctx))

	exists, err := env.store.CollectionExists(ctx, DefaultCollection)
	require.NoError(t, err)
	assert.False(t, exists)

	tokens, err := env.registry.Tokens(ctx, login.User.ID)
	require.NoError(t, err)
	assert.Empty(t, tokens)

	require.ErrorIs(t, env.svc.Reset(ctx), ErrResetPrecondition)
}

func Test_ValidateEmail(t *testing.T) {
	assert.True(t, ValidateEmail("a@b.co"))
	assert.True(t, ValidateEmail("first.last+tag@sub.example.org"))
	assert.False(t, ValidateEmail("a@b"))
	assert.False(t, ValidateEmail("a@@b.co"))
	assert.False(t, ValidateEmail("a b@c.de"))
}
