package auth

import (
	"regexp"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/Alp4ka/docpager"
)

const (
	// AdminEmail is the account that must exist for Reset to proceed.
	AdminEmail = "admin@test.local"

	fieldEmail        = "email"
	fieldProfile      = "profile"
	fieldCreationDate = "creationDate"
	fieldModifiedDate = "modifiedDate"
)

var _emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type (
	Email struct {
		Email    string `json:"email"`
		Verified bool   `json:"verified"`
	}

	Profile struct {
		Email       string `json:"email"`
		DisplayName string `json:"displayName"`
		AvatarURL   string `json:"avatarUrl,omitempty"`
	}

	Services struct {
		Password struct {
			Bcrypt string `json:"bcrypt,omitempty"`
		} `json:"password"`
	}

	User struct {
		ID     string  `json:"id"`
		Email  string  `json:"email"`
		Emails []Email `json:"emails"`
		// Profile holds the well-known profile attributes. Custom attributes
		// set with UpdateProfile are kept in the stored document.
		Profile      Profile   `json:"profile"`
		Services     Services  `json:"services"`
		CreationDate time.Time `json:"creationDate"`
		ModifiedDate time.Time `json:"modifiedDate"`
	}

	// Session is the outcome of a successful login.
	Session struct {
		User         *User  `json:"user"`
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
)

// ValidateEmail reports whether email looks like an address.
func ValidateEmail(email string) bool {
	return _emailPattern.MatchString(email)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// newUserDocument builds the stored form of a user signing up with a password.
func newUserDocument(email, hash string, now time.Time) docpager.Document {
	return docpager.Document{
		fieldEmail: email,
		"emails": []any{
			map[string]any{"email": email, "verified": true},
		},
		fieldProfile: map[string]any{
			"email":       email,
			"displayName": email[:strings.Index(email, "@")],
		},
		"services": map[string]any{
			"password": map[string]any{"bcrypt": hash},
		},
		fieldCreationDate: now,
		fieldModifiedDate: now,
	}
}

// claims returns the token payload of u. It never carries credentials.
func (u *User) claims() map[string]any {
	return map[string]any{
		"emails": lo.Map(u.Emails, func(e Email, _ int) any {
			return map[string]any{"email": e.Email, "verified": e.Verified}
		}),
		"profile": map[string]any{
			"email":       u.Profile.Email,
			"displayName": u.Profile.DisplayName,
			"avatarUrl":   u.Profile.AvatarURL,
		},
	}
}

// public returns a copy of u without credentials.
func (u *User) public() *User {
	cp := *u
	cp.Services = Services{}
	return &cp
}
