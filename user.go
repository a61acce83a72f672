package auth

import (
	"time"

	"github.com/google/uuid"
)

// User is the single entity of the system. A user can authenticate locally
// (Email + PasswordHash), through any number of linked providers, or both.
type User struct {
	// ID is the opaque unique identifier assigned at creation. It doubles as
	// the session token and never changes.
	ID string `json:"id"`

	// Email is the local identifier used for password login. Empty for
	// provider-only accounts. Unique across the directory when present.
	Email string `json:"email,omitempty"`

	// PasswordHash is the bcrypt digest for local login. Only the Hasher
	// produces or consumes it; it is never logged or rendered.
	PasswordHash []byte `json:"password_hash,omitempty"`

	// ProviderLinks maps a provider name ("google", "github", ...) to the
	// subject id that provider issued for this user. Each (provider, subject)
	// pair maps to at most one user across the directory.
	ProviderLinks map[string]string `json:"provider_links,omitempty"`

	// Secret is the application payload, owned and mutated only by the
	// authenticated owner.
	Secret string `json:"secret,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewUserID generates an opaque user id.
func NewUserID() string {
	return uuid.NewString()
}

// CanAuthenticate reports whether at least one authentication method exists.
// A user with neither a local credential nor a provider link is a
// data-integrity defect.
func (u *User) CanAuthenticate() bool {
	return (u.Email != "" && len(u.PasswordHash) > 0) || len(u.ProviderLinks) > 0
}

// LinkedTo reports whether the user is linked to the given provider.
func (u *User) LinkedTo(provider string) bool {
	_, ok := u.ProviderLinks[provider]
	return ok
}

// Clone returns a deep copy so store implementations can hand out records
// without sharing mutable state with callers.
func (u *User) Clone() *User {
	out := *u
	if u.PasswordHash != nil {
		out.PasswordHash = append([]byte(nil), u.PasswordHash...)
	}
	if u.ProviderLinks != nil {
		out.ProviderLinks = make(map[string]string, len(u.ProviderLinks))
		for k, v := range u.ProviderLinks {
			out.ProviderLinks[k] = v
		}
	}
	return &out
}
