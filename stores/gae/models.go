//go:build !wasm
// +build !wasm

package gae

import (
	"encoding/json"
	"time"

	auth "github.com/secretsapp/auth"
)

// Kind constants for Datastore entities
const (
	KindUser         = "User"
	KindEmailIndex   = "EmailIndex"
	KindProviderLink = "ProviderLink"
)

// UserEntity is the Datastore representation of a user. Provider links are
// stored as JSON since Datastore has no native map property.
type UserEntity struct {
	ID           string    `datastore:"id"`
	Email        string    `datastore:"email"`
	PasswordHash []byte    `datastore:"password_hash,noindex"`
	Links        []byte    `datastore:"links,noindex"`
	Secret       string    `datastore:"secret,noindex"`
	CreatedAt    time.Time `datastore:"created_at"`
	UpdatedAt    time.Time `datastore:"updated_at"`
}

// indexEntity claims a unique identifier for a user.
type indexEntity struct {
	UserID string `datastore:"user_id"`
}

func (e *UserEntity) ToUser() (*auth.User, error) {
	user := &auth.User{
		ID:           e.ID,
		Email:        e.Email,
		PasswordHash: e.PasswordHash,
		Secret:       e.Secret,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
	if len(e.Links) > 0 {
		if err := json.Unmarshal(e.Links, &user.ProviderLinks); err != nil {
			return nil, err
		}
	}
	return user, nil
}

func UserToEntity(u *auth.User) (*UserEntity, error) {
	entity := &UserEntity{
		ID:           u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Secret:       u.Secret,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
	if len(u.ProviderLinks) > 0 {
		links, err := json.Marshal(u.ProviderLinks)
		if err != nil {
			return nil, err
		}
		entity.Links = links
	}
	return entity, nil
}
