//go:build !wasm
// +build !wasm

package gorm

import (
	"time"

	auth "github.com/secretsapp/auth"
)

// UserModel is the GORM model for users. Email is nullable so provider-only
// accounts don't collide on the unique index.
type UserModel struct {
	ID           string  `gorm:"primaryKey;size:64"`
	Email        *string `gorm:"uniqueIndex;size:255"`
	PasswordHash []byte
	Secret       string              `gorm:"type:text"`
	Links        []ProviderLinkModel `gorm:"foreignKey:UserID;references:ID"`
	CreatedAt    time.Time           `gorm:"autoCreateTime"`
	UpdatedAt    time.Time           `gorm:"autoUpdateTime"`
}

func (UserModel) TableName() string {
	return "users"
}

// ProviderLinkModel maps a provider-issued subject id to a user. The
// composite primary key is the storage-level guarantee that a (provider,
// subject id) pair belongs to at most one user.
type ProviderLinkModel struct {
	Provider  string    `gorm:"primaryKey;size:32"`
	SubjectID string    `gorm:"primaryKey;size:255;column:subject_id"`
	UserID    string    `gorm:"size:64;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (ProviderLinkModel) TableName() string {
	return "provider_links"
}

func (m *UserModel) ToUser() *auth.User {
	user := &auth.User{
		ID:           m.ID,
		PasswordHash: m.PasswordHash,
		Secret:       m.Secret,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
	if m.Email != nil {
		user.Email = *m.Email
	}
	if len(m.Links) > 0 {
		user.ProviderLinks = make(map[string]string, len(m.Links))
		for _, link := range m.Links {
			user.ProviderLinks[link.Provider] = link.SubjectID
		}
	}
	return user
}

func UserToModel(u *auth.User) *UserModel {
	model := &UserModel{
		ID:           u.ID,
		PasswordHash: u.PasswordHash,
		Secret:       u.Secret,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
	if u.Email != "" {
		email := u.Email
		model.Email = &email
	}
	for provider, subjectID := range u.ProviderLinks {
		model.Links = append(model.Links, ProviderLinkModel{
			Provider:  provider,
			SubjectID: subjectID,
			UserID:    u.ID,
		})
	}
	return model
}
