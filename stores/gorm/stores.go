//go:build !wasm
// +build !wasm

package gorm

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	auth "github.com/secretsapp/auth"
)

// AutoMigrate runs database migrations for the directory tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&UserModel{},
		&ProviderLinkModel{},
	)
}

// Directory implements auth.Directory using GORM
type Directory struct {
	db *gorm.DB
}

func NewDirectory(db *gorm.DB) *Directory {
	return &Directory{db: db}
}

func (s *Directory) FindByID(id string) (*auth.User, error) {
	var model UserModel
	err := s.db.Preload("Links").First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", auth.ErrNotFound, id)
		}
		return nil, err
	}
	return model.ToUser(), nil
}

func (s *Directory) FindByEmail(email string) (*auth.User, error) {
	var model UserModel
	err := s.db.Preload("Links").First(&model, "email = ?", email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auth.ErrNotFound
		}
		return nil, err
	}
	return model.ToUser(), nil
}

func (s *Directory) FindByProviderSubject(provider, subjectID string) (*auth.User, error) {
	var link ProviderLinkModel
	err := s.db.First(&link, "provider = ? AND subject_id = ?", provider, subjectID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auth.ErrNotFound
		}
		return nil, err
	}
	return s.FindByID(link.UserID)
}

// Create inserts the user and its provider links in one transaction. A unique
// index violation — including one caused by a concurrent Create — comes back
// as auth.ErrDuplicateIdentifier.
func (s *Directory) Create(user *auth.User) error {
	model := UserToModel(user)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(model).Error
	})
	if err != nil {
		if isDuplicate(err) {
			return auth.ErrDuplicateIdentifier
		}
		return err
	}
	return nil
}

// Save updates an existing user. Scalar fields are written explicitly so
// clearing the secret works; links are only ever added, matching the core's
// mutation model.
func (s *Directory) Save(user *auth.User) error {
	model := UserToModel(user)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&UserModel{}).Where("id = ?", user.ID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return fmt.Errorf("%w: %s", auth.ErrNotFound, user.ID)
		}

		updates := map[string]any{
			"email":         model.Email,
			"password_hash": model.PasswordHash,
			"secret":        model.Secret,
			"updated_at":    time.Now(),
		}
		if err := tx.Model(&UserModel{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
			return err
		}

		for _, link := range model.Links {
			err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&link).Error
			if err != nil {
				return err
			}
			// A pre-existing row for this pair must belong to this user.
			var existing ProviderLinkModel
			if err := tx.First(&existing, "provider = ? AND subject_id = ?", link.Provider, link.SubjectID).Error; err != nil {
				return err
			}
			if existing.UserID != user.ID {
				return auth.ErrDuplicateIdentifier
			}
		}
		return nil
	})
	if err != nil {
		if isDuplicate(err) {
			return auth.ErrDuplicateIdentifier
		}
		return err
	}
	return nil
}

// isDuplicate recognizes unique-constraint violations across drivers. GORM
// translates them to ErrDuplicatedKey when TranslateError is on; the string
// checks cover configs where it is not.
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, auth.ErrDuplicateIdentifier) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "Duplicate entry")
}
