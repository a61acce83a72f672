//go:build !wasm
// +build !wasm

package gae

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/datastore"
	"google.golang.org/api/iterator"

	auth "github.com/secretsapp/auth"
)

// Directory implements auth.Directory using Google Cloud Datastore
type Directory struct {
	client    *datastore.Client
	namespace string
	ctx       context.Context
}

// NewDirectory creates a new Datastore-backed Directory
func NewDirectory(client *datastore.Client, namespace string) *Directory {
	return &Directory{
		client:    client,
		namespace: namespace,
		ctx:       context.Background(),
	}
}

// WithContext returns a copy of the directory bound to the given context
func (s *Directory) WithContext(ctx context.Context) *Directory {
	return &Directory{
		client:    s.client,
		namespace: s.namespace,
		ctx:       ctx,
	}
}

func (s *Directory) namespacedKey(kind, name string) *datastore.Key {
	key := datastore.NameKey(kind, name, nil)
	key.Namespace = s.namespace
	return key
}

func linkKeyName(provider, subjectID string) string {
	return provider + "|" + subjectID
}

func (s *Directory) FindByID(id string) (*auth.User, error) {
	var entity UserEntity
	err := s.client.Get(s.ctx, s.namespacedKey(KindUser, id), &entity)
	if err != nil {
		if errors.Is(err, datastore.ErrNoSuchEntity) {
			return nil, fmt.Errorf("%w: %s", auth.ErrNotFound, id)
		}
		return nil, err
	}
	return entity.ToUser()
}

func (s *Directory) FindByEmail(email string) (*auth.User, error) {
	return s.findByIndex(s.namespacedKey(KindEmailIndex, email))
}

func (s *Directory) FindByProviderSubject(provider, subjectID string) (*auth.User, error) {
	return s.findByIndex(s.namespacedKey(KindProviderLink, linkKeyName(provider, subjectID)))
}

func (s *Directory) findByIndex(key *datastore.Key) (*auth.User, error) {
	var index indexEntity
	err := s.client.Get(s.ctx, key, &index)
	if err != nil {
		if errors.Is(err, datastore.ErrNoSuchEntity) {
			return nil, auth.ErrNotFound
		}
		return nil, err
	}
	return s.FindByID(index.UserID)
}

// Create writes the user and claims its identifiers inside one transaction.
// The transactional read of the index keys is what rejects a concurrent
// create for the same identifier.
func (s *Directory) Create(user *auth.User) error {
	entity, err := UserToEntity(user)
	if err != nil {
		return err
	}

	var indexKeys []*datastore.Key
	if user.Email != "" {
		indexKeys = append(indexKeys, s.namespacedKey(KindEmailIndex, user.Email))
	}
	for provider, subjectID := range user.ProviderLinks {
		indexKeys = append(indexKeys, s.namespacedKey(KindProviderLink, linkKeyName(provider, subjectID)))
	}

	_, err = s.client.RunInTransaction(s.ctx, func(tx *datastore.Transaction) error {
		for _, key := range indexKeys {
			var existing indexEntity
			err := tx.Get(key, &existing)
			if err == nil {
				return auth.ErrDuplicateIdentifier
			}
			if !errors.Is(err, datastore.ErrNoSuchEntity) {
				return err
			}
		}
		for _, key := range indexKeys {
			if _, err := tx.Put(key, &indexEntity{UserID: user.ID}); err != nil {
				return err
			}
		}
		_, err := tx.Put(s.namespacedKey(KindUser, user.ID), entity)
		return err
	})
	return err
}

// Save updates an existing user record, claiming any identifier it did not
// already hold.
func (s *Directory) Save(user *auth.User) error {
	entity, err := UserToEntity(user)
	if err != nil {
		return err
	}

	var indexKeys []*datastore.Key
	if user.Email != "" {
		indexKeys = append(indexKeys, s.namespacedKey(KindEmailIndex, user.Email))
	}
	for provider, subjectID := range user.ProviderLinks {
		indexKeys = append(indexKeys, s.namespacedKey(KindProviderLink, linkKeyName(provider, subjectID)))
	}

	userKey := s.namespacedKey(KindUser, user.ID)
	_, err = s.client.RunInTransaction(s.ctx, func(tx *datastore.Transaction) error {
		var existing UserEntity
		if err := tx.Get(userKey, &existing); err != nil {
			if errors.Is(err, datastore.ErrNoSuchEntity) {
				return fmt.Errorf("%w: %s", auth.ErrNotFound, user.ID)
			}
			return err
		}
		for _, key := range indexKeys {
			var index indexEntity
			err := tx.Get(key, &index)
			if errors.Is(err, datastore.ErrNoSuchEntity) {
				if _, err := tx.Put(key, &indexEntity{UserID: user.ID}); err != nil {
					return err
				}
				continue
			}
			if err != nil {
				return err
			}
			if index.UserID != user.ID {
				return auth.ErrDuplicateIdentifier
			}
		}
		_, err := tx.Put(userKey, entity)
		return err
	})
	return err
}

// All returns every user in the directory, for admin and maintenance tooling.
func (s *Directory) All(ctx context.Context) ([]*auth.User, error) {
	query := datastore.NewQuery(KindUser)
	if s.namespace != "" {
		query = query.Namespace(s.namespace)
	}

	var users []*auth.User
	it := s.client.Run(ctx, query)
	for {
		var entity UserEntity
		_, err := it.Next(&entity)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		user, err := entity.ToUser()
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}
