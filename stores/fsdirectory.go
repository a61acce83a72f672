// Package stores provides a file-based implementation of the auth.Directory
// contract, suitable for development and tests. Each user is a JSON file;
// unique identifiers (email, provider links) are claimed as exclusive index
// files, which gives the directory its storage-level uniqueness guarantee.
package stores

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	auth "github.com/secretsapp/auth"
)

// FSDirectory stores users as JSON files under StoragePath.
type FSDirectory struct {
	StoragePath string
}

func NewFSDirectory(storagePath string) *FSDirectory {
	return &FSDirectory{StoragePath: storagePath}
}

func (s *FSDirectory) userPath(id string) string {
	return filepath.Join(s.StoragePath, "users", id+".json")
}

func (s *FSDirectory) emailIndexPath(email string) string {
	return filepath.Join(s.StoragePath, "index", "email", hex.EncodeToString([]byte(email)))
}

func (s *FSDirectory) linkIndexPath(provider, subjectID string) string {
	return filepath.Join(s.StoragePath, "index", "link", provider, hex.EncodeToString([]byte(subjectID)))
}

func (s *FSDirectory) FindByID(id string) (*auth.User, error) {
	data, err := os.ReadFile(s.userPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", auth.ErrNotFound, id)
		}
		return nil, err
	}
	var user auth.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *FSDirectory) FindByEmail(email string) (*auth.User, error) {
	return s.findByIndex(s.emailIndexPath(email))
}

func (s *FSDirectory) FindByProviderSubject(provider, subjectID string) (*auth.User, error) {
	return s.findByIndex(s.linkIndexPath(provider, subjectID))
}

func (s *FSDirectory) findByIndex(indexPath string) (*auth.User, error) {
	data, err := os.ReadFile(indexPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, auth.ErrNotFound
		}
		return nil, err
	}
	return s.FindByID(string(data))
}

// Create claims every unique identifier of the user before writing the
// record. The exclusive-create on index files is what rejects a concurrent
// Create for the same email or provider link.
func (s *FSDirectory) Create(user *auth.User) error {
	var claimed []string
	rollback := func() {
		for _, path := range claimed {
			os.Remove(path)
		}
	}

	claim := func(path string) error {
		err := createExclusiveFile(path, []byte(user.ID))
		if err != nil {
			if os.IsExist(err) {
				rollback()
				return auth.ErrDuplicateIdentifier
			}
			rollback()
			return err
		}
		claimed = append(claimed, path)
		return nil
	}

	if user.Email != "" {
		if err := claim(s.emailIndexPath(user.Email)); err != nil {
			return err
		}
	}
	for provider, subjectID := range user.ProviderLinks {
		if err := claim(s.linkIndexPath(provider, subjectID)); err != nil {
			return err
		}
	}

	if err := s.write(user); err != nil {
		rollback()
		return err
	}
	return nil
}

// Save updates an existing record. New identifiers (a credential added to a
// provider-only account, a freshly linked provider) are claimed the same way
// Create claims them.
func (s *FSDirectory) Save(user *auth.User) error {
	if _, err := s.FindByID(user.ID); err != nil {
		return err
	}

	if user.Email != "" {
		if err := s.ensureIndex(s.emailIndexPath(user.Email), user.ID); err != nil {
			return err
		}
	}
	for provider, subjectID := range user.ProviderLinks {
		if err := s.ensureIndex(s.linkIndexPath(provider, subjectID), user.ID); err != nil {
			return err
		}
	}
	return s.write(user)
}

// ensureIndex claims an index file for userID, tolerating one that already
// points at the same user.
func (s *FSDirectory) ensureIndex(path, userID string) error {
	err := createExclusiveFile(path, []byte(userID))
	if err == nil {
		return nil
	}
	if !os.IsExist(err) {
		return err
	}
	existing, readErr := os.ReadFile(path)
	if readErr != nil {
		return readErr
	}
	if string(existing) != userID {
		return auth.ErrDuplicateIdentifier
	}
	return nil
}

func (s *FSDirectory) write(user *auth.User) error {
	path := s.userPath(user.ID)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(user, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomicFile(path, data)
}
