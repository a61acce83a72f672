package auth

import (
	"fmt"
	"time"
)

// UpdateSecret replaces the secret owned by the given user. The caller must
// already have authenticated as that user; this is the only mutation path for
// the payload. ErrNotFound here means the session named a user that no longer
// exists — an internal-consistency fault the route layer should log and
// surface as a server error.
func UpdateSecret(dir Directory, userID, secret string) (*User, error) {
	user, err := dir.FindByID(userID)
	if err != nil {
		return nil, err
	}
	user.Secret = secret
	user.UpdatedAt = time.Now()
	if err := dir.Save(user); err != nil {
		return nil, err
	}
	return user, nil
}

// RotateCredential replaces the user's password digest. Like UpdateSecret it
// is owner-only and runs the Hasher to completion before returning.
func RotateCredential(dir Directory, hasher *Hasher, userID, newPassword string) error {
	user, err := dir.FindByID(userID)
	if err != nil {
		return err
	}
	if user.Email == "" {
		return fmt.Errorf("user %s has no local identifier", userID)
	}
	if hasher == nil {
		hasher = &Hasher{}
	}
	digest, err := hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = digest
	user.UpdatedAt = time.Now()
	return dir.Save(user)
}
