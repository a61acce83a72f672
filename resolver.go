package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ProviderProfile is what an identity provider delivers after its own
// handshake: the provider name, the subject id it issued, and whatever
// profile hints came with it. The core never performs the handshake itself.
type ProviderProfile struct {
	Provider  string
	SubjectID string

	// Hints is provider profile data (name, email, picture, ...). It is not
	// used to overwrite existing records.
	Hints map[string]any
}

// Resolver finds or creates the directory record for a provider identity.
// At most one user exists per (provider, subject id) pair.
//
// No cross-provider merging happens here: someone who logs in with Google and
// later with GitHub, without ever registering locally, ends up as two
// independent users. That mirrors the modeled behavior and is a known
// limitation, not a bug.
type Resolver struct {
	Directory Directory
}

// Resolve returns the user linked to profile, creating one on first sight.
// A concurrent create for the same pair loses the race inside the Directory
// and is absorbed by one retry of the lookup; neither caller sees an error.
func (rv *Resolver) Resolve(profile ProviderProfile) (*User, error) {
	if profile.Provider == "" || profile.SubjectID == "" {
		return nil, fmt.Errorf("provider and subject id required")
	}

	user, err := rv.Directory.FindByProviderSubject(profile.Provider, profile.SubjectID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	now := time.Now()
	user = &User{
		ID:            NewUserID(),
		ProviderLinks: map[string]string{profile.Provider: profile.SubjectID},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	err = rv.Directory.Create(user)
	if err == nil {
		slog.Info("created user for provider identity", "provider", profile.Provider, "userId", user.ID)
		return user, nil
	}
	if errors.Is(err, ErrDuplicateIdentifier) {
		// Another request created the record between our lookup and create.
		return rv.Directory.FindByProviderSubject(profile.Provider, profile.SubjectID)
	}
	return nil, err
}
