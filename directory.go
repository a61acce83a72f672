package auth

// Directory is the persistence contract for user records. All lookups are
// exact-match on unique keys. Implementations must enforce the uniqueness of
// emails and (provider, subject id) pairs at the storage layer — the service
// may run as multiple workers, so in-process locking is not enough.
type Directory interface {
	// FindByEmail returns the user with the given local identifier, or
	// ErrNotFound.
	FindByEmail(email string) (*User, error)

	// FindByProviderSubject returns the user linked to (provider, subjectID),
	// or ErrNotFound.
	FindByProviderSubject(provider, subjectID string) (*User, error)

	// FindByID returns the user with the given id, or ErrNotFound.
	FindByID(id string) (*User, error)

	// Create persists a new user. It returns ErrDuplicateIdentifier if the
	// email or any provider link is already taken, including when a
	// concurrent Create won the race.
	Create(user *User) error

	// Save updates an existing record. It returns ErrNotFound if the id is
	// unknown; that is an internal-consistency fault, not a user-facing
	// condition.
	Save(user *User) error
}
