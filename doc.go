// Package auth is the authentication and identity core of the Secrets
// application: it verifies or creates a caller's claimed identity, represents
// the outcome as a durable session principal, and unifies multiple
// authentication methods onto a single user record.
//
// # Architecture
//
// User: the sole entity. A user may carry a local identifier (email) plus a
// password digest, any number of provider links (google, github, ...), or
// both. Each local identifier and each (provider, subject id) pair maps to at
// most one user across the whole directory.
//
// Directory: the persistence contract holding one record per user. Uniqueness
// is enforced at the storage layer so the core stays safe under concurrent
// requests. Implementations live in the stores packages (JSON files, GORM,
// Cloud Datastore).
//
// LocalAuthenticator: verifies an email/password pair against the Directory
// using the bcrypt Hasher. Registration and login are distinct operations.
//
// Resolver: given a provider profile (provider name, subject id, hints),
// finds the matching user or creates one. Find-or-create is atomic with
// respect to the Directory's uniqueness guarantee; a create race is absorbed
// by a single second lookup.
//
// Codec: serializes an authenticated user to a minimal session token (the
// user id) and reconstructs the user on later requests. A stale token
// degrades the caller to anonymous rather than failing the request.
//
// # Basic Usage
//
// Wire the components against a Directory implementation:
//
//	dir := stores.NewFSDirectory("/path/to/storage")
//	local := &auth.LocalAuthenticator{Directory: dir}
//	resolver := &auth.Resolver{Directory: dir}
//	sessions := &auth.Sessions{
//	    Manager: scs.New(),
//	    Codec:   &auth.Codec{Directory: dir},
//	}
//
//	user, err := local.Register("alice@example.com", "hunter22pass")
//	user, err = local.Authenticate("alice@example.com", "hunter22pass")
//
// HTTP handlers for login and signup are provided by LocalAuth, and the
// Middleware type gates protected routes. Provider handshakes live in the
// oauth2 subpackage and only ever hand a ProviderProfile to the Resolver —
// the core never performs a handshake itself.
//
// # Security
//
// Passwords are hashed with bcrypt (salted, tunable cost). Login failures are
// reported as a single generic error so callers cannot distinguish an unknown
// email from a wrong password. The session token is the opaque user id, never
// a digest or profile data.
package auth
