// Package grpc is the gRPC face of the authentication gate: interceptors
// that resolve the caller's principal from request metadata and refuse
// unauthenticated calls to protected methods. The handshake and session
// machinery stay in the core; this package only consumes its token verifier.
package grpc

import (
	"context"

	"google.golang.org/grpc/metadata"
)

// Default metadata keys for authentication context.
const (
	// DefaultMetadataKeyAuthToken is the metadata key carrying a signed auth
	// token, as issued by auth.Sessions.
	DefaultMetadataKeyAuthToken = "authorization"

	// DefaultMetadataKeyUserID is the metadata key a trusted gateway can use
	// to forward an already-authenticated user id.
	DefaultMetadataKeyUserID = "x-user-id"
)

// VerifyTokenFunc validates a signed auth token and returns the user id it
// names. auth.Sessions.VerifyToken satisfies this.
type VerifyTokenFunc func(token string) (userID string, err error)

// Config holds the metadata key configuration for the gate.
type Config struct {
	// MetadataKeyAuthToken is the key checked for a signed token.
	// Defaults to "authorization".
	MetadataKeyAuthToken string

	// MetadataKeyUserID is the key checked for a gateway-forwarded user id.
	// Defaults to "x-user-id".
	MetadataKeyUserID string

	// TrustUserIDMetadata accepts the forwarded user id without a token.
	// Enable only behind a gateway that strips the key from client traffic.
	TrustUserIDMetadata bool
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		MetadataKeyAuthToken: DefaultMetadataKeyAuthToken,
		MetadataKeyUserID:    DefaultMetadataKeyUserID,
	}
}

// EnsureDefaults fills in default values for any unset fields.
func (c *Config) EnsureDefaults() {
	if c.MetadataKeyAuthToken == "" {
		c.MetadataKeyAuthToken = DefaultMetadataKeyAuthToken
	}
	if c.MetadataKeyUserID == "" {
		c.MetadataKeyUserID = DefaultMetadataKeyUserID
	}
}

type userIDKey struct{}

// UserIDFromContext returns the principal's user id resolved by the
// interceptor, or empty for an anonymous call.
func UserIDFromContext(ctx context.Context) string {
	userID, _ := ctx.Value(userIDKey{}).(string)
	return userID
}

// ContextWithUserID stamps a resolved user id onto the context. Exposed for
// tests and in-process handler wiring.
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserIDToOutgoingContext forwards a user id on outgoing gRPC metadata.
func UserIDToOutgoingContext(ctx context.Context, userID string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, DefaultMetadataKeyUserID, userID)
}

// TokenToOutgoingContext attaches a signed auth token to outgoing metadata.
func TokenToOutgoingContext(ctx context.Context, token string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, DefaultMetadataKeyAuthToken, "Bearer "+token)
}

// IsAuthenticated reports whether the context carries a resolved principal.
func IsAuthenticated(ctx context.Context) bool {
	return UserIDFromContext(ctx) != ""
}
