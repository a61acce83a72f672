package grpc

import (
	"context"
	"testing"

	"google.golang.org/grpc/metadata"
)

func TestUserIDContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	if UserIDFromContext(ctx) != "" {
		t.Error("empty context should have no user id")
	}
	if IsAuthenticated(ctx) {
		t.Error("empty context should not be authenticated")
	}

	ctx = ContextWithUserID(ctx, "u1")
	if got := UserIDFromContext(ctx); got != "u1" {
		t.Errorf("got %q, want u1", got)
	}
	if !IsAuthenticated(ctx) {
		t.Error("context with user id should be authenticated")
	}
}

func TestOutgoingContextHelpers(t *testing.T) {
	ctx := TokenToOutgoingContext(context.Background(), "signed-token")
	ctx = UserIDToOutgoingContext(ctx, "u1")

	md, ok := metadata.FromOutgoingContext(ctx)
	if !ok {
		t.Fatal("no outgoing metadata")
	}
	if got := md.Get(DefaultMetadataKeyAuthToken); len(got) != 1 || got[0] != "Bearer signed-token" {
		t.Errorf("auth token metadata = %v", got)
	}
	if got := md.Get(DefaultMetadataKeyUserID); len(got) != 1 || got[0] != "u1" {
		t.Errorf("user id metadata = %v", got)
	}
}

func TestConfigEnsureDefaults(t *testing.T) {
	var c Config
	c.EnsureDefaults()
	if c.MetadataKeyAuthToken != DefaultMetadataKeyAuthToken {
		t.Errorf("auth token key = %q", c.MetadataKeyAuthToken)
	}
	if c.MetadataKeyUserID != DefaultMetadataKeyUserID {
		t.Errorf("user id key = %q", c.MetadataKeyUserID)
	}
}
