package auth_test

import (
	"bytes"
	"testing"

	"golang.org/x/crypto/bcrypt"

	auth "github.com/secretsapp/auth"
)

// weakHasher keeps the bcrypt work factor at its floor so tests stay fast.
var weakHasher = &auth.Hasher{Cost: bcrypt.MinCost}

func TestHasherRoundTrip(t *testing.T) {
	digest, err := weakHasher.Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if !weakHasher.Verify("correct horse battery staple", digest) {
		t.Error("expected digest to verify against its own plaintext")
	}
	if weakHasher.Verify("wrong horse", digest) {
		t.Error("expected wrong plaintext to fail verification")
	}
}

func TestHasherSaltsDigests(t *testing.T) {
	first, err := weakHasher.Hash("samepassword")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	second, err := weakHasher.Hash("samepassword")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if bytes.Equal(first, second) {
		t.Error("two digests of the same plaintext should differ")
	}
	if !weakHasher.Verify("samepassword", first) || !weakHasher.Verify("samepassword", second) {
		t.Error("both digests should still verify")
	}
}

func TestHasherMalformedDigest(t *testing.T) {
	for _, digest := range [][]byte{nil, {}, []byte("not a bcrypt digest")} {
		if weakHasher.Verify("anything", digest) {
			t.Errorf("digest %q should not verify", digest)
		}
	}
}

func TestHasherZeroValue(t *testing.T) {
	var h auth.Hasher
	digest, err := h.Hash("pw")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	cost, err := bcrypt.Cost(digest)
	if err != nil {
		t.Fatalf("Cost failed: %v", err)
	}
	if cost != bcrypt.DefaultCost {
		t.Errorf("zero value cost = %d, want %d", cost, bcrypt.DefaultCost)
	}
}
