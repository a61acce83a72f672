package auth_test

import (
	"sync"
	"testing"

	auth "github.com/secretsapp/auth"
)

func TestResolveCreatesThenFinds(t *testing.T) {
	rv := &auth.Resolver{Directory: testDirectory(t)}
	profile := auth.ProviderProfile{
		Provider:  "google",
		SubjectID: "goog-123",
		Hints:     map[string]any{"name": "Sam"},
	}

	first, err := rv.Resolve(profile)
	if err != nil {
		t.Fatalf("first Resolve failed: %v", err)
	}
	if !first.LinkedTo("google") {
		t.Error("created user is not linked to its provider")
	}
	if first.Email != "" || len(first.PasswordHash) > 0 {
		t.Error("provider-only user should have no local credential")
	}

	second, err := rv.Resolve(profile)
	if err != nil {
		t.Fatalf("second Resolve failed: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("resolve not idempotent: %s vs %s", second.ID, first.ID)
	}
}

func TestResolveDoesNotMergeProviders(t *testing.T) {
	rv := &auth.Resolver{Directory: testDirectory(t)}
	google, err := rv.Resolve(auth.ProviderProfile{Provider: "google", SubjectID: "same-subject"})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	github, err := rv.Resolve(auth.ProviderProfile{Provider: "github", SubjectID: "same-subject"})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if google.ID == github.ID {
		t.Error("identities from different providers must not share a user")
	}
}

func TestResolveRequiresIdentity(t *testing.T) {
	rv := &auth.Resolver{Directory: testDirectory(t)}
	if _, err := rv.Resolve(auth.ProviderProfile{SubjectID: "x"}); err == nil {
		t.Error("expected error for missing provider")
	}
	if _, err := rv.Resolve(auth.ProviderProfile{Provider: "google"}); err == nil {
		t.Error("expected error for missing subject id")
	}
}

func TestResolveConcurrent(t *testing.T) {
	rv := &auth.Resolver{Directory: testDirectory(t)}
	profile := auth.ProviderProfile{Provider: "github", SubjectID: "42"}

	const workers = 8
	ids := make([]string, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user, err := rv.Resolve(profile)
			if err != nil {
				errs[i] = err
				return
			}
			ids[i] = user.ID
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			t.Fatalf("worker %d failed: %v", i, errs[i])
		}
		if ids[i] != ids[0] {
			t.Fatalf("workers resolved different users: %s vs %s", ids[i], ids[0])
		}
	}
}
