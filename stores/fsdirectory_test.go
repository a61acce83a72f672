package stores_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	auth "github.com/secretsapp/auth"
	"github.com/secretsapp/auth/stores"
)

func newUser(id, email string, links map[string]string) *auth.User {
	now := time.Now()
	return &auth.User{
		ID:            id,
		Email:         email,
		PasswordHash:  []byte("$2a$04$fakedigestforstoretests000000000000000000000000000000"),
		ProviderLinks: links,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestCreateAndFind(t *testing.T) {
	dir := stores.NewFSDirectory(t.TempDir())
	user := newUser("u1", "sam@example.com", map[string]string{"google": "goog-1"})
	if err := dir.Create(user); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	byID, err := dir.FindByID("u1")
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if byID.Email != "sam@example.com" {
		t.Errorf("email = %q", byID.Email)
	}

	byEmail, err := dir.FindByEmail("sam@example.com")
	if err != nil {
		t.Fatalf("FindByEmail failed: %v", err)
	}
	if byEmail.ID != "u1" {
		t.Errorf("FindByEmail returned %s", byEmail.ID)
	}

	byLink, err := dir.FindByProviderSubject("google", "goog-1")
	if err != nil {
		t.Fatalf("FindByProviderSubject failed: %v", err)
	}
	if byLink.ID != "u1" {
		t.Errorf("FindByProviderSubject returned %s", byLink.ID)
	}
}

func TestFindNotFound(t *testing.T) {
	dir := stores.NewFSDirectory(t.TempDir())
	if _, err := dir.FindByID("missing"); !errors.Is(err, auth.ErrNotFound) {
		t.Errorf("FindByID: got %v, want ErrNotFound", err)
	}
	if _, err := dir.FindByEmail("missing@example.com"); !errors.Is(err, auth.ErrNotFound) {
		t.Errorf("FindByEmail: got %v, want ErrNotFound", err)
	}
	if _, err := dir.FindByProviderSubject("google", "missing"); !errors.Is(err, auth.ErrNotFound) {
		t.Errorf("FindByProviderSubject: got %v, want ErrNotFound", err)
	}
}

func TestCreateDuplicateEmail(t *testing.T) {
	dir := stores.NewFSDirectory(t.TempDir())
	if err := dir.Create(newUser("u1", "sam@example.com", nil)); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	err := dir.Create(newUser("u2", "sam@example.com", nil))
	if !errors.Is(err, auth.ErrDuplicateIdentifier) {
		t.Errorf("got %v, want ErrDuplicateIdentifier", err)
	}
}

func TestCreateDuplicateProviderLink(t *testing.T) {
	dir := stores.NewFSDirectory(t.TempDir())
	if err := dir.Create(newUser("u1", "", map[string]string{"github": "42"})); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	err := dir.Create(newUser("u2", "", map[string]string{"github": "42"}))
	if !errors.Is(err, auth.ErrDuplicateIdentifier) {
		t.Errorf("got %v, want ErrDuplicateIdentifier", err)
	}
}

func TestCreateRollsBackClaims(t *testing.T) {
	dir := stores.NewFSDirectory(t.TempDir())
	if err := dir.Create(newUser("u1", "", map[string]string{"github": "42"})); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// This create claims the fresh email, then fails on the taken link.
	err := dir.Create(newUser("u2", "new@example.com", map[string]string{"github": "42"}))
	if !errors.Is(err, auth.ErrDuplicateIdentifier) {
		t.Fatalf("got %v, want ErrDuplicateIdentifier", err)
	}

	// The failed create must have released the email claim.
	if err := dir.Create(newUser("u3", "new@example.com", nil)); err != nil {
		t.Errorf("email still claimed after rollback: %v", err)
	}
	if _, err := dir.FindByID("u2"); !errors.Is(err, auth.ErrNotFound) {
		t.Errorf("failed create left a record behind: %v", err)
	}
}

func TestSaveUpdatesRecord(t *testing.T) {
	dir := stores.NewFSDirectory(t.TempDir())
	user := newUser("u1", "sam@example.com", nil)
	if err := dir.Create(user); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	user.Secret = "a secret"
	if err := dir.Save(user); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, err := dir.FindByID("u1")
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if got.Secret != "a secret" {
		t.Errorf("secret = %q", got.Secret)
	}
}

func TestSaveUnknownUser(t *testing.T) {
	dir := stores.NewFSDirectory(t.TempDir())
	err := dir.Save(newUser("ghost", "", nil))
	if !errors.Is(err, auth.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestSaveClaimsNewIdentifiers(t *testing.T) {
	dir := stores.NewFSDirectory(t.TempDir())
	user := newUser("u1", "", map[string]string{"google": "goog-1"})
	if err := dir.Create(user); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Provider-only account gains a local credential.
	user.Email = "sam@example.com"
	if err := dir.Save(user); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	byEmail, err := dir.FindByEmail("sam@example.com")
	if err != nil {
		t.Fatalf("FindByEmail after Save failed: %v", err)
	}
	if byEmail.ID != "u1" {
		t.Errorf("FindByEmail returned %s", byEmail.ID)
	}

	// The claimed email now blocks other users.
	if err := dir.Create(newUser("u2", "sam@example.com", nil)); !errors.Is(err, auth.ErrDuplicateIdentifier) {
		t.Errorf("got %v, want ErrDuplicateIdentifier", err)
	}
}

func TestSaveRejectsTakenIdentifier(t *testing.T) {
	dir := stores.NewFSDirectory(t.TempDir())
	if err := dir.Create(newUser("u1", "sam@example.com", nil)); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	other := newUser("u2", "", nil)
	if err := dir.Create(other); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	other.Email = "sam@example.com"
	if err := dir.Save(other); !errors.Is(err, auth.ErrDuplicateIdentifier) {
		t.Errorf("got %v, want ErrDuplicateIdentifier", err)
	}
}

func TestSaveIsIdempotentOnOwnIdentifiers(t *testing.T) {
	dir := stores.NewFSDirectory(t.TempDir())
	user := newUser("u1", "sam@example.com", map[string]string{"google": "goog-1"})
	if err := dir.Create(user); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := dir.Save(user); err != nil {
		t.Errorf("Save of unchanged identifiers failed: %v", err)
	}
}

func TestConcurrentCreateSameEmail(t *testing.T) {
	dir := stores.NewFSDirectory(t.TempDir())

	const workers = 8
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = dir.Create(newUser(auth.NewUserID(), "contested@example.com", nil))
		}(i)
	}
	wg.Wait()

	created := 0
	for i, err := range errs {
		switch {
		case err == nil:
			created++
		case errors.Is(err, auth.ErrDuplicateIdentifier):
		default:
			t.Errorf("worker %d: unexpected error %v", i, err)
		}
	}
	if created != 1 {
		t.Errorf("%d creates succeeded for one email, want exactly 1", created)
	}
}
