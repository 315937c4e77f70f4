package accounts

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"clipscribe/internal/config"
	"clipscribe/internal/identity"
	"clipscribe/internal/storage"
)

type mockIdentity struct {
	signInCalls int
	signUpCalls int
	signInErr   error
	signUpErr   error
	uid         string
}

func (m *mockIdentity) SignIn(_ context.Context, email, _ string) (*identity.SignInResult, error) {
	m.signInCalls++
	if m.signInErr != nil {
		return nil, m.signInErr
	}
	return &identity.SignInResult{Email: email, IDToken: "token-abc"}, nil
}

func (m *mockIdentity) SignUp(_ context.Context, _, _ string) (string, error) {
	m.signUpCalls++
	if m.signUpErr != nil {
		return "", m.signUpErr
	}
	return m.uid, nil
}

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	cfg := &config.Config{Databases: map[string]config.DatabaseConfig{
		"sqlite3": {DSN: ":memory:"},
	}}
	db, err := storage.Open("sqlite3", cfg)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := storage.Migrate(db, "sqlite3"); err != nil {
		t.Fatalf("migrate db: %v", err)
	}
	return db
}

func TestSignInValidatesBeforeAnyProviderCall(t *testing.T) {
	mock := &mockIdentity{}
	svc := NewService(newTestDB(t), mock)

	cases := []struct{ email, password string }{
		{"", "secret"},
		{"alice@example.com", ""},
		{"", ""},
		{"   ", "secret"},
	}
	for _, tc := range cases {
		if _, err := svc.SignIn(context.Background(), tc.email, tc.password); !errors.Is(err, ErrMissingCredentials) {
			t.Fatalf("email=%q password=%q: expected ErrMissingCredentials, got %v", tc.email, tc.password, err)
		}
	}
	if mock.signInCalls != 0 {
		t.Fatalf("provider called %d times for invalid input", mock.signInCalls)
	}
}

func TestSignInReturnsSessionRecord(t *testing.T) {
	mock := &mockIdentity{}
	svc := NewService(newTestDB(t), mock)

	rec, err := svc.SignIn(context.Background(), "alice@example.com", "secret")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if rec.Email != "alice@example.com" || rec.IDToken != "token-abc" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if mock.signInCalls != 1 {
		t.Fatalf("expected exactly one provider call, got %d", mock.signInCalls)
	}
}

func TestSignUpMirrorsProfile(t *testing.T) {
	db := newTestDB(t)
	mock := &mockIdentity{uid: "uid-42"}
	svc := NewService(db, mock)

	user, err := svc.SignUp(context.Background(), "Bob", "bob@example.com", "secret")
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if user.UID != "uid-42" {
		t.Fatalf("expected provider uid, got %q", user.UID)
	}

	stored, err := svc.UserByEmail(context.Background(), "bob@example.com")
	if err != nil {
		t.Fatalf("lookup user: %v", err)
	}
	if stored.UID != "uid-42" || stored.Name != "Bob" {
		t.Fatalf("profile row mismatch: %+v", stored)
	}
}

func TestSignUpValidatesBeforeAnyProviderCall(t *testing.T) {
	mock := &mockIdentity{uid: "uid-1"}
	svc := NewService(newTestDB(t), mock)

	if _, err := svc.SignUp(context.Background(), "", "bob@example.com", "x"); !errors.Is(err, ErrMissingFields) {
		t.Fatalf("expected ErrMissingFields, got %v", err)
	}
	if mock.signUpCalls != 0 {
		t.Fatalf("provider called for invalid input")
	}
}

func TestSignUpProviderFailurePassesThrough(t *testing.T) {
	provErr := &identity.ProviderError{StatusCode: 400, Message: "EMAIL_EXISTS"}
	mock := &mockIdentity{signUpErr: provErr}
	svc := NewService(newTestDB(t), mock)

	_, err := svc.SignUp(context.Background(), "Bob", "bob@example.com", "secret")
	var got *identity.ProviderError
	if !errors.As(err, &got) || got.Message != "EMAIL_EXISTS" {
		t.Fatalf("expected provider error verbatim, got %v", err)
	}
}

func TestSignUpProfileWriteFailureIsTagged(t *testing.T) {
	db := newTestDB(t)
	mock := &mockIdentity{uid: "uid-42"}
	svc := NewService(db, mock)

	// Break the local write without touching the provider path.
	if _, err := db.Exec(`DROP TABLE users`); err != nil {
		t.Fatalf("drop table: %v", err)
	}

	_, err := svc.SignUp(context.Background(), "Bob", "bob@example.com", "secret")
	if !errors.Is(err, ErrProfileWrite) {
		t.Fatalf("expected ErrProfileWrite, got %v", err)
	}
	if mock.signUpCalls != 1 {
		t.Fatalf("expected the provider account to have been created")
	}
}
