// Package accounts orchestrates sign-in and sign-up against the identity
// provider and the application's denormalized user table.
package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"clipscribe/internal/identity"
	"clipscribe/internal/models"
)

var (
	// ErrMissingCredentials is returned before any provider call is made.
	ErrMissingCredentials = errors.New("email and password are required")
	// ErrMissingFields is the sign-up equivalent.
	ErrMissingFields = errors.New("name, email, and password are required")
	// ErrProfileWrite tags the inconsistency where the provider account was
	// created but the local profile row could not be saved.
	ErrProfileWrite = errors.New("account created but profile could not be saved")
)

// IdentityClient is the slice of the identity gateway this service uses.
type IdentityClient interface {
	SignIn(ctx context.Context, email, password string) (*identity.SignInResult, error)
	SignUp(ctx context.Context, email, password string) (string, error)
}

// Service handles the account lifecycle.
type Service struct {
	db       *sql.DB
	identity IdentityClient
}

// NewService builds an accounts service over the user table and provider client.
func NewService(db *sql.DB, client IdentityClient) *Service {
	return &Service{db: db, identity: client}
}

// SignIn verifies credentials with the provider and returns the session
// record to install. Empty inputs fail immediately with ErrMissingCredentials
// and never reach the network.
func (s *Service) SignIn(ctx context.Context, email, password string) (*models.SessionRecord, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}
	result, err := s.identity.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return &models.SessionRecord{Email: result.Email, IDToken: result.IDToken}, nil
}

// SignUp creates the provider account and mirrors {uid, name, email} into the
// application database. It never creates a session. When the provider account
// exists but the local write fails, the error is ErrProfileWrite and the
// orphaned uid is logged; no compensating delete is attempted.
func (s *Service) SignUp(ctx context.Context, name, email, password string) (*models.User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" || email == "" || password == "" {
		return nil, ErrMissingFields
	}

	uid, err := s.identity.SignUp(ctx, email, password)
	if err != nil {
		return nil, err
	}

	user := &models.User{UID: uid, Name: name, Email: email, CreatedAt: time.Now().UTC()}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO users (uid, name, email, created_at) VALUES (?, ?, ?, ?)`,
		user.UID, user.Name, user.Email, user.CreatedAt,
	); err != nil {
		log.Printf("profile write failed for uid %s: %v", uid, err)
		return nil, fmt.Errorf("%w: %v", ErrProfileWrite, err)
	}
	return user, nil
}

// UserByEmail looks up the denormalized profile row.
func (s *Service) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT uid, name, email, created_at FROM users WHERE email = ?`, email)
	var user models.User
	if err := row.Scan(&user.UID, &user.Name, &user.Email, &user.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &user, nil
}
