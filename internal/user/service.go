package user

import (
	"context"
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/pbkdf2"

	"github.com/rudyardtech/billing/internal/auth"
	"github.com/rudyardtech/billing/internal/telemetry"
)

// pbkdf2 parameters match the stored credential format: sha512, 1000
// iterations, 64-byte keys, 16-byte hex salts.
const (
	hashIterations = 1000
	hashKeyLen     = 64
	saltLen        = 16
)

type Repository interface {
	CreateUser(ctx context.Context, u *User) error
	GetUser(ctx context.Context, email string) (*User, error)
	UpdateUser(ctx context.Context, u *User) error
	ListUsers(ctx context.Context) ([]*User, error)
}

type Service struct {
	repo   Repository
	issuer *auth.Issuer
	events telemetry.Events
	now    func() time.Time
}

func NewService(repo Repository, issuer *auth.Issuer, events telemetry.Events) *Service {
	return &Service{repo: repo, issuer: issuer, events: events, now: time.Now}
}

// NormalizeEmail is the canonical account key: trimmed, lowercased.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) Register(ctx context.Context, email, password string) (*User, error) {
	email = NormalizeEmail(email)

	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: a valid email is required", ErrValidation)
	}

	if len(password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", ErrValidation)
	}

	salt, err := newSalt()
	if err != nil {
		return nil, err
	}

	u := &User{
		Email:        email,
		PasswordHash: hashPassword(password, salt),
		Salt:         salt,
		CreatedAt:    s.now().UTC(),
		Approved:     false,
	}

	if err := s.repo.CreateUser(ctx, u); err != nil {
		return nil, err
	}

	s.events.Event("user_registered", "email", email)

	return u, nil
}

// Login authenticates and returns a session token. Unknown accounts and
// wrong passwords collapse into the same ErrInvalidCredentials; unapproved
// accounts are reported distinctly.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	email = NormalizeEmail(email)

	s.events.Event("login_attempt", "email", email)

	u, err := s.repo.GetUser(ctx, email)
	if err != nil {
		return "", ErrInvalidCredentials
	}

	if u.Salt == "" || u.PasswordHash == "" {
		return "", ErrInvalidCredentials
	}

	computed := hashPassword(password, u.Salt)
	if subtle.ConstantTimeCompare([]byte(computed), []byte(u.PasswordHash)) != 1 {
		return "", ErrInvalidCredentials
	}

	if !u.Approved {
		return "", ErrNotApproved
	}

	token, err := s.issuer.Issue(auth.Claims{
		Email:     u.Email,
		ClientID:  u.ClientID,
		SiteAdmin: u.SiteAdmin,
	})
	if err != nil {
		return "", fmt.Errorf("issuing token: %w", err)
	}

	s.events.Event("login_success", "email", email)

	return token, nil
}

func (s *Service) Approve(ctx context.Context, email string) (*User, error) {
	u, err := s.repo.GetUser(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, err
	}

	u.Approved = true

	if err := s.repo.UpdateUser(ctx, u); err != nil {
		return nil, err
	}

	s.events.Event("user_approved", "email", u.Email)

	return u, nil
}

// ToggleAdmin flips the site-admin flag. Admins may not change their own.
func (s *Service) ToggleAdmin(ctx context.Context, actorEmail, email string) (*User, error) {
	email = NormalizeEmail(email)

	if NormalizeEmail(actorEmail) == email {
		return nil, ErrSelfUpdate
	}

	u, err := s.repo.GetUser(ctx, email)
	if err != nil {
		return nil, err
	}

	u.SiteAdmin = !u.SiteAdmin

	if err := s.repo.UpdateUser(ctx, u); err != nil {
		return nil, err
	}

	s.events.Event("user_admin_toggled", "email", u.Email, "site_admin", u.SiteAdmin)

	return u, nil
}

// AssignClient affiliates an account with a client, confining its invoice
// visibility to that client's partition.
func (s *Service) AssignClient(ctx context.Context, email, clientID string) (*User, error) {
	u, err := s.repo.GetUser(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, err
	}

	u.ClientID = clientID

	if err := s.repo.UpdateUser(ctx, u); err != nil {
		return nil, err
	}

	return u, nil
}

func (s *Service) List(ctx context.Context) ([]*User, error) {
	return s.repo.ListUsers(ctx)
}

func newSalt() (string, error) {
	buf := make([]byte, saltLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	return hex.EncodeToString(buf), nil
}

func hashPassword(password, salt string) string {
	key := pbkdf2.Key([]byte(password), []byte(salt), hashIterations, hashKeyLen, sha512.New)
	return hex.EncodeToString(key)
}
