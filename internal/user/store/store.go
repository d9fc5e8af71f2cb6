package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rudyardtech/billing/internal/tablestore"
	"github.com/rudyardtech/billing/internal/user"
)

const (
	table     = "users"
	partition = "user"
)

type Store struct {
	tables *tablestore.Store
}

func New(tables *tablestore.Store) *Store {
	return &Store{tables: tables}
}

type record struct {
	Email        string    `json:"email"`
	PasswordHash string    `json:"hash"`
	Salt         string    `json:"salt"`
	CreatedAt    time.Time `json:"createdAt"`
	Approved     bool      `json:"approved"`
	SiteAdmin    bool      `json:"siteAdmin"`
	ClientID     string    `json:"clientId,omitempty"`
}

func toRecord(u *user.User) record {
	return record{
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Salt:         u.Salt,
		CreatedAt:    u.CreatedAt,
		Approved:     u.Approved,
		SiteAdmin:    u.SiteAdmin,
		ClientID:     u.ClientID,
	}
}

func (r record) toUser() *user.User {
	return &user.User{
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Salt:         r.Salt,
		CreatedAt:    r.CreatedAt,
		Approved:     r.Approved,
		SiteAdmin:    r.SiteAdmin,
		ClientID:     r.ClientID,
	}
}

func (s *Store) CreateUser(ctx context.Context, u *user.User) error {
	if err := s.tables.Insert(ctx, table, partition, u.Email, toRecord(u)); err != nil {
		if errors.Is(err, tablestore.ErrExists) {
			return user.ErrExists
		}

		return fmt.Errorf("creating user: %w", err)
	}

	return nil
}

func (s *Store) GetUser(ctx context.Context, email string) (*user.User, error) {
	data, err := s.tables.Get(ctx, table, partition, email)
	if err != nil {
		if errors.Is(err, tablestore.ErrNotFound) {
			return nil, user.ErrNotFound
		}

		return nil, fmt.Errorf("getting user: %w", err)
	}

	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decoding user: %w", err)
	}

	return r.toUser(), nil
}

func (s *Store) UpdateUser(ctx context.Context, u *user.User) error {
	err := s.tables.Merge(ctx, table, partition, u.Email, toRecord(u))
	if err != nil {
		if errors.Is(err, tablestore.ErrNotFound) {
			return user.ErrNotFound
		}

		return fmt.Errorf("updating user: %w", err)
	}

	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]*user.User, error) {
	docs, err := s.tables.QueryPartition(ctx, table, partition)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}

	users := make([]*user.User, 0, len(docs))

	for _, data := range docs {
		var r record
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("decoding user: %w", err)
		}

		users = append(users, r.toUser())
	}

	return users, nil
}
