package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rudyardtech/billing/internal/client"
	"github.com/rudyardtech/billing/internal/tablestore"
)

const table = "clients"

// Store keeps clients keyed (partition=id, row=contactEmail), so a client
// lookup is a partition query and an email lookup is a row-key scan.
type Store struct {
	tables *tablestore.Store
}

func New(tables *tablestore.Store) *Store {
	return &Store{tables: tables}
}

type record struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ContactEmail string `json:"contactEmail"`
	Address      string `json:"address,omitempty"`
	Phone        string `json:"phone,omitempty"`
}

func toRecord(c *client.Client) record {
	return record{
		ID:           c.ID,
		Name:         c.Name,
		ContactEmail: c.ContactEmail,
		Address:      c.Address,
		Phone:        c.Phone,
	}
}

func (r record) toClient() *client.Client {
	return &client.Client{
		ID:           r.ID,
		Name:         r.Name,
		ContactEmail: r.ContactEmail,
		Address:      r.Address,
		Phone:        r.Phone,
	}
}

func (s *Store) CreateClient(ctx context.Context, c *client.Client) error {
	if err := s.tables.Insert(ctx, table, c.ID, c.ContactEmail, toRecord(c)); err != nil {
		if errors.Is(err, tablestore.ErrExists) {
			return client.ErrExists
		}

		return fmt.Errorf("creating client %s: %w", c.ID, err)
	}

	return nil
}

func (s *Store) GetClientByID(ctx context.Context, id string) (*client.Client, error) {
	docs, err := s.tables.QueryPartition(ctx, table, id)
	if err != nil {
		return nil, fmt.Errorf("getting client %s: %w", id, err)
	}

	if len(docs) == 0 {
		return nil, client.ErrNotFound
	}

	return decode(docs[0])
}

func (s *Store) GetClientByEmail(ctx context.Context, email string) (*client.Client, error) {
	data, err := s.tables.GetByRowKey(ctx, table, email)
	if err != nil {
		if errors.Is(err, tablestore.ErrNotFound) {
			return nil, client.ErrNotFound
		}

		return nil, fmt.Errorf("getting client by email: %w", err)
	}

	return decode(data)
}

func (s *Store) ListClients(ctx context.Context) ([]*client.Client, error) {
	docs, err := s.tables.List(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("listing clients: %w", err)
	}

	clients := make([]*client.Client, 0, len(docs))

	for _, data := range docs {
		c, err := decode(data)
		if err != nil {
			return nil, err
		}

		clients = append(clients, c)
	}

	return clients, nil
}

func (s *Store) DeleteClient(ctx context.Context, id, contactEmail string) error {
	if err := s.tables.Delete(ctx, table, id, contactEmail); err != nil {
		return fmt.Errorf("deleting client %s: %w", id, err)
	}

	return nil
}

func decode(data []byte) (*client.Client, error) {
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decoding client: %w", err)
	}

	return r.toClient(), nil
}
