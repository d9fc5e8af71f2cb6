package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/rudyardtech/billing/internal/telemetry"
)

type Repository interface {
	CreateClient(ctx context.Context, c *Client) error
	GetClientByID(ctx context.Context, id string) (*Client, error)
	GetClientByEmail(ctx context.Context, email string) (*Client, error)
	ListClients(ctx context.Context) ([]*Client, error)
	DeleteClient(ctx context.Context, id, contactEmail string) error
}

type Service struct {
	repo   Repository
	events telemetry.Events
}

func NewService(repo Repository, events telemetry.Events) *Service {
	return &Service{repo: repo, events: events}
}

type AddParams struct {
	ID           string
	Name         string
	ContactEmail string
	Address      string
	Phone        string
}

func (s *Service) Add(ctx context.Context, params AddParams) (*Client, error) {
	if params.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}

	email := strings.ToLower(strings.TrimSpace(params.ContactEmail))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: a valid contact email is required", ErrValidation)
	}

	c := &Client{
		ID:           params.ID,
		Name:         params.Name,
		ContactEmail: email,
		Address:      params.Address,
		Phone:        params.Phone,
	}

	if c.ID == "" {
		c.ID = uuid.NewString()
	}

	if err := s.repo.CreateClient(ctx, c); err != nil {
		return nil, err
	}

	s.events.Event("client_added", "client_id", c.ID, "name", c.Name)

	return c, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*Client, error) {
	return s.repo.GetClientByID(ctx, id)
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*Client, error) {
	return s.repo.GetClientByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
}

func (s *Service) List(ctx context.Context) ([]*Client, error) {
	return s.repo.ListClients(ctx)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	c, err := s.repo.GetClientByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteClient(ctx, c.ID, c.ContactEmail); err != nil {
		return err
	}

	s.events.Event("client_deleted", "client_id", id)

	return nil
}
