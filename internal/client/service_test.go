package client_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rudyardtech/billing/internal/client"
	"github.com/rudyardtech/billing/internal/telemetry"
)

type fakeRepo struct {
	clients map[string]*client.Client
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{clients: make(map[string]*client.Client)}
}

func (f *fakeRepo) CreateClient(_ context.Context, c *client.Client) error {
	if _, ok := f.clients[c.ID]; ok {
		return client.ErrExists
	}

	f.clients[c.ID] = c

	return nil
}

func (f *fakeRepo) GetClientByID(_ context.Context, id string) (*client.Client, error) {
	c, ok := f.clients[id]
	if !ok {
		return nil, client.ErrNotFound
	}

	return c, nil
}

func (f *fakeRepo) GetClientByEmail(_ context.Context, email string) (*client.Client, error) {
	for _, c := range f.clients {
		if c.ContactEmail == email {
			return c, nil
		}
	}

	return nil, client.ErrNotFound
}

func (f *fakeRepo) ListClients(_ context.Context) ([]*client.Client, error) {
	out := make([]*client.Client, 0, len(f.clients))
	for _, c := range f.clients {
		out = append(out, c)
	}

	return out, nil
}

func (f *fakeRepo) DeleteClient(_ context.Context, id, _ string) error {
	if _, ok := f.clients[id]; !ok {
		return client.ErrNotFound
	}

	delete(f.clients, id)

	return nil
}

func TestService_Add(t *testing.T) {
	t.Run("GeneratesID", func(t *testing.T) {
		svc := client.NewService(newFakeRepo(), telemetry.Noop{})

		c, err := svc.Add(context.Background(), client.AddParams{
			Name:         "Acme",
			ContactEmail: " Billing@Acme.COM ",
		})
		require.NoError(t, err)

		assert.NotEmpty(t, c.ID)
		assert.Equal(t, "billing@acme.com", c.ContactEmail)
	})

	t.Run("KeepsProvidedID", func(t *testing.T) {
		svc := client.NewService(newFakeRepo(), telemetry.Noop{})

		c, err := svc.Add(context.Background(), client.AddParams{
			ID:           "client-7",
			Name:         "Acme",
			ContactEmail: "billing@acme.com",
		})
		require.NoError(t, err)
		assert.Equal(t, "client-7", c.ID)
	})

	t.Run("MissingName", func(t *testing.T) {
		svc := client.NewService(newFakeRepo(), telemetry.Noop{})

		_, err := svc.Add(context.Background(), client.AddParams{ContactEmail: "billing@acme.com"})
		assert.ErrorIs(t, err, client.ErrValidation)
	})

	t.Run("InvalidEmail", func(t *testing.T) {
		svc := client.NewService(newFakeRepo(), telemetry.Noop{})

		_, err := svc.Add(context.Background(), client.AddParams{Name: "Acme", ContactEmail: "not-an-email"})
		assert.ErrorIs(t, err, client.ErrValidation)
	})
}

func TestService_Lookups(t *testing.T) {
	repo := newFakeRepo()
	svc := client.NewService(repo, telemetry.Noop{})

	_, err := svc.Add(context.Background(), client.AddParams{
		ID:           "client-7",
		Name:         "Acme",
		ContactEmail: "billing@acme.com",
	})
	require.NoError(t, err)

	t.Run("ByID", func(t *testing.T) {
		c, err := svc.GetByID(context.Background(), "client-7")
		require.NoError(t, err)
		assert.Equal(t, "Acme", c.Name)
	})

	t.Run("ByEmailNormalized", func(t *testing.T) {
		c, err := svc.GetByEmail(context.Background(), " Billing@Acme.com ")
		require.NoError(t, err)
		assert.Equal(t, "client-7", c.ID)
	})

	t.Run("UnknownID", func(t *testing.T) {
		_, err := svc.GetByID(context.Background(), "client-404")
		assert.ErrorIs(t, err, client.ErrNotFound)
	})
}

func TestService_Delete(t *testing.T) {
	repo := newFakeRepo()
	svc := client.NewService(repo, telemetry.Noop{})

	_, err := svc.Add(context.Background(), client.AddParams{
		ID:           "client-7",
		Name:         "Acme",
		ContactEmail: "billing@acme.com",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), "client-7"))
	assert.Empty(t, repo.clients)

	err = svc.Delete(context.Background(), "client-7")
	assert.ErrorIs(t, err, client.ErrNotFound)
}
