package user_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rudyardtech/billing/internal/auth"
	"github.com/rudyardtech/billing/internal/telemetry"
	"github.com/rudyardtech/billing/internal/user"
)

// fakeRepo is an in-memory Repository keyed by normalized email.
type fakeRepo struct {
	users map[string]*user.User
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{users: make(map[string]*user.User)}
}

func (f *fakeRepo) CreateUser(_ context.Context, u *user.User) error {
	if _, ok := f.users[u.Email]; ok {
		return user.ErrExists
	}

	f.users[u.Email] = u

	return nil
}

func (f *fakeRepo) GetUser(_ context.Context, email string) (*user.User, error) {
	u, ok := f.users[email]
	if !ok {
		return nil, user.ErrNotFound
	}

	copied := *u

	return &copied, nil
}

func (f *fakeRepo) UpdateUser(_ context.Context, u *user.User) error {
	if _, ok := f.users[u.Email]; !ok {
		return user.ErrNotFound
	}

	f.users[u.Email] = u

	return nil
}

func (f *fakeRepo) ListUsers(_ context.Context) ([]*user.User, error) {
	out := make([]*user.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, u)
	}

	return out, nil
}

func newService(repo *fakeRepo) *user.Service {
	issuer := auth.NewIssuer("test-secret", time.Hour)
	return user.NewService(repo, issuer, telemetry.Noop{})
}

func TestService_Register(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		repo := newFakeRepo()
		svc := newService(repo)

		u, err := svc.Register(context.Background(), "  User@Example.COM ", "hunter22!")
		require.NoError(t, err)

		assert.Equal(t, "user@example.com", u.Email)
		assert.False(t, u.Approved)
		assert.False(t, u.SiteAdmin)
		assert.NotEmpty(t, u.Salt)
		assert.NotEmpty(t, u.PasswordHash)
		assert.NotContains(t, u.PasswordHash, "hunter22")
	})

	t.Run("Duplicate", func(t *testing.T) {
		repo := newFakeRepo()
		svc := newService(repo)

		_, err := svc.Register(context.Background(), "user@example.com", "hunter22!")
		require.NoError(t, err)

		_, err = svc.Register(context.Background(), "USER@example.com", "hunter22!")
		assert.ErrorIs(t, err, user.ErrExists)
	})

	t.Run("InvalidEmail", func(t *testing.T) {
		svc := newService(newFakeRepo())

		_, err := svc.Register(context.Background(), "not-an-email", "hunter22!")
		assert.ErrorIs(t, err, user.ErrValidation)
	})

	t.Run("ShortPassword", func(t *testing.T) {
		svc := newService(newFakeRepo())

		_, err := svc.Register(context.Background(), "user@example.com", "short")
		assert.ErrorIs(t, err, user.ErrValidation)
	})
}

func TestService_Login(t *testing.T) {
	register := func(t *testing.T, svc *user.Service, repo *fakeRepo, approved bool) {
		t.Helper()

		u, err := svc.Register(context.Background(), "user@example.com", "hunter22!")
		require.NoError(t, err)

		if approved {
			u.Approved = true
			repo.users[u.Email] = u
		}
	}

	t.Run("Success", func(t *testing.T) {
		repo := newFakeRepo()
		svc := newService(repo)
		register(t, svc, repo, true)

		token, err := svc.Login(context.Background(), "User@Example.com", "hunter22!")
		require.NoError(t, err)

		claims, err := auth.NewLocalVerifier("test-secret").Verify(token)
		require.NoError(t, err)
		assert.Equal(t, "user@example.com", claims.Email)
		assert.False(t, claims.SiteAdmin)
	})

	t.Run("TokenCarriesAdminAndClient", func(t *testing.T) {
		repo := newFakeRepo()
		svc := newService(repo)
		register(t, svc, repo, true)

		u := repo.users["user@example.com"]
		u.SiteAdmin = true
		u.ClientID = "client-7"

		token, err := svc.Login(context.Background(), "user@example.com", "hunter22!")
		require.NoError(t, err)

		claims, err := auth.NewLocalVerifier("test-secret").Verify(token)
		require.NoError(t, err)
		assert.True(t, claims.SiteAdmin)
		assert.Equal(t, "client-7", claims.ClientID)
	})

	t.Run("WrongPassword", func(t *testing.T) {
		repo := newFakeRepo()
		svc := newService(repo)
		register(t, svc, repo, true)

		_, err := svc.Login(context.Background(), "user@example.com", "wrong-password")
		assert.ErrorIs(t, err, user.ErrInvalidCredentials)
	})

	t.Run("UnknownAccount", func(t *testing.T) {
		svc := newService(newFakeRepo())

		_, err := svc.Login(context.Background(), "nobody@example.com", "hunter22!")
		assert.ErrorIs(t, err, user.ErrInvalidCredentials)
	})

	t.Run("NotApproved", func(t *testing.T) {
		repo := newFakeRepo()
		svc := newService(repo)
		register(t, svc, repo, false)

		_, err := svc.Login(context.Background(), "user@example.com", "hunter22!")
		assert.ErrorIs(t, err, user.ErrNotApproved)
	})
}

func TestService_Approve(t *testing.T) {
	repo := newFakeRepo()
	svc := newService(repo)

	_, err := svc.Register(context.Background(), "user@example.com", "hunter22!")
	require.NoError(t, err)

	u, err := svc.Approve(context.Background(), "User@Example.com")
	require.NoError(t, err)
	assert.True(t, u.Approved)

	_, err = svc.Login(context.Background(), "user@example.com", "hunter22!")
	require.NoError(t, err)
}

func TestService_ToggleAdmin(t *testing.T) {
	repo := newFakeRepo()
	svc := newService(repo)

	_, err := svc.Register(context.Background(), "user@example.com", "hunter22!")
	require.NoError(t, err)

	t.Run("Toggles", func(t *testing.T) {
		u, err := svc.ToggleAdmin(context.Background(), "admin@example.com", "user@example.com")
		require.NoError(t, err)
		assert.True(t, u.SiteAdmin)

		u, err = svc.ToggleAdmin(context.Background(), "admin@example.com", "user@example.com")
		require.NoError(t, err)
		assert.False(t, u.SiteAdmin)
	})

	t.Run("RejectsSelf", func(t *testing.T) {
		_, err := svc.ToggleAdmin(context.Background(), "User@Example.com", "user@example.com")
		assert.ErrorIs(t, err, user.ErrSelfUpdate)
	})

	t.Run("UnknownUser", func(t *testing.T) {
		_, err := svc.ToggleAdmin(context.Background(), "admin@example.com", "nobody@example.com")
		assert.ErrorIs(t, err, user.ErrNotFound)
	})
}

func TestService_AssignClient(t *testing.T) {
	repo := newFakeRepo()
	svc := newService(repo)

	_, err := svc.Register(context.Background(), "user@example.com", "hunter22!")
	require.NoError(t, err)

	u, err := svc.AssignClient(context.Background(), "user@example.com", "client-7")
	require.NoError(t, err)
	assert.Equal(t, "client-7", u.ClientID)
	assert.Equal(t, "client-7", repo.users["user@example.com"].ClientID)
}

func TestTokenExpiry(t *testing.T) {
	repo := newFakeRepo()
	issuer := auth.NewIssuer("test-secret", -time.Minute)
	svc := user.NewService(repo, issuer, telemetry.Noop{})

	u, err := svc.Register(context.Background(), "user@example.com", "hunter22!")
	require.NoError(t, err)

	u.Approved = true
	repo.users[u.Email] = u

	token, err := svc.Login(context.Background(), "user@example.com", "hunter22!")
	require.NoError(t, err)

	_, err = auth.NewLocalVerifier("test-secret").Verify(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}
