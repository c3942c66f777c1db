package registration

import (
	"context"
	"errors"
	"net/url"
	"testing"

	firebaseauth "firebase.google.com/go/v4/auth"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type stubUserCreator struct {
	calls  int
	record *firebaseauth.UserRecord
	err    error
}

func (s *stubUserCreator) CreateUser(_ context.Context, user *firebaseauth.UserToCreate) (*firebaseauth.UserRecord, error) {
	s.calls++
	return s.record, s.err
}

func TestFirebaseRegistrarCreatesUser(t *testing.T) {
	t.Parallel()

	creator := &stubUserCreator{record: &firebaseauth.UserRecord{
		UserInfo: &firebaseauth.UserInfo{UID: "fb-1", Email: "user@example.com"},
	}}
	registrar := NewFirebaseRegistrar(creator, "/admin/login", nil)

	outcome, err := registrar.Register(context.Background(), Params{Email: "user@example.com", Password: "secret1"})
	require.NoError(t, err)
	require.Equal(t, 1, creator.calls)
	require.Equal(t, "fb-1", outcome.UserID)
	require.Empty(t, outcome.Token)

	target, err := url.Parse(outcome.RedirectTo)
	require.NoError(t, err)
	require.Equal(t, "/admin/login", target.Path)
	require.Equal(t, "registered", target.Query().Get("status"))
	require.Equal(t, "user@example.com", target.Query().Get("email"))
}

func TestFirebaseRegistrarWrapsErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("quota exceeded")
	registrar := NewFirebaseRegistrar(&stubUserCreator{err: boom}, "", nil)

	_, err := registrar.Register(context.Background(), Params{Email: "user@example.com", Password: "secret1"})
	require.ErrorIs(t, err, boom)
	require.NotErrorIs(t, err, ErrEmailTaken)
}

func TestFirebaseRegistrarProviderRedirect(t *testing.T) {
	t.Parallel()

	creator := &stubUserCreator{}
	registrar := NewFirebaseRegistrar(creator, "/login", map[string]string{
		"google": "https://accounts.example.com/start?provider=google",
	})

	outcome, err := registrar.Register(context.Background(), Params{Provider: "google"})
	require.NoError(t, err)
	require.Equal(t, "https://accounts.example.com/start?provider=google", outcome.RedirectTo)
	require.Zero(t, creator.calls)

	_, err = registrar.Register(context.Background(), Params{Provider: "github"})
	require.ErrorIs(t, err, ErrUnknownProvider)
}

func TestMemoryRegistrar(t *testing.T) {
	t.Parallel()

	registrar := NewMemoryRegistrar(bcrypt.MinCost, "google")

	outcome, err := registrar.Register(context.Background(), Params{Email: "User@Example.com", Password: "secret"})
	require.NoError(t, err)
	require.NotEmpty(t, outcome.UserID)
	require.Equal(t, outcome.UserID, outcome.Token)
	require.Equal(t, []string{"editor"}, outcome.Roles)
	require.Equal(t, 1, registrar.Len())

	_, err = registrar.Register(context.Background(), Params{Email: "user@example.com", Password: "other"})
	require.ErrorIs(t, err, ErrEmailTaken)

	uid, err := registrar.CheckPassword("user@example.com", "secret")
	require.NoError(t, err)
	require.Equal(t, outcome.UserID, uid)

	_, err = registrar.CheckPassword("user@example.com", "wrong")
	require.ErrorIs(t, err, ErrInvalidPassword)

	providerOutcome, err := registrar.Register(context.Background(), Params{Provider: "google"})
	require.NoError(t, err)
	require.NotEmpty(t, providerOutcome.Token)

	_, err = registrar.Register(context.Background(), Params{Provider: "github"})
	require.ErrorIs(t, err, ErrUnknownProvider)
}

func TestMemoryRegistrarLookupAccount(t *testing.T) {
	t.Parallel()

	registrar := NewMemoryRegistrar(bcrypt.MinCost, "google")

	outcome, err := registrar.Register(context.Background(), Params{Email: "user@example.com", Password: "secret"})
	require.NoError(t, err)

	email, roles, ok := registrar.LookupAccount(outcome.Token)
	require.True(t, ok)
	require.Equal(t, "user@example.com", email)
	require.Equal(t, []string{"editor"}, roles)

	providerOutcome, err := registrar.Register(context.Background(), Params{Provider: "google"})
	require.NoError(t, err)
	_, roles, ok = registrar.LookupAccount(providerOutcome.Token)
	require.True(t, ok)
	require.Equal(t, []string{"editor"}, roles)

	_, _, ok = registrar.LookupAccount("unknown-token")
	require.False(t, ok)
}
