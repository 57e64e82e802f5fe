package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/auth-service/internal/config"
	"github.com/spec-kit/auth-service/internal/events"
	"github.com/spec-kit/auth-service/internal/repository"
	apperrors "github.com/spec-kit/auth-service/pkg/util"
)

func testConfig() config.Config {
	return config.Config{
		Auth: config.AuthConfig{
			JWTSecret:             "0123456789abcdef0123456789abcdef",
			AccessTokenTTLMinutes: 15,
			BcryptCost:            bcrypt.MinCost,
		},
	}
}

type recordingDispatcher struct {
	published []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.published = append(d.published, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func newTestService() (*AuthService, *repository.MemoryAccountRepository, *recordingDispatcher) {
	store := repository.NewMemoryAccountRepository()
	dispatcher := &recordingDispatcher{}
	return NewAuthService(testConfig(), store, dispatcher), store, dispatcher
}

func TestRegister_Success(t *testing.T) {
	t.Parallel()

	svc, _, dispatcher := newTestService()
	ctx := context.Background()

	account, err := svc.Register(ctx, "alice@example.com", "alice_01", "s3cretpass")
	require.NoError(t, err)

	assert.NotZero(t, account.ID)
	assert.Equal(t, "alice@example.com", account.Email)
	assert.Equal(t, "alice_01", account.Username)
	assert.NotEqual(t, "s3cretpass", account.PasswordHash)
	assert.False(t, account.CreatedAt.IsZero())

	require.Len(t, dispatcher.published, 1)
	assert.Equal(t, events.EventAccountRegistered, dispatcher.published[0].Type)
	assert.Equal(t, account.ID, dispatcher.published[0].AccountID)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "dup@example.com", "first_user", "password1")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "dup@example.com", "second_user", "password2")
	require.Error(t, err)

	domainErr := apperrors.ToDomainError(err)
	assert.Equal(t, "CONFLICT", domainErr.Code)
	assert.Equal(t, 409, domainErr.HTTPStatus)
	assert.Equal(t, "email", domainErr.Details["field"])
}

func TestRegister_DuplicateUsername(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "one@example.com", "same_name", "password1")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "two@example.com", "same_name", "password2")
	require.Error(t, err)

	domainErr := apperrors.ToDomainError(err)
	assert.Equal(t, "CONFLICT", domainErr.Code)
	assert.Equal(t, "username", domainErr.Details["field"])
}

func TestLogin_Success(t *testing.T) {
	t.Parallel()

	svc, _, dispatcher := newTestService()
	ctx := context.Background()

	registered, err := svc.Register(ctx, "bob@example.com", "bob_the_dev", "trustno1!")
	require.NoError(t, err)

	account, token, err := svc.Login(ctx, "bob@example.com", "trustno1!")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, account.ID)
	assert.NotEmpty(t, token.Value)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), token.ExpiresAt, 5*time.Second)

	require.Len(t, dispatcher.published, 2)
	assert.Equal(t, events.EventAccountLoggedIn, dispatcher.published[1].Type)
}

func TestLogin_FailureCausesIndistinguishable(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "carol@example.com", "carol_w", "rightpassword")
	require.NoError(t, err)

	_, _, wrongPassErr := svc.Login(ctx, "carol@example.com", "wrongpassword")
	_, _, unknownEmailErr := svc.Login(ctx, "nobody@example.com", "whatever123")

	require.Error(t, wrongPassErr)
	require.Error(t, unknownEmailErr)

	// Both branches must return the single shared error value, not two
	// errors that happen to render the same string.
	assert.Same(t, ErrInvalidCredentials, wrongPassErr)
	assert.Same(t, ErrInvalidCredentials, unknownEmailErr)
}

func TestResolve_RoundTrip(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService()
	ctx := context.Background()

	registered, err := svc.Register(ctx, "dave@example.com", "dave86", "davepassword")
	require.NoError(t, err)

	_, token, err := svc.Login(ctx, "dave@example.com", "davepassword")
	require.NoError(t, err)

	principal, err := svc.Resolve(ctx, token.Value)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, principal.ID)
	assert.Equal(t, "dave@example.com", principal.Email)
}

func TestResolve_FreshDataNotClaims(t *testing.T) {
	t.Parallel()

	svc, store, _ := newTestService()
	ctx := context.Background()

	registered, err := svc.Register(ctx, "erin@example.com", "erin_dev", "erinpassword")
	require.NoError(t, err)

	_, token, err := svc.Login(ctx, "erin@example.com", "erinpassword")
	require.NoError(t, err)

	// A collaborator removes the account while the token is still valid.
	store.Delete(ctx, registered.ID)

	_, err = svc.Resolve(ctx, token.Value)
	assert.Same(t, ErrUnauthenticated, err)
}

func TestResolve_GarbageToken(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService()

	_, err := svc.Resolve(context.Background(), "not.a.token")
	assert.Same(t, ErrUnauthenticated, err)
}

func TestRegister_PasswordTooLongForEncoding(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService()

	long := make([]byte, 80)
	for i := range long {
		long[i] = 'x'
	}
	_, err := svc.Register(context.Background(), "frank@example.com", "frank_m", string(long))
	require.Error(t, err)

	domainErr := apperrors.ToDomainError(err)
	assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
}
