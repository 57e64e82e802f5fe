package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/config"
	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/events"
	"github.com/spec-kit/auth-service/internal/repository"
	apperrors "github.com/spec-kit/auth-service/pkg/util"
)

// ErrInvalidCredentials is the single outcome for every credential failure.
// Unknown email and wrong password return this same value so the two causes
// are indistinguishable to callers and over the wire.
var ErrInvalidCredentials = apperrors.NewUnauthorized("incorrect email or password")

// ErrUnauthenticated is the single outcome for every token-resolution
// failure: expired, tampered, malformed, or an account that no longer
// exists. The distinctions stay inside the auth package.
var ErrUnauthenticated = apperrors.NewUnauthorized("invalid or expired token")

// AuthService coordinates registration, login, and token resolution.
type AuthService struct {
	accounts   repository.AccountRepository
	tokens     *auth.TokenManager
	hasher     *auth.Hasher
	dispatcher events.Dispatcher
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, accounts repository.AccountRepository, dispatcher events.Dispatcher) *AuthService {
	return &AuthService{
		accounts:   accounts,
		tokens:     auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL()),
		hasher:     auth.NewHasher(cfg.Auth.BcryptCost),
		dispatcher: dispatcher,
	}
}

// Register creates a new account. Duplicate email or username surfaces as a
// conflict naming the offending field.
func (s *AuthService) Register(ctx context.Context, email, username, password string) (*domain.Account, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, apperrors.NewValidationError("password cannot be hashed", map[string]any{"field": "password"})
	}

	account := &domain.Account{
		Email:        email,
		Username:     username,
		PasswordHash: hash,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		var dup *repository.DuplicateError
		if errors.As(err, &dup) {
			return nil, apperrors.NewConflict(dup.Error(), map[string]any{"field": dup.Field})
		}
		return nil, err
	}

	s.publish(ctx, events.EventAccountRegistered, account.ID, events.AccountRegisteredPayload{
		Email:    account.Email,
		Username: account.Username,
	})
	return account, nil
}

// Login verifies credentials and mints a token for the account's immutable
// id. When the email is unknown the hasher still runs against a dummy hash
// so both failure paths cost the same bcrypt work, then both paths return
// the shared ErrInvalidCredentials value.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.Account, domain.Token, error) {
	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.hasher.Verify(password, s.hasher.DummyHash())
			return nil, domain.Token{}, ErrInvalidCredentials
		}
		return nil, domain.Token{}, err
	}

	if !s.hasher.Verify(password, account.PasswordHash) {
		return nil, domain.Token{}, ErrInvalidCredentials
	}

	token, err := s.tokens.Generate(account.ID)
	if err != nil {
		return nil, domain.Token{}, err
	}

	s.publish(ctx, events.EventAccountLoggedIn, account.ID, events.AccountLoggedInPayload{Email: account.Email})
	return account, token, nil
}

// Resolve turns a presented bearer token into a fresh Principal. The account
// is re-fetched from the store on every call; a still-unexpired token for a
// removed account resolves to the same unauthenticated outcome as a bad
// token, never a distinct signal.
func (s *AuthService) Resolve(ctx context.Context, tokenStr string) (*domain.Account, error) {
	accountID, err := s.tokens.Parse(tokenStr)
	if err != nil {
		return nil, ErrUnauthenticated
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}
	return account, nil
}

func (s *AuthService) publish(ctx context.Context, eventType events.EventType, accountID int64, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		AccountID: accountID,
		Timestamp: time.Now(),
		Payload:   payload,
	})
}
