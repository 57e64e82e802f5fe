package repository

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/auth-service/internal/domain"
)

// MemoryAccountRepository is a mutex-guarded in-memory store used when no
// POSTGRES_DSN is configured. Uniqueness checks and inserts happen under one
// lock, so insert-if-absent is atomic here just as the database constraint
// makes it in Postgres.
type MemoryAccountRepository struct {
	mu       sync.Mutex
	nextID   int64
	byID     map[int64]*domain.Account
	byEmail  map[string]int64
	byUserID map[string]int64
}

// NewMemoryAccountRepository returns an in-memory implementation.
func NewMemoryAccountRepository() *MemoryAccountRepository {
	return &MemoryAccountRepository{
		nextID:   1,
		byID:     make(map[int64]*domain.Account),
		byEmail:  make(map[string]int64),
		byUserID: make(map[string]int64),
	}
}

func (r *MemoryAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[account.Email]; exists {
		return &DuplicateError{Field: "email"}
	}
	if _, exists := r.byUserID[account.Username]; exists {
		return &DuplicateError{Field: "username"}
	}

	account.ID = r.nextID
	account.CreatedAt = time.Now()
	r.nextID++

	stored := *account
	r.byID[account.ID] = &stored
	r.byEmail[account.Email] = account.ID
	r.byUserID[account.Username] = account.ID
	return nil
}

func (r *MemoryAccountRepository) GetByID(ctx context.Context, id int64) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	account := *stored
	return &account, nil
}

func (r *MemoryAccountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	account := *r.byID[id]
	return &account, nil
}

// Delete removes an account. Only the in-memory store supports it; the
// service never deletes accounts itself, but collaborators (and tests
// simulating them) do.
func (r *MemoryAccountRepository) Delete(ctx context.Context, id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[id]
	if !ok {
		return
	}
	delete(r.byEmail, stored.Email)
	delete(r.byUserID, stored.Username)
	delete(r.byID, id)
}
