package repositories

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"agrichain/internal/models"
)

// MockAccountRepository is an in-memory implementation of AccountRepository.
type MockAccountRepository struct {
	accounts map[string]models.Account
	mu       sync.RWMutex
}

// NewMockAccountRepository creates a new instance of MockAccountRepository.
func NewMockAccountRepository() *MockAccountRepository {
	return &MockAccountRepository{
		accounts: make(map[string]models.Account),
	}
}

// GetRole returns the registered role of address.
func (r *MockAccountRepository) GetRole(ctx context.Context, address string) (models.Role, error) {
	if err := ctx.Err(); err != nil {
		return models.RoleNone, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.accounts[strings.ToLower(address)].Role, nil
}

// Create registers an account.
func (r *MockAccountRepository) Create(ctx context.Context, account *models.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	account.Address = strings.ToLower(account.Address)
	if _, exists := r.accounts[account.Address]; exists {
		return fmt.Errorf("account %s already exists", account.Address)
	}
	account.CreatedAt = time.Now()
	r.accounts[account.Address] = *account
	return nil
}
