package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"agrichain/internal/models"

	"gorm.io/gorm"
)

// GORMAccountRepository is a GORM implementation of AccountRepository.
type GORMAccountRepository struct {
	db *gorm.DB
}

// NewGORMAccountRepository creates a new instance of GORMAccountRepository.
func NewGORMAccountRepository(db *gorm.DB) *GORMAccountRepository {
	return &GORMAccountRepository{
		db: db,
	}
}

// GetRole retrieves the registered role of address.
func (r *GORMAccountRepository) GetRole(ctx context.Context, address string) (models.Role, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).First(&account, "address = ?", strings.ToLower(address)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.RoleNone, nil
		}
		return models.RoleNone, fmt.Errorf("failed to get role of %s: %w", address, err)
	}
	return account.Role, nil
}

// Create registers an account. Addresses are stored lower-case.
func (r *GORMAccountRepository) Create(ctx context.Context, account *models.Account) error {
	account.Address = strings.ToLower(account.Address)
	if err := r.db.WithContext(ctx).Create(account).Error; err != nil {
		return fmt.Errorf("failed to create account %s: %w", account.Address, err)
	}
	return nil
}
