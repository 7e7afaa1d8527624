package repositories

import (
	"context"

	"agrichain/internal/models"
)

// AccountRepository defines the interface for the role registry.
type AccountRepository interface {
	// GetRole returns RoleNone for addresses that never registered.
	GetRole(ctx context.Context, address string) (models.Role, error)
	Create(ctx context.Context, account *models.Account) error
}
