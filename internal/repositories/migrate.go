package repositories

import (
	"agrichain/internal/models"

	"gorm.io/gorm"
)

// AutoMigrate creates or updates the mirror tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.Account{}, &models.Produce{}, &models.Order{}, &models.Transaction{})
}
