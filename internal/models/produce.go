package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProduceStatus mirrors the contract's produce status enum.
type ProduceStatus uint8

const (
	ProduceStatusHarvested ProduceStatus = iota
	ProduceStatusSold
)

// ProduceType classifies a listing. OTHER is used for equipment and other discrete items.
type ProduceType uint8

const (
	ProduceTypeVegetable ProduceType = iota
	ProduceTypeFruit
	ProduceTypeGrain
	ProduceTypeDairy
	ProduceTypeMeat
	ProduceTypeHerb
	ProduceTypeSpice
	ProduceTypeNut
	ProduceTypeSeed
	ProduceTypeOther
)

var produceTypeLabels = [...]string{
	"Vegetable", "Fruit", "Grain", "Dairy", "Meat", "Herb", "Spice", "Nut", "Seed", "Other",
}

// Label returns the human readable produce type.
func (t ProduceType) Label() string {
	if int(t) < len(produceTypeLabels) {
		return produceTypeLabels[t]
	}
	return "Other"
}

// Produce represents a listing owned by a farmer account.
type Produce struct {
	ID                  uint64          `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Name                string          `json:"name" gorm:"type:varchar(100);not null" validate:"required,min=2,max=100"`
	ProduceType         ProduceType     `json:"produce_type" validate:"lte=9"`
	OriginFarm          string          `json:"origin_farm" gorm:"type:varchar(200)" validate:"omitempty,max=200"`
	Grade               string          `json:"grade" gorm:"type:varchar(20)" validate:"omitempty,max=20"`
	HarvestTime         time.Time       `json:"harvest_time"`
	CurrentOwner        string          `json:"current_owner" gorm:"index;type:varchar(42);not null"`
	CurrentPrice        decimal.Decimal `json:"current_price" gorm:"type:varchar(80);not null"` // wei per kg or unit
	Status              ProduceStatus   `json:"status"`
	LabCertURI          string          `json:"lab_cert_uri,omitempty" gorm:"type:text"`
	TotalQuantityKg     uint64          `json:"total_quantity_kg" validate:"gt=0"`
	AvailableQuantityKg uint64          `json:"available_quantity_kg"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// IsBulk reports whether quantities are measured in kg rather than discrete units.
func (p *Produce) IsBulk() bool {
	return p.ProduceType != ProduceTypeOther
}
