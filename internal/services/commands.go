package services

import (
	"time"

	"agrichain/internal/models"

	"github.com/shopspring/decimal"
)

// RegisterRoleCommand is the payload of registerUser.
type RegisterRoleCommand struct {
	Role models.Role `json:"role" validate:"oneof=1 2"`
}

// RegisterProduceCommand is the payload of registerProduce.
type RegisterProduceCommand struct {
	Name        string             `json:"name" validate:"required,min=2,max=100"`
	ProduceType models.ProduceType `json:"produce_type" validate:"lte=9"`
	OriginFarm  string             `json:"origin_farm" validate:"omitempty,max=200"`
	Grade       string             `json:"grade" validate:"omitempty,max=20"`
	HarvestTime time.Time          `json:"harvest_time"`
	PriceWei    decimal.Decimal    `json:"price_wei"`
	QuantityKg  uint64             `json:"quantity_kg" validate:"gt=0"`
	LabCertURI  string             `json:"lab_cert_uri" validate:"omitempty,uri"`
}

// EditProduceCommand is the payload of editProduce.
type EditProduceCommand struct {
	ProduceID       uint64             `json:"produce_id" validate:"gt=0"`
	Name            string             `json:"name" validate:"required,min=2,max=100"`
	ProduceType     models.ProduceType `json:"produce_type" validate:"lte=9"`
	Grade           string             `json:"grade" validate:"omitempty,max=20"`
	PriceWei        decimal.Decimal    `json:"price_wei"`
	TotalQuantityKg uint64             `json:"total_quantity_kg" validate:"gt=0"`
	LabCertURI      string             `json:"lab_cert_uri" validate:"omitempty,uri"`
}

// NewRegisterProduceCommand builds the registerProduce payload that lists p
// under its current details.
func NewRegisterProduceCommand(p *models.Produce) RegisterProduceCommand {
	return RegisterProduceCommand{
		Name:        p.Name,
		ProduceType: p.ProduceType,
		OriginFarm:  p.OriginFarm,
		Grade:       p.Grade,
		HarvestTime: p.HarvestTime,
		PriceWei:    p.CurrentPrice,
		QuantityKg:  p.TotalQuantityKg,
		LabCertURI:  p.LabCertURI,
	}
}

// PlaceOrderCommand is the payload of placeOrder.
type PlaceOrderCommand struct {
	ProduceID       uint64 `json:"produce_id" validate:"gt=0"`
	QuantityKg      uint64 `json:"quantity_kg" validate:"gt=0"`
	DeliveryAddress string `json:"delivery_address" validate:"required,max=500"`
}

// OrderCommand is the payload of acceptOrder, markDelivered and claimRefund.
type OrderCommand struct {
	OrderID uint64 `json:"order_id" validate:"gt=0"`
}

// RejectOrderCommand is the payload of rejectOrder.
type RejectOrderCommand struct {
	OrderID uint64 `json:"order_id" validate:"gt=0"`
	Reason  string `json:"reason" validate:"required,max=500"`
}
