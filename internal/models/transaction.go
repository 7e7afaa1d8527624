package models

import (
	"encoding/json"
	"time"
)

// TxMethod names a state-mutating contract call.
type TxMethod string

const (
	TxRegisterUser    TxMethod = "registerUser"
	TxRegisterProduce TxMethod = "registerProduce"
	TxEditProduce     TxMethod = "editProduce"
	TxPlaceOrder      TxMethod = "placeOrder"
	TxAcceptOrder     TxMethod = "acceptOrder"
	TxRejectOrder     TxMethod = "rejectOrder"
	TxMarkDelivered   TxMethod = "markDelivered"
	TxClaimRefund     TxMethod = "claimRefund"
)

// TxStatus is the receipt state of a submitted transaction.
type TxStatus string

const (
	TxStatusPending   TxStatus = "pending"
	TxStatusConfirmed TxStatus = "confirmed"
	TxStatusReverted  TxStatus = "reverted"
)

// Transaction is a contract write submitted on behalf of an account.
type Transaction struct {
	ID           string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	ChainID      uint64          `json:"chain_id"`
	Method       TxMethod        `json:"method" gorm:"type:varchar(32);not null"`
	Caller       string          `json:"caller" gorm:"index;type:varchar(42);not null"`
	OrderID      uint64          `json:"order_id,omitempty" gorm:"index"`
	Payload      json.RawMessage `json:"payload" gorm:"type:text"`
	Status       TxStatus        `json:"status" gorm:"type:varchar(16);not null"`
	RevertReason string          `json:"revert_reason,omitempty" gorm:"type:text"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}
