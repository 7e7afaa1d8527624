package models

import "time"

// Role is the contract role an account registered under.
type Role uint8

const (
	RoleNone Role = iota
	RoleFarmer
	RoleConsumer
)

// String returns the upper-case contract name of the role.
func (r Role) String() string {
	switch r {
	case RoleFarmer:
		return "FARMER"
	case RoleConsumer:
		return "CONSUMER"
	}
	return "NONE"
}

// Account is an address registered with a role.
type Account struct {
	Address   string    `json:"address" gorm:"primaryKey;type:varchar(42)"`
	Role      Role      `json:"role" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
}

// Viewer is the connected account acting under exactly one role.
type Viewer struct {
	Address string
	Role    Role
}
