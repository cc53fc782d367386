package models

import "github.com/google/uuid"

// Branch is an organizational subdivision of a tenant. It scopes stores,
// customers, suppliers, invoices and stock.
type Branch struct {
	BaseModel
	UserID uuid.UUID `json:"userId" db:"user_id"`

	Name    string `json:"name" db:"name"`
	Address string `json:"address,omitempty" db:"address"`
	Phone   string `json:"phone,omitempty" db:"phone"`

	IsActive bool `json:"isActive" db:"is_active"`
}
