package models

// Customer is a buyer record owned by a tenant and scoped to a branch.
type Customer struct {
	TenantModel

	Name    string `json:"name" db:"name"`
	Email   string `json:"email,omitempty" db:"email"`
	Phone   string `json:"phone,omitempty" db:"phone"`
	Address string `json:"address,omitempty" db:"address"`

	Notes string `json:"notes,omitempty" db:"notes"`
}

// Supplier is a vendor record owned by a tenant and scoped to a branch.
type Supplier struct {
	TenantModel

	Name    string `json:"name" db:"name"`
	Email   string `json:"email,omitempty" db:"email"`
	Phone   string `json:"phone,omitempty" db:"phone"`
	Address string `json:"address,omitempty" db:"address"`

	Notes string `json:"notes,omitempty" db:"notes"`
}
