package models

import "github.com/google/uuid"

// Category groups products for a tenant.
type Category struct {
	TenantModel

	Name        string `json:"name" db:"name"`
	Description string `json:"description,omitempty" db:"description"`
}

// Warehouse is a stock location owned by a tenant and scoped to a branch.
type Warehouse struct {
	TenantModel

	Name    string `json:"name" db:"name"`
	Address string `json:"address,omitempty" db:"address"`
}

// Product is a sellable item. Stock is tracked per warehouse via StockLevel;
// StockQty is the aggregate across warehouses for list views.
type Product struct {
	TenantModel

	CategoryID  *uuid.UUID `json:"categoryId,omitempty" db:"category_id"`
	WarehouseID *uuid.UUID `json:"warehouseId,omitempty" db:"warehouse_id"`

	Name        string  `json:"name" db:"name"`
	SKU         string  `json:"sku" db:"sku"`
	Description string  `json:"description,omitempty" db:"description"`
	Price       float64 `json:"price" db:"price"`
	Cost        float64 `json:"cost,omitempty" db:"cost"`
	StockQty    int     `json:"stockQty" db:"stock_qty"`

	IsActive bool `json:"isActive" db:"is_active"`
}

// StockLevel is the quantity of one product held in one warehouse.
type StockLevel struct {
	ProductID   uuid.UUID `json:"productId" db:"product_id"`
	WarehouseID uuid.UUID `json:"warehouseId" db:"warehouse_id"`
	Quantity    int       `json:"quantity" db:"quantity"`
}
