package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Plan identifies a subscription tier.
type Plan string

const (
	PlanTrial   Plan = "trial"
	PlanBasic   Plan = "basic"
	PlanPremium Plan = "premium"
)

// ResourceType enumerates the countable resources a subscription limits.
type ResourceType string

const (
	ResourceInvoices   ResourceType = "invoices"
	ResourceBranches   ResourceType = "branches"
	ResourceUsers      ResourceType = "users"
	ResourceSuppliers  ResourceType = "suppliers"
	ResourceCustomers  ResourceType = "customers"
	ResourceProducts   ResourceType = "products"
	ResourceCategories ResourceType = "categories"
	ResourceWarehouses ResourceType = "warehouses"
)

// AllResourceTypes lists every limited resource, in display order.
var AllResourceTypes = []ResourceType{
	ResourceInvoices,
	ResourceBranches,
	ResourceUsers,
	ResourceSuppliers,
	ResourceCustomers,
	ResourceProducts,
	ResourceCategories,
	ResourceWarehouses,
}

// Valid reports whether t is a known resource type.
func (t ResourceType) Valid() bool {
	for _, r := range AllResourceTypes {
		if t == r {
			return true
		}
	}
	return false
}

// Limits holds the per-resource maximum counts for a plan. A value of zero
// or below means the resource is unlimited.
type Limits struct {
	InvoiceLimit   int `json:"invoiceLimit" yaml:"invoices"`
	BranchLimit    int `json:"branchLimit" yaml:"branches"`
	UserLimit      int `json:"userLimit" yaml:"users"`
	SupplierLimit  int `json:"supplierLimit" yaml:"suppliers"`
	CustomerLimit  int `json:"customerLimit" yaml:"customers"`
	ProductLimit   int `json:"productLimit" yaml:"products"`
	CategoryLimit  int `json:"categoryLimit" yaml:"categories"`
	WarehouseLimit int `json:"warehouseLimit" yaml:"warehouses"`
}

// For returns the limit configured for the given resource type.
func (l Limits) For(t ResourceType) int {
	switch t {
	case ResourceInvoices:
		return l.InvoiceLimit
	case ResourceBranches:
		return l.BranchLimit
	case ResourceUsers:
		return l.UserLimit
	case ResourceSuppliers:
		return l.SupplierLimit
	case ResourceCustomers:
		return l.CustomerLimit
	case ResourceProducts:
		return l.ProductLimit
	case ResourceCategories:
		return l.CategoryLimit
	case ResourceWarehouses:
		return l.WarehouseLimit
	}
	return 0
}

// Set overwrites the limit for the given resource type.
func (l *Limits) Set(t ResourceType, v int) {
	switch t {
	case ResourceInvoices:
		l.InvoiceLimit = v
	case ResourceBranches:
		l.BranchLimit = v
	case ResourceUsers:
		l.UserLimit = v
	case ResourceSuppliers:
		l.SupplierLimit = v
	case ResourceCustomers:
		l.CustomerLimit = v
	case ResourceProducts:
		l.ProductLimit = v
	case ResourceCategories:
		l.CategoryLimit = v
	case ResourceWarehouses:
		l.WarehouseLimit = v
	}
}

// Subscription is the billing record embedded on a subscriber account. It is
// persisted as a JSONB sub-document on the users table.
type Subscription struct {
	Plan      Plan      `json:"plan"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	IsActive  bool      `json:"isActive"`
	IsExpired bool      `json:"isExpired"`
	Limits    Limits    `json:"limits"`
}

// Value implements driver.Valuer interface
func (s *Subscription) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

// Scan implements sql.Scanner interface
func (s *Subscription) Scan(value interface{}) error {
	if value == nil {
		return nil
	}

	switch data := value.(type) {
	case []byte:
		return json.Unmarshal(data, s)
	case string:
		return json.Unmarshal([]byte(data), s)
	default:
		return fmt.Errorf("unsupported type %T for Subscription", value)
	}
}
