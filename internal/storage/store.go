package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/biztrack/biztrack-server/internal/models"
	"github.com/biztrack/biztrack-server/internal/tenant"
)

// Common errors
var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicateKey = errors.New("duplicate key")
	ErrInvalidData  = errors.New("invalid data")
)

// InsufficientStockError aborts a POS checkout; it names the offending
// product so the failure can be surfaced verbatim.
type InsufficientStockError struct {
	ProductName string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return "insufficient stock for " + e.ProductName
}

// CheckoutLine is one line of a point-of-sale cart.
type CheckoutLine struct {
	ProductID uuid.UUID
	Quantity  int
}

// InvoiceFilters narrows invoice listings.
type InvoiceFilters struct {
	Type       *models.InvoiceType
	Status     *models.InvoiceStatus
	CustomerID *uuid.UUID
	From       *time.Time
	To         *time.Time
}

// Store defines the storage interface. Every method touching tenant-owned
// rows takes a tenant.Scope and applies it as the query filter; cross-tenant
// access is rejected here, not per call site.
type Store interface {
	// Transaction support
	BeginTx(ctx context.Context) (Store, error)
	Commit() error
	Rollback() error

	// Account methods
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	DeleteSubAccount(ctx context.Context, scope tenant.Scope, id uuid.UUID) error
	SetSubAccountActive(ctx context.Context, scope tenant.Scope, id uuid.UUID, active bool) error
	ListSubAccounts(ctx context.Context, scope tenant.Scope, limit, offset int) ([]*models.User, int64, error)

	// Subscription methods
	GetTenant(ctx context.Context, tenantID uuid.UUID) (*models.User, error)
	UpdateSubscription(ctx context.Context, tenantID uuid.UUID, sub *models.Subscription) error
	ListExpiredTenants(ctx context.Context, asOf time.Time) ([]*models.User, error)

	// Branch methods
	CreateBranch(ctx context.Context, branch *models.Branch) error
	GetBranch(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*models.Branch, error)
	UpdateBranch(ctx context.Context, scope tenant.Scope, branch *models.Branch) error
	DeleteBranch(ctx context.Context, scope tenant.Scope, id uuid.UUID) error
	ListBranches(ctx context.Context, scope tenant.Scope, limit, offset int) ([]*models.Branch, int64, error)

	// Customer methods
	CreateCustomer(ctx context.Context, customer *models.Customer) error
	GetCustomer(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*models.Customer, error)
	UpdateCustomer(ctx context.Context, scope tenant.Scope, customer *models.Customer) error
	DeleteCustomer(ctx context.Context, scope tenant.Scope, id uuid.UUID) error
	ListCustomers(ctx context.Context, scope tenant.Scope, limit, offset int) ([]*models.Customer, int64, error)

	// Supplier methods
	CreateSupplier(ctx context.Context, supplier *models.Supplier) error
	GetSupplier(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*models.Supplier, error)
	UpdateSupplier(ctx context.Context, scope tenant.Scope, supplier *models.Supplier) error
	DeleteSupplier(ctx context.Context, scope tenant.Scope, id uuid.UUID) error
	ListSuppliers(ctx context.Context, scope tenant.Scope, limit, offset int) ([]*models.Supplier, int64, error)

	// Category methods
	CreateCategory(ctx context.Context, category *models.Category) error
	GetCategory(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*models.Category, error)
	UpdateCategory(ctx context.Context, scope tenant.Scope, category *models.Category) error
	DeleteCategory(ctx context.Context, scope tenant.Scope, id uuid.UUID) error
	ListCategories(ctx context.Context, scope tenant.Scope, limit, offset int) ([]*models.Category, int64, error)

	// Warehouse methods
	CreateWarehouse(ctx context.Context, warehouse *models.Warehouse) error
	GetWarehouse(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*models.Warehouse, error)
	UpdateWarehouse(ctx context.Context, scope tenant.Scope, warehouse *models.Warehouse) error
	DeleteWarehouse(ctx context.Context, scope tenant.Scope, id uuid.UUID) error
	ListWarehouses(ctx context.Context, scope tenant.Scope, limit, offset int) ([]*models.Warehouse, int64, error)

	// Product methods
	CreateProduct(ctx context.Context, product *models.Product) error
	GetProduct(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*models.Product, error)
	UpdateProduct(ctx context.Context, scope tenant.Scope, product *models.Product) error
	DeleteProduct(ctx context.Context, scope tenant.Scope, id uuid.UUID) error
	ListProducts(ctx context.Context, scope tenant.Scope, limit, offset int) ([]*models.Product, int64, error)

	// Storefront methods
	CreateStore(ctx context.Context, store *models.Store) error
	GetStore(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*models.Store, error)
	GetStoreBySlug(ctx context.Context, slug string) (*models.Store, error)
	UpdateStore(ctx context.Context, scope tenant.Scope, store *models.Store) error
	DeleteStore(ctx context.Context, scope tenant.Scope, id uuid.UUID) error
	ListStores(ctx context.Context, scope tenant.Scope, limit, offset int) ([]*models.Store, int64, error)

	// Invoice methods
	CreateInvoice(ctx context.Context, invoice *models.Invoice) error
	GetInvoice(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*models.Invoice, error)
	ListInvoices(ctx context.Context, scope tenant.Scope, filters InvoiceFilters, limit, offset int) ([]*models.Invoice, int64, error)
	DeleteInvoice(ctx context.Context, scope tenant.Scope, id uuid.UUID) error
	AddPayment(ctx context.Context, scope tenant.Scope, invoiceID uuid.UUID, payment *models.Payment) error

	// POSCheckout decrements stock for every cart line and creates the
	// invoice in a single transaction. Any insufficient line aborts the
	// whole operation.
	POSCheckout(ctx context.Context, scope tenant.Scope, invoice *models.Invoice, lines []CheckoutLine) error

	// Usage aggregation
	CountResource(ctx context.Context, scope tenant.Scope, resource models.ResourceType) (int, error)

	// Event log methods
	CreateEventLog(ctx context.Context, event *models.EventLog) error
	ListEventLogs(ctx context.Context, scope tenant.Scope, limit, offset int) ([]*models.EventLog, int64, error)

	// Close the store
	Close() error
}
