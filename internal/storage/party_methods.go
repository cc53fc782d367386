package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/biztrack/biztrack-server/internal/models"
	"github.com/biztrack/biztrack-server/internal/tenant"
)

const partyColumns = `id, created_at, updated_at, user_id, branch_id, name, email, phone, address, notes`

func scanCustomer(row rowScanner) (*models.Customer, error) {
	c := &models.Customer{}
	err := row.Scan(
		&c.ID, &c.CreatedAt, &c.UpdatedAt, &c.UserID, &c.BranchID,
		&c.Name, &c.Email, &c.Phone, &c.Address, &c.Notes,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func scanSupplier(row rowScanner) (*models.Supplier, error) {
	sup := &models.Supplier{}
	err := row.Scan(
		&sup.ID, &sup.CreatedAt, &sup.UpdatedAt, &sup.UserID, &sup.BranchID,
		&sup.Name, &sup.Email, &sup.Phone, &sup.Address, &sup.Notes,
	)
	if err != nil {
		return nil, err
	}
	return sup, nil
}

func (s *PostgresStore) insertParty(ctx context.Context, table string, m *models.TenantModel, name, email, phone, address, notes string) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}

	now := time.Now()
	m.CreatedAt = now
	m.UpdatedAt = now

	query := fmt.Sprintf(`
		INSERT INTO %s (id, created_at, updated_at, user_id, branch_id, name, email, phone, address, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`, table)

	_, err := s.getDB().ExecContext(ctx, query,
		m.ID, m.CreatedAt, m.UpdatedAt, m.UserID, m.BranchID,
		name, email, phone, address, notes,
	)
	return err
}

// CreateCustomer creates a new customer
func (s *PostgresStore) CreateCustomer(ctx context.Context, customer *models.Customer) error {
	return s.insertParty(ctx, "customers", &customer.TenantModel,
		customer.Name, customer.Email, customer.Phone, customer.Address, customer.Notes)
}

// GetCustomer gets a customer owned by the scope's tenant
func (s *PostgresStore) GetCustomer(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*models.Customer, error) {
	query := `SELECT ` + partyColumns + ` FROM customers WHERE id = $1 AND user_id = $2`

	customer, err := scanCustomer(s.getDB().QueryRowContext(ctx, query, id, scope.TenantID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}

	return customer, err
}

// UpdateCustomer updates a customer
func (s *PostgresStore) UpdateCustomer(ctx context.Context, scope tenant.Scope, customer *models.Customer) error {
	customer.UpdatedAt = time.Now()

	query := `
		UPDATE customers SET
			updated_at = $3, name = $4, email = $5, phone = $6, address = $7, notes = $8
		WHERE id = $1 AND user_id = $2`

	result, err := s.getDB().ExecContext(ctx, query,
		customer.ID, scope.TenantID, customer.UpdatedAt, customer.Name,
		customer.Email, customer.Phone, customer.Address, customer.Notes,
	)
	if err != nil {
		return err
	}

	return requireRowsAffected(result)
}

// DeleteCustomer deletes a customer
func (s *PostgresStore) DeleteCustomer(ctx context.Context, scope tenant.Scope, id uuid.UUID) error {
	result, err := s.getDB().ExecContext(ctx,
		`DELETE FROM customers WHERE id = $1 AND user_id = $2`,
		id, scope.TenantID,
	)
	if err != nil {
		return err
	}

	return requireRowsAffected(result)
}

// ListCustomers lists the tenant's customers, narrowed to the scope's branch
// when set
func (s *PostgresStore) ListCustomers(ctx context.Context, scope tenant.Scope, limit, offset int) ([]*models.Customer, int64, error) {
	query := `SELECT ` + partyColumns + ` FROM customers WHERE user_id = $1`
	countQuery := `SELECT COUNT(*) FROM customers WHERE user_id = $1`
	args := []interface{}{scope.TenantID}

	if scope.BranchID != nil {
		query += ` AND branch_id = $2`
		countQuery += ` AND branch_id = $2`
		args = append(args, *scope.BranchID)
	}

	var total int64
	if err := s.getDB().QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d OFFSET %d`, limit, offset)

	rows, err := s.getDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var customers []*models.Customer
	for rows.Next() {
		customer, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, err
		}
		customers = append(customers, customer)
	}

	return customers, total, rows.Err()
}

// CreateSupplier creates a new supplier
func (s *PostgresStore) CreateSupplier(ctx context.Context, supplier *models.Supplier) error {
	return s.insertParty(ctx, "suppliers", &supplier.TenantModel,
		supplier.Name, supplier.Email, supplier.Phone, supplier.Address, supplier.Notes)
}

// GetSupplier gets a supplier owned by the scope's tenant
func (s *PostgresStore) GetSupplier(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*models.Supplier, error) {
	query := `SELECT ` + partyColumns + ` FROM suppliers WHERE id = $1 AND user_id = $2`

	supplier, err := scanSupplier(s.getDB().QueryRowContext(ctx, query, id, scope.TenantID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}

	return supplier, err
}

// UpdateSupplier updates a supplier
func (s *PostgresStore) UpdateSupplier(ctx context.Context, scope tenant.Scope, supplier *models.Supplier) error {
	supplier.UpdatedAt = time.Now()

	query := `
		UPDATE suppliers SET
			updated_at = $3, name = $4, email = $5, phone = $6, address = $7, notes = $8
		WHERE id = $1 AND user_id = $2`

	result, err := s.getDB().ExecContext(ctx, query,
		supplier.ID, scope.TenantID, supplier.UpdatedAt, supplier.Name,
		supplier.Email, supplier.Phone, supplier.Address, supplier.Notes,
	)
	if err != nil {
		return err
	}

	return requireRowsAffected(result)
}

// DeleteSupplier deletes a supplier
func (s *PostgresStore) DeleteSupplier(ctx context.Context, scope tenant.Scope, id uuid.UUID) error {
	result, err := s.getDB().ExecContext(ctx,
		`DELETE FROM suppliers WHERE id = $1 AND user_id = $2`,
		id, scope.TenantID,
	)
	if err != nil {
		return err
	}

	return requireRowsAffected(result)
}

// ListSuppliers lists the tenant's suppliers, narrowed to the scope's branch
// when set
func (s *PostgresStore) ListSuppliers(ctx context.Context, scope tenant.Scope, limit, offset int) ([]*models.Supplier, int64, error) {
	query := `SELECT ` + partyColumns + ` FROM suppliers WHERE user_id = $1`
	countQuery := `SELECT COUNT(*) FROM suppliers WHERE user_id = $1`
	args := []interface{}{scope.TenantID}

	if scope.BranchID != nil {
		query += ` AND branch_id = $2`
		countQuery += ` AND branch_id = $2`
		args = append(args, *scope.BranchID)
	}

	var total int64
	if err := s.getDB().QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d OFFSET %d`, limit, offset)

	rows, err := s.getDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var suppliers []*models.Supplier
	for rows.Next() {
		supplier, err := scanSupplier(rows)
		if err != nil {
			return nil, 0, err
		}
		suppliers = append(suppliers, supplier)
	}

	return suppliers, total, rows.Err()
}
