package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/biztrack/biztrack-server/internal/models"
	"github.com/biztrack/biztrack-server/internal/tenant"
)

const productColumns = `id, created_at, updated_at, user_id, branch_id, category_id,
	warehouse_id, name, sku, description, price, cost, stock_qty, is_active`

func scanProduct(row rowScanner) (*models.Product, error) {
	p := &models.Product{}
	err := row.Scan(
		&p.ID, &p.CreatedAt, &p.UpdatedAt, &p.UserID, &p.BranchID,
		&p.CategoryID, &p.WarehouseID, &p.Name, &p.SKU, &p.Description,
		&p.Price, &p.Cost, &p.StockQty, &p.IsActive,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ========== Category methods ==========

// CreateCategory creates a new category
func (s *PostgresStore) CreateCategory(ctx context.Context, category *models.Category) error {
	if category.ID == uuid.Nil {
		category.ID = uuid.New()
	}

	now := time.Now()
	category.CreatedAt = now
	category.UpdatedAt = now

	query := `
		INSERT INTO categories (id, created_at, updated_at, user_id, branch_id, name, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.getDB().ExecContext(ctx, query,
		category.ID, category.CreatedAt, category.UpdatedAt, category.UserID,
		category.BranchID, category.Name, category.Description,
	)
	return err
}

// GetCategory gets a category owned by the scope's tenant
func (s *PostgresStore) GetCategory(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*models.Category, error) {
	query := `SELECT id, created_at, updated_at, user_id, branch_id, name, description
		FROM categories WHERE id = $1 AND user_id = $2`

	c := &models.Category{}
	err := s.getDB().QueryRowContext(ctx, query, id, scope.TenantID).Scan(
		&c.ID, &c.CreatedAt, &c.UpdatedAt, &c.UserID, &c.BranchID,
		&c.Name, &c.Description,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}

	return c, err
}

// UpdateCategory updates a category
func (s *PostgresStore) UpdateCategory(ctx context.Context, scope tenant.Scope, category *models.Category) error {
	category.UpdatedAt = time.Now()

	result, err := s.getDB().ExecContext(ctx,
		`UPDATE categories SET updated_at = $3, name = $4, description = $5
		 WHERE id = $1 AND user_id = $2`,
		category.ID, scope.TenantID, category.UpdatedAt, category.Name, category.Description,
	)
	if err != nil {
		return err
	}

	return requireRowsAffected(result)
}

// DeleteCategory deletes a category
func (s *PostgresStore) DeleteCategory(ctx context.Context, scope tenant.Scope, id uuid.UUID) error {
	result, err := s.getDB().ExecContext(ctx,
		`DELETE FROM categories WHERE id = $1 AND user_id = $2`,
		id, scope.TenantID,
	)
	if err != nil {
		return err
	}

	return requireRowsAffected(result)
}

// ListCategories lists the tenant's categories
func (s *PostgresStore) ListCategories(ctx context.Context, scope tenant.Scope, limit, offset int) ([]*models.Category, int64, error) {
	var total int64
	err := s.getDB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM categories WHERE user_id = $1`, scope.TenantID,
	).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	query := `SELECT id, created_at, updated_at, user_id, branch_id, name, description
		FROM categories WHERE user_id = $1` +
		fmt.Sprintf(` ORDER BY name LIMIT %d OFFSET %d`, limit, offset)

	rows, err := s.getDB().QueryContext(ctx, query, scope.TenantID)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var categories []*models.Category
	for rows.Next() {
		c := &models.Category{}
		if err := rows.Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt, &c.UserID,
			&c.BranchID, &c.Name, &c.Description); err != nil {
			return nil, 0, err
		}
		categories = append(categories, c)
	}

	return categories, total, rows.Err()
}

// ========== Warehouse methods ==========

// CreateWarehouse creates a new warehouse
func (s *PostgresStore) CreateWarehouse(ctx context.Context, warehouse *models.Warehouse) error {
	if warehouse.ID == uuid.Nil {
		warehouse.ID = uuid.New()
	}

	now := time.Now()
	warehouse.CreatedAt = now
	warehouse.UpdatedAt = now

	query := `
		INSERT INTO warehouses (id, created_at, updated_at, user_id, branch_id, name, address)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.getDB().ExecContext(ctx, query,
		warehouse.ID, warehouse.CreatedAt, warehouse.UpdatedAt, warehouse.UserID,
		warehouse.BranchID, warehouse.Name, warehouse.Address,
	)
	return err
}

// GetWarehouse gets a warehouse owned by the scope's tenant
func (s *PostgresStore) GetWarehouse(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*models.Warehouse, error) {
	query := `SELECT id, created_at, updated_at, user_id, branch_id, name, address
		FROM warehouses WHERE id = $1 AND user_id = $2`

	w := &models.Warehouse{}
	err := s.getDB().QueryRowContext(ctx, query, id, scope.TenantID).Scan(
		&w.ID, &w.CreatedAt, &w.UpdatedAt, &w.UserID, &w.BranchID,
		&w.Name, &w.Address,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}

	return w, err
}

// UpdateWarehouse updates a warehouse
func (s *PostgresStore) UpdateWarehouse(ctx context.Context, scope tenant.Scope, warehouse *models.Warehouse) error {
	warehouse.UpdatedAt = time.Now()

	result, err := s.getDB().ExecContext(ctx,
		`UPDATE warehouses SET updated_at = $3, name = $4, address = $5
		 WHERE id = $1 AND user_id = $2`,
		warehouse.ID, scope.TenantID, warehouse.UpdatedAt, warehouse.Name, warehouse.Address,
	)
	if err != nil {
		return err
	}

	return requireRowsAffected(result)
}

// DeleteWarehouse deletes a warehouse
func (s *PostgresStore) DeleteWarehouse(ctx context.Context, scope tenant.Scope, id uuid.UUID) error {
	result, err := s.getDB().ExecContext(ctx,
		`DELETE FROM warehouses WHERE id = $1 AND user_id = $2`,
		id, scope.TenantID,
	)
	if err != nil {
		return err
	}

	return requireRowsAffected(result)
}

// ListWarehouses lists the tenant's warehouses, narrowed to the scope's
// branch when set
func (s *PostgresStore) ListWarehouses(ctx context.Context, scope tenant.Scope, limit, offset int) ([]*models.Warehouse, int64, error) {
	query := `SELECT id, created_at, updated_at, user_id, branch_id, name, address
		FROM warehouses WHERE user_id = $1`
	countQuery := `SELECT COUNT(*) FROM warehouses WHERE user_id = $1`
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

	query += fmt.Sprintf(` ORDER BY name LIMIT %d OFFSET %d`, limit, offset)

	rows, err := s.getDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var warehouses []*models.Warehouse
	for rows.Next() {
		w := &models.Warehouse{}
		if err := rows.Scan(&w.ID, &w.CreatedAt, &w.UpdatedAt, &w.UserID,
			&w.BranchID, &w.Name, &w.Address); err != nil {
			return nil, 0, err
		}
		warehouses = append(warehouses, w)
	}

	return warehouses, total, rows.Err()
}

// ========== Product methods ==========

// CreateProduct creates a new product
func (s *PostgresStore) CreateProduct(ctx context.Context, product *models.Product) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}

	now := time.Now()
	product.CreatedAt = now
	product.UpdatedAt = now

	query := `
		INSERT INTO products (
			id, created_at, updated_at, user_id, branch_id, category_id,
			warehouse_id, name, sku, description, price, cost, stock_qty, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := s.getDB().ExecContext(ctx, query,
		product.ID, product.CreatedAt, product.UpdatedAt, product.UserID,
		product.BranchID, product.CategoryID, product.WarehouseID, product.Name,
		product.SKU, product.Description, product.Price, product.Cost,
		product.StockQty, product.IsActive,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrDuplicateKey
		}
		return err
	}

	return nil
}

// GetProduct gets a product owned by the scope's tenant
func (s *PostgresStore) GetProduct(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1 AND user_id = $2`

	product, err := scanProduct(s.getDB().QueryRowContext(ctx, query, id, scope.TenantID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}

	return product, err
}

// UpdateProduct updates a product
func (s *PostgresStore) UpdateProduct(ctx context.Context, scope tenant.Scope, product *models.Product) error {
	product.UpdatedAt = time.Now()

	query := `
		UPDATE products SET
			updated_at = $3, category_id = $4, warehouse_id = $5, name = $6,
			sku = $7, description = $8, price = $9, cost = $10, stock_qty = $11,
			is_active = $12
		WHERE id = $1 AND user_id = $2`

	result, err := s.getDB().ExecContext(ctx, query,
		product.ID, scope.TenantID, product.UpdatedAt, product.CategoryID,
		product.WarehouseID, product.Name, product.SKU, product.Description,
		product.Price, product.Cost, product.StockQty, product.IsActive,
	)
	if err != nil {
		return err
	}

	return requireRowsAffected(result)
}

// DeleteProduct deletes a product
func (s *PostgresStore) DeleteProduct(ctx context.Context, scope tenant.Scope, id uuid.UUID) error {
	result, err := s.getDB().ExecContext(ctx,
		`DELETE FROM products WHERE id = $1 AND user_id = $2`,
		id, scope.TenantID,
	)
	if err != nil {
		return err
	}

	return requireRowsAffected(result)
}

// ListProducts lists the tenant's products, narrowed to the scope's branch
// when set
func (s *PostgresStore) ListProducts(ctx context.Context, scope tenant.Scope, limit, offset int) ([]*models.Product, int64, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE user_id = $1`
	countQuery := `SELECT COUNT(*) FROM products WHERE user_id = $1`
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

	query += fmt.Sprintf(` ORDER BY name LIMIT %d OFFSET %d`, limit, offset)

	rows, err := s.getDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, product)
	}

	return products, total, rows.Err()
}
