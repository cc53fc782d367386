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

const storeColumns = `id, created_at, updated_at, user_id, branch_id, name, slug, description, is_public`

func scanStorefront(row rowScanner) (*models.Store, error) {
	st := &models.Store{}
	err := row.Scan(
		&st.ID, &st.CreatedAt, &st.UpdatedAt, &st.UserID, &st.BranchID,
		&st.Name, &st.Slug, &st.Description, &st.IsPublic,
	)
	if err != nil {
		return nil, err
	}
	return st, nil
}

// CreateStore creates a new storefront
func (s *PostgresStore) CreateStore(ctx context.Context, store *models.Store) error {
	if store.ID == uuid.Nil {
		store.ID = uuid.New()
	}

	now := time.Now()
	store.CreatedAt = now
	store.UpdatedAt = now

	query := `
		INSERT INTO stores (id, created_at, updated_at, user_id, branch_id, name, slug, description, is_public)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := s.getDB().ExecContext(ctx, query,
		store.ID, store.CreatedAt, store.UpdatedAt, store.UserID,
		store.BranchID, store.Name, store.Slug, store.Description, store.IsPublic,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrDuplicateKey
		}
		return err
	}

	return nil
}

// GetStore gets a storefront owned by the scope's tenant
func (s *PostgresStore) GetStore(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*models.Store, error) {
	query := `SELECT ` + storeColumns + ` FROM stores WHERE id = $1 AND user_id = $2`

	store, err := scanStorefront(s.getDB().QueryRowContext(ctx, query, id, scope.TenantID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}

	return store, err
}

// GetStoreBySlug resolves a public storefront by slug. Unscoped on purpose:
// the storefront endpoints serve anonymous buyers.
func (s *PostgresStore) GetStoreBySlug(ctx context.Context, slug string) (*models.Store, error) {
	query := `SELECT ` + storeColumns + ` FROM stores WHERE slug = $1 AND is_public = true`

	store, err := scanStorefront(s.getDB().QueryRowContext(ctx, query, slug))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}

	return store, err
}

// UpdateStore updates a storefront
func (s *PostgresStore) UpdateStore(ctx context.Context, scope tenant.Scope, store *models.Store) error {
	store.UpdatedAt = time.Now()

	query := `
		UPDATE stores SET
			updated_at = $3, name = $4, slug = $5, description = $6, is_public = $7
		WHERE id = $1 AND user_id = $2`

	result, err := s.getDB().ExecContext(ctx, query,
		store.ID, scope.TenantID, store.UpdatedAt, store.Name, store.Slug,
		store.Description, store.IsPublic,
	)
	if err != nil {
		return err
	}

	return requireRowsAffected(result)
}

// DeleteStore deletes a storefront
func (s *PostgresStore) DeleteStore(ctx context.Context, scope tenant.Scope, id uuid.UUID) error {
	result, err := s.getDB().ExecContext(ctx,
		`DELETE FROM stores WHERE id = $1 AND user_id = $2`,
		id, scope.TenantID,
	)
	if err != nil {
		return err
	}

	return requireRowsAffected(result)
}

// ListStores lists the tenant's storefronts, narrowed to the scope's branch
// when set
func (s *PostgresStore) ListStores(ctx context.Context, scope tenant.Scope, limit, offset int) ([]*models.Store, int64, error) {
	query := `SELECT ` + storeColumns + ` FROM stores WHERE user_id = $1`
	countQuery := `SELECT COUNT(*) FROM stores WHERE user_id = $1`
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

	var stores []*models.Store
	for rows.Next() {
		store, err := scanStorefront(rows)
		if err != nil {
			return nil, 0, err
		}
		stores = append(stores, store)
	}

	return stores, total, rows.Err()
}
