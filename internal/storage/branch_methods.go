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

const branchColumns = `id, created_at, updated_at, user_id, name, address, phone, is_active`

func scanBranch(row rowScanner) (*models.Branch, error) {
	branch := &models.Branch{}
	err := row.Scan(
		&branch.ID, &branch.CreatedAt, &branch.UpdatedAt, &branch.UserID,
		&branch.Name, &branch.Address, &branch.Phone, &branch.IsActive,
	)
	if err != nil {
		return nil, err
	}
	return branch, nil
}

// CreateBranch creates a new branch
func (s *PostgresStore) CreateBranch(ctx context.Context, branch *models.Branch) error {
	if branch.ID == uuid.Nil {
		branch.ID = uuid.New()
	}

	now := time.Now()
	branch.CreatedAt = now
	branch.UpdatedAt = now

	query := `
		INSERT INTO branches (id, created_at, updated_at, user_id, name, address, phone, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.getDB().ExecContext(ctx, query,
		branch.ID, branch.CreatedAt, branch.UpdatedAt, branch.UserID,
		branch.Name, branch.Address, branch.Phone, branch.IsActive,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrDuplicateKey
		}
		return err
	}

	return nil
}

// GetBranch gets a branch owned by the scope's tenant
func (s *PostgresStore) GetBranch(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*models.Branch, error) {
	query := `SELECT ` + branchColumns + ` FROM branches WHERE id = $1 AND user_id = $2`

	branch, err := scanBranch(s.getDB().QueryRowContext(ctx, query, id, scope.TenantID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}

	return branch, err
}

// UpdateBranch updates a branch
func (s *PostgresStore) UpdateBranch(ctx context.Context, scope tenant.Scope, branch *models.Branch) error {
	branch.UpdatedAt = time.Now()

	query := `
		UPDATE branches SET
			updated_at = $3, name = $4, address = $5, phone = $6, is_active = $7
		WHERE id = $1 AND user_id = $2`

	result, err := s.getDB().ExecContext(ctx, query,
		branch.ID, scope.TenantID, branch.UpdatedAt, branch.Name,
		branch.Address, branch.Phone, branch.IsActive,
	)
	if err != nil {
		return err
	}

	return requireRowsAffected(result)
}

// DeleteBranch deletes a branch
func (s *PostgresStore) DeleteBranch(ctx context.Context, scope tenant.Scope, id uuid.UUID) error {
	result, err := s.getDB().ExecContext(ctx,
		`DELETE FROM branches WHERE id = $1 AND user_id = $2`,
		id, scope.TenantID,
	)
	if err != nil {
		return err
	}

	return requireRowsAffected(result)
}

// ListBranches lists the tenant's branches
func (s *PostgresStore) ListBranches(ctx context.Context, scope tenant.Scope, limit, offset int) ([]*models.Branch, int64, error) {
	var total int64
	err := s.getDB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM branches WHERE user_id = $1`, scope.TenantID,
	).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + branchColumns + ` FROM branches WHERE user_id = $1` +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d OFFSET %d`, limit, offset)

	rows, err := s.getDB().QueryContext(ctx, query, scope.TenantID)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var branches []*models.Branch
	for rows.Next() {
		branch, err := scanBranch(rows)
		if err != nil {
			return nil, 0, err
		}
		branches = append(branches, branch)
	}

	return branches, total, rows.Err()
}
