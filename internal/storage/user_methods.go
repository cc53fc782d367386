package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/biztrack/biztrack-server/internal/models"
	"github.com/biztrack/biztrack-server/internal/tenant"
)

const userColumns = `id, created_at, updated_at, email, first_name, last_name, phone,
	password_hash, role, is_active, main_account_id, branch_id, subscription,
	last_login_at, settings`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanUser scans one user row, decoding the subscription sub-document.
func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	var subRaw []byte

	err := row.Scan(
		&user.ID, &user.CreatedAt, &user.UpdatedAt, &user.Email,
		&user.FirstName, &user.LastName, &user.Phone, &user.PasswordHash,
		&user.Role, &user.IsActive, &user.MainAccountID, &user.BranchID,
		&subRaw, &user.LastLoginAt, &user.Settings,
	)
	if err != nil {
		return nil, err
	}

	if len(subRaw) > 0 {
		sub := &models.Subscription{}
		if err := json.Unmarshal(subRaw, sub); err != nil {
			return nil, fmt.Errorf("decode subscription: %w", err)
		}
		user.Subscription = sub
	}

	return user, nil
}

// CreateUser creates a new account row. The password hash and any derived
// fields are computed by the caller before this point.
func (s *PostgresStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	query := `
		INSERT INTO users (
			id, created_at, updated_at, email, first_name, last_name, phone,
			password_hash, role, is_active, main_account_id, branch_id,
			subscription, settings
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		)`

	_, err := s.getDB().ExecContext(ctx, query,
		user.ID, user.CreatedAt, user.UpdatedAt, user.Email, user.FirstName,
		user.LastName, user.Phone, user.PasswordHash, user.Role, user.IsActive,
		user.MainAccountID, user.BranchID, user.Subscription, user.Settings,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrDuplicateKey
		}
		return err
	}

	return nil
}

// GetUser gets an account by ID
func (s *PostgresStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(s.getDB().QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}

	return user, err
}

// GetUserByEmail gets an account by email
func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := scanUser(s.getDB().QueryRowContext(ctx, query, email))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}

	return user, err
}

// UpdateUser updates an account
func (s *PostgresStore) UpdateUser(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now()

	query := `
		UPDATE users SET
			updated_at = $2, email = $3, first_name = $4, last_name = $5,
			phone = $6, is_active = $7, branch_id = $8, last_login_at = $9,
			settings = $10
		WHERE id = $1`

	result, err := s.getDB().ExecContext(ctx, query,
		user.ID, user.UpdatedAt, user.Email, user.FirstName, user.LastName,
		user.Phone, user.IsActive, user.BranchID, user.LastLoginAt,
		user.Settings,
	)

	if err != nil {
		return err
	}

	return requireRowsAffected(result)
}

// DeleteSubAccount deletes a sub-account owned by the scope's tenant. The
// ownership filter keeps one tenant from deleting another tenant's staff.
func (s *PostgresStore) DeleteSubAccount(ctx context.Context, scope tenant.Scope, id uuid.UUID) error {
	result, err := s.getDB().ExecContext(ctx,
		`DELETE FROM users WHERE id = $1 AND main_account_id = $2`,
		id, scope.TenantID,
	)
	if err != nil {
		return err
	}

	return requireRowsAffected(result)
}

// SetSubAccountActive activates or suspends a sub-account.
func (s *PostgresStore) SetSubAccountActive(ctx context.Context, scope tenant.Scope, id uuid.UUID, active bool) error {
	result, err := s.getDB().ExecContext(ctx,
		`UPDATE users SET is_active = $3, updated_at = $4 WHERE id = $1 AND main_account_id = $2`,
		id, scope.TenantID, active, time.Now(),
	)
	if err != nil {
		return err
	}

	return requireRowsAffected(result)
}

// ListSubAccounts lists the accounts under the scope's tenant, narrowed to
// the scope's branch when set.
func (s *PostgresStore) ListSubAccounts(ctx context.Context, scope tenant.Scope, limit, offset int) ([]*models.User, int64, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE main_account_id = $1`
	countQuery := `SELECT COUNT(*) FROM users WHERE main_account_id = $1`
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

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, user)
	}

	return users, total, rows.Err()
}

// GetTenant fetches the subscriber row for a tenant ID. Sub-account IDs do
// not resolve here; callers pass the scope's TenantID.
func (s *PostgresStore) GetTenant(ctx context.Context, tenantID uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND role = $2`

	user, err := scanUser(s.getDB().QueryRowContext(ctx, query, tenantID, models.RoleSubscriber))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}

	return user, err
}

// UpdateSubscription replaces the subscription sub-document on a tenant row.
func (s *PostgresStore) UpdateSubscription(ctx context.Context, tenantID uuid.UUID, sub *models.Subscription) error {
	result, err := s.getDB().ExecContext(ctx,
		`UPDATE users SET subscription = $2, updated_at = $3 WHERE id = $1 AND role = $4`,
		tenantID, sub, time.Now(), models.RoleSubscriber,
	)
	if err != nil {
		return err
	}

	return requireRowsAffected(result)
}

// ListExpiredTenants returns subscriber rows whose subscription end date has
// passed but whose stored record is not yet flagged expired. The expiry
// sweep marks these.
func (s *PostgresStore) ListExpiredTenants(ctx context.Context, asOf time.Time) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		WHERE role = $1
		  AND subscription IS NOT NULL
		  AND (subscription->>'isExpired')::boolean = false
		  AND (subscription->>'endDate')::timestamptz < $2`

	rows, err := s.getDB().QueryContext(ctx, query, models.RoleSubscriber, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	return users, rows.Err()
}

// requireRowsAffected maps zero affected rows to ErrNotFound.
func requireRowsAffected(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
