package storage

import (
	"context"
	"fmt"

	"github.com/biztrack/biztrack-server/internal/models"
	"github.com/biztrack/biztrack-server/internal/tenant"
)

// branchScoped marks the resources counted per branch when the scope is
// branch-pinned. Branches, users and categories are always counted
// tenant-wide: the limit applies to the whole account.
var branchScoped = map[models.ResourceType]bool{
	models.ResourceInvoices:   true,
	models.ResourceSuppliers:  true,
	models.ResourceCustomers:  true,
	models.ResourceProducts:   true,
	models.ResourceWarehouses: true,
}

// resourceCountQuery maps a resource type to its count query. The tenant
// filter is always present; the branch filter is appended for branch-scoped
// resources only.
func resourceCountQuery(resource models.ResourceType) (string, string, error) {
	switch resource {
	case models.ResourceInvoices:
		return `SELECT COUNT(*) FROM invoices WHERE user_id = $1`, "branch_id", nil
	case models.ResourceBranches:
		return `SELECT COUNT(*) FROM branches WHERE user_id = $1`, "", nil
	case models.ResourceUsers:
		return `SELECT COUNT(*) FROM users WHERE main_account_id = $1`, "", nil
	case models.ResourceSuppliers:
		return `SELECT COUNT(*) FROM suppliers WHERE user_id = $1`, "branch_id", nil
	case models.ResourceCustomers:
		return `SELECT COUNT(*) FROM customers WHERE user_id = $1`, "branch_id", nil
	case models.ResourceProducts:
		return `SELECT COUNT(*) FROM products WHERE user_id = $1`, "branch_id", nil
	case models.ResourceCategories:
		return `SELECT COUNT(*) FROM categories WHERE user_id = $1`, "", nil
	case models.ResourceWarehouses:
		return `SELECT COUNT(*) FROM warehouses WHERE user_id = $1`, "branch_id", nil
	}
	return "", "", fmt.Errorf("unknown resource type %q", resource)
}

// CountResource counts current usage of a resource, scoped by tenant and,
// for branch-scoped resources, by the scope's branch. Pure read; applies the
// same scoping rule as every other tenant query.
func (s *PostgresStore) CountResource(ctx context.Context, scope tenant.Scope, resource models.ResourceType) (int, error) {
	query, branchColumn, err := resourceCountQuery(resource)
	if err != nil {
		return 0, err
	}

	args := []interface{}{scope.TenantID}
	if branchColumn != "" && scope.BranchID != nil && branchScoped[resource] {
		query += ` AND ` + branchColumn + ` = $2`
		args = append(args, *scope.BranchID)
	}

	var count int
	if err := s.getDB().QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count %s: %w", resource, err)
	}

	return count, nil
}
