package storage

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biztrack/biztrack-server/internal/models"
	"github.com/biztrack/biztrack-server/internal/tenant"
)

func TestCountResource(t *testing.T) {
	tenantID := uuid.New()
	branchID := uuid.New()

	t.Run("tenant-wide count", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		store := NewPostgresStoreFromDB(db)
		scope := tenant.Scope{TenantID: tenantID}

		mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM invoices WHERE user_id = $1`)).
			WithArgs(tenantID).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

		count, err := store.CountResource(context.Background(), scope, models.ResourceInvoices)
		require.NoError(t, err)
		assert.Equal(t, 7, count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("branch-pinned scope narrows the count", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		store := NewPostgresStoreFromDB(db)
		scope := tenant.Scope{TenantID: tenantID, BranchID: &branchID}

		mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM products WHERE user_id = $1 AND branch_id = $2`)).
			WithArgs(tenantID, branchID).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

		count, err := store.CountResource(context.Background(), scope, models.ResourceProducts)
		require.NoError(t, err)
		assert.Equal(t, 3, count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("branches are always counted tenant-wide", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		store := NewPostgresStoreFromDB(db)
		scope := tenant.Scope{TenantID: tenantID, BranchID: &branchID}

		mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM branches WHERE user_id = $1`)).
			WithArgs(tenantID).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		count, err := store.CountResource(context.Background(), scope, models.ResourceBranches)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("sub-accounts are counted against the main account", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		store := NewPostgresStoreFromDB(db)
		scope := tenant.Scope{TenantID: tenantID}

		mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM users WHERE main_account_id = $1`)).
			WithArgs(tenantID).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

		count, err := store.CountResource(context.Background(), scope, models.ResourceUsers)
		require.NoError(t, err)
		assert.Equal(t, 4, count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown resource errors", func(t *testing.T) {
		db, _, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		store := NewPostgresStoreFromDB(db)
		_, err = store.CountResource(context.Background(), tenant.Scope{TenantID: tenantID}, models.ResourceType("gadgets"))
		assert.Error(t, err)
	})
}
