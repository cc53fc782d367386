package storage

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biztrack/biztrack-server/internal/models"
	"github.com/biztrack/biztrack-server/internal/tenant"
)

func TestAddPayment(t *testing.T) {
	tenantID := uuid.New()
	invoiceID := uuid.New()
	scope := tenant.Scope{TenantID: tenantID}

	t.Run("payment settles the invoice", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		store := NewPostgresStoreFromDB(db)

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT grand_total, paid_total FROM invoices`)).
			WithArgs(invoiceID, tenantID).
			WillReturnRows(sqlmock.NewRows([]string{"grand_total", "paid_total"}).AddRow(100.0, 40.0))
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO payments`)).
			WithArgs(sqlmock.AnyArg(), invoiceID, 60.0, "cash", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE invoices SET paid_total`)).
			WithArgs(invoiceID, tenantID, 100.0, models.InvoicePaid, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err = store.AddPayment(context.Background(), scope, invoiceID, &models.Payment{
			Amount: 60.0,
			Method: "cash",
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("partial payment keeps the invoice open", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		store := NewPostgresStoreFromDB(db)

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT grand_total, paid_total FROM invoices`)).
			WithArgs(invoiceID, tenantID).
			WillReturnRows(sqlmock.NewRows([]string{"grand_total", "paid_total"}).AddRow(100.0, 0.0))
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO payments`)).
			WithArgs(sqlmock.AnyArg(), invoiceID, 25.0, "card", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE invoices SET paid_total`)).
			WithArgs(invoiceID, tenantID, 25.0, models.InvoicePartial, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err = store.AddPayment(context.Background(), scope, invoiceID, &models.Payment{
			Amount: 25.0,
			Method: "card",
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown invoice rolls back", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		store := NewPostgresStoreFromDB(db)

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT grand_total, paid_total FROM invoices`)).
			WithArgs(invoiceID, tenantID).
			WillReturnRows(sqlmock.NewRows([]string{"grand_total", "paid_total"}))
		mock.ExpectRollback()

		err = store.AddPayment(context.Background(), scope, invoiceID, &models.Payment{Amount: 10})
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPOSCheckout(t *testing.T) {
	tenantID := uuid.New()
	productID := uuid.New()
	scope := tenant.Scope{TenantID: tenantID}

	newInvoice := func() *models.Invoice {
		inv := &models.Invoice{
			Number:     "INV-20260301-abcd1234",
			Type:       models.InvoiceRevenue,
			Subtotal:   50,
			GrandTotal: 50,
			Status:     models.InvoiceUnpaid,
		}
		inv.UserID = tenantID
		return inv
	}

	t.Run("insufficient stock aborts the transaction", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		store := NewPostgresStoreFromDB(db)

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT name, stock_qty FROM products`)).
			WithArgs(productID, tenantID).
			WillReturnRows(sqlmock.NewRows([]string{"name", "stock_qty"}).AddRow("Espresso Beans 1kg", 2))
		mock.ExpectRollback()

		err = store.POSCheckout(context.Background(), scope, newInvoice(), []CheckoutLine{
			{ProductID: productID, Quantity: 5},
		})

		var stockErr *InsufficientStockError
		require.True(t, errors.As(err, &stockErr))
		assert.Equal(t, "Espresso Beans 1kg", stockErr.ProductName)
		assert.Equal(t, 5, stockErr.Requested)
		assert.Equal(t, 2, stockErr.Available)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("checkout decrements stock and writes the invoice", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		store := NewPostgresStoreFromDB(db)

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT name, stock_qty FROM products`)).
			WithArgs(productID, tenantID).
			WillReturnRows(sqlmock.NewRows([]string{"name", "stock_qty"}).AddRow("Espresso Beans 1kg", 10))
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE products SET stock_qty = stock_qty - $3`)).
			WithArgs(productID, tenantID, 2, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO invoices`)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO invoice_items`)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		invoice := newInvoice()
		invoice.Items = []models.InvoiceItem{
			{ProductID: &productID, Description: "Espresso Beans 1kg", Quantity: 2, UnitPrice: 25, Total: 50},
		}

		err = store.POSCheckout(context.Background(), scope, invoice, []CheckoutLine{
			{ProductID: productID, Quantity: 2},
		})
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, invoice.ID)
		assert.Equal(t, invoice.ID, invoice.Items[0].InvoiceID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
