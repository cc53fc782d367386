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

const invoiceColumns = `id, created_at, updated_at, user_id, branch_id, number, type,
	customer_id, supplier_id, store_id, subtotal, discount, tax, grand_total,
	paid_total, status, issued_at, due_at, notes`

func scanInvoice(row rowScanner) (*models.Invoice, error) {
	inv := &models.Invoice{}
	err := row.Scan(
		&inv.ID, &inv.CreatedAt, &inv.UpdatedAt, &inv.UserID, &inv.BranchID,
		&inv.Number, &inv.Type, &inv.CustomerID, &inv.SupplierID, &inv.StoreID,
		&inv.Subtotal, &inv.Discount, &inv.Tax, &inv.GrandTotal, &inv.PaidTotal,
		&inv.Status, &inv.IssuedAt, &inv.DueAt, &inv.Notes,
	)
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// CreateInvoice inserts an invoice with its line items. Totals and status
// are expected to be recalculated by the caller.
func (s *PostgresStore) CreateInvoice(ctx context.Context, invoice *models.Invoice) error {
	if invoice.ID == uuid.Nil {
		invoice.ID = uuid.New()
	}

	now := time.Now()
	invoice.CreatedAt = now
	invoice.UpdatedAt = now
	if invoice.IssuedAt.IsZero() {
		invoice.IssuedAt = now
	}

	query := `
		INSERT INTO invoices (
			id, created_at, updated_at, user_id, branch_id, number, type,
			customer_id, supplier_id, store_id, subtotal, discount, tax,
			grand_total, paid_total, status, issued_at, due_at, notes
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19
		)`

	_, err := s.getDB().ExecContext(ctx, query,
		invoice.ID, invoice.CreatedAt, invoice.UpdatedAt, invoice.UserID,
		invoice.BranchID, invoice.Number, invoice.Type, invoice.CustomerID,
		invoice.SupplierID, invoice.StoreID, invoice.Subtotal, invoice.Discount,
		invoice.Tax, invoice.GrandTotal, invoice.PaidTotal, invoice.Status,
		invoice.IssuedAt, invoice.DueAt, invoice.Notes,
	)
	if err != nil {
		return err
	}

	for i := range invoice.Items {
		item := &invoice.Items[i]
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		item.InvoiceID = invoice.ID

		_, err := s.getDB().ExecContext(ctx,
			`INSERT INTO invoice_items (id, invoice_id, product_id, description, quantity, unit_price, total)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			item.ID, item.InvoiceID, item.ProductID, item.Description,
			item.Quantity, item.UnitPrice, item.Total,
		)
		if err != nil {
			return fmt.Errorf("insert invoice item: %w", err)
		}
	}

	for i := range invoice.Payments {
		p := &invoice.Payments[i]
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		p.InvoiceID = invoice.ID
		if p.PaidAt.IsZero() {
			p.PaidAt = now
		}

		_, err := s.getDB().ExecContext(ctx,
			`INSERT INTO payments (id, invoice_id, amount, method, paid_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			p.ID, p.InvoiceID, p.Amount, p.Method, p.PaidAt,
		)
		if err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}
	}

	return nil
}

// GetInvoice gets an invoice with items and payments, scoped to the tenant.
func (s *PostgresStore) GetInvoice(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*models.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1 AND user_id = $2`

	invoice, err := scanInvoice(s.getDB().QueryRowContext(ctx, query, id, scope.TenantID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.getDB().QueryContext(ctx,
		`SELECT id, invoice_id, product_id, description, quantity, unit_price, total
		 FROM invoice_items WHERE invoice_id = $1 ORDER BY description`,
		invoice.ID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var item models.InvoiceItem
		if err := rows.Scan(&item.ID, &item.InvoiceID, &item.ProductID,
			&item.Description, &item.Quantity, &item.UnitPrice, &item.Total); err != nil {
			return nil, err
		}
		invoice.Items = append(invoice.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	payRows, err := s.getDB().QueryContext(ctx,
		`SELECT id, invoice_id, amount, method, paid_at
		 FROM payments WHERE invoice_id = $1 ORDER BY paid_at`,
		invoice.ID,
	)
	if err != nil {
		return nil, err
	}
	defer payRows.Close()

	for payRows.Next() {
		var p models.Payment
		if err := payRows.Scan(&p.ID, &p.InvoiceID, &p.Amount, &p.Method, &p.PaidAt); err != nil {
			return nil, err
		}
		invoice.Payments = append(invoice.Payments, p)
	}

	return invoice, payRows.Err()
}

// ListInvoices lists the tenant's invoices, narrowed to the scope's branch
// when set, newest first.
func (s *PostgresStore) ListInvoices(ctx context.Context, scope tenant.Scope, filters InvoiceFilters, limit, offset int) ([]*models.Invoice, int64, error) {
	where := ` WHERE user_id = $1`
	args := []interface{}{scope.TenantID}

	if scope.BranchID != nil {
		args = append(args, *scope.BranchID)
		where += fmt.Sprintf(` AND branch_id = $%d`, len(args))
	}
	if filters.Type != nil {
		args = append(args, *filters.Type)
		where += fmt.Sprintf(` AND type = $%d`, len(args))
	}
	if filters.Status != nil {
		args = append(args, *filters.Status)
		where += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	if filters.CustomerID != nil {
		args = append(args, *filters.CustomerID)
		where += fmt.Sprintf(` AND customer_id = $%d`, len(args))
	}
	if filters.From != nil {
		args = append(args, *filters.From)
		where += fmt.Sprintf(` AND issued_at >= $%d`, len(args))
	}
	if filters.To != nil {
		args = append(args, *filters.To)
		where += fmt.Sprintf(` AND issued_at < $%d`, len(args))
	}

	var total int64
	if err := s.getDB().QueryRowContext(ctx, `SELECT COUNT(*) FROM invoices`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + invoiceColumns + ` FROM invoices` + where +
		fmt.Sprintf(` ORDER BY issued_at DESC LIMIT %d OFFSET %d`, limit, offset)

	rows, err := s.getDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var invoices []*models.Invoice
	for rows.Next() {
		invoice, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		invoices = append(invoices, invoice)
	}

	return invoices, total, rows.Err()
}

// DeleteInvoice deletes an invoice; items and payments cascade.
func (s *PostgresStore) DeleteInvoice(ctx context.Context, scope tenant.Scope, id uuid.UUID) error {
	result, err := s.getDB().ExecContext(ctx,
		`DELETE FROM invoices WHERE id = $1 AND user_id = $2`,
		id, scope.TenantID,
	)
	if err != nil {
		return err
	}

	return requireRowsAffected(result)
}

// AddPayment records a payment and re-derives the invoice status, all in one
// transaction.
func (s *PostgresStore) AddPayment(ctx context.Context, scope tenant.Scope, invoiceID uuid.UUID, payment *models.Payment) error {
	txStore, err := s.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer txStore.Rollback()

	tx := txStore.(*PostgresStore)

	var grandTotal, paidTotal float64
	err = tx.getDB().QueryRowContext(ctx,
		`SELECT grand_total, paid_total FROM invoices
		 WHERE id = $1 AND user_id = $2 FOR UPDATE`,
		invoiceID, scope.TenantID,
	).Scan(&grandTotal, &paidTotal)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	payment.InvoiceID = invoiceID
	if payment.PaidAt.IsZero() {
		payment.PaidAt = time.Now()
	}

	_, err = tx.getDB().ExecContext(ctx,
		`INSERT INTO payments (id, invoice_id, amount, method, paid_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		payment.ID, payment.InvoiceID, payment.Amount, payment.Method, payment.PaidAt,
	)
	if err != nil {
		return err
	}

	newPaid := paidTotal + payment.Amount
	status := models.DeriveInvoiceStatus(grandTotal, newPaid)

	_, err = tx.getDB().ExecContext(ctx,
		`UPDATE invoices SET paid_total = $3, status = $4, updated_at = $5
		 WHERE id = $1 AND user_id = $2`,
		invoiceID, scope.TenantID, newPaid, status, time.Now(),
	)
	if err != nil {
		return err
	}

	return txStore.Commit()
}

// POSCheckout decrements stock for every cart line and creates the invoice
// atomically. Stock rows are locked in cart order; any insufficient line
// aborts the whole transaction, so no partial decrement or invoice survives.
func (s *PostgresStore) POSCheckout(ctx context.Context, scope tenant.Scope, invoice *models.Invoice, lines []CheckoutLine) error {
	txStore, err := s.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer txStore.Rollback()

	tx := txStore.(*PostgresStore)

	for _, line := range lines {
		var name string
		var stock int
		err := tx.getDB().QueryRowContext(ctx,
			`SELECT name, stock_qty FROM products
			 WHERE id = $1 AND user_id = $2 FOR UPDATE`,
			line.ProductID, scope.TenantID,
		).Scan(&name, &stock)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		if stock < line.Quantity {
			return &InsufficientStockError{
				ProductName: name,
				Requested:   line.Quantity,
				Available:   stock,
			}
		}

		_, err = tx.getDB().ExecContext(ctx,
			`UPDATE products SET stock_qty = stock_qty - $3, updated_at = $4
			 WHERE id = $1 AND user_id = $2`,
			line.ProductID, scope.TenantID, line.Quantity, time.Now(),
		)
		if err != nil {
			return err
		}
	}

	if err := tx.CreateInvoice(ctx, invoice); err != nil {
		return err
	}

	return txStore.Commit()
}
