package models

import (
	"time"

	"github.com/google/uuid"
)

// InvoiceType distinguishes money in from money out.
type InvoiceType string

const (
	InvoiceRevenue InvoiceType = "revenue"
	InvoiceExpense InvoiceType = "expense"
)

// InvoiceStatus is derived from the invoice balance, never set directly.
type InvoiceStatus string

const (
	InvoiceUnpaid  InvoiceStatus = "unpaid"
	InvoicePartial InvoiceStatus = "partial"
	InvoicePaid    InvoiceStatus = "paid"
)

// InvoiceItem is one line of an invoice.
type InvoiceItem struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	InvoiceID uuid.UUID  `json:"invoiceId" db:"invoice_id"`
	ProductID *uuid.UUID `json:"productId,omitempty" db:"product_id"`

	Description string  `json:"description" db:"description"`
	Quantity    int     `json:"quantity" db:"quantity"`
	UnitPrice   float64 `json:"unitPrice" db:"unit_price"`
	Total       float64 `json:"total" db:"total"`
}

// Payment records money received or paid against an invoice.
type Payment struct {
	ID        uuid.UUID `json:"id" db:"id"`
	InvoiceID uuid.UUID `json:"invoiceId" db:"invoice_id"`

	Amount float64   `json:"amount" db:"amount"`
	Method string    `json:"method,omitempty" db:"method"`
	PaidAt time.Time `json:"paidAt" db:"paid_at"`
}

// Invoice belongs to a tenant and a branch. Totals are computed by
// RecalculateTotals before persistence; Status mirrors the balance.
type Invoice struct {
	TenantModel

	Number     string      `json:"number" db:"number"`
	Type       InvoiceType `json:"type" db:"type"`
	CustomerID *uuid.UUID  `json:"customerId,omitempty" db:"customer_id"`
	SupplierID *uuid.UUID  `json:"supplierId,omitempty" db:"supplier_id"`
	StoreID    *uuid.UUID  `json:"storeId,omitempty" db:"store_id"`

	Items    []InvoiceItem `json:"items,omitempty" db:"-"`
	Payments []Payment     `json:"payments,omitempty" db:"-"`

	Subtotal   float64 `json:"subtotal" db:"subtotal"`
	Discount   float64 `json:"discount" db:"discount"`
	Tax        float64 `json:"tax" db:"tax"`
	GrandTotal float64 `json:"grandTotal" db:"grand_total"`
	PaidTotal  float64 `json:"paidTotal" db:"paid_total"`

	Status InvoiceStatus `json:"status" db:"status"`

	IssuedAt time.Time  `json:"issuedAt" db:"issued_at"`
	DueAt    *time.Time `json:"dueAt,omitempty" db:"due_at"`
	Notes    string     `json:"notes,omitempty" db:"notes"`
}

// RecalculateTotals recomputes line totals, the grand total and the derived
// status. Derived fields are computed here, at the call site, not by storage
// hooks.
func (inv *Invoice) RecalculateTotals() {
	var subtotal float64
	for i := range inv.Items {
		inv.Items[i].Total = float64(inv.Items[i].Quantity) * inv.Items[i].UnitPrice
		subtotal += inv.Items[i].Total
	}
	inv.Subtotal = subtotal
	inv.GrandTotal = subtotal - inv.Discount + inv.Tax

	var paid float64
	for _, p := range inv.Payments {
		paid += p.Amount
	}
	inv.PaidTotal = paid
	inv.Status = DeriveInvoiceStatus(inv.GrandTotal, inv.PaidTotal)
}

// DeriveInvoiceStatus maps a balance to a status.
func DeriveInvoiceStatus(grandTotal, paidTotal float64) InvoiceStatus {
	switch {
	case grandTotal > 0 && paidTotal >= grandTotal:
		return InvoicePaid
	case paidTotal > 0:
		return InvoicePartial
	default:
		return InvoiceUnpaid
	}
}
