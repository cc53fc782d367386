package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecalculateTotals(t *testing.T) {
	inv := &Invoice{
		Discount: 10,
		Tax:      5,
		Items: []InvoiceItem{
			{Quantity: 3, UnitPrice: 20},
			{Quantity: 1, UnitPrice: 15},
		},
		Payments: []Payment{
			{Amount: 30},
			{Amount: 40},
		},
	}

	inv.RecalculateTotals()

	assert.Equal(t, 60.0, inv.Items[0].Total)
	assert.Equal(t, 15.0, inv.Items[1].Total)
	assert.Equal(t, 75.0, inv.Subtotal)
	assert.Equal(t, 70.0, inv.GrandTotal)
	assert.Equal(t, 70.0, inv.PaidTotal)
	assert.Equal(t, InvoicePaid, inv.Status)
}

func TestDeriveInvoiceStatus(t *testing.T) {
	tests := []struct {
		name       string
		grandTotal float64
		paidTotal  float64
		want       InvoiceStatus
	}{
		{"nothing paid", 100, 0, InvoiceUnpaid},
		{"partially paid", 100, 40, InvoicePartial},
		{"fully paid", 100, 100, InvoicePaid},
		{"overpaid still paid", 100, 120, InvoicePaid},
		{"zero total stays unpaid", 0, 0, InvoiceUnpaid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveInvoiceStatus(tt.grandTotal, tt.paidTotal))
		})
	}
}
