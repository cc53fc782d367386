package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/biztrack/biztrack-server/internal/models"
	"github.com/biztrack/biztrack-server/internal/notify"
	"github.com/biztrack/biztrack-server/internal/reporting"
	"github.com/biztrack/biztrack-server/internal/storage"
)

// invoiceItemRequest is one invoice line in a create payload.
type invoiceItemRequest struct {
	ProductID   *uuid.UUID `json:"productId"`
	Description string     `json:"description" validate:"required,max=300"`
	Quantity    int        `json:"quantity" validate:"min=1"`
	UnitPrice   float64    `json:"unitPrice" validate:"min=0"`
}

// ========== Invoice handlers ==========

// HandleListInvoices lists invoices with optional filters
func (s *RESTServer) HandleListInvoices(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	filters := storage.InvoiceFilters{}
	q := r.URL.Query()
	if v := q.Get("type"); v != "" {
		t := models.InvoiceType(v)
		filters.Type = &t
	}
	if v := q.Get("status"); v != "" {
		st := models.InvoiceStatus(v)
		filters.Status = &st
	}
	if v := q.Get("customer_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid customer_id")
			return
		}
		filters.CustomerID = &id
	}
	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid from timestamp")
			return
		}
		filters.From = &t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid to timestamp")
			return
		}
		filters.To = &t
	}

	limit, offset := paginate(r)
	invoices, total, err := s.store.ListInvoices(r.Context(), scope, filters, limit, offset)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"invoices": invoices,
		"total":    total,
	})
}

// HandleCreateInvoice creates an invoice; counts against the invoice limit.
func (s *RESTServer) HandleCreateInvoice(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req struct {
		Type       models.InvoiceType   `json:"type" validate:"required,oneof=revenue expense"`
		CustomerID *uuid.UUID           `json:"customerId"`
		SupplierID *uuid.UUID           `json:"supplierId"`
		BranchID   *uuid.UUID           `json:"branchId"`
		Items      []invoiceItemRequest `json:"items" validate:"required,min=1"`
		Discount   float64              `json:"discount" validate:"min=0"`
		Tax        float64              `json:"tax" validate:"min=0"`
		DueAt      *time.Time           `json:"dueAt"`
		Notes      string               `json:"notes" validate:"max=1000"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	for i, item := range req.Items {
		if err := s.validator.Validate(item); err != nil {
			s.respondError(w, http.StatusBadRequest, fmt.Sprintf("item %d: %v", i, err))
			return
		}
	}

	if !s.guardCreate(w, r, scope, models.ResourceInvoices) {
		return
	}

	invoice := &models.Invoice{
		Number:     nextInvoiceNumber(),
		Type:       req.Type,
		CustomerID: req.CustomerID,
		SupplierID: req.SupplierID,
		Discount:   req.Discount,
		Tax:        req.Tax,
		IssuedAt:   time.Now().UTC(),
		DueAt:      req.DueAt,
		Notes:      req.Notes,
	}
	invoice.UserID = scope.TenantID
	invoice.BranchID = branchPin(scope, req.BranchID)

	for _, item := range req.Items {
		invoice.Items = append(invoice.Items, models.InvoiceItem{
			ProductID:   item.ProductID,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		})
	}
	invoice.RecalculateTotals()

	if err := s.store.CreateInvoice(r.Context(), invoice); err != nil {
		s.respondError(w, storageErrorStatus(err), err.Error())
		return
	}

	s.publisher.Publish(notify.Event{
		TenantID: scope.TenantID,
		Type:     notify.SubjectInvoiceCreated,
		Details: map[string]interface{}{
			"invoiceId": invoice.ID.String(),
			"number":    invoice.Number,
			"total":     invoice.GrandTotal,
		},
	})

	s.respondJSON(w, http.StatusCreated, invoice)
}

// HandleGetInvoice gets one invoice with its items and payments
func (s *RESTServer) HandleGetInvoice(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid invoice id")
		return
	}

	invoice, err := s.store.GetInvoice(r.Context(), scope, id)
	if err != nil {
		s.respondError(w, storageErrorStatus(err), "invoice not found")
		return
	}

	s.respondJSON(w, http.StatusOK, invoice)
}

// HandleDeleteInvoice deletes one invoice
func (s *RESTServer) HandleDeleteInvoice(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid invoice id")
		return
	}

	if err := s.store.DeleteInvoice(r.Context(), scope, id); err != nil {
		s.respondError(w, storageErrorStatus(err), err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleAddPayment records a payment against an invoice. The derived status
// moves with the balance inside one transaction.
func (s *RESTServer) HandleAddPayment(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid invoice id")
		return
	}

	var req struct {
		Amount float64 `json:"amount" validate:"required,min=0"`
		Method string  `json:"method" validate:"max=50"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Amount <= 0 {
		s.respondError(w, http.StatusBadRequest, "amount must be positive")
		return
	}

	payment := &models.Payment{
		Amount: req.Amount,
		Method: req.Method,
		PaidAt: time.Now().UTC(),
	}

	if err := s.store.AddPayment(r.Context(), scope, id, payment); err != nil {
		s.respondError(w, storageErrorStatus(err), err.Error())
		return
	}

	invoice, err := s.store.GetInvoice(r.Context(), scope, id)
	if err != nil {
		s.respondError(w, storageErrorStatus(err), err.Error())
		return
	}

	s.respondJSON(w, http.StatusCreated, invoice)
}

// HandleInvoicePDF renders an invoice as a PDF document
func (s *RESTServer) HandleInvoicePDF(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid invoice id")
		return
	}

	invoice, err := s.store.GetInvoice(r.Context(), scope, id)
	if err != nil {
		s.respondError(w, storageErrorStatus(err), "invoice not found")
		return
	}

	doc := &reporting.InvoiceDocument{Invoice: invoice}

	if tenantUser, err := s.store.GetTenant(r.Context(), scope.TenantID); err == nil {
		doc.BusinessName = tenantUser.FirstName + " " + tenantUser.LastName
	}
	if invoice.CustomerID != nil {
		if customer, err := s.store.GetCustomer(r.Context(), scope, *invoice.CustomerID); err == nil {
			doc.PartyName = customer.Name
			doc.PartyAddress = customer.Address
		}
	}
	if invoice.SupplierID != nil {
		if supplier, err := s.store.GetSupplier(r.Context(), scope, *invoice.SupplierID); err == nil {
			doc.PartyName = supplier.Name
			doc.PartyAddress = supplier.Address
		}
	}
	if invoice.BranchID != nil {
		if branch, err := s.store.GetBranch(r.Context(), scope, *invoice.BranchID); err == nil {
			doc.BranchName = branch.Name
		}
	}

	pdfBytes, err := s.pdf.Generate(doc)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to render PDF")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=invoice-%s.pdf", invoice.Number))
	w.WriteHeader(http.StatusOK)
	w.Write(pdfBytes)
}

// ========== POS handlers ==========

// HandlePOSCheckout sells a cart of products: stock is decremented and the
// invoice created in one transaction. The invoice counts against the invoice
// limit.
func (s *RESTServer) HandlePOSCheckout(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req struct {
		CustomerID *uuid.UUID `json:"customerId"`
		BranchID   *uuid.UUID `json:"branchId"`
		Items      []struct {
			ProductID uuid.UUID `json:"productId" validate:"required"`
			Quantity  int       `json:"quantity" validate:"min=1"`
		} `json:"items" validate:"required,min=1"`
		Discount float64 `json:"discount" validate:"min=0"`
		Tax      float64 `json:"tax" validate:"min=0"`
		Paid     float64 `json:"paid" validate:"min=0"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !s.guardCreate(w, r, scope, models.ResourceInvoices) {
		return
	}

	invoice := &models.Invoice{
		Number:     nextInvoiceNumber(),
		Type:       models.InvoiceRevenue,
		CustomerID: req.CustomerID,
		Discount:   req.Discount,
		Tax:        req.Tax,
		IssuedAt:   time.Now().UTC(),
	}
	invoice.UserID = scope.TenantID
	invoice.BranchID = branchPin(scope, req.BranchID)

	lines := make([]storage.CheckoutLine, 0, len(req.Items))
	for _, item := range req.Items {
		product, err := s.store.GetProduct(r.Context(), scope, item.ProductID)
		if err != nil {
			s.respondError(w, storageErrorStatus(err), "product not found")
			return
		}
		if item.Quantity < 1 {
			s.respondError(w, http.StatusBadRequest, "quantity must be at least 1")
			return
		}
		invoice.Items = append(invoice.Items, models.InvoiceItem{
			ProductID:   &product.ID,
			Description: product.Name,
			Quantity:    item.Quantity,
			UnitPrice:   product.Price,
		})
		lines = append(lines, storage.CheckoutLine{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}

	if req.Paid > 0 {
		invoice.Payments = append(invoice.Payments, models.Payment{
			Amount: req.Paid,
			Method: "pos",
			PaidAt: time.Now().UTC(),
		})
	}
	invoice.RecalculateTotals()

	if err := s.store.POSCheckout(r.Context(), scope, invoice, lines); err != nil {
		var stockErr *storage.InsufficientStockError
		if errors.As(err, &stockErr) {
			s.respondJSON(w, http.StatusConflict, map[string]interface{}{
				"error":     stockErr.Error(),
				"product":   stockErr.ProductName,
				"requested": stockErr.Requested,
				"available": stockErr.Available,
			})
			return
		}
		s.respondError(w, storageErrorStatus(err), err.Error())
		return
	}

	s.recordEvent(r, scope.TenantID, invoice.BranchID, models.EventCheckout, models.EventLevelInfo, "pos checkout", models.Variables{
		"invoiceId": invoice.ID.String(),
		"total":     invoice.GrandTotal,
	})

	s.respondJSON(w, http.StatusCreated, invoice)
}

// nextInvoiceNumber mints a human-readable invoice number. Uniqueness comes
// from the embedded UUID fragment, not from a counter.
func nextInvoiceNumber() string {
	return fmt.Sprintf("INV-%s-%s", time.Now().UTC().Format("20060102"), uuid.New().String()[:8])
}
