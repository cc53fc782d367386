package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/biztrack/biztrack-server/internal/models"
	"github.com/biztrack/biztrack-server/internal/notify"
	"github.com/biztrack/biztrack-server/internal/storage"
	"github.com/biztrack/biztrack-server/internal/tenant"
)

// ========== Store handlers ==========

// HandleListStores lists the tenant's storefronts
func (s *RESTServer) HandleListStores(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	limit, offset := paginate(r)
	stores, total, err := s.store.ListStores(r.Context(), scope, limit, offset)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"stores": stores,
		"total":  total,
	})
}

// HandleCreateStore creates a storefront
func (s *RESTServer) HandleCreateStore(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req struct {
		Name        string     `json:"name" validate:"required,min=2,max=100"`
		Slug        string     `json:"slug" validate:"required,min=3,max=64"`
		Description string     `json:"description" validate:"max=500"`
		IsPublic    bool       `json:"isPublic"`
		BranchID    *uuid.UUID `json:"branchId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	slug := normalizeSlug(req.Slug)
	if slug == "" {
		s.respondError(w, http.StatusBadRequest, "invalid slug")
		return
	}

	store := &models.Store{
		Name:        req.Name,
		Slug:        slug,
		Description: req.Description,
		IsPublic:    req.IsPublic,
	}
	store.UserID = scope.TenantID
	store.BranchID = branchPin(scope, req.BranchID)

	if err := s.store.CreateStore(r.Context(), store); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			s.respondError(w, http.StatusConflict, "slug already in use")
			return
		}
		s.respondError(w, storageErrorStatus(err), err.Error())
		return
	}

	s.respondJSON(w, http.StatusCreated, store)
}

// HandleGetStore gets one storefront
func (s *RESTServer) HandleGetStore(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid store id")
		return
	}

	store, err := s.store.GetStore(r.Context(), scope, id)
	if err != nil {
		s.respondError(w, storageErrorStatus(err), "store not found")
		return
	}

	s.respondJSON(w, http.StatusOK, store)
}

// HandleUpdateStore updates one storefront
func (s *RESTServer) HandleUpdateStore(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid store id")
		return
	}

	var req struct {
		Name        string `json:"name" validate:"required,min=2,max=100"`
		Description string `json:"description" validate:"max=500"`
		IsPublic    *bool  `json:"isPublic"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	store, err := s.store.GetStore(r.Context(), scope, id)
	if err != nil {
		s.respondError(w, storageErrorStatus(err), "store not found")
		return
	}

	store.Name = req.Name
	store.Description = req.Description
	if req.IsPublic != nil {
		store.IsPublic = *req.IsPublic
	}

	if err := s.store.UpdateStore(r.Context(), scope, store); err != nil {
		s.respondError(w, storageErrorStatus(err), err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, store)
}

// HandleDeleteStore deletes one storefront
func (s *RESTServer) HandleDeleteStore(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid store id")
		return
	}

	if err := s.store.DeleteStore(r.Context(), scope, id); err != nil {
		s.respondError(w, storageErrorStatus(err), err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ========== Public storefront handlers ==========

// publicStore resolves a slug to a public store, or writes the error.
func (s *RESTServer) publicStore(w http.ResponseWriter, r *http.Request) (*models.Store, bool) {
	slug := chi.URLParam(r, "slug")
	store, err := s.store.GetStoreBySlug(r.Context(), slug)
	if err != nil || !store.IsPublic {
		s.respondError(w, http.StatusNotFound, "store not found")
		return nil, false
	}
	return store, true
}

// storefrontScope builds the owning tenant's scope for public reads. The
// store's branch pin carries over so a branch store only exposes its own
// stock.
func storefrontScope(store *models.Store) tenant.Scope {
	return tenant.Scope{
		TenantID: store.UserID,
		BranchID: store.BranchID,
		Role:     models.RoleSubscriber,
	}
}

// HandleStorefrontGetStore is the public storefront descriptor
func (s *RESTServer) HandleStorefrontGetStore(w http.ResponseWriter, r *http.Request) {
	store, ok := s.publicStore(w, r)
	if !ok {
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"name":        store.Name,
		"slug":        store.Slug,
		"description": store.Description,
	})
}

// HandleStorefrontListProducts lists a public store's active products
func (s *RESTServer) HandleStorefrontListProducts(w http.ResponseWriter, r *http.Request) {
	store, ok := s.publicStore(w, r)
	if !ok {
		return
	}

	limit, offset := paginate(r)
	products, total, err := s.store.ListProducts(r.Context(), storefrontScope(store), limit, offset)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Only active products are public, and cost stays private.
	public := make([]map[string]interface{}, 0, len(products))
	for _, p := range products {
		if !p.IsActive {
			continue
		}
		public = append(public, map[string]interface{}{
			"id":          p.ID,
			"name":        p.Name,
			"sku":         p.SKU,
			"description": p.Description,
			"price":       p.Price,
			"inStock":     p.StockQty > 0,
		})
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"products": public,
		"total":    total,
	})
}

// HandleStorefrontCreateOrder places a public order against a store. The
// order is a revenue invoice created through the same transactional checkout
// as the POS, so stock and limits hold for anonymous buyers too.
func (s *RESTServer) HandleStorefrontCreateOrder(w http.ResponseWriter, r *http.Request) {
	store, ok := s.publicStore(w, r)
	if !ok {
		return
	}
	scope := storefrontScope(store)

	var req struct {
		CustomerName  string `json:"customerName" validate:"required,min=2,max=150"`
		CustomerEmail string `json:"customerEmail" validate:"email"`
		CustomerPhone string `json:"customerPhone" validate:"max=30"`
		Items         []struct {
			ProductID uuid.UUID `json:"productId"`
			Quantity  int       `json:"quantity"`
		} `json:"items" validate:"required,min=1"`
		Notes string `json:"notes" validate:"max=1000"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	// An expired tenant's storefront stops taking orders once the invoice
	// limit is hit, same as any other write.
	tenantUser, err := s.store.GetTenant(r.Context(), scope.TenantID)
	if err != nil {
		s.respondError(w, http.StatusNotFound, "store not found")
		return
	}
	result := s.checker.CheckLimit(r.Context(), scope, tenantUser.Subscription, models.ResourceInvoices)
	if !result.Allowed {
		s.respondError(w, http.StatusServiceUnavailable, "store is not accepting orders right now")
		return
	}

	storeID := store.ID
	invoice := &models.Invoice{
		Number:   nextInvoiceNumber(),
		Type:     models.InvoiceRevenue,
		StoreID:  &storeID,
		IssuedAt: time.Now().UTC(),
		Notes:    orderNotes(req.CustomerName, req.CustomerEmail, req.CustomerPhone, req.Notes),
	}
	invoice.UserID = scope.TenantID
	invoice.BranchID = store.BranchID

	lines := make([]storage.CheckoutLine, 0, len(req.Items))
	for _, item := range req.Items {
		if item.Quantity < 1 {
			s.respondError(w, http.StatusBadRequest, "quantity must be at least 1")
			return
		}
		product, err := s.store.GetProduct(r.Context(), scope, item.ProductID)
		if err != nil || !product.IsActive {
			s.respondError(w, http.StatusNotFound, "product not found")
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
		s.respondError(w, storageErrorStatus(err), "failed to place order")
		return
	}

	s.publisher.Publish(notify.Event{
		TenantID: scope.TenantID,
		Type:     notify.SubjectInvoiceCreated,
		Details: map[string]interface{}{
			"invoiceId": invoice.ID.String(),
			"number":    invoice.Number,
			"store":     store.Slug,
			"total":     invoice.GrandTotal,
		},
	})

	s.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"orderNumber": invoice.Number,
		"total":       invoice.GrandTotal,
		"status":      invoice.Status,
	})
}

// orderNotes folds the buyer's contact details into the invoice notes.
func orderNotes(name, email, phone, notes string) string {
	parts := []string{"Online order from " + name}
	if email != "" {
		parts = append(parts, email)
	}
	if phone != "" {
		parts = append(parts, phone)
	}
	if notes != "" {
		parts = append(parts, notes)
	}
	return strings.Join(parts, " | ")
}

// normalizeSlug lowercases and strips a requested slug down to URL-safe
// characters.
func normalizeSlug(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(raw)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		case r == ' ' || r == '_':
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}
