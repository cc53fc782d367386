package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/biztrack/biztrack-server/internal/models"
)

// ========== Category handlers ==========

// HandleListCategories lists the tenant's product categories
func (s *RESTServer) HandleListCategories(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	limit, offset := paginate(r)
	categories, total, err := s.store.ListCategories(r.Context(), scope, limit, offset)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"categories": categories,
		"total":      total,
	})
}

// HandleCreateCategory creates a category; counts against the category limit.
func (s *RESTServer) HandleCreateCategory(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req struct {
		Name        string `json:"name" validate:"required,min=2,max=100"`
		Description string `json:"description" validate:"max=500"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !s.guardCreate(w, r, scope, models.ResourceCategories) {
		return
	}

	category := &models.Category{
		Name:        req.Name,
		Description: req.Description,
	}
	category.UserID = scope.TenantID

	if err := s.store.CreateCategory(r.Context(), category); err != nil {
		s.respondError(w, storageErrorStatus(err), err.Error())
		return
	}

	s.respondJSON(w, http.StatusCreated, category)
}

// HandleUpdateCategory updates one category
func (s *RESTServer) HandleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid category id")
		return
	}

	var req struct {
		Name        string `json:"name" validate:"required,min=2,max=100"`
		Description string `json:"description" validate:"max=500"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	category, err := s.store.GetCategory(r.Context(), scope, id)
	if err != nil {
		s.respondError(w, storageErrorStatus(err), "category not found")
		return
	}

	category.Name = req.Name
	category.Description = req.Description

	if err := s.store.UpdateCategory(r.Context(), scope, category); err != nil {
		s.respondError(w, storageErrorStatus(err), err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, category)
}

// HandleDeleteCategory deletes one category
func (s *RESTServer) HandleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid category id")
		return
	}

	if err := s.store.DeleteCategory(r.Context(), scope, id); err != nil {
		s.respondError(w, storageErrorStatus(err), err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ========== Warehouse handlers ==========

// HandleListWarehouses lists warehouses visible to the scope
func (s *RESTServer) HandleListWarehouses(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	limit, offset := paginate(r)
	warehouses, total, err := s.store.ListWarehouses(r.Context(), scope, limit, offset)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"warehouses": warehouses,
		"total":      total,
	})
}

// HandleCreateWarehouse creates a warehouse; counts against the warehouse
// limit.
func (s *RESTServer) HandleCreateWarehouse(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req struct {
		Name     string     `json:"name" validate:"required,min=2,max=100"`
		Address  string     `json:"address" validate:"max=300"`
		BranchID *uuid.UUID `json:"branchId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !s.guardCreate(w, r, scope, models.ResourceWarehouses) {
		return
	}

	warehouse := &models.Warehouse{
		Name:    req.Name,
		Address: req.Address,
	}
	warehouse.UserID = scope.TenantID
	warehouse.BranchID = branchPin(scope, req.BranchID)

	if err := s.store.CreateWarehouse(r.Context(), warehouse); err != nil {
		s.respondError(w, storageErrorStatus(err), err.Error())
		return
	}

	s.respondJSON(w, http.StatusCreated, warehouse)
}

// HandleUpdateWarehouse updates one warehouse
func (s *RESTServer) HandleUpdateWarehouse(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid warehouse id")
		return
	}

	var req struct {
		Name    string `json:"name" validate:"required,min=2,max=100"`
		Address string `json:"address" validate:"max=300"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	warehouse, err := s.store.GetWarehouse(r.Context(), scope, id)
	if err != nil {
		s.respondError(w, storageErrorStatus(err), "warehouse not found")
		return
	}

	warehouse.Name = req.Name
	warehouse.Address = req.Address

	if err := s.store.UpdateWarehouse(r.Context(), scope, warehouse); err != nil {
		s.respondError(w, storageErrorStatus(err), err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, warehouse)
}

// HandleDeleteWarehouse deletes one warehouse
func (s *RESTServer) HandleDeleteWarehouse(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid warehouse id")
		return
	}

	if err := s.store.DeleteWarehouse(r.Context(), scope, id); err != nil {
		s.respondError(w, storageErrorStatus(err), err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ========== Product handlers ==========

// productRequest is the create/update payload for products.
type productRequest struct {
	Name        string     `json:"name" validate:"required,min=2,max=150"`
	SKU         string     `json:"sku" validate:"required,min=1,max=64"`
	Description string     `json:"description" validate:"max=1000"`
	Price       float64    `json:"price" validate:"min=0"`
	Cost        float64    `json:"cost" validate:"min=0"`
	StockQty    int        `json:"stockQty" validate:"min=0"`
	CategoryID  *uuid.UUID `json:"categoryId"`
	WarehouseID *uuid.UUID `json:"warehouseId"`
	BranchID    *uuid.UUID `json:"branchId"`
}

// HandleListProducts lists products visible to the scope
func (s *RESTServer) HandleListProducts(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	limit, offset := paginate(r)
	products, total, err := s.store.ListProducts(r.Context(), scope, limit, offset)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"products": products,
		"total":    total,
	})
}

// HandleCreateProduct creates a product; counts against the product limit.
func (s *RESTServer) HandleCreateProduct(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !s.guardCreate(w, r, scope, models.ResourceProducts) {
		return
	}

	if req.CategoryID != nil {
		if _, err := s.store.GetCategory(r.Context(), scope, *req.CategoryID); err != nil {
			s.respondError(w, storageErrorStatus(err), "category not found")
			return
		}
	}
	if req.WarehouseID != nil {
		if _, err := s.store.GetWarehouse(r.Context(), scope, *req.WarehouseID); err != nil {
			s.respondError(w, storageErrorStatus(err), "warehouse not found")
			return
		}
	}

	product := &models.Product{
		CategoryID:  req.CategoryID,
		WarehouseID: req.WarehouseID,
		Name:        req.Name,
		SKU:         req.SKU,
		Description: req.Description,
		Price:       req.Price,
		Cost:        req.Cost,
		StockQty:    req.StockQty,
		IsActive:    true,
	}
	product.UserID = scope.TenantID
	product.BranchID = branchPin(scope, req.BranchID)

	if err := s.store.CreateProduct(r.Context(), product); err != nil {
		s.respondError(w, storageErrorStatus(err), err.Error())
		return
	}

	s.respondJSON(w, http.StatusCreated, product)
}

// HandleGetProduct gets one product
func (s *RESTServer) HandleGetProduct(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	product, err := s.store.GetProduct(r.Context(), scope, id)
	if err != nil {
		s.respondError(w, storageErrorStatus(err), "product not found")
		return
	}

	s.respondJSON(w, http.StatusOK, product)
}

// HandleUpdateProduct updates one product
func (s *RESTServer) HandleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	product, err := s.store.GetProduct(r.Context(), scope, id)
	if err != nil {
		s.respondError(w, storageErrorStatus(err), "product not found")
		return
	}

	product.Name = req.Name
	product.SKU = req.SKU
	product.Description = req.Description
	product.Price = req.Price
	product.Cost = req.Cost
	product.StockQty = req.StockQty
	product.CategoryID = req.CategoryID
	product.WarehouseID = req.WarehouseID

	if err := s.store.UpdateProduct(r.Context(), scope, product); err != nil {
		s.respondError(w, storageErrorStatus(err), err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, product)
}

// HandleDeleteProduct deletes one product
func (s *RESTServer) HandleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	if err := s.store.DeleteProduct(r.Context(), scope, id); err != nil {
		s.respondError(w, storageErrorStatus(err), err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
