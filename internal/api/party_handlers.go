package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/biztrack/biztrack-server/internal/models"
)

// partyRequest is the shared payload for customers and suppliers.
type partyRequest struct {
	Name     string     `json:"name" validate:"required,min=2,max=150"`
	Email    string     `json:"email" validate:"email"`
	Phone    string     `json:"phone" validate:"max=30"`
	Address  string     `json:"address" validate:"max=300"`
	Notes    string     `json:"notes" validate:"max=1000"`
	BranchID *uuid.UUID `json:"branchId"`
}

// decodeParty decodes and validates a party payload, resolving the branch
// pin against the scope.
func (s *RESTServer) decodeParty(w http.ResponseWriter, r *http.Request) (*partyRequest, bool) {
	var req partyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return &req, true
}

// ========== Customer handlers ==========

// HandleListCustomers lists customers visible to the scope
func (s *RESTServer) HandleListCustomers(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	limit, offset := paginate(r)
	customers, total, err := s.store.ListCustomers(r.Context(), scope, limit, offset)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"customers": customers,
		"total":     total,
	})
}

// HandleCreateCustomer creates a customer; counts against the customer limit.
func (s *RESTServer) HandleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	req, ok := s.decodeParty(w, r)
	if !ok {
		return
	}

	if !s.guardCreate(w, r, scope, models.ResourceCustomers) {
		return
	}

	customer := &models.Customer{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
		Notes:   req.Notes,
	}
	customer.UserID = scope.TenantID
	customer.BranchID = branchPin(scope, req.BranchID)

	if err := s.store.CreateCustomer(r.Context(), customer); err != nil {
		s.respondError(w, storageErrorStatus(err), err.Error())
		return
	}

	s.respondJSON(w, http.StatusCreated, customer)
}

// HandleGetCustomer gets one customer
func (s *RESTServer) HandleGetCustomer(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid customer id")
		return
	}

	customer, err := s.store.GetCustomer(r.Context(), scope, id)
	if err != nil {
		s.respondError(w, storageErrorStatus(err), "customer not found")
		return
	}

	s.respondJSON(w, http.StatusOK, customer)
}

// HandleUpdateCustomer updates one customer
func (s *RESTServer) HandleUpdateCustomer(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid customer id")
		return
	}

	req, ok := s.decodeParty(w, r)
	if !ok {
		return
	}

	customer, err := s.store.GetCustomer(r.Context(), scope, id)
	if err != nil {
		s.respondError(w, storageErrorStatus(err), "customer not found")
		return
	}

	customer.Name = req.Name
	customer.Email = req.Email
	customer.Phone = req.Phone
	customer.Address = req.Address
	customer.Notes = req.Notes

	if err := s.store.UpdateCustomer(r.Context(), scope, customer); err != nil {
		s.respondError(w, storageErrorStatus(err), err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, customer)
}

// HandleDeleteCustomer deletes one customer
func (s *RESTServer) HandleDeleteCustomer(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid customer id")
		return
	}

	if err := s.store.DeleteCustomer(r.Context(), scope, id); err != nil {
		s.respondError(w, storageErrorStatus(err), err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ========== Supplier handlers ==========

// HandleListSuppliers lists suppliers visible to the scope
func (s *RESTServer) HandleListSuppliers(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	limit, offset := paginate(r)
	suppliers, total, err := s.store.ListSuppliers(r.Context(), scope, limit, offset)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"suppliers": suppliers,
		"total":     total,
	})
}

// HandleCreateSupplier creates a supplier; counts against the supplier limit.
func (s *RESTServer) HandleCreateSupplier(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	req, ok := s.decodeParty(w, r)
	if !ok {
		return
	}

	if !s.guardCreate(w, r, scope, models.ResourceSuppliers) {
		return
	}

	supplier := &models.Supplier{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
		Notes:   req.Notes,
	}
	supplier.UserID = scope.TenantID
	supplier.BranchID = branchPin(scope, req.BranchID)

	if err := s.store.CreateSupplier(r.Context(), supplier); err != nil {
		s.respondError(w, storageErrorStatus(err), err.Error())
		return
	}

	s.respondJSON(w, http.StatusCreated, supplier)
}

// HandleGetSupplier gets one supplier
func (s *RESTServer) HandleGetSupplier(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid supplier id")
		return
	}

	supplier, err := s.store.GetSupplier(r.Context(), scope, id)
	if err != nil {
		s.respondError(w, storageErrorStatus(err), "supplier not found")
		return
	}

	s.respondJSON(w, http.StatusOK, supplier)
}

// HandleUpdateSupplier updates one supplier
func (s *RESTServer) HandleUpdateSupplier(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid supplier id")
		return
	}

	req, ok := s.decodeParty(w, r)
	if !ok {
		return
	}

	supplier, err := s.store.GetSupplier(r.Context(), scope, id)
	if err != nil {
		s.respondError(w, storageErrorStatus(err), "supplier not found")
		return
	}

	supplier.Name = req.Name
	supplier.Email = req.Email
	supplier.Phone = req.Phone
	supplier.Address = req.Address
	supplier.Notes = req.Notes

	if err := s.store.UpdateSupplier(r.Context(), scope, supplier); err != nil {
		s.respondError(w, storageErrorStatus(err), err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, supplier)
}

// HandleDeleteSupplier deletes one supplier
func (s *RESTServer) HandleDeleteSupplier(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid supplier id")
		return
	}

	if err := s.store.DeleteSupplier(r.Context(), scope, id); err != nil {
		s.respondError(w, storageErrorStatus(err), err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
