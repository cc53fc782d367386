package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/biztrack/biztrack-server/internal/models"
	"github.com/biztrack/biztrack-server/internal/notify"
	"github.com/biztrack/biztrack-server/pkg/crypto"
)

// ========== Sub-account handlers ==========

// HandleListSubAccounts lists the tenant's sub-accounts
func (s *RESTServer) HandleListSubAccounts(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	limit, offset := paginate(r)
	users, total, err := s.store.ListSubAccounts(r.Context(), scope, limit, offset)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"users": users,
		"total": total,
	})
}

// HandleCreateSubAccount creates a sub-account under the tenant. The new
// account counts against the user limit.
func (s *RESTServer) HandleCreateSubAccount(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req struct {
		Email     string      `json:"email" validate:"required,email"`
		Password  string      `json:"password"`
		FirstName string      `json:"firstName" validate:"required,max=100"`
		LastName  string      `json:"lastName" validate:"max=100"`
		Phone     string      `json:"phone" validate:"max=30"`
		Role      models.Role `json:"role" validate:"required,oneof=owner manager employee cashier"`
		BranchID  *uuid.UUID  `json:"branchId"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Generate an initial password when none is supplied; it reaches the
	// new user through the credential email only.
	if req.Password == "" {
		generated, err := crypto.GenerateRandomString(12)
		if err != nil {
			s.respondError(w, http.StatusInternalServerError, "failed to generate password")
			return
		}
		req.Password = generated
	} else if len(req.Password) < 8 {
		s.respondError(w, http.StatusBadRequest, "password: minimum length is 8")
		return
	}

	if !s.guardCreate(w, r, scope, models.ResourceUsers) {
		return
	}

	// The branch pin must belong to this tenant.
	if req.BranchID != nil {
		if _, err := s.store.GetBranch(r.Context(), scope, *req.BranchID); err != nil {
			s.respondError(w, storageErrorStatus(err), "branch not found")
			return
		}
	}

	hash, err := crypto.HashPassword(req.Password)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	tenantID := scope.TenantID
	user := &models.User{
		Email:         req.Email,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Phone:         req.Phone,
		PasswordHash:  hash,
		Role:          req.Role,
		IsActive:      true,
		MainAccountID: &tenantID,
		BranchID:      req.BranchID,
	}

	if err := s.store.CreateUser(r.Context(), user); err != nil {
		s.respondError(w, storageErrorStatus(err), err.Error())
		return
	}

	s.recordEvent(r, scope.TenantID, req.BranchID, models.EventAccountCreated, models.EventLevelInfo, "sub-account created", models.Variables{
		"email": user.Email,
		"role":  string(user.Role),
	})

	s.publisher.Publish(notify.Event{
		TenantID: scope.TenantID,
		Type:     notify.SubjectAccountCreated,
		Email:    user.Email,
		Name:     user.FirstName,
		Details:  map[string]interface{}{"password": req.Password},
	})

	s.respondJSON(w, http.StatusCreated, user)
}

// HandleSetSubAccountActive suspends or reactivates one sub-account
func (s *RESTServer) HandleSetSubAccountActive(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req struct {
		Active bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.store.SetSubAccountActive(r.Context(), scope, id, req.Active); err != nil {
		s.respondError(w, storageErrorStatus(err), err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]bool{"active": req.Active})
}

// HandleDeleteSubAccount deletes one sub-account
func (s *RESTServer) HandleDeleteSubAccount(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	if err := s.store.DeleteSubAccount(r.Context(), scope, id); err != nil {
		s.respondError(w, storageErrorStatus(err), err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ========== Branch handlers ==========

// HandleListBranches lists the tenant's branches
func (s *RESTServer) HandleListBranches(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	limit, offset := paginate(r)
	branches, total, err := s.store.ListBranches(r.Context(), scope, limit, offset)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"branches": branches,
		"total":    total,
	})
}

// HandleCreateBranch creates a branch; branches count against the branch
// limit tenant-wide.
func (s *RESTServer) HandleCreateBranch(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req struct {
		Name    string `json:"name" validate:"required,min=2,max=100"`
		Address string `json:"address" validate:"max=300"`
		Phone   string `json:"phone" validate:"max=30"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !s.guardCreate(w, r, scope, models.ResourceBranches) {
		return
	}

	branch := &models.Branch{
		UserID:   scope.TenantID,
		Name:     req.Name,
		Address:  req.Address,
		Phone:    req.Phone,
		IsActive: true,
	}

	if err := s.store.CreateBranch(r.Context(), branch); err != nil {
		s.respondError(w, storageErrorStatus(err), err.Error())
		return
	}

	s.respondJSON(w, http.StatusCreated, branch)
}

// HandleGetBranch gets one branch
func (s *RESTServer) HandleGetBranch(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid branch id")
		return
	}

	branch, err := s.store.GetBranch(r.Context(), scope, id)
	if err != nil {
		s.respondError(w, storageErrorStatus(err), "branch not found")
		return
	}

	s.respondJSON(w, http.StatusOK, branch)
}

// HandleUpdateBranch updates one branch
func (s *RESTServer) HandleUpdateBranch(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid branch id")
		return
	}

	var req struct {
		Name     string `json:"name" validate:"required,min=2,max=100"`
		Address  string `json:"address" validate:"max=300"`
		Phone    string `json:"phone" validate:"max=30"`
		IsActive *bool  `json:"isActive"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	branch, err := s.store.GetBranch(r.Context(), scope, id)
	if err != nil {
		s.respondError(w, storageErrorStatus(err), "branch not found")
		return
	}

	branch.Name = req.Name
	branch.Address = req.Address
	branch.Phone = req.Phone
	if req.IsActive != nil {
		branch.IsActive = *req.IsActive
	}

	if err := s.store.UpdateBranch(r.Context(), scope, branch); err != nil {
		s.respondError(w, storageErrorStatus(err), err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, branch)
}

// HandleDeleteBranch deletes one branch
func (s *RESTServer) HandleDeleteBranch(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid branch id")
		return
	}

	if err := s.store.DeleteBranch(r.Context(), scope, id); err != nil {
		s.respondError(w, storageErrorStatus(err), err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
