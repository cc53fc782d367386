package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/biztrack/biztrack-server/internal/models"
	"github.com/biztrack/biztrack-server/internal/notify"
	"github.com/biztrack/biztrack-server/internal/storage"
	"github.com/biztrack/biztrack-server/internal/subscription"
	"github.com/biztrack/biztrack-server/internal/tenant"
	"github.com/biztrack/biztrack-server/pkg/crypto"
)

// ========== Basic handlers ==========

// HandleHealth is the health check endpoint
func (s *RESTServer) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"name":   s.config.Server.Name,
	})
}

// HandleRoot describes the API
func (s *RESTServer) HandleRoot(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"name":    s.config.Server.Name,
		"version": s.config.Server.Version,
	})
}

// ========== Auth handlers ==========

// HandleRegister registers a new subscriber account and stamps it with the
// trial subscription.
func (s *RESTServer) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email     string `json:"email" validate:"required,email"`
		Password  string `json:"password" validate:"required,min=8"`
		FirstName string `json:"firstName" validate:"required,max=100"`
		LastName  string `json:"lastName" validate:"max=100"`
		Phone     string `json:"phone" validate:"max=30"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := crypto.HashPassword(req.Password)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	now := time.Now().UTC()
	user := &models.User{
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        req.Phone,
		PasswordHash: hash,
		Role:         models.RoleSubscriber,
		IsActive:     true,
		Subscription: subscription.NewTrial(&s.config.Subscription, now),
	}

	if err := s.store.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			s.respondError(w, http.StatusConflict, "email already registered")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Every tenant starts with one branch so branch-scoped resources have a
	// home before the owner configures anything.
	branch := &models.Branch{Name: "Main Branch", IsActive: true}
	branch.UserID = user.ID
	if err := s.store.CreateBranch(r.Context(), branch); err != nil {
		log.Warn().Err(err).Str("tenant_id", user.ID.String()).Msg("seed default branch")
	}

	s.recordEvent(r, user.ID, nil, models.EventAccountCreated, models.EventLevelInfo, "subscriber registered", models.Variables{
		"email": user.Email,
		"plan":  string(user.Subscription.Plan),
	})

	s.publisher.Publish(notify.Event{
		TenantID: user.ID,
		Type:     notify.SubjectAccountCreated,
		Email:    user.Email,
		Name:     user.FirstName,
	})

	s.respondJSON(w, http.StatusCreated, user)
}

// HandleLogin handles user login
func (s *RESTServer) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// Get user
	user, err := s.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		s.respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	// Verify password
	if !s.auth.VerifyPassword(req.Password, user.PasswordHash) {
		s.respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	// Check user status
	if !user.IsActive {
		s.respondError(w, http.StatusForbidden, "account is disabled")
		return
	}

	// Generate tokens
	accessToken, refreshToken, err := s.auth.GenerateTokenPair(user)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to generate tokens")
		return
	}

	now := time.Now().UTC()
	user.LastLoginAt = &now
	if err := s.store.UpdateUser(r.Context(), user); err != nil {
		log.Warn().Err(err).Str("user_id", user.ID.String()).Msg("record last login")
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"expires_in":    int(s.config.JWT.AccessTokenTTL.Seconds()),
		"token_type":    "Bearer",
		"user":          user,
	})
}

// HandleRefresh handles token refresh
func (s *RESTServer) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token" validate:"required"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	userID, err := s.auth.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		s.respondError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	// Re-fetch so a suspended account cannot refresh its way back in.
	user, err := s.store.GetUser(r.Context(), userID)
	if err != nil {
		s.respondError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}
	if !user.IsActive {
		s.respondError(w, http.StatusForbidden, "account is disabled")
		return
	}

	accessToken, refreshToken, err := s.auth.GenerateTokenPair(user)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to generate tokens")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"expires_in":    int(s.config.JWT.AccessTokenTTL.Seconds()),
		"token_type":    "Bearer",
	})
}

// HandleGetCurrentUser returns the authenticated account with its evaluated
// subscription state.
func (s *RESTServer) HandleGetCurrentUser(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	if claims == nil {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	user, err := s.store.GetUser(r.Context(), claims.UserID)
	if err != nil {
		s.respondError(w, http.StatusNotFound, "user not found")
		return
	}

	resp := map[string]interface{}{"user": user}

	scope, _ := scopeFrom(r)
	tenantUser := user
	if !user.IsTenant() {
		tenantUser, err = s.store.GetTenant(r.Context(), scope.TenantID)
		if err != nil {
			s.respondError(w, http.StatusInternalServerError, "failed to load tenant")
			return
		}
	}
	resp["subscriptionState"] = subscription.Evaluate(tenantUser.Subscription, time.Now().UTC())

	s.respondJSON(w, http.StatusOK, resp)
}

// ========== Write guard ==========

// guardCreate enforces the subscription limit for one resource type before a
// create. It writes the error response itself and returns false on denial.
func (s *RESTServer) guardCreate(w http.ResponseWriter, r *http.Request, scope tenant.Scope, resource models.ResourceType) bool {
	tenantUser, err := s.store.GetTenant(r.Context(), scope.TenantID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusForbidden, "tenant account not found")
			return false
		}
		s.respondError(w, http.StatusInternalServerError, "failed to load subscription")
		return false
	}

	result := s.checker.CheckLimit(r.Context(), scope, tenantUser.Subscription, resource)
	if !result.Allowed {
		s.recordEvent(r, scope.TenantID, scope.BranchID, models.EventLimitDenied, models.EventLevelWarning, result.Message, models.Variables{
			"resource": string(resource),
			"current":  result.Current,
			"limit":    result.Limit,
		})
		s.respondJSON(w, http.StatusForbidden, result)
		return false
	}

	if result.Warning {
		w.Header().Set("X-Usage-Warning", result.Message)
	}
	return true
}

// recordEvent appends to the tenant audit log. Failures are logged, never
// surfaced.
func (s *RESTServer) recordEvent(r *http.Request, tenantID uuid.UUID, branchID *uuid.UUID, eventType models.EventType, level models.EventLevel, description string, details models.Variables) {
	event := &models.EventLog{
		Type:        eventType,
		Level:       level,
		Description: description,
		Details:     details,
	}
	event.UserID = tenantID
	event.BranchID = branchID

	if err := s.store.CreateEventLog(r.Context(), event); err != nil {
		log.Warn().Err(err).Str("tenant_id", tenantID.String()).Str("type", string(eventType)).Msg("record event")
	}
}

// ========== Event log handlers ==========

// HandleListEvents lists the tenant audit log
func (s *RESTServer) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	limit, offset := paginate(r)
	events, total, err := s.store.ListEventLogs(r.Context(), scope, limit, offset)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"events": events,
		"total":  total,
	})
}

// ========== Helper functions ==========

// branchPin picks the branch for a new resource. A branch-pinned scope wins
// over whatever the payload asks for; sub-accounts cannot write outside
// their own branch.
func branchPin(scope tenant.Scope, requested *uuid.UUID) *uuid.UUID {
	if scope.BranchID != nil {
		return scope.BranchID
	}
	return requested
}

// paginate reads limit/offset query parameters with sane bounds.
func paginate(r *http.Request) (int, int) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// respondJSON responds with JSON
func (s *RESTServer) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(response)
}

// respondError responds with error
func (s *RESTServer) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// storageErrorStatus maps storage sentinels to HTTP statuses.
func storageErrorStatus(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrDuplicateKey):
		return http.StatusConflict
	case errors.Is(err, storage.ErrInvalidData):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
