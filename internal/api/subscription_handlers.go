package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/biztrack/biztrack-server/internal/models"
	"github.com/biztrack/biztrack-server/internal/notify"
	"github.com/biztrack/biztrack-server/internal/subscription"
)

// ========== Subscription handlers ==========

// HandleGetSubscription returns the tenant's subscription with its evaluated
// state and a usage snapshot for every limited resource.
func (s *RESTServer) HandleGetSubscription(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	tenantUser, err := s.store.GetTenant(r.Context(), scope.TenantID)
	if err != nil {
		s.respondError(w, storageErrorStatus(err), "failed to load subscription")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"subscription": tenantUser.Subscription,
		"state":        subscription.Evaluate(tenantUser.Subscription, time.Now().UTC()),
		"usage":        s.checker.Snapshot(r.Context(), scope, tenantUser.Subscription),
	})
}

// HandleCheckLimit evaluates one resource limit without writing anything.
// The resource comes from the query string on GET or the body on POST.
func (s *RESTServer) HandleCheckLimit(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	resource := models.ResourceType(r.URL.Query().Get("resource"))
	if r.Method == http.MethodPost {
		var req struct {
			Resource models.ResourceType `json:"resource" validate:"required"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		resource = req.Resource
	}

	if !resource.Valid() {
		s.respondError(w, http.StatusBadRequest, "unknown resource type")
		return
	}

	tenantUser, err := s.store.GetTenant(r.Context(), scope.TenantID)
	if err != nil {
		s.respondError(w, storageErrorStatus(err), "failed to load subscription")
		return
	}

	s.respondJSON(w, http.StatusOK, s.checker.CheckLimit(r.Context(), scope, tenantUser.Subscription, resource))
}

// HandleRenewalRequest records a renewal request and notifies the platform
// operator. It never changes the subscription itself.
func (s *RESTServer) HandleRenewalRequest(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req struct {
		Plan    string `json:"plan" validate:"oneof=trial basic premium"`
		Message string `json:"message" validate:"max=500"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	tenantUser, err := s.store.GetTenant(r.Context(), scope.TenantID)
	if err != nil {
		s.respondError(w, storageErrorStatus(err), "failed to load tenant")
		return
	}

	s.recordEvent(r, scope.TenantID, nil, models.EventRenewalRequested, models.EventLevelInfo, "renewal requested", models.Variables{
		"plan":    req.Plan,
		"message": req.Message,
	})

	s.publisher.Publish(notify.Event{
		TenantID: scope.TenantID,
		Type:     notify.SubjectRenewalRequested,
		Email:    tenantUser.Email,
		Name:     tenantUser.FirstName,
		Details: map[string]interface{}{
			"plan":    req.Plan,
			"message": req.Message,
		},
	})

	s.respondJSON(w, http.StatusAccepted, map[string]string{
		"status": "renewal request recorded",
	})
}

// ========== Platform admin handlers ==========

// HandleAdminUpdatePlan renews or changes a tenant's subscription plan.
func (s *RESTServer) HandleAdminUpdatePlan(w http.ResponseWriter, r *http.Request) {
	tenantID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid tenant id")
		return
	}

	var req struct {
		Plan    models.Plan `json:"plan" validate:"required,oneof=trial basic premium"`
		EndDate time.Time   `json:"endDate" validate:"required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	now := time.Now().UTC()
	if !req.EndDate.After(now) {
		s.respondError(w, http.StatusBadRequest, "end date must be in the future")
		return
	}

	tenantUser, err := s.store.GetTenant(r.Context(), tenantID)
	if err != nil {
		s.respondError(w, storageErrorStatus(err), "tenant not found")
		return
	}

	planChanged := tenantUser.Subscription == nil || tenantUser.Subscription.Plan != req.Plan
	sub := subscription.Renew(tenantUser.Subscription, &s.config.Subscription, req.Plan, req.EndDate, now)

	if err := s.store.UpdateSubscription(r.Context(), tenantID, sub); err != nil {
		s.respondError(w, storageErrorStatus(err), err.Error())
		return
	}

	eventType := models.EventSubscriptionRenewed
	if planChanged {
		eventType = models.EventPlanChanged
	}
	s.recordEvent(r, tenantID, nil, eventType, models.EventLevelInfo, "subscription updated", models.Variables{
		"plan":    string(req.Plan),
		"endDate": req.EndDate.Format(time.RFC3339),
	})

	s.publisher.Publish(notify.Event{
		TenantID: tenantID,
		Type:     notify.SubjectSubscriptionRenewed,
		Email:    tenantUser.Email,
		Name:     tenantUser.FirstName,
		Details:  map[string]interface{}{"plan": string(req.Plan)},
	})

	s.respondJSON(w, http.StatusOK, sub)
}

// HandleAdminUpdateLimits overrides individual resource limits for one
// tenant. Only the provided resources change.
func (s *RESTServer) HandleAdminUpdateLimits(w http.ResponseWriter, r *http.Request) {
	tenantID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid tenant id")
		return
	}

	var req struct {
		Limits map[models.ResourceType]int `json:"limits" validate:"required,min=1"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	tenantUser, err := s.store.GetTenant(r.Context(), tenantID)
	if err != nil {
		s.respondError(w, storageErrorStatus(err), "tenant not found")
		return
	}
	if tenantUser.Subscription == nil {
		s.respondError(w, http.StatusConflict, "tenant has no subscription")
		return
	}

	sub := *tenantUser.Subscription
	changed := models.Variables{}
	for resource, limit := range req.Limits {
		if !resource.Valid() {
			s.respondError(w, http.StatusBadRequest, "unknown resource type "+string(resource))
			return
		}
		sub.Limits.Set(resource, limit)
		changed[string(resource)] = limit
	}

	if err := s.store.UpdateSubscription(r.Context(), tenantID, &sub); err != nil {
		s.respondError(w, storageErrorStatus(err), err.Error())
		return
	}

	s.recordEvent(r, tenantID, nil, models.EventLimitsUpdated, models.EventLevelInfo, "limits updated", changed)

	s.respondJSON(w, http.StatusOK, sub.Limits)
}

// HandleAdminSetTenantActive suspends or reactivates a subscriber account.
func (s *RESTServer) HandleAdminSetTenantActive(w http.ResponseWriter, r *http.Request) {
	tenantID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid tenant id")
		return
	}

	var req struct {
		Active bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tenantUser, err := s.store.GetTenant(r.Context(), tenantID)
	if err != nil {
		s.respondError(w, storageErrorStatus(err), "tenant not found")
		return
	}

	tenantUser.IsActive = req.Active
	if err := s.store.UpdateUser(r.Context(), tenantUser); err != nil {
		s.respondError(w, storageErrorStatus(err), err.Error())
		return
	}

	eventType := models.EventAccountSuspended
	if req.Active {
		eventType = models.EventAccountActivated
	}
	s.recordEvent(r, tenantID, nil, eventType, models.EventLevelWarning, "account status changed", models.Variables{
		"active": req.Active,
	})

	s.respondJSON(w, http.StatusOK, map[string]bool{"active": req.Active})
}
