// Package subscription implements the billing state evaluator and the
// per-resource limit checker that gate tenant writes.
package subscription

import (
	"time"

	"github.com/biztrack/biztrack-server/internal/config"
	"github.com/biztrack/biztrack-server/internal/models"
)

// State is the evaluated billing state of a tenant.
type State struct {
	IsExpired     bool `json:"isExpired"`
	Restricted    bool `json:"restricted"`
	DaysRemaining int  `json:"daysRemaining"`
}

// Evaluate computes the billing state from a tenant's subscription record.
// A missing record is treated as expired and restricted; the tenant is never
// granted access on absent data.
func Evaluate(sub *models.Subscription, now time.Time) State {
	if sub == nil {
		return State{IsExpired: true, Restricted: true}
	}

	expired := now.After(sub.EndDate) || !sub.IsActive

	remaining := 0
	if !expired {
		remaining = int(sub.EndDate.Sub(now).Hours() / 24)
	}

	return State{
		IsExpired:     expired,
		Restricted:    expired,
		DaysRemaining: remaining,
	}
}

// NewTrial builds the subscription stamped onto a tenant at registration.
// Derived fields are computed here, at the call site, not by storage hooks.
func NewTrial(cfg *config.SubscriptionConfig, now time.Time) *models.Subscription {
	return &models.Subscription{
		Plan:      models.PlanTrial,
		StartDate: now,
		EndDate:   now.AddDate(0, 0, cfg.TrialDays),
		IsActive:  true,
		IsExpired: false,
		Limits:    cfg.TrialLimits,
	}
}

// Renew reactivates a subscription on the given plan until endDate. Only an
// explicit admin or billing action calls this.
func Renew(sub *models.Subscription, cfg *config.SubscriptionConfig, plan models.Plan, endDate time.Time, now time.Time) *models.Subscription {
	out := &models.Subscription{
		Plan:      plan,
		StartDate: now,
		EndDate:   endDate,
		IsActive:  true,
		IsExpired: false,
		Limits:    cfg.PlanLimits(plan),
	}
	if sub != nil && sub.Plan == plan {
		// Keep per-tenant limit overrides when the plan is unchanged.
		out.Limits = sub.Limits
	}
	return out
}
