package subscription

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/biztrack/biztrack-server/internal/config"
	"github.com/biztrack/biztrack-server/internal/models"
)

func testConfig() *config.SubscriptionConfig {
	return &config.SubscriptionConfig{
		TrialDays: 40,
		TrialLimits: models.Limits{
			InvoiceLimit:   20,
			BranchLimit:    1,
			UserLimit:      5,
			SupplierLimit:  10,
			CustomerLimit:  50,
			ProductLimit:   100,
			CategoryLimit:  20,
			WarehouseLimit: 2,
		},
		Plans: map[string]models.Limits{
			string(models.PlanBasic):   {InvoiceLimit: 200, BranchLimit: 3},
			string(models.PlanPremium): {},
		},
	}
}

func TestEvaluate(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("nil subscription is restricted", func(t *testing.T) {
		state := Evaluate(nil, now)
		assert.True(t, state.IsExpired)
		assert.True(t, state.Restricted)
		assert.Equal(t, 0, state.DaysRemaining)
	})

	t.Run("active subscription", func(t *testing.T) {
		sub := &models.Subscription{
			Plan:      models.PlanTrial,
			StartDate: now.AddDate(0, 0, -10),
			EndDate:   now.AddDate(0, 0, 30),
			IsActive:  true,
		}
		state := Evaluate(sub, now)
		assert.False(t, state.IsExpired)
		assert.False(t, state.Restricted)
		assert.Equal(t, 30, state.DaysRemaining)
	})

	t.Run("past end date", func(t *testing.T) {
		sub := &models.Subscription{
			EndDate:  now.Add(-time.Hour),
			IsActive: true,
		}
		state := Evaluate(sub, now)
		assert.True(t, state.IsExpired)
		assert.True(t, state.Restricted)
	})

	t.Run("inactive subscription is restricted even before end date", func(t *testing.T) {
		sub := &models.Subscription{
			EndDate:  now.AddDate(0, 0, 10),
			IsActive: false,
		}
		state := Evaluate(sub, now)
		assert.True(t, state.IsExpired)
		assert.True(t, state.Restricted)
	})

	t.Run("idempotent", func(t *testing.T) {
		sub := &models.Subscription{
			EndDate:  now.AddDate(0, 0, 5),
			IsActive: true,
		}
		first := Evaluate(sub, now)
		second := Evaluate(sub, now)
		assert.Equal(t, first, second)
	})
}

func TestNewTrial(t *testing.T) {
	cfg := testConfig()
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	sub := NewTrial(cfg, now)

	assert.Equal(t, models.PlanTrial, sub.Plan)
	assert.Equal(t, now, sub.StartDate)
	assert.Equal(t, now.AddDate(0, 0, 40), sub.EndDate)
	assert.True(t, sub.IsActive)
	assert.False(t, sub.IsExpired)
	assert.Equal(t, 20, sub.Limits.For(models.ResourceInvoices))
	assert.Equal(t, 1, sub.Limits.For(models.ResourceBranches))
}

func TestRenew(t *testing.T) {
	cfg := testConfig()
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	endDate := now.AddDate(1, 0, 0)

	t.Run("plan change takes catalog limits", func(t *testing.T) {
		old := &models.Subscription{
			Plan:   models.PlanTrial,
			Limits: models.Limits{InvoiceLimit: 99},
		}
		sub := Renew(old, cfg, models.PlanBasic, endDate, now)

		assert.Equal(t, models.PlanBasic, sub.Plan)
		assert.True(t, sub.IsActive)
		assert.False(t, sub.IsExpired)
		assert.Equal(t, endDate, sub.EndDate)
		assert.Equal(t, 200, sub.Limits.For(models.ResourceInvoices))
	})

	t.Run("same plan keeps overrides", func(t *testing.T) {
		old := &models.Subscription{
			Plan:   models.PlanBasic,
			Limits: models.Limits{InvoiceLimit: 999},
		}
		sub := Renew(old, cfg, models.PlanBasic, endDate, now)
		assert.Equal(t, 999, sub.Limits.For(models.ResourceInvoices))
	})

	t.Run("nil previous subscription", func(t *testing.T) {
		sub := Renew(nil, cfg, models.PlanPremium, endDate, now)
		assert.Equal(t, models.PlanPremium, sub.Plan)
		assert.Equal(t, 0, sub.Limits.For(models.ResourceInvoices))
	})
}
