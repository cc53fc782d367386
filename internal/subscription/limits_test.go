package subscription

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/biztrack/biztrack-server/internal/models"
	"github.com/biztrack/biztrack-server/internal/tenant"
)

// fakeCounter returns canned usage counts per resource.
type fakeCounter struct {
	counts map[models.ResourceType]int
	err    error
}

func (f *fakeCounter) CountResource(_ context.Context, _ tenant.Scope, resource models.ResourceType) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.counts[resource], nil
}

func newTestChecker(counter *fakeCounter, now time.Time) *Checker {
	c := NewChecker(counter)
	c.now = func() time.Time { return now }
	return c
}

func restrictedSub(now time.Time, limits models.Limits) *models.Subscription {
	return &models.Subscription{
		Plan:      models.PlanTrial,
		EndDate:   now.Add(-time.Hour),
		IsActive:  true,
		IsExpired: true,
		Limits:    limits,
	}
}

func activeSub(now time.Time, limits models.Limits) *models.Subscription {
	return &models.Subscription{
		Plan:     models.PlanTrial,
		EndDate:  now.AddDate(0, 0, 10),
		IsActive: true,
		Limits:   limits,
	}
}

func TestCheckLimit(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	scope := tenant.Scope{TenantID: uuid.New(), Role: models.RoleSubscriber}

	t.Run("unrestricted tenant is always allowed", func(t *testing.T) {
		counter := &fakeCounter{counts: map[models.ResourceType]int{models.ResourceInvoices: 500}}
		checker := newTestChecker(counter, now)

		res := checker.CheckLimit(context.Background(), scope, activeSub(now, models.Limits{InvoiceLimit: 20}), models.ResourceInvoices)
		assert.True(t, res.Allowed)
		assert.Equal(t, 500, res.Current)
	})

	t.Run("restricted tenant under limit is allowed", func(t *testing.T) {
		counter := &fakeCounter{counts: map[models.ResourceType]int{models.ResourceInvoices: 19}}
		checker := newTestChecker(counter, now)

		res := checker.CheckLimit(context.Background(), scope, restrictedSub(now, models.Limits{InvoiceLimit: 20}), models.ResourceInvoices)
		assert.True(t, res.Allowed)
		assert.Equal(t, 19, res.Current)
		assert.Equal(t, 20, res.Limit)
		assert.Equal(t, 95, res.Percentage)
		assert.True(t, res.Warning)
	})

	t.Run("restricted tenant at limit is denied", func(t *testing.T) {
		counter := &fakeCounter{counts: map[models.ResourceType]int{models.ResourceInvoices: 20}}
		checker := newTestChecker(counter, now)

		res := checker.CheckLimit(context.Background(), scope, restrictedSub(now, models.Limits{InvoiceLimit: 20}), models.ResourceInvoices)
		assert.False(t, res.Allowed)
		assert.Contains(t, res.Message, "invoices limit reached (20 of 20)")
	})

	t.Run("zero limit means unlimited", func(t *testing.T) {
		counter := &fakeCounter{counts: map[models.ResourceType]int{models.ResourceProducts: 100000}}
		checker := newTestChecker(counter, now)

		res := checker.CheckLimit(context.Background(), scope, restrictedSub(now, models.Limits{}), models.ResourceProducts)
		assert.True(t, res.Allowed)
		assert.Equal(t, 0, res.Percentage)
		assert.False(t, res.Warning)
	})

	t.Run("counter failure denies the write", func(t *testing.T) {
		counter := &fakeCounter{err: errors.New("connection reset")}
		checker := newTestChecker(counter, now)

		res := checker.CheckLimit(context.Background(), scope, activeSub(now, models.Limits{InvoiceLimit: 20}), models.ResourceInvoices)
		assert.False(t, res.Allowed)
		assert.Contains(t, res.Message, "unable to verify usage")
	})

	t.Run("nil subscription has no limit set", func(t *testing.T) {
		counter := &fakeCounter{counts: map[models.ResourceType]int{models.ResourceBranches: 0}}
		checker := newTestChecker(counter, now)

		// Nil subscription has no limits, so every limit reads as
		// unlimited; the evaluator, not the checker, keeps such
		// tenants out at login.
		res := checker.CheckLimit(context.Background(), scope, nil, models.ResourceBranches)
		assert.True(t, res.Allowed)
		assert.Equal(t, 0, res.Limit)
	})

	t.Run("unknown resource is denied", func(t *testing.T) {
		counter := &fakeCounter{}
		checker := newTestChecker(counter, now)

		res := checker.CheckLimit(context.Background(), scope, activeSub(now, models.Limits{}), models.ResourceType("gadgets"))
		assert.False(t, res.Allowed)
		assert.Contains(t, res.Message, "unknown resource type")
	})

	t.Run("warning threshold at 80 percent", func(t *testing.T) {
		counter := &fakeCounter{counts: map[models.ResourceType]int{models.ResourceCustomers: 40}}
		checker := newTestChecker(counter, now)

		res := checker.CheckLimit(context.Background(), scope, restrictedSub(now, models.Limits{CustomerLimit: 50}), models.ResourceCustomers)
		assert.True(t, res.Allowed)
		assert.Equal(t, 80, res.Percentage)
		assert.True(t, res.Warning)
		assert.Contains(t, res.Message, "80%")
	})
}

func TestSnapshot(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	scope := tenant.Scope{TenantID: uuid.New(), Role: models.RoleSubscriber}

	counter := &fakeCounter{counts: map[models.ResourceType]int{
		models.ResourceInvoices: 5,
		models.ResourceBranches: 1,
	}}
	checker := newTestChecker(counter, now)

	results := checker.Snapshot(context.Background(), scope, restrictedSub(now, models.Limits{InvoiceLimit: 20, BranchLimit: 1}))
	assert.Len(t, results, len(models.AllResourceTypes))

	byResource := make(map[models.ResourceType]Result, len(results))
	for _, res := range results {
		byResource[res.Resource] = res
	}
	assert.True(t, byResource[models.ResourceInvoices].Allowed)
	assert.Equal(t, 5, byResource[models.ResourceInvoices].Current)
	assert.False(t, byResource[models.ResourceBranches].Allowed)
}
