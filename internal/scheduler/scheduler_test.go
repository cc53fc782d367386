package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biztrack/biztrack-server/internal/config"
	"github.com/biztrack/biztrack-server/internal/models"
	"github.com/biztrack/biztrack-server/internal/notify"
	"github.com/biztrack/biztrack-server/internal/storage"
)

type sweepStore struct {
	storage.Store

	expired   []*models.User
	listErr   error
	updateErr map[uuid.UUID]error

	updated map[uuid.UUID]*models.Subscription
	events  []*models.EventLog
}

func (s *sweepStore) ListExpiredTenants(_ context.Context, _ time.Time) ([]*models.User, error) {
	return s.expired, s.listErr
}

func (s *sweepStore) UpdateSubscription(_ context.Context, tenantID uuid.UUID, sub *models.Subscription) error {
	if err := s.updateErr[tenantID]; err != nil {
		return err
	}
	if s.updated == nil {
		s.updated = make(map[uuid.UUID]*models.Subscription)
	}
	s.updated[tenantID] = sub
	return nil
}

func (s *sweepStore) CreateEventLog(_ context.Context, event *models.EventLog) error {
	s.events = append(s.events, event)
	return nil
}

func expiredTenant(email string) *models.User {
	return &models.User{
		ID:    uuid.New(),
		Email: email,
		Role:  models.RoleSubscriber,
		Subscription: &models.Subscription{
			Plan:     models.PlanTrial,
			EndDate:  time.Now().UTC().Add(-48 * time.Hour),
			IsActive: true,
		},
	}
}

func TestSweepExpired(t *testing.T) {
	cfg := &config.SubscriptionConfig{ExpirySweepCron: "0 2 * * *"}
	publisher := notify.NewPublisher(nil)

	t.Run("marks expired tenants and records events", func(t *testing.T) {
		a := expiredTenant("a@example.com")
		b := expiredTenant("b@example.com")
		store := &sweepStore{expired: []*models.User{a, b}}

		sched := New(cfg, store, publisher)
		require.NoError(t, sched.SweepExpired(context.Background()))

		require.Len(t, store.updated, 2)
		assert.True(t, store.updated[a.ID].IsExpired)
		assert.False(t, store.updated[a.ID].IsActive)

		require.Len(t, store.events, 2)
		assert.Equal(t, models.EventSubscriptionExpired, store.events[0].Type)
		assert.Equal(t, a.ID, store.events[0].UserID)
	})

	t.Run("nothing to do", func(t *testing.T) {
		store := &sweepStore{}
		sched := New(cfg, store, publisher)
		require.NoError(t, sched.SweepExpired(context.Background()))
		assert.Empty(t, store.updated)
	})

	t.Run("one failure does not stop the sweep", func(t *testing.T) {
		a := expiredTenant("a@example.com")
		b := expiredTenant("b@example.com")
		store := &sweepStore{
			expired:   []*models.User{a, b},
			updateErr: map[uuid.UUID]error{a.ID: errors.New("deadlock")},
		}

		sched := New(cfg, store, publisher)
		err := sched.SweepExpired(context.Background())
		assert.ErrorContains(t, err, "1 of 2 tenants failed")

		require.Len(t, store.updated, 1)
		assert.True(t, store.updated[b.ID].IsExpired)
	})

	t.Run("tenants without a subscription are skipped", func(t *testing.T) {
		bare := &models.User{ID: uuid.New(), Email: "bare@example.com", Role: models.RoleSubscriber}
		store := &sweepStore{expired: []*models.User{bare}}

		sched := New(cfg, store, publisher)
		require.NoError(t, sched.SweepExpired(context.Background()))
		assert.Empty(t, store.updated)
		assert.Empty(t, store.events)
	})

	t.Run("list failure aborts", func(t *testing.T) {
		store := &sweepStore{listErr: errors.New("connection refused")}
		sched := New(cfg, store, publisher)
		assert.Error(t, sched.SweepExpired(context.Background()))
	})
}

func TestStartStopsOnCancel(t *testing.T) {
	cfg := &config.SubscriptionConfig{ExpirySweepCron: "0 2 * * *"}
	store := &sweepStore{}
	sched := New(cfg, store, notify.NewPublisher(nil))

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- sched.Start(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
}

func TestStartRejectsBadCron(t *testing.T) {
	cfg := &config.SubscriptionConfig{ExpirySweepCron: "not a schedule"}
	sched := New(cfg, &sweepStore{}, notify.NewPublisher(nil))

	err := sched.Start(context.Background())
	assert.ErrorContains(t, err, "schedule expiry sweep")
}
