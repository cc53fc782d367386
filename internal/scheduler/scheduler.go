// Package scheduler runs the periodic maintenance jobs, currently the
// nightly subscription expiry sweep.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/biztrack/biztrack-server/internal/config"
	"github.com/biztrack/biztrack-server/internal/models"
	"github.com/biztrack/biztrack-server/internal/notify"
	"github.com/biztrack/biztrack-server/internal/storage"
)

// Scheduler owns the cron runner.
type Scheduler struct {
	cfg       *config.SubscriptionConfig
	store     storage.Store
	publisher *notify.Publisher
	cron      *cron.Cron
}

// New creates a scheduler. The publisher may wrap a nil connection; expiry
// events are then logged locally only.
func New(cfg *config.SubscriptionConfig, store storage.Store, publisher *notify.Publisher) *Scheduler {
	return &Scheduler{
		cfg:       cfg,
		store:     store,
		publisher: publisher,
		cron:      cron.New(),
	}
}

// Start registers the jobs and starts the cron loop. It blocks until ctx is
// cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.cfg.ExpirySweepCron, func() {
		sweepCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		if err := s.SweepExpired(sweepCtx); err != nil {
			log.Error().Err(err).Msg("expiry sweep failed")
		}
	})
	if err != nil {
		return fmt.Errorf("schedule expiry sweep: %w", err)
	}

	s.cron.Start()
	log.Info().Str("schedule", s.cfg.ExpirySweepCron).Msg("scheduler started")

	<-ctx.Done()

	stopCtx := s.cron.Stop()
	<-stopCtx.Done()

	return ctx.Err()
}

// SweepExpired marks every tenant whose subscription end date has passed as
// expired, records an event log row and publishes the expiry event. A failure
// on one tenant does not stop the sweep.
func (s *Scheduler) SweepExpired(ctx context.Context) error {
	now := time.Now().UTC()

	tenants, err := s.store.ListExpiredTenants(ctx, now)
	if err != nil {
		return fmt.Errorf("list expired tenants: %w", err)
	}
	if len(tenants) == 0 {
		return nil
	}

	log.Info().Int("count", len(tenants)).Msg("expiring subscriptions")

	var failed int
	for _, t := range tenants {
		if t.Subscription == nil {
			continue
		}

		sub := *t.Subscription
		sub.IsExpired = true
		sub.IsActive = false

		if err := s.store.UpdateSubscription(ctx, t.ID, &sub); err != nil {
			log.Error().Err(err).Str("tenant_id", t.ID.String()).Msg("mark subscription expired")
			failed++
			continue
		}

		event := &models.EventLog{
			Type:        models.EventSubscriptionExpired,
			Level:       models.EventLevelWarning,
			Description: "subscription expired",
			Details: models.Variables{
				"plan":    string(sub.Plan),
				"endDate": sub.EndDate.Format(time.RFC3339),
			},
		}
		event.UserID = t.ID
		if err := s.store.CreateEventLog(ctx, event); err != nil {
			log.Warn().Err(err).Str("tenant_id", t.ID.String()).Msg("record expiry event")
		}

		s.publisher.Publish(notify.Event{
			TenantID: t.ID,
			Type:     notify.SubjectSubscriptionExpired,
			Email:    t.Email,
			Name:     t.FirstName,
			Details:  map[string]interface{}{"plan": string(sub.Plan)},
		})
	}

	if failed > 0 {
		return fmt.Errorf("expiry sweep: %d of %d tenants failed", failed, len(tenants))
	}
	return nil
}
