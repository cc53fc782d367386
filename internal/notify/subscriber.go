package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/biztrack/biztrack-server/internal/config"
)

// Subscriber consumes tenant events and turns them into email deliveries.
// Running it in a separate process from the API is fine; subjects are
// regular NATS subscriptions.
type Subscriber struct {
	nc     *nats.Conn
	mailer *Mailer
	admin  string
	subs   []*nats.Subscription
}

// NewSubscriber creates the event consumer.
func NewSubscriber(nc *nats.Conn, mailer *Mailer, smtpCfg *config.SMTPConfig) *Subscriber {
	return &Subscriber{
		nc:     nc,
		mailer: mailer,
		admin:  smtpCfg.AdminEmail,
		subs:   make([]*nats.Subscription, 0),
	}
}

// Start subscribes and blocks until ctx is cancelled.
func (s *Subscriber) Start(ctx context.Context) error {
	sub1, err := s.nc.Subscribe("tenant.*.account.created", s.handleAccountCreated)
	if err != nil {
		return fmt.Errorf("subscribe account created: %w", err)
	}
	s.subs = append(s.subs, sub1)

	sub2, err := s.nc.Subscribe("tenant.*.subscription.*", s.handleSubscriptionEvent)
	if err != nil {
		return fmt.Errorf("subscribe subscription events: %w", err)
	}
	s.subs = append(s.subs, sub2)

	log.Info().Int("subscriptions", len(s.subs)).Msg("notification subscriber started")

	<-ctx.Done()

	for _, sub := range s.subs {
		sub.Unsubscribe()
	}

	return ctx.Err()
}

// handleAccountCreated delivers initial credentials to a new sub-account.
func (s *Subscriber) handleAccountCreated(msg *nats.Msg) {
	var event Event
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		log.Error().Err(err).Str("subject", msg.Subject).Msg("decode event")
		return
	}

	if event.Email == "" {
		return
	}

	password, _ := event.Details["password"].(string)
	body := fmt.Sprintf(
		"Hello %s,\n\nAn account has been created for you.\n\nLogin: %s\nTemporary password: %s\n\nPlease change your password after first login.\n",
		event.Name, event.Email, password,
	)

	if err := s.mailer.Send(event.Email, "Your account credentials", body); err != nil {
		log.Warn().Err(err).Str("recipient", event.Email).Msg("credential email failed")
	}
}

// handleSubscriptionEvent routes subscription notifications.
func (s *Subscriber) handleSubscriptionEvent(msg *nats.Msg) {
	var event Event
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		log.Error().Err(err).Str("subject", msg.Subject).Msg("decode event")
		return
	}

	switch event.Type {
	case SubjectRenewalRequested:
		if s.admin == "" {
			return
		}
		body := fmt.Sprintf(
			"Tenant %s (%s) requested a subscription renewal.\n\nPlan: %v\nMessage: %v\n",
			event.Name, event.TenantID, event.Details["plan"], event.Details["message"],
		)
		if err := s.mailer.Send(s.admin, "Subscription renewal request", body); err != nil {
			log.Warn().Err(err).Msg("renewal request email failed")
		}

	case SubjectSubscriptionExpired:
		if event.Email == "" {
			return
		}
		body := fmt.Sprintf(
			"Hello %s,\n\nYour subscription has expired. Creating new records is now limited until you renew.\nExisting data remains available.\n",
			event.Name,
		)
		if err := s.mailer.Send(event.Email, "Subscription expired", body); err != nil {
			log.Warn().Err(err).Str("recipient", event.Email).Msg("expiry email failed")
		}

	case SubjectSubscriptionRenewed:
		if event.Email == "" {
			return
		}
		body := fmt.Sprintf(
			"Hello %s,\n\nYour subscription has been renewed on the %v plan. Thank you!\n",
			event.Name, event.Details["plan"],
		)
		if err := s.mailer.Send(event.Email, "Subscription renewed", body); err != nil {
			log.Warn().Err(err).Str("recipient", event.Email).Msg("renewal email failed")
		}
	}
}
