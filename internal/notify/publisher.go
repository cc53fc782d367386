package notify

import (
	"encoding/json"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// Publisher publishes tenant events to NATS. A nil Publisher (or one built
// without a connection) drops events silently, so callers never branch on
// whether the broker is configured.
type Publisher struct {
	nc *nats.Conn
}

// NewPublisher creates a publisher over an existing NATS connection. nc may
// be nil.
func NewPublisher(nc *nats.Conn) *Publisher {
	return &Publisher{nc: nc}
}

// Publish sends the event, fire-and-forget.
func (p *Publisher) Publish(event Event) {
	if p == nil || p.nc == nil {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("type", event.Type).Msg("marshal event")
		return
	}

	if err := p.nc.Publish(event.Subject(), data); err != nil {
		log.Warn().Err(err).Str("subject", event.Subject()).Msg("publish event")
	}
}
