package notify

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/biztrack/biztrack-server/internal/config"
)

func TestEventSubject(t *testing.T) {
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	event := Event{TenantID: id, Type: SubjectAccountCreated}
	assert.Equal(t, "tenant.6ba7b810-9dad-11d1-80b4-00c04fd430c8.account.created", event.Subject())
}

func TestPublisherWithoutConnection(t *testing.T) {
	p := NewPublisher(nil)

	// Publishing with no broker must be a no-op, not a panic.
	assert.NotPanics(t, func() {
		p.Publish(Event{TenantID: uuid.New(), Type: SubjectSubscriptionExpired})
	})
}

func TestMailerEnabled(t *testing.T) {
	assert.False(t, NewMailer(&config.SMTPConfig{}).Enabled())
	assert.False(t, NewMailer(nil).Enabled())
	assert.True(t, NewMailer(&config.SMTPConfig{Host: "smtp.example.com"}).Enabled())

	t.Run("send without config errors", func(t *testing.T) {
		err := NewMailer(&config.SMTPConfig{}).Send("x@example.com", "subject", "body")
		assert.ErrorContains(t, err, "smtp not configured")
	})
}
