// Package notify publishes tenant lifecycle events on NATS and delivers the
// resulting emails. Publishing is fire-and-forget: a missing broker or a
// failed send is logged, never surfaced to the request that triggered it.
package notify

import (
	"fmt"

	"github.com/google/uuid"
)

// Event subjects, published as tenant.<id>.<suffix>.
const (
	SubjectAccountCreated       = "account.created"
	SubjectSubscriptionExpired  = "subscription.expired"
	SubjectSubscriptionRenewed  = "subscription.renewed"
	SubjectRenewalRequested     = "subscription.renewal_requested"
	SubjectInvoiceCreated       = "invoice.created"
)

// Event is the wire payload for tenant notifications.
type Event struct {
	TenantID uuid.UUID `json:"tenantId"`
	Type     string    `json:"type"`

	// Email and Name address the recipient for events that produce mail.
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`

	Details map[string]interface{} `json:"details,omitempty"`
}

// Subject builds the full NATS subject for the event.
func (e Event) Subject() string {
	return fmt.Sprintf("tenant.%s.%s", e.TenantID, e.Type)
}
