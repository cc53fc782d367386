package models

// EventType classifies event log entries
type EventType string

const (
	EventAccountCreated      EventType = "account_created"
	EventAccountSuspended    EventType = "account_suspended"
	EventAccountActivated    EventType = "account_activated"
	EventSubscriptionExpired EventType = "subscription_expired"
	EventSubscriptionRenewed EventType = "subscription_renewed"
	EventRenewalRequested    EventType = "renewal_requested"
	EventLimitsUpdated       EventType = "limits_updated"
	EventPlanChanged         EventType = "plan_changed"
	EventLimitDenied         EventType = "limit_denied"
	EventCheckout            EventType = "pos_checkout"
)

// EventLevel represents event severity
type EventLevel string

const (
	EventLevelInfo    EventLevel = "info"
	EventLevelWarning EventLevel = "warning"
	EventLevelError   EventLevel = "error"
)

// EventLog is a tenant-scoped audit record of subscription and account
// actions.
type EventLog struct {
	TenantModel

	Type        EventType  `json:"type" db:"type"`
	Level       EventLevel `json:"level" db:"level"`
	Description string     `json:"description" db:"description"`
	Details     Variables  `json:"details,omitempty" db:"details"`
}
