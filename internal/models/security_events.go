package models

import "time"

type EventType string

const (
	EventRegistered     EventType = "account.registered"
	EventOTPResent      EventType = "account.otp_resent"
	EventVerified       EventType = "account.verified"
	EventOTPFailed      EventType = "account.otp_failed"
	EventSuspended      EventType = "account.suspended"
	EventLoginSucceeded EventType = "account.login_succeeded"
	EventLoginFailed    EventType = "account.login_failed"
)

// SecurityEvent records one account lifecycle transition or attempt.
type SecurityEvent struct {
	ID         string            `json:"id" ch:"event_id"`
	Type       EventType         `json:"type" ch:"event_type"`
	AccountID  string            `json:"accountId,omitempty" ch:"account_id"`
	Email      string            `json:"email,omitempty" ch:"email"`
	IPAddress  string            `json:"ip,omitempty" ch:"ip_address"`
	OccurredAt time.Time         `json:"occurredAt" ch:"occurred_at"`
	Metadata   map[string]string `json:"metadata,omitempty" ch:"metadata"`
}
