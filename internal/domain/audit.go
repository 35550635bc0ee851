package domain

import "time"

type AuditEventType string

const (
	AuditEventLogin            AuditEventType = "login"
	AuditEventTokenRefreshed   AuditEventType = "token_refreshed"
	AuditEventTokenInvalidated AuditEventType = "token_invalidated"
	AuditEventAdmissionDenied  AuditEventType = "admission_denied"
	AuditEventCodeGranted      AuditEventType = "code_granted"
	AuditEventTokenExchanged   AuditEventType = "token_exchanged"
	AuditEventTokenRevoked     AuditEventType = "token_revoked"
	AuditEventClientRegistered AuditEventType = "client_registered"
	AuditEventUserCreated      AuditEventType = "user_created"
)

type AuditResult string

const (
	AuditResultSuccess AuditResult = "success"
	AuditResultFailure AuditResult = "failure"
)

// AuditEvent is one row of the auth audit trail. Username may be empty for
// anonymous or failed attempts; Detail carries the human-readable outcome.
type AuditEvent struct {
	ID         string
	Username   string
	ClientID   string
	EventType  AuditEventType
	Result     AuditResult
	Detail     string
	RemoteAddr string
	CreatedAt  time.Time
}
