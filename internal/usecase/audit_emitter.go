package usecase

import (
	"context"
	"errors"
	"time"

	"ohmage/internal/domain"
)

// AuditEmitter appends auth lifecycle events to the audit trail.
// Callers treat failures as log-worthy, not fatal; losing an audit
// row must never fail the request that produced it.
type AuditEmitter struct {
	Repo  AuditEventRepository
	Clock Clock
}

func NewAuditEmitter(repo AuditEventRepository, clock Clock) *AuditEmitter {
	return &AuditEmitter{
		Repo:  repo,
		Clock: clock,
	}
}

func (e *AuditEmitter) Emit(ctx context.Context, event domain.AuditEvent) error {
	if e == nil || e.Repo == nil {
		return errors.New("audit repository required")
	}
	if event.EventType == "" || event.Result == "" {
		return errors.New("audit event missing required fields")
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = e.now().UTC()
	} else {
		event.CreatedAt = event.CreatedAt.UTC()
	}
	return e.Repo.Append(ctx, event)
}

func (e *AuditEmitter) EmitLogin(ctx context.Context, username, remoteAddr string, result domain.AuditResult, detail string) error {
	return e.Emit(ctx, domain.AuditEvent{
		Username:   username,
		EventType:  domain.AuditEventLogin,
		Result:     result,
		Detail:     detail,
		RemoteAddr: remoteAddr,
	})
}

func (e *AuditEmitter) EmitTokenRefreshed(ctx context.Context, username, remoteAddr string, result domain.AuditResult, detail string) error {
	return e.Emit(ctx, domain.AuditEvent{
		Username:   username,
		EventType:  domain.AuditEventTokenRefreshed,
		Result:     result,
		Detail:     detail,
		RemoteAddr: remoteAddr,
	})
}

func (e *AuditEmitter) EmitTokenInvalidated(ctx context.Context, username, remoteAddr string, result domain.AuditResult, detail string) error {
	return e.Emit(ctx, domain.AuditEvent{
		Username:   username,
		EventType:  domain.AuditEventTokenInvalidated,
		Result:     result,
		Detail:     detail,
		RemoteAddr: remoteAddr,
	})
}

func (e *AuditEmitter) EmitAdmissionDenied(ctx context.Context, remoteAddr, detail string) error {
	return e.Emit(ctx, domain.AuditEvent{
		EventType:  domain.AuditEventAdmissionDenied,
		Result:     domain.AuditResultFailure,
		Detail:     detail,
		RemoteAddr: remoteAddr,
	})
}

func (e *AuditEmitter) EmitCodeGranted(ctx context.Context, username, clientID, remoteAddr string, result domain.AuditResult, detail string) error {
	return e.Emit(ctx, domain.AuditEvent{
		Username:   username,
		ClientID:   clientID,
		EventType:  domain.AuditEventCodeGranted,
		Result:     result,
		Detail:     detail,
		RemoteAddr: remoteAddr,
	})
}

func (e *AuditEmitter) EmitTokenExchanged(ctx context.Context, clientID, remoteAddr string, result domain.AuditResult, detail string) error {
	return e.Emit(ctx, domain.AuditEvent{
		ClientID:   clientID,
		EventType:  domain.AuditEventTokenExchanged,
		Result:     result,
		Detail:     detail,
		RemoteAddr: remoteAddr,
	})
}

func (e *AuditEmitter) EmitTokenRevoked(ctx context.Context, username, clientID, remoteAddr string, result domain.AuditResult, detail string) error {
	return e.Emit(ctx, domain.AuditEvent{
		Username:   username,
		ClientID:   clientID,
		EventType:  domain.AuditEventTokenRevoked,
		Result:     result,
		Detail:     detail,
		RemoteAddr: remoteAddr,
	})
}

func (e *AuditEmitter) EmitClientRegistered(ctx context.Context, owner, clientID, remoteAddr string, result domain.AuditResult, detail string) error {
	return e.Emit(ctx, domain.AuditEvent{
		Username:   owner,
		ClientID:   clientID,
		EventType:  domain.AuditEventClientRegistered,
		Result:     result,
		Detail:     detail,
		RemoteAddr: remoteAddr,
	})
}

func (e *AuditEmitter) EmitUserCreated(ctx context.Context, username, remoteAddr string, result domain.AuditResult, detail string) error {
	return e.Emit(ctx, domain.AuditEvent{
		Username:   username,
		EventType:  domain.AuditEventUserCreated,
		Result:     result,
		Detail:     detail,
		RemoteAddr: remoteAddr,
	})
}

func (e *AuditEmitter) now() time.Time {
	if e != nil && e.Clock != nil {
		return e.Clock()
	}
	return time.Now().UTC()
}
