package goAccount

import (
	"context"
	"errors"

	"github.com/MrEthical07/goAccount/store"
)

const (
	auditEventAccountCreated         = "account_created"
	auditEventAccountCreateFailure   = "account_create_failure"
	auditEventAccountUpdated         = "account_updated"
	auditEventAccountUpdateFailure   = "account_update_failure"
	auditEventAccountDeleted         = "account_deleted"
	auditEventAccountDeleteFailure   = "account_delete_failure"
	auditEventPasswordUpgraded       = "password_upgraded"
	auditEventLoginSuccess           = "login_success"
	auditEventLoginFailure           = "login_failure"
	auditEventLoginRateLimited       = "login_rate_limited"
	auditEventTokenRevoked           = "token_revoked"
	auditEventLogoutAll              = "logout_all"
	auditEventTaskCreated            = "task_created"
	auditEventTaskDeleted            = "task_deleted"
	auditEventRateLimiterUnavailable = "rate_limiter_unavailable"
)

// AuditErrorCode is the stable error label written to AuditEvent.Error.
type AuditErrorCode string

const (
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrInvalidToken       AuditErrorCode = "invalid_token"
	auditErrValidation         AuditErrorCode = "validation"
	auditErrDuplicate          AuditErrorCode = "duplicate"
	auditErrAccountNotFound    AuditErrorCode = "account_not_found"
	auditErrTaskNotFound       AuditErrorCode = "task_not_found"
	auditErrCascadeFailed      AuditErrorCode = "cascade_failed"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	accountID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		EventType: eventType,
		AccountID: accountID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

// auditErrorCode maps err onto a fixed vocabulary so that audit consumers
// never see raw driver messages.
func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrLoginRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrTokenInvalid):
		return auditErrInvalidToken
	case errors.Is(err, ErrCascadeDelete):
		return auditErrCascadeFailed
	case errors.Is(err, store.ErrDuplicateEmail):
		return auditErrDuplicate
	case errors.Is(err, ErrValidation):
		return auditErrValidation
	case errors.Is(err, ErrAccountNotFound):
		return auditErrAccountNotFound
	case errors.Is(err, ErrTaskNotFound):
		return auditErrTaskNotFound
	case errors.Is(err, store.ErrUnavailable),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
