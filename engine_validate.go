package authcore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kiratremon/authcore/authz"
	"github.com/kiratremon/authcore/internal"
	"github.com/kiratremon/authcore/session"
)

// ValidateAccessToken verifies an access token and returns the caller's
// identity snapshot.
//
// Verification is two-layered: the signature and expiry come from the
// token itself, the revocation state from the session registry. A token
// whose identifier no longer matches the registry returns
// [ErrTokenRevoked] no matter how much signed lifetime it has left. An
// unreachable registry denies ([ErrStoreUnavailable]); it never fails
// open.
//
// Role and permission assignments are read fresh from the user provider on
// every call, except for reserved identities, whose facts are fixed in
// code and immune to data-layer tampering.
func (e *Engine) ValidateAccessToken(ctx context.Context, token string) (*authz.Identity, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.tokens.ParseAccess(token)
	if err != nil {
		mapped := mapTokenError(err)
		switch {
		case errors.Is(mapped, ErrTokenExpired):
			e.metricInc(MetricValidateExpired)
		default:
			e.metricInc(MetricValidateMalformed)
		}
		return nil, mapped
	}
	// The token id claim reaches the registry scripts; reject foreign
	// shapes before any store round-trip.
	if err := internal.ParseTokenID(claims.TokenID); err != nil {
		e.metricInc(MetricValidateMalformed)
		return nil, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	status, err := e.sessions.Validate(sctx, claims.Subject, claims.DeviceID, claims.TokenID)
	if err != nil {
		e.metricInc(MetricStoreUnavailable)
		e.emit(ctx, AuditEvent{
			EventType: auditEventStoreUnavailable,
			UserID:    claims.Subject,
			DeviceID:  claims.DeviceID,
			Error:     err.Error(),
		})
		return nil, err
	}
	if status != session.StatusValid {
		e.metricInc(MetricValidateRevoked)
		e.emit(ctx, AuditEvent{
			EventType: auditEventValidationRevoked,
			UserID:    claims.Subject,
			DeviceID:  claims.DeviceID,
			Metadata:  map[string]string{"status": status.String()},
		})
		return nil, ErrTokenRevoked
	}

	if e.config.Session.TouchOnValidate {
		// Best effort; a failed touch must not fail the request.
		_ = e.sessions.Touch(sctx, claims.Subject, claims.DeviceID, time.Now())
	}

	identity, err := e.identityFor(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricValidateSuccess)
	return identity, nil
}

// identityFor builds the per-request identity snapshot.
func (e *Engine) identityFor(ctx context.Context, userID string) (*authz.Identity, error) {
	if fixed, ok := e.guard.ReservedIdentity(userID); ok {
		return fixed, nil
	}

	user, err := e.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			// Account deleted out from under a live session.
			return nil, ErrTokenRevoked
		}
		return nil, err
	}
	switch user.Status {
	case AccountDisabled:
		return nil, ErrAccountDisabled
	case AccountLocked:
		return nil, ErrAccountLocked
	}

	return &authz.Identity{
		UserID:      user.UserID,
		Username:    user.Username,
		TenantID:    user.TenantID,
		DeptID:      user.DeptID,
		Roles:       append([]string(nil), user.Roles...),
		Permissions: append([]string(nil), user.Permissions...),
		DataScope:   user.DataScope,
	}, nil
}
