package authcore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kiratremon/authcore/internal"
	"github.com/kiratremon/authcore/jwt"
	"github.com/kiratremon/authcore/session"
)

// Refresh consumes a refresh token and rotates the session's token
// identifier, invalidating every token issued under the old identifier
// even if its signed expiry has not passed.
//
// Refresh tokens are device-pinned: deviceID (or the context device id)
// must match the id embedded in the token, otherwise [ErrDeviceMismatch].
// A refresh against a revoked or superseded session fails with
// [ErrSessionRevoked]; the losing side of a concurrent refresh race gets
// the same answer.
func (e *Engine) Refresh(ctx context.Context, refreshToken, deviceID string) (*LoginResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return nil, e.refreshRejected(ctx, "", "", mapTokenError(err))
	}
	if err := internal.ParseTokenID(claims.TokenID); err != nil {
		return nil, e.refreshRejected(ctx, claims.Subject, "", fmt.Errorf("%w: %v", ErrTokenMalformed, err))
	}

	if deviceID == "" {
		deviceID = DeviceIDFromContext(ctx)
	}
	if deviceID == "" || deviceID != claims.DeviceID {
		return nil, e.refreshRejected(ctx, claims.Subject, deviceID, ErrDeviceMismatch)
	}

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	status, err := e.sessions.Validate(sctx, claims.Subject, deviceID, claims.TokenID)
	if err != nil {
		e.metricInc(MetricStoreUnavailable)
		return nil, err
	}
	if status != session.StatusValid {
		return nil, e.refreshRejected(ctx, claims.Subject, deviceID, ErrSessionRevoked)
	}

	tokenID, err := internal.NewTokenID()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	ttl := e.sessionTTL()
	device := internal.ParseUserAgent(userAgentFromContext(ctx))

	next := &session.Session{
		UserID:        claims.Subject,
		DeviceID:      deviceID,
		TokenID:       tokenID,
		IssuedAt:      now.Unix(),
		ExpiresAt:     now.Add(ttl).Unix(),
		LastActiveAt:  now.Unix(),
		SourceIP:      clientIPFromContext(ctx),
		UserAgent:     userAgentFromContext(ctx),
		DeviceType:    device.Type,
		DeviceOS:      device.OS,
		DeviceBrowser: device.Browser,
	}

	rotated, err := e.sessions.Rotate(sctx, claims.TokenID, next, ttl)
	if err != nil {
		e.metricInc(MetricStoreUnavailable)
		return nil, err
	}
	if rotated != session.Rotated {
		return nil, e.refreshRejected(ctx, claims.Subject, deviceID, ErrSessionRevoked)
	}

	access, err := e.tokens.CreateAccess(claims.Subject, deviceID, tokenID, now)
	if err != nil {
		return nil, err
	}
	refresh, err := e.tokens.CreateRefresh(claims.Subject, deviceID, tokenID, now)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricRefreshSuccess)
	e.emit(ctx, AuditEvent{
		EventType: auditEventRefreshSuccess,
		UserID:    claims.Subject,
		DeviceID:  deviceID,
		Success:   true,
	})

	return &LoginResult{
		AccessToken:  access,
		RefreshToken: refresh,
		DeviceID:     deviceID,
		UserID:       claims.Subject,
		ExpiresAt:    now.Add(e.config.JWT.AccessTTL),
	}, nil
}

func (e *Engine) refreshRejected(ctx context.Context, userID, deviceID string, cause error) error {
	e.metricInc(MetricRefreshFailure)
	e.emit(ctx, AuditEvent{
		EventType: auditEventRefreshFailure,
		UserID:    userID,
		DeviceID:  deviceID,
		Error:     cause.Error(),
	})
	return cause
}

// mapTokenError translates jwt-layer sentinels into engine sentinels.
func mapTokenError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrKindMismatch), errors.Is(err, jwt.ErrMalformed):
		return ErrTokenMalformed
	default:
		return fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
}
