package authcore

import (
	"context"

	"github.com/kiratremon/authcore/session"
)

// Logout destroys the caller's own session for one device. Idempotent.
func (e *Engine) Logout(ctx context.Context, userID, deviceID string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	if err := e.sessions.Revoke(sctx, userID, deviceID); err != nil {
		e.metricInc(MetricStoreUnavailable)
		return err
	}

	e.metricInc(MetricLogout)
	e.emit(ctx, AuditEvent{
		EventType: auditEventLogout,
		UserID:    userID,
		DeviceID:  deviceID,
		Success:   true,
	})
	return nil
}

// ForceLogout revokes another principal's session on one device. The
// protected-identity guard runs first: a reserved identity can only be
// forced offline by itself, so a compromised admin account cannot lock the
// super administrator out.
func (e *Engine) ForceLogout(ctx context.Context, actorID, userID, deviceID string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if err := e.guard.CheckForceLogout(actorID, userID); err != nil {
		return e.guardRejected(ctx, actorID, userID, "force_logout", err)
	}

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	if err := e.sessions.Revoke(sctx, userID, deviceID); err != nil {
		e.metricInc(MetricStoreUnavailable)
		return err
	}

	e.metricInc(MetricForceLogout)
	e.emit(ctx, AuditEvent{
		EventType: auditEventForceLogout,
		UserID:    userID,
		DeviceID:  deviceID,
		ActorID:   actorID,
		Success:   true,
	})
	return nil
}

// ForceLogoutAll revokes every session a user holds, across all devices.
// Same guard rule as [Engine.ForceLogout].
func (e *Engine) ForceLogoutAll(ctx context.Context, actorID, userID string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if err := e.guard.CheckForceLogout(actorID, userID); err != nil {
		return e.guardRejected(ctx, actorID, userID, "force_logout_all", err)
	}

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	if err := e.sessions.RevokeAll(sctx, userID); err != nil {
		e.metricInc(MetricStoreUnavailable)
		return err
	}

	e.metricInc(MetricForceLogoutAll)
	e.emit(ctx, AuditEvent{
		EventType: auditEventForceLogoutAll,
		UserID:    userID,
		ActorID:   actorID,
		Success:   true,
	})
	return nil
}

// Sessions lists a user's live sessions, for "active devices" views and
// targeted force-logout.
func (e *Engine) Sessions(ctx context.Context, userID string) ([]session.Session, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	sessions, err := e.sessions.List(sctx, userID)
	if err != nil {
		e.metricInc(MetricStoreUnavailable)
	}
	return sessions, err
}

// SessionCount returns the number of live sessions a user holds.
func (e *Engine) SessionCount(ctx context.Context, userID string) (int, error) {
	if e == nil {
		return 0, ErrEngineNotReady
	}

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	n, err := e.sessions.Count(sctx, userID)
	if err != nil {
		e.metricInc(MetricStoreUnavailable)
	}
	return n, err
}
