package authcore

import "context"

// The guard gates below are the explicit pre-call interception points for
// identity-mutating operations. Mutation-handling code calls the matching
// gate and performs the write only when it returns nil. Denials surface
// [ErrProtectedIdentity] verbatim and are audited; they are never masked
// as generic failures.

// GuardUpdateUser gates a field-level user update.
func (e *Engine) GuardUpdateUser(ctx context.Context, actorID, userID string, fields []string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if err := e.guard.CheckUpdateUser(userID, fields); err != nil {
		return e.guardRejected(ctx, actorID, userID, "update_user", err)
	}
	return nil
}

// GuardUpdateUserRoles gates a role reassignment.
func (e *Engine) GuardUpdateUserRoles(ctx context.Context, actorID, userID string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if err := e.guard.CheckUpdateRoles(userID); err != nil {
		return e.guardRejected(ctx, actorID, userID, "update_roles", err)
	}
	return nil
}

// GuardUpdateUserPermissions gates a permission reassignment.
func (e *Engine) GuardUpdateUserPermissions(ctx context.Context, actorID, userID string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if err := e.guard.CheckUpdatePermissions(userID); err != nil {
		return e.guardRejected(ctx, actorID, userID, "update_permissions", err)
	}
	return nil
}

// GuardDeleteUser gates a user deletion.
func (e *Engine) GuardDeleteUser(ctx context.Context, actorID, userID string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if err := e.guard.CheckDelete(userID); err != nil {
		return e.guardRejected(ctx, actorID, userID, "delete_user", err)
	}
	return nil
}

// GuardDisableUser gates disabling an account.
func (e *Engine) GuardDisableUser(ctx context.Context, actorID, userID string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if err := e.guard.CheckDisable(userID); err != nil {
		return e.guardRejected(ctx, actorID, userID, "disable_user", err)
	}
	return nil
}

// GuardLockUser gates locking an account.
func (e *Engine) GuardLockUser(ctx context.Context, actorID, userID string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if err := e.guard.CheckLock(userID); err != nil {
		return e.guardRejected(ctx, actorID, userID, "lock_user", err)
	}
	return nil
}

func (e *Engine) guardRejected(ctx context.Context, actorID, userID, operation string, cause error) error {
	e.metricInc(MetricGuardDenied)
	e.emit(ctx, AuditEvent{
		EventType: auditEventGuardDenied,
		UserID:    userID,
		ActorID:   actorID,
		Error:     cause.Error(),
		Metadata:  map[string]string{"operation": operation},
	})
	return cause
}
