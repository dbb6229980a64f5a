package authcore

import (
	"errors"

	"github.com/kiratremon/authcore/guard"
	"github.com/kiratremon/authcore/session"
)

var (
	// ErrEngineNotReady is returned when an Engine method is called on a
	// nil or incompletely built engine.
	ErrEngineNotReady = errors.New("engine not ready")
	// ErrInvalidCredentials is returned for unknown users and wrong
	// passwords alike; the two are indistinguishable on purpose.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound is the sentinel user providers return for unknown
	// users; the engine maps it to ErrInvalidCredentials at login.
	ErrUserNotFound = errors.New("user not found")
	// ErrAccountDisabled is returned when the account exists but is not
	// enabled for login.
	ErrAccountDisabled = errors.New("account disabled")
	// ErrAccountLocked is returned when the account is locked.
	ErrAccountLocked = errors.New("account locked")
	// ErrTokenExpired means the token's signed expiry has passed; the
	// caller should refresh.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenMalformed means the token failed to parse or verify; the
	// caller should log in again.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrTokenRevoked means the token is signature-valid but its session
	// is absent or carries a different token identifier (rotated,
	// superseded, or revoked). The caller should log in again.
	ErrTokenRevoked = errors.New("token revoked")
	// ErrDeviceMismatch means a refresh token was presented from a device
	// other than the one it is pinned to.
	ErrDeviceMismatch = errors.New("device mismatch")
	// ErrSessionRevoked means a refresh was attempted against a session
	// that no longer exists or was superseded.
	ErrSessionRevoked = errors.New("session revoked")
	// ErrSessionLimitExceeded is returned at login when the per-user
	// device cap is reached.
	ErrSessionLimitExceeded = errors.New("session limit exceeded")
)

// ErrProtectedIdentity is the guard's veto. Re-exported so callers can
// match it without importing the guard package.
var ErrProtectedIdentity = guard.ErrViolation

// ErrStoreUnavailable wraps session store transport failures. During token
// validation an unreachable store denies; it never fails open.
var ErrStoreUnavailable = session.ErrRedisUnavailable
