package authcore

import (
	"context"
	"time"

	"github.com/kiratremon/authcore/authz"
)

// AccountStatus is the lifecycle state of a user account.
type AccountStatus uint8

const (
	// AccountActive accounts may log in.
	AccountActive AccountStatus = iota
	// AccountDisabled accounts are rejected at login with
	// [ErrAccountDisabled].
	AccountDisabled
	// AccountLocked accounts are rejected at login with [ErrAccountLocked].
	AccountLocked
)

// UserProvider is the external user-lookup collaborator. Implementations
// back it with whatever identity store they have; the engine only reads.
// Lookups for unknown users return [ErrUserNotFound].
type UserProvider interface {
	GetUserByUsername(ctx context.Context, username string) (UserRecord, error)
	GetUserByID(ctx context.Context, userID string) (UserRecord, error)
}

// UserRecord is the account snapshot returned by [UserProvider]. Roles and
// Permissions are the current assignments; the engine re-reads them on
// every token validation so revocations take effect without waiting for
// token expiry.
type UserRecord struct {
	UserID       string
	Username     string
	PasswordHash string
	Status       AccountStatus
	TenantID     string
	DeptID       string
	Roles        []string
	Permissions  []string
	DataScope    authz.DataScope
}

// LoginResult carries the issued credentials. RefreshToken is empty when
// refresh tokens are disabled. DeviceID echoes the caller's device id, or
// the generated one when the caller supplied none; clients must persist it
// and present it on refresh and logout.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	DeviceID     string
	UserID       string
	ExpiresAt    time.Time
}
