package authcore

import (
	"errors"
	"time"
)

// Config defines the engine's behavior. Configure it before Build; treat it
// as immutable afterwards.
type Config struct {
	JWT      JWTConfig
	Session  SessionConfig
	Authz    AuthzConfig
	Guard    GuardConfig
	Password PasswordConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
	HTTP     HTTPConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig controls token issuance. SigningMethod is "ed25519" (default)
// or "hs256". A zero RefreshTTL disables refresh tokens entirely.
type JWTConfig struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod string
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Leeway        time.Duration
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls the Redis session registry. The registry TTL
// always covers the longest-lived outstanding token so key eviction can
// never race an explicit expiry check.
type SessionConfig struct {
	RedisPrefix string

	// MaxDevicesPerUser caps concurrent live sessions per user. Zero
	// means unlimited. A login from an already-registered device never
	// counts against the cap (it supersedes).
	MaxDevicesPerUser int

	// JitterEnabled spreads session TTLs by up to JitterRange to avoid
	// synchronized expiry storms.
	JitterEnabled bool
	JitterRange   time.Duration

	// TouchOnValidate updates the session's last-active timestamp on
	// every successful token validation. Best effort.
	TouchOnValidate bool

	// StoreTimeout bounds each Redis round-trip.
	StoreTimeout time.Duration
}

/*
====================================
AUTHZ CONFIG
====================================
*/

// AuthzConfig controls the authorization engine.
type AuthzConfig struct {
	// ExpressionTimeout bounds a single Rego expression evaluation.
	ExpressionTimeout time.Duration
}

/*
====================================
GUARD CONFIG
====================================
*/

// ReservedIdentity reserves one built-in account.
type ReservedIdentity struct {
	UserID   string
	Username string
	// ForbiddenFields overrides guard.DefaultForbiddenFields when set.
	ForbiddenFields []string
}

// GuardConfig lists the reserved identities the guard protects.
type GuardConfig struct {
	Reserved []ReservedIdentity
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds the argon2id cost parameters used to verify (and,
// for integrators that want it, produce) credential hashes. Memory is in
// KiB.
type PasswordConfig struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit pipeline.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull drops events instead of blocking the request path when
	// the buffer is full. Dropped events are counted.
	DropIfFull bool
}

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

/*
====================================
HTTP CONFIG
====================================
*/

// HTTPConfig names the transport headers the middleware reads.
type HTTPConfig struct {
	AuthHeader     string
	AuthPrefix     string
	DeviceIDHeader string
}

// DefaultConfig returns the baseline configuration: 15 minute access
// tokens, 7 day refresh tokens, audit and metrics enabled.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    7 * 24 * time.Hour,
			SigningMethod: "ed25519",
			Leeway:        30 * time.Second,
		},
		Session: SessionConfig{
			RedisPrefix:     "session",
			TouchOnValidate: true,
			StoreTimeout:    2 * time.Second,
		},
		Authz: AuthzConfig{
			ExpressionTimeout: 250 * time.Millisecond,
		},
		Password: PasswordConfig{
			Memory:      64 * 1024,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{Enabled: true},
		HTTP: HTTPConfig{
			AuthHeader:     "Authorization",
			AuthPrefix:     "Bearer ",
			DeviceIDHeader: "Device-ID",
		},
	}
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.JWT.AccessTTL <= 0 {
		return errors.New("config: access TTL must be positive")
	}
	if c.JWT.RefreshTTL < 0 {
		return errors.New("config: refresh TTL must not be negative")
	}
	if c.JWT.RefreshTTL > 0 && c.JWT.RefreshTTL < c.JWT.AccessTTL {
		return errors.New("config: refresh TTL must not be shorter than access TTL")
	}
	switch c.JWT.SigningMethod {
	case "ed25519", "hs256":
	default:
		return errors.New("config: unsupported signing method")
	}
	if c.Session.MaxDevicesPerUser < 0 {
		return errors.New("config: max devices per user must not be negative")
	}
	if c.Session.JitterEnabled && c.Session.JitterRange <= 0 {
		return errors.New("config: jitter enabled without a range")
	}
	if c.Session.JitterRange >= c.JWT.AccessTTL && c.Session.JitterEnabled {
		return errors.New("config: jitter range must be below the access TTL")
	}
	if c.Session.StoreTimeout < 0 {
		return errors.New("config: store timeout must not be negative")
	}
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("config: audit enabled without a buffer")
	}
	for _, reserved := range c.Guard.Reserved {
		if reserved.UserID == "" {
			return errors.New("config: reserved identity without a user id")
		}
	}
	if c.HTTP.AuthHeader == "" {
		return errors.New("config: auth header must be set")
	}
	return nil
}
