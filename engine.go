package authcore

import (
	"context"
	"crypto/rand"
	"math/big"
	"time"

	"github.com/kiratremon/authcore/authz"
	"github.com/kiratremon/authcore/guard"
	"github.com/kiratremon/authcore/jwt"
	"github.com/kiratremon/authcore/password"
	"github.com/kiratremon/authcore/session"
)

// Engine is the session, token, and authorization core. Build one with
// [New]; it is safe for concurrent use.
type Engine struct {
	config   Config
	sessions *session.Store
	tokens   *jwt.Manager
	authz    *authz.Engine
	guard    *guard.Guard
	users    UserProvider
	hasher   *password.Argon2
	audit    *auditDispatcher
	metrics  *Metrics
}

// Close flushes and stops the audit pipeline. The engine must not be used
// afterwards.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// Guard exposes the protected-identity gate for mutation-handling code
// that needs to consult it directly.
func (e *Engine) Guard() *guard.Guard {
	if e == nil {
		return nil
	}
	return e.guard
}

// HTTPConfig returns the transport header names the middleware reads.
func (e *Engine) HTTPConfig() HTTPConfig {
	if e == nil {
		return HTTPConfig{}
	}
	return e.config.HTTP
}

// PasswordHasher exposes the configured argon2id hasher, mainly so
// integrators can produce compatible hashes when seeding users.
func (e *Engine) PasswordHasher() *password.Argon2 {
	if e == nil {
		return nil
	}
	return e.hasher
}

// MetricsSnapshot copies the engine counters. Empty when metrics are
// disabled.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.Snapshot()
}

// AuditDropped reports how many audit events were dropped under pressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) emit(ctx context.Context, event AuditEvent) {
	if e == nil || e.audit == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.IP == "" {
		event.IP = clientIPFromContext(ctx)
	}
	e.audit.Emit(ctx, event)
}

// expressionErrorHook feeds authz failures into metrics and audit. The
// decision is already false by the time it runs.
func (e *Engine) expressionErrorHook(source string, err error) {
	e.metricInc(MetricExpressionError)
	e.emit(context.Background(), AuditEvent{
		EventType: auditEventExpressionError,
		Error:     err.Error(),
		Metadata:  map[string]string{"expression": source},
	})
}

// storeCtx bounds a session store round-trip.
func (e *Engine) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.config.Session.StoreTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, e.config.Session.StoreTimeout)
}

// sessionTTL is the registry TTL: it covers the refresh window when
// refresh tokens are enabled, the access window otherwise, plus optional
// jitter so fleets of sessions do not expire in lockstep.
func (e *Engine) sessionTTL() time.Duration {
	ttl := e.config.JWT.AccessTTL
	if e.tokens.RefreshEnabled() {
		ttl = e.config.JWT.RefreshTTL
	}
	if e.config.Session.JitterEnabled && e.config.Session.JitterRange > 0 {
		if n, err := rand.Int(rand.Reader, big.NewInt(int64(e.config.Session.JitterRange))); err == nil {
			ttl += time.Duration(n.Int64())
		}
	}
	return ttl
}
