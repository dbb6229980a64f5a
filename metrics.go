package authcore

import "sync/atomic"

// MetricID indexes one engine counter.
type MetricID uint16

const (
	// MetricLoginSuccess counts successful logins.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts rejected logins.
	MetricLoginFailure
	// MetricRefreshSuccess counts successful token rotations.
	MetricRefreshSuccess
	// MetricRefreshFailure counts rejected refresh attempts.
	MetricRefreshFailure
	// MetricValidateSuccess counts accepted access tokens.
	MetricValidateSuccess
	// MetricValidateRevoked counts tokens rejected as revoked or stale.
	MetricValidateRevoked
	// MetricValidateExpired counts tokens rejected as expired.
	MetricValidateExpired
	// MetricValidateMalformed counts tokens rejected as malformed.
	MetricValidateMalformed
	// MetricSessionCreated counts registered sessions.
	MetricSessionCreated
	// MetricSessionSuperseded counts logins that replaced a live session
	// on the same device.
	MetricSessionSuperseded
	// MetricLogout counts voluntary logouts.
	MetricLogout
	// MetricForceLogout counts administrative single-device revocations.
	MetricForceLogout
	// MetricForceLogoutAll counts administrative all-device revocations.
	MetricForceLogoutAll
	// MetricGuardDenied counts protected-identity vetoes.
	MetricGuardDenied
	// MetricExpressionError counts expressions decided false due to a
	// compile or runtime failure.
	MetricExpressionError
	// MetricStoreUnavailable counts Redis transport failures.
	MetricStoreUnavailable

	metricCount
)

// Metrics is a fixed table of atomic counters. All methods are safe for
// concurrent use and are no-ops on a nil receiver.
type Metrics struct {
	counters [metricCount]atomic.Uint64
}

// NewMetrics returns a zeroed counter table.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// Inc increments one counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || id >= metricCount {
		return
	}
	m.counters[id].Add(1)
}

// Value reads one counter.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricCount {
		return 0
	}
	return m.counters[id].Load()
}

// MetricsSnapshot is a point-in-time copy of every counter.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

// Snapshot copies the counters. Counters written concurrently with the
// copy may or may not be included; each individual read is atomic.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{Counters: make(map[MetricID]uint64, metricCount)}
	if m == nil {
		return snap
	}
	for id := MetricID(0); id < metricCount; id++ {
		snap.Counters[id] = m.counters[id].Load()
	}
	return snap
}
