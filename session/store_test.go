package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewStore(rdb, "as")

	return store, mr, func() {
		_ = rdb.Close()
		mr.Close()
	}
}

func testSession(userID, deviceID, tokenID string) *Session {
	now := time.Now()
	return &Session{
		UserID:       userID,
		DeviceID:     deviceID,
		TokenID:      tokenID,
		IssuedAt:     now.Unix(),
		ExpiresAt:    now.Add(time.Hour).Unix(),
		LastActiveAt: now.Unix(),
		SourceIP:     "203.0.113.7",
		UserAgent:    "test-agent",
		DeviceType:   "desktop",
	}
}

func TestRegisterThenValidate(t *testing.T) {
	store, _, done := newTestStore(t)
	defer done()
	ctx := context.Background()

	if err := store.Register(ctx, testSession("alice", "phone-1", "tok-1"), time.Hour); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	status, err := store.Validate(ctx, "alice", "phone-1", "tok-1")
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if status != StatusValid {
		t.Fatalf("expected valid, got %v", status)
	}
}

func TestValidateAbsentSession(t *testing.T) {
	store, _, done := newTestStore(t)
	defer done()

	status, err := store.Validate(context.Background(), "alice", "phone-1", "tok-1")
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if status != StatusAbsent {
		t.Fatalf("expected absent, got %v", status)
	}
}

func TestRegisterSupersedesPriorSession(t *testing.T) {
	store, _, done := newTestStore(t)
	defer done()
	ctx := context.Background()

	if err := store.Register(ctx, testSession("alice", "phone-1", "tok-1"), time.Hour); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	if err := store.Register(ctx, testSession("alice", "phone-1", "tok-2"), time.Hour); err != nil {
		t.Fatalf("second register failed: %v", err)
	}

	status, err := store.Validate(ctx, "alice", "phone-1", "tok-1")
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if status != StatusStale {
		t.Fatalf("expected stale for superseded token, got %v", status)
	}

	status, err = store.Validate(ctx, "alice", "phone-1", "tok-2")
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if status != StatusValid {
		t.Fatalf("expected valid for current token, got %v", status)
	}

	sessions, err := store.List(ctx, "alice")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected exactly one session, got %d", len(sessions))
	}
	if sessions[0].DeviceID != "phone-1" || sessions[0].TokenID != "tok-2" {
		t.Fatalf("unexpected session %+v", sessions[0])
	}
}

func TestRevokeIsIdempotent(t *testing.T) {
	store, _, done := newTestStore(t)
	defer done()
	ctx := context.Background()

	if err := store.Register(ctx, testSession("alice", "phone-1", "tok-1"), time.Hour); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if err := store.Revoke(ctx, "alice", "phone-1"); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	if err := store.Revoke(ctx, "alice", "phone-1"); err != nil {
		t.Fatalf("second revoke should be a no-op, got %v", err)
	}

	status, err := store.Validate(ctx, "alice", "phone-1", "tok-1")
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if status != StatusAbsent {
		t.Fatalf("expected absent after revoke, got %v", status)
	}
}

func TestRevokeAll(t *testing.T) {
	store, _, done := newTestStore(t)
	defer done()
	ctx := context.Background()

	for _, device := range []string{"phone-1", "laptop-1", "tablet-1"} {
		if err := store.Register(ctx, testSession("alice", device, "tok-"+device), time.Hour); err != nil {
			t.Fatalf("register %s failed: %v", device, err)
		}
	}
	if err := store.Register(ctx, testSession("bob", "phone-9", "tok-bob"), time.Hour); err != nil {
		t.Fatalf("register bob failed: %v", err)
	}

	if err := store.RevokeAll(ctx, "alice"); err != nil {
		t.Fatalf("revoke all failed: %v", err)
	}

	sessions, err := store.List(ctx, "alice")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(sessions) != 0 {
		t.Fatalf("expected no sessions after revoke all, got %d", len(sessions))
	}

	status, err := store.Validate(ctx, "bob", "phone-9", "tok-bob")
	if err != nil {
		t.Fatalf("validate bob failed: %v", err)
	}
	if status != StatusValid {
		t.Fatalf("bob's session should be untouched, got %v", status)
	}
}

func TestRotateSwapsTokenAtomically(t *testing.T) {
	store, _, done := newTestStore(t)
	defer done()
	ctx := context.Background()

	if err := store.Register(ctx, testSession("alice", "phone-1", "tok-1"), time.Hour); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	status, err := store.Rotate(ctx, "tok-1", testSession("alice", "phone-1", "tok-2"), time.Hour)
	if err != nil {
		t.Fatalf("rotate failed: %v", err)
	}
	if status != Rotated {
		t.Fatalf("expected rotated, got %v", status)
	}

	vstatus, err := store.Validate(ctx, "alice", "phone-1", "tok-1")
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if vstatus != StatusStale {
		t.Fatalf("old token should be stale after rotation, got %v", vstatus)
	}

	vstatus, err = store.Validate(ctx, "alice", "phone-1", "tok-2")
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if vstatus != StatusValid {
		t.Fatalf("new token should be valid, got %v", vstatus)
	}
}

func TestRotateDetectsConcurrentRotation(t *testing.T) {
	store, _, done := newTestStore(t)
	defer done()
	ctx := context.Background()

	if err := store.Register(ctx, testSession("alice", "phone-1", "tok-2"), time.Hour); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	// tok-1 is no longer current; the loser of a rotation race must not win.
	status, err := store.Rotate(ctx, "tok-1", testSession("alice", "phone-1", "tok-3"), time.Hour)
	if err != nil {
		t.Fatalf("rotate failed: %v", err)
	}
	if status != RotateMismatch {
		t.Fatalf("expected mismatch, got %v", status)
	}

	vstatus, err := store.Validate(ctx, "alice", "phone-1", "tok-2")
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if vstatus != StatusValid {
		t.Fatalf("current token must survive a failed rotation, got %v", vstatus)
	}
}

func TestRotateAbsentSession(t *testing.T) {
	store, _, done := newTestStore(t)
	defer done()

	status, err := store.Rotate(context.Background(), "tok-1", testSession("alice", "phone-1", "tok-2"), time.Hour)
	if err != nil {
		t.Fatalf("rotate failed: %v", err)
	}
	if status != RotateAbsent {
		t.Fatalf("expected absent, got %v", status)
	}
}

func TestValidateAfterKeyExpiry(t *testing.T) {
	store, mr, done := newTestStore(t)
	defer done()
	ctx := context.Background()

	if err := store.Register(ctx, testSession("alice", "phone-1", "tok-1"), time.Minute); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	status, err := store.Validate(ctx, "alice", "phone-1", "tok-1")
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if status != StatusAbsent {
		t.Fatalf("expected absent after ttl expiry, got %v", status)
	}
}

func TestValidateRejectsLogicallyExpiredSession(t *testing.T) {
	store, _, done := newTestStore(t)
	defer done()
	ctx := context.Background()

	sess := testSession("alice", "phone-1", "tok-1")
	sess.ExpiresAt = time.Now().Add(-time.Minute).Unix()

	// Generous key TTL: the embedded expiry must still win.
	if err := store.Register(ctx, sess, time.Hour); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	status, err := store.Validate(ctx, "alice", "phone-1", "tok-1")
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if status != StatusAbsent {
		t.Fatalf("expected absent for logically expired session, got %v", status)
	}
}

func TestTouchUpdatesLastActive(t *testing.T) {
	store, _, done := newTestStore(t)
	defer done()
	ctx := context.Background()

	sess := testSession("alice", "phone-1", "tok-1")
	sess.LastActiveAt = 0
	if err := store.Register(ctx, sess, time.Hour); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	at := time.Now().Add(5 * time.Minute)
	if err := store.Touch(ctx, "alice", "phone-1", at); err != nil {
		t.Fatalf("touch failed: %v", err)
	}

	sessions, err := store.List(ctx, "alice")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected one session, got %d", len(sessions))
	}
	if sessions[0].LastActiveAt != at.Unix() {
		t.Fatalf("expected last active %d, got %d", at.Unix(), sessions[0].LastActiveAt)
	}
	if sessions[0].TokenID != "tok-1" {
		t.Fatal("touch must not disturb the token binding")
	}
}

func TestTouchAbsentSessionIsNoOp(t *testing.T) {
	store, _, done := newTestStore(t)
	defer done()

	if err := store.Touch(context.Background(), "alice", "phone-1", time.Now()); err != nil {
		t.Fatalf("touch of absent session should be silent, got %v", err)
	}
}

func TestCountSkipsExpired(t *testing.T) {
	store, mr, done := newTestStore(t)
	defer done()
	ctx := context.Background()

	if err := store.Register(ctx, testSession("alice", "phone-1", "tok-1"), time.Minute); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if err := store.Register(ctx, testSession("alice", "laptop-1", "tok-2"), time.Hour); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	n, err := store.Count(ctx, "alice")
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected one live session, got %d", n)
	}
}
