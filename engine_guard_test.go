package authcore

import (
	"context"
	"errors"
	"testing"
)

func TestGuardGatesDenyReservedMutations(t *testing.T) {
	engine, _, _, done := newTestEngine(t, testConfig(), nil)
	defer done()

	ctx := context.Background()
	checks := map[string]func() error{
		"update_roles":       func() error { return engine.GuardUpdateUserRoles(ctx, "u-operator", testAdminID) },
		"update_permissions": func() error { return engine.GuardUpdateUserPermissions(ctx, "u-operator", testAdminID) },
		"delete":             func() error { return engine.GuardDeleteUser(ctx, "u-operator", testAdminID) },
		"disable":            func() error { return engine.GuardDisableUser(ctx, "u-operator", testAdminID) },
		"lock":               func() error { return engine.GuardLockUser(ctx, "u-operator", testAdminID) },
	}
	for name, check := range checks {
		if err := check(); !errors.Is(err, ErrProtectedIdentity) {
			t.Fatalf("%s: expected ErrProtectedIdentity, got %v", name, err)
		}
	}
	if got := engine.metrics.Value(MetricGuardDenied); got != uint64(len(checks)) {
		t.Fatalf("expected MetricGuardDenied=%d, got %d", len(checks), got)
	}
}

func TestGuardUpdateUserFieldLevel(t *testing.T) {
	sink := NewChannelSink(16)
	engine, _, _, done := newTestEngine(t, testConfig(), sink)
	defer done()

	ctx := context.Background()
	if err := engine.GuardUpdateUser(ctx, "u-operator", testAdminID, []string{"username"}); !errors.Is(err, ErrProtectedIdentity) {
		t.Fatalf("expected username edit denied, got %v", err)
	}
	// One forbidden field poisons the whole update.
	if err := engine.GuardUpdateUser(ctx, "u-operator", testAdminID, []string{"nickname", "status"}); !errors.Is(err, ErrProtectedIdentity) {
		t.Fatalf("expected mixed update denied, got %v", err)
	}
	if err := engine.GuardUpdateUser(ctx, "u-operator", testAdminID, []string{"nickname", "avatar"}); err != nil {
		t.Fatalf("expected harmless update allowed, got %v", err)
	}

	ev := waitForAudit(t, sink, auditEventGuardDenied)
	if ev.Metadata["operation"] != "update_user" {
		t.Fatalf("unexpected audit metadata %v", ev.Metadata)
	}
}

func TestGuardGatesPassOrdinaryUsers(t *testing.T) {
	engine, _, _, done := newTestEngine(t, testConfig(), nil)
	defer done()

	ctx := context.Background()
	if err := engine.GuardUpdateUser(ctx, "u-operator", "u-100", []string{"username", "roles"}); err != nil {
		t.Fatalf("expected ordinary update allowed, got %v", err)
	}
	if err := engine.GuardDeleteUser(ctx, "u-operator", "u-100"); err != nil {
		t.Fatalf("expected ordinary delete allowed, got %v", err)
	}
	if got := engine.metrics.Value(MetricGuardDenied); got != 0 {
		t.Fatalf("expected no guard denials, got %d", got)
	}
}
