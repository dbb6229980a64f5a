package authz

import (
	"context"
	"sync"
	"testing"
)

func memberIdentity() *Identity {
	return &Identity{
		UserID:      "u-100",
		Username:    "alice",
		TenantID:    "t-1",
		DeptID:      "d-20",
		Roles:       []string{"editor", "reviewer"},
		Permissions: []string{"article:read", "article:write"},
		DataScope:   ScopeDept,
	}
}

func superIdentity() *Identity {
	return &Identity{
		UserID:       "u-1",
		Username:     "root",
		Roles:        []string{"super_admin"},
		DataScope:    ScopeAll,
		IsSuperAdmin: true,
	}
}

func TestHasPermission(t *testing.T) {
	e := NewEngine(EngineConfig{})

	if !e.HasPermission(memberIdentity(), "article:read") {
		t.Fatal("expected granted permission to pass")
	}
	if e.HasPermission(memberIdentity(), "article:delete") {
		t.Fatal("expected missing permission to fail")
	}
	if e.HasPermission(nil, "article:read") {
		t.Fatal("expected nil identity to fail")
	}
}

func TestSuperAdminHasEveryPermission(t *testing.T) {
	e := NewEngine(EngineConfig{})

	for _, code := range []string{"article:read", "system:wipe", "never:granted:anywhere"} {
		if !e.HasPermission(superIdentity(), code) {
			t.Fatalf("super admin must pass %q", code)
		}
	}
}

func TestRoleChecks(t *testing.T) {
	e := NewEngine(EngineConfig{})
	id := memberIdentity()

	if !e.HasRole(id, "editor") {
		t.Fatal("expected held role to pass")
	}
	if e.HasRole(id, "admin") {
		t.Fatal("expected missing role to fail")
	}
	if !e.HasAnyRole(id, "admin", "reviewer") {
		t.Fatal("expected any-role with one held code to pass")
	}
	if e.HasAnyRole(id, "admin", "operator") {
		t.Fatal("expected any-role with no held code to fail")
	}
	if !e.HasAllRoles(id, "editor", "reviewer") {
		t.Fatal("expected all-roles with all held codes to pass")
	}
	if e.HasAllRoles(id, "editor", "admin") {
		t.Fatal("expected all-roles with a missing code to fail")
	}
	if !e.HasAllRoles(superIdentity(), "anything", "at", "all") {
		t.Fatal("super admin short-circuits all-roles")
	}
}

func TestEvaluateSimpleExpressions(t *testing.T) {
	e := NewEngine(EngineConfig{})
	ctx := context.Background()
	id := memberIdentity()

	if !e.Evaluate(ctx, id, `input.user_id == "u-100"`, nil) {
		t.Fatal("expected user id match to pass")
	}
	if e.Evaluate(ctx, id, `input.user_id == "u-999"`, nil) {
		t.Fatal("expected user id mismatch to fail")
	}
	if !e.Evaluate(ctx, id, `input.role_codes[_] == "editor"`, nil) {
		t.Fatal("expected role membership expression to pass")
	}
	if !e.Evaluate(ctx, id, `input.permissions[_] == "article:write"; input.tenant_id == "t-1"`, nil) {
		t.Fatal("expected conjunction to pass")
	}
}

func TestEvaluateExtraVariables(t *testing.T) {
	e := NewEngine(EngineConfig{})
	id := memberIdentity()

	ok := e.Evaluate(context.Background(), id, `input.extra.owner_id == input.user_id`, map[string]interface{}{
		"owner_id": "u-100",
	})
	if !ok {
		t.Fatal("expected extra variable binding to pass")
	}

	ok = e.Evaluate(context.Background(), id, `input.extra.owner_id == input.user_id`, map[string]interface{}{
		"owner_id": "u-200",
	})
	if ok {
		t.Fatal("expected extra variable mismatch to fail")
	}
}

func TestEvaluateSuperAdminShortCircuit(t *testing.T) {
	var reported []string
	e := NewEngine(EngineConfig{
		OnExpressionError: func(source string, err error) {
			reported = append(reported, source)
		},
	})

	// Even an expression that would error is never consulted for the
	// super administrator.
	if !e.Evaluate(context.Background(), superIdentity(), `1/0 == 1`, nil) {
		t.Fatal("super admin must pass without evaluation")
	}
	if e.CacheSize() != 0 {
		t.Fatal("short circuit must not compile anything")
	}
	if len(reported) != 0 {
		t.Fatal("short circuit must not report errors")
	}
}

func TestEvaluateErrorsDenyAndReport(t *testing.T) {
	var mu sync.Mutex
	var reported []string
	e := NewEngine(EngineConfig{
		OnExpressionError: func(source string, err error) {
			mu.Lock()
			reported = append(reported, source)
			mu.Unlock()
		},
	})
	id := memberIdentity()

	cases := []string{
		`1/0 == 1`,                  // runtime error
		`input.user_id ==`,          // parse error
		`no_such_function("x")`,     // unknown reference
	}
	for _, source := range cases {
		if e.Evaluate(context.Background(), id, source, nil) {
			t.Fatalf("expected %q to deny", source)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(reported) != len(cases) {
		t.Fatalf("expected %d reported errors, got %d", len(cases), len(reported))
	}
}

func TestEvaluateNonBooleanResultDenies(t *testing.T) {
	var mu sync.Mutex
	var reported []string
	e := NewEngine(EngineConfig{
		OnExpressionError: func(source string, err error) {
			mu.Lock()
			reported = append(reported, source)
			mu.Unlock()
		},
	})

	// A bare reference evaluates to its value, not a decision. It must
	// deny even when the value is defined, and even when the referenced
	// set is empty.
	id := &Identity{UserID: "u-100", Permissions: []string{}}
	cases := []string{
		`input.permissions`, // empty array, still defined
		`input.user_id`,     // non-empty string
		`{"a": 1}`,          // object literal
	}
	for _, source := range cases {
		if e.Evaluate(context.Background(), id, source, nil) {
			t.Fatalf("expected %q to deny", source)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(reported) != len(cases) {
		t.Fatalf("expected %d reported results, got %d", len(cases), len(reported))
	}
}

func TestEvaluateEmptySourceDenies(t *testing.T) {
	e := NewEngine(EngineConfig{})
	if e.Evaluate(context.Background(), memberIdentity(), "", nil) {
		t.Fatal("expected empty expression to deny")
	}
}

func TestExpressionCache(t *testing.T) {
	e := NewEngine(EngineConfig{})
	id := memberIdentity()
	ctx := context.Background()

	const source = `input.user_id == "u-100"`
	if !e.Evaluate(ctx, id, source, nil) {
		t.Fatal("expected expression to pass")
	}
	if e.CacheSize() != 1 {
		t.Fatalf("expected one cached expression, got %d", e.CacheSize())
	}

	// Same source, same compiled form; cache does not grow.
	if !e.Evaluate(ctx, id, source, nil) {
		t.Fatal("expected cached expression to pass")
	}
	if e.CacheSize() != 1 {
		t.Fatalf("expected cache size to stay at one, got %d", e.CacheSize())
	}

	e.ClearExpressionCache()
	if e.CacheSize() != 0 {
		t.Fatal("expected cache to be empty after clear")
	}
	if !e.Evaluate(ctx, id, source, nil) {
		t.Fatal("expected expression to pass after cache clear")
	}
}

func TestEvaluateConcurrent(t *testing.T) {
	e := NewEngine(EngineConfig{})
	id := memberIdentity()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if !e.Evaluate(context.Background(), id, `input.role_codes[_] == "editor"`, nil) {
					t.Error("expected concurrent evaluation to pass")
					return
				}
			}
		}()
	}
	wg.Wait()
}
