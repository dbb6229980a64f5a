package authz

import (
	"reflect"
	"testing"
)

func TestScopePredicateSuperAdminUnrestricted(t *testing.T) {
	id := superIdentity()
	id.DataScope = ScopeSelf // assigned scope is irrelevant for the super admin

	filter := ScopePredicate(id)
	if !filter.Unrestricted || filter.Scope != ScopeAll {
		t.Fatalf("expected unrestricted filter, got %+v", filter)
	}
}

func TestScopePredicatePerScope(t *testing.T) {
	base := memberIdentity()

	cases := []struct {
		scope DataScope
		want  ScopeFilter
	}{
		{ScopeAll, ScopeFilter{Scope: ScopeAll, Unrestricted: true}},
		{ScopeCustom, ScopeFilter{Scope: ScopeCustom, RoleCodes: []string{"editor", "reviewer"}}},
		{ScopeDept, ScopeFilter{Scope: ScopeDept, DeptID: "d-20"}},
		{ScopeDeptAndChildren, ScopeFilter{Scope: ScopeDeptAndChildren, DeptID: "d-20", IncludeChildren: true}},
		{ScopeSelf, ScopeFilter{Scope: ScopeSelf, UserID: "u-100"}},
	}
	for _, tc := range cases {
		id := *base
		id.DataScope = tc.scope
		got := ScopePredicate(&id)
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("scope %v: got %+v, want %+v", tc.scope, got, tc.want)
		}
	}
}

func TestScopePredicateNilIdentity(t *testing.T) {
	filter := ScopePredicate(nil)
	if filter.Unrestricted {
		t.Fatal("nil identity must never be unrestricted")
	}
	if filter.Scope != ScopeSelf || filter.UserID != "" {
		t.Fatalf("expected empty self filter, got %+v", filter)
	}
}

func TestDataScopeString(t *testing.T) {
	if ScopeDeptAndChildren.String() != "dept_and_children" {
		t.Fatalf("unexpected string %q", ScopeDeptAndChildren.String())
	}
	if DataScope(0).String() != "unknown" {
		t.Fatalf("unexpected zero-value string %q", DataScope(0).String())
	}
}
