package authz

// DataScope describes how broadly a caller's queries may range over
// organizational data.
type DataScope int

const (
	// ScopeAll grants unrestricted range.
	ScopeAll DataScope = iota + 1
	// ScopeCustom restricts to the department list configured on the
	// caller's roles; the data layer resolves the list from the role codes.
	ScopeCustom
	// ScopeDept restricts to the caller's own department.
	ScopeDept
	// ScopeDeptAndChildren restricts to the caller's department and its
	// descendants.
	ScopeDeptAndChildren
	// ScopeSelf restricts to rows owned by the caller.
	ScopeSelf
)

func (s DataScope) String() string {
	switch s {
	case ScopeAll:
		return "all"
	case ScopeCustom:
		return "custom"
	case ScopeDept:
		return "dept"
	case ScopeDeptAndChildren:
		return "dept_and_children"
	case ScopeSelf:
		return "self"
	default:
		return "unknown"
	}
}

// ScopeFilter describes the row filter a data layer must apply for a
// caller. This package never touches storage; the description is the whole
// contract.
type ScopeFilter struct {
	Scope DataScope

	// Unrestricted is set for ScopeAll and for the super administrator
	// regardless of assigned scope.
	Unrestricted bool

	// DeptID is set for ScopeDept and ScopeDeptAndChildren.
	DeptID string
	// IncludeChildren distinguishes ScopeDeptAndChildren from ScopeDept.
	IncludeChildren bool

	// RoleCodes is set for ScopeCustom so the data layer can resolve the
	// configured department list.
	RoleCodes []string

	// UserID is set for ScopeSelf.
	UserID string
}

// ScopePredicate derives the row filter for id. Pure function of its input.
func ScopePredicate(id *Identity) ScopeFilter {
	if id == nil {
		// No identity, no rows.
		return ScopeFilter{Scope: ScopeSelf}
	}
	if id.IsSuperAdmin || id.DataScope == ScopeAll {
		return ScopeFilter{Scope: ScopeAll, Unrestricted: true}
	}

	switch id.DataScope {
	case ScopeCustom:
		return ScopeFilter{Scope: ScopeCustom, RoleCodes: append([]string(nil), id.Roles...)}
	case ScopeDept:
		return ScopeFilter{Scope: ScopeDept, DeptID: id.DeptID}
	case ScopeDeptAndChildren:
		return ScopeFilter{Scope: ScopeDeptAndChildren, DeptID: id.DeptID, IncludeChildren: true}
	default:
		return ScopeFilter{Scope: ScopeSelf, UserID: id.UserID}
	}
}
