package authz

// Identity is the read-only snapshot of a caller used for authorization
// decisions. It is built once per request from a validated token plus a
// lookup of current role and permission assignments, and never mutated in
// place.
type Identity struct {
	UserID   string
	Username string
	TenantID string
	DeptID   string

	Roles       []string
	Permissions []string

	DataScope    DataScope
	IsSuperAdmin bool
}

func (id *Identity) hasRole(code string) bool {
	for _, role := range id.Roles {
		if role == code {
			return true
		}
	}
	return false
}

func (id *Identity) hasPermission(code string) bool {
	for _, perm := range id.Permissions {
		if perm == code {
			return true
		}
	}
	return false
}
