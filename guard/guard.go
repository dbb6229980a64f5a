package guard

import (
	"errors"
	"fmt"

	"github.com/kiratremon/authcore/authz"
)

// ErrViolation is returned for every denied mutation. Callers must surface
// it verbatim, never mask it as a generic failure, so that broken admin
// tooling is visible instead of silently no-opping.
var ErrViolation = errors.New("protected identity violation")

// DefaultForbiddenFields are the security-sensitive user fields that can
// never be edited on a reserved identity. Field names are compared
// case-sensitively against the mutation's field set.
var DefaultForbiddenFields = []string{
	"username",
	"status",
	"roles",
	"permissions",
	"enabled",
	"accountNonLocked",
	"accountNonExpired",
	"credentialsNonExpired",
}

// Rule reserves one identity. ForbiddenFields defaults to
// DefaultForbiddenFields when empty.
type Rule struct {
	UserID          string
	Username        string
	ForbiddenFields []string
}

// Guard holds the static, configuration-defined rule set. Immutable after
// construction, safe for concurrent use.
type Guard struct {
	rules map[string]Rule
}

// New builds a Guard from rules. Rules without a user id are ignored.
func New(rules ...Rule) *Guard {
	g := &Guard{rules: make(map[string]Rule, len(rules))}
	for _, rule := range rules {
		if rule.UserID == "" {
			continue
		}
		if len(rule.ForbiddenFields) == 0 {
			rule.ForbiddenFields = DefaultForbiddenFields
		}
		g.rules[rule.UserID] = rule
	}
	return g
}

// IsReserved reports whether userID is a reserved identity.
func (g *Guard) IsReserved(userID string) bool {
	_, ok := g.rules[userID]
	return ok
}

// ReservedIdentity returns the fixed, code-defined authorization facts for
// a reserved identity. The second return is false for ordinary users.
func (g *Guard) ReservedIdentity(userID string) (*authz.Identity, bool) {
	rule, ok := g.rules[userID]
	if !ok {
		return nil, false
	}
	return &authz.Identity{
		UserID:       rule.UserID,
		Username:     rule.Username,
		Roles:        []string{"super_admin"},
		DataScope:    authz.ScopeAll,
		IsSuperAdmin: true,
	}, true
}

// CheckUpdateUser allows edits to a reserved identity only when fields does
// not touch the rule's forbidden set. Ordinary users always pass.
func (g *Guard) CheckUpdateUser(userID string, fields []string) error {
	rule, ok := g.rules[userID]
	if !ok {
		return nil
	}
	for _, field := range fields {
		for _, forbidden := range rule.ForbiddenFields {
			if field == forbidden {
				return fmt.Errorf("%w: field %q of user %s is immutable", ErrViolation, field, userID)
			}
		}
	}
	return nil
}

// CheckUpdateRoles denies any role change on a reserved identity.
func (g *Guard) CheckUpdateRoles(userID string) error {
	return g.denyReserved(userID, "role assignment")
}

// CheckUpdatePermissions denies any permission change on a reserved identity.
func (g *Guard) CheckUpdatePermissions(userID string) error {
	return g.denyReserved(userID, "permission assignment")
}

// CheckDelete denies deletion of a reserved identity.
func (g *Guard) CheckDelete(userID string) error {
	return g.denyReserved(userID, "deletion")
}

// CheckDisable denies disabling a reserved identity.
func (g *Guard) CheckDisable(userID string) error {
	return g.denyReserved(userID, "disabling")
}

// CheckLock denies locking a reserved identity.
func (g *Guard) CheckLock(userID string) error {
	return g.denyReserved(userID, "locking")
}

// CheckForceLogout denies forced logout of a reserved identity by anyone
// but itself. Forcing the reserved account offline would otherwise be a
// lockout-as-attack vector.
func (g *Guard) CheckForceLogout(actorID, targetID string) error {
	if !g.IsReserved(targetID) || actorID == targetID {
		return nil
	}
	return fmt.Errorf("%w: forced logout of user %s", ErrViolation, targetID)
}

func (g *Guard) denyReserved(userID, what string) error {
	if !g.IsReserved(userID) {
		return nil
	}
	return fmt.Errorf("%w: %s of user %s", ErrViolation, what, userID)
}
