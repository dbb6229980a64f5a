package authcore

import (
	"context"

	"github.com/kiratremon/authcore/authz"
)

// HasPermission reports whether id may exercise the permission code.
func (e *Engine) HasPermission(id *authz.Identity, code string) bool {
	if e == nil {
		return false
	}
	return e.authz.HasPermission(id, code)
}

// HasRole reports whether id carries the role code.
func (e *Engine) HasRole(id *authz.Identity, code string) bool {
	if e == nil {
		return false
	}
	return e.authz.HasRole(id, code)
}

// HasAnyRole reports whether id carries at least one of the codes.
func (e *Engine) HasAnyRole(id *authz.Identity, codes ...string) bool {
	if e == nil {
		return false
	}
	return e.authz.HasAnyRole(id, codes...)
}

// HasAllRoles reports whether id carries every one of the codes.
func (e *Engine) HasAllRoles(id *authz.Identity, codes ...string) bool {
	if e == nil {
		return false
	}
	return e.authz.HasAllRoles(id, codes...)
}

// EvaluateExpression decides an authorization expression for id. See
// [authz.Engine.Evaluate] for the input document the expression sees.
// Failures are decided as false, never as errors.
func (e *Engine) EvaluateExpression(ctx context.Context, id *authz.Identity, source string, extra map[string]interface{}) bool {
	if e == nil {
		return false
	}
	return e.authz.Evaluate(ctx, id, source, extra)
}

// ScopeFor derives the data-visibility filter for id.
func (e *Engine) ScopeFor(id *authz.Identity) authz.ScopeFilter {
	return authz.ScopePredicate(id)
}

// ClearExpressionCache drops every compiled authorization expression.
func (e *Engine) ClearExpressionCache() {
	if e == nil {
		return
	}
	e.authz.ClearExpressionCache()
}

// ExpressionCacheSize returns the number of cached compiled expressions.
func (e *Engine) ExpressionCacheSize() int {
	if e == nil {
		return 0
	}
	return e.authz.CacheSize()
}
