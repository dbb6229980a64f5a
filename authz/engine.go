package authz

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/open-policy-agent/opa/v1/rego"
)

// EngineConfig tunes the authorization engine.
type EngineConfig struct {
	// EvalTimeout bounds a single expression evaluation. Zero means the
	// caller's context is the only bound.
	EvalTimeout time.Duration

	// OnExpressionError is invoked whenever compiling or evaluating an
	// expression fails. The decision is already false by then; the hook
	// exists for operability. May be nil.
	OnExpressionError func(source string, err error)
}

// Engine makes authorization decisions. Safe for concurrent use; the only
// mutable state is the compiled-expression cache.
type Engine struct {
	config EngineConfig

	mu    sync.RWMutex
	cache map[string]rego.PreparedEvalQuery
}

// NewEngine returns an Engine with an empty expression cache.
func NewEngine(cfg EngineConfig) *Engine {
	return &Engine{
		config: cfg,
		cache:  make(map[string]rego.PreparedEvalQuery),
	}
}

// HasPermission reports whether id may exercise the permission code. Always
// true for the super administrator, including codes never granted anywhere.
func (e *Engine) HasPermission(id *Identity, code string) bool {
	if id == nil {
		return false
	}
	return id.IsSuperAdmin || id.hasPermission(code)
}

// HasRole reports whether id carries the role code.
func (e *Engine) HasRole(id *Identity, code string) bool {
	if id == nil {
		return false
	}
	return id.IsSuperAdmin || id.hasRole(code)
}

// HasAnyRole reports whether id carries at least one of the codes.
func (e *Engine) HasAnyRole(id *Identity, codes ...string) bool {
	if id == nil {
		return false
	}
	if id.IsSuperAdmin {
		return true
	}
	for _, code := range codes {
		if id.hasRole(code) {
			return true
		}
	}
	return false
}

// HasAllRoles reports whether id carries every one of the codes.
func (e *Engine) HasAllRoles(id *Identity, codes ...string) bool {
	if id == nil {
		return false
	}
	if id.IsSuperAdmin {
		return true
	}
	for _, code := range codes {
		if !id.hasRole(code) {
			return false
		}
	}
	return true
}

// Evaluate decides a Rego expression for id. The expression sees a fixed
// input document:
//
//	input.user         object with id, username, tenant_id, dept_id, data_scope
//	input.user_id      string
//	input.role_codes   []string
//	input.permissions  []string
//	input.tenant_id    string
//	input.now          unix seconds
//	input.extra        caller-supplied extras
//
// The super-admin short circuit runs before compilation: an expression is
// never consulted for the reserved identity. The decision is true only when
// every expression in the result set evaluates to boolean true. Any compile
// or runtime failure, and any defined non-boolean result, is reported
// through OnExpressionError and decided as false.
func (e *Engine) Evaluate(ctx context.Context, id *Identity, source string, extra map[string]interface{}) bool {
	if id == nil || source == "" {
		return false
	}
	if id.IsSuperAdmin {
		return true
	}

	if e.config.EvalTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.EvalTimeout)
		defer cancel()
	}

	pq, err := e.prepared(ctx, source)
	if err != nil {
		e.reportError(source, err)
		return false
	}

	rs, err := pq.Eval(ctx, rego.EvalInput(inputDocument(id, extra)))
	if err != nil {
		e.reportError(source, err)
		return false
	}
	if len(rs) == 0 {
		return false
	}
	for _, result := range rs {
		if len(result.Expressions) == 0 {
			return false
		}
		for _, expr := range result.Expressions {
			value, ok := expr.Value.(bool)
			if !ok {
				// A bare reference like `input.permissions` yields its
				// value, not a decision. Only boolean true grants.
				e.reportError(source, fmt.Errorf("non-boolean expression result of type %T", expr.Value))
				return false
			}
			if !value {
				return false
			}
		}
	}
	return true
}

// ClearExpressionCache drops every compiled expression. Safe at any time:
// the cache is pure memoization, never a source of authorization state.
func (e *Engine) ClearExpressionCache() {
	e.mu.Lock()
	e.cache = make(map[string]rego.PreparedEvalQuery)
	e.mu.Unlock()
}

// CacheSize returns the number of cached compiled expressions.
func (e *Engine) CacheSize() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.cache)
}

// prepared returns the compiled form of source, compiling on miss. Two
// concurrent misses may compile the same source twice; the second write
// wins and the extra work is bounded.
func (e *Engine) prepared(ctx context.Context, source string) (rego.PreparedEvalQuery, error) {
	e.mu.RLock()
	pq, ok := e.cache[source]
	e.mu.RUnlock()
	if ok {
		return pq, nil
	}

	pq, err := rego.New(
		rego.Query(source),
		rego.StrictBuiltinErrors(true),
	).PrepareForEval(ctx)
	if err != nil {
		return rego.PreparedEvalQuery{}, err
	}

	e.mu.Lock()
	e.cache[source] = pq
	e.mu.Unlock()
	return pq, nil
}

func (e *Engine) reportError(source string, err error) {
	if e.config.OnExpressionError != nil {
		e.config.OnExpressionError(source, err)
	}
}

func inputDocument(id *Identity, extra map[string]interface{}) map[string]interface{} {
	roles := make([]interface{}, len(id.Roles))
	for i, role := range id.Roles {
		roles[i] = role
	}
	perms := make([]interface{}, len(id.Permissions))
	for i, perm := range id.Permissions {
		perms[i] = perm
	}

	doc := map[string]interface{}{
		"user": map[string]interface{}{
			"id":         id.UserID,
			"username":   id.Username,
			"tenant_id":  id.TenantID,
			"dept_id":    id.DeptID,
			"data_scope": id.DataScope.String(),
		},
		"user_id":     id.UserID,
		"role_codes":  roles,
		"permissions": perms,
		"tenant_id":   id.TenantID,
		"now":         time.Now().Unix(),
	}
	if len(extra) > 0 {
		doc["extra"] = extra
	}
	return doc
}
