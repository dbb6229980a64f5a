// Package authz answers "may this caller perform that action".
//
// Decisions come in two forms: static checks against the caller's role and
// permission code sets, and dynamic checks that evaluate an operator-written
// Rego expression against a fixed variable document. Both forms
// short-circuit to allow for the super administrator before any expression
// is compiled or run, so an expression can never be used to deny the
// reserved identity. Expression failures of any kind (parse, type, unknown
// reference) are logged and decided as false: a broken or hostile
// expression must never fail open.
//
// The compiled-expression cache is pure memoization keyed by source text.
// It can be cleared at any time without affecting authorization state, and
// a miss under concurrent load may compile the same source twice, which is
// harmless.
package authz
