// Package middleware exposes HTTP adapters for token validation and
// route-level authorization built on top of authcore.Engine.
//
// # Guards
//
//   - [Authenticate] — validates the bearer token and injects the caller's
//     identity into the request context.
//   - [RequirePermission] — authenticated callers holding a permission code.
//   - [RequireRole] — authenticated callers carrying a role code.
//   - [RequireExpression] — authenticated callers for whom an authorization
//     expression decides true.
//
// Each guard reads the configured auth header, calls the engine, and
// rejects with 401 (no valid token) or 403 (valid token, decision false).
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement authentication or authorization logic itself.
package middleware
