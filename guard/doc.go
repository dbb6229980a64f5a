// Package guard vetoes mutations against reserved identities before they
// execute.
//
// A reserved identity is a built-in account (typically the super
// administrator) whose security posture must not be weakened by any
// administrative caller: its security-sensitive fields cannot be edited, it
// cannot be deleted, disabled, locked, or reassigned roles, and nobody but
// the account itself can force it offline. The guard is an explicit
// pre-call gate: mutation-handling code calls the matching Check method and
// must not perform the write if it returns ErrViolation. Each intercepted
// call is decided exactly once, allowed or denied, with no retries.
//
// The reserved identity's authorization facts are code-defined, not read
// from the mutable data layer, so even a guard bypass at the data layer
// cannot change what the reserved identity is authorized to do.
package guard
