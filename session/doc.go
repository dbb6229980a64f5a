// Package session implements the authoritative registry of live logins.
//
// Each session binds one (user, device) pair to the token identifier most
// recently issued for that device. Sessions live in Redis under a
// per-user-per-device key with a TTL, plus a per-user set indexing the
// devices with live sessions. Registering a session for a device the user is
// already logged in on overwrites the prior session, which is how a new
// login supersedes the old token: the old token's identifier no longer
// matches the registry and Validate reports it as stale.
//
// Mutations are atomic at the single (user, device) key: Register uses a
// transactional pipeline, Revoke and Rotate use Lua scripts, so concurrent
// writers can race but never interleave into a torn session.
package session
