// Package jwt signs and parses the bearer credentials issued by the engine.
//
// Both access and refresh tokens are JWTs carrying the subject user, the
// device the token is pinned to, the token identifier recorded in the
// session registry, and a kind discriminator. Signature validity alone is
// never sufficient to accept a token: the engine also checks the token
// identifier against the session registry, which is what makes rotation and
// forced logout revoke stateless-valid tokens.
package jwt
