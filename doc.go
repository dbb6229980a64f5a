// Package authcore is an embeddable session, token, and authorization core.
//
// It authenticates users against a caller-supplied user provider, tracks
// one live session per (user, device) pair in Redis, issues and rotates
// device-bound signed tokens, answers fine-grained authorization questions
// (static role/permission checks and cached Rego expressions), and guards
// reserved identities against privilege escalation or lockout.
//
// The entry point is [Engine], built through [New]:
//
//	engine, err := authcore.New().
//		WithConfig(cfg).
//		WithRedis(rdb).
//		WithUserProvider(provider).
//		Build()
//
// Issued tokens are only honored while their embedded token identifier
// matches the session registry, so logout, forced logout, and refresh
// rotation all revoke outstanding tokens immediately regardless of their
// signed expiry.
package authcore
