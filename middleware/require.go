package middleware

import (
	"net/http"

	"github.com/kiratremon/authcore"
)

// RequirePermission returns middleware that authenticates the request and
// then demands the permission code. 403 when the decision is false.
func RequirePermission(engine *authcore.Engine, code string) func(http.Handler) http.Handler {
	return requireDecision(engine, func(r *http.Request) bool {
		id, ok := IdentityFromContext(r.Context())
		return ok && engine.HasPermission(id, code)
	})
}

// RequireRole returns middleware that authenticates the request and then
// demands the role code.
func RequireRole(engine *authcore.Engine, code string) func(http.Handler) http.Handler {
	return requireDecision(engine, func(r *http.Request) bool {
		id, ok := IdentityFromContext(r.Context())
		return ok && engine.HasRole(id, code)
	})
}

// RequireAnyRole returns middleware that authenticates the request and then
// demands at least one of the role codes.
func RequireAnyRole(engine *authcore.Engine, codes ...string) func(http.Handler) http.Handler {
	return requireDecision(engine, func(r *http.Request) bool {
		id, ok := IdentityFromContext(r.Context())
		return ok && engine.HasAnyRole(id, codes...)
	})
}

// RequireExpression returns middleware that authenticates the request and
// then decides the authorization expression. Expression failures deny.
func RequireExpression(engine *authcore.Engine, source string) func(http.Handler) http.Handler {
	return requireDecision(engine, func(r *http.Request) bool {
		id, ok := IdentityFromContext(r.Context())
		return ok && engine.EvaluateExpression(r.Context(), id, source, nil)
	})
}

func requireDecision(engine *authcore.Engine, allow func(*http.Request) bool) func(http.Handler) http.Handler {
	authenticate := Authenticate(engine)
	return func(next http.Handler) http.Handler {
		return authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !allow(r) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}
