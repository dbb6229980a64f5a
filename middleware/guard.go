package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/kiratremon/authcore"
	"github.com/kiratremon/authcore/authz"
)

type identityContextKey struct{}

// IdentityFromContext returns the identity injected by [Authenticate].
func IdentityFromContext(ctx context.Context) (*authz.Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(*authz.Identity)
	return id, ok
}

// Authenticate returns middleware that validates the bearer token on every
// request. The device id header, client IP, and User-Agent are attached to
// the request context before validation so the engine can enforce device
// binding and record session metadata. On success the resolved identity is
// available through [IdentityFromContext].
func Authenticate(engine *authcore.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			httpCfg := engine.HTTPConfig()
			token, ok := bearerToken(r.Header.Get(httpCfg.AuthHeader), httpCfg.AuthPrefix)
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := requestContext(r, httpCfg)
			id, err := engine.ValidateAccessToken(ctx, token)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx = context.WithValue(ctx, identityContextKey{}, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// requestContext carries the transport facts the engine reads.
func requestContext(r *http.Request, cfg authcore.HTTPConfig) context.Context {
	ctx := r.Context()
	if deviceID := r.Header.Get(cfg.DeviceIDHeader); deviceID != "" {
		ctx = authcore.WithDeviceID(ctx, deviceID)
	}
	if ua := r.Header.Get("User-Agent"); ua != "" {
		ctx = authcore.WithUserAgent(ctx, ua)
	}
	if ip := clientIP(r); ip != "" {
		ctx = authcore.WithClientIP(ctx, ip)
	}
	return ctx
}

func bearerToken(value, prefix string) (string, bool) {
	if prefix == "" {
		prefix = "Bearer "
	}
	if !strings.HasPrefix(value, prefix) {
		return "", false
	}

	token := value[len(prefix):]
	if token == "" {
		return "", false
	}

	return token, true
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host := r.RemoteAddr
	if i := strings.LastIndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	return host
}
