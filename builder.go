package authcore

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/kiratremon/authcore/authz"
	"github.com/kiratremon/authcore/guard"
	"github.com/kiratremon/authcore/jwt"
	"github.com/kiratremon/authcore/password"
	"github.com/kiratremon/authcore/session"
)

// Builder assembles an [Engine]. Zero-value fields fall back to
// [DefaultConfig].
type Builder struct {
	config Config
	redis  redis.UniversalClient

	userProvider UserProvider
	auditSink    AuditSink

	built bool
}

// New starts a Builder with the default configuration.
func New() *Builder {
	return &Builder{config: DefaultConfig()}
}

// WithConfig replaces the configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis sets the Redis client backing the session registry.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithUserProvider sets the external user-lookup collaborator.
func (b *Builder) WithUserProvider(up UserProvider) *Builder {
	b.userProvider = up
	return b
}

// WithAuditSink sets the audit event destination. Defaults to a no-op sink.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// Build validates the configuration and wires the engine. A Builder may
// only build once.
//
// When the signing method is ed25519 and no key material is configured, an
// ephemeral key pair is generated; tokens signed with it do not survive a
// process restart, which is fine for tests and single-instance setups.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.redis == nil {
		return nil, errors.New("redis client is required")
	}
	if b.userProvider == nil {
		return nil, errors.New("user provider is required")
	}
	if err := b.config.Validate(); err != nil {
		return nil, err
	}

	cfg := b.config

	if cfg.JWT.SigningMethod == "ed25519" && len(cfg.JWT.PrivateKey) == 0 && len(cfg.JWT.PublicKey) == 0 {
		pub, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, err
		}
		cfg.JWT.PrivateKey = priv
		cfg.JWT.PublicKey = pub
	}

	tokens, err := jwt.NewManager(jwt.Config{
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cfg.JWT.PrivateKey,
		PublicKey:     cfg.JWT.PublicKey,
		Issuer:        cfg.JWT.Issuer,
		Leeway:        cfg.JWT.Leeway,
	})
	if err != nil {
		return nil, err
	}

	hasher, err := password.NewArgon2(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	rules := make([]guard.Rule, 0, len(cfg.Guard.Reserved))
	for _, reserved := range cfg.Guard.Reserved {
		rules = append(rules, guard.Rule{
			UserID:          reserved.UserID,
			Username:        reserved.Username,
			ForbiddenFields: reserved.ForbiddenFields,
		})
	}

	engine := &Engine{
		config:   cfg,
		sessions: session.NewStore(b.redis, cfg.Session.RedisPrefix),
		tokens:   tokens,
		guard:    guard.New(rules...),
		users:    b.userProvider,
		hasher:   hasher,
		audit:    newAuditDispatcher(cfg.Audit, b.auditSink),
	}
	if cfg.Metrics.Enabled {
		engine.metrics = NewMetrics()
	}
	engine.authz = authz.NewEngine(authz.EngineConfig{
		EvalTimeout:       cfg.Authz.ExpressionTimeout,
		OnExpressionError: engine.expressionErrorHook,
	})

	b.built = true
	return engine, nil
}
