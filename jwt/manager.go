package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod selects the token signature algorithm.
type SigningMethod string

const (
	// MethodEd25519 is the default signing method.
	MethodEd25519 SigningMethod = "ed25519"
	// MethodHS256 is the optional symmetric signing method.
	MethodHS256 SigningMethod = "hs256"
)

// Kind discriminates access tokens from refresh tokens. A refresh token is
// never accepted where an access token is expected, and vice versa.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

var (
	// ErrExpired is returned when the token's expiry has passed.
	ErrExpired = errors.New("token expired")
	// ErrMalformed is returned when the token cannot be parsed, its
	// signature does not verify, or its claims fail validation.
	ErrMalformed = errors.New("token malformed")
	// ErrKindMismatch is returned when a token of the wrong kind is
	// presented, for example a refresh token on an access endpoint.
	ErrKindMismatch = errors.New("token kind mismatch")
)

// Config holds the token issuance parameters. Instances are treated as
// immutable after passing to NewManager.
type Config struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Leeway        time.Duration
}

// Claims is the payload of every token the engine issues. TokenID mirrors
// the identifier recorded in the session registry for the (subject, device)
// pair at issuance time.
type Claims struct {
	DeviceID string `json:"did"`
	TokenID  string `json:"tki"`
	Kind     Kind   `json:"knd"`
	jwt.RegisteredClaims
}

// Manager signs and parses tokens. Safe for concurrent use.
type Manager struct {
	config Config
}

// NewManager validates cfg and returns a ready Manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 {
		return nil, errors.New("invalid access TTL configuration")
	}
	if cfg.RefreshTTL < 0 {
		return nil, errors.New("invalid refresh TTL configuration")
	}
	if cfg.RefreshTTL > 0 && cfg.RefreshTTL < cfg.AccessTTL {
		return nil, errors.New("refresh TTL must not be shorter than access TTL")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}

	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) == 0 {
			return nil, errors.New("hs256 requires private key")
		}
	case MethodEd25519:
		if _, err := parseEdPrivateKey(cfg.PrivateKey); err != nil {
			return nil, err
		}
		if _, err := parseEdPublicKey(cfg.PublicKey); err != nil {
			return nil, err
		}
	default:
		return nil, errors.New("unsupported signing method")
	}

	return &Manager{config: cfg}, nil
}

// RefreshEnabled reports whether the manager is configured to issue refresh
// tokens.
func (m *Manager) RefreshEnabled() bool {
	return m.config.RefreshTTL > 0
}

// AccessTTL returns the configured access token lifetime.
func (m *Manager) AccessTTL() time.Duration { return m.config.AccessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (m *Manager) RefreshTTL() time.Duration { return m.config.RefreshTTL }

// CreateAccess signs an access token for (userID, deviceID) bound to tokenID.
func (m *Manager) CreateAccess(userID, deviceID, tokenID string, now time.Time) (string, error) {
	return m.create(userID, deviceID, tokenID, KindAccess, now, m.config.AccessTTL)
}

// CreateRefresh signs a refresh token for (userID, deviceID) bound to tokenID.
func (m *Manager) CreateRefresh(userID, deviceID, tokenID string, now time.Time) (string, error) {
	if !m.RefreshEnabled() {
		return "", errors.New("refresh tokens disabled")
	}
	return m.create(userID, deviceID, tokenID, KindRefresh, now, m.config.RefreshTTL)
}

func (m *Manager) create(userID, deviceID, tokenID string, kind Kind, now time.Time, ttl time.Duration) (string, error) {
	if userID == "" || deviceID == "" || tokenID == "" {
		return "", errors.New("missing token binding fields")
	}

	claims := Claims{
		DeviceID: deviceID,
		TokenID:  tokenID,
		Kind:     kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if m.config.Issuer != "" {
		claims.Issuer = m.config.Issuer
	}

	token := jwt.NewWithClaims(m.method(), claims)
	signKey, err := m.signKey()
	if err != nil {
		return "", err
	}
	return token.SignedString(signKey)
}

// ParseAccess parses and verifies an access token.
func (m *Manager) ParseAccess(token string) (*Claims, error) {
	return m.parse(token, KindAccess)
}

// ParseRefresh parses and verifies a refresh token.
func (m *Manager) ParseRefresh(token string) (*Claims, error) {
	return m.parse(token, KindRefresh)
}

func (m *Manager) parse(tokenStr string, kind Kind) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.method().Alg()}),
		jwt.WithExpirationRequired(),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != m.method().Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return m.verifyKey()
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrMalformed
	}
	if claims.Subject == "" || claims.DeviceID == "" || claims.TokenID == "" {
		return nil, fmt.Errorf("%w: missing binding claims", ErrMalformed)
	}
	if claims.Kind != kind {
		return nil, ErrKindMismatch
	}
	return claims, nil
}

func (m *Manager) method() jwt.SigningMethod {
	if m.config.SigningMethod == MethodHS256 {
		return jwt.SigningMethodHS256
	}
	return jwt.SigningMethodEdDSA
}

func (m *Manager) signKey() (interface{}, error) {
	if m.config.SigningMethod == MethodHS256 {
		return m.config.PrivateKey, nil
	}
	return parseEdPrivateKey(m.config.PrivateKey)
}

func (m *Manager) verifyKey() (interface{}, error) {
	if m.config.SigningMethod == MethodHS256 {
		return m.config.PrivateKey, nil
	}
	return parseEdPublicKey(m.config.PublicKey)
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
