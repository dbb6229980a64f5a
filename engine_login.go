package authcore

import (
	"context"
	"errors"
	"time"

	"github.com/kiratremon/authcore/internal"
	"github.com/kiratremon/authcore/session"
)

// Login authenticates credentials and opens a session for (user, device).
//
// deviceID may be empty; the engine then takes the id attached with
// [WithDeviceID], or generates one. Either way the effective id is echoed
// in the result and the client must present it on refresh and logout. A
// login from a device the user is already logged in on supersedes the
// prior session: the old tokens stop validating immediately.
//
// Unknown users and wrong passwords both return [ErrInvalidCredentials].
func (e *Engine) Login(ctx context.Context, username, plaintext, deviceID string) (*LoginResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	user, err := e.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, e.loginRejected(ctx, username, "", ErrInvalidCredentials)
		}
		return nil, err
	}

	switch user.Status {
	case AccountDisabled:
		return nil, e.loginRejected(ctx, username, user.UserID, ErrAccountDisabled)
	case AccountLocked:
		return nil, e.loginRejected(ctx, username, user.UserID, ErrAccountLocked)
	}

	ok, err := e.hasher.Verify(plaintext, user.PasswordHash)
	if err != nil || !ok {
		return nil, e.loginRejected(ctx, username, user.UserID, ErrInvalidCredentials)
	}

	if deviceID == "" {
		deviceID = DeviceIDFromContext(ctx)
	}
	if deviceID == "" {
		deviceID = internal.NewDeviceID()
	}

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	live, err := e.sessions.List(sctx, user.UserID)
	if err != nil {
		e.metricInc(MetricStoreUnavailable)
		return nil, err
	}
	superseding := false
	for _, s := range live {
		if s.DeviceID == deviceID {
			superseding = true
			break
		}
	}
	if limit := e.config.Session.MaxDevicesPerUser; limit > 0 && !superseding && len(live) >= limit {
		return nil, e.loginRejected(ctx, username, user.UserID, ErrSessionLimitExceeded)
	}

	tokenID, err := internal.NewTokenID()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	ttl := e.sessionTTL()
	device := internal.ParseUserAgent(userAgentFromContext(ctx))

	sess := &session.Session{
		UserID:        user.UserID,
		DeviceID:      deviceID,
		TokenID:       tokenID,
		IssuedAt:      now.Unix(),
		ExpiresAt:     now.Add(ttl).Unix(),
		LastActiveAt:  now.Unix(),
		SourceIP:      clientIPFromContext(ctx),
		UserAgent:     userAgentFromContext(ctx),
		DeviceType:    device.Type,
		DeviceOS:      device.OS,
		DeviceBrowser: device.Browser,
	}
	if err := e.sessions.Register(sctx, sess, ttl); err != nil {
		e.metricInc(MetricStoreUnavailable)
		return nil, err
	}

	access, err := e.tokens.CreateAccess(user.UserID, deviceID, tokenID, now)
	if err != nil {
		return nil, err
	}
	var refresh string
	if e.tokens.RefreshEnabled() {
		refresh, err = e.tokens.CreateRefresh(user.UserID, deviceID, tokenID, now)
		if err != nil {
			return nil, err
		}
	}

	e.metricInc(MetricLoginSuccess)
	e.metricInc(MetricSessionCreated)
	if superseding {
		e.metricInc(MetricSessionSuperseded)
	}
	e.emit(ctx, AuditEvent{
		EventType: auditEventLoginSuccess,
		UserID:    user.UserID,
		DeviceID:  deviceID,
		Success:   true,
	})

	return &LoginResult{
		AccessToken:  access,
		RefreshToken: refresh,
		DeviceID:     deviceID,
		UserID:       user.UserID,
		ExpiresAt:    now.Add(e.config.JWT.AccessTTL),
	}, nil
}

func (e *Engine) loginRejected(ctx context.Context, username, userID string, cause error) error {
	e.metricInc(MetricLoginFailure)
	e.emit(ctx, AuditEvent{
		EventType: auditEventLoginFailure,
		UserID:    userID,
		Error:     cause.Error(),
		Metadata:  map[string]string{"username": username},
	})
	return cause
}
