package session

import (
	"encoding/json"
	"errors"
	"time"
)

// Session is one live login on one device. The TokenID field is the
// binding that makes issued tokens revocable: a token is only honored while
// its embedded identifier matches the one recorded here. Everything from
// SourceIP down is display metadata.
type Session struct {
	UserID   string `json:"uid"`
	DeviceID string `json:"did"`
	TokenID  string `json:"tid"`

	IssuedAt     int64 `json:"iat"`
	ExpiresAt    int64 `json:"exp"`
	LastActiveAt int64 `json:"lat,omitempty"`

	SourceIP      string `json:"ip,omitempty"`
	UserAgent     string `json:"ua,omitempty"`
	DeviceType    string `json:"dtype,omitempty"`
	DeviceOS      string `json:"dos,omitempty"`
	DeviceBrowser string `json:"dbrowser,omitempty"`
}

// Expired reports whether the session's own expiry has passed. Key TTLs
// normally evict expired sessions first; this is the backstop for the
// window between logical expiry and eviction.
func (s *Session) Expired(now time.Time) bool {
	return s.ExpiresAt <= now.Unix()
}

func encode(s *Session) ([]byte, error) {
	if s == nil {
		return nil, errors.New("nil session")
	}
	if s.UserID == "" || s.DeviceID == "" || s.TokenID == "" {
		return nil, errors.New("session missing user, device, or token id")
	}
	return json.Marshal(s)
}

func decode(data []byte) (*Session, error) {
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	if s.UserID == "" || s.DeviceID == "" || s.TokenID == "" {
		return nil, errors.New("session blob missing required fields")
	}
	return &s, nil
}
