package internal

import (
	"crypto/rand"
	"encoding/base64"
	"errors"

	"github.com/google/uuid"
)

const tokenIDSize = 16

// NewTokenID returns a fresh random token identifier. The identifier is
// embedded in issued tokens and recorded in the session registry; matching
// the two is what makes rotation and forced logout effective.
func NewTokenID() (string, error) {
	var raw [tokenIDSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	// base64url, no padding, compact
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// ParseTokenID checks that a caller-supplied token identifier has the shape
// NewTokenID produces.
func ParseTokenID(id string) error {
	raw, err := base64.RawURLEncoding.DecodeString(id)
	if err != nil {
		return err
	}
	if len(raw) != tokenIDSize {
		return errors.New("invalid token id size")
	}
	return nil
}

// NewDeviceID returns a generated device identifier for clients that did not
// supply one at login.
func NewDeviceID() string {
	return uuid.NewString()
}
