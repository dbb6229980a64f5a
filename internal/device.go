package internal

import (
	"strings"

	"github.com/mssola/useragent"
)

// DeviceInfo is the informational classification of a login's User-Agent.
// It is stored on the session for display only and carries no security
// weight.
type DeviceInfo struct {
	Type    string
	OS      string
	Browser string
}

const (
	DeviceDesktop = "desktop"
	DeviceMobile  = "mobile"
	DeviceBot     = "bot"
	DeviceUnknown = "unknown"
)

// ParseUserAgent classifies a raw User-Agent header into device type,
// operating system, and browser name.
func ParseUserAgent(raw string) DeviceInfo {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DeviceInfo{Type: DeviceUnknown}
	}

	ua := useragent.New(raw)

	info := DeviceInfo{Type: DeviceDesktop, OS: ua.OS()}
	switch {
	case ua.Bot():
		info.Type = DeviceBot
	case ua.Mobile():
		info.Type = DeviceMobile
	}

	name, _ := ua.Browser()
	info.Browser = name

	if info.OS == "" && info.Browser == "" {
		info.Type = DeviceUnknown
	}
	return info
}
