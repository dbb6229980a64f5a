package authcore

import (
	"encoding/base64"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// duration accepts Go duration strings ("15m", "720h") in YAML.
type duration time.Duration

func (d *duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = duration(parsed)
	return nil
}

// fileConfig is the YAML shape of a config file. Keys are base64 so the
// file stays plain text.
type fileConfig struct {
	JWT struct {
		AccessTTL     duration `yaml:"access_ttl"`
		RefreshTTL    duration `yaml:"refresh_ttl"`
		SigningMethod string   `yaml:"signing_method"`
		PrivateKey    string   `yaml:"private_key"`
		PublicKey     string   `yaml:"public_key"`
		Issuer        string   `yaml:"issuer"`
		Leeway        duration `yaml:"leeway"`
	} `yaml:"jwt"`
	Session struct {
		RedisPrefix       string   `yaml:"redis_prefix"`
		MaxDevicesPerUser int      `yaml:"max_devices_per_user"`
		JitterEnabled     bool     `yaml:"jitter_enabled"`
		JitterRange       duration `yaml:"jitter_range"`
		TouchOnValidate   *bool    `yaml:"touch_on_validate"`
		StoreTimeout      duration `yaml:"store_timeout"`
	} `yaml:"session"`
	Authz struct {
		ExpressionTimeout duration `yaml:"expression_timeout"`
	} `yaml:"authz"`
	Guard struct {
		Reserved []struct {
			UserID          string   `yaml:"user_id"`
			Username        string   `yaml:"username"`
			ForbiddenFields []string `yaml:"forbidden_fields"`
		} `yaml:"reserved"`
	} `yaml:"guard"`
	Audit struct {
		Enabled    *bool `yaml:"enabled"`
		BufferSize int   `yaml:"buffer_size"`
		DropIfFull *bool `yaml:"drop_if_full"`
	} `yaml:"audit"`
	Metrics struct {
		Enabled *bool `yaml:"enabled"`
	} `yaml:"metrics"`
	HTTP struct {
		AuthHeader     string `yaml:"auth_header"`
		AuthPrefix     string `yaml:"auth_prefix"`
		DeviceIDHeader string `yaml:"device_id_header"`
	} `yaml:"http"`
}

// LoadConfigFile reads a YAML config file, applying [DefaultConfig] for
// anything left unset. A .env file in the working directory is loaded first
// so YAML values may reference local development overrides.
func LoadConfigFile(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	var file fileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	if file.JWT.AccessTTL > 0 {
		cfg.JWT.AccessTTL = time.Duration(file.JWT.AccessTTL)
	}
	if file.JWT.RefreshTTL > 0 {
		cfg.JWT.RefreshTTL = time.Duration(file.JWT.RefreshTTL)
	}
	if file.JWT.SigningMethod != "" {
		cfg.JWT.SigningMethod = file.JWT.SigningMethod
	}
	if file.JWT.PrivateKey != "" {
		key, decErr := base64.StdEncoding.DecodeString(file.JWT.PrivateKey)
		if decErr != nil {
			return cfg, fmt.Errorf("decode private key: %w", decErr)
		}
		cfg.JWT.PrivateKey = key
	}
	if file.JWT.PublicKey != "" {
		key, decErr := base64.StdEncoding.DecodeString(file.JWT.PublicKey)
		if decErr != nil {
			return cfg, fmt.Errorf("decode public key: %w", decErr)
		}
		cfg.JWT.PublicKey = key
	}
	if file.JWT.Issuer != "" {
		cfg.JWT.Issuer = file.JWT.Issuer
	}
	if file.JWT.Leeway > 0 {
		cfg.JWT.Leeway = time.Duration(file.JWT.Leeway)
	}

	if file.Session.RedisPrefix != "" {
		cfg.Session.RedisPrefix = file.Session.RedisPrefix
	}
	if file.Session.MaxDevicesPerUser > 0 {
		cfg.Session.MaxDevicesPerUser = file.Session.MaxDevicesPerUser
	}
	cfg.Session.JitterEnabled = file.Session.JitterEnabled
	if file.Session.JitterRange > 0 {
		cfg.Session.JitterRange = time.Duration(file.Session.JitterRange)
	}
	if file.Session.TouchOnValidate != nil {
		cfg.Session.TouchOnValidate = *file.Session.TouchOnValidate
	}
	if file.Session.StoreTimeout > 0 {
		cfg.Session.StoreTimeout = time.Duration(file.Session.StoreTimeout)
	}

	if file.Authz.ExpressionTimeout > 0 {
		cfg.Authz.ExpressionTimeout = time.Duration(file.Authz.ExpressionTimeout)
	}

	for _, reserved := range file.Guard.Reserved {
		cfg.Guard.Reserved = append(cfg.Guard.Reserved, ReservedIdentity{
			UserID:          reserved.UserID,
			Username:        reserved.Username,
			ForbiddenFields: reserved.ForbiddenFields,
		})
	}

	if file.Audit.Enabled != nil {
		cfg.Audit.Enabled = *file.Audit.Enabled
	}
	if file.Audit.BufferSize > 0 {
		cfg.Audit.BufferSize = file.Audit.BufferSize
	}
	if file.Audit.DropIfFull != nil {
		cfg.Audit.DropIfFull = *file.Audit.DropIfFull
	}
	if file.Metrics.Enabled != nil {
		cfg.Metrics.Enabled = *file.Metrics.Enabled
	}

	if file.HTTP.AuthHeader != "" {
		cfg.HTTP.AuthHeader = file.HTTP.AuthHeader
	}
	if file.HTTP.AuthPrefix != "" {
		cfg.HTTP.AuthPrefix = file.HTTP.AuthPrefix
	}
	if file.HTTP.DeviceIDHeader != "" {
		cfg.HTTP.DeviceIDHeader = file.HTTP.DeviceIDHeader
	}

	return cfg, cfg.Validate()
}
