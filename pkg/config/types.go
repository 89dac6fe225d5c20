package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// Config is the main configuration struct.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Security  SecurityConfig  `yaml:"security"`
	Logging   LoggingConfig   `yaml:"logging"`
	Retention RetentionConfig `yaml:"retention"`
	Client    ClientConfig    `yaml:"client"`
}

// ServerConfig holds http, storage and tls settings.
type ServerConfig struct {
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
	DBPath  string `yaml:"db_path"`
	// MaxBody caps request body size; zero means the built-in default.
	MaxBody SizeBytes `yaml:"max_body"`
	TLS     TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate configuration.
type TLSConfig struct {
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// TokenEntry maps a bearer token to the user id it authenticates. The
// session collaborator issues tokens; the server only resolves them.
type TokenEntry struct {
	Token string `yaml:"token"`
	User  string `yaml:"user"`
}

// SecurityConfig holds security related settings.
type SecurityConfig struct {
	CORS struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`
	RateLimit struct {
		RPS   float64 `yaml:"rps"`
		Burst int     `yaml:"burst"`
	} `yaml:"rate_limit"`
	Tokens []TokenEntry `yaml:"tokens"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// RetentionConfig holds configuration for the automatic purge runner.
type RetentionConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cron    string `yaml:"cron"`
	// Period is the age past which messages are purged, e.g. "2160h".
	Period Duration `yaml:"period"`
	DryRun bool     `yaml:"dry_run"`
}

// ClientConfig holds defaults consumed by the SDK side of the module.
type ClientConfig struct {
	BaseURL string `yaml:"base_url"`
	// PageSize is the pagination limit used by the message store.
	PageSize int `yaml:"page_size"`
	// ReadSyncInterval is the periodic read-state tick while a
	// conversation screen is visible.
	ReadSyncInterval Duration `yaml:"read_sync_interval"`
}

// SizeBytes is a byte count parsed from yaml as either a human-friendly
// string ("64KB", "1MB") or a plain integer.
type SizeBytes int64

func (s *SizeBytes) UnmarshalYAML(node *yaml.Node) error {
	*s = 0
	if node == nil {
		return nil
	}
	raw := strings.TrimSpace(node.Value)
	switch {
	case raw == "":
		return nil
	default:
		if v, err := humanize.ParseBytes(raw); err == nil {
			*s = SizeBytes(v)
			return nil
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid size value: %q", node.Value)
		}
		*s = SizeBytes(n)
		return nil
	}
}

func (s SizeBytes) Int64() int64 { return int64(s) }

// Duration is a time.Duration parsed from yaml as a Go duration string
// ("2s", "2160h") or a bare number of seconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	*d = 0
	if node == nil {
		return nil
	}
	raw := strings.TrimSpace(node.Value)
	if raw == "" {
		return nil
	}
	if td, err := time.ParseDuration(raw); err == nil {
		*d = Duration(td)
		return nil
	}
	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("invalid duration value: %q", node.Value)
	}
	*d = Duration(time.Duration(secs * float64(time.Second)))
	return nil
}

func (d Duration) Duration() time.Duration { return time.Duration(d) }
