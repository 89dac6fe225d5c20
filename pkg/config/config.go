package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"sync"

	"gopkg.in/yaml.v3"
)

// RuntimeConfig holds derived runtime values that other packages may query
// at runtime (populated during startup by main after merging env+file).
type RuntimeConfig struct {
	// Tokens maps bearer token -> user id.
	Tokens map[string]string
}

var (
	runtimeMu  sync.RWMutex
	runtimeCfg *RuntimeConfig
)

// SetRuntime sets the canonical runtime config used by the running server.
func SetRuntime(rc *RuntimeConfig) {
	runtimeMu.Lock()
	defer runtimeMu.Unlock()
	runtimeCfg = rc
}

// ResolveToken returns the user id for a bearer token, or "" when unknown.
func ResolveToken(token string) string {
	runtimeMu.RLock()
	defer runtimeMu.RUnlock()
	if runtimeCfg == nil || runtimeCfg.Tokens == nil {
		return ""
	}
	return runtimeCfg.Tokens[token]
}

// Load reads and parses the YAML config file at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return &c, nil
}

// Addr returns the effective listen address ("host:port") for the server
// section, or "" when neither address nor port is set.
func (c *Config) Addr() string {
	if c == nil {
		return ""
	}
	if c.Server.Address == "" && c.Server.Port == 0 {
		return ""
	}
	if c.Server.Port == 0 {
		// address may already carry a port
		if _, _, err := net.SplitHostPort(c.Server.Address); err == nil {
			return c.Server.Address
		}
		return c.Server.Address
	}
	return net.JoinHostPort(c.Server.Address, strconv.Itoa(c.Server.Port))
}

// TokenMap returns the configured bearer tokens as a token -> user map.
func (c *Config) TokenMap() map[string]string {
	out := map[string]string{}
	if c == nil {
		return out
	}
	for _, t := range c.Security.Tokens {
		if t.Token != "" && t.User != "" {
			out[t.Token] = t.User
		}
	}
	return out
}
