// Package config loads the daemon configuration file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultPersistDir = "/var/lib/ibm-logging/errors"
	DefaultPolicyPath = "/usr/share/ibm-logging/policy.json"
	DefaultRedisAddr  = "localhost:6379"
	DefaultHTTPAddr   = ":8080"
	DefaultMCPPort    = 8081

	BackendRedis  = "redis"
	BackendMemory = "memory"

	TransportStdio = "stdio"
	TransportSSE   = "sse"
)

// Config is the daemon configuration.
type Config struct {
	LogLevel   string    `yaml:"log_level" json:"log_level"`
	PersistDir string    `yaml:"persist_dir" json:"persist_dir"`
	Policy     Policy    `yaml:"policy" json:"policy"`
	Transport  Transport `yaml:"transport" json:"transport"`
	HTTP       HTTP      `yaml:"http" json:"http"`
	MCP        MCP       `yaml:"mcp" json:"mcp"`
}

// Policy configures the policy table.
type Policy struct {
	Path       string `yaml:"path" json:"path"`
	DefaultEID string `yaml:"default_eid" json:"default_eid"`
	DefaultMsg string `yaml:"default_msg" json:"default_msg"`
}

// Transport selects the object bus.
type Transport struct {
	Backend string `yaml:"backend" json:"backend"`
	Redis   Redis  `yaml:"redis" json:"redis"`
}

// Redis holds connection settings for the redis backend.
type Redis struct {
	Addr     string `yaml:"addr" json:"addr"`
	Password string `yaml:"password" json:"password"`
	DB       int    `yaml:"db" json:"db"`
	Prefix   string `yaml:"prefix" json:"prefix"`
}

type HTTP struct {
	Addr string `yaml:"addr" json:"addr"`
}

type MCP struct {
	Transport string `yaml:"transport" json:"transport"`
	Port      int    `yaml:"port" json:"port"`
}

// Default returns the built-in configuration.
// Empty policy defaults leave the table's fallback values in place.
func Default() Config {
	return Config{
		LogLevel:   "info",
		PersistDir: DefaultPersistDir,
		Policy: Policy{
			Path: DefaultPolicyPath,
		},
		Transport: Transport{
			Backend: BackendRedis,
			Redis: Redis{
				Addr:   DefaultRedisAddr,
				Prefix: "ibmlog:",
			},
		},
		HTTP: HTTP{Addr: DefaultHTTPAddr},
		MCP: MCP{
			Transport: TransportStdio,
			Port:      DefaultMCPPort,
		},
	}
}

// Load reads a configuration file (YAML or JSON) over the defaults.
// A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config json: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config yaml: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects settings the daemon cannot start with.
func (c Config) Validate() error {
	switch c.Transport.Backend {
	case BackendRedis, BackendMemory:
	default:
		return fmt.Errorf("unknown transport backend %q", c.Transport.Backend)
	}
	switch c.MCP.Transport {
	case TransportStdio, TransportSSE:
	default:
		return fmt.Errorf("unknown mcp transport %q", c.MCP.Transport)
	}
	if c.PersistDir == "" {
		return fmt.Errorf("persist_dir must not be empty")
	}
	return nil
}
