package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/danmuck/dectctl/internal/identity"
	"github.com/pelletier/go-toml/v2"
)

// ServeConfig is the file read by `dectctl serve`.
type ServeConfig struct {
	Name        string          `toml:"name"`
	Addr        string          `toml:"addr"`
	CorsOrigins []string        `toml:"cors_origins"`
	Clusters    []ClusterConfig `toml:"clusters"`
}

type ClusterConfig struct {
	Name           string       `toml:"name"`
	Role           string       `toml:"role"`
	PARI           identity.ARI `toml:"pari"`
	RPN            uint8        `toml:"rpn"`
	MaxConnections int          `toml:"max_connections"`
	Mailbox        int          `toml:"mailbox"`
	Heartbeat      string       `toml:"heartbeat"`
}

func LoadServeConfig(path string) (ServeConfig, error) {
	var cfg ServeConfig
	if err := loadToml(path, &cfg); err != nil {
		return ServeConfig{}, err
	}
	if cfg.Name == "" {
		cfg.Name = "dectctl"
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9300"
	}
	if err := ValidateServeConfig(cfg); err != nil {
		return ServeConfig{}, err
	}
	return cfg, nil
}

// loadToml rejects keys that do not map to a field, so typos fail loudly.
func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return fmt.Errorf("config parse failed (%s): unknown keys:\n%s", path, strict.String())
		}
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateServeConfig(cfg ServeConfig) error {
	if strings.TrimSpace(cfg.Name) == "" {
		return fmt.Errorf("serve config missing name")
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		return fmt.Errorf("serve config missing addr")
	}
	for _, origin := range cfg.CorsOrigins {
		if origin != "*" && !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			return fmt.Errorf("cors origin %q must be * or start with http:// or https://", origin)
		}
	}
	if len(cfg.Clusters) == 0 {
		return fmt.Errorf("serve config has no clusters")
	}
	seen := make(map[string]bool, len(cfg.Clusters))
	for i, cl := range cfg.Clusters {
		if err := ValidateClusterEntry(cl); err != nil {
			return fmt.Errorf("clusters[%d] invalid: %w", i, err)
		}
		if seen[cl.Name] {
			return fmt.Errorf("clusters[%d] invalid: duplicate name %q", i, cl.Name)
		}
		seen[cl.Name] = true
	}
	return nil
}

func ValidateClusterEntry(cfg ClusterConfig) error {
	if strings.TrimSpace(cfg.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if _, err := parseRole(cfg.Role); err != nil {
		return err
	}
	if err := cfg.PARI.Validate(); err != nil {
		return err
	}
	if cfg.MaxConnections < 0 {
		return fmt.Errorf("max_connections must not be negative")
	}
	if cfg.Mailbox < 0 {
		return fmt.Errorf("mailbox must not be negative")
	}
	if cfg.Heartbeat != "" {
		d, err := time.ParseDuration(strings.TrimSpace(cfg.Heartbeat))
		if err != nil {
			return fmt.Errorf("parse heartbeat: %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("heartbeat must be positive")
		}
	}
	return nil
}
