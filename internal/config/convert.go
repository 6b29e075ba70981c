package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/danmuck/dectctl/internal/cluster"
	"github.com/danmuck/dectctl/internal/protocol/tail"
)

// ClusterConfigs fills the validated entries over cluster defaults.
func ClusterConfigs(entries []ClusterConfig) ([]cluster.Config, error) {
	out := make([]cluster.Config, 0, len(entries))
	for _, entry := range entries {
		cfg := cluster.DefaultConfig(strings.TrimSpace(entry.Name))
		role, err := parseRole(entry.Role)
		if err != nil {
			return nil, fmt.Errorf("cluster %s: %w", entry.Name, err)
		}
		cfg.Role = role
		cfg.PARI = entry.PARI
		cfg.RPN = entry.RPN
		if entry.MaxConnections > 0 {
			cfg.MaxConnections = entry.MaxConnections
		}
		if entry.Mailbox > 0 {
			cfg.Mailbox = entry.Mailbox
		}
		if entry.Heartbeat != "" {
			d, err := time.ParseDuration(strings.TrimSpace(entry.Heartbeat))
			if err != nil {
				return nil, fmt.Errorf("cluster %s: parse heartbeat: %w", entry.Name, err)
			}
			cfg.Heartbeat = d
		}
		out = append(out, cfg)
	}
	return out, nil
}

func parseRole(raw string) (tail.Role, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "fp", "fixed":
		return tail.FixedPart, nil
	case "pp", "portable":
		return tail.PortablePart, nil
	default:
		return 0, fmt.Errorf("unknown role: %s", raw)
	}
}
