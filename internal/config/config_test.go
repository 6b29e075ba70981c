package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/dectctl/internal/identity"
	"github.com/danmuck/dectctl/internal/protocol/tail"
	"github.com/danmuck/dectctl/internal/testutil/testlog"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestServeTemplateLoadsAndConverts(t *testing.T) {
	testlog.Start(t)

	path := filepath.Join(t.TempDir(), "serve.toml")
	if err := WriteTemplate(path, "serve", false); err != nil {
		t.Fatalf("write template: %v", err)
	}
	if err := WriteTemplate(path, "serve", false); err == nil {
		t.Fatalf("expected refusal to overwrite")
	}

	cfg, err := LoadServeConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9300" || len(cfg.Clusters) != 2 || len(cfg.CorsOrigins) != 1 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	want := identity.ARI{Class: identity.ClassA, Value: 0x12345}
	if cfg.Clusters[0].PARI != want {
		t.Fatalf("pari = %s, want %s", cfg.Clusters[0].PARI, want)
	}

	clusters, err := ClusterConfigs(cfg.Clusters)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if clusters[0].Role != tail.FixedPart || clusters[1].Role != tail.PortablePart {
		t.Fatalf("unexpected roles: %s %s", clusters[0].Role, clusters[1].Role)
	}
	if clusters[0].Heartbeat != 30*time.Second || clusters[0].RPN != 1 {
		t.Fatalf("unexpected cluster config: %+v", clusters[0])
	}
	if clusters[1].MaxConnections != 256 || clusters[1].Mailbox != 64 {
		t.Fatalf("defaults not applied: %+v", clusters[1])
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	testlog.Start(t)

	cfg, err := LoadServeConfig(writeFile(t, "[[clusters]]\nname = \"solo\"\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Name != "dectctl" || cfg.Addr != ":9300" {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	testlog.Start(t)

	_, err := LoadServeConfig(writeFile(t, "[[clusters]]\nname = \"a\"\nrole = \"fp\"\nheartbeet = \"1s\"\n"))
	if err == nil || !strings.Contains(err.Error(), "heartbeet") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestValidateRejectsBadEntries(t *testing.T) {
	testlog.Start(t)

	cases := map[string]string{
		"no clusters":    "name = \"x\"\n",
		"duplicate name": "[[clusters]]\nname = \"a\"\n[[clusters]]\nname = \"a\"\n",
		"bad role":       "[[clusters]]\nname = \"a\"\nrole = \"repeater\"\n",
		"bad pari":       "[[clusters]]\nname = \"a\"\npari = \"G:1\"\n",
		"bad heartbeat":  "[[clusters]]\nname = \"a\"\nheartbeat = \"soon\"\n",
		"zero heartbeat": "[[clusters]]\nname = \"a\"\nheartbeat = \"0s\"\n",
		"negative limit": "[[clusters]]\nname = \"a\"\nmax_connections = -1\n",
		"missing name":   "[[clusters]]\nrole = \"fp\"\n",
		"bad origin":     "cors_origins = [\"localhost:3000\"]\n[[clusters]]\nname = \"a\"\n",
	}
	for name, body := range cases {
		if _, err := LoadServeConfig(writeFile(t, body)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestTemplateKinds(t *testing.T) {
	testlog.Start(t)

	if _, err := Template("cli"); err != nil {
		t.Fatalf("cli template: %v", err)
	}
	if _, err := Template("ghost"); err == nil {
		t.Fatalf("expected unknown kind error")
	}
}
