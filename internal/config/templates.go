package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "serve":
		return serveTemplate, nil
	case "cli":
		return cliTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const serveTemplate = `name = "dectctl"
addr = ":9300"
cors_origins = ["http://localhost:3000"]

[[clusters]]
name = "cl0"
role = "fp"
pari = "A:0012345"
rpn = 1
max_connections = 256
mailbox = 64
heartbeat = "30s"

[[clusters]]
name = "cl1"
role = "pp"
pari = "A:0012345"
heartbeat = "30s"
`

const cliTemplate = `role = "pp"
output = "json"
log_level = "info"
log_file = ""
`
