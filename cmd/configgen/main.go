package main

import (
	"flag"
	"log"

	"github.com/danmuck/dectctl/internal/config"
	"github.com/danmuck/dectctl/internal/protocol/tail"
)

func defaultPath(kind string) string {
	switch kind {
	case "serve":
		return "cmd/dectctl/dectctl.toml"
	case "cli":
		return "cmd/dectctl/cli.toml"
	default:
		log.Fatalf("unknown kind: %s", kind)
		return ""
	}
}

func main() {
	kind := flag.String("kind", "serve", "config kind: serve|cli")
	output := flag.String("output", "", "output path for config template")
	validate := flag.Bool("validate", false, "validate an existing serve config file")
	input := flag.String("input", "", "config path for validation (defaults to per-kind cmd path)")
	force := flag.Bool("force", false, "overwrite existing config file")
	flag.Parse()

	if *validate {
		if *kind != "serve" {
			log.Fatalf("validation is only supported for serve configs")
		}
		path := *input
		if path == "" {
			path = defaultPath(*kind)
		}
		cfg, err := config.LoadServeConfig(path)
		if err != nil {
			log.Fatal(err)
		}
		clusters, err := config.ClusterConfigs(cfg.Clusters)
		if err != nil {
			log.Fatal(err)
		}
		for _, c := range clusters {
			if c.Role == tail.FixedPart {
				log.Printf("cluster %s: fp, pari %s rpn %d", c.Name, c.PARI, c.RPN)
				continue
			}
			log.Printf("cluster %s: pp", c.Name)
		}
		log.Printf("Validated %s config at %s", *kind, path)
		return
	}

	target := *output
	if target == "" {
		target = defaultPath(*kind)
	}

	if err := config.WriteTemplate(target, *kind, *force); err != nil {
		log.Fatal(err)
	}
	log.Printf("Wrote %s config template to %s", *kind, target)
}
