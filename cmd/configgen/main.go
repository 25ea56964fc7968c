package main

import (
	"flag"
	"log"
	"path/filepath"
	"strings"

	"github.com/danmuck/exireq/internal/config"
)

func main() {
	format := flag.String("format", "toml", "config format: toml|yaml")
	output := flag.String("output", "", "output path for config template (defaults to exireq.<format>)")
	validate := flag.Bool("validate", false, "validate an existing config file")
	input := flag.String("input", "", "config path for validation (defaults to exireq.<format>)")
	force := flag.Bool("force", false, "overwrite existing config file")
	flag.Parse()

	if *validate {
		path := *input
		if path == "" {
			path = defaultPath(*format)
		}
		cfg, err := config.Load(path)
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("Validated config at %s (clamp_policy=%s v2gtp=%t)", path, cfg.ClampPolicy, cfg.Output.V2GTP)
		return
	}

	target := *output
	if target == "" {
		target = defaultPath(*format)
	} else if ext := strings.TrimPrefix(filepath.Ext(target), "."); ext != "" {
		*format = ext
	}

	if err := config.WriteTemplate(target, *format, *force); err != nil {
		log.Fatal(err)
	}
	log.Printf("Wrote %s config template to %s", *format, target)
}

func defaultPath(format string) string {
	if strings.EqualFold(format, "yml") {
		format = "yaml"
	}
	return "exireq." + strings.ToLower(format)
}
