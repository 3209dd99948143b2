package main

import (
	"fmt"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/lci/internal/config"
)

// loadConfigWithOverrides loads the layered KDL config and applies the
// global --root/--config flag overrides, the way the teacher's CLI
// resolved a config path relative to an explicit --root before loading it.
func loadConfigWithOverrides(c *cli.Context) (*config.Config, error) {
	configPath := c.String("config")
	rootFlag := c.String("root")

	if rootFlag != "" && configPath == ".lci.kdl" {
		configPath = filepath.Join(rootFlag, ".lci.kdl")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", configPath, err)
	}

	if rootFlag != "" {
		absRoot, err := filepath.Abs(rootFlag)
		if err != nil {
			return nil, fmt.Errorf("resolve root %q: %w", rootFlag, err)
		}
		cfg.Project.Root = absRoot
	}

	if err := config.ValidateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
