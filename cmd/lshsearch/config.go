package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sachaservan/annlsh/anns"
)

// Config is the on-disk form of the search parameters. JSON files load too
// since YAML is a superset of JSON.
type Config struct {
	LSH    anns.LSHParams    `yaml:"lsh"`
	DETLSH anns.DETLSHParams `yaml:"detlsh"`
	Seed   int64             `yaml:"seed"`
}

// loadConfig overlays the fields present in the file at path on top of base
func loadConfig(path string, base Config) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return base, err
	}

	cfg := base
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return base, fmt.Errorf("parsing %s: %w", path, err)
	}

	return cfg, nil
}

// resolveDimension fills in the vector dimension from the dataset when the
// configuration leaves it unset
func (c *Config) resolveDimension(dim int) {
	if c.LSH.NumFeatures == 0 {
		c.LSH.NumFeatures = dim
	}
}
