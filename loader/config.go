package loader

import (
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/andaru/uanodeset/arena"
	"github.com/andaru/uanodeset/ua"
)

// Config controls an import
type Config struct {
	// Strict emits nothing from a nodeset with any error level
	// diagnostic. Otherwise every node which could be ordered is emitted.
	Strict bool `yaml:"strict"`
	// LegacyScalarArray gives a scalar value of a value rank 1 variable
	// without declared dimensions the dimensions [0] rather than [1].
	LegacyScalarArray bool `yaml:"legacyScalarArray"`
	// Files are nodeset URLs loaded in order by LoadFiles
	Files []string `yaml:"files,omitempty"`
	// StandardNamespace is the URI mapped to namespace index 0
	StandardNamespace string `yaml:"standardNamespace"`
	ArenaChunkSize    int    `yaml:"arenaChunkSize"`
}

func DefaultConfig() *Config {
	return &Config{
		LegacyScalarArray: true,
		StandardNamespace: ua.StandardNamespace,
		ArenaChunkSize:    arena.DefaultChunkSize,
	}
}

// LoadConfig returns the default config overlaid with the YAML document
// data.
func LoadConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "loader config")
	}
	if cfg.ArenaChunkSize < 0 {
		return nil, errors.Errorf("loader config: invalid arenaChunkSize %d", cfg.ArenaChunkSize)
	}
	return cfg, nil
}
