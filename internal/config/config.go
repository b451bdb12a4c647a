// Package config loads extraction profiles from YAML files. A profile
// collects the settings that would otherwise be repeated on every
// invocation; command-line flags always win over profile values.
package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/meaningmap/bhsa-extract/core/bhsa"
	"github.com/meaningmap/bhsa-extract/core/errors"
)

// Config models an extraction profile file.
type Config struct {
	// CorpusDir is the directory holding the .tf feature files.
	CorpusDir string `yaml:"corpus_dir"`

	// OutputDir receives the per-book JSON files.
	OutputDir string `yaml:"output_dir"`

	// BHSAVersion is recorded in enriched output. Defaults to the
	// corpus version this tool is built against.
	BHSAVersion string `yaml:"bhsa_version"`

	// Books limits extraction to the named books. Empty leaves the
	// default book set to each command (whole canon for the basic
	// profile, pilot set for the enriched one).
	Books []string `yaml:"books,omitempty"`

	// ExtraFeatures are additional word features loaded alongside the
	// standard set and passed through to enriched word records.
	ExtraFeatures []string `yaml:"extra_features,omitempty"`

	// Log controls the logger when set.
	Log LogConfig `yaml:"log,omitempty"`
}

// LogConfig selects logger level and output format.
type LogConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// Default returns the built-in profile. Books stays empty so each command
// keeps its own default book set.
func Default() *Config {
	return &Config{
		CorpusDir:   "corpus",
		OutputDir:   "output",
		BHSAVersion: bhsa.DefaultBHSAVersion,
	}
}

// Load reads a profile file and fills unset fields from the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewIO("read", path, err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.NewParse("yaml", path, err.Error())
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	def := Default()
	if c.CorpusDir == "" {
		c.CorpusDir = def.CorpusDir
	}
	if c.OutputDir == "" {
		c.OutputDir = def.OutputDir
	}
	if c.BHSAVersion == "" {
		c.BHSAVersion = def.BHSAVersion
	}
}

// Validate checks that every named book exists in the canon.
func (c *Config) Validate() error {
	for _, name := range c.Books {
		if _, ok := bhsa.LookupBook(name); !ok {
			return errors.NewValidation("books", "unknown book "+name)
		}
	}
	return nil
}

// Save writes the profile to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.NewIO("write", path, err)
	}
	return nil
}
