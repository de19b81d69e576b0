package cmd

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// RunConfig is the YAML-loadable run configuration. Flags fill in a default
// config; a --config file overrides the defaults before flags apply.
type RunConfig struct {
	Iterations int   `yaml:"iterations"`
	BurnIn     int   `yaml:"burnin"`
	Thin       int   `yaml:"thin"`
	Chains     int   `yaml:"chains"`
	Seed       int64 `yaml:"seed"`

	// Scale is the within-model random-walk proposal std-dev; JumpScale is
	// the reversible-jump kernel std-dev; Prior is the inclusion prior.
	Scale     float64 `yaml:"scale"`
	JumpScale float64 `yaml:"jumpScale"`
	Prior     float64 `yaml:"prior"`

	// TraceFile receives merged monitored samples as CSV. A name ending in
	// .gz is gzip-compressed on the way out.
	TraceFile string `yaml:"traceFile"`
}

// DefaultRunConfig returns the config used when no file is given.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		Iterations: 10000,
		BurnIn:     500,
		Thin:       1,
		Chains:     2,
		Seed:       1,
		Scale:      0.5,
		JumpScale:  1.0,
		Prior:      0.8,
	}
}

// LoadRunConfig reads and validates a YAML run configuration.
func LoadRunConfig(filename string) (RunConfig, error) {
	cfg := DefaultRunConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return cfg, errors.Wrapf(err, "Could not READ config from %s", filename)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "Could not PARSE config from %s", filename)
	}

	return cfg, cfg.Check()
}

// Check returns an error if there is a problem with the configuration.
func (c *RunConfig) Check() error {
	if c.Iterations < 1 {
		return errors.Errorf("Invalid iteration count %d", c.Iterations)
	}
	if c.BurnIn < 0 {
		return errors.Errorf("Invalid burn-in %d", c.BurnIn)
	}
	if c.Thin < 1 {
		return errors.Errorf("Invalid thinning interval %d", c.Thin)
	}
	if c.Chains < 1 {
		return errors.Errorf("Invalid chain count %d", c.Chains)
	}
	if c.Scale <= 0 || c.JumpScale <= 0 {
		return errors.Errorf("Proposal scales must be positive (scale=%v, jumpScale=%v)", c.Scale, c.JumpScale)
	}
	if c.Prior <= 0 || c.Prior >= 1 {
		return errors.Errorf("Inclusion prior %v not in (0,1)", c.Prior)
	}
	return nil
}
