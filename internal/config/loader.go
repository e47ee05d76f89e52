package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if cfg.FSG.Path == "" {
		errs = append(errs, errors.New("fsg.path is required"))
	}

	d := cfg.Decoder
	if d.Beam <= 0 || d.Beam > 1 {
		errs = append(errs, fmt.Errorf("decoder.beam %v must be a probability in (0, 1]", d.Beam))
	}
	if d.PBeam <= 0 || d.PBeam > 1 {
		errs = append(errs, fmt.Errorf("decoder.pbeam %v must be a probability in (0, 1]", d.PBeam))
	}
	if d.WBeam <= 0 || d.WBeam > 1 {
		errs = append(errs, fmt.Errorf("decoder.wbeam %v must be a probability in (0, 1]", d.WBeam))
	}
	if d.LW <= 0 {
		errs = append(errs, fmt.Errorf("decoder.lw %v must be positive", d.LW))
	}
	if d.MaxHMMPerFrame == 0 || d.MaxHMMPerFrame < -1 {
		errs = append(errs, errors.New("decoder.maxhmmpf must be a positive cap or -1 to disable"))
	}
	if d.AScale < 0 {
		errs = append(errs, fmt.Errorf("decoder.ascale %d must be >= 0", d.AScale))
	}

	if cfg.FSG.SilProb < 0 || cfg.FSG.SilProb > 1 {
		errs = append(errs, fmt.Errorf("fsg.silprob %v must be a probability in [0, 1]", cfg.FSG.SilProb))
	}
	if cfg.FSG.FillProb < 0 || cfg.FSG.FillProb > 1 {
		errs = append(errs, fmt.Errorf("fsg.fillprob %v must be a probability in [0, 1]", cfg.FSG.FillProb))
	}

	if cfg.Decoder.BestPath && cfg.Persist.DSN == "" {
		slog.Debug("decoder.bestpath is enabled without persist.dsn; rescored lattices will not be persisted")
	}

	return errors.Join(errs...)
}
