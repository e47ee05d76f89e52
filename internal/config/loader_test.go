package config_test

import (
	"strings"
	"testing"

	"github.com/larkhollow/lexara/internal/config"
)

const sampleYAML = `
decoder:
  beam: 1e-64
  pbeam: 1e-64
  wbeam: 1e-40
  lw: 9.5
  pip: 0.3
  wip: 0.65
  maxhmmpf: 30000
  bestpath: true
  ascale: 1
fsg:
  path: "configs/example.fsg"
  use_filler: true
  use_altpron: true
  silprob: 0.1
  fillprob: 0.1
server:
  listen_addr: ":8080"
  log_level: "info"
persist:
  dsn: ""
`

func TestLoadFromReader(t *testing.T) {
	cfg, err := config.LoadFromReader(strings.NewReader(sampleYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.FSG.Path != "configs/example.fsg" {
		t.Errorf("FSG.Path = %q, want configs/example.fsg", cfg.FSG.Path)
	}
	if cfg.Decoder.MaxHMMPerFrame != 30000 {
		t.Errorf("Decoder.MaxHMMPerFrame = %d, want 30000", cfg.Decoder.MaxHMMPerFrame)
	}
	if !cfg.Decoder.BestPath {
		t.Error("Decoder.BestPath = false, want true")
	}
}

func TestLoadFromReaderUnknownField(t *testing.T) {
	bad := sampleYAML + "\nbogus_field: true\n"
	if _, err := config.LoadFromReader(strings.NewReader(bad)); err == nil {
		t.Fatal("expected an error for an unknown top-level field")
	}
}

func TestValidateRejectsMissingFSGPath(t *testing.T) {
	cfg, err := config.LoadFromReader(strings.NewReader(strings.Replace(sampleYAML, `path: "configs/example.fsg"`, `path: ""`, 1)))
	if err == nil {
		t.Fatalf("expected a validation error, got config %+v", cfg)
	}
}

func TestValidateRejectsOutOfRangeBeam(t *testing.T) {
	bad := strings.Replace(sampleYAML, "beam: 1e-64", "beam: 1.5", 1)
	if _, err := config.LoadFromReader(strings.NewReader(bad)); err == nil {
		t.Fatal("expected a validation error for beam > 1")
	}
}

func TestValidateRejectsZeroMaxHMMPerFrame(t *testing.T) {
	bad := strings.Replace(sampleYAML, "maxhmmpf: 30000", "maxhmmpf: 0", 1)
	if _, err := config.LoadFromReader(strings.NewReader(bad)); err == nil {
		t.Fatal("expected a validation error for maxhmmpf: 0")
	}
}

func TestValidateAllowsNegativeOneMaxHMMPerFrame(t *testing.T) {
	ok := strings.Replace(sampleYAML, "maxhmmpf: 30000", "maxhmmpf: -1", 1)
	if _, err := config.LoadFromReader(strings.NewReader(ok)); err != nil {
		t.Fatalf("maxhmmpf: -1 should be valid (cap disabled): %v", err)
	}
}

func TestValidateRejectsBadLogLevel(t *testing.T) {
	bad := strings.Replace(sampleYAML, `log_level: "info"`, `log_level: "verbose"`, 1)
	if _, err := config.LoadFromReader(strings.NewReader(bad)); err == nil {
		t.Fatal("expected a validation error for an invalid log level")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := config.Load("/nonexistent/path/config.yaml"); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}
