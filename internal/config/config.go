// Package config provides the configuration schema, loader, and change
// detection for the lexara decoder service: beam margins, language/insertion
// weighting, the FSG grammar to load, and the server/persistence settings
// cmd/lexara wires up around the decoder core.
package config

// Config is the root configuration structure for lexara.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Decoder DecoderConfig `yaml:"decoder"`
	FSG     FSGConfig     `yaml:"fsg"`
	Server  ServerConfig  `yaml:"server"`
	Persist PersistConfig `yaml:"persist"`
}

// DecoderConfig holds every tunable the decoder exposes as a command-line
// option, expressed as linear probabilities/penalties the way an operator
// would author them; [DecoderConfig.ToDecoderConfig] converts these into
// the log-domain [pkg/decoder.Config] the core actually runs with.
type DecoderConfig struct {
	// Beam is the state-level survival margin, a probability in (0, 1].
	Beam float64 `yaml:"beam"`
	// PBeam is the phone-exit margin.
	PBeam float64 `yaml:"pbeam"`
	// WBeam is the word-exit / null-propagation margin.
	WBeam float64 `yaml:"wbeam"`

	// LW is the language-weight multiplier applied to FSG arc log-probs.
	LW float64 `yaml:"lw"`
	// PIP is the phone-insertion penalty (linear probability).
	PIP float64 `yaml:"pip"`
	// WIP is the word-insertion penalty (linear probability).
	WIP float64 `yaml:"wip"`

	// MaxHMMPerFrame caps the number of HMMs evaluated per frame before the
	// beam factor narrows; -1 disables the cap.
	MaxHMMPerFrame int `yaml:"maxhmmpf"`

	// BestPath enables post-pass bestpath lattice rescoring for the final
	// hypothesis and segmentation.
	BestPath bool `yaml:"bestpath"`

	// AScale is the acoustic-score divisor used by Decoder.Prob to derive
	// a posterior-like integer score. 0 disables it.
	AScale int `yaml:"ascale"`
}

// FSGConfig configures the grammar the decoder loads at startup and the
// automatic filler/alternate-pronunciation expansion applied to it.
type FSGConfig struct {
	// Path is the filesystem path to the initial FSG text file.
	Path string `yaml:"path"`

	// UseFiller auto-adds a <sil> self-loop to every state.
	UseFiller bool `yaml:"use_filler"`
	// UseAltPron auto-adds dictionary alternate pronunciations.
	UseAltPron bool `yaml:"use_altpron"`

	// SilProb is the probability of the <sil> self-loops added by
	// UseFiller. SilProb and FillProb are also converted into the
	// lattice-side bypass penalties applied to silence/filler nodes.
	SilProb  float64 `yaml:"silprob"`
	FillProb float64 `yaml:"fillprob"`
}

// ServerConfig holds network and logging settings for the lexara process.
type ServerConfig struct {
	// ListenAddr is the TCP address the metrics/health server listens on
	// (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity. Valid values: "debug", "info", "warn", "error".
	LogLevel LogLevel `yaml:"log_level"`
}

// LogLevel is a validated slog level name.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// IsValid reports whether l is one of the recognised level names.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true
	default:
		return false
	}
}

// PersistConfig configures optional Postgres persistence of finished
// hypotheses and lattices.
type PersistConfig struct {
	// DSN is the PostgreSQL connection string. Empty disables persistence
	// entirely — cmd/lexara skips building an [internal/persist.Store].
	DSN string `yaml:"dsn"`

	// VocabEmbeddingDim is the width of the pronunciation-embedding vectors
	// [internal/persist.VocabIndex] stores for nearest-neighbour out-of-
	// vocabulary lookups. 0 disables the vocabulary index; the utterance
	// archive tables are unaffected.
	VocabEmbeddingDim int `yaml:"vocab_embedding_dim"`
}
