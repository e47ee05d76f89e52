package config

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked.
type ConfigDiff struct {
	// FSGPathChanged means fsg.path itself changed — the caller must load
	// the new grammar and call Decoder.FSGSelect (which invalidates the
	// lextree) before the next utterance.
	FSGPathChanged bool
	NewFSGPath     string

	// FSGExpansionChanged means use_filler/use_altpron/silprob/fillprob
	// changed, which also requires rebuilding the grammar's expansion and
	// therefore the lextree.
	FSGExpansionChanged bool

	// BeamsChanged means any decoder.* tunable changed; safe to apply to
	// the next utterance's [decoder.Config] without touching the lextree.
	BeamsChanged bool

	LogLevelChanged bool
	NewLogLevel     LogLevel
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.FSG.Path != new.FSG.Path {
		d.FSGPathChanged = true
		d.NewFSGPath = new.FSG.Path
	}
	if old.FSG.UseFiller != new.FSG.UseFiller ||
		old.FSG.UseAltPron != new.FSG.UseAltPron ||
		old.FSG.SilProb != new.FSG.SilProb ||
		old.FSG.FillProb != new.FSG.FillProb {
		d.FSGExpansionChanged = true
	}

	if old.Decoder != new.Decoder {
		d.BeamsChanged = true
	}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	return d
}
