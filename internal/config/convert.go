package config

import (
	"math"

	"github.com/larkhollow/lexara/pkg/decoder"
	"github.com/larkhollow/lexara/pkg/types"
)

// logScale matches the fixed-point scaling [pkg/fsg.Graph] uses to map
// linear probabilities into the decoder's integer log-probability domain.
const logScale = 1000.0

// linearToLog converts a linear probability in (0, 1] to the decoder's
// LogProb domain. p <= 0 maps to [types.WorstScore].
func linearToLog(p float64) types.LogProb {
	if p <= 0 {
		return types.WorstScore
	}
	return types.LogProb(math.Log(p) * logScale)
}

// ToDecoderConfig converts the YAML-authored, linear-probability decoder
// and FSG filler-penalty settings into the log-domain [decoder.Config] the
// core runs with. nPhones sizes every lextree context bitset and must
// match the dictionary's phone inventory; silPhone is the dictionary's
// interned silence phone id, carried as the utterance-start dummy entry's
// left context.
func (c DecoderConfig) ToDecoderConfig(fsgCfg FSGConfig, nPhones int, silPhone types.PhoneID) decoder.Config {
	return decoder.Config{
		Beam:           linearToLog(c.Beam),
		PBeam:          linearToLog(c.PBeam),
		WBeam:          linearToLog(c.WBeam),
		LW:             c.LW,
		WIP:            linearToLog(c.WIP),
		PIP:            linearToLog(c.PIP),
		MaxHMMPerFrame: c.MaxHMMPerFrame,
		BestPath:       c.BestPath,
		AScale:         c.AScale,
		SilPenalty:     linearToLog(fsgCfg.SilProb),
		FillPenalty:    linearToLog(fsgCfg.FillProb),
		NPhones:        nPhones,
		SilPhone:       silPhone,
	}
}
