package decoder

import (
	"fmt"

	"github.com/larkhollow/lexara/pkg/lattice"
	"github.com/larkhollow/lexara/pkg/types"
)

// Segment is one word's span and scores within a hypothesis; Prob and
// LBack mirror the reference's posterior-probability and lookback-window
// fields, unused by this core (prob is always 0, lback 1).
type Segment struct {
	Word  types.WordID
	SF    types.FrameIdx
	EF    types.FrameIdx
	LScr  types.LogProb
	AScr  types.LogProb
	Prob  int
	LBack int
}

// Segments walks bpidx's pred chain to the root and returns one Segment per
// history entry, oldest first.
func (d *Decoder) Segments(bpidx types.BpIdx) []Segment {
	n := 0
	for idx := bpidx; idx != types.NoBpIdx; {
		n++
		idx = d.hist.Get(idx).Pred
	}

	segs := make([]Segment, n)
	idx := bpidx
	for i := n - 1; i >= 0; i-- {
		e := d.hist.Get(idx)

		var sf types.FrameIdx
		var ascr types.LogProb
		if e.Pred == types.NoBpIdx {
			sf = 0
			ascr = e.Score
		} else {
			pred := d.hist.Get(e.Pred)
			sf = pred.Frame + 1
			ascr = e.Score - pred.Score
		}
		ef := e.Frame
		if sf > ef {
			sf = ef // null transitions can invert sf relative to ef
		}

		var lscr types.LogProb
		var wid types.WordID = types.NoWord
		if e.FSGLink != nil {
			lscr = e.FSGLink.LogProb
			wid = e.FSGLink.Word
		}
		ascr -= lscr

		segs[i] = Segment{Word: wid, SF: sf, EF: ef, LScr: lscr, AScr: ascr, Prob: 0, LBack: 1}
		idx = e.Pred
	}
	return segs
}

// SegIter returns the segmentation of the current best hypothesis. When
// BestPath is configured and the utterance is final, it delegates to the
// lattice's best-path segmentation instead of the raw backtrace
func (d *Decoder) SegIter() ([]Segment, error) {
	if d.cfg.BestPath && d.final {
		lat, err := d.Lattice()
		if err != nil {
			return nil, err
		}
		path := lattice.BestPath(lat)
		if path == nil {
			return nil, fmt.Errorf("decoder: segiter: no bestpath through lattice")
		}
		latSegs := lattice.Segments(lat, path)
		segs := make([]Segment, len(latSegs))
		for i, s := range latSegs {
			segs[i] = Segment{Word: s.Word, SF: s.SF, EF: s.EF, AScr: s.AScr, LBack: 1}
		}
		return segs, nil
	}

	bp, err := d.FindExit(d.frame-1, d.final)
	if err != nil {
		return nil, err
	}
	return d.Segments(bp), nil
}
