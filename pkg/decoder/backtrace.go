package decoder

import (
	"fmt"
	"strings"

	"github.com/larkhollow/lexara/pkg/lattice"
	"github.com/larkhollow/lexara/pkg/types"
)

// FindExit implements find_exit: it scans history backward
// for the first entry at or before frameIdx, then among all entries at that
// same frame picks the highest-scoring one — one whose destination state is
// the grammar's final state, if final is required.
//
// Unlike the reference's documented off-by-one, FindExit
// returns an error rather than a wrong bpidx when no entry exists at or
// before frameIdx.
func (d *Decoder) FindExit(frameIdx types.FrameIdx, final bool) (types.BpIdx, error) {
	n := d.hist.Committed()
	searchFrame := types.FrameIdx(0)
	found := false
	for i := n - 1; i >= 0; i-- {
		e := d.hist.Get(types.BpIdx(i))
		if e.Frame <= frameIdx {
			searchFrame = e.Frame
			found = true
			break
		}
	}
	if !found {
		return types.NoBpIdx, fmt.Errorf("decoder: find_exit: no entry at or before frame %d", frameIdx)
	}

	best := types.NoBpIdx
	bestScore := types.WorstScore
	for i := 0; i < n; i++ {
		e := d.hist.Get(types.BpIdx(i))
		if e.Frame != searchFrame {
			continue
		}
		if final && e.ToState(d.curFSG.StartState()) != d.curFSG.FinalState() {
			continue
		}
		if e.Score > bestScore {
			bestScore = e.Score
			best = types.BpIdx(i)
		}
	}
	if best == types.NoBpIdx {
		return types.NoBpIdx, fmt.Errorf("decoder: find_exit: no matching entry at frame %d", searchFrame)
	}
	return best, nil
}

// Hyp returns the best hypothesis string and its path score. When BestPath
// is configured and the utterance is final, it bypasses the raw backtrace
// and returns the lattice's best-path hypothesis instead, with a score of 0.
func (d *Decoder) Hyp() (string, types.LogProb, error) {
	if d.cfg.BestPath && d.final {
		lat, err := d.Lattice()
		if err != nil {
			return "", 0, err
		}
		path := lattice.BestPath(lat)
		if path == nil {
			return "", 0, fmt.Errorf("decoder: hyp: no bestpath through lattice")
		}
		return lattice.Hyp(lat, path, d.dict.IsFiller, d.dict.WordStr), 0, nil
	}

	bp, err := d.FindExit(d.frame-1, d.final)
	if err != nil {
		return "", 0, err
	}

	score := d.hist.Get(bp).Score
	var words []string
	for idx := bp; idx != types.NoBpIdx; {
		e := d.hist.Get(idx)
		if e.FSGLink != nil {
			wid := e.FSGLink.Word
			if wid != types.NoWord && !d.curFSG.IsFiller(wid) {
				words = append(words, d.curFSG.WordStr(wid))
			}
		}
		idx = e.Pred
	}
	for i, j := 0, len(words)-1; i < j; i, j = i+1, j-1 {
		words[i], words[j] = words[j], words[i]
	}
	return strings.Join(words, " "), score, nil
}
