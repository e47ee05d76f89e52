package decoder

import (
	"fmt"

	"github.com/larkhollow/lexara/pkg/lattice"
)

// Lattice builds (or returns the cached) word lattice for the utterance
// decoded so far. Two calls with no intervening Step return the same
// object; concurrent callers racing the same
// frame collapse onto a single build via singleflight rather than each
// paying for lattice.Build.
func (d *Decoder) Lattice() (*lattice.Lattice, error) {
	d.mu.Lock()
	if d.lat != nil && d.latFrame == d.frame {
		lt := d.lat
		d.mu.Unlock()
		return lt, nil
	}
	frame := d.frame
	d.mu.Unlock()

	v, err, _ := d.sfGroup.Do(fmt.Sprintf("%d", frame), func() (interface{}, error) {
		lt, err := lattice.Build(d.hist, d.curFSG, d.dict, frame-1, lattice.Config{
			SilPenalty:  d.cfg.SilPenalty,
			FillPenalty: d.cfg.FillPenalty,
		})
		if err != nil {
			return nil, fmt.Errorf("decoder: lattice: %w", err)
		}
		d.mu.Lock()
		d.lat, d.latFrame = lt, frame
		d.mu.Unlock()
		return lt, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*lattice.Lattice), nil
}
