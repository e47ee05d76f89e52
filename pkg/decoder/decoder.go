// Package decoder is the frame-synchronous Viterbi decoder core: it drives
// an acoustic model and an HMM context over a lexical tree built from a
// selected FSG grammar, maintaining the active HMM set, the three-beam
// pruning policy, and the append-only word-exit history that backtrace and
// lattice construction read from.
//
// Everything else — acoustic scoring, HMM arithmetic, FSG parsing, the
// pronunciation dictionary, lextree construction — is a collaborator
// consumed through the pkg/acoustic, pkg/hmm, pkg/fsg, pkg/dict and
// pkg/lextree interfaces; Decoder only orchestrates them, one frame at a
// time, for one utterance at a time.
package decoder

import (
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/larkhollow/lexara/pkg/acoustic"
	"github.com/larkhollow/lexara/pkg/beam"
	"github.com/larkhollow/lexara/pkg/dict"
	"github.com/larkhollow/lexara/pkg/fsg"
	"github.com/larkhollow/lexara/pkg/history"
	"github.com/larkhollow/lexara/pkg/hmm"
	"github.com/larkhollow/lexara/pkg/lattice"
	"github.com/larkhollow/lexara/pkg/lextree"
	"github.com/larkhollow/lexara/pkg/types"
)

// Config holds every tunable the reference decoder exposes as a command-line
// option: beam margins, language/insertion weighting, the
// per-frame HMM cap, bestpath rescoring, and the lattice filler penalties.
type Config struct {
	Beam  types.LogProb
	PBeam types.LogProb
	WBeam types.LogProb

	LW  float64
	WIP types.LogProb
	PIP types.LogProb

	MaxHMMPerFrame int

	BestPath bool
	AScale   int

	SilPenalty  types.LogProb
	FillPenalty types.LogProb

	// NPhones sizes every context bitset; must cover every phone id the
	// dictionary and lextree reference.
	NPhones int

	// SilPhone is the context-independent silence phone id carried as the
	// left-context of the utterance-start dummy history entry (the
	// reference decoder's "lc=sil" convention). It must be a valid phone
	// id in [0, NPhones) — types.NoPhone would never satisfy any root's
	// left-context bitset test, since [types.ContextSet.Has] rejects
	// negative ids, and no grammar's lextree roots would ever activate at
	// utterance start.
	SilPhone types.PhoneID
}

// Decoder is one decoding session: it owns the lextree, history table,
// active sets and beams for a single utterance at a time. The FSG registry
// and dictionary are shared, read-only collaborators.
type Decoder struct {
	fsgs *fsg.Registry
	dict dict.Dictionary
	hctx hmm.Context
	am   acoustic.Model
	cfg  Config

	curFSG fsg.Model
	tree   *lextree.Tree

	beamCtl *beam.Controller
	hist    *history.Table

	active     []lextree.NodeID
	activeNext []lextree.NodeID

	frame     types.FrameIdx
	bestScore types.LogProb
	nHMMEval  int
	nSenEval  int
	final     bool

	mu       sync.Mutex
	lat      *lattice.Lattice
	latFrame types.FrameIdx
	sfGroup  singleflight.Group

	log *slog.Logger
}

// New returns a Decoder over the given collaborators and cfg. The decoder
// has no lextree until [Decoder.Start] (or an explicit [Decoder.Reinit])
// builds one from the registry's currently selected grammar.
func New(fsgs *fsg.Registry, d dict.Dictionary, hctx hmm.Context, am acoustic.Model, cfg Config) *Decoder {
	return &Decoder{
		fsgs: fsgs,
		dict: d,
		hctx: hctx,
		am:   am,
		cfg:  cfg,
		beamCtl: beam.NewController(beam.Config{
			Beam:           cfg.Beam,
			PBeam:          cfg.PBeam,
			WBeam:          cfg.WBeam,
			MaxHMMPerFrame: cfg.MaxHMMPerFrame,
		}),
		hist:     history.NewTable(),
		latFrame: -1,
		log:      slog.Default(),
	}
}

// Reinit rebuilds the lextree from the registry's currently selected
// grammar. Called automatically by [Decoder.Start] whenever the selected
// grammar has changed (or the tree was invalidated by an FSG-set mutation);
// callers may also call it directly to force a rebuild ahead of time.
func (d *Decoder) Reinit() error {
	m := d.fsgs.Selected()
	if m == nil {
		return fmt.Errorf("decoder: reinit: no fsg selected")
	}
	b := lextree.NewBuilder(m, d.dict, d.hctx, lextree.Config{
		LW:      d.cfg.LW,
		WIP:     d.cfg.WIP,
		PIP:     d.cfg.PIP,
		NPhones: d.cfg.NPhones,
	})
	tree, err := b.Build()
	if err != nil {
		return fmt.Errorf("decoder: reinit: %w", err)
	}
	d.tree = tree
	d.curFSG = m
	return nil
}

// FSGAdd registers m in the decoder's grammar registry.
func (d *Decoder) FSGAdd(m fsg.Model) { d.fsgs.Add(m) }

// FSGRemove unregisters the grammar named name. If it was the decoder's
// current grammar, the lextree is invalidated; the next [Decoder.Start]
// (after a fresh [Decoder.FSGSelect]) rebuilds it.
func (d *Decoder) FSGRemove(name string) {
	d.fsgs.Remove(name)
	if d.curFSG != nil && d.curFSG.Name() == name {
		d.curFSG = nil
		d.tree = nil
	}
}

// FSGRemoveByName is an alias for [Decoder.FSGRemove].
func (d *Decoder) FSGRemoveByName(name string) { d.FSGRemove(name) }

// FSGSelect marks name as the grammar to use from the next [Decoder.Start],
// invalidating any lextree built from a previously selected grammar.
func (d *Decoder) FSGSelect(name string) error {
	if err := d.fsgs.Select(name); err != nil {
		return err
	}
	d.curFSG = nil
	d.tree = nil
	return nil
}

// FSGGet returns the grammar registered under name, or nil.
func (d *Decoder) FSGGet(name string) fsg.Model { return d.fsgs.Get(name) }

// FSGIter calls fn once per registered grammar.
func (d *Decoder) FSGIter(fn func(fsg.Model)) { d.fsgs.Iter(fn) }

// Start begins a new utterance: beams and history reset, a
// dummy root entry is committed, null-propagation and cross-word
// transitions seed the lextree roots reachable from the grammar's start
// state, and frame is set to 0.
func (d *Decoder) Start() error {
	if d.tree == nil || d.curFSG != d.fsgs.Selected() {
		if err := d.Reinit(); err != nil {
			return err
		}
	}

	d.beamCtl.Reset()
	d.hist.Drain()
	d.final = false
	d.bestScore = types.WorstScore
	d.nHMMEval, d.nSenEval = 0, 0
	d.active = d.active[:0]
	d.activeNext = d.activeNext[:0]

	d.mu.Lock()
	d.lat, d.latFrame = nil, -1
	d.mu.Unlock()

	// frame = -1 while seeding: null-prop/cross-word activate roots for
	// frame 0 (frame+1), matching the reference "frame starts at 0 after
	// start" contract.
	d.frame = -1

	rc := types.NewContextSet(d.cfg.NPhones)
	rc.SetAll()
	d.hist.Add(history.Entry{
		FSGLink: nil,
		Frame:   -1,
		Score:   0,
		Pred:    types.NoBpIdx,
		LC:      d.cfg.SilPhone,
		RC:      rc,
	})
	d.hist.EndFrame()

	d.nullPropagate(0)
	d.hist.EndFrame()
	d.crossWord(0)

	d.active, d.activeNext = d.activeNext, d.active[:0]
	d.frame = 0
	return nil
}

// Step advances the decoder by one frame: it scores the
// current frame, evaluates every active HMM, adapts the beam factor, prunes
// and propagates phone-internal transitions and word exits, closes null
// transitions, activates cross-word roots, and swaps the active sets.
//
// Returns 0 (no-op) if the acoustic model has no new frame; 1 on a normal
// step. Step panics if more HMMs are evaluated than the lextree contains —
// an unrecoverable active-set corruption.
func (d *Decoder) Step() (int, error) {
	if int(d.frame) >= d.am.NFeatFrame() {
		return 0, nil
	}

	if !d.am.CompAllSen() {
		d.am.ClearActive()
		for _, id := range d.active {
			d.am.ActivateHMM(d.tree.Node(id).HMM.CIPhone())
		}
	}

	scores, _, _, err := d.am.Score(d.frame)
	if err != nil {
		return 0, fmt.Errorf("decoder: score frame %d: %w", d.frame, err)
	}
	d.nSenEval += len(scores)
	d.hctx.SetSenScores(scores)

	bpidxStart := d.hist.Size()

	if len(d.active) == 0 {
		d.log.Error("decoder: no active HMM at frame start", "frame", d.frame)
	}

	bestScore := types.WorstScore
	nEval := 0
	for _, id := range d.active {
		node := d.tree.Node(id)
		d.hctx.VitEval(node.HMM)
		nEval++
		if node.HMM.BestScore() > bestScore {
			bestScore = node.HMM.BestScore()
		}
	}
	d.nHMMEval += nEval
	d.bestScore = bestScore

	oldFactor := d.beamCtl.Factor()
	newFactor := d.beamCtl.AdaptToFrame(nEval)
	if newFactor != oldFactor {
		d.log.Debug("decoder: beam factor changed", "frame", d.frame, "factor", newFactor)
	}

	if nEval > d.tree.NPNode() {
		panic(fmt.Sprintf("decoder: invariant violated at frame %d: evaluated %d HMMs, lextree has %d pnodes", d.frame, nEval, d.tree.NPNode()))
	}

	d.activeNext = d.activeNext[:0]

	beamV := d.beamCtl.Beam()
	pbeamV := d.beamCtl.PBeam()
	wbeamV := d.beamCtl.WBeam()

	for _, id := range d.active {
		node := d.tree.Node(id)
		inst := node.HMM
		if inst.BestScore() < bestScore+beamV {
			continue // pruned: not carried forward, deactivated in step 10
		}

		// Self-loop: this pnode's HMM is still mid-phone and keeps
		// evaluating next frame, independent of whether it also exits a
		// word or propagates to children this frame (HMMs
		// are reused by resetting their frame field).
		if inst.Frame() < d.frame+1 {
			d.activeNext = append(d.activeNext, id)
		}
		inst.Continue(d.frame + 1)

		out := inst.OutScore()
		if node.Leaf() {
			if out >= bestScore+wbeamV {
				d.emitLeafExit(node, inst, out)
			}
			continue
		}
		if out >= bestScore+pbeamV {
			d.propagatePhone(node, inst, out)
		}
	}
	d.hist.EndFrame()

	d.nullPropagate(bpidxStart)
	d.hist.EndFrame()

	d.crossWord(bpidxStart)

	for _, id := range d.active {
		if d.tree.Node(id).HMM.Frame() == d.frame {
			d.tree.Node(id).Deactivate()
		}
	}

	d.active, d.activeNext = d.activeNext, d.active[:0]

	d.mu.Lock()
	d.lat, d.latFrame = nil, -1
	d.mu.Unlock()

	d.frame++
	return 1, nil
}

// Finish ends the current utterance: every HMM in both
// active sets is deactivated and final is set. Idempotent.
func (d *Decoder) Finish() {
	for _, id := range d.active {
		d.tree.Node(id).Deactivate()
	}
	for _, id := range d.activeNext {
		d.tree.Node(id).Deactivate()
	}
	d.active = d.active[:0]
	d.activeNext = d.activeNext[:0]
	d.final = true
}

// Prob returns an integer posterior-like score derived from the last
// frame's best score, scaled by the configured acoustic-score divisor
// (-ascale); 0 if AScale is not configured.
func (d *Decoder) Prob() int {
	if d.cfg.AScale <= 0 {
		return 0
	}
	return int(d.bestScore) / d.cfg.AScale
}

// emitLeafExit commits a word-exit history entry for node, a leaf whose
// exit score has just passed the word beam.
func (d *Decoder) emitLeafExit(node *lextree.PNode, inst *hmm.Instance, out types.LogProb) {
	rc := node.Ctxt
	if d.dict.IsFiller(node.Word) || d.dict.PronLen(node.Word) == 1 {
		rc = types.NewContextSet(d.cfg.NPhones)
		rc.SetAll()
	}
	d.hist.Add(history.Entry{
		FSGLink: node.FSGLink,
		Frame:   d.frame,
		Score:   out,
		Pred:    inst.OutHistory(),
		LC:      node.CIExt,
		RC:      rc,
	})
}

// propagatePhone pushes node's phone-internal children onto the active set
// for the next frame when their entering score survives the state beam and
// strictly beats whatever token they already carry.
func (d *Decoder) propagatePhone(node *lextree.PNode, inst *hmm.Instance, out types.LogProb) {
	beamV := d.beamCtl.Beam()
	child := node.Successors
	for child != lextree.NoNode {
		cn := d.tree.Node(child)
		newscore := out + cn.LogS2Prob
		if newscore >= d.bestScore+beamV && newscore > cn.HMM.InScore() {
			if cn.HMM.Frame() < d.frame+1 {
				d.activeNext = append(d.activeNext, child)
			}
			cn.HMM.Enter(newscore, inst.OutHistory(), d.frame+1)
		}
		child = cn.Sibling
	}
}

type pendingEntry struct {
	idx types.BpIdx
	e   history.Entry
}

func (d *Decoder) collectFrom(from int) []pendingEntry {
	var jobs []pendingEntry
	d.hist.Range(from, func(idx types.BpIdx, e *history.Entry) {
		jobs = append(jobs, pendingEntry{idx, *e})
	})
	return jobs
}

// nullPropagate closes epsilon transitions reachable from every entry
// committed at or after from, exploiting the FSG's precomputed transitive
// closure so a single pass suffices.
func (d *Decoder) nullPropagate(from int) {
	g := d.curFSG
	wbeamV := d.beamCtl.WBeam()
	for _, j := range d.collectFrom(from) {
		s := j.e.ToState(g.StartState())
		for dst := 0; dst < g.NState(); dst++ {
			link := g.NullTrans(s, fsg.State(dst))
			if link == nil {
				continue
			}
			score := j.e.Score + link.LogProb
			if score < d.bestScore+wbeamV {
				continue
			}
			d.hist.Add(history.Entry{
				FSGLink: link,
				Frame:   j.e.Frame,
				Score:   score,
				Pred:    j.idx,
				LC:      j.e.LC,
				RC:      j.e.RC,
			})
		}
	}
}

// crossWord activates lextree roots reachable from every entry committed
// at or after from, gated by the left/right context bitset test.
func (d *Decoder) crossWord(from int) {
	g := d.curFSG
	beamV := d.beamCtl.Beam()
	for _, j := range d.collectFrom(from) {
		dst := j.e.ToState(g.StartState())
		for _, rootID := range d.tree.RootList(dst) {
			root := d.tree.Node(rootID)
			rcRoot := root.CIExt
			lcRoot := root.Ctxt
			if !lcRoot.Has(j.e.LC) || !j.e.RC.Has(rcRoot) {
				continue
			}
			newscore := j.e.Score + root.LogS2Prob
			if newscore < d.bestScore+beamV || newscore <= root.HMM.InScore() {
				continue
			}
			if root.HMM.Frame() < d.frame+1 {
				d.activeNext = append(d.activeNext, rootID)
			}
			root.HMM.Enter(newscore, j.idx, d.frame+1)
		}
	}
}
