package decoder

import (
	"testing"

	"github.com/larkhollow/lexara/pkg/acoustic"
	"github.com/larkhollow/lexara/pkg/dict"
	"github.com/larkhollow/lexara/pkg/fsg"
	"github.com/larkhollow/lexara/pkg/hmm/hmmmock"
	"github.com/larkhollow/lexara/pkg/types"
)

// fakeAM is the minimal acoustic.Model a decoder test needs: a fixed frame
// count and an ignored score vector, since hmmmock.Context scripts its
// scores by phone id rather than by installed senone scores.
type fakeAM struct {
	nFrames int
}

func (f *fakeAM) NFeatFrame() int  { return f.nFrames }
func (f *fakeAM) CompAllSen() bool { return true }
func (f *fakeAM) Score(types.FrameIdx) ([]types.LogProb, acoustic.SenoneID, types.LogProb, error) {
	return nil, 0, 0, nil
}
func (f *fakeAM) ActivateHMM(types.PhoneID) {}
func (f *fakeAM) ClearActive()              {}

var _ acoustic.Model = (*fakeAM)(nil)

const wideBeam = types.LogProb(-1_000_000)

func wideConfig(nPhones int, silPhone types.PhoneID) Config {
	return Config{
		Beam:           wideBeam,
		PBeam:          wideBeam,
		WBeam:          wideBeam,
		MaxHMMPerFrame: -1,
		NPhones:        nPhones,
		SilPhone:       silPhone,
	}
}

// chainFixture is a linear, single-phone-per-word FSG: state i to i+1 is
// labeled words[i], with the final state being len(words). Every leaf
// doubles as its own root, so one Step per word is enough to exit it.
type chainFixture struct {
	phones   *dict.PhoneSet
	dict     *dict.MemDict
	graph    *fsg.Graph
	hctx     *hmmmock.Context
	reg      *fsg.Registry
	silPhone types.PhoneID
}

func newChainFixture(t *testing.T, words []string, scores []types.LogProb) *chainFixture {
	t.Helper()
	phones := dict.NewPhoneSet()
	md := dict.NewMemDict(phones)
	silPhone := phones.Intern("SIL")
	g := fsg.NewGraph("test", len(words)+1, 0, fsg.State(len(words)))
	hctx := hmmmock.NewContext()

	for i, w := range words {
		phStr := w + "_ph"
		ph := phones.Intern(phStr)
		md.AddWord(w, []string{phStr}, false)
		wid := g.WordAdd(w)
		g.AddArc(fsg.State(i), fsg.State(i+1), wid, -10)
		score := types.LogProb(0)
		if i < len(scores) {
			score = scores[i]
		}
		hctx.Script[ph] = []types.LogProb{score}
	}
	g.Finalize()

	reg := fsg.NewRegistry()
	reg.Add(g)
	if err := reg.Select("test"); err != nil {
		t.Fatalf("select: %v", err)
	}
	return &chainFixture{phones: phones, dict: md, graph: g, hctx: hctx, reg: reg, silPhone: silPhone}
}

func (f *chainFixture) newDecoder(nFrames int) *Decoder {
	am := &fakeAM{nFrames: nFrames}
	return New(f.reg, f.dict, f.hctx, am, wideConfig(f.phones.N(), f.silPhone))
}

// S1: single-word grammar, hyp should recover the one word.
func TestS1SingleWordHyp(t *testing.T) {
	fx := newChainFixture(t, []string{"one"}, nil)
	dec := fx.newDecoder(2)

	if err := dec.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := dec.Step(); err != nil {
			t.Fatalf("Step %d: %v", i, err)
		}
	}
	dec.Finish()

	hyp, _, err := dec.Hyp()
	if err != nil {
		t.Fatalf("Hyp: %v", err)
	}
	if hyp != "one" {
		t.Fatalf("Hyp = %q, want %q", hyp, "one")
	}

	bp, err := dec.FindExit(dec.frame-1, true)
	if err != nil {
		t.Fatalf("FindExit: %v", err)
	}
	if dec.hist.Get(bp).FSGLink == nil {
		t.Fatalf("expected a non-dummy exit entry")
	}
}

// S2: null transition. A dummy entry followed by an epsilon arc must
// produce a history entry at the destination state, with score equal to
// the epsilon arc's log-prob, before any HMM step runs.
func TestS2NullTransitionBeforeAnyStep(t *testing.T) {
	phones := dict.NewPhoneSet()
	md := dict.NewMemDict(phones)
	silPhone := phones.Intern("SIL")
	g := fsg.NewGraph("s2", 3, 0, 2)
	g.AddNullArc(0, 1, -37)
	wid := g.WordAdd("W")
	g.AddArc(1, 2, wid, -10)
	md.AddWord("W", []string{"w_ph"}, false)
	g.Finalize()

	reg := fsg.NewRegistry()
	reg.Add(g)
	_ = reg.Select("s2")

	hctx := hmmmock.NewContext()
	am := &fakeAM{nFrames: 1}
	dec := New(reg, md, hctx, am, wideConfig(phones.N(), silPhone))

	if err := dec.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	var found bool
	for i := 0; i < dec.hist.Committed(); i++ {
		e := dec.hist.Get(types.BpIdx(i))
		if e.FSGLink != nil && e.FSGLink.IsNull() && e.ToState(g.StartState()) == fsg.State(1) {
			found = true
			if e.Score != -37 {
				t.Fatalf("null-prop entry score = %d, want -37", e.Score)
			}
		}
	}
	if !found {
		t.Fatalf("expected a null-transition entry into state 1 after Start, history: %+v", dumpHistory(dec))
	}
}

type historyEntry struct {
	idx   int
	frame types.FrameIdx
	score types.LogProb
	pred  types.BpIdx
}

func dumpHistory(d *Decoder) []historyEntry {
	var out []historyEntry
	for i := 0; i < d.hist.Committed(); i++ {
		e := d.hist.Get(types.BpIdx(i))
		out = append(out, historyEntry{i, e.Frame, e.Score, e.Pred})
	}
	return out
}

// S3: two-word sequence. Exactly two non-filler entries survive to the
// final hypothesis, and the second word's acoustic score follows
// ascr(B) = score(B) - score(A) - logp(B-arc).
func TestS3TwoWordSequenceAscr(t *testing.T) {
	fx := newChainFixture(t, []string{"a", "b"}, []types.LogProb{-200, -300})
	dec := fx.newDecoder(4)

	if err := dec.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for i := 0; i < 4; i++ {
		if _, err := dec.Step(); err != nil {
			t.Fatalf("Step %d: %v", i, err)
		}
	}
	dec.Finish()

	hyp, _, err := dec.Hyp()
	if err != nil {
		t.Fatalf("Hyp: %v", err)
	}
	if hyp != "a b" {
		t.Fatalf("Hyp = %q, want %q", hyp, "a b")
	}

	bp, err := dec.FindExit(dec.frame-1, true)
	if err != nil {
		t.Fatalf("FindExit: %v", err)
	}
	segs := dec.Segments(bp)

	var nonFiller []Segment
	for _, s := range segs {
		if s.Word != types.NoWord {
			nonFiller = append(nonFiller, s)
		}
	}
	if len(nonFiller) != 2 {
		t.Fatalf("expected 2 non-null segments, got %d: %+v", len(nonFiller), segs)
	}

	bEntry := dec.hist.Get(bp)
	aEntry := dec.hist.Get(bEntry.Pred)
	wantAscr := bEntry.Score - aEntry.Score - bEntry.FSGLink.LogProb
	last := nonFiller[len(nonFiller)-1]
	if last.AScr != wantAscr {
		t.Fatalf("AScr(b) = %d, want %d", last.AScr, wantAscr)
	}
}

// S4: beam throttling. A grammar with enough parallel first-word arcs to
// exceed maxhmmpf must narrow the beam factor geometrically, floored at
// 0.1. The reset to 1.0 under the cap is covered by pkg/beam's tests.
func TestS4BeamThrottling(t *testing.T) {
	phones := dict.NewPhoneSet()
	md := dict.NewMemDict(phones)
	silPhone := phones.Intern("SIL")

	const nWords = 8
	g := fsg.NewGraph("s4", 2, 0, 1)
	hctx := hmmmock.NewContext()
	for i := 0; i < nWords; i++ {
		w := string(rune('A' + i))
		phStr := w + "_ph"
		ph := phones.Intern(phStr)
		md.AddWord(w, []string{phStr}, false)
		wid := g.WordAdd(w)
		g.AddArc(0, 1, wid, -10)
		hctx.Script[ph] = []types.LogProb{0}
	}
	g.Finalize()

	reg := fsg.NewRegistry()
	reg.Add(g)
	_ = reg.Select("s4")

	am := &fakeAM{nFrames: 3}
	cfg := wideConfig(phones.N(), silPhone)
	cfg.MaxHMMPerFrame = nWords - 1 // every frame evaluates all nWords roots
	dec := New(reg, md, hctx, am, cfg)

	if err := dec.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if _, err := dec.Step(); err != nil {
		t.Fatalf("Step 0: %v", err)
	}
	f1 := dec.beamCtl.Factor()
	if f1 != 0.9 {
		t.Fatalf("factor after first over-cap frame = %v, want 0.9", f1)
	}

	if _, err := dec.Step(); err != nil {
		t.Fatalf("Step 1: %v", err)
	}
	f2 := dec.beamCtl.Factor()
	if f2 >= f1 {
		t.Fatalf("factor did not narrow further: f1=%v f2=%v", f1, f2)
	}
	if f2 < 0.1 {
		t.Fatalf("factor %v fell below the floor", f2)
	}
}

// S5: filler skipping. A grammar admitting <sil> W <sil> must yield a
// hypothesis containing only W.
func TestS5FillerSkippedInHyp(t *testing.T) {
	phones := dict.NewPhoneSet()
	md := dict.NewMemDict(phones)
	silPhone := phones.Intern("SIL")
	g := fsg.NewGraph("s5", 4, 0, 3)
	hctx := hmmmock.NewContext()

	addWord := func(name string, from, to fsg.State, filler bool) {
		phStr := name + "_ph"
		ph := phones.Intern(phStr)
		md.AddWord(name, []string{phStr}, filler)
		wid := g.WordAdd(name)
		if filler {
			g.MarkFiller(wid)
		}
		g.AddArc(from, to, wid, -10)
		hctx.Script[ph] = []types.LogProb{0}
	}
	addWord("<sil1>", 0, 1, true)
	addWord("W", 1, 2, false)
	addWord("<sil2>", 2, 3, true)
	g.Finalize()

	reg := fsg.NewRegistry()
	reg.Add(g)
	_ = reg.Select("s5")

	am := &fakeAM{nFrames: 3}
	dec := New(reg, md, hctx, am, wideConfig(phones.N(), silPhone))

	if err := dec.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := dec.Step(); err != nil {
			t.Fatalf("Step %d: %v", i, err)
		}
	}
	dec.Finish()

	hyp, _, err := dec.Hyp()
	if err != nil {
		t.Fatalf("Hyp: %v", err)
	}
	if hyp != "W" {
		t.Fatalf("Hyp = %q, want %q", hyp, "W")
	}
}

// Start immediately followed by Finish must not crash and must yield no
// hypothesis (S8).
func TestS8StartFinishNoHypothesis(t *testing.T) {
	fx := newChainFixture(t, []string{"one"}, nil)
	dec := fx.newDecoder(0)

	if err := dec.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	dec.Finish()

	if _, _, err := dec.Hyp(); err == nil {
		t.Fatalf("expected no hypothesis from an utterance with no frames decoded")
	}
}

// After Step, pnode_active_next must be empty and pnode_active must only
// contain HMMs scheduled at the current frame (invariant 3).
func TestActiveSetInvariantAfterStep(t *testing.T) {
	fx := newChainFixture(t, []string{"a", "b"}, nil)
	dec := fx.newDecoder(3)

	if err := dec.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := dec.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if len(dec.activeNext) != 0 {
		t.Fatalf("activeNext not drained after Step: %v", dec.activeNext)
	}
	for _, id := range dec.active {
		if dec.tree.Node(id).HMM.Frame() != dec.frame {
			t.Fatalf("active pnode %d scheduled at frame %d, want current frame %d", id, dec.tree.Node(id).HMM.Frame(), dec.frame)
		}
	}
}

// bpidxStart must be monotonically non-decreasing across frames
// (invariant 4); capture it across two Step calls.
func TestBpidxStartMonotonic(t *testing.T) {
	fx := newChainFixture(t, []string{"a", "b"}, nil)
	dec := fx.newDecoder(3)

	if err := dec.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	prev := dec.hist.Size()
	for i := 0; i < 3; i++ {
		if _, err := dec.Step(); err != nil {
			t.Fatalf("Step %d: %v", i, err)
		}
		cur := dec.hist.Size()
		if cur < prev {
			t.Fatalf("history size shrank across steps: %d -> %d", prev, cur)
		}
		prev = cur
	}
}

// Lattice() must be idempotent with no intervening Step (invariant 9).
func TestLatticeIdempotent(t *testing.T) {
	fx := newChainFixture(t, []string{"a", "b"}, nil)
	dec := fx.newDecoder(4)

	if err := dec.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for i := 0; i < 4; i++ {
		if _, err := dec.Step(); err != nil {
			t.Fatalf("Step %d: %v", i, err)
		}
	}
	dec.Finish()

	l1, err := dec.Lattice()
	if err != nil {
		t.Fatalf("Lattice: %v", err)
	}
	l2, err := dec.Lattice()
	if err != nil {
		t.Fatalf("Lattice (2nd call): %v", err)
	}
	if l1 != l2 {
		t.Fatalf("Lattice() returned distinct objects with no intervening Step")
	}
}

// Step with no active HMM at frame start logs and carries on rather than
// crashing (the acoustic model still reports a frame available).
func TestStepWithNoActiveHMMDoesNotCrash(t *testing.T) {
	fx := newChainFixture(t, []string{"one"}, nil)
	dec := fx.newDecoder(1)

	if err := dec.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	dec.active = dec.active[:0] // simulate no active HMM at frame start

	if _, err := dec.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
}
