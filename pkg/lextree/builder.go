package lextree

import (
	"fmt"

	"github.com/larkhollow/lexara/pkg/dict"
	"github.com/larkhollow/lexara/pkg/fsg"
	"github.com/larkhollow/lexara/pkg/hmm"
	"github.com/larkhollow/lexara/pkg/types"
)

// Config holds the penalties and weighting the builder folds into each
// node's LogS2Prob, and the phone count used to size context bitsets.
type Config struct {
	// LW is the language-weight multiplier applied to FSG arc log-probs.
	LW float64
	// WIP is the word-insertion penalty, added once per word (i.e. once
	// per root's entering log-prob, together with the weighted arc
	// log-prob).
	WIP types.LogProb
	// PIP is the phone-insertion penalty, the entering log-prob of every
	// node after the first along a pronunciation's phone chain.
	PIP types.LogProb
	// NPhones sizes every node's Ctxt bitset; must be at least
	// phones.N() for every phone the dictionary references.
	NPhones int
}

// Builder constructs a [Tree] from an FSG and a dictionary: the phonetic
// lexical tree the decoder core only walks. Construction is the
// collaborator step this core places out of its own scope; the core
// consumes [Tree.RootList] and the PNode fields directly.
type Builder struct {
	fsg  fsg.Model
	dict dict.Dictionary
	hctx hmm.Context
	cfg  Config
}

// NewBuilder returns a Builder wiring g and d into lextree nodes scored
// via hctx, using cfg's penalties and context-bitset sizing.
func NewBuilder(g fsg.Model, d dict.Dictionary, hctx hmm.Context, cfg Config) *Builder {
	return &Builder{fsg: g, dict: d, hctx: hctx, cfg: cfg}
}

// Build walks every non-null arc of the FSG, instantiates one linear
// phone chain per pronunciation variant of the arc's word (including
// dictionary alternates), and registers each chain's first node as a
// root of the arc's from-state.
//
// Context bitsets are a simplification: since triphone acoustic modeling
// is explicitly out of this core's scope, every root accepts
// any left context and every non-filler leaf emits its configured Ctxt as
// computed by exitContext (default: accept/emit any context). This keeps the
// admissibility tests in §4.5 meaningful (still real bitset membership
// checks) without requiring a triphone model the core doesn't own.
func (b *Builder) Build() (*Tree, error) {
	t := NewTree()
	for s := 0; s < b.fsg.NState(); s++ {
		from := fsg.State(s)
		for d := 0; d < b.fsg.NState(); d++ {
			to := fsg.State(d)
			for _, link := range b.fsg.Trans(from, to) {
				if link.IsNull() {
					continue
				}
				if err := b.addArc(t, link); err != nil {
					return nil, fmt.Errorf("lextree: build arc %d->%d: %w", from, to, err)
				}
			}
		}
	}
	return t, nil
}

func (b *Builder) addArc(t *Tree, link *fsg.Link) error {
	for wid := b.dict.BaseWID(b.wordID(link)); wid != types.NoWord; wid = b.dict.NextAlt(wid) {
		if err := b.addPronunciation(t, link, wid); err != nil {
			return err
		}
	}
	return nil
}

// wordID resolves the FSG arc's word into a dictionary id. A word the
// grammar references but the dictionary doesn't define (including grammar-
// local filler words added via AddSilence without a matching dictionary
// entry) resolves to types.NoWord; addArc then builds no phone chain for
// the arc, so it never becomes reachable in the lextree. Operators who add
// a filler self-loop through AddSilence must also list that word in the
// dictionary file for it to be decodable.
func (b *Builder) wordID(link *fsg.Link) types.WordID {
	return b.dict.ToID(b.fsg.WordStr(link.Word))
}

func (b *Builder) addPronunciation(t *Tree, link *fsg.Link, wid types.WordID) error {
	pron := b.dict.Pron(wid)
	if len(pron) == 0 {
		return fmt.Errorf("word %q has an empty pronunciation", b.dict.WordStr(wid))
	}

	entryLP := types.LogProb(float64(link.LogProb)*b.cfg.LW) + b.cfg.WIP
	filler := b.dict.IsFiller(wid) || b.fsg.IsFiller(link.Word)
	singlePhone := len(pron) == 1

	var prevID NodeID = NoNode
	for i, ph := range pron {
		isLeaf := i == len(pron)-1
		n := &PNode{
			HMM:        b.hctx.NewInstance(ph),
			CIExt:      ph,
			Successors: NoNode,
			Sibling:    NoNode,
			Word:       types.NoWord,
		}
		if i == 0 {
			n.LogS2Prob = entryLP
			n.Ctxt = allContexts(b.cfg.NPhones) // root accepts any left context
		} else {
			n.LogS2Prob = b.cfg.PIP
		}
		if isLeaf {
			n.FSGLink = link
			n.Word = wid
			n.FromState = link.From
			n.ToState = link.To
			if filler || singlePhone {
				n.Ctxt = allContexts(b.cfg.NPhones)
			} else {
				n.Ctxt = exitContext(b.cfg.NPhones, ph)
			}
		}

		id := t.AddNode(n)
		if i == 0 {
			t.AddRoot(link.From, id)
		} else {
			parent := t.Node(prevID)
			if parent.Successors == NoNode {
				parent.Successors = id
			} else {
				sib := parent.Successors
				for t.Node(sib).Sibling != NoNode {
					sib = t.Node(sib).Sibling
				}
				t.Node(sib).Sibling = id
			}
		}
		prevID = id
	}
	return nil
}

// allContexts returns a bitset with every phone in [0, n) marked, i.e. an
// admissibility test against it always succeeds.
func allContexts(n int) types.ContextSet {
	cs := types.NewContextSet(n)
	cs.SetAll()
	return cs
}

// exitContext returns the default non-filler, non-single-phone leaf
// right-context bitset. Absent a real triphone model this accepts any
// following context; callers building a richer acoustic model can widen
// [Builder] to narrow it per phone.
func exitContext(n int, _ types.PhoneID) types.ContextSet {
	return allContexts(n)
}
