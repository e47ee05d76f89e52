package fsg

import (
	"math"

	"github.com/larkhollow/lexara/pkg/types"
)

// edgeKey packs a (from, to) state pair into a single map key.
type edgeKey struct {
	from, to State
}

// Graph is the in-memory [Model] reference implementation: states and arcs
// held in adjacency maps, with the null-transition transitive closure
// precomputed once at [Graph.Finalize] time so [Graph.NullTrans] is a single
// map lookup, never a multi-hop traversal.
type Graph struct {
	name   string
	nState int
	start  State
	final  State

	trans map[edgeKey][]*Link
	null  map[edgeKey]*Link // transitive-closed, best (max log-prob) epsilon path

	words      []string
	wordIDs    map[string]types.WordID
	fillers    map[types.WordID]bool
	hasSilence bool
	hasAlt     bool

	direct map[edgeKey][]*Link // raw authored null arcs, pre-closure
}

// NewGraph creates an empty grammar named name with nState states.
func NewGraph(name string, nState int, start, final State) *Graph {
	return &Graph{
		name:    name,
		nState:  nState,
		start:   start,
		final:   final,
		trans:   make(map[edgeKey][]*Link),
		null:    make(map[edgeKey]*Link),
		direct:  make(map[edgeKey][]*Link),
		wordIDs: make(map[string]types.WordID),
		fillers: make(map[types.WordID]bool),
	}
}

func (g *Graph) Name() string       { return g.name }
func (g *Graph) NState() int        { return g.nState }
func (g *Graph) StartState() State  { return g.start }
func (g *Graph) FinalState() State  { return g.final }
func (g *Graph) HasSilence() bool   { return g.hasSilence }
func (g *Graph) HasAlt() bool       { return g.hasAlt }
func (g *Graph) NWord() int         { return len(g.words) }

// AddArc records a non-null arc. Call [Graph.Finalize] after all arcs
// (including null arcs) have been added.
func (g *Graph) AddArc(from, to State, word types.WordID, logProb types.LogProb) {
	l := &Link{From: from, To: to, Word: word, LogProb: logProb}
	k := edgeKey{from, to}
	g.trans[k] = append(g.trans[k], l)
}

// AddNullArc records a direct (one-hop) epsilon arc. The transitive closure
// over all such arcs is computed by [Graph.Finalize].
func (g *Graph) AddNullArc(from, to State, logProb types.LogProb) {
	l := &Link{From: from, To: to, Word: types.NoWord, LogProb: logProb}
	k := edgeKey{from, to}
	g.direct[k] = append(g.direct[k], l)
}

// Finalize computes the transitive closure of null arcs. It must be called
// once after the grammar is fully built and before it is handed to the
// decoder; [pkg/fsg/loader] and [Registry.Add] call it automatically.
//
// The closure keeps, for each reachable (s, d) pair, the null path with the
// highest combined log-probability — consistent with Viterbi semantics.
func (g *Graph) Finalize() {
	n := g.nState
	// best[s][d] = best direct-or-multihop null log-prob from s to d.
	best := make(map[edgeKey]types.LogProb, len(g.direct))
	for k, links := range g.direct {
		var b types.LogProb = types.WorstScore
		for _, l := range links {
			if l.LogProb > b {
				b = l.LogProb
			}
		}
		best[k] = b
	}
	// Floyd–Warshall style relaxation: n is the number of FSG states, which
	// is small relative to the lextree/frame work the decoder does per
	// utterance, so O(n^3) here is not a hot path.
	for k := 0; k < n; k++ {
		for i := 0; i < n; i++ {
			ik, ok := best[edgeKey{State(i), State(k)}]
			if !ok {
				continue
			}
			for j := 0; j < n; j++ {
				kj, ok := best[edgeKey{State(k), State(j)}]
				if !ok {
					continue
				}
				cand := ik + kj
				key := edgeKey{State(i), State(j)}
				if cur, ok := best[key]; !ok || cand > cur {
					best[key] = cand
				}
			}
		}
	}
	g.null = make(map[edgeKey]*Link, len(best))
	for k, lp := range best {
		g.null[k] = &Link{From: k.from, To: k.to, Word: types.NoWord, LogProb: lp}
	}
}

func (g *Graph) Trans(s, d State) []*Link {
	return g.trans[edgeKey{s, d}]
}

func (g *Graph) NullTrans(s, d State) *Link {
	return g.null[edgeKey{s, d}]
}

func (g *Graph) WordStr(w types.WordID) string {
	if w == types.NoWord || int(w) >= len(g.words) {
		return ""
	}
	return g.words[w]
}

func (g *Graph) IsFiller(w types.WordID) bool {
	return g.fillers[w]
}

func (g *Graph) WordAdd(str string) types.WordID {
	if id, ok := g.wordIDs[str]; ok {
		return id
	}
	id := types.WordID(len(g.words))
	g.words = append(g.words, str)
	g.wordIDs[str] = id
	return id
}

// MarkFiller records w as a filler word (silence/noise), excluded from
// textual hypotheses and given the "applies to all right contexts" exit
// policy.
func (g *Graph) MarkFiller(w types.WordID) {
	g.fillers[w] = true
}

// AddSilence adds a self-loop on every state for word (interning it and
// marking it as a filler), with a linear self-loop probability prob. This
// mirrors fsg_model_add_silence in the reference decoder: it allows silence
// between words and at utterance boundaries without the grammar author
// having to spell out every <sil> self-loop by hand.
func (g *Graph) AddSilence(word string, prob float64) {
	wid := g.WordAdd(word)
	g.MarkFiller(wid)
	lp := linearToLog(prob)
	for s := 0; s < g.nState; s++ {
		g.AddArc(State(s), State(s), wid, lp)
	}
	g.hasSilence = true
	g.Finalize()
}

// AddAlt records altWord as an alternate pronunciation of word. The FSG
// model itself only needs the vocabulary entry; lextree construction is
// responsible for building a parallel phone path using the dictionary's
// alternate pronunciation for word.
func (g *Graph) AddAlt(word, altWord string) {
	g.WordAdd(altWord)
	g.hasAlt = true
}

// linearToLog approximates logmath_log(prob) in the decoder's fixed integer
// log domain; see [pkg/types.LogProb] for the convention (ln, scaled).
func linearToLog(p float64) types.LogProb {
	if p <= 0 {
		return types.WorstScore
	}
	const logScale = 1000.0 // matches the scale internal/config uses for its log-domain conversions
	lp := math.Log(p) * logScale
	return types.LogProb(lp)
}
