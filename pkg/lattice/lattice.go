// Package lattice builds the acyclic word graph the decoder emits at
// utterance end: one node per distinct (start-frame, word) pair, edges
// carrying the FSG transition's acoustic score and end frame, pruned to
// only the nodes reachable from the lattice's end node, with filler nodes
// bypassed for downstream rescoring.
package lattice

import (
	"fmt"

	"github.com/larkhollow/lexara/pkg/dict"
	"github.com/larkhollow/lexara/pkg/fsg"
	"github.com/larkhollow/lexara/pkg/history"
	"github.com/larkhollow/lexara/pkg/types"
)

// NodeID indexes a node in a [Lattice]. -1 means "none".
type NodeID int32

const NoNode NodeID = -1

// Edge is a directed link between two nodes, carrying the source history
// entry's acoustic score (its score minus its predecessor's, as computed in
// pass 1) and the frame at which that entry exited.
//
// The transition log-prob is folded into AScr
// here "for practical reasons", matching the reference decoder; whether
// this is correct for a downstream forward-backward consumer is not
// resolved by this core and is preserved as-is.
type Edge struct {
	To       NodeID
	AScr     types.LogProb
	EndFrame types.FrameIdx
}

// Node is one lattice node, identified by (StartFrame, Word).
type Node struct {
	StartFrame types.FrameIdx
	Word       types.WordID // FSG word id
	DictWord   types.WordID // filled in by mapWords; types.NoWord until then

	FEF types.FrameIdx // earliest observed end frame
	LEF types.FrameIdx // latest observed end frame

	// BestExit is the highest acoustic score seen across every history
	// entry that collapsed into this node.
	BestExit types.LogProb

	Out []Edge
	In  []Edge
}

// Lattice is the pruned acyclic word graph for one utterance.
type Lattice struct {
	Nodes []*Node
	Start NodeID
	End   NodeID

	Frame types.FrameIdx // the decoder frame this lattice was built at
}

type nodeKey struct {
	sf   types.FrameIdx
	word types.WordID
}

// builder holds pass-1/pass-2 working state.
type builder struct {
	g      fsg.Model
	d      dict.Dictionary
	silProb, fillProb types.LogProb

	nodes []*Node
	byKey map[nodeKey]NodeID
}

// Config holds the penalties applied when bypassing filler nodes.
type Config struct {
	// SilPenalty and FillPenalty are additive log-prob penalties applied
	// to the combined score of an edge that bypasses a silence/filler
	// node, mirroring -silprob/-fillprob's lattice-side use.
	SilPenalty  types.LogProb
	FillPenalty types.LogProb
}

// Build constructs a Lattice from hist's committed entries. lastFrame is
// the index of the last frame actually decoded (Decoder.frame - 1).
func Build(hist *history.Table, g fsg.Model, d dict.Dictionary, lastFrame types.FrameIdx, cfg Config) (*Lattice, error) {
	b := &builder{g: g, d: d, silProb: cfg.SilPenalty, fillProb: cfg.FillPenalty, byKey: make(map[nodeKey]NodeID)}

	n := hist.Committed()
	type occ struct {
		idx  types.BpIdx
		sf   types.FrameIdx
		ascr types.LogProb
		wid  types.WordID
	}
	var occs []occ

	// Pass 1: nodes.
	for i := 0; i < n; i++ {
		idx := types.BpIdx(i)
		e := hist.Get(idx)
		if e.FSGLink == nil || e.FSGLink.IsNull() {
			continue
		}
		sf, ascr := startFrameAndAScr(hist, e)
		wid := e.FSGLink.Word
		b.newNode(sf, e.Frame, wid, ascr)
		occs = append(occs, occ{idx: idx, sf: sf, ascr: ascr, wid: wid})
	}

	// Pass 2: edges.
	for _, o := range occs {
		e := hist.Get(o.idx)
		src := b.byKey[nodeKey{o.sf, o.wid}]
		for _, arc := range exits(b.g, e.FSGLink.To) {
			key := nodeKey{e.Frame + 1, arc.Word}
			dstID, ok := b.byKey[key]
			if !ok {
				continue
			}
			b.addEdge(src, dstID, o.ascr, e.Frame)
		}
	}

	lt := &Lattice{Nodes: b.nodes, Frame: lastFrame}
	if len(lt.Nodes) == 0 {
		return lt, fmt.Errorf("lattice: no word-exit history to build from")
	}

	resolveEndpoints(lt, lastFrame)
	mapWords(lt, g, d)
	pruneUnreachable(lt)
	bypassFillers(lt, d, cfg)
	return lt, nil
}

// startFrameAndAScr computes sf and ascr for entry e during the lattice's first pass:
// sf = pred's frame + 1 (0 if no pred); ascr = e.Score - pred.Score, or
// e.Score alone if there is no predecessor.
func startFrameAndAScr(hist *history.Table, e *history.Entry) (types.FrameIdx, types.LogProb) {
	if e.Pred == types.NoBpIdx {
		return 0, e.Score
	}
	pred := hist.Get(e.Pred)
	return pred.Frame + 1, e.Score - pred.Score
}

// exits returns every non-null arc reachable from state, either directly
// or via one null-closed hop, mirroring the decoder's own cross-word
// transition set and preserving the reference decoder's
// redundant extra null hop (the null closure already
// makes this a no-op beyond what a direct Trans/NullTrans pair finds, but
// the shape is kept for parity with the reference implementation).
func exits(g fsg.Model, from fsg.State) []*fsg.Link {
	var out []*fsg.Link
	for d := 0; d < g.NState(); d++ {
		to := fsg.State(d)
		out = append(out, g.Trans(from, to)...)
		if null := g.NullTrans(from, to); null != nil {
			for d2 := 0; d2 < g.NState(); d2++ {
				out = append(out, g.Trans(to, fsg.State(d2))...)
			}
		}
	}
	return out
}

// newNode implements new_node: insert, or extend an
// existing node's [FEF,LEF] span and raise BestExit.
func (b *builder) newNode(sf, ef types.FrameIdx, wid types.WordID, ascr types.LogProb) NodeID {
	key := nodeKey{sf, wid}
	if id, ok := b.byKey[key]; ok {
		node := b.nodes[id]
		if ef < node.FEF {
			node.FEF = ef
		}
		if ef > node.LEF {
			node.LEF = ef
		}
		if ascr > node.BestExit {
			node.BestExit = ascr
		}
		return id
	}
	id := NodeID(len(b.nodes))
	b.nodes = append(b.nodes, &Node{
		StartFrame: sf,
		Word:       wid,
		DictWord:   types.NoWord,
		FEF:        ef,
		LEF:        ef,
		BestExit:   ascr,
	})
	b.byKey[key] = id
	return id
}

func (b *builder) addEdge(from, to NodeID, ascr types.LogProb, endFrame types.FrameIdx) {
	b.nodes[from].Out = append(b.nodes[from].Out, Edge{To: to, AScr: ascr, EndFrame: endFrame})
	b.nodes[to].In = append(b.nodes[to].In, Edge{To: from, AScr: ascr, EndFrame: endFrame})
}

// resolveEndpoints picks or synthesizes the lattice's Start/End nodes:
// a unique frame-0 node with outgoing edges is Start; a
// unique node whose LEF equals the utterance's last frame with incoming
// edges is End. Otherwise an artificial node is synthesized and connected
// via zero-score epsilon links (the end-side link uses each real end
// candidate's BestExit).
func resolveEndpoints(lt *Lattice, lastFrame types.FrameIdx) {
	var startCands, endCands []NodeID
	for i, node := range lt.Nodes {
		id := NodeID(i)
		if node.StartFrame == 0 && len(node.Out) > 0 {
			startCands = append(startCands, id)
		}
		if node.LEF == lastFrame && len(node.In) > 0 {
			endCands = append(endCands, id)
		}
	}
	// A single committed word has no successor to create an outgoing/
	// incoming edge; fall back to frame/LEF membership alone so a
	// one-word utterance still resolves to a usable lattice.
	if len(startCands) == 0 {
		for i, node := range lt.Nodes {
			if node.StartFrame == 0 {
				startCands = append(startCands, NodeID(i))
			}
		}
	}
	if len(endCands) == 0 {
		for i, node := range lt.Nodes {
			if node.LEF == lastFrame {
				endCands = append(endCands, NodeID(i))
			}
		}
	}

	if len(startCands) == 1 {
		lt.Start = startCands[0]
	} else {
		start := NodeID(len(lt.Nodes))
		lt.Nodes = append(lt.Nodes, &Node{StartFrame: 0, Word: types.NoWord, DictWord: types.NoWord})
		for _, c := range startCands {
			linkZero(lt, start, c)
		}
		lt.Start = start
	}

	if len(endCands) == 1 {
		lt.End = endCands[0]
	} else {
		end := NodeID(len(lt.Nodes))
		lt.Nodes = append(lt.Nodes, &Node{StartFrame: lastFrame + 1, Word: types.NoWord, DictWord: types.NoWord})
		for _, c := range endCands {
			linkScored(lt, c, end, lt.Nodes[c].BestExit, lastFrame)
		}
		lt.End = end
	}
}

func linkZero(lt *Lattice, from, to NodeID) {
	lt.Nodes[from].Out = append(lt.Nodes[from].Out, Edge{To: to, AScr: 0, EndFrame: lt.Nodes[to].StartFrame})
	lt.Nodes[to].In = append(lt.Nodes[to].In, Edge{To: from, AScr: 0, EndFrame: lt.Nodes[to].StartFrame})
}

func linkScored(lt *Lattice, from, to NodeID, ascr types.LogProb, frame types.FrameIdx) {
	lt.Nodes[from].Out = append(lt.Nodes[from].Out, Edge{To: to, AScr: ascr, EndFrame: frame})
	lt.Nodes[to].In = append(lt.Nodes[to].In, Edge{To: from, AScr: ascr, EndFrame: frame})
}

// mapWords resolves every node's FSG word id into a dictionary id, by
// round-tripping through the FSG's surface form.
func mapWords(lt *Lattice, g fsg.Model, d dict.Dictionary) {
	for _, node := range lt.Nodes {
		if node.Word == types.NoWord {
			continue
		}
		node.DictWord = d.ToID(g.WordStr(node.Word))
	}
}

// pruneUnreachable deletes every node not reachable from lt.End via
// reverse BFS over incoming edges.
func pruneUnreachable(lt *Lattice) {
	reach := make([]bool, len(lt.Nodes))
	queue := []NodeID{lt.End}
	reach[lt.End] = true
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, e := range lt.Nodes[cur].In {
			if !reach[e.To] {
				reach[e.To] = true
				queue = append(queue, e.To)
			}
		}
	}

	remap := make([]NodeID, len(lt.Nodes))
	var kept []*Node
	for i, node := range lt.Nodes {
		if !reach[i] {
			remap[i] = NoNode
			continue
		}
		remap[i] = NodeID(len(kept))
		kept = append(kept, node)
	}
	for _, node := range kept {
		node.Out = filterEdges(node.Out, reach, remap)
		node.In = filterEdges(node.In, reach, remap)
	}
	lt.Nodes = kept
	lt.Start = remap[lt.Start]
	lt.End = remap[lt.End]
}

func filterEdges(edges []Edge, reach []bool, remap []NodeID) []Edge {
	out := edges[:0]
	for _, e := range edges {
		if reach[e.To] {
			e.To = remap[e.To]
			out = append(out, e)
		}
	}
	return out
}

// bypassFillers removes filler nodes (per the dictionary's IsFiller), on
// the word identity they realize, relinking each predecessor directly to
// each successor with the combined score plus the configured silence/
// filler penalty.
func bypassFillers(lt *Lattice, d dict.Dictionary, cfg Config) {
	var kept []*Node
	keepIdx := make([]NodeID, len(lt.Nodes))
	for i := range keepIdx {
		keepIdx[i] = NoNode
	}

	isFiller := func(n *Node) bool {
		return n.DictWord != types.NoWord && d.IsFiller(n.DictWord)
	}

	for i, node := range lt.Nodes {
		if NodeID(i) == lt.Start || NodeID(i) == lt.End || !isFiller(node) {
			keepIdx[i] = NodeID(len(kept))
			kept = append(kept, node)
		}
	}

	for i, node := range lt.Nodes {
		if keepIdx[i] != NoNode {
			continue // kept node, not bypassed
		}
		penalty := cfg.FillPenalty
		if node.DictWord != types.NoWord && d.WordStr(node.DictWord) == "<sil>" {
			penalty = cfg.SilPenalty
		}
		for _, in := range node.In {
			for _, out := range node.Out {
				if keepIdx[in.To] == NoNode || keepIdx[out.To] == NoNode {
					continue // both ends of the bypass must survive
				}
				bridgeScore := in.AScr + out.AScr + penalty
				fromNode := lt.Nodes[in.To]
				toNode := lt.Nodes[out.To]
				fromNode.Out = append(fromNode.Out, Edge{To: out.To, AScr: bridgeScore, EndFrame: out.EndFrame})
				toNode.In = append(toNode.In, Edge{To: in.To, AScr: bridgeScore, EndFrame: out.EndFrame})
			}
		}
	}

	for _, node := range kept {
		node.Out = dropEdgesTo(node.Out, lt.Nodes, keepIdx)
		node.In = dropEdgesTo(node.In, lt.Nodes, keepIdx)
	}
	for _, node := range kept {
		node.Out = remapEdges(node.Out, keepIdx)
		node.In = remapEdges(node.In, keepIdx)
	}

	lt.Start = keepIdx[lt.Start]
	lt.End = keepIdx[lt.End]
	lt.Nodes = kept
}

func dropEdgesTo(edges []Edge, all []*Node, keepIdx []NodeID) []Edge {
	out := edges[:0]
	for _, e := range edges {
		if keepIdx[e.To] != NoNode {
			out = append(out, e)
		}
	}
	return out
}

func remapEdges(edges []Edge, keepIdx []NodeID) []Edge {
	for i := range edges {
		edges[i].To = keepIdx[edges[i].To]
	}
	return edges
}
