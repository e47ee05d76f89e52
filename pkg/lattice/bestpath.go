package lattice

import "github.com/larkhollow/lexara/pkg/types"

// BestPath returns the maximum-score path from lt.Start to lt.End as a
// sequence of node ids (inclusive of both endpoints). The lattice is
// acyclic by construction, so a single memoized traversal
// suffices; returns nil if lt.End is unreachable from lt.Start.
func BestPath(lt *Lattice) []NodeID {
	best := make(map[NodeID]types.LogProb)
	next := make(map[NodeID]NodeID)
	visiting := make(map[NodeID]bool)

	var score func(id NodeID) (types.LogProb, bool)
	score = func(id NodeID) (types.LogProb, bool) {
		if id == lt.End {
			return 0, true
		}
		if v, ok := best[id]; ok {
			return v, true
		}
		if visiting[id] {
			return 0, false // defensive: should never trigger on an acyclic lattice
		}
		visiting[id] = true
		defer delete(visiting, id)

		bestScore := types.WorstScore
		bestNext := NoNode
		found := false
		for _, e := range lt.Nodes[id].Out {
			rest, ok := score(e.To)
			if !ok {
				continue
			}
			total := e.AScr + rest
			if !found || total > bestScore {
				bestScore = total
				bestNext = e.To
				found = true
			}
		}
		if !found {
			return 0, false
		}
		best[id] = bestScore
		next[id] = bestNext
		return bestScore, true
	}

	if _, ok := score(lt.Start); !ok {
		return nil
	}

	path := []NodeID{lt.Start}
	for cur := lt.Start; cur != lt.End; {
		cur = next[cur]
		path = append(path, cur)
	}
	return path
}

// Hyp renders path as a space-separated word string, skipping epsilon
// (synthetic start/end) and filler nodes, applying the same skip rule
// whether the hypothesis came from a raw backtrace or a lattice bestpath.
func Hyp(lt *Lattice, path []NodeID, isFiller func(wid types.WordID) bool, wordStr func(wid types.WordID) string) string {
	out := ""
	for _, id := range path {
		node := lt.Nodes[id]
		if node.DictWord == types.NoWord || isFiller(node.DictWord) {
			continue
		}
		if out != "" {
			out += " "
		}
		out += wordStr(node.DictWord)
	}
	return out
}

// Segment is one word's span and scores, matching the decoder's
// [pkg/decoder.Segment] shape so bestpath segmentation can substitute for
// a raw backtrace segmentation.
type Segment struct {
	Word types.WordID
	SF   types.FrameIdx
	EF   types.FrameIdx
	AScr types.LogProb
}

// Segments converts path into a per-word segmentation, one entry per
// non-epsilon node, using each node's StartFrame/LEF span and the AScr of
// the edge taken into it.
func Segments(lt *Lattice, path []NodeID) []Segment {
	var segs []Segment
	for i, id := range path {
		node := lt.Nodes[id]
		if node.Word == types.NoWord {
			continue // synthetic start/end node
		}
		ascr := node.BestExit
		if i > 0 {
			from := lt.Nodes[path[i-1]]
			for _, e := range from.Out {
				if e.To == id {
					ascr = e.AScr
					break
				}
			}
		}
		segs = append(segs, Segment{Word: node.DictWord, SF: node.StartFrame, EF: node.LEF, AScr: ascr})
	}
	return segs
}
