// Package lextree is the phone-prefix tree the decoder walks every frame:
// nodes are held in a single arena, internal nodes link to children via
// sibling/successor indices, and each leaf carries the FSG arc it
// realizes. Construction from an (FSG, dictionary) pair is the job of
// [Builder.Build]; the decoder only ever calls [Tree.RootList] and walks pnode
// fields directly.
package lextree

import (
	"github.com/larkhollow/lexara/pkg/fsg"
	"github.com/larkhollow/lexara/pkg/hmm"
	"github.com/larkhollow/lexara/pkg/types"
)

// NodeID indexes a pnode in a [Tree]'s arena. -1 means "no node".
type NodeID int32

const NoNode NodeID = -1

// PNode is one node of the lextree. Internal nodes have Successors and
// participate in a Sibling-linked list among their parent's children;
// leaves have no Successors and carry the FSG arc (FSGLink) they realize.
type PNode struct {
	HMM *hmm.Instance

	// LogS2Prob is the entering log-prob: the language/lexical
	// contribution folded in on activation (word-insertion penalty,
	// phone-insertion penalty, language weight).
	LogS2Prob types.LogProb

	// CIExt is this node's phone id. For a leaf this doubles as the
	// left-context phone id (lc) carried into the next word.
	CIExt types.PhoneID

	// Ctxt is the left-context bitset gating cross-word entry into this
	// node when it is a root, or the configured exit context when it is a
	// leaf.
	Ctxt types.ContextSet

	Sibling    NodeID
	Successors NodeID // head of the linked list of children (via Sibling)

	// FSGLink is non-nil only for leaves: the FSG arc this leaf realizes.
	FSGLink *fsg.Link

	// Word is the dictionary WordID realized by a leaf; types.NoWord for
	// internal nodes.
	Word types.WordID

	// FromState/ToState mirror FSGLink's endpoints, cached for leaves so
	// the decoder never dereferences FSGLink in the hot path.
	FromState fsg.State
	ToState   fsg.State
}

// Leaf reports whether n is a leaf (realizes a word exit rather than
// continuing the phone prefix).
func (n *PNode) Leaf() bool { return n.FSGLink != nil }

// Deactivate clears the node's HMM token so it is no longer eligible to be
// carried into the next frame's active set without a fresh Enter.
func (n *PNode) Deactivate() {
	n.HMM.Enter(types.WorstScore, types.NoBpIdx, -1)
}

// Tree is the lextree arena plus the per-FSG-state root lists the decoder
// uses to seed cross-word transitions and utterance start.
type Tree struct {
	Nodes []*PNode
	roots map[fsg.State][]NodeID
}

// NewTree returns an empty Tree ready for [Tree.AddNode] calls.
func NewTree() *Tree {
	return &Tree{roots: make(map[fsg.State][]NodeID)}
}

// AddNode appends n to the arena and returns its NodeID.
func (t *Tree) AddNode(n *PNode) NodeID {
	id := NodeID(len(t.Nodes))
	t.Nodes = append(t.Nodes, n)
	return id
}

// AddRoot registers nodeID as a top-level pnode reachable when entering
// FSG state s (via utterance start or a cross-word transition into s).
func (t *Tree) AddRoot(s fsg.State, nodeID NodeID) {
	t.roots[s] = append(t.roots[s], nodeID)
}

// RootList returns the top-level pnodes for FSG state s, or nil if s has
// none.
func (t *Tree) RootList(s fsg.State) []NodeID {
	return t.roots[s]
}

// NPNode returns the number of pnodes in the arena, used by the decoder's
// per-frame invariant check (evaluated-HMM count must never exceed this).
func (t *Tree) NPNode() int { return len(t.Nodes) }

// Node returns the pnode at id.
func (t *Tree) Node(id NodeID) *PNode { return t.Nodes[id] }
