package utreexo

import "github.com/cloakchain/zkvmnode/pkg/hash"

// noChild marks an absent child slot (leaf nodes, or nodes trimmed during
// normalization).
const noChild = ^uint32(0)

// nodeFlags packs a node's tree level and two status bits into one byte,
// following the packed-node layout of a level-indexed forest: level in
// [0, 63] fits six bits, leaving room for "modified" and "has children".
type nodeFlags uint8

const (
	levelMask      nodeFlags = 0x3F
	flagModified   nodeFlags = 1 << 6
	flagHasChildren nodeFlags = 1 << 7
)

func makeFlags(level uint8, modified, hasChildren bool) nodeFlags {
	f := nodeFlags(level) & levelMask
	if modified {
		f |= flagModified
	}
	if hasChildren {
		f |= flagHasChildren
	}
	return f
}

func (f nodeFlags) level() uint8        { return uint8(f & levelMask) }
func (f nodeFlags) modified() bool      { return f&flagModified != 0 }
func (f nodeFlags) hasChildren() bool   { return f&flagHasChildren != 0 }

// packedNode is the sole record stored in a Heap: a hash, its status
// flags, and up to two 32-bit indices into the same heap identifying its
// children. Nodes never store a parent index — traversal is always
// top-down from the forest's roots, which is what lets rollback be a
// plain slice truncation rather than reference-count bookkeeping.
type packedNode struct {
	hash        hash.Hash
	flags       nodeFlags
	left, right uint32
	// deleted marks a leaf (level 0, no children) that has been removed
	// from the accumulator. It lives outside nodeFlags rather than
	// stealing one more bit from it, since only leaves ever set it.
	deleted bool
}

func (n packedNode) level() uint8 { return n.flags.level() }

// heap is the backing store for every node ever allocated by a
// WorkForest. Indices are stable for the lifetime of the heap: a
// WorkForest never moves a node once allocated, it only appends new
// ones and flips flags on existing ones.
type heap struct {
	nodes []packedNode
}

func newHeap() *heap {
	return &heap{}
}

// alloc appends a new packed node and returns its index.
func (h *heap) alloc(n packedNode) uint32 {
	h.nodes = append(h.nodes, n)
	return uint32(len(h.nodes) - 1)
}

func (h *heap) get(i uint32) packedNode {
	return h.nodes[i]
}

func (h *heap) setModified(i uint32, modified bool) {
	n := h.nodes[i]
	n.flags = makeFlags(n.flags.level(), modified, n.flags.hasChildren())
	h.nodes[i] = n
}

func (h *heap) setDeleted(i uint32, deleted bool) {
	n := h.nodes[i]
	n.deleted = deleted
	h.nodes[i] = n
}

// clone returns an independent heap with the same node contents. Forking
// a WorkForest from a committed Forest deep-copies the heap this way so
// that later allocations on the fork never alias the Forest's own nodes.
func (h *heap) clone() *heap {
	cp := &heap{nodes: make([]packedNode, len(h.nodes))}
	copy(cp.nodes, h.nodes)
	return cp
}

// checkpoint captures the state needed to roll a heap back to this point:
// its length, plus a copy of every node that existed at the time (since a
// later mutation may flip flags on a pre-checkpoint node in place). This
// trades the spec's copy-on-write-pointer optimization (§5) for a plain
// snapshot-and-restore, which keeps the atomicity contract (§8 property
// 4: batch rollback is observationally identical to before the call)
// without threading parent-rewrite bookkeeping through a parentless tree.
type checkpoint struct {
	length int
	nodes  []packedNode
}

func (h *heap) checkpoint() checkpoint {
	cp := checkpoint{length: len(h.nodes), nodes: make([]packedNode, len(h.nodes))}
	copy(cp.nodes, h.nodes)
	return cp
}

func (h *heap) rollback(cp checkpoint) {
	h.nodes = h.nodes[:cp.length]
	copy(h.nodes, cp.nodes)
}
