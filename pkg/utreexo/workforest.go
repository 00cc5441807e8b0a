package utreexo

import (
	"time"

	zerr "github.com/cloakchain/zkvmnode/errors"
	"github.com/cloakchain/zkvmnode/metrics"
	"github.com/cloakchain/zkvmnode/pkg/hash"
)

// WorkForest is a mutable working copy of a Forest during a batch of
// inserts/deletes (spec §3, §4.1). It holds its own deep copy of the
// Forest's heap, taken in full when it is forked; nodes are not shared
// with the Forest or copied lazily on first mutation. Roots are tracked by heap
// index; during an in-progress batch they need not satisfy the
// committed Forest's strictly-decreasing-level invariant (freshly
// inserted leaves are appended at level 0 regardless of what is already
// there) — that invariant is restored by Normalize.
type WorkForest struct {
	heap  *heap
	roots []uint32
}

// Insert adds a fresh leaf with level 0 to the end of the roots and
// returns a Transient proof. Merging into the existing trees is deferred
// to Normalize, which keeps Insert O(1).
func (wf *WorkForest) Insert(item MerkleItem) Proof {
	idx := wf.heap.alloc(packedNode{
		hash:  leafHash(item),
		flags: makeFlags(0, false, false),
		left:  noChild,
		right: noChild,
	})
	wf.roots = append(wf.roots, idx)
	return NewTransientProof()
}

// Delete verifies proof against the current forest, walks the path
// marking visited ancestors modified, and disconnects the leaf. See
// spec §4.1 for the three failure modes.
func (wf *WorkForest) Delete(item MerkleItem, proof Proof) error {
	leaf := leafHash(item)
	if proof.Kind == ProofTransient {
		return wf.deleteTransient(leaf)
	}
	return wf.deleteCommitted(leaf, proof.Path)
}

func (wf *WorkForest) deleteTransient(leaf hash.Hash) error {
	for _, idx := range wf.roots {
		n := wf.heap.get(idx)
		if n.level() != 0 || n.hash != leaf {
			continue
		}
		if n.deleted {
			return zerr.New(zerr.ERR_UTREEXO_ALREADY_DELETED, "item already deleted: %s", leaf)
		}
		wf.heap.setDeleted(idx, true)
		return nil
	}
	return zerr.New(zerr.ERR_UTREEXO_INVALID_PROOF, "no transient leaf matches item: %s", leaf)
}

func (wf *WorkForest) deleteCommitted(leaf hash.Hash, path Path) error {
	depth := path.Depth()

	// Fold the path upward from the leaf to reconstruct the claimed root.
	cur := leaf
	for i := 0; i < depth; i++ {
		sib := path.Neighbors[i]
		if (path.Position>>uint(i))&1 == 0 {
			cur = nodeHash(cur, sib)
		} else {
			cur = nodeHash(sib, cur)
		}
	}

	rootIdx, ok := wf.findRootAtLevel(uint8(depth))
	if !ok {
		return zerr.New(zerr.ERR_UTREEXO_ITEM_OUT_OF_BOUNDS,
			"no root at level %d for position %d", depth, path.Position)
	}
	if wf.heap.get(rootIdx).hash != cur {
		return zerr.New(zerr.ERR_UTREEXO_INVALID_PROOF, "proof does not reconstruct the committed root")
	}

	// Descend physically, marking every visited ancestor modified.
	idx := rootIdx
	for d := depth - 1; d >= 0; d-- {
		n := wf.heap.get(idx)
		if !n.flags.hasChildren() {
			return zerr.New(zerr.ERR_UTREEXO_INVALID_PROOF, "path longer than materialized tree")
		}
		wf.heap.setModified(idx, true)
		if (path.Position>>uint(d))&1 == 0 {
			idx = n.left
		} else {
			idx = n.right
		}
	}

	leafNode := wf.heap.get(idx)
	if leafNode.hash != leaf {
		return zerr.New(zerr.ERR_UTREEXO_INVALID_PROOF, "path descends to a different leaf")
	}
	if leafNode.deleted {
		return zerr.New(zerr.ERR_UTREEXO_ALREADY_DELETED, "item already deleted: %s", leaf)
	}
	wf.heap.setDeleted(idx, true)
	return nil
}

func (wf *WorkForest) findRootAtLevel(level uint8) (uint32, bool) {
	for _, idx := range wf.roots {
		if wf.heap.get(idx).level() == level {
			return idx, true
		}
	}
	return 0, false
}

// Batch wraps a sequence of operations in a checkpoint: if fn returns an
// error, every heap allocation and node mutation made inside it is
// reverted and the WorkForest is observationally identical to before the
// call (spec §8 property 4).
func (wf *WorkForest) Batch(fn func() error) error {
	cp := wf.heap.checkpoint()
	savedRoots := make([]uint32, len(wf.roots))
	copy(savedRoots, wf.roots)

	if err := fn(); err != nil {
		wf.heap.rollback(cp)
		wf.roots = savedRoots
		return err
	}
	return nil
}

// Normalize rebuilds a compact Forest from the surviving leaves plus a
// Catchup for rewriting stale proofs (spec §4.1 algorithm):
//  1. traverse every root, collecting surviving leaves in-order;
//  2. treat the survivor count as a binary number: one new root per set
//     bit, sized from the high bit down;
//  3. each new root is the Merkle hash of its range of survivors;
//  4. record every survivor's freshly committed path into the Catchup.
func (wf *WorkForest) Normalize() (*Forest, *Catchup) {
	start := time.Now()
	defer func() { metrics.ForestNormalizeDuration.Observe(time.Since(start).Seconds()) }()

	var leaves []hash.Hash
	for _, idx := range wf.roots {
		wf.collectLeaves(idx, &leaves)
	}

	newH := newHeap()
	catchup := newCatchup()
	var newRoots []uint32

	n := uint64(len(leaves))
	var offset uint64
	for level := 63; level >= 0; level-- {
		bit := uint64(1) << uint(level)
		if n&bit == 0 {
			continue
		}
		rangeLeaves := leaves[offset : offset+bit]
		rootIdx := buildPerfectTree(newH, catchup, rangeLeaves, uint8(level))
		newRoots = append(newRoots, rootIdx)
		offset += bit
	}

	return &Forest{heap: newH, roots: newRoots}, catchup
}

func (wf *WorkForest) collectLeaves(idx uint32, out *[]hash.Hash) {
	n := wf.heap.get(idx)
	if !n.flags.hasChildren() {
		if !n.deleted {
			*out = append(*out, n.hash)
		}
		return
	}
	wf.collectLeaves(n.left, out)
	wf.collectLeaves(n.right, out)
}

// buildPerfectTree allocates a perfect binary tree of the given level
// over leaves (len(leaves) == 2^level) into h, recording each leaf's
// freshly committed path into catchup, and returns the new root's index.
func buildPerfectTree(h *heap, catchup *Catchup, leaves []hash.Hash, level uint8) uint32 {
	levels := make([][]uint32, level+1)

	level0 := make([]uint32, len(leaves))
	for i, lh := range leaves {
		level0[i] = h.alloc(packedNode{hash: lh, flags: makeFlags(0, false, false), left: noChild, right: noChild})
	}
	levels[0] = level0

	cur := level0
	for lvl := uint8(0); lvl < level; lvl++ {
		next := make([]uint32, len(cur)/2)
		for i := 0; i < len(cur); i += 2 {
			l, r := h.get(cur[i]), h.get(cur[i+1])
			combined := nodeHash(l.hash, r.hash)
			next[i/2] = h.alloc(packedNode{
				hash:  combined,
				flags: makeFlags(lvl+1, false, true),
				left:  cur[i],
				right: cur[i+1],
			})
		}
		cur = next
		levels[lvl+1] = cur
	}

	for i, lh := range leaves {
		neighbors := make([]hash.Hash, level)
		for k := 0; k < int(level); k++ {
			siblingIdx := (uint64(i) >> uint(k)) ^ 1
			neighbors[k] = h.get(levels[k][siblingIdx]).hash
		}
		catchup.record(lh, Path{Position: uint64(i), Neighbors: neighbors})
	}

	return cur[0]
}
