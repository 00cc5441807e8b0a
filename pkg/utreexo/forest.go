package utreexo

import (
	"encoding/binary"

	zerr "github.com/cloakchain/zkvmnode/errors"
	"github.com/cloakchain/zkvmnode/pkg/hash"
)

// Forest is the compact committed accumulator state (spec §3): an
// ordered sequence of root nodes with strictly decreasing levels, each
// root's subtree perfect. It owns every node ever committed to it — the
// "compactness" the spec refers to is in proof size (O(log N) per item),
// not in this implementation's memory footprint, which keeps the full
// forest the way a bridge/full node would.
type Forest struct {
	heap  *heap
	roots []uint32
}

// Empty returns the zero-leaf forest, the starting point for
// state.MakeInitial.
func Empty() *Forest {
	return &Forest{heap: newHeap()}
}

// Count returns the number of leaves currently committed.
func (f *Forest) Count() uint64 {
	var n uint64
	for _, idx := range f.roots {
		n += uint64(1) << f.heap.get(idx).level()
	}
	return n
}

// Root merkle-commits the ordered list of root hashes into a single
// Hash. With a single root (the common case once the leaf count is a
// power of two) this is simply that root's own hash, which is what lets
// the accumulator's root coincide with a naive Merkle tree built over
// the same leaves (spec §8 property 1). With more than one root they are
// folded right-to-left with nodeHash, highest level last.
func (f *Forest) Root() hash.Hash {
	if len(f.roots) == 0 {
		return hash.Zero
	}
	acc := f.heap.get(f.roots[len(f.roots)-1]).hash
	for i := len(f.roots) - 2; i >= 0; i-- {
		acc = nodeHash(f.heap.get(f.roots[i]).hash, acc)
	}
	return acc
}

// WorkForest forks a mutable working copy for a batch of inserts/deletes,
// deep-copying the whole heap up front.
func (f *Forest) WorkForest() *WorkForest {
	roots := make([]uint32, len(f.roots))
	copy(roots, f.roots)
	return &WorkForest{heap: f.heap.clone(), roots: roots}
}

// --- wire encoding (spec §6 "Persisted state") ---
//
// A Forest's committed root hash is not enough to resume operation from:
// later Deletes need to walk the tree below each root, so the persisted
// form carries every packed node, not just the roots. Layout:
//
//   u32 num_nodes | node[0] | node[1] | ... | u32 num_roots | root_idx[0] | ...
//   node: 32-byte hash | u8 flags | u32 left | u32 right | u8 deleted

// MarshalBinary implements encoding.BinaryMarshaler, serializing every
// node the forest has ever allocated plus its current root set.
func (f *Forest) MarshalBinary() ([]byte, error) {
	var buf []byte
	buf = appendU32(buf, uint32(len(f.heap.nodes)))
	for _, n := range f.heap.nodes {
		buf = append(buf, n.hash.Bytes()...)
		buf = append(buf, byte(n.flags))
		buf = appendU32(buf, n.left)
		buf = appendU32(buf, n.right)
		if n.deleted {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
	}

	buf = appendU32(buf, uint32(len(f.roots)))
	for _, idx := range f.roots {
		buf = appendU32(buf, idx)
	}
	return buf, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler, the inverse of
// MarshalBinary. f is overwritten entirely.
func (f *Forest) UnmarshalBinary(data []byte) error {
	r := &forestReader{buf: data}

	numNodes, err := r.u32()
	if err != nil {
		return err
	}
	nodes := make([]packedNode, numNodes)
	for i := range nodes {
		hb, err := r.bytes(hash.Size)
		if err != nil {
			return err
		}
		h, err := hash.FromBytes(hb)
		if err != nil {
			return err
		}
		flagByte, err := r.byte()
		if err != nil {
			return err
		}
		left, err := r.u32()
		if err != nil {
			return err
		}
		right, err := r.u32()
		if err != nil {
			return err
		}
		deletedByte, err := r.byte()
		if err != nil {
			return err
		}
		nodes[i] = packedNode{
			hash:    h,
			flags:   nodeFlags(flagByte),
			left:    left,
			right:   right,
			deleted: deletedByte != 0,
		}
	}

	numRoots, err := r.u32()
	if err != nil {
		return err
	}
	roots := make([]uint32, numRoots)
	for i := range roots {
		idx, err := r.u32()
		if err != nil {
			return err
		}
		roots[i] = idx
	}

	if r.remaining() != 0 {
		return zerr.New(zerr.ERR_FORMAT_TRAILING_BYTES, "%d trailing bytes after forest", r.remaining())
	}

	f.heap = &heap{nodes: nodes}
	f.roots = roots
	return nil
}

func appendU32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

type forestReader struct {
	buf []byte
	pos int
}

func (r *forestReader) remaining() int { return len(r.buf) - r.pos }

func (r *forestReader) need(n int) error {
	if r.remaining() < n {
		return zerr.New(zerr.ERR_FORMAT_INSUFFICIENT_BYTES, "need %d bytes, have %d", n, r.remaining())
	}
	return nil
}

func (r *forestReader) byte() (byte, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

func (r *forestReader) bytes(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *forestReader) u32() (uint32, error) {
	b, err := r.bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}
