package chain

import (
	"encoding/binary"

	zerr "github.com/cloakchain/zkvmnode/errors"
	"github.com/cloakchain/zkvmnode/pkg/hash"
	"github.com/cloakchain/zkvmnode/pkg/transcript"
	"github.com/cloakchain/zkvmnode/pkg/utreexo"
	"github.com/cloakchain/zkvmnode/verify"
)

// BlockTx is a transaction plus one Utreexo proof per spent input, in
// txlog order (spec §3).
type BlockTx struct {
	Tx     verify.Tx
	Proofs []utreexo.Proof
}

// WitnessHash is the per-tx commitment folded into the block's txroot:
// the tx id plus its proof set, so that relaying a tx with different (or
// differently-ordered) proofs changes the block's txroot.
func (bt BlockTx) WitnessHash() hash.Hash {
	t := transcript.New("ZkVM.blocktx")
	t.AppendMessage("tx-id", bt.Tx.ID().Bytes())
	t.AppendU64("num_proofs", uint64(len(bt.Proofs)))
	for _, p := range bt.Proofs {
		t.AppendU64("proof.kind", uint64(p.Kind))
		if p.Kind == utreexo.ProofCommitted {
			t.AppendU64("proof.position", p.Path.Position)
			t.AppendU64("proof.depth", uint64(p.Path.Depth()))
			for _, n := range p.Path.Neighbors {
				t.AppendMessage("proof.neighbor", n.Bytes())
			}
		}
	}
	return hash.Hash(t.Hash32("witness-hash"))
}

// TxRoot hashes the ordered list of BlockTx witness hashes into a Merkle
// tree labeled "ZkVM.txroot" (spec §4.2 step 2).
func TxRoot(txs []BlockTx) hash.Hash {
	if len(txs) == 0 {
		return hash.Zero
	}
	level := make([]hash.Hash, len(txs))
	for i, tx := range txs {
		level[i] = tx.WitnessHash()
	}
	return merkleRoot(level)
}

func merkleRoot(level []hash.Hash) hash.Hash {
	for len(level) > 1 {
		next := make([]hash.Hash, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				// odd tail: promote unchanged, matching the catchup's
				// leaf-range convention of never padding with a fake leaf.
				next = append(next, level[i])
				continue
			}
			next = append(next, combine(level[i], level[i+1]))
		}
		level = next
	}
	return level[0]
}

func combine(left, right hash.Hash) hash.Hash {
	t := transcript.New("ZkVM.txroot")
	t.AppendMessage("L", left.Bytes())
	t.AppendMessage("R", right.Bytes())
	return hash.Hash(t.Hash32("merkle.node"))
}

// --- wire encoding (spec §6) ---
//
//   tx_encoding | u32 num_proofs | proof[0] | proof[1] | ...
//   proof: u8 type (0=Transient, 1=Committed) | if Committed: path_encoding
//   path_encoding: u64 position | u32 depth | depth x 32-byte sibling

// EncodeBlockTx serializes bt per spec §6. The tx_encoding segment is
// the tx header (u64 version, u64 locktime_ms) followed by
// verify.Tx.Payload, which is opaque to this package and is
// length-prefixed (u32) so decoding can find the proof section.
func EncodeBlockTx(bt BlockTx) []byte {
	var buf []byte
	buf = appendU64(buf, bt.Tx.Header.Version)
	buf = appendU64(buf, bt.Tx.Header.LocktimeMs)
	buf = appendU32(buf, uint32(len(bt.Tx.Payload)))
	buf = append(buf, bt.Tx.Payload...)

	buf = appendU32(buf, uint32(len(bt.Proofs)))
	for _, p := range bt.Proofs {
		buf = append(buf, byte(p.Kind))
		if p.Kind == utreexo.ProofCommitted {
			buf = appendU64(buf, p.Path.Position)
			buf = appendU32(buf, uint32(p.Path.Depth()))
			for _, n := range p.Path.Neighbors {
				buf = append(buf, n.Bytes()...)
			}
		}
	}
	return buf
}

// DecodeBlockTx parses the format EncodeBlockTx produces.
func DecodeBlockTx(buf []byte) (BlockTx, error) {
	r := &reader{buf: buf}

	version, err := r.u64()
	if err != nil {
		return BlockTx{}, err
	}
	locktime, err := r.u64()
	if err != nil {
		return BlockTx{}, err
	}
	payloadLen, err := r.u32()
	if err != nil {
		return BlockTx{}, err
	}
	payload, err := r.bytes(int(payloadLen))
	if err != nil {
		return BlockTx{}, err
	}

	numProofs, err := r.u32()
	if err != nil {
		return BlockTx{}, err
	}

	proofs := make([]utreexo.Proof, 0, numProofs)
	for i := uint32(0); i < numProofs; i++ {
		kindByte, err := r.byte()
		if err != nil {
			return BlockTx{}, err
		}
		switch kindByte {
		case byte(utreexo.ProofTransient):
			proofs = append(proofs, utreexo.NewTransientProof())
		case byte(utreexo.ProofCommitted):
			position, err := r.u64()
			if err != nil {
				return BlockTx{}, err
			}
			depth, err := r.u32()
			if err != nil {
				return BlockTx{}, err
			}
			neighbors := make([]hash.Hash, depth)
			for k := uint32(0); k < depth; k++ {
				b, err := r.bytes(hash.Size)
				if err != nil {
					return BlockTx{}, err
				}
				h, err := hash.FromBytes(b)
				if err != nil {
					return BlockTx{}, err
				}
				neighbors[k] = h
			}
			proofs = append(proofs, utreexo.NewCommittedProof(utreexo.Path{Position: position, Neighbors: neighbors}))
		default:
			return BlockTx{}, zerr.New(zerr.ERR_FORMAT_INVALID, "unknown proof type byte %d", kindByte)
		}
	}

	if r.remaining() != 0 {
		return BlockTx{}, zerr.New(zerr.ERR_FORMAT_TRAILING_BYTES, "%d trailing bytes after block tx", r.remaining())
	}

	return BlockTx{
		Tx:     verify.Tx{Header: verify.TxHeader{Version: version, LocktimeMs: locktime}, Payload: payload},
		Proofs: proofs,
	}, nil
}

func appendU64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

func appendU32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

type reader struct {
	buf []byte
	pos int
}

func (r *reader) remaining() int { return len(r.buf) - r.pos }

func (r *reader) need(n int) error {
	if r.remaining() < n {
		return zerr.New(zerr.ERR_FORMAT_INSUFFICIENT_BYTES, "need %d bytes, have %d", n, r.remaining())
	}
	return nil
}

func (r *reader) byte() (byte, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

func (r *reader) bytes(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *reader) u32() (uint32, error) {
	b, err := r.bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *reader) u64() (uint64, error) {
	b, err := r.bytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}
