// Package chain implements block header and transaction-envelope
// encoding: canonical transcript-based commitments and the wire formats
// described in spec §6, grounded field-for-field on
// _examples/original_source/blockchain/src/block.rs.
package chain

import (
	zerr "github.com/cloakchain/zkvmnode/errors"
	"github.com/cloakchain/zkvmnode/pkg/hash"
	"github.com/cloakchain/zkvmnode/pkg/transcript"
)

// BlockHeader is the committed header of a block (spec §3).
type BlockHeader struct {
	Version     uint64
	Height      uint64
	PrevID      hash.Hash
	TimestampMs uint64
	TxRoot      hash.Hash
	UtxoRoot    hash.Hash
	// Ext is reserved for forward compatibility; version 1 requires it
	// empty (spec §9 open question, decided in SPEC_FULL.md §10.3).
	Ext []byte
}

// ID is the BlockID: the transcript challenge "id" over the header
// fields in the exact order spec §6 specifies.
func (h BlockHeader) ID() hash.Hash {
	t := transcript.New("ZkVM.block")
	h.commit(t)
	return hash.Hash(t.Hash32("id"))
}

func (h BlockHeader) commit(t *transcript.Transcript) {
	t.AppendU64("version", h.Version)
	t.AppendU64("height", h.Height)
	t.AppendMessage("previd", h.PrevID.Bytes())
	t.AppendU64("timestamp_ms", h.TimestampMs)
	t.AppendMessage("txroot", h.TxRoot.Bytes())
	t.AppendMessage("utxoroot", h.UtxoRoot.Bytes())
	t.AppendMessage("ext", h.Ext)
}

// --- wire encoding (spec §6 "Persisted state") ---
//
//   u64 version | u64 height | 32-byte previd | u64 timestamp_ms |
//   32-byte txroot | 32-byte utxoroot | u32 ext_len | ext
//
// This is the on-disk form a state-storage adapter round-trips, distinct
// from commit()/ID() which only ever produce a transcript challenge, not
// a byte-for-byte reversible encoding.

// EncodeBlockHeader serializes h per the layout above, reusing the same
// appendU64/appendU32 helpers EncodeBlockTx uses.
func EncodeBlockHeader(h BlockHeader) []byte {
	var buf []byte
	buf = appendU64(buf, h.Version)
	buf = appendU64(buf, h.Height)
	buf = append(buf, h.PrevID.Bytes()...)
	buf = appendU64(buf, h.TimestampMs)
	buf = append(buf, h.TxRoot.Bytes()...)
	buf = append(buf, h.UtxoRoot.Bytes()...)
	buf = appendU32(buf, uint32(len(h.Ext)))
	buf = append(buf, h.Ext...)
	return buf
}

// DecodeBlockHeader parses the format EncodeBlockHeader produces.
func DecodeBlockHeader(buf []byte) (BlockHeader, error) {
	r := &reader{buf: buf}

	version, err := r.u64()
	if err != nil {
		return BlockHeader{}, err
	}
	height, err := r.u64()
	if err != nil {
		return BlockHeader{}, err
	}
	prevIDBytes, err := r.bytes(hash.Size)
	if err != nil {
		return BlockHeader{}, err
	}
	prevID, err := hash.FromBytes(prevIDBytes)
	if err != nil {
		return BlockHeader{}, err
	}
	timestampMs, err := r.u64()
	if err != nil {
		return BlockHeader{}, err
	}
	txRootBytes, err := r.bytes(hash.Size)
	if err != nil {
		return BlockHeader{}, err
	}
	txRoot, err := hash.FromBytes(txRootBytes)
	if err != nil {
		return BlockHeader{}, err
	}
	utxoRootBytes, err := r.bytes(hash.Size)
	if err != nil {
		return BlockHeader{}, err
	}
	utxoRoot, err := hash.FromBytes(utxoRootBytes)
	if err != nil {
		return BlockHeader{}, err
	}
	extLen, err := r.u32()
	if err != nil {
		return BlockHeader{}, err
	}
	ext, err := r.bytes(int(extLen))
	if err != nil {
		return BlockHeader{}, err
	}

	if r.remaining() != 0 {
		return BlockHeader{}, zerr.New(zerr.ERR_FORMAT_TRAILING_BYTES, "%d trailing bytes after block header", r.remaining())
	}

	extCopy := make([]byte, len(ext))
	copy(extCopy, ext)

	return BlockHeader{
		Version:     version,
		Height:      height,
		PrevID:      prevID,
		TimestampMs: timestampMs,
		TxRoot:      txRoot,
		UtxoRoot:    utxoRoot,
		Ext:         extCopy,
	}, nil
}
