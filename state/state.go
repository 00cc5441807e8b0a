// Package state implements the blockchain state machine: constructing
// the initial state and applying blocks atomically against a Utreexo
// work forest (spec §4.2). Control flow follows
// _examples/original_source/blockchain/src/state.rs's make_initial /
// apply_block / check_block_header / check_tx_header line for line.
package state

import (
	"encoding/binary"

	"github.com/cloakchain/zkvmnode/chain"
	zerr "github.com/cloakchain/zkvmnode/errors"
	"github.com/cloakchain/zkvmnode/metrics"
	"github.com/cloakchain/zkvmnode/pkg/contract"
	"github.com/cloakchain/zkvmnode/pkg/utreexo"
	"github.com/cloakchain/zkvmnode/ulogger"
	"github.com/cloakchain/zkvmnode/verify"
)

// BlockchainState is immutable: ApplyBlock constructs a new value rather
// than mutating the receiver (spec §3).
type BlockchainState struct {
	Tip     chain.BlockHeader
	Utreexo *utreexo.Forest
}

// MakeInitial constructs the height-1 state whose utxo root is the
// normalization of initialUtxos, returning ready-to-use Committed proofs
// for each one in the same order.
func MakeInitial(timestampMs uint64, initialUtxos []contract.ID) (BlockchainState, []utreexo.Proof) {
	forest := utreexo.Empty()
	wf := forest.WorkForest()

	transient := make([]utreexo.Proof, len(initialUtxos))
	for i, id := range initialUtxos {
		transient[i] = wf.Insert(id)
	}

	normalized, catchup := wf.Normalize()

	proofs := make([]utreexo.Proof, len(initialUtxos))
	for i, id := range initialUtxos {
		p, err := catchup.UpdateProof(id, transient[i])
		if err != nil {
			// Every just-inserted item is present in its own
			// normalization's catchup by construction.
			panic(err)
		}
		proofs[i] = p
	}

	header := chain.BlockHeader{
		Version:     1,
		Height:      1,
		TimestampMs: timestampMs,
		UtxoRoot:    normalized.Root(),
	}

	return BlockchainState{Tip: header, Utreexo: normalized}, proofs
}

// CheckBlockHeader validates header against the current tip per spec
// §4.2 step 1, before any cryptographic work is attempted.
func CheckBlockHeader(header chain.BlockHeader, tip chain.BlockHeader) error {
	if header.Version < tip.Version {
		return zerr.New(zerr.ERR_BLOCKCHAIN_INCONSISTENT_HEADER, "version %d decreased from tip version %d", header.Version, tip.Version)
	}
	if header.Version == 1 && len(header.Ext) != 0 {
		return zerr.New(zerr.ERR_BLOCKCHAIN_ILLEGAL_EXTENSION, "ext must be empty for version 1 headers")
	}
	if header.Height != tip.Height+1 {
		return zerr.New(zerr.ERR_BLOCKCHAIN_INCONSISTENT_HEADER, "height %d is not tip height %d + 1", header.Height, tip.Height)
	}
	if header.TimestampMs <= tip.TimestampMs {
		return zerr.New(zerr.ERR_BLOCKCHAIN_INCONSISTENT_HEADER, "timestamp_ms %d does not advance past tip %d", header.TimestampMs, tip.TimestampMs)
	}
	if header.PrevID != tip.ID() {
		return zerr.New(zerr.ERR_BLOCKCHAIN_INCONSISTENT_HEADER, "prev_block_id does not match tip id")
	}
	return nil
}

// CheckTxHeader validates a single transaction's header against the
// enclosing block header per spec §4.2 step 4.
func CheckTxHeader(blockHeader chain.BlockHeader, txHeader verify.TxHeader) error {
	if blockHeader.TimestampMs < txHeader.LocktimeMs {
		return zerr.New(zerr.ERR_BLOCKCHAIN_BAD_TX_TIMESTAMP, "block timestamp_ms %d before tx locktime_ms %d", blockHeader.TimestampMs, txHeader.LocktimeMs)
	}
	if blockHeader.Version == 1 && txHeader.Version != 1 {
		return zerr.New(zerr.ERR_BLOCKCHAIN_BAD_TX_VERSION, "tx version %d incompatible with block version 1", txHeader.Version)
	}
	return nil
}

// ApplyBlock applies header/blockTxs atomically against s, returning the
// new state, the catchup for proof rewriting, and every verified tx.
// Cheap structural checks (header, txroot) run before any cryptographic
// verification so malformed blocks are rejected without wasted work.
func (s BlockchainState) ApplyBlock(
	header chain.BlockHeader,
	blockTxs []chain.BlockTx,
	verifier verify.Verifier,
	gens verify.VerifierGens,
	log ulogger.Logger,
) (BlockchainState, *utreexo.Catchup, []verify.VerifiedTx, error) {
	if log == nil {
		log = ulogger.Nop()
	}

	if err := CheckBlockHeader(header, s.Tip); err != nil {
		return BlockchainState{}, nil, nil, err
	}

	if got, want := chain.TxRoot(blockTxs), header.TxRoot; got != want {
		return BlockchainState{}, nil, nil, zerr.New(zerr.ERR_BLOCKCHAIN_INCONSISTENT_HEADER, "txroot mismatch: computed %s, header says %s", got, want)
	}

	wf := s.Utreexo.WorkForest()
	verifiedTxs := make([]verify.VerifiedTx, 0, len(blockTxs))

	for i, blockTx := range blockTxs {
		if err := CheckTxHeader(header, blockTx.Tx.Header); err != nil {
			return BlockchainState{}, nil, nil, err
		}

		vtx, err := verifier.Verify(blockTx.Tx, gens)
		if err != nil {
			return BlockchainState{}, nil, nil, zerr.New(zerr.ERR_BLOCKCHAIN_TX_INVALID, "tx %d failed verification", i, err)
		}

		proofIdx := 0
		for _, entry := range vtx.Log {
			switch entry.Kind {
			case verify.EntryInput:
				if proofIdx >= len(blockTx.Proofs) {
					return BlockchainState{}, nil, nil, zerr.New(zerr.ERR_BLOCKCHAIN_UTXO_PROOF_MISSING, "tx %d: no proof for input", i)
				}
				proof := blockTx.Proofs[proofIdx]
				proofIdx++
				if err := wf.Delete(entry.ContractID, proof); err != nil {
					return BlockchainState{}, nil, nil, err
				}
			case verify.EntryOutput:
				wf.Insert(entry.Output.ComputeID())
			case verify.EntryOther:
				// ignored by the state machine, per spec §4.2.
			}
		}

		verifiedTxs = append(verifiedTxs, vtx)
	}

	normalized, catchup := wf.Normalize()
	if got, want := normalized.Root(), header.UtxoRoot; got != want {
		return BlockchainState{}, nil, nil, zerr.New(zerr.ERR_BLOCKCHAIN_INCONSISTENT_HEADER, "utxoroot mismatch: computed %s, header says %s", got, want)
	}

	log.Debugf("applied block height=%d txs=%d", header.Height, len(blockTxs))
	metrics.BlocksApplied.Inc()

	return BlockchainState{Tip: header, Utreexo: normalized}, catchup, verifiedTxs, nil
}

// --- wire encoding (spec §6 "Persisted state") ---
//
//   32-bit tip_len | tip (chain.EncodeBlockHeader) | forest (utreexo.Forest.MarshalBinary)

// MarshalBinary implements encoding.BinaryMarshaler so a storage adapter
// can persist s and recover byte-identically, per spec §6's "Persisted
// state must round-trip byte-identical for the state hash to verify."
func (s BlockchainState) MarshalBinary() ([]byte, error) {
	tipBytes := chain.EncodeBlockHeader(s.Tip)

	forestBytes, err := s.Utreexo.MarshalBinary()
	if err != nil {
		return nil, err
	}

	var buf []byte
	var lenBytes [4]byte
	binary.LittleEndian.PutUint32(lenBytes[:], uint32(len(tipBytes)))
	buf = append(buf, lenBytes[:]...)
	buf = append(buf, tipBytes...)
	buf = append(buf, forestBytes...)
	return buf, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler, the inverse of
// MarshalBinary.
func (s *BlockchainState) UnmarshalBinary(data []byte) error {
	if len(data) < 4 {
		return zerr.New(zerr.ERR_FORMAT_INSUFFICIENT_BYTES, "need 4 bytes, have %d", len(data))
	}
	tipLen := int(binary.LittleEndian.Uint32(data[:4]))
	data = data[4:]

	if len(data) < tipLen {
		return zerr.New(zerr.ERR_FORMAT_INSUFFICIENT_BYTES, "need %d bytes, have %d", tipLen, len(data))
	}
	tip, err := chain.DecodeBlockHeader(data[:tipLen])
	if err != nil {
		return err
	}

	forest := &utreexo.Forest{}
	if err := forest.UnmarshalBinary(data[tipLen:]); err != nil {
		return err
	}

	s.Tip = tip
	s.Utreexo = forest
	return nil
}
