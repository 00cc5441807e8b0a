// Package verify is the thin seam between the blockchain state machine
// and the opaque cryptographic verification the spec deliberately keeps
// external (aggregated-signature and rangeproof/cloak verification,
// spec §1). It defines the shapes those external verifiers consume and
// produce, grounded on
// _examples/original_source/blockchain/src/state.rs's
// `block_tx.tx.verify(bp_gens)` call and the zkvm::{TxEntry, TxHeader,
// VerifiedTx} types referenced throughout state.rs/mempool.rs.
package verify

import (
	zerr "github.com/cloakchain/zkvmnode/errors"
	"github.com/cloakchain/zkvmnode/pkg/contract"
	"github.com/cloakchain/zkvmnode/pkg/hash"
	"github.com/cloakchain/zkvmnode/pkg/transcript"
)

// TxHeader carries the fields apply_block's check_tx_header inspects
// (spec §4.2).
type TxHeader struct {
	Version    uint64
	LocktimeMs uint64
}

// TxEntryKind distinguishes the txlog entries the state machine acts on
// from ones it simply passes through.
type TxEntryKind uint8

const (
	EntryInput TxEntryKind = iota
	EntryOutput
	EntryOther
)

// TxEntry is one line of a transaction's log. Input carries the
// ContractID being spent; Output carries the full Contract so its ID can
// be computed and inserted into the accumulator; Other entries (e.g.
// nonce or data entries in the original source) are ignored by the
// state machine per spec §4.2.
type TxEntry struct {
	Kind       TxEntryKind
	ContractID contract.ID
	Output     contract.Contract
}

// TxLog is the ordered sequence of entries a verified transaction
// produces.
type TxLog []TxEntry

// Tx is an (opaque, not-yet-verified) transaction: a header plus a
// serialized proof payload the external verifier interprets. This
// module never inspects Payload's contents.
type Tx struct {
	Header  TxHeader
	Payload []byte
}

// ID is the transcript hash identifying this transaction, independent
// of verification outcome.
func (tx Tx) ID() hash.Hash {
	t := transcript.New("ZkVM.tx")
	t.AppendU64("version", tx.Header.Version)
	t.AppendU64("locktime_ms", tx.Header.LocktimeMs)
	t.AppendMessage("payload", tx.Payload)
	return hash.Hash(t.Hash32("id"))
}

// VerifiedTx is the result of a successful Verify call: the tx's id, its
// header, and the decoded txlog the state machine walks to update the
// accumulator.
type VerifiedTx struct {
	ID     hash.Hash
	Header TxHeader
	Log    TxLog
}

// VerifierGens is the opaque set of public parameters (e.g. Bulletproofs
// generators) an external Verifier needs; this module only threads it
// through.
type VerifierGens struct {
	Label string
}

// Verifier performs the actual cryptographic verification of a Tx
// (signature aggregation, rangeproof/cloak checks) and decodes its
// txlog. Implementations live outside this module; state/ and mempool/
// depend only on this interface.
type Verifier interface {
	Verify(tx Tx, gens VerifierGens) (VerifiedTx, error)
}

// LogDecoder decodes a txlog from a Tx's Payload. No verifier in this
// package uses it: StaticVerifier looks txlogs up by tx id instead.
type LogDecoder func(payload []byte) (TxLog, error)

// StaticVerifier is a Verifier that trusts a pre-decoded txlog handed to
// it through Register, keyed by tx id. It exists for tests and for
// callers that have already run the external zk-verification pipeline
// out of process and only need this module to apply the resulting log —
// it performs no cryptography itself.
type StaticVerifier struct {
	logs map[hash.Hash]TxLog
}

// NewStaticVerifier builds a StaticVerifier with no registered logs.
func NewStaticVerifier() *StaticVerifier {
	return &StaticVerifier{logs: make(map[hash.Hash]TxLog)}
}

// Register associates a txlog with the given Tx's id, as if an external
// verifier had just produced it.
func (v *StaticVerifier) Register(tx Tx, log TxLog) {
	v.logs[tx.ID()] = log
}

func (v *StaticVerifier) Verify(tx Tx, _ VerifierGens) (VerifiedTx, error) {
	log, ok := v.logs[tx.ID()]
	if !ok {
		return VerifiedTx{}, zerr.New(zerr.ERR_BLOCKCHAIN_TX_INVALID, "no registered txlog for tx %s", tx.ID())
	}
	return VerifiedTx{ID: tx.ID(), Header: tx.Header, Log: log}, nil
}
