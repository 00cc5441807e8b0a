// Package contract holds the data model an output/contract is built
// from: predicates, clear and blinded values, anchors, and the
// ContractID fed to the Utreexo accumulator as its leaf value (spec §3
// "Contract / Output / ContractID").
package contract

import (
	"github.com/cloakchain/zkvmnode/pkg/hash"
	"github.com/cloakchain/zkvmnode/pkg/transcript"
)

// Anchor is a per-contract uniqueness tag that prevents two structurally
// identical outputs from colliding on the same ContractID. It is
// threaded through from the previous contract's output position, the
// way _examples/original_source/accounts/src/lib.rs's ContractInfo
// carries one.
type Anchor hash.Hash

// PredicateKind distinguishes a verification-key predicate from an
// opaque one received from a third party (spec §4 supplement).
type PredicateKind uint8

const (
	PredicateKeyKind PredicateKind = iota
	PredicateOpaqueKind
)

// Predicate gates spending of a contract: either a verification key this
// node controls, or an opaque committed point handed to us by a
// counterparty (e.g. a multi-party payment channel output).
type Predicate struct {
	Kind  PredicateKind
	Point [33]byte // compressed secp256k1 point
}

func PredicateKey(point [33]byte) Predicate {
	return Predicate{Kind: PredicateKeyKind, Point: point}
}

func PredicateOpaque(point [33]byte) Predicate {
	return Predicate{Kind: PredicateOpaqueKind, Point: point}
}

func (p Predicate) Commit(t *transcript.Transcript) {
	t.AppendU64("predicate.kind", uint64(p.Kind))
	t.AppendMessage("predicate.point", p.Point[:])
}

// ClearValue is a quantity/flavor pair before blinding.
type ClearValue struct {
	Qty uint64
	Flv hash.Hash
}

func (v ClearValue) Commit(t *transcript.Transcript) {
	t.AppendU64("qty", v.Qty)
	t.AppendMessage("flv", v.Flv.Bytes())
}

// Commitment is a Pedersen-style blinded commitment to a single scalar.
// The point arithmetic itself is performed by keytree/musig (which hold
// the curve dependency); this package only carries the resulting bytes.
type Commitment [33]byte

func (c Commitment) Commit(t *transcript.Transcript) {
	t.AppendMessage("commitment", c[:])
}

// Value is the on-wire confidential representation of a ClearValue: a
// quantity commitment and a flavor commitment.
type Value struct {
	Qty Commitment
	Flv Commitment
}

func (v Value) Commit(t *transcript.Transcript) {
	v.Qty.Commit(t)
	v.Flv.Commit(t)
}

// Contract is a committed payload (here, a single Value item) under a
// predicate with an anchor, per spec §3.
type Contract struct {
	Predicate Predicate
	Value     Value
	Anchor    Anchor
}

// ID is the ContractID fed to the accumulator as a MerkleItem: the
// transcript hash of the predicate, payload, and anchor (spec §3,
// GLOSSARY "ContractID").
type ID hash.Hash

// Commit implements utreexo.MerkleItem.
func (id ID) Commit(t *transcript.Transcript) {
	t.AppendMessage("contract-id", hash.Hash(id).Bytes())
}

// ComputeID derives c's ContractID.
func (c Contract) ComputeID() ID {
	t := transcript.New("ZkVM.contract")
	c.Predicate.Commit(t)
	c.Value.Commit(t)
	t.AppendMessage("anchor", hash.Hash(c.Anchor).Bytes())
	return ID(t.Hash32("id"))
}
