package accounts

import (
	"github.com/cloakchain/zkvmnode/keytree"
	"github.com/cloakchain/zkvmnode/pkg/contract"
	"github.com/cloakchain/zkvmnode/pkg/hash"
	"github.com/cloakchain/zkvmnode/pkg/transcript"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// ReceiverID uniquely identifies a Receiver, independent of any contract
// it ends up anchoring (spec §3 "ReceiverID").
type ReceiverID hash.Hash

func (id ReceiverID) String() string { return hash.Hash(id).String() }

// Receiver describes a payment destination: a predicate the payer
// commits value against, plus the blinding factors needed to reproduce
// that commitment. It is shareable with a counterparty without
// revealing the underlying xprv (spec §4.5 "Receiver").
type Receiver struct {
	OpaquePredicate [33]byte
	Value           contract.ClearValue
	QtyBlinding     secp256k1.ModNScalar
	FlvBlinding     secp256k1.ModNScalar
}

// GenerateReceiver derives the signing key and blinding factors for
// (xpub, sequence) and packages them with value into a Receiver.
func GenerateReceiver(xpub *keytree.Xpub, sequence uint64, value contract.ClearValue) Receiver {
	key := xpub.KeyAtSequence(sequence)
	qtyBlinding, flvBlinding := xpub.ValueBlindingFactors(sequence, value.Qty, [32]byte(value.Flv))

	var predicate [33]byte
	copy(predicate[:], key.SerializeCompressed())

	return Receiver{
		OpaquePredicate: predicate,
		Value:           value,
		QtyBlinding:     *qtyBlinding,
		FlvBlinding:     *flvBlinding,
	}
}

// ID returns r's ReceiverID, a transcript hash over every field so two
// receivers collide only if they are identical (spec §4.5 grounded on
// receiver.rs's Receiver::id).
func (r Receiver) ID() ReceiverID {
	t := transcript.New("ZkVM.accounts.receiver")
	t.AppendMessage("predicate", r.OpaquePredicate[:])
	t.AppendU64("qty", r.Value.Qty)
	t.AppendMessage("flv", r.Value.Flv.Bytes())
	t.AppendMessage("qty_blinding", r.QtyBlinding.Bytes()[:])
	t.AppendMessage("flv_blinding", r.FlvBlinding.Bytes()[:])
	return ReceiverID(t.Hash32("receiver_id"))
}

// Predicate returns the opaque predicate a contract built for this
// receiver must use: we publish the point, not the knowledge that we
// hold its discrete log, since a Receiver is meant to be shared.
func (r Receiver) Predicate() contract.Predicate {
	return contract.PredicateOpaque(r.OpaquePredicate)
}

// BlindedValue reproduces the confidential Value a payer must place into
// the tx output for this receiver.
func (r Receiver) BlindedValue() contract.Value {
	return contract.Value{
		Qty: keytree.BlindedCommitment(keytree.ScalarFromUint64(r.Value.Qty), &r.QtyBlinding),
		Flv: keytree.BlindedCommitment(keytree.ScalarFromBytes([32]byte(r.Value.Flv)), &r.FlvBlinding),
	}
}

// VerifyValue checks that value is exactly the commitment this receiver
// would produce, letting the receiver confirm an incoming payment
// locally without any interaction (spec §4.5 invariant).
func (r Receiver) VerifyValue(value contract.Value) bool {
	expected := r.BlindedValue()
	return expected.Qty == value.Qty && expected.Flv == value.Flv
}

// Contract builds the on-chain Contract for this receiver under anchor.
func (r Receiver) Contract(anchor contract.Anchor) contract.Contract {
	return contract.Contract{
		Predicate: r.Predicate(),
		Value:     r.BlindedValue(),
		Anchor:    anchor,
	}
}
