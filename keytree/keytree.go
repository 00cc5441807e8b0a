// Package keytree implements deterministic hierarchical key and
// blinding-factor derivation (spec §4.4): every derivation is a
// sequence of transcript appends followed by a challenge scalar, so
// blinding factors never need their own backup — they are rederived
// from a single root xpub. Grounded on
// _examples/original_source/keytree/src/lib.rs (Xprv::random,
// label-distinct intermediate/leaf derivation) and
// accounts/src/derivation.rs (value_blinding_factors), adapted to
// secp256k1 in place of ristretto255 per pkg/transcript's substitution.
package keytree

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"io"
	"sync"

	"github.com/cloakchain/zkvmnode/pkg/contract"
	"github.com/cloakchain/zkvmnode/pkg/transcript"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

const domainLabel = "ZkVM.keytree"

// Xprv is a secret hierarchical key: a root scalar plus the transcript
// state ("customization") accumulated by the derivation path that
// produced it.
type Xprv struct {
	scalar secp256k1.ModNScalar
	t      *transcript.Transcript
}

// Xpub is the public counterpart of an Xprv, carrying the same
// customization transcript so KeyAtSequence yields the public key of the
// leaf an Xprv's DeriveKey produces for the same sequence.
// ValueBlindingFactors does not use that transcript: it opens a fresh one
// over the xpub's point.
type Xpub struct {
	point secp256k1.PublicKey
	t     *transcript.Transcript
}

// Random samples a fresh root Xprv from r (crypto/rand.Reader if nil).
func Random(r io.Reader) (*Xprv, error) {
	if r == nil {
		r = rand.Reader
	}
	var buf [32]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return nil, err
	}
	var s secp256k1.ModNScalar
	s.SetByteSlice(buf[:])
	if s.IsZero() {
		// Vanishingly unlikely; resample rather than ever return a zero key.
		return Random(r)
	}
	return &Xprv{scalar: s, t: transcript.New(domainLabel)}, nil
}

// Pubkey returns the Xpub corresponding to xprv.
func (xprv *Xprv) Pubkey() *Xpub {
	var result secp256k1.JacobianPoint
	secp256k1.ScalarBaseMultNonConst(&xprv.scalar, &result)
	result.ToAffine()
	pub := secp256k1.NewPublicKey(&result.X, &result.Y)
	return &Xpub{point: *pub, t: xprv.t.Clone()}
}

// DeriveIntermediateKey derives a child Xprv for further derivation. f
// customizes the child's transcript (e.g. appending an account index);
// the "intermediate" label ensures this never collides with a leaf key
// derived via DeriveKey at the same customization.
func (xprv *Xprv) DeriveIntermediateKey(f func(t *transcript.Transcript)) *Xprv {
	t := xprv.t.Clone()
	t.AppendMessage("dom-sep", []byte("intermediate-key"))
	f(t)
	delta := t.ChallengeScalar("derive")

	var child secp256k1.ModNScalar
	child.Add2(&xprv.scalar, delta)
	return &Xprv{scalar: child, t: t}
}

// DeriveKey derives a terminal (leaf) signing key the same way, under a
// distinct label so it can never be mistaken for an intermediate key.
func (xprv *Xprv) DeriveKey(f func(t *transcript.Transcript)) *Xprv {
	t := xprv.t.Clone()
	t.AppendMessage("dom-sep", []byte("leaf-key"))
	f(t)
	delta := t.ChallengeScalar("derive")

	var child secp256k1.ModNScalar
	child.Add2(&xprv.scalar, delta)
	return &Xprv{scalar: child, t: t}
}

// Scalar exposes the raw secret scalar, e.g. for signing.
func (xprv *Xprv) Scalar() secp256k1.ModNScalar {
	return xprv.scalar
}

// KeyAtSequence appends "sequence" to xpub's transcript and derives the
// verification key a payer would use for that account sequence number.
func (xpub *Xpub) KeyAtSequence(seq uint64) *secp256k1.PublicKey {
	t := xpub.t.Clone()
	t.AppendMessage("dom-sep", []byte("leaf-key"))
	t.AppendU64("sequence", seq)
	delta := t.ChallengeScalar("derive")

	var deltaPoint secp256k1.JacobianPoint
	secp256k1.ScalarBaseMultNonConst(delta, &deltaPoint)

	var base secp256k1.JacobianPoint
	xpub.point.AsJacobian(&base)

	var sum secp256k1.JacobianPoint
	secp256k1.AddNonConst(&base, &deltaPoint, &sum)
	sum.ToAffine()

	return secp256k1.NewPublicKey(&sum.X, &sum.Y)
}

// ValueBlindingFactors opens a transcript labeled "ZkVM.accounts.blinding",
// commits the xpub's compressed bytes, the sequence, and the clear
// value's (qty, flv), and reads two challenge scalars (qty_blinding,
// flv_blinding). Determinism here is the whole point (spec §4.4 "Why
// deterministic"): rederiving from the single root xpub makes backup a
// single secret instead of an ever-growing log of blinding factors.
func (xpub *Xpub) ValueBlindingFactors(seq uint64, qty uint64, flv [32]byte) (qtyBlinding, flvBlinding *secp256k1.ModNScalar) {
	t := transcript.New("ZkVM.accounts.blinding")
	t.AppendMessage("xpub", xpub.point.SerializeCompressed())
	t.AppendU64("sequence", seq)
	t.AppendU64("qty", qty)
	t.AppendMessage("flv", flv[:])

	q := t.ChallengeScalar("qty_blinding")
	f := t.ChallengeScalar("flv_blinding")
	return q, f
}

// SerializeCompressed returns the 33-byte compressed point encoding.
func (xpub *Xpub) SerializeCompressed() []byte {
	return xpub.point.SerializeCompressed()
}

// ScalarFromUint64 widens n into a scalar, big-endian, for use as the
// value argument to BlindedCommitment.
func ScalarFromUint64(n uint64) *secp256k1.ModNScalar {
	var buf [32]byte
	binary.BigEndian.PutUint64(buf[24:], n)
	var s secp256k1.ModNScalar
	s.SetByteSlice(buf[:])
	return &s
}

// ScalarFromBytes reduces a 32-byte value (e.g. a flavor tag) mod the
// curve order for use as the value argument to BlindedCommitment.
func ScalarFromBytes(b [32]byte) *secp256k1.ModNScalar {
	var s secp256k1.ModNScalar
	s.SetByteSlice(b[:])
	return &s
}

var (
	pedersenHOnce sync.Once
	pedersenH     *secp256k1.PublicKey
)

// pedersenGeneratorH returns the secondary Pedersen generator H, found by
// a deterministic hash-and-increment search over candidate x-coordinates
// so that nobody (including the implementer) knows its discrete log with
// respect to the curve's standard generator G. Grounded on the
// ristretto255 Pedersen setup in
// _examples/original_source/accounts/src/lib.rs's Commitment type, which
// relies on curve25519-dalek's independently-generated PedersenGens; this
// is the secp256k1 analog since no independent generator ships with the
// Go curve package.
func pedersenGeneratorH() *secp256k1.PublicKey {
	pedersenHOnce.Do(func() {
		for counter := uint64(0); ; counter++ {
			var buf [8]byte
			binary.LittleEndian.PutUint64(buf[:], counter)
			digest := sha256.Sum256(append([]byte("ZkVM.pedersen.H"), buf[:]...))

			candidate := make([]byte, 33)
			candidate[0] = 0x02
			copy(candidate[1:], digest[:])

			pub, err := secp256k1.ParsePubKey(candidate)
			if err == nil {
				pedersenH = pub
				return
			}
		}
	})
	return pedersenH
}

// BlindedCommitment computes value*G + blinding*H, the Pedersen-style
// commitment backing contract.Commitment (spec §8 "Pedersen-style
// commitment that the payer must place into the tx output"). It is used
// both for quantity commitments (value reduced from a uint64) and
// flavor commitments (value reduced from the 32-byte flavor tag), so it
// takes the value pre-reduced to a scalar rather than assuming a width.
func BlindedCommitment(value *secp256k1.ModNScalar, blinding *secp256k1.ModNScalar) contract.Commitment {
	var valueTerm secp256k1.JacobianPoint
	secp256k1.ScalarBaseMultNonConst(value, &valueTerm)

	var hJacobian secp256k1.JacobianPoint
	pedersenGeneratorH().AsJacobian(&hJacobian)
	var blindingTerm secp256k1.JacobianPoint
	secp256k1.ScalarMultNonConst(blinding, &hJacobian, &blindingTerm)

	var sum secp256k1.JacobianPoint
	secp256k1.AddNonConst(&valueTerm, &blindingTerm, &sum)
	sum.ToAffine()

	pub := secp256k1.NewPublicKey(&sum.X, &sum.Y)
	var out contract.Commitment
	copy(out[:], pub.SerializeCompressed())
	return out
}
