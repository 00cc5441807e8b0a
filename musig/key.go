// Package musig implements aggregated Schnorr signatures over two
// contexts (an aggregated single key, or distinct per-party messages)
// sharing one challenge-derivation skeleton, plus a four-stage signer
// state machine that enforces in-order message delivery at compile time
// and batch verification (spec §4.6). Grounded on
// _examples/original_source/musig/src/{context,counterparty,
// multisignature,key}.rs and starsig/src/{signature,batch}.rs, adapted
// from ristretto255 to secp256k1.
package musig

import (
	"github.com/cloakchain/zkvmnode/pkg/transcript"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// VerificationKey wraps a public key, caching its compressed encoding so
// repeated transcript commits don't reserialize (spec §4.6, grounded on
// key.rs's VerificationKey).
type VerificationKey struct {
	point      secp256k1.PublicKey
	compressed [33]byte
}

// NewVerificationKeyFromPrivate derives the public key for privkey.
func NewVerificationKeyFromPrivate(privkey *secp256k1.ModNScalar) VerificationKey {
	var result secp256k1.JacobianPoint
	secp256k1.ScalarBaseMultNonConst(privkey, &result)
	result.ToAffine()
	pub := secp256k1.NewPublicKey(&result.X, &result.Y)
	return newVerificationKey(pub)
}

func newVerificationKey(pub *secp256k1.PublicKey) VerificationKey {
	vk := VerificationKey{point: *pub}
	copy(vk.compressed[:], pub.SerializeCompressed())
	return vk
}

// ParseVerificationKey decodes a 33-byte compressed point.
func ParseVerificationKey(compressed []byte) (VerificationKey, error) {
	pub, err := secp256k1.ParsePubKey(compressed)
	if err != nil {
		return VerificationKey{}, err
	}
	return newVerificationKey(pub), nil
}

// Point returns the underlying public key point.
func (vk VerificationKey) Point() *secp256k1.PublicKey { return &vk.point }

// Compressed returns the 33-byte compressed encoding.
func (vk VerificationKey) Compressed() [33]byte { return vk.compressed }

func (vk VerificationKey) commit(t *transcript.Transcript, label string) {
	t.AppendMessage(label, vk.compressed[:])
}

func addPoints(points ...*secp256k1.PublicKey) *secp256k1.PublicKey {
	var sum secp256k1.JacobianPoint
	for _, p := range points {
		var j secp256k1.JacobianPoint
		p.AsJacobian(&j)
		var next secp256k1.JacobianPoint
		secp256k1.AddNonConst(&sum, &j, &next)
		sum = next
	}
	sum.ToAffine()
	return secp256k1.NewPublicKey(&sum.X, &sum.Y)
}
