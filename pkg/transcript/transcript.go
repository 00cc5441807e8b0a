// Package transcript implements the domain-separated, Merlin-style
// transcript that underlies every hash and Fiat-Shamir challenge in this
// module (spec §9, "Transcript-based hashing"). It follows the label
// vocabulary and structure of the Rust source's merlin::Transcript
// extension traits (keytree/src/transcript.rs, musig/src/transcript.rs,
// starsig/src/transcript.rs) over a SHAKE256 sponge, since no
// Merlin/STROBE port exists among the retrieved Go examples.
package transcript

import (
	"encoding/binary"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"golang.org/x/crypto/sha3"
)

// Transcript accumulates domain-separated labeled fields and yields
// challenge bytes/scalars. It is cheap to Clone, which is required by the
// musig per-party challenge derivation (spec §4.6).
type Transcript struct {
	h sha3.ShakeHash
}

// New creates a transcript seeded with a top-level domain-separation
// label, e.g. transcript.New("ZkVM.utreexo").
func New(label string) *Transcript {
	t := &Transcript{h: sha3.NewShake256()}
	t.appendWithLen("dom-sep", []byte(label))
	return t
}

// Clone returns an independent copy whose subsequent appends/challenges do
// not affect the original.
func (t *Transcript) Clone() *Transcript {
	return &Transcript{h: t.h.Clone()}
}

func (t *Transcript) appendWithLen(label string, data []byte) {
	var lbuf [8]byte
	binary.LittleEndian.PutUint64(lbuf[:], uint64(len(label)))
	t.h.Write(lbuf[:])
	t.h.Write([]byte(label))

	var dbuf [8]byte
	binary.LittleEndian.PutUint64(dbuf[:], uint64(len(data)))
	t.h.Write(dbuf[:])
	t.h.Write(data)
}

// AppendMessage commits a labeled byte string.
func (t *Transcript) AppendMessage(label string, data []byte) {
	t.appendWithLen(label, data)
}

// AppendU64 commits a labeled 64-bit integer.
func (t *Transcript) AppendU64(label string, n uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], n)
	t.appendWithLen(label, buf[:])
}

// AppendPoint commits a labeled compressed secp256k1 point.
func (t *Transcript) AppendPoint(label string, p *secp256k1.PublicKey) {
	t.appendWithLen(label, p.SerializeCompressed())
}

// AppendScalar commits a labeled scalar.
func (t *Transcript) AppendScalar(label string, s *secp256k1.ModNScalar) {
	b := s.Bytes()
	t.appendWithLen(label, b[:])
}

// ChallengeBytes derives len(out) labeled challenge bytes. The transcript
// remains writable afterwards: the squeeze is taken from a clone of the
// sponge state, so later AppendMessage/ChallengeBytes calls see the
// original (pre-squeeze) absorption history plus whatever is appended
// after, matching Merlin's "transcript keeps evolving" semantics.
func (t *Transcript) ChallengeBytes(label string, out []byte) {
	t.appendWithLen(label, nil)
	clone := t.h.Clone()
	_, _ = clone.Read(out)
}

// ChallengeScalar derives a labeled challenge reduced into the secp256k1
// scalar field. This substitutes for the source's
// Scalar::from_bytes_mod_order_wide(&64_byte_challenge) over ristretto255:
// no ristretto/curve25519 library exists in the retrieved Go pack, so
// secp256k1 (the curve the teacher repo actually imports) is used instead,
// and a single 32-byte challenge is reduced mod the group order via
// ModNScalar.SetByteSlice, the same negligible-bias approach used by
// Schnorr/BIP340-style libraries built on this package.
func (t *Transcript) ChallengeScalar(label string) *secp256k1.ModNScalar {
	var buf [32]byte
	t.ChallengeBytes(label, buf[:])
	var s secp256k1.ModNScalar
	s.SetByteSlice(buf[:])
	return &s
}

// Hash32 is a convenience wrapper returning a fixed-size challenge,
// used for leaf/node/id hashes (spec's 32-byte Hash type).
func (t *Transcript) Hash32(label string) [32]byte {
	var out [32]byte
	t.ChallengeBytes(label, out[:])
	return out
}
