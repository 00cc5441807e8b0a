package musig

import (
	"crypto/subtle"

	"github.com/cloakchain/zkvmnode/pkg/transcript"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// NoncePrecommitment is H(R_i), published before R_i itself so a party
// cannot bias the aggregated nonce after seeing everyone else's R_j
// (grounded on counterparty.rs's NoncePrecommitment/precommit).
type NoncePrecommitment [32]byte

// NonceCommitment is a party's per-round nonce point R_i.
type NonceCommitment struct {
	point secp256k1.PublicKey
}

func newNonceCommitment(point *secp256k1.PublicKey) NonceCommitment {
	return NonceCommitment{point: *point}
}

// Precommit hashes the commitment into its precommitment form.
func (c NonceCommitment) Precommit() NoncePrecommitment {
	h := transcript.New("Musig.nonce-precommit")
	h.AppendPoint("R", &c.point)
	var out NoncePrecommitment
	h.ChallengeBytes("precommitment", out[:])
	return out
}

func sumNonceCommitments(commitments []NonceCommitment) *secp256k1.PublicKey {
	points := make([]*secp256k1.PublicKey, len(commitments))
	for i := range commitments {
		points[i] = &commitments[i].point
	}
	return addPoints(points...)
}

func (p NoncePrecommitment) equal(other NoncePrecommitment) bool {
	return subtle.ConstantTimeCompare(p[:], other[:]) == 1
}
