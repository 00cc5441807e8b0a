package musig

import (
	"bytes"

	zerr "github.com/cloakchain/zkvmnode/errors"
	"github.com/cloakchain/zkvmnode/pkg/transcript"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// counterparty tracks one other signer's progress through the
// precommit -> commit -> share handshake (grounded on counterparty.rs's
// Counterparty/CounterpartyPrecommitted/CounterpartyCommitted chain,
// collapsed into one struct with a phase tag since Go has no type-level
// state machine the way Rust's ownership-transferring methods model it).
type counterparty struct {
	position      int
	pubkey        VerificationKey
	precommitment NoncePrecommitment
	commitment    NonceCommitment
	hasCommitment bool
}

func newCounterparty(position int, pubkey VerificationKey) *counterparty {
	return &counterparty{position: position, pubkey: pubkey}
}

func (cp *counterparty) precommitNonce(precommitment NoncePrecommitment) {
	cp.precommitment = precommitment
}

func (cp *counterparty) commitNonce(commitment NonceCommitment) error {
	if !commitment.Precommit().equal(cp.precommitment) {
		return zerr.New(zerr.ERR_MUSIG_SHARE_MISMATCH, "nonce commitment for party %d does not match its precommitment", cp.position)
	}
	cp.commitment = commitment
	cp.hasCommitment = true
	return nil
}

// checkShare verifies s_i·G == R_i + c_i·X_i, where c_i is derived from a
// fresh clone of transcript so parallel checks over every party never
// interfere with each other's transcript state.
func (cp *counterparty) checkShare(share *secp256k1.ModNScalar, context Context, t *transcript.Transcript) error {
	var sG secp256k1.JacobianPoint
	secp256k1.ScalarBaseMultNonConst(share, &sG)
	sG.ToAffine()
	S_i := secp256k1.NewPublicKey(&sG.X, &sG.Y)

	c_i := context.Challenge(cp.position, t.Clone())

	var xi secp256k1.JacobianPoint
	cp.pubkey.Point().AsJacobian(&xi)
	var cx secp256k1.JacobianPoint
	secp256k1.ScalarMultNonConst(c_i, &xi, &cx)
	cx.ToAffine()
	cxPoint := secp256k1.NewPublicKey(&cx.X, &cx.Y)

	expected := addPoints(&cp.commitment.point, cxPoint)

	if !bytes.Equal(S_i.SerializeCompressed(), expected.SerializeCompressed()) {
		return zerr.New(zerr.ERR_MUSIG_SHARE_MISMATCH, "signature share from party %d failed to verify", cp.position)
	}
	return nil
}
