package musig

import (
	"crypto/rand"
	"io"

	zerr "github.com/cloakchain/zkvmnode/errors"
	"github.com/cloakchain/zkvmnode/pkg/transcript"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// Signature is an aggregated Schnorr signature: s·G = R + Σ c_i·a_i·X_i
// (grounded on multisignature.rs's Signature/sign_multi/verify_multi).
type Signature struct {
	S secp256k1.ModNScalar
	R secp256k1.PublicKey
}

// SignerAwaitingPrecommitments is stage 1 of the four-stage protocol
// (spec §4.6): each stage's method consumes the previous stage's value
// by embedding it in the receiver, so the compiler rejects calling
// stages out of order (no way to call ReceiveCommitments before
// ReceivePrecommitments has produced a SignerAwaitingCommitments).
type SignerAwaitingPrecommitments struct {
	transcript *transcript.Transcript
	context    Context
	position   int
	privkey    secp256k1.ModNScalar
	nonce      secp256k1.ModNScalar
	nonceComm  NonceCommitment
}

// NewSigner samples this party's nonce r_i, computes R_i, and returns
// the precommitment H(R_i) to publish first (spec §4.6 step 1).
func NewSigner(t *transcript.Transcript, position int, privkey *secp256k1.ModNScalar, context Context) (*SignerAwaitingPrecommitments, NoncePrecommitment, error) {
	if position < 0 || position >= context.Len() {
		return nil, NoncePrecommitment{}, zerr.New(zerr.ERR_MUSIG_BAD_ARGUMENTS, "signer position %d out of range for %d parties", position, context.Len())
	}

	nonce, err := sampleNonce(t, privkey)
	if err != nil {
		return nil, NoncePrecommitment{}, err
	}

	var R secp256k1.JacobianPoint
	secp256k1.ScalarBaseMultNonConst(nonce, &R)
	R.ToAffine()
	comm := newNonceCommitment(secp256k1.NewPublicKey(&R.X, &R.Y))

	s := &SignerAwaitingPrecommitments{
		transcript: t,
		context:    context,
		position:   position,
		privkey:    *privkey,
		nonce:      *nonce,
		nonceComm:  comm,
	}
	return s, comm.Precommit(), nil
}

// sampleNonce derives a per-round nonce by mixing the secret key into a
// clone of the transcript (so the nonce is bound to the signing context,
// the way merlin's build_rng().rekey_with_witness_bytes is used in
// signature.rs::sign) and crypto/rand, the same "deterministic-plus-fresh"
// nonce construction the original performs via rand::thread_rng.
func sampleNonce(t *transcript.Transcript, privkey *secp256k1.ModNScalar) (*secp256k1.ModNScalar, error) {
	seedT := t.Clone()
	privBytes := privkey.Bytes()
	seedT.AppendMessage("x_i", privBytes[:])

	var entropy [32]byte
	if _, err := io.ReadFull(rand.Reader, entropy[:]); err != nil {
		return nil, err
	}
	seedT.AppendMessage("entropy", entropy[:])

	nonce := seedT.ChallengeScalar("nonce")
	if nonce.IsZero() {
		return sampleNonce(t, privkey)
	}
	return nonce, nil
}

// ReceivePrecommitments records every party's precommitment and returns
// this party's own NonceCommitment to publish next (spec §4.6 step 2).
func (s *SignerAwaitingPrecommitments) ReceivePrecommitments(precommitments []NoncePrecommitment) (*SignerAwaitingCommitments, NonceCommitment, error) {
	if len(precommitments) != s.context.Len() {
		return nil, NonceCommitment{}, zerr.New(zerr.ERR_MUSIG_BAD_ARGUMENTS, "expected %d precommitments, got %d", s.context.Len(), len(precommitments))
	}

	parties := make([]*counterparty, s.context.Len())
	for i := range precommitments {
		cp := newCounterparty(i, s.context.Key(i))
		cp.precommitNonce(precommitments[i])
		parties[i] = cp
	}

	return &SignerAwaitingCommitments{
		transcript: s.transcript,
		context:    s.context,
		position:   s.position,
		privkey:    s.privkey,
		nonce:      s.nonce,
		nonceComm:  s.nonceComm,
		parties:    parties,
	}, s.nonceComm, nil
}

// SignerAwaitingCommitments is stage 2.
type SignerAwaitingCommitments struct {
	transcript *transcript.Transcript
	context    Context
	position   int
	privkey    secp256k1.ModNScalar
	nonce      secp256k1.ModNScalar
	nonceComm  NonceCommitment
	parties    []*counterparty
}

// ReceiveCommitments verifies every R_j against its earlier precommitment,
// aggregates R = Σ R_j, derives this party's challenge, and produces its
// share s_i = r_i + c_i·x_i to publish (spec §4.6 step 3).
func (s *SignerAwaitingCommitments) ReceiveCommitments(commitments []NonceCommitment) (*SignerAwaitingShares, *secp256k1.ModNScalar, error) {
	if len(commitments) != len(s.parties) {
		return nil, nil, zerr.New(zerr.ERR_MUSIG_BAD_ARGUMENTS, "expected %d nonce commitments, got %d", len(s.parties), len(commitments))
	}
	for i, comm := range commitments {
		if err := s.parties[i].commitNonce(comm); err != nil {
			return nil, nil, err
		}
	}

	R := sumNonceCommitments(commitments)

	t := s.transcript.Clone()
	s.context.Commit(t)
	t.AppendPoint("R", R)

	c_i := s.context.Challenge(s.position, t.Clone())

	var share secp256k1.ModNScalar
	var term secp256k1.ModNScalar
	term.Mul2(c_i, &s.privkey)
	share.Add2(&s.nonce, &term)

	next := &SignerAwaitingShares{
		context:        s.context,
		position:       s.position,
		R:              *R,
		parties:        s.parties,
		baseTranscript: t,
	}
	return next, &share, nil
}

// SignerAwaitingShares is stage 3.
type SignerAwaitingShares struct {
	context        Context
	position       int
	R              secp256k1.PublicKey
	parties        []*counterparty
	baseTranscript *transcript.Transcript
}

// ReceiveShares verifies every party's share against its committed
// nonce, sums them into s, and returns the final Signature (spec §4.6
// step 4).
func (s *SignerAwaitingShares) ReceiveShares(shares []*secp256k1.ModNScalar) (*Signature, error) {
	if len(shares) != len(s.parties) {
		return nil, zerr.New(zerr.ERR_MUSIG_BAD_ARGUMENTS, "expected %d shares, got %d", len(s.parties), len(shares))
	}

	var total secp256k1.ModNScalar
	for i, share := range shares {
		if err := s.parties[i].checkShare(share, s.context, s.baseTranscript); err != nil {
			return nil, err
		}
		total.Add(share)
	}

	return &Signature{S: total, R: s.R}, nil
}
