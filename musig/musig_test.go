package musig

import (
	"testing"

	"github.com/cloakchain/zkvmnode/pkg/transcript"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/stretchr/testify/require"
)

func scalarFromInt(n uint32) *secp256k1.ModNScalar {
	s := new(secp256k1.ModNScalar)
	s.SetInt(n)
	return s
}

// TestAggregatedSignatureVerifies is the spec §8 scenario: sign
// transcript "example" with three keys x=1,2,3; the aggregated
// signature must verify against the Multikey aggregating their pubkeys.
func TestAggregatedSignatureVerifies(t *testing.T) {
	privkeys := []*secp256k1.ModNScalar{scalarFromInt(1), scalarFromInt(2), scalarFromInt(3)}

	sig, multikey, err := SignAggregate(transcript.New("example"), privkeys)
	require.NoError(t, err)

	err = sig.Verify(transcript.New("example"), multikey)
	require.NoError(t, err)
}

func TestAggregatedSignatureRejectsWrongTranscript(t *testing.T) {
	privkeys := []*secp256k1.ModNScalar{scalarFromInt(1), scalarFromInt(2), scalarFromInt(3)}

	sig, multikey, err := SignAggregate(transcript.New("example"), privkeys)
	require.NoError(t, err)

	err = sig.Verify(transcript.New("different-message"), multikey)
	require.Error(t, err)
}

func TestAggregatedSignatureRejectsTamperedR(t *testing.T) {
	privkeys := []*secp256k1.ModNScalar{scalarFromInt(1), scalarFromInt(2), scalarFromInt(3)}

	sig, multikey, err := SignAggregate(transcript.New("example"), privkeys)
	require.NoError(t, err)

	tampered := *sig
	randomKey := scalarFromInt(999)
	var randomPoint secp256k1.JacobianPoint
	secp256k1.ScalarBaseMultNonConst(randomKey, &randomPoint)
	randomPoint.ToAffine()
	tampered.R = *secp256k1.NewPublicKey(&randomPoint.X, &randomPoint.Y)

	err = tampered.Verify(transcript.New("example"), multikey)
	require.Error(t, err)
}

// TestNonceCommitmentMismatchRejectedEarly simulates a malicious party
// publishing a nonce commitment that does not hash to the precommitment
// it sent in stage 1 — the spec's per-party R_i integrity check, caught
// before any signature share is ever produced.
func TestNonceCommitmentMismatchRejectedEarly(t *testing.T) {
	privkeys := []*secp256k1.ModNScalar{scalarFromInt(1), scalarFromInt(2)}
	pubkeys := make([]VerificationKey, len(privkeys))
	for i, x := range privkeys {
		pubkeys[i] = NewVerificationKeyFromPrivate(x)
	}
	multikey, err := NewMultikey(pubkeys)
	require.NoError(t, err)

	base := transcript.New("example")

	signers := make([]*SignerAwaitingPrecommitments, len(privkeys))
	precommitments := make([]NoncePrecommitment, len(privkeys))
	for i, x := range privkeys {
		s, pre, err := NewSigner(base, i, x, multikey)
		require.NoError(t, err)
		signers[i] = s
		precommitments[i] = pre
	}

	stage2 := make([]*SignerAwaitingCommitments, len(privkeys))
	commitments := make([]NonceCommitment, len(privkeys))
	for i, s := range signers {
		next, comm, err := s.ReceivePrecommitments(precommitments)
		require.NoError(t, err)
		stage2[i] = next
		commitments[i] = comm
	}

	// Replace party 0's published commitment with an unrelated point: it
	// will no longer hash to the precommitment everyone already has.
	forged := scalarFromInt(12345)
	var forgedPoint secp256k1.JacobianPoint
	secp256k1.ScalarBaseMultNonConst(forged, &forgedPoint)
	forgedPoint.ToAffine()
	commitments[0] = newNonceCommitment(secp256k1.NewPublicKey(&forgedPoint.X, &forgedPoint.Y))

	_, _, err = stage2[1].ReceiveCommitments(commitments)
	require.Error(t, err)
}

func TestSingleKeyMultikeyHasNoDelinearizationFactor(t *testing.T) {
	x := scalarFromInt(7)
	pub := NewVerificationKeyFromPrivate(x)
	multikey, err := NewMultikey([]VerificationKey{pub})
	require.NoError(t, err)

	require.Equal(t, pub.Compressed(), multikey.AggregatedKey().Compressed())
	one := new(secp256k1.ModNScalar)
	one.SetInt(1)
	require.Equal(t, *one, *multikey.FactorForKey(0))
}

func TestBatchVerifierAcceptsMultipleValidSignatures(t *testing.T) {
	sig1, mk1, err := SignAggregate(transcript.New("msg-1"), []*secp256k1.ModNScalar{scalarFromInt(1), scalarFromInt(2)})
	require.NoError(t, err)
	sig2, mk2, err := SignAggregate(transcript.New("msg-2"), []*secp256k1.ModNScalar{scalarFromInt(3)})
	require.NoError(t, err)

	bv := NewBatchVerifier()
	sig1.AppendToBatch(transcript.New("msg-1"), mk1, bv)
	sig2.AppendToBatch(transcript.New("msg-2"), mk2, bv)
	require.NoError(t, bv.Verify())
}

func TestBatchVerifierRejectsIfAnySignatureInvalid(t *testing.T) {
	sig1, mk1, err := SignAggregate(transcript.New("msg-1"), []*secp256k1.ModNScalar{scalarFromInt(1), scalarFromInt(2)})
	require.NoError(t, err)
	sig2, mk2, err := SignAggregate(transcript.New("msg-2"), []*secp256k1.ModNScalar{scalarFromInt(3)})
	require.NoError(t, err)
	sig2.S.Add(scalarFromInt(1)) // corrupt the second signature

	bv := NewBatchVerifier()
	sig1.AppendToBatch(transcript.New("msg-1"), mk1, bv)
	sig2.AppendToBatch(transcript.New("msg-2"), mk2, bv)
	require.Error(t, bv.Verify())
}

func TestMultimessageAggregatesDistinctPairs(t *testing.T) {
	x1, x2 := scalarFromInt(11), scalarFromInt(22)
	pub1, pub2 := NewVerificationKeyFromPrivate(x1), NewVerificationKeyFromPrivate(x2)

	mm, err := NewMultimessage([]VerificationKey{pub1, pub2}, [][]byte{[]byte("pay alice"), []byte("pay bob")})
	require.NoError(t, err)

	base := transcript.New("Musig.multimessage-signing")

	signers := make([]*SignerAwaitingPrecommitments, 2)
	precommitments := make([]NoncePrecommitment, 2)
	privkeys := []*secp256k1.ModNScalar{x1, x2}
	for i, x := range privkeys {
		s, pre, err := NewSigner(base, i, x, mm)
		require.NoError(t, err)
		signers[i] = s
		precommitments[i] = pre
	}

	stage2 := make([]*SignerAwaitingCommitments, 2)
	commitments := make([]NonceCommitment, 2)
	for i, s := range signers {
		next, comm, err := s.ReceivePrecommitments(precommitments)
		require.NoError(t, err)
		stage2[i] = next
		commitments[i] = comm
	}

	stage3 := make([]*SignerAwaitingShares, 2)
	shares := make([]*secp256k1.ModNScalar, 2)
	for i, s := range stage2 {
		next, share, err := s.ReceiveCommitments(commitments)
		require.NoError(t, err)
		stage3[i] = next
		shares[i] = share
	}

	var sig *Signature
	for _, s := range stage3 {
		sig, err = s.ReceiveShares(shares)
		require.NoError(t, err)
	}

	require.NoError(t, sig.Verify(transcript.New("Musig.multimessage-signing"), mm))
}
