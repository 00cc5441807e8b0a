package musig

import (
	"github.com/cloakchain/zkvmnode/pkg/transcript"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// AppendToBatch adds this signature's verification equation to bv:
// `0 == (-s·G) + (1·R) + Σ c_i·X_i` (grounded on
// multisignature.rs's verify_multi_batched).
func (sig *Signature) AppendToBatch(t *transcript.Transcript, context Context, bv *BatchVerifier) {
	t = t.Clone()
	context.Commit(t)
	t.AppendPoint("R", &sig.R)

	var negS secp256k1.ModNScalar
	negS.NegateVal(&sig.S)

	one := new(secp256k1.ModNScalar)
	one.SetInt(1)

	scalars := make([]*secp256k1.ModNScalar, 0, context.Len()+1)
	points := make([]*secp256k1.PublicKey, 0, context.Len()+1)

	scalars = append(scalars, one)
	points = append(points, &sig.R)

	for i := 0; i < context.Len(); i++ {
		c_i := context.Challenge(i, t.Clone())
		scalars = append(scalars, c_i)
		points = append(points, context.Key(i).Point())
	}

	bv.Append(&negS, scalars, points)
}

// Verify checks sig alone, via a single-equation batch.
func (sig *Signature) Verify(t *transcript.Transcript, context Context) error {
	bv := NewBatchVerifier()
	sig.AppendToBatch(t, context, bv)
	return bv.Verify()
}

// SignAggregate runs the full four-stage protocol in-process across every
// privkey in the Multikey aggregated over their public keys, useful for
// testing the protocol end to end the way tests.rs's helper harnesses do
// (real deployments run one stage per party across a network instead).
func SignAggregate(t *transcript.Transcript, privkeys []*secp256k1.ModNScalar) (*Signature, *Multikey, error) {
	pubkeys := make([]VerificationKey, len(privkeys))
	for i, x := range privkeys {
		pubkeys[i] = NewVerificationKeyFromPrivate(x)
	}
	multikey, err := NewMultikey(pubkeys)
	if err != nil {
		return nil, nil, err
	}

	signers := make([]*SignerAwaitingPrecommitments, len(privkeys))
	precommitments := make([]NoncePrecommitment, len(privkeys))
	for i, x := range privkeys {
		s, pre, err := NewSigner(t, i, x, multikey)
		if err != nil {
			return nil, nil, err
		}
		signers[i] = s
		precommitments[i] = pre
	}

	stage2 := make([]*SignerAwaitingCommitments, len(privkeys))
	commitments := make([]NonceCommitment, len(privkeys))
	for i, s := range signers {
		next, comm, err := s.ReceivePrecommitments(precommitments)
		if err != nil {
			return nil, nil, err
		}
		stage2[i] = next
		commitments[i] = comm
	}

	stage3 := make([]*SignerAwaitingShares, len(privkeys))
	shares := make([]*secp256k1.ModNScalar, len(privkeys))
	for i, s := range stage2 {
		next, share, err := s.ReceiveCommitments(commitments)
		if err != nil {
			return nil, nil, err
		}
		stage3[i] = next
		shares[i] = share
	}

	var sig *Signature
	for _, s := range stage3 {
		result, err := s.ReceiveShares(shares)
		if err != nil {
			return nil, nil, err
		}
		sig = result
	}

	return sig, multikey, nil
}
