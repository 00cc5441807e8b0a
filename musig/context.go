package musig

import (
	zerr "github.com/cloakchain/zkvmnode/errors"
	"github.com/cloakchain/zkvmnode/pkg/transcript"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// Context is the aggregation strategy shared by Multikey and
// Multimessage: it commits itself to a transcript and derives a
// per-party challenge scalar (spec §4.6).
type Context interface {
	Commit(t *transcript.Transcript)
	Challenge(index int, t *transcript.Transcript) *secp256k1.ModNScalar
	Len() int
	Key(index int) VerificationKey
}

// Multikey aggregates N pubkeys into one via a_i = H(L, i),
// aggregated_key = Σ a_i·X_i, so a single Schnorr signature over the
// aggregated key co-signs on behalf of every party (grounded on
// context.rs's Multikey).
type Multikey struct {
	prf           *transcript.Transcript // nil for the single-key special case
	aggregatedKey VerificationKey
	publicKeys    []VerificationKey
}

// NewMultikey aggregates pubkeys. A single key is returned unmodified,
// without a delinearization factor, matching the original's special case.
func NewMultikey(pubkeys []VerificationKey) (*Multikey, error) {
	if len(pubkeys) == 0 {
		return nil, zerr.New(zerr.ERR_MUSIG_BAD_ARGUMENTS, "multikey requires at least one pubkey")
	}
	if len(pubkeys) == 1 {
		return &Multikey{aggregatedKey: pubkeys[0], publicKeys: pubkeys}, nil
	}

	prf := transcript.New("Musig.aggregated-key")
	prf.AppendU64("n", uint64(len(pubkeys)))
	for _, X := range pubkeys {
		X.commit(prf, "X")
	}

	var aggregated *secp256k1.PublicKey
	for i, X := range pubkeys {
		a := multikeyFactor(prf, i)
		var j secp256k1.JacobianPoint
		X.Point().AsJacobian(&j)
		var scaled secp256k1.JacobianPoint
		secp256k1.ScalarMultNonConst(a, &j, &scaled)
		scaled.ToAffine()
		term := secp256k1.NewPublicKey(&scaled.X, &scaled.Y)
		if aggregated == nil {
			aggregated = term
		} else {
			aggregated = addPoints(aggregated, term)
		}
	}

	return &Multikey{
		prf:           prf,
		aggregatedKey: newVerificationKey(aggregated),
		publicKeys:    pubkeys,
	}, nil
}

// multikeyFactor computes a_i = H(<L>, i) from a clone of prf so
// repeated calls at the same base state always agree.
func multikeyFactor(prf *transcript.Transcript, i int) *secp256k1.ModNScalar {
	clone := prf.Clone()
	clone.AppendU64("i", uint64(i))
	return clone.ChallengeScalar("a_i")
}

// FactorForKey returns a_i for the i-th key, e.g. for a signer to scale
// its own share contribution.
func (mk *Multikey) FactorForKey(index int) *secp256k1.ModNScalar {
	if mk.prf == nil {
		one := new(secp256k1.ModNScalar)
		one.SetInt(1)
		return one
	}
	return multikeyFactor(mk.prf, index)
}

// AggregatedKey returns the combined public key.
func (mk *Multikey) AggregatedKey() VerificationKey { return mk.aggregatedKey }

func (mk *Multikey) Commit(t *transcript.Transcript) {
	t.AppendMessage("dom-sep", []byte("starsig v1"))
	mk.aggregatedKey.commit(t, "X")
}

func (mk *Multikey) Challenge(index int, t *transcript.Transcript) *secp256k1.ModNScalar {
	c := t.ChallengeScalar("c")
	a := mk.FactorForKey(index)
	var result secp256k1.ModNScalar
	result.Mul2(c, a)
	return &result
}

func (mk *Multikey) Len() int { return len(mk.publicKeys) }

func (mk *Multikey) Key(index int) VerificationKey { return mk.publicKeys[index] }

// Multimessage aggregates distinct (key, message) pairs into one
// signature, each party's challenge folding in the full commitment to
// every pair plus its own index (grounded on context.rs's Multimessage).
type Multimessage struct {
	keys     []VerificationKey
	messages [][]byte
}

// NewMultimessage pairs keys[i] with messages[i].
func NewMultimessage(keys []VerificationKey, messages [][]byte) (*Multimessage, error) {
	if len(keys) != len(messages) || len(keys) == 0 {
		return nil, zerr.New(zerr.ERR_MUSIG_BAD_ARGUMENTS, "multimessage requires matching non-empty key/message slices")
	}
	return &Multimessage{keys: keys, messages: messages}, nil
}

func (mm *Multimessage) Commit(t *transcript.Transcript) {
	t.AppendMessage("dom-sep", []byte("Musig.multimessage"))
	t.AppendU64("n", uint64(len(mm.keys)))
	for i, k := range mm.keys {
		k.commit(t, "X")
		t.AppendMessage("m", mm.messages[i])
	}
}

func (mm *Multimessage) Challenge(index int, t *transcript.Transcript) *secp256k1.ModNScalar {
	clone := t.Clone()
	clone.AppendU64("i", uint64(index))
	return clone.ChallengeScalar("c")
}

func (mm *Multimessage) Len() int { return len(mm.keys) }

func (mm *Multimessage) Key(index int) VerificationKey { return mm.keys[index] }
