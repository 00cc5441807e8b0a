package musig

import (
	"crypto/rand"
	"io"

	zerr "github.com/cloakchain/zkvmnode/errors"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// BatchVerifier accumulates `(basepoint_scalar, dynamic_scalars,
// dynamic_points)` equations and checks them with a single multi-scalar
// multiplication, each equation scaled by an independent random weight
// so individual equations cannot cancel each other out (grounded on
// starsig/src/batch.rs's BatchVerifier/BatchVerification).
type BatchVerifier struct {
	basepointScalar secp256k1.ModNScalar
	weights         []secp256k1.ModNScalar
	points          []*secp256k1.PublicKey
	err             error
}

// NewBatchVerifier returns an empty verifier.
func NewBatchVerifier() *BatchVerifier {
	return &BatchVerifier{}
}

// Append adds one verification equation: `basepointScalar·G +
// Σ dynamicScalars[i]·dynamicPoints[i]` must equal the identity once
// every appended equation is summed. A nil entry in dynamicPoints marks
// a point that failed to decompress, which fails the whole batch.
func (bv *BatchVerifier) Append(basepointScalar *secp256k1.ModNScalar, dynamicScalars []*secp256k1.ModNScalar, dynamicPoints []*secp256k1.PublicKey) {
	if bv.err != nil {
		return
	}
	if len(dynamicScalars) != len(dynamicPoints) {
		bv.err = zerr.New(zerr.ERR_MUSIG_BAD_ARGUMENTS, "batch equation has %d scalars but %d points", len(dynamicScalars), len(dynamicPoints))
		return
	}

	r := randomScalar()

	var scaled secp256k1.ModNScalar
	scaled.Mul2(basepointScalar, r)
	bv.basepointScalar.Add(&scaled)

	for i, s := range dynamicScalars {
		if dynamicPoints[i] == nil {
			bv.err = zerr.New(zerr.ERR_MUSIG_INVALID_POINT, "batch equation references an undecodable point")
			return
		}
		var weighted secp256k1.ModNScalar
		weighted.Mul2(s, r)
		bv.weights = append(bv.weights, weighted)
		bv.points = append(bv.points, dynamicPoints[i])
	}
}

// Verify performs the accumulated multi-scalar multiplication and
// checks the result is the identity point.
func (bv *BatchVerifier) Verify() error {
	if bv.err != nil {
		return bv.err
	}

	var total secp256k1.JacobianPoint // identity

	var basepointTerm secp256k1.JacobianPoint
	secp256k1.ScalarBaseMultNonConst(&bv.basepointScalar, &basepointTerm)
	secp256k1.AddNonConst(&total, &basepointTerm, &total)

	for i, w := range bv.weights {
		var p secp256k1.JacobianPoint
		bv.points[i].AsJacobian(&p)
		var term secp256k1.JacobianPoint
		secp256k1.ScalarMultNonConst(&w, &p, &term)
		secp256k1.AddNonConst(&total, &term, &total)
	}

	if !total.Z.IsZero() {
		return zerr.New(zerr.ERR_MUSIG_SHARE_MISMATCH, "batch verification failed")
	}
	return nil
}

func randomScalar() *secp256k1.ModNScalar {
	for {
		var buf [32]byte
		if _, err := io.ReadFull(rand.Reader, buf[:]); err != nil {
			panic(err) // crypto/rand failing is unrecoverable
		}
		var s secp256k1.ModNScalar
		overflow := s.SetBytes(&buf)
		if overflow == 0 && !s.IsZero() {
			return &s
		}
	}
}
