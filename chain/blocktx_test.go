package chain

import (
	"testing"

	"github.com/cloakchain/zkvmnode/pkg/hash"
	"github.com/cloakchain/zkvmnode/pkg/utreexo"
	"github.com/cloakchain/zkvmnode/verify"
	"github.com/stretchr/testify/require"
)

func sampleBlockTx() BlockTx {
	return BlockTx{
		Tx: verify.Tx{
			Header:  verify.TxHeader{Version: 1, LocktimeMs: 500},
			Payload: []byte("opaque-tx-body"),
		},
		Proofs: []utreexo.Proof{
			utreexo.NewCommittedProof(utreexo.Path{
				Position:  3,
				Neighbors: []hash.Hash{{1}, {2}, {3}},
			}),
			utreexo.NewCommittedProof(utreexo.Path{
				Position:  0,
				Neighbors: []hash.Hash{{9}},
			}),
		},
	}
}

// TestEncodeDecodeBlockTxRoundTrip is the spec §8 scenario: encode a
// BlockTx with two Committed proofs, decode, re-encode: byte-identical.
func TestEncodeDecodeBlockTxRoundTrip(t *testing.T) {
	bt := sampleBlockTx()

	encoded := EncodeBlockTx(bt)
	decoded, err := DecodeBlockTx(encoded)
	require.NoError(t, err)

	reEncoded := EncodeBlockTx(decoded)
	require.Equal(t, encoded, reEncoded)
}

func TestDecodeBlockTxRejectsTrailingBytes(t *testing.T) {
	encoded := EncodeBlockTx(sampleBlockTx())
	_, err := DecodeBlockTx(append(encoded, 0xFF))
	require.Error(t, err)
}

func TestDecodeBlockTxRejectsTruncatedInput(t *testing.T) {
	encoded := EncodeBlockTx(sampleBlockTx())
	_, err := DecodeBlockTx(encoded[:len(encoded)-1])
	require.Error(t, err)
}

func TestTxRootEmptyIsZero(t *testing.T) {
	require.Equal(t, hash.Zero, TxRoot(nil))
}

func TestTxRootChangesWithWitness(t *testing.T) {
	a := sampleBlockTx()
	b := sampleBlockTx()
	b.Proofs = b.Proofs[:1]

	require.NotEqual(t, TxRoot([]BlockTx{a}), TxRoot([]BlockTx{b}))
}
