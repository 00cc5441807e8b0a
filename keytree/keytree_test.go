package keytree

import (
	"bytes"
	"testing"

	"github.com/cloakchain/zkvmnode/pkg/transcript"
	"github.com/stretchr/testify/require"
)

func fixedXprv(t *testing.T) *Xprv {
	t.Helper()
	seed := bytes.Repeat([]byte{0x42}, 32)
	xprv, err := Random(bytes.NewReader(seed))
	require.NoError(t, err)
	return xprv
}

func TestRandomRejectsShortReader(t *testing.T) {
	_, err := Random(bytes.NewReader([]byte{1, 2, 3}))
	require.Error(t, err)
}

func TestDeriveIntermediateKeyIsDeterministic(t *testing.T) {
	xprv := fixedXprv(t)

	label := func(t *transcript.Transcript) { t.AppendU64("account", 7) }
	a := xprv.DeriveIntermediateKey(label)
	b := xprv.DeriveIntermediateKey(label)

	require.Equal(t, a.Scalar(), b.Scalar())
	require.Equal(t, a.Pubkey().SerializeCompressed(), b.Pubkey().SerializeCompressed())
}

func TestDeriveIntermediateAndLeafKeysDiffer(t *testing.T) {
	xprv := fixedXprv(t)
	label := func(t *transcript.Transcript) { t.AppendU64("account", 7) }

	intermediate := xprv.DeriveIntermediateKey(label)
	leaf := xprv.DeriveKey(label)

	require.NotEqual(t, intermediate.Scalar(), leaf.Scalar())
}

func TestKeyAtSequenceMatchesDerivedLeaf(t *testing.T) {
	xprv := fixedXprv(t)
	account := func(t *transcript.Transcript) { t.AppendU64("account", 1) }
	intermediate := xprv.DeriveIntermediateKey(account)
	xpub := intermediate.Pubkey()

	leaf := intermediate.DeriveKey(func(t *transcript.Transcript) { t.AppendU64("sequence", 7) })
	expected := leaf.Pubkey().SerializeCompressed()

	got := xpub.KeyAtSequence(7).SerializeCompressed()
	require.Equal(t, expected, got)
}

func TestKeyAtSequenceVariesWithSequence(t *testing.T) {
	xprv := fixedXprv(t)
	xpub := xprv.Pubkey()

	k1 := xpub.KeyAtSequence(1).SerializeCompressed()
	k2 := xpub.KeyAtSequence(2).SerializeCompressed()
	require.NotEqual(t, k1, k2)
}

// TestValueBlindingFactorsAreDeterministic matches the spec §8 scenario:
// the same (xpub, sequence, qty, flv) tuple always yields the same pair
// of blinding scalars, so a wallet never needs to store them.
func TestValueBlindingFactorsAreDeterministic(t *testing.T) {
	xprv := fixedXprv(t)
	xpub := xprv.Pubkey()
	flv := [32]byte{9}

	q1, f1 := xpub.ValueBlindingFactors(7, 100, flv)
	q2, f2 := xpub.ValueBlindingFactors(7, 100, flv)

	require.Equal(t, *q1, *q2)
	require.Equal(t, *f1, *f2)
	require.NotEqual(t, *q1, *f1)
}

func TestValueBlindingFactorsVaryWithInputs(t *testing.T) {
	xprv := fixedXprv(t)
	xpub := xprv.Pubkey()
	flv := [32]byte{9}

	q1, _ := xpub.ValueBlindingFactors(7, 100, flv)
	q2, _ := xpub.ValueBlindingFactors(7, 101, flv)
	require.NotEqual(t, *q1, *q2)

	q3, _ := xpub.ValueBlindingFactors(8, 100, flv)
	require.NotEqual(t, *q1, *q3)
}
