package utreexo

import (
	"testing"

	"github.com/cloakchain/zkvmnode/pkg/hash"
	"github.com/cloakchain/zkvmnode/pkg/transcript"
	"github.com/stretchr/testify/require"
)

// testItem is the minimal MerkleItem used by this package's own tests:
// a 32-byte identifier that commits itself verbatim.
type testItem hash.Hash

func (ti testItem) Commit(t *transcript.Transcript) {
	t.AppendMessage("item", hash.Hash(ti).Bytes())
}

func H(s string) testItem {
	tr := transcript.New("test-vector")
	tr.AppendMessage("s", []byte(s))
	return testItem(tr.Hash32("out"))
}

// naiveMerkleRoot builds the same tree Forest.Root()/normalize would for
// a power-of-two-sized, fully-present leaf set, used as the independent
// oracle for property 1.
func naiveMerkleRoot(items []testItem) hash.Hash {
	level := make([]hash.Hash, len(items))
	for i, it := range items {
		level[i] = leafHash(it)
	}
	for len(level) > 1 {
		next := make([]hash.Hash, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next[i/2] = nodeHash(level[i], level[i+1])
		}
		level = next
	}
	return level[0]
}

func insertAll(t *testing.T, wf *WorkForest, items []testItem) map[testItem]Proof {
	t.Helper()
	proofs := make(map[testItem]Proof, len(items))
	for _, it := range items {
		proofs[it] = wf.Insert(it)
	}
	return proofs
}

// TestEndToEndScenario mirrors the spec's concrete worked example:
// insert 5 contracts, normalize, delete one with its catchup-updated
// proof, normalize again, and compare against a naive Merkle root.
func TestEndToEndScenario(t *testing.T) {
	items := []testItem{H("a"), H("b"), H("c"), H("d"), H("e")}

	f := Empty()
	wf := f.WorkForest()
	proofs := insertAll(t, wf, items)

	forest1, catchup1 := wf.Normalize()
	require.EqualValues(t, 5, forest1.Count())

	updatedC, err := catchup1.UpdateProof(items[2], proofs[items[2]])
	require.NoError(t, err)
	require.Equal(t, ProofCommitted, updatedC.Kind)

	wf2 := forest1.WorkForest()
	require.NoError(t, wf2.Delete(items[2], updatedC))

	forest2, _ := wf2.Normalize()
	require.EqualValues(t, 4, forest2.Count())

	want := naiveMerkleRoot([]testItem{items[0], items[1], items[3], items[4]})
	require.Equal(t, want, forest2.Root())
}

// TestAccumulatorRoundTrip is property 1 for a power-of-two survivor
// count: normalize yields a single root, which must coincide with the
// naive Merkle tree built over the same leaves.
func TestAccumulatorRoundTrip(t *testing.T) {
	items := []testItem{H("1"), H("2"), H("3"), H("4")}

	f := Empty()
	wf := f.WorkForest()
	insertAll(t, wf, items)

	forest, _ := wf.Normalize()
	require.Equal(t, naiveMerkleRoot(items), forest.Root())
}

// TestProofSoundness is property 2.
func TestProofSoundness(t *testing.T) {
	items := []testItem{H("x"), H("y"), H("z"), H("w")}

	f := Empty()
	wf := f.WorkForest()
	insertAll(t, wf, items)
	forest, catchup := wf.Normalize()

	for _, it := range items {
		p, err := catchup.UpdateProof(it, NewTransientProof())
		require.NoError(t, err)
		require.Equal(t, ProofCommitted, p.Kind)

		// Replay the path independently and confirm it reaches the root.
		cur := leafHash(it)
		for i, sib := range p.Path.Neighbors {
			if (p.Path.Position>>uint(i))&1 == 0 {
				cur = nodeHash(cur, sib)
			} else {
				cur = nodeHash(sib, cur)
			}
		}
		require.Equal(t, forest.Root(), cur)
	}
}

// TestProofNonMalleability is property 3.
func TestProofNonMalleability(t *testing.T) {
	items := []testItem{H("p"), H("q"), H("r"), H("s")}

	f := Empty()
	wf := f.WorkForest()
	insertAll(t, wf, items)
	forest, catchup := wf.Normalize()

	proofP, err := catchup.UpdateProof(items[0], NewTransientProof())
	require.NoError(t, err)

	wf2 := forest.WorkForest()
	err = wf2.Delete(items[1], proofP) // wrong item for this proof
	require.Error(t, err)

	// The proof does work for its own item...
	wf3 := forest.WorkForest()
	require.NoError(t, wf3.Delete(items[0], proofP))
	// ...but not a second time.
	err = wf3.Delete(items[0], proofP)
	require.Error(t, err)
}

// TestBatchAtomicity is property 4.
func TestBatchAtomicity(t *testing.T) {
	items := []testItem{H("m"), H("n")}

	f := Empty()
	wf := f.WorkForest()
	insertAll(t, wf, items)
	forest, catchup := wf.Normalize()

	before := forest.Root()
	beforeCount := forest.Count()

	wf2 := forest.WorkForest()
	p0, err := catchup.UpdateProof(items[0], NewTransientProof())
	require.NoError(t, err)

	batchErr := wf2.Batch(func() error {
		if err := wf2.Delete(items[0], p0); err != nil {
			return err
		}
		// Force a failure after a real mutation happened.
		return wf2.Delete(items[0], p0)
	})
	require.Error(t, batchErr)

	after, _ := wf2.Normalize()
	require.Equal(t, before, after.Root())
	require.Equal(t, beforeCount, after.Count())
}

// TestForestMarshalBinaryRoundTrip is the persisted-state property for the
// accumulator half of BlockchainState (spec §6): a forest rebuilt by
// Normalize after a delete must survive marshal/unmarshal with its root
// hash, leaf count, and proof-serving ability intact.
func TestForestMarshalBinaryRoundTrip(t *testing.T) {
	items := []testItem{H("a"), H("b"), H("c")}

	f := Empty()
	wf := f.WorkForest()
	proofs := insertAll(t, wf, items)
	forest, catchup := wf.Normalize()

	updatedB, err := catchup.UpdateProof(items[1], proofs[items[1]])
	require.NoError(t, err)

	wf2 := forest.WorkForest()
	require.NoError(t, wf2.Delete(items[1], updatedB))
	forest, catchup2 := wf2.Normalize()

	data, err := forest.MarshalBinary()
	require.NoError(t, err)

	var restored Forest
	require.NoError(t, restored.UnmarshalBinary(data))

	require.Equal(t, forest.Root(), restored.Root())
	require.Equal(t, forest.Count(), restored.Count())

	reEncoded, err := restored.MarshalBinary()
	require.NoError(t, err)
	require.Equal(t, data, reEncoded)

	// The restored forest must still serve real deletes, not just report
	// the right root.
	proofA, err := catchup2.UpdateProof(items[0], proofs[items[0]])
	require.NoError(t, err)
	wf3 := restored.WorkForest()
	require.NoError(t, wf3.Delete(items[0], proofA))
}

func TestForestUnmarshalBinaryRejectsTrailingBytes(t *testing.T) {
	f := Empty()
	wf := f.WorkForest()
	insertAll(t, wf, []testItem{H("x")})
	forest, _ := wf.Normalize()

	data, err := forest.MarshalBinary()
	require.NoError(t, err)

	var restored Forest
	err = restored.UnmarshalBinary(append(data, 0xFF))
	require.Error(t, err)
}

// TestInsertIsTransientUntilNormalized checks the Transient/Committed
// proof lifecycle described in spec §6.
func TestInsertIsTransientUntilNormalized(t *testing.T) {
	f := Empty()
	wf := f.WorkForest()
	p := wf.Insert(H("fresh"))
	require.True(t, p.IsTransient())

	require.NoError(t, wf.Delete(H("fresh"), p))
}
