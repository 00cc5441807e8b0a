package mempool

import (
	"testing"

	"github.com/cloakchain/zkvmnode/chain"
	"github.com/cloakchain/zkvmnode/pkg/contract"
	"github.com/cloakchain/zkvmnode/pkg/utreexo"
	"github.com/cloakchain/zkvmnode/state"
	"github.com/cloakchain/zkvmnode/ulogger"
	"github.com/cloakchain/zkvmnode/verify"
	"github.com/stretchr/testify/require"
)

func idFromByte(b byte) contract.ID {
	var id contract.ID
	id[0] = b
	return id
}

func spendTx(input contract.ID, proof utreexo.Proof, payload string) (chain.BlockTx, verify.TxLog) {
	tx := verify.Tx{Header: verify.TxHeader{Version: 1, LocktimeMs: 0}, Payload: []byte(payload)}
	log := verify.TxLog{{Kind: verify.EntryInput, ContractID: input}}
	return chain.BlockTx{Tx: tx, Proofs: []utreexo.Proof{proof}}, log
}

func TestMempoolRejectsOnceAtCapacity(t *testing.T) {
	a, b := idFromByte(1), idFromByte(2)
	initial, proofs := state.MakeInitial(1000, []contract.ID{a, b})
	proofA, proofB := proofs[0], proofs[1]

	verifier := verify.NewStaticVerifier()
	btA, logA := spendTx(a, proofA, "spend-a")
	btB, logB := spendTx(b, proofB, "spend-b")
	verifier.Register(btA.Tx, logA)
	verifier.Register(btB.Tx, logB)

	mp := New(initial, 1001, ulogger.Nop())
	mp.SetMaxEntries(1)

	_, err := mp.Append(btA, verifier, verify.VerifierGens{})
	require.NoError(t, err)

	_, err = mp.Append(btB, verifier, verify.VerifierGens{})
	require.Error(t, err)
	require.Len(t, mp.Entries(), 1)
}

// TestMempoolAdmitAndConfirm is the spec §8 e2e scenario: fill a mempool
// with two txs spending different outputs, apply a block that confirms
// one of them, and after UpdateState the remaining tx must still be in
// the mempool with a rewritten proof that verifies against the new utxo
// root.
func TestMempoolAdmitAndConfirm(t *testing.T) {
	a, b := idFromByte(1), idFromByte(2)
	initial, proofs := state.MakeInitial(1000, []contract.ID{a, b})
	proofA, proofB := proofs[0], proofs[1]

	verifier := verify.NewStaticVerifier()
	btA, logA := spendTx(a, proofA, "spend-a")
	btB, logB := spendTx(b, proofB, "spend-b")
	verifier.Register(btA.Tx, logA)
	verifier.Register(btB.Tx, logB)

	mp := New(initial, 1001, ulogger.Nop())
	_, err := mp.Append(btA, verifier, verify.VerifierGens{})
	require.NoError(t, err)
	_, err = mp.Append(btB, verifier, verify.VerifierGens{})
	require.NoError(t, err)
	require.Len(t, mp.Entries(), 2)

	// Confirm only tx A in a block.
	header := chain.BlockHeader{
		Version:     1,
		Height:      2,
		PrevID:      initial.Tip.ID(),
		TimestampMs: 1001,
	}
	scratch := initial.Utreexo.WorkForest()
	require.NoError(t, scratch.Delete(a, proofA))
	confirmedForest, _ := scratch.Normalize()
	header.UtxoRoot = confirmedForest.Root()
	header.TxRoot = chain.TxRoot([]chain.BlockTx{btA})

	nextState, catchup, verified, err := initial.ApplyBlock(header, []chain.BlockTx{btA}, verifier, verify.VerifierGens{}, nil)
	require.NoError(t, err)
	require.Len(t, verified, 1)

	mp.UpdateState(nextState, catchup, verifier, verify.VerifierGens{})

	entries := mp.Entries()
	require.Len(t, entries, 1)
	require.Equal(t, btB.Tx.ID(), entries[0].VerifiedTx.ID)

	// The surviving entry's rewritten proof must verify against the new root.
	rewrittenProof := entries[0].BlockTx.Proofs[0]
	require.Equal(t, utreexo.ProofCommitted, rewrittenProof.Kind)

	checkForest := nextState.Utreexo.WorkForest()
	require.NoError(t, checkForest.Delete(b, rewrittenProof))
}

// TestMempoolRebaseEquivalence is property 6: admitting T1..Tn then
// calling UpdateState(newState, catchup) yields the same surviving
// entries, in the same order, as applying newState first and then
// admitting T1..Tn from scratch.
func TestMempoolRebaseEquivalence(t *testing.T) {
	a, b, c := idFromByte(1), idFromByte(2), idFromByte(3)
	initial, proofs := state.MakeInitial(1000, []contract.ID{a, b, c})
	proofA, proofB, proofC := proofs[0], proofs[1], proofs[2]

	verifier := verify.NewStaticVerifier()
	btA, logA := spendTx(a, proofA, "a")
	btB, logB := spendTx(b, proofB, "b")
	verifier.Register(btA.Tx, logA)
	verifier.Register(btB.Tx, logB)

	// Path 1: admit A and B, then confirm a block spending C, then rebase.
	mp1 := New(initial, 1001, ulogger.Nop())
	_, err := mp1.Append(btA, verifier, verify.VerifierGens{})
	require.NoError(t, err)
	_, err = mp1.Append(btB, verifier, verify.VerifierGens{})
	require.NoError(t, err)

	btC, logC := spendTx(c, proofC, "c")
	verifier.Register(btC.Tx, logC)

	header := chain.BlockHeader{Version: 1, Height: 2, PrevID: initial.Tip.ID(), TimestampMs: 1001}
	scratch := initial.Utreexo.WorkForest()
	require.NoError(t, scratch.Delete(c, proofC))
	confirmedForest, _ := scratch.Normalize()
	header.UtxoRoot = confirmedForest.Root()
	header.TxRoot = chain.TxRoot([]chain.BlockTx{btC})

	nextState, catchup, _, err := initial.ApplyBlock(header, []chain.BlockTx{btC}, verifier, verify.VerifierGens{}, nil)
	require.NoError(t, err)

	mp1.UpdateState(nextState, catchup, verifier, verify.VerifierGens{})

	// Path 2: apply the same block first, then admit A and B from scratch
	// against the already-confirmed state — using proofs freshly valid
	// for that state, the way a client building a brand new tx against
	// the current tip would, not the stale pre-confirmation proofs.
	freshProofA, err := catchup.UpdateProof(a, proofA)
	require.NoError(t, err)
	freshProofB, err := catchup.UpdateProof(b, proofB)
	require.NoError(t, err)

	btAFresh := btA
	btAFresh.Proofs = []utreexo.Proof{freshProofA}
	btBFresh := btB
	btBFresh.Proofs = []utreexo.Proof{freshProofB}

	mp2 := New(nextState, 1001, ulogger.Nop())
	_, err = mp2.Append(btAFresh, verifier, verify.VerifierGens{})
	require.NoError(t, err)
	_, err = mp2.Append(btBFresh, verifier, verify.VerifierGens{})
	require.NoError(t, err)

	ids1 := entryIDs(mp1.Entries())
	ids2 := entryIDs(mp2.Entries())
	require.Equal(t, ids2, ids1)
}

func entryIDs(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.VerifiedTx.ID.String()
	}
	return out
}
