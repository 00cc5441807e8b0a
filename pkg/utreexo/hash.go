package utreexo

import (
	"github.com/cloakchain/zkvmnode/pkg/hash"
	"github.com/cloakchain/zkvmnode/pkg/transcript"
)

// MerkleItem is any value that can commit itself into a transcript to
// yield a leaf hash (spec §3). ContractID (pkg/contract) is the only
// implementer this module ships, but the accumulator itself is generic
// over it.
type MerkleItem interface {
	Commit(t *transcript.Transcript)
}

// label is the top-level domain-separator shared by every hash the
// accumulator produces, so that a leaf, node, or forest-root hash from
// this system can never collide with a hash from an unrelated transcript
// use (block ids, receiver ids, ...).
const label = "ZkVM.utreexo"

func leafHash(item MerkleItem) hash.Hash {
	t := transcript.New(label)
	item.Commit(t)
	return hash.Hash(t.Hash32("merkle.leaf"))
}

func nodeHash(left, right hash.Hash) hash.Hash {
	t := transcript.New(label)
	t.AppendMessage("L", left.Bytes())
	t.AppendMessage("R", right.Bytes())
	return hash.Hash(t.Hash32("merkle.node"))
}
