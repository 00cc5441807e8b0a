package utreexo

import (
	zerr "github.com/cloakchain/zkvmnode/errors"
	"github.com/cloakchain/zkvmnode/pkg/hash"
)

// Catchup is produced by Normalize: for every leaf that survived, it
// holds the leaf's freshly committed path, so a stale proof (Transient
// or an old Committed one) can be rewritten without re-scanning the
// forest (spec §3 "Catchup"). Unmoved leaves are included too, which is
// a harmless superset of the "only moved leaves" wording in §4.1 — it
// keeps UpdateProof a single uniform lookup regardless of whether a
// leaf's path actually changed.
type Catchup struct {
	byLeaf map[hash.Hash]Path
}

func newCatchup() *Catchup {
	return &Catchup{byLeaf: make(map[hash.Hash]Path)}
}

func (c *Catchup) record(leaf hash.Hash, p Path) {
	c.byLeaf[leaf] = p
}

// UpdateProof promotes a Transient proof or replays a Committed one
// against the catchup index, returning the item's current Committed
// path. It fails with ERR_UTREEXO_INVALID_PROOF when the item is not
// known to this catchup (e.g. it was deleted, or belongs to a different
// normalization round).
func (c *Catchup) UpdateProof(item MerkleItem, old Proof) (Proof, error) {
	leaf := leafHash(item)
	p, ok := c.byLeaf[leaf]
	if !ok {
		return Proof{}, zerr.New(zerr.ERR_UTREEXO_INVALID_PROOF,
			"item not known to catchup: %s", leaf)
	}
	return NewCommittedProof(p), nil
}
