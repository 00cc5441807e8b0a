package utreexo

import "github.com/cloakchain/zkvmnode/pkg/hash"

// Path is a committed inclusion proof: a leaf-to-root run of sibling
// hashes plus a bit-indexed position selecting left (0) or right (1) at
// each level, in-order (spec §3 "Proof").
type Path struct {
	Position  uint64
	Neighbors []hash.Hash
}

// Depth is the number of levels the path climbs, i.e. the level of the
// root it proves membership under.
func (p Path) Depth() int {
	return len(p.Neighbors)
}

// ProofKind distinguishes a Transient placeholder from a Committed path.
type ProofKind uint8

const (
	ProofTransient ProofKind = iota
	ProofCommitted
)

// Proof is either Transient (a leaf inserted this batch but not yet
// normalized — no path exists yet) or Committed around a Path.
type Proof struct {
	Kind ProofKind
	Path Path
}

// NewTransientProof returns the placeholder proof for a freshly inserted,
// not-yet-normalized leaf.
func NewTransientProof() Proof {
	return Proof{Kind: ProofTransient}
}

// NewCommittedProof wraps a Path as a Committed proof.
func NewCommittedProof(p Path) Proof {
	return Proof{Kind: ProofCommitted, Path: p}
}

// IsTransient reports whether p has not yet been rewritten against a
// normalized forest. Per spec §6, a Transient proof must never be
// relayed in a block.
func (p Proof) IsTransient() bool {
	return p.Kind == ProofTransient
}
