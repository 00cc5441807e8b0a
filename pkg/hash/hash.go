// Package hash defines the 32-byte digest type shared by every module:
// leaf hashes, node hashes, block ids, witness hashes, and receiver ids
// (spec §3 "Hash"). The array-backed type with hex Stringer mirrors
// github.com/libsv/go-bt/v2/chainhash.Hash's conventions, the closest
// analogue available in the retrieved pack.
package hash

import (
	"encoding/hex"
	"fmt"
)

// Size is the digest length in bytes.
const Size = 32

// Hash is a fixed-size 32-byte digest.
type Hash [Size]byte

// Zero is the all-zero hash, used as the Merkle forest's "no root" value
// and as the genesis block's PrevID.
var Zero = Hash{}

// String renders the hash as lowercase hex, most-significant byte first,
// matching chainhash.Hash.String's convention (no byte-reversal is
// performed, unlike Bitcoin's display-endianness quirk: this format has
// no legacy wire compatibility to preserve).
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Bytes returns a copy of the underlying bytes.
func (h Hash) Bytes() []byte {
	out := make([]byte, Size)
	copy(out, h[:])
	return out
}

// IsZero reports whether h is the all-zero hash.
func (h Hash) IsZero() bool {
	return h == Zero
}

// Equal reports whether h and other hold the same bytes.
func (h Hash) Equal(other Hash) bool {
	return h == other
}

// FromBytes builds a Hash from a byte slice, which must be exactly Size
// bytes long.
func FromBytes(b []byte) (Hash, error) {
	var h Hash
	if len(b) != Size {
		return h, fmt.Errorf("hash: expected %d bytes, got %d", Size, len(b))
	}
	copy(h[:], b)
	return h, nil
}

// FromHex decodes a hex string into a Hash.
func FromHex(s string) (Hash, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Hash{}, fmt.Errorf("hash: invalid hex: %w", err)
	}
	return FromBytes(b)
}

// MarshalText implements encoding.TextMarshaler so Hash can appear
// directly in TOML/JSON-backed config and logging.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Hash) UnmarshalText(text []byte) error {
	decoded, err := FromHex(string(text))
	if err != nil {
		return err
	}
	*h = decoded
	return nil
}
