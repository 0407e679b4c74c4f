// Package digest provides the fixed size hash value used to identify blocks,
// transactions and merkle nodes, along with the hashing functions of the chain.
package digest

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"lukechampine.com/blake3"
)

// Size is the number of bytes in a digest.
const Size = 32

// Set of error variables for decoding digests.
var (
	ErrInvalidLength = errors.New("invalid digest length")
	ErrInvalidHex    = errors.New("invalid digest hex")
)

// Digest represents a 32 byte cryptographic hash.
type Digest [Size]byte

// Zero is the all zero digest. It is used when there is no previous block
// and when there is nothing to commit to.
var Zero Digest

// =============================================================================

// Hash applies the chain hash function once.
func Hash(data []byte) Digest {
	return blake3.Sum256(data)
}

// DoubleHash applies the chain hash function to the result of hashing the
// data. Proof of work is measured against this value.
func DoubleHash(data []byte) Digest {
	first := blake3.Sum256(data)
	return blake3.Sum256(first[:])
}

// HashPair hashes the concatenation of a and b. This is how two merkle
// nodes are combined into their parent.
func HashPair(a, b Digest) Digest {
	var buf [Size * 2]byte
	copy(buf[:Size], a[:])
	copy(buf[Size:], b[:])

	return blake3.Sum256(buf[:])
}

// =============================================================================

// FromBytes constructs a digest from a byte slice that must be exactly
// Size bytes long.
func FromBytes(b []byte) (Digest, error) {
	if len(b) != Size {
		return Zero, fmt.Errorf("%w: got %d, exp %d", ErrInvalidLength, len(b), Size)
	}

	var d Digest
	copy(d[:], b)

	return d, nil
}

// FromHex decodes a hex string with an optional 0x prefix into a digest.
func FromHex(s string) (Digest, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s) != Size*2 {
		return Zero, fmt.Errorf("%w: got %d hex chars, exp %d", ErrInvalidLength, len(s), Size*2)
	}

	b, err := hex.DecodeString(s)
	if err != nil {
		return Zero, fmt.Errorf("%w: %s", ErrInvalidHex, err)
	}

	return FromBytes(b)
}

// String returns the canonical lowercase hex form of the digest.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// Bytes returns a copy of the digest as a byte slice.
func (d Digest) Bytes() []byte {
	b := make([]byte, Size)
	copy(b, d[:])
	return b
}

// IsZero reports whether the digest is the zero sentinel.
func (d Digest) IsZero() bool {
	return d == Zero
}

// Compare compares the two digests as big-endian unsigned integers. The
// result is -1 if d < other, 0 if equal and +1 if d > other.
func (d Digest) Compare(other Digest) int {
	return bytes.Compare(d[:], other[:])
}

// Hash returns the digest itself so a digest can be used as a merkle leaf.
func (d Digest) Hash() Digest {
	return d
}

// Equals reports byte-wise equality.
func (d Digest) Equals(other Digest) bool {
	return d == other
}

// MarshalText implements the encoding.TextMarshaler interface.
func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (d *Digest) UnmarshalText(text []byte) error {
	v, err := FromHex(string(text))
	if err != nil {
		return err
	}

	*d = v
	return nil
}
