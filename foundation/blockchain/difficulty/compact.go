// Package difficulty provides the compact difficulty codec and the periodic
// difficulty adjustment used by the proof of work engine.
package difficulty

import (
	"errors"
	"fmt"
	"math"

	"github.com/ardanlabs/nullchain/foundation/blockchain/digest"
	emath "github.com/ethereum/go-ethereum/common/math"
	"github.com/holiman/uint256"
)

// Limits of the compact representation.
const (
	MaxMantissa = 0x00FFFFFF
	MaxExponent = 31
)

// Set of error variables for the compact codec.
var (
	ErrExponentOverflow = errors.New("compact exponent overflow")
	ErrMantissaOverflow = errors.New("compact mantissa overflow")
	ErrInvalidBits      = errors.New("invalid bits value")
)

// Compact is the structured form of the packed 32 bit "bits" value. The
// exponent is the high byte and the mantissa is the low 24 bits.
type Compact struct {
	Exponent uint8
	Mantissa uint32
}

// FromBits splits a packed bits value into its exponent and mantissa.
func FromBits(bits uint32) Compact {
	return Compact{
		Exponent: uint8(bits >> 24),
		Mantissa: bits & MaxMantissa,
	}
}

// NewCompact constructs a compact value, validating both fields.
func NewCompact(exponent uint8, mantissa uint32) (Compact, error) {
	if exponent > MaxExponent {
		return Compact{}, fmt.Errorf("%w: exponent %d", ErrExponentOverflow, exponent)
	}

	if mantissa > MaxMantissa {
		return Compact{}, fmt.Errorf("%w: mantissa %#x", ErrMantissaOverflow, mantissa)
	}

	return Compact{Exponent: exponent, Mantissa: mantissa}, nil
}

// Bits packs the compact value back into its 32 bit form.
func (c Compact) Bits() uint32 {
	return uint32(c.Exponent)<<24 | c.Mantissa&MaxMantissa
}

// String implements the fmt.Stringer interface.
func (c Compact) String() string {
	return fmt.Sprintf("0x%08x", c.Bits())
}

// Target expands the compact value into the 256 bit target it represents.
//
//	exponent <= 3:  the low `exponent` bytes of the mantissa
//	exponent <= 31: mantissa * 256^(exponent-3)
//
// Exponents of 32 and above do not fit the 32 byte target and are rejected.
func (c Compact) Target() (*uint256.Int, error) {
	if c.Exponent > MaxExponent {
		return nil, fmt.Errorf("%w: exponent %d", ErrExponentOverflow, c.Exponent)
	}

	mantissa := uint64(c.Mantissa & MaxMantissa)

	if c.Exponent <= 3 {
		mask := uint64(1)<<(8*uint(c.Exponent)) - 1
		return uint256.NewInt(mantissa & mask), nil
	}

	target := uint256.NewInt(mantissa)
	return target.Lsh(target, 8*uint(c.Exponent-3)), nil
}

// =============================================================================

// BitsToTarget expands packed bits into a target digest. The digest is the
// big-endian form of the target, byte 0 most significant.
func BitsToTarget(bits uint32) (digest.Digest, error) {
	target, err := FromBits(bits).Target()
	if err != nil {
		return digest.Zero, err
	}

	return target.Bytes32(), nil
}

// TargetToBits compresses a target digest into packed bits. The result is
// normalised: the exponent is the byte length of the target, so precision
// below the three most significant bytes is dropped.
func TargetToBits(target digest.Digest) (uint32, error) {
	var v uint256.Int
	v.SetBytes32(target[:])

	n := uint((v.BitLen() + 7) / 8)

	if n <= 3 {
		return Compact{Exponent: uint8(n), Mantissa: uint32(v.Uint64())}.Bits(), nil
	}

	if n > MaxExponent {
		return 0, fmt.Errorf("%w: target needs exponent %d", ErrExponentOverflow, n)
	}

	v.Rsh(&v, 8*(n-3))
	return Compact{Exponent: uint8(n), Mantissa: uint32(v.Uint64())}.Bits(), nil
}

// HashMeetsTarget reports whether the hash, read as a big-endian 256 bit
// unsigned integer, is less than or equal to the target.
func HashMeetsTarget(hash digest.Digest, target digest.Digest) bool {
	return hash.Compare(target) <= 0
}

// ParseBits parses a bits value given in hex (0x prefix) or decimal.
func ParseBits(s string) (uint32, error) {
	v, ok := emath.ParseUint64(s)
	if s == "" || !ok || v > math.MaxUint32 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidBits, s)
	}

	return uint32(v), nil
}
