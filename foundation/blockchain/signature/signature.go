// Package signature provides helper functions for handling the blockchain
// signature needs.
package signature

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ardanlabs/nullchain/foundation/blockchain/digest"
)

// AddressPrefix marks a string as a chain address.
const AddressPrefix = "null1"

// Set of error variables for signing and addresses.
var (
	ErrInvalidSignatureLength = errors.New("invalid signature length")
	ErrInvalidPublicKey       = errors.New("invalid public key")
	ErrInvalidAddress         = errors.New("invalid address")
)

// =============================================================================

// GenerateKey creates a new ed25519 key pair.
func GenerateKey() (ed25519.PublicKey, ed25519.PrivateKey, error) {
	return ed25519.GenerateKey(rand.Reader)
}

// Sign uses the specified private key to sign the message.
func Sign(privateKey ed25519.PrivateKey, msg []byte) []byte {
	return ed25519.Sign(privateKey, msg)
}

// Verify reports whether sig is a valid signature of msg by the public key.
// Signatures that are not exactly 64 bytes never verify.
func Verify(publicKey []byte, msg []byte, sig []byte) bool {
	if len(publicKey) != ed25519.PublicKeySize || len(sig) != ed25519.SignatureSize {
		return false
	}

	return ed25519.Verify(publicKey, msg, sig)
}

// VerifySignature is Verify with an error describing why it failed.
func VerifySignature(publicKey []byte, msg []byte, sig []byte) error {
	if len(sig) != ed25519.SignatureSize {
		return fmt.Errorf("%w: got %d, exp %d", ErrInvalidSignatureLength, len(sig), ed25519.SignatureSize)
	}

	if len(publicKey) != ed25519.PublicKeySize {
		return fmt.Errorf("%w: got %d bytes", ErrInvalidPublicKey, len(publicKey))
	}

	if !ed25519.Verify(publicKey, msg, sig) {
		return errors.New("signature does not match")
	}

	return nil
}

// =============================================================================

// PubKeyHash is the 20 byte identity outputs are paid to.
type PubKeyHash [20]byte

// ToPubKeyHash returns the first 20 bytes of the hash of the public key.
func ToPubKeyHash(publicKey []byte) PubKeyHash {
	h := digest.Hash(publicKey)

	var pkh PubKeyHash
	copy(pkh[:], h[:len(pkh)])

	return pkh
}

// Address returns the printable address for the public key.
func Address(publicKey []byte) string {
	return ToPubKeyHash(publicKey).Address()
}

// Address returns the printable form of the hash.
func (pkh PubKeyHash) Address() string {
	return AddressPrefix + hex.EncodeToString(pkh[:])
}

// String implements the fmt.Stringer interface.
func (pkh PubKeyHash) String() string {
	return pkh.Address()
}

// MarshalText implements the encoding.TextMarshaler interface.
func (pkh PubKeyHash) MarshalText() ([]byte, error) {
	return []byte(pkh.Address()), nil
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (pkh *PubKeyHash) UnmarshalText(text []byte) error {
	v, err := ParseAddress(string(text))
	if err != nil {
		return err
	}

	*pkh = v
	return nil
}

// ParseAddress converts a printable address back into its hash.
func ParseAddress(address string) (PubKeyHash, error) {
	if !strings.HasPrefix(address, AddressPrefix) {
		return PubKeyHash{}, fmt.Errorf("%w: missing %q prefix", ErrInvalidAddress, AddressPrefix)
	}

	b, err := hex.DecodeString(address[len(AddressPrefix):])
	if err != nil {
		return PubKeyHash{}, fmt.Errorf("%w: %s", ErrInvalidAddress, err)
	}

	var pkh PubKeyHash
	if len(b) != len(pkh) {
		return PubKeyHash{}, fmt.Errorf("%w: got %d bytes, exp %d", ErrInvalidAddress, len(b), len(pkh))
	}
	copy(pkh[:], b)

	return pkh, nil
}
