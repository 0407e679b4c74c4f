package signature

import (
	"crypto/cipher"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// Names of the files written by SaveKeyPair.
const (
	PublicKeyFile  = "key.pub"
	PrivateKeyFile = "key.enc"
)

const saltSize = 16

// ErrWrongPassphrase is returned when the key file can't be opened.
var ErrWrongPassphrase = errors.New("wrong passphrase or corrupted key file")

// SaveKeyPair writes the public key in the clear and the private key seed
// encrypted under the passphrase into the specified directory.
//
//	key.pub: hex(public key)
//	key.enc: hex(salt || nonce || ciphertext)
func SaveKeyPair(dir string, privateKey ed25519.PrivateKey, passphrase []byte) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating key dir: %w", err)
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return err
	}

	aead, err := getAEAD(passphrase, salt)
	if err != nil {
		return err
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+ed25519.SeedSize+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return err
	}

	sealed := aead.Seal(nonce, nonce, privateKey.Seed(), nil)
	blob := append(salt, sealed...)

	pub := privateKey.Public().(ed25519.PublicKey)
	if err := os.WriteFile(filepath.Join(dir, PublicKeyFile), []byte(hexutil.Encode(pub)+"\n"), 0o644); err != nil {
		return fmt.Errorf("writing public key: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, PrivateKeyFile), []byte(hexutil.Encode(blob)+"\n"), 0o600); err != nil {
		return fmt.Errorf("writing private key: %w", err)
	}

	return nil
}

// LoadPrivateKey decrypts the private key stored in the specified directory.
func LoadPrivateKey(dir string, passphrase []byte) (ed25519.PrivateKey, error) {
	blob, err := readHexFile(filepath.Join(dir, PrivateKeyFile))
	if err != nil {
		return nil, err
	}

	if len(blob) < saltSize {
		return nil, ErrWrongPassphrase
	}

	aead, err := getAEAD(passphrase, blob[:saltSize])
	if err != nil {
		return nil, err
	}

	sealed := blob[saltSize:]
	if len(sealed) < aead.NonceSize() {
		return nil, ErrWrongPassphrase
	}

	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]

	seed, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil || len(seed) != ed25519.SeedSize {
		return nil, ErrWrongPassphrase
	}

	return ed25519.NewKeyFromSeed(seed), nil
}

// LoadPublicKey reads a public key file written by SaveKeyPair.
func LoadPublicKey(path string) (ed25519.PublicKey, error) {
	b, err := readHexFile(path)
	if err != nil {
		return nil, err
	}

	if len(b) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidPublicKey, len(b))
	}

	return ed25519.PublicKey(b), nil
}

// =============================================================================

// getAEAD derives the file key from the passphrase. The argon2 parameters
// are part of the file format and must not change.
func getAEAD(passphrase, salt []byte) (cipher.AEAD, error) {
	key := argon2.IDKey(passphrase, salt, 1, 64*1024, 4, chacha20poly1305.KeySize)
	return chacha20poly1305.NewX(key)
}

func readHexFile(path string) ([]byte, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	b, err := hexutil.Decode(strings.TrimSpace(string(content)))
	if err != nil {
		return nil, fmt.Errorf("decoding %q: %w", path, err)
	}

	return b, nil
}
