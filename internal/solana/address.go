package solana

import (
	"crypto/sha512"
	"fmt"

	"filippo.io/edwards25519"
	solanago "github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// PublicKeySize is the length of a Solana public key in bytes.
const PublicKeySize = 32

// ParseAddress validates a base58 Solana address and returns its canonical form.
func ParseAddress(s string) (string, error) {
	pk, err := solanago.PublicKeyFromBase58(s)
	if err != nil {
		return "", fmt.Errorf("invalid address %q: %w", s, err)
	}
	return pk.String(), nil
}

// EncodeAddress encodes raw key bytes as a base58 address.
func EncodeAddress(key []byte) string {
	return base58.Encode(key)
}

// WalletAddressFromSeed derives the ed25519 public key of a wallet keypair
// from its 32-byte seed and returns it base58 encoded. The result is always
// on the curve.
func WalletAddressFromSeed(seed []byte) (string, error) {
	if len(seed) != PublicKeySize {
		return "", fmt.Errorf("wallet seed must be %d bytes, got %d", PublicKeySize, len(seed))
	}
	h := sha512.Sum512(seed)
	s, err := edwards25519.NewScalar().SetBytesWithClamping(h[:32])
	if err != nil {
		return "", fmt.Errorf("clamp wallet scalar: %w", err)
	}
	return EncodeAddress(new(edwards25519.Point).ScalarBaseMult(s).Bytes()), nil
}

// IsOnCurve reports whether the address decodes to a point on the ed25519 curve.
// Wallet keys are on the curve; program derived addresses are not.
func IsOnCurve(address string) bool {
	raw, err := base58.Decode(address)
	if err != nil {
		return false
	}
	return isOnCurve(raw)
}

func isOnCurve(point []byte) bool {
	if len(point) != PublicKeySize {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}
