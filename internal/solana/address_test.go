package solana

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddress(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"token program", TokenProgramID, false},
		{"empty", "", true},
		{"not base58", "0OIl-not-an-address", true},
		{"too short", "abc", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAddress(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.input, got)
		})
	}
}

func TestEncodeAddress_RoundTripsThroughParse(t *testing.T) {
	key := make([]byte, PublicKeySize)
	for i := range key {
		key[i] = byte(i + 1)
	}

	addr := EncodeAddress(key)
	parsed, err := ParseAddress(addr)
	require.NoError(t, err)
	assert.Equal(t, addr, parsed)
}

func TestIsOnCurve(t *testing.T) {
	// The ed25519 base point encoding is on the curve.
	basePoint := []byte{
		0x58, 0x66, 0x66, 0x66, 0x66, 0x66, 0x66, 0x66,
		0x66, 0x66, 0x66, 0x66, 0x66, 0x66, 0x66, 0x66,
		0x66, 0x66, 0x66, 0x66, 0x66, 0x66, 0x66, 0x66,
		0x66, 0x66, 0x66, 0x66, 0x66, 0x66, 0x66, 0x66,
	}
	assert.True(t, IsOnCurve(EncodeAddress(basePoint)))

	assert.False(t, IsOnCurve("not-base58-0OIl"))
	assert.False(t, IsOnCurve(EncodeAddress([]byte{1, 2, 3})))
}

func TestWalletAddressFromSeed_MatchesEd25519(t *testing.T) {
	seed := make([]byte, PublicKeySize)
	for i := range seed {
		seed[i] = byte(i * 7)
	}

	addr, err := WalletAddressFromSeed(seed)
	require.NoError(t, err)

	want := ed25519.NewKeyFromSeed(seed).Public().(ed25519.PublicKey)
	assert.Equal(t, EncodeAddress(want), addr)
	assert.True(t, IsOnCurve(addr))
}

func TestWalletAddressFromSeed_BadLength(t *testing.T) {
	_, err := WalletAddressFromSeed([]byte{1, 2, 3})
	assert.Error(t, err)
}
