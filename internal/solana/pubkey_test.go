package solana

import (
	"encoding/hex"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RFC 8032 test vector 1.
const (
	rfcSeedHex   = "9d61b19deffd5a60ba844af492ec2cc44449c5697b326919703bac031cae7f60"
	rfcPubkeyHex = "d75a980182b10ab7d54bfed3c964073a0ee172f3daa62325af021a68f707511a"
)

func TestParsePublicKey(t *testing.T) {
	pk, err := ParsePublicKey("11111111111111111111111111111111")
	require.NoError(t, err)
	assert.True(t, pk.IsZero())
	assert.Equal(t, "11111111111111111111111111111111", pk.String())

	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"not base58", "0OIl"},
		{"too short", "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePublicKey(tt.input)
			assert.True(t, errors.Is(err, ErrInvalidPublicKey), "got %v", err)
		})
	}
}

func TestPublicKey_RoundTrip(t *testing.T) {
	for _, id := range []PublicKey{TokenProgramID, AssociatedTokenProgramID, TokenMetadataProgramID} {
		parsed, err := ParsePublicKey(id.String())
		require.NoError(t, err)
		assert.Equal(t, id, parsed)
	}
}

func TestPublicKey_Bytes_IsCopy(t *testing.T) {
	pk := TokenProgramID
	b := pk.Bytes()
	b[0] ^= 0xff
	assert.Equal(t, TokenProgramID, pk)
}

func TestPublicKey_IsOnCurve(t *testing.T) {
	raw, err := hex.DecodeString(rfcPubkeyHex)
	require.NoError(t, err)

	var pk PublicKey
	copy(pk[:], raw)
	assert.True(t, pk.IsOnCurve(), "ed25519 public key must be on curve")

	ata, err := FindAssociatedTokenAddress(pk, SystemProgramID)
	require.NoError(t, err)
	assert.False(t, ata.IsOnCurve(), "derived address must be off curve")
}

func TestFindProgramAddress(t *testing.T) {
	seeds := [][]byte{[]byte("drop"), []byte("pog-apes")}

	pda, bump, err := FindProgramAddress(seeds, TokenMetadataProgramID)
	require.NoError(t, err)
	assert.False(t, pda.IsOnCurve())

	// Deterministic.
	again, againBump, err := FindProgramAddress(seeds, TokenMetadataProgramID)
	require.NoError(t, err)
	assert.Equal(t, pda, again)
	assert.Equal(t, bump, againBump)

	// The bump reproduces the address.
	direct, err := CreateProgramAddress(append(seeds, []byte{bump}), TokenMetadataProgramID)
	require.NoError(t, err)
	assert.Equal(t, pda, direct)

	// A different program yields a different address.
	other, _, err := FindProgramAddress(seeds, TokenProgramID)
	require.NoError(t, err)
	assert.NotEqual(t, pda, other)
}

func TestCreateProgramAddress_SeedTooLong(t *testing.T) {
	_, err := CreateProgramAddress([][]byte{make([]byte, maxSeedLength+1)}, SystemProgramID)
	assert.Error(t, err)
}

func TestFindMetadataAddress(t *testing.T) {
	kp, err := NewKeypair()
	require.NoError(t, err)

	meta, err := FindMetadataAddress(kp.PublicKey())
	require.NoError(t, err)
	assert.False(t, meta.IsOnCurve())

	expected, _, err := FindProgramAddress([][]byte{
		[]byte("metadata"), TokenMetadataProgramID[:], kp.PublicKey().Bytes(),
	}, TokenMetadataProgramID)
	require.NoError(t, err)
	assert.Equal(t, expected, meta)
}
