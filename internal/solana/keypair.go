package solana

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"github.com/mr-tron/base58"
)

// Keypair is an ed25519 signing key.
type Keypair struct {
	private ed25519.PrivateKey
}

// NewKeypair generates a random keypair.
func NewKeypair() (*Keypair, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate keypair: %w", err)
	}
	return &Keypair{private: priv}, nil
}

// KeypairFromBase58 decodes a 64-byte secret key (seed || public key) in base58,
// the format used by wallet exports.
func KeypairFromBase58(secret string) (*Keypair, error) {
	decoded, err := base58.Decode(secret)
	if err != nil {
		return nil, fmt.Errorf("decode secret key: %w", err)
	}
	return KeypairFromBytes(decoded)
}

// KeypairFromBytes builds a keypair from a 64-byte secret key or a 32-byte seed.
func KeypairFromBytes(b []byte) (*Keypair, error) {
	switch len(b) {
	case ed25519.PrivateKeySize:
		priv := ed25519.NewKeyFromSeed(b[:ed25519.SeedSize])
		if !priv.Public().(ed25519.PublicKey).Equal(ed25519.PublicKey(b[ed25519.SeedSize:])) {
			return nil, fmt.Errorf("secret key public half does not match seed")
		}
		return &Keypair{private: priv}, nil
	case ed25519.SeedSize:
		return &Keypair{private: ed25519.NewKeyFromSeed(b)}, nil
	default:
		return nil, fmt.Errorf("secret key length %d, want %d or %d", len(b), ed25519.PrivateKeySize, ed25519.SeedSize)
	}
}

// PublicKey returns the account address of the keypair.
func (k *Keypair) PublicKey() PublicKey {
	var pk PublicKey
	copy(pk[:], k.private.Public().(ed25519.PublicKey))
	return pk
}

// Sign signs message.
func (k *Keypair) Sign(message []byte) []byte {
	return ed25519.Sign(k.private, message)
}

// VerifySignature checks an ed25519 signature by pubkey over message.
func VerifySignature(pubkey PublicKey, message, signature []byte) bool {
	if len(signature) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pubkey[:]), message, signature)
}
