package execution

import (
	"fmt"

	solanago "github.com/gagliardetto/solana-go"
)

// KeypairSigner signs with an in-memory ed25519 keypair.
type KeypairSigner struct {
	key solanago.PrivateKey
}

// NewKeypairSigner parses a base58 64-byte secret key.
func NewKeypairSigner(secret string) (*KeypairSigner, error) {
	key, err := solanago.PrivateKeyFromBase58(secret)
	if err != nil {
		return nil, fmt.Errorf("parse keypair: %w", err)
	}
	if len(key) != 64 {
		return nil, fmt.Errorf("parse keypair: expected 64 bytes, got %d", len(key))
	}
	return &KeypairSigner{key: key}, nil
}

// PublicKey returns the signer's address.
func (s *KeypairSigner) PublicKey() solanago.PublicKey {
	return s.key.PublicKey()
}

// Sign signs message.
func (s *KeypairSigner) Sign(message []byte) (solanago.Signature, error) {
	return s.key.Sign(message)
}

// String never prints the secret.
func (s *KeypairSigner) String() string {
	return "KeypairSigner(" + s.PublicKey().String() + ")"
}
