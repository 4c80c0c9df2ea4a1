package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/Jlo00/colonyNetwork/pkg/contracts"
)

// SignatureSize is the length of a raw signature: the signer's public key followed
// by the ed25519 signature, so the signer can be recovered from it.
const SignatureSize = ed25519.PublicKeySize + ed25519.SignatureSize

// Signer produces raw signatures over change digests.
type Signer interface {
	Sign(digest []byte) ([]byte, error)
	Address() contracts.Address
}

// Ed25519Signer implementation.
type Ed25519Signer struct {
	privKey ed25519.PrivateKey
	pubKey  ed25519.PublicKey
	address contracts.Address
	KeyID   string
}

func NewEd25519Signer(keyID string) (*Ed25519Signer, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("key generation failed: %w", err)
	}
	return NewEd25519SignerFromKey(priv, keyID), nil
}

// NewEd25519SignerFromSeed derives a deterministic signer from a 32-byte seed.
func NewEd25519SignerFromSeed(seed []byte, keyID string) (*Ed25519Signer, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("invalid seed size: %d", len(seed))
	}
	return NewEd25519SignerFromKey(ed25519.NewKeyFromSeed(seed), keyID), nil
}

func NewEd25519SignerFromKey(priv ed25519.PrivateKey, keyID string) *Ed25519Signer {
	pub := priv.Public().(ed25519.PublicKey)
	return &Ed25519Signer{
		privKey: priv,
		pubKey:  pub,
		address: AddressFromPublicKey(pub),
		KeyID:   keyID,
	}
}

// Sign returns pubkey || ed25519(digest).
func (s *Ed25519Signer) Sign(digest []byte) ([]byte, error) {
	sig := ed25519.Sign(s.privKey, digest)
	out := make([]byte, 0, SignatureSize)
	out = append(out, s.pubKey...)
	return append(out, sig...), nil
}

// SignHex is Sign with hex output, for CLI and fixtures.
func (s *Ed25519Signer) SignHex(digest []byte) (string, error) {
	sig, err := s.Sign(digest)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(sig), nil
}

func (s *Ed25519Signer) Address() contracts.Address {
	return s.address
}

func (s *Ed25519Signer) PublicKey() string {
	return hex.EncodeToString(s.pubKey)
}

func (s *Ed25519Signer) PublicKeyBytes() []byte {
	return s.pubKey
}
