package crypto

import (
	"crypto/ed25519"

	"github.com/Jlo00/colonyNetwork/pkg/colonyerr"
	"github.com/Jlo00/colonyNetwork/pkg/contracts"
)

// Recoverer maps a digest and a raw signature to the address that produced it.
// Implementations are pure and fail with colonyerr.ErrInvalidSignature.
type Recoverer interface {
	Recover(digest, signature []byte) (contracts.Address, error)
}

// Ed25519Recoverer recovers signers from signatures produced by Ed25519Signer.
type Ed25519Recoverer struct{}

func NewEd25519Recoverer() *Ed25519Recoverer {
	return &Ed25519Recoverer{}
}

func (Ed25519Recoverer) Recover(digest, signature []byte) (contracts.Address, error) {
	if len(signature) != SignatureSize {
		return contracts.ZeroAddress, colonyerr.New(colonyerr.ErrInvalidSignature,
			"signature is %d bytes, want %d", len(signature), SignatureSize)
	}
	pub := ed25519.PublicKey(signature[:ed25519.PublicKeySize])
	if !ed25519.Verify(pub, digest, signature[ed25519.PublicKeySize:]) {
		return contracts.ZeroAddress, colonyerr.New(colonyerr.ErrInvalidSignature, "signature does not verify")
	}
	return AddressFromPublicKey(pub), nil
}
