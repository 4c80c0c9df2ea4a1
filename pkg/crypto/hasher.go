package crypto

import (
	"golang.org/x/crypto/sha3"

	"github.com/Jlo00/colonyNetwork/pkg/contracts"
)

// Keccak256 hashes data with legacy Keccak-256.
func Keccak256(data ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	return h.Sum(nil)
}

// AddressFromPublicKey takes the last 20 bytes of keccak256(pub).
func AddressFromPublicKey(pub []byte) contracts.Address {
	return contracts.BytesToAddress(Keccak256(pub))
}

// DeriveAddress gives a keyless entity (a colony, the treasury) a stable address.
func DeriveAddress(label string) contracts.Address {
	return contracts.BytesToAddress(Keccak256([]byte("colony-network:"), []byte(label)))
}
