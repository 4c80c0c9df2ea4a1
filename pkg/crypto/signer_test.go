package crypto

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jlo00/colonyNetwork/pkg/colonyerr"
)

func TestSigner_RecoverRoundTrip(t *testing.T) {
	signer, err := NewEd25519Signer("key-1")
	require.NoError(t, err)

	digest, err := CanonicalDigest(map[string]any{"task": 1, "nonce": 0})
	require.NoError(t, err)

	sig, err := signer.Sign(digest)
	require.NoError(t, err)
	assert.Len(t, sig, SignatureSize)

	addr, err := NewEd25519Recoverer().Recover(digest, sig)
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), addr)
}

func TestRecover_TamperedDigest(t *testing.T) {
	signer, err := NewEd25519Signer("key-1")
	require.NoError(t, err)

	sig, err := signer.Sign([]byte("nonce-0"))
	require.NoError(t, err)

	_, err = NewEd25519Recoverer().Recover([]byte("nonce-1"), sig)
	assert.True(t, errors.Is(err, colonyerr.ErrInvalidSignature))
}

func TestRecover_Malformed(t *testing.T) {
	_, err := NewEd25519Recoverer().Recover([]byte("x"), []byte{1, 2, 3})
	assert.True(t, errors.Is(err, colonyerr.ErrInvalidSignature))
}

func TestSignerFromSeedIsDeterministic(t *testing.T) {
	seed := bytes.Repeat([]byte{7}, 32)
	a, err := NewEd25519SignerFromSeed(seed, "a")
	require.NoError(t, err)
	b, err := NewEd25519SignerFromSeed(seed, "b")
	require.NoError(t, err)

	assert.Equal(t, a.Address(), b.Address())
	assert.Equal(t, a.PublicKey(), b.PublicKey())

	_, err = NewEd25519SignerFromSeed([]byte{1}, "short")
	assert.Error(t, err)
}

func TestDeriveAddress(t *testing.T) {
	assert.Equal(t, DeriveAddress("colony:1"), DeriveAddress("colony:1"))
	assert.NotEqual(t, DeriveAddress("colony:1"), DeriveAddress("colony:2"))
	assert.False(t, DeriveAddress("treasury").IsZero())
}

func TestKeccak256KnownVector(t *testing.T) {
	// keccak256("") is the well-known empty hash.
	assert.Equal(t,
		"c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470",
		hexString(Keccak256(nil)))
}
